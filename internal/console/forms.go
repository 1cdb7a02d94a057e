package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
)

// field describes one docker action input.
type field struct {
	Key      string
	Title    string
	Required bool
}

var dockerKinds = []command.Kind{
	command.KindImagePull,
	command.KindImageRun,
	command.KindImageBuild,
	command.KindImageSearch,
	command.KindContainerStop,
	command.KindContainerList,
	command.KindImageList,
	command.KindVersionCheck,
}

var dockerLabels = map[command.Kind]string{
	command.KindImagePull:     "Pull an image",
	command.KindImageRun:      "Run a container",
	command.KindImageBuild:    "Build an image",
	command.KindImageSearch:   "Search images",
	command.KindContainerStop: "Stop a container",
	command.KindContainerList: "List containers",
	command.KindImageList:     "List images",
	command.KindVersionCheck:  "Runtime version",
}

// dockerFields lists the inputs asked for kind, in form order.
func dockerFields(kind command.Kind) []field {
	switch kind {
	case command.KindImagePull:
		return []field{
			{orchestrator.ParamImage, "Image", true},
			{orchestrator.ParamTag, "Tag (optional)", false},
		}
	case command.KindImageRun:
		return []field{
			{orchestrator.ParamImage, "Image", true},
			{orchestrator.ParamTag, "Tag (optional)", false},
			{orchestrator.ParamName, "Container name (optional)", false},
			{orchestrator.ParamPorts, "Ports, e.g. 8080:80 (optional)", false},
		}
	case command.KindImageBuild:
		return []field{
			{orchestrator.ParamPath, "Build context directory", true},
			{orchestrator.ParamTag, "Tag (optional)", false},
		}
	case command.KindImageSearch:
		return []field{{orchestrator.ParamTerm, "Search term", true}}
	case command.KindContainerStop:
		return []field{{orchestrator.ParamContainerID, "Container ID or name", true}}
	case command.KindContainerList:
		return []field{{orchestrator.ParamAll, "Include stopped containers? (true/false)", false}}
	}
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// dockerForm asks for kind's inputs and returns the request.
func dockerForm(kind command.Kind) (orchestrator.DockerActionRequest, error) {
	fields := dockerFields(kind)
	values := make([]string, len(fields))

	if len(fields) > 0 {
		inputs := make([]huh.Field, 0, len(fields))
		for i, f := range fields {
			in := huh.NewInput().Title(f.Title).Value(&values[i])
			if f.Required {
				in = in.Validate(required(f.Key))
			}
			inputs = append(inputs, in)
		}
		if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
			return orchestrator.DockerActionRequest{}, err
		}
	}

	return buildDockerRequest(kind, fields, values), nil
}

func buildDockerRequest(kind command.Kind, fields []field, values []string) orchestrator.DockerActionRequest {
	params := make(map[string]string, len(fields))
	for i, f := range fields {
		if v := strings.TrimSpace(values[i]); v != "" {
			params[f.Key] = v
		}
	}
	return orchestrator.DockerActionRequest{Kind: kind, Params: params}
}

// launchValues backs the VM launch form.
type launchValues struct {
	RAM      string
	CPUs     string
	DiskSize string
	ISO      string
	DiskName string
}

func defaultLaunchValues(cfg *config.Config) launchValues {
	return launchValues{
		RAM:      cfg.RAM,
		CPUs:     strconv.Itoa(cfg.CPUs),
		DiskSize: cfg.DiskSize,
		DiskName: cfg.DiskName,
	}
}

func (v launchValues) request() (orchestrator.LaunchRequest, error) {
	cpus, err := strconv.Atoi(strings.TrimSpace(v.CPUs))
	if err != nil {
		return orchestrator.LaunchRequest{}, &orchestrator.ValidationError{Field: "cpus", Message: "must be a number"}
	}
	return orchestrator.LaunchRequest{
		RAM:      strings.TrimSpace(v.RAM),
		CPUs:     cpus,
		DiskSize: strings.TrimSpace(v.DiskSize),
		ISO:      strings.TrimSpace(v.ISO),
		DiskName: strings.TrimSpace(v.DiskName),
	}, nil
}

func validSize(name string) func(string) error {
	return func(s string) error {
		if !config.ValidSize(strings.TrimSpace(s)) {
			return fmt.Errorf("%s must look like 4G or 512M", name)
		}
		return nil
	}
}

// launchForm asks for the VM parameters. isos are offered as suggestions.
func launchForm(cfg *config.Config, isos []string) (orchestrator.LaunchRequest, error) {
	v := defaultLaunchValues(cfg)
	if len(isos) > 0 {
		v.ISO = isos[0]
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("RAM").Value(&v.RAM).Validate(validSize("RAM")),
			huh.NewInput().Title("CPUs").Value(&v.CPUs).Validate(func(s string) error {
				if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
					return fmt.Errorf("CPUs must be a positive number")
				}
				return nil
			}),
			huh.NewInput().Title("Disk size").Value(&v.DiskSize).Validate(validSize("disk size")),
			huh.NewInput().Title("Disk name").Value(&v.DiskName).Validate(required("disk name")),
			huh.NewInput().
				Title("ISO").
				Description(fmt.Sprintf("File in %s or a full path", cfg.ISODir)).
				Suggestions(isos).
				Value(&v.ISO).
				Validate(required("ISO")),
		),
	)
	if err := form.Run(); err != nil {
		return orchestrator.LaunchRequest{}, err
	}
	return v.request()
}
