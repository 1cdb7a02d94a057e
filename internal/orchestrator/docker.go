package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/process"
)

// Parameter keys accepted by DockerAction.
const (
	ParamImage       = "image"
	ParamTag         = "tag"
	ParamName        = "name"
	ParamContainerID = "containerId"
	ParamTerm        = "term"
	ParamPath        = "path"
	ParamPorts       = "ports"
	ParamAll         = "all"
)

// DockerActionRequest is one container runtime action. Params holds the
// kind-specific inputs keyed by the Param* constants.
type DockerActionRequest struct {
	Kind   command.Kind
	Params map[string]string
}

func (r DockerActionRequest) param(key string) string {
	return strings.TrimSpace(r.Params[key])
}

// require returns the trimmed value of key. Values are passed as
// positional arguments, so one that looks like a flag is rejected.
func (r DockerActionRequest) require(key string) (string, error) {
	v := r.param(key)
	if v == "" {
		return "", missing(key)
	}
	if strings.HasPrefix(v, "-") {
		return "", &ValidationError{Field: key, Message: fmt.Sprintf("%q must not start with '-'", v)}
	}
	return v, nil
}

// DockerAction validates req and executes exactly one container runtime
// command. Actions are independent of each other and of the VM session.
func (o *Orchestrator) DockerAction(req DockerActionRequest) (*process.Handle, error) {
	desc, err := o.dockerDescriptor(req)
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("Docker action", "kind", req.Kind.String(), "command", desc.String())
	return o.runner.Execute(desc), nil
}

func (o *Orchestrator) dockerDescriptor(req DockerActionRequest) (command.Descriptor, error) {
	rt := o.cfg.ContainerRuntime

	switch req.Kind {
	case command.KindImagePull:
		image, err := req.require(ParamImage)
		if err != nil {
			return command.Descriptor{}, err
		}
		return command.ImagePull(rt, command.ImageRef(image, req.param(ParamTag))), nil

	case command.KindImageRun:
		image, err := req.require(ParamImage)
		if err != nil {
			return command.Descriptor{}, err
		}
		return command.ImageRun(rt, command.RunOptions{
			Image: image,
			Tag:   req.param(ParamTag),
			Name:  req.param(ParamName),
			Ports: splitList(req.param(ParamPorts)),
		}), nil

	case command.KindImageBuild:
		path, err := req.require(ParamPath)
		if err != nil {
			return command.Descriptor{}, err
		}
		return command.ImageBuild(rt, path, req.param(ParamTag)), nil

	case command.KindContainerStop:
		id, err := req.require(ParamContainerID)
		if err != nil {
			return command.Descriptor{}, err
		}
		return command.ContainerStop(rt, id), nil

	case command.KindImageSearch:
		term, err := req.require(ParamTerm)
		if err != nil {
			return command.Descriptor{}, err
		}
		return command.ImageSearch(rt, term), nil

	case command.KindContainerList:
		all := false
		if v := req.param(ParamAll); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return command.Descriptor{}, &ValidationError{Field: ParamAll, Message: fmt.Sprintf("not a boolean: %q", v)}
			}
			all = b
		}
		return command.ContainerList(rt, all), nil

	case command.KindImageList:
		return command.ImageList(rt), nil

	case command.KindVersionCheck:
		return command.VersionCheck(rt), nil
	}

	return command.Descriptor{}, &ValidationError{Field: "kind", Message: fmt.Sprintf("%s is not a container action", req.Kind)}
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, f)
	}
	return out
}
