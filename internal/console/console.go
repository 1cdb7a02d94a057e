// Package console is the interactive menu front end. Menus are huh forms;
// following a running process is a Bubble Tea screen fed by the event
// broker.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/process"
)

const (
	actionVM        = "vm"
	actionDocker    = "docker"
	actionProcesses = "processes"
	actionStatus    = "status"
	actionQuit      = "quit"
)

// Console runs the menu loop against one orchestrator.
type Console struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	broker *events.Broker
	out    io.Writer
}

// New creates a console writing its summaries to out.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, broker *events.Broker, out io.Writer) *Console {
	return &Console{cfg: cfg, orch: orch, broker: broker, out: out}
}

// Run shows the main menu until the operator quits or ctx ends.
func (c *Console) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		fmt.Fprintln(c.out, c.StatusLine())

		action := actionQuit
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Cloud Manager").
					Options(
						huh.NewOption("Launch a VM", actionVM),
						huh.NewOption("Docker", actionDocker),
						huh.NewOption("Processes", actionProcesses),
						huh.NewOption("Status", actionStatus),
						huh.NewOption("Quit", actionQuit),
					).
					Value(&action),
			),
		).Run()
		if errors.Is(err, huh.ErrUserAborted) || action == actionQuit {
			return nil
		}
		if err != nil {
			return err
		}

		if err := c.dispatch(ctx, action); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			logging.Logger.Warn("Menu action failed", "action", action, "error", err)
			fmt.Fprintln(c.out, ErrorStyle.Render("Error: "+err.Error()))
		}
	}
	return ctx.Err()
}

func (c *Console) dispatch(ctx context.Context, action string) error {
	switch action {
	case actionVM:
		return c.launchVM(ctx)
	case actionDocker:
		return c.docker()
	case actionProcesses:
		return c.processes()
	case actionStatus:
		fmt.Fprintln(c.out, c.StatusReport())
	}
	return nil
}

func (c *Console) launchVM(ctx context.Context) error {
	isos, err := c.orch.ListISOs()
	if err != nil {
		logging.Logger.Warn("Could not list ISOs", "dir", c.cfg.ISODir, "error", err)
	}

	req, err := launchForm(c.cfg, isos)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, MutedStyle.Render("Preparing disk and starting VM..."))
	h, err := c.orch.LaunchVM(ctx, req)
	if err != nil {
		return err
	}
	return c.Follow(h)
}

func (c *Console) docker() error {
	kind := command.KindImagePull
	opts := make([]huh.Option[command.Kind], 0, len(dockerKinds))
	for _, k := range dockerKinds {
		opts = append(opts, huh.NewOption(dockerLabels[k], k))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[command.Kind]().
				Title("Docker").
				Description(c.cfg.ContainerRuntime).
				Options(opts...).
				Value(&kind),
		),
	).Run()
	if err != nil {
		return err
	}

	req, err := dockerForm(kind)
	if err != nil {
		return err
	}

	h, err := c.orch.DockerAction(req)
	if err != nil {
		return err
	}
	return c.Follow(h)
}

func (c *Console) processes() error {
	handles := c.orch.Handles()
	if len(handles) == 0 {
		fmt.Fprintln(c.out, MutedStyle.Render("No processes launched yet."))
		return nil
	}

	var selected string
	opts := make([]huh.Option[string], 0, len(handles))
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		opts = append(opts, huh.NewOption(handleLabel(h), h.ID()))
	}
	cancel := false

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Processes").
				Options(opts...).
				Value(&selected),
			huh.NewConfirm().
				Title("Action").
				Affirmative("Cancel it").
				Negative("Follow").
				Value(&cancel),
		),
	).Run()
	if err != nil {
		return err
	}

	if cancel {
		if err := c.orch.Cancel(selected); err != nil {
			return err
		}
		fmt.Fprintln(c.out, BusyStyle.Render("Cancelled "+shortID(selected)))
		return nil
	}

	h, err := c.orch.Handle(selected)
	if err != nil {
		return err
	}
	return c.Follow(h)
}

// Follow shows the live output of h until it finishes or the operator
// goes back.
func (c *Console) Follow(h *process.Handle) error {
	sub := c.broker.Subscribe()
	defer sub.Close()

	m := NewFollowModel(h, sub, c.orch.Cancel)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("follow %s: %w", shortID(h.ID()), err)
	}

	if m.Detached {
		fmt.Fprintln(c.out, MutedStyle.Render(fmt.Sprintf("%s keeps running in the background", shortID(h.ID()))))
		return nil
	}
	fmt.Fprintln(c.out, handleLabel(h))
	return nil
}

// StatusLine is the one-line summary printed above the menu.
func (c *Console) StatusLine() string {
	vm := c.orch.VM()
	active := len(c.orch.ActiveHandles())
	return fmt.Sprintf("%s %s  %s",
		TitleStyle.Render("VM:"),
		StatusStyle(vm.Status).Render(vm.Status.String()),
		MutedStyle.Render(fmt.Sprintf("%d active process(es)", active)))
}

// StatusReport renders the VM session and the handle list in a box.
func (c *Console) StatusReport() string {
	vm := c.orch.VM()
	s := fmt.Sprintf("%s %s\n", TitleStyle.Render("VM status:"), StatusStyle(vm.Status).Render(vm.Status.String()))
	if vm.DiskPath != "" {
		s += fmt.Sprintf("RAM %s  CPUs %d  disk %s (%s)\nISO %s\n", vm.RAM, vm.CPUs, vm.DiskPath, vm.DiskSize, vm.ISOPath)
	}
	if vm.Err != nil {
		s += ErrorStyle.Render("Last error: "+vm.Err.Error()) + "\n"
	}

	handles := c.orch.Handles()
	s += fmt.Sprintf("\n%s %d\n", TitleStyle.Render("Processes:"), len(handles))
	for _, h := range handles {
		s += handleLabel(h) + "\n"
	}
	return BoxStyle.Render(s)
}

func handleLabel(h *process.Handle) string {
	state := h.State()
	label := fmt.Sprintf("%s %-10s %s", shortID(h.ID()), state, h.Descriptor().String())
	switch state {
	case process.Failed:
		return ErrorStyle.Render(label)
	case process.Succeeded:
		return OKStyle.Render(label)
	default:
		return BusyStyle.Render(label)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
