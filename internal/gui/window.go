// Package gui provides the graphical dashboard: a VM launch form, a docker
// action form, a process list and a terminal view of the event stream.
package gui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	fyneterm "github.com/fyne-io/terminal"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/process"
)

// nopWriteCloser wraps an io.Writer with a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Dashboard is the main window state. Widgets are only touched on the fyne
// goroutine; background work reports back through fyne.Do.
type Dashboard struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	broker *events.Broker

	window  fyne.Window
	status  *widget.Label
	detail  *widget.Label
	list    *widget.List
	handles []*process.Handle
	picked  string
}

// Run opens the dashboard and blocks until the window is closed. onClose is
// called once when the window closes or the process is signalled.
func Run(cfg *config.Config, orch *orchestrator.Orchestrator, broker *events.Broker, onClose func()) {
	a := app.New()
	w := a.NewWindow("Cloud Manager")
	w.Resize(fyne.NewSize(1000, 720))

	d := &Dashboard{cfg: cfg, orch: orch, broker: broker, window: w}

	term := fyneterm.New()
	tabs := container.NewAppTabs(
		container.NewTabItem("Home", d.homeTab()),
		container.NewTabItem("VM", d.vmTab()),
		container.NewTabItem("Docker", d.dockerTab()),
		container.NewTabItem("Processes", d.processTab()),
	)
	split := container.NewVSplit(tabs, term)
	split.Offset = 0.55
	w.SetContent(split)

	quit := func() {
		if onClose != nil {
			onClose()
		}
		a.Quit()
	}
	w.SetCloseIntercept(quit)

	// Handle signals: first SIGINT/SIGTERM does graceful close, second forces exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fyne.Do(quit)

		<-sigCh
		os.Exit(1)
	}()

	// Event stream -> terminal view, status events also refresh the widgets.
	pr, pw := io.Pipe()
	sub := broker.Subscribe()
	go func() {
		defer pw.Close()
		for ev := range sub.C() {
			if _, err := io.WriteString(pw, terminalLine(ev)); err != nil {
				return
			}
			if ev.Kind == events.KindStatus {
				fyne.Do(d.refresh)
			}
		}
	}()
	go func() {
		_ = term.RunWithConnection(nopWriteCloser{io.Discard}, pr)
		sub.Close()
	}()

	d.refresh()
	w.Show()
	a.Run()
	sub.Close()
}

// terminalLine renders ev for the terminal widget, which expects CRLF.
func terminalLine(ev events.Event) string {
	line := events.Format(ev, true)
	if ev.Stream == events.Stderr && ev.Kind == events.KindLine {
		line = "\x1b[31m" + line + "\x1b[0m"
	}
	return strings.ReplaceAll(line, "\n", "\r\n") + "\r\n"
}

func (d *Dashboard) homeTab() fyne.CanvasObject {
	d.status = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	d.detail = widget.NewLabel("")
	d.detail.Wrapping = fyne.TextWrapWord

	paths := widget.NewLabel(fmt.Sprintf("ISOs: %s\nDisks: %s\nLaunch files: %s\nRuntime: %s",
		d.cfg.ISODir, d.cfg.DiskDir, d.cfg.LaunchDir, d.cfg.ContainerRuntime))

	return container.NewVBox(
		widget.NewCard("Virtual machine", "", container.NewVBox(d.status, d.detail)),
		widget.NewCard("Configuration", "", paths),
	)
}

func (d *Dashboard) vmTab() fyne.CanvasObject {
	ram := widget.NewEntry()
	ram.SetText(d.cfg.RAM)
	cpus := widget.NewEntry()
	cpus.SetText(strconv.Itoa(d.cfg.CPUs))
	size := widget.NewEntry()
	size.SetText(d.cfg.DiskSize)
	name := widget.NewEntry()
	name.SetText(d.cfg.DiskName)

	isos, err := d.orch.ListISOs()
	if err != nil {
		logging.Logger.Warn("Could not list ISOs", "dir", d.cfg.ISODir, "error", err)
	}
	iso := widget.NewSelectEntry(isos)
	if len(isos) > 0 {
		iso.SetText(isos[0])
	}
	iso.SetPlaceHolder("ubuntu.iso or /path/to/image.iso")

	launch := widget.NewButton("Launch", nil)
	launch.Importance = widget.HighImportance
	launch.OnTapped = func() {
		n, err := strconv.Atoi(strings.TrimSpace(cpus.Text))
		if err != nil {
			dialog.ShowError(&orchestrator.ValidationError{Field: "cpus", Message: "must be a number"}, d.window)
			return
		}
		req := orchestrator.LaunchRequest{
			RAM:      strings.TrimSpace(ram.Text),
			CPUs:     n,
			DiskSize: strings.TrimSpace(size.Text),
			ISO:      strings.TrimSpace(iso.Text),
			DiskName: strings.TrimSpace(name.Text),
		}

		launch.Disable()
		go func() {
			_, err := d.orch.LaunchVM(context.Background(), req)
			fyne.Do(func() {
				launch.Enable()
				if err != nil {
					dialog.ShowError(err, d.window)
				}
				d.refresh()
			})
		}()
	}

	stop := widget.NewButton("Stop VM", func() {
		if !d.orch.CurrentVMStatus().Busy() {
			return
		}
		if err := d.orch.CancelVM(); err != nil {
			dialog.ShowError(err, d.window)
		}
	})

	form := widget.NewForm(
		widget.NewFormItem("RAM", ram),
		widget.NewFormItem("CPUs", cpus),
		widget.NewFormItem("Disk size", size),
		widget.NewFormItem("Disk name", name),
		widget.NewFormItem("ISO", iso),
	)
	return container.NewVBox(form, container.NewHBox(launch, stop))
}

// dockerParams are the inputs shown for each action, in order.
var dockerParams = map[command.Kind][]string{
	command.KindImagePull:     {orchestrator.ParamImage, orchestrator.ParamTag},
	command.KindImageRun:      {orchestrator.ParamImage, orchestrator.ParamTag, orchestrator.ParamName, orchestrator.ParamPorts},
	command.KindImageBuild:    {orchestrator.ParamPath, orchestrator.ParamTag},
	command.KindImageSearch:   {orchestrator.ParamTerm},
	command.KindContainerStop: {orchestrator.ParamContainerID},
	command.KindContainerList: {orchestrator.ParamAll},
	command.KindImageList:     nil,
	command.KindVersionCheck:  nil,
}

func (d *Dashboard) dockerTab() fyne.CanvasObject {
	entries := make(map[string]*widget.Entry)
	form := widget.NewForm()
	kind := command.KindImagePull

	rebuild := func() {
		form.Items = nil
		for _, key := range dockerParams[kind] {
			e, ok := entries[key]
			if !ok {
				e = widget.NewEntry()
				entries[key] = e
			}
			form.AppendItem(widget.NewFormItem(key, e))
		}
		form.Refresh()
	}

	names := make([]string, 0, len(dockerParams))
	for _, k := range []command.Kind{
		command.KindImagePull, command.KindImageRun, command.KindImageBuild, command.KindImageSearch,
		command.KindContainerStop, command.KindContainerList, command.KindImageList, command.KindVersionCheck,
	} {
		names = append(names, k.String())
	}
	action := widget.NewSelect(names, func(s string) {
		if k, ok := command.ParseKind(s); ok {
			kind = k
			rebuild()
		}
	})
	action.SetSelected(kind.String())

	run := widget.NewButton("Run", func() {
		params := make(map[string]string)
		for _, key := range dockerParams[kind] {
			if v := strings.TrimSpace(entries[key].Text); v != "" {
				params[key] = v
			}
		}
		if _, err := d.orch.DockerAction(orchestrator.DockerActionRequest{Kind: kind, Params: params}); err != nil {
			dialog.ShowError(err, d.window)
		}
		d.refresh()
	})
	run.Importance = widget.HighImportance

	return container.NewVBox(
		widget.NewForm(widget.NewFormItem("Action", action)),
		form,
		run,
	)
}

func (d *Dashboard) processTab() fyne.CanvasObject {
	d.list = widget.NewList(
		func() int { return len(d.handles) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			h := d.handles[id]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  %-9s  %s", h.ID()[:8], h.State(), h.Descriptor().String()))
		},
	)
	d.list.OnSelected = func(id widget.ListItemID) {
		d.picked = d.handles[id].ID()
	}

	cancel := widget.NewButton("Cancel selected", func() {
		if d.picked == "" {
			return
		}
		if err := d.orch.Cancel(d.picked); err != nil {
			dialog.ShowError(err, d.window)
		}
	})

	return container.NewBorder(nil, cancel, nil, nil, d.list)
}

// refresh re-reads the registry into the widgets.
func (d *Dashboard) refresh() {
	vm := d.orch.VM()
	d.status.SetText("Status: " + vm.Status.String())

	var detail string
	if vm.DiskPath != "" {
		detail = fmt.Sprintf("RAM %s, %d CPUs\nDisk %s (%s)\nISO %s", vm.RAM, vm.CPUs, vm.DiskPath, vm.DiskSize, vm.ISOPath)
	}
	if vm.Err != nil {
		detail += "\nLast error: " + vm.Err.Error()
	}
	d.detail.SetText(detail)

	d.handles = d.orch.Handles()
	d.list.Refresh()
}
