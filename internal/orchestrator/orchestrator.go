// Package orchestrator turns operator intents into process launches. It
// validates requests, sequences the VM disk and boot steps, and keeps the
// session registry in step with the processes it spawns.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/process"
	"github.com/javanstorm/cloudmanager/internal/session"
	"github.com/javanstorm/cloudmanager/pkg/hypervisor"
)

// LaunchRequest holds the parameters of one VM launch.
type LaunchRequest struct {
	RAM      string
	CPUs     int
	DiskSize string

	// ISO is a path or a file name under the configured ISO directory.
	ISO string

	// DiskName overrides the configured disk name. An absolute path is
	// used as is.
	DiskName string
}

// Orchestrator owns the launch sequencing for one console instance.
type Orchestrator struct {
	cfg      *config.Config
	driver   hypervisor.Driver
	runner   *process.Runner
	registry *session.Registry

	// diskMu serialises disk creation so one path is never created twice.
	diskMu sync.Mutex

	observers sync.WaitGroup
}

// New creates an orchestrator. runner must register its handles with
// registry (process.WithRegistrar).
func New(cfg *config.Config, runner *process.Runner, registry *session.Registry) *Orchestrator {
	driver := hypervisor.NewDriver(hypervisor.Tools{
		QemuImg:    cfg.QemuImg,
		QemuSystem: cfg.QemuSystem,
	}, cfg.Accel)

	return &Orchestrator{
		cfg:      cfg,
		driver:   driver,
		runner:   runner,
		registry: registry,
	}
}

// Driver returns the hypervisor driver built from the configuration.
func (o *Orchestrator) Driver() hypervisor.Driver {
	return o.driver
}

// LaunchVM creates the disk if needed, waiting for it to finish, and then
// starts the VM boot. It returns the boot handle as soon as the boot process
// has been handed to the runner; the session status keeps following the
// boot in the background. ctx only bounds the disk creation wait.
func (o *Orchestrator) LaunchVM(ctx context.Context, req LaunchRequest) (*process.Handle, error) {
	if err := validateLaunch(req); err != nil {
		return nil, err
	}

	iso, err := o.ResolveISO(req.ISO)
	if err != nil {
		return nil, err
	}

	diskPath := o.diskPath(req.DiskName)
	initial := session.VMBooting
	if !fileExists(diskPath) {
		initial = session.VMCreatingDisk
	}

	if err := o.registry.ClaimVM(session.VMSession{
		RAM:      req.RAM,
		CPUs:     req.CPUs,
		DiskPath: diskPath,
		DiskSize: req.DiskSize,
		ISOPath:  iso,
		Status:   initial,
	}); err != nil {
		return nil, err
	}

	logging.Logger.Info("Launching VM", "ram", req.RAM, "cpus", req.CPUs, "disk", diskPath, "iso", iso)

	if initial == session.VMCreatingDisk {
		h, err := o.createDisk(ctx, diskPath, req.DiskSize, func(h *process.Handle) {
			o.registry.SetVMHandles(h.ID(), "")
		})
		if err != nil {
			o.registry.SetVMStatus(session.VMError, err)
			return h, fmt.Errorf("create disk: %w", err)
		}
		o.registry.SetVMStatus(session.VMBooting, nil)
	}

	desc, err := command.VMBoot(o.driver, &hypervisor.VMConfig{
		Memory:   req.RAM,
		CPUs:     req.CPUs,
		DiskPath: diskPath,
		ISOPath:  iso,
	})
	if err != nil {
		o.registry.SetVMStatus(session.VMError, err)
		return nil, fmt.Errorf("build boot command: %w", err)
	}

	h := o.runner.Execute(desc)
	o.registry.SetVMHandles("", h.ID())
	o.observers.Add(1)
	go o.observeBoot(h)

	return h, nil
}

// observeBoot moves the session through Running and into Stopped or Error
// as the boot handle progresses. Updates are dropped once a newer launch
// owns the session.
func (o *Orchestrator) observeBoot(h *process.Handle) {
	defer o.observers.Done()

	<-h.Started()
	if h.State() != process.Failed {
		o.registry.TransitionVM(h.ID(), session.VMRunning, nil)
	}

	<-h.Done()
	if h.State() == process.Succeeded {
		o.registry.TransitionVM(h.ID(), session.VMStopped, nil)
		return
	}
	o.registry.TransitionVM(h.ID(), session.VMError, h.Err())
}

// Wait blocks until every boot observer has applied its final status. Call
// it after the runner has shut down.
func (o *Orchestrator) Wait() {
	o.observers.Wait()
}

// EnsureDisk creates a qcow2 disk at path unless one already exists. An
// existing file is success without action and returns a nil handle.
func (o *Orchestrator) EnsureDisk(ctx context.Context, path, size string) (*process.Handle, error) {
	if path == "" {
		return nil, missing("disk")
	}
	if size == "" {
		return nil, missing("diskSize")
	}
	return o.createDisk(ctx, path, size, nil)
}

// createDisk runs qemu-img and waits for it. started, if set, is called with
// the handle before the wait begins.
func (o *Orchestrator) createDisk(ctx context.Context, path, size string, started func(*process.Handle)) (*process.Handle, error) {
	o.diskMu.Lock()
	defer o.diskMu.Unlock()

	if fileExists(path) {
		logging.Logger.Debug("Disk already exists", "path", path)
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create disk directory: %w", err)
	}

	h := o.runner.Execute(command.DiskCreate(o.driver, path, size))
	if started != nil {
		started(h)
	}
	if err := h.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = o.runner.Cancel(h.ID())
		}
		return h, err
	}
	return h, nil
}

// ResolveISO returns the ISO path for name: the literal path when it
// exists, otherwise the file of that name in the ISO directory.
func (o *Orchestrator) ResolveISO(name string) (string, error) {
	searched := []string{name}
	if fileExists(name) {
		return name, nil
	}
	if o.cfg.ISODir != "" {
		candidate := filepath.Join(o.cfg.ISODir, name)
		searched = append(searched, candidate)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", &ResourceNotFoundError{Resource: "iso", Name: name, Searched: searched}
}

// ListISOs returns the ISO file names found in the ISO directory.
func (o *Orchestrator) ListISOs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(o.cfg.ISODir, "*.iso"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names, nil
}

// Cancel terminates a running handle.
func (o *Orchestrator) Cancel(id string) error {
	if _, err := o.registry.Lookup(id); err != nil {
		return err
	}
	return o.runner.Cancel(id)
}

// CancelVM terminates whichever process the VM session is waiting on: the
// disk creation while the status is CreatingDisk, the boot otherwise.
func (o *Orchestrator) CancelVM() error {
	vm := o.registry.VM()
	if !vm.Status.Busy() {
		return fmt.Errorf("vm is %s: %w", vm.Status, process.ErrNotRunning)
	}
	id := vm.BootHandle
	if vm.Status == session.VMCreatingDisk {
		id = vm.DiskHandle
	}
	if id == "" {
		return fmt.Errorf("vm is %s: %w", vm.Status, process.ErrNotRunning)
	}
	return o.Cancel(id)
}

// CurrentVMStatus returns the VM session status.
func (o *Orchestrator) CurrentVMStatus() session.VMStatus {
	return o.registry.VM().Status
}

// VM returns a copy of the VM session.
func (o *Orchestrator) VM() session.VMSession {
	return o.registry.VM()
}

// ActiveHandles returns the handles still pending or running.
func (o *Orchestrator) ActiveHandles() []*process.Handle {
	return o.registry.ListActive()
}

// Handles returns every handle launched by this console.
func (o *Orchestrator) Handles() []*process.Handle {
	return o.registry.List()
}

// Handle looks up a handle by ID.
func (o *Orchestrator) Handle(id string) (*process.Handle, error) {
	return o.registry.Lookup(id)
}

func (o *Orchestrator) diskPath(name string) string {
	if name == "" {
		name = o.cfg.DiskName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.cfg.DiskDir, name)
}

func validateLaunch(req LaunchRequest) error {
	switch {
	case req.RAM == "":
		return missing("ram")
	case !config.ValidSize(req.RAM):
		return &ValidationError{Field: "ram", Message: fmt.Sprintf("invalid size %q", req.RAM)}
	case req.CPUs < 1:
		return &ValidationError{Field: "cpus", Message: "must be at least 1"}
	case req.DiskSize == "":
		return missing("diskSize")
	case !config.ValidSize(req.DiskSize):
		return &ValidationError{Field: "diskSize", Message: fmt.Sprintf("invalid size %q", req.DiskSize)}
	case req.ISO == "":
		return missing("iso")
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
