// Package hypervisor builds QEMU command lines for disk creation and VM boot.
// Accelerator selection is platform-specific (see driver_*.go).
package hypervisor

import "runtime"

// Driver turns VM parameters into argument vectors for the QEMU tools.
// Nothing is executed here; callers hand the result to a process runner.
type Driver interface {
	Info() Info

	// DiskCommand returns the invocation that creates a qcow2 disk image.
	DiskCommand(path, size string) Invocation

	// BootCommand returns the invocation that boots cfg from its ISO.
	BootCommand(cfg *VMConfig) (Invocation, error)
}

// Invocation is a program plus its discrete arguments.
type Invocation struct {
	Program string
	Args    []string
}

// Tools names the QEMU executables. Empty fields fall back to defaults.
type Tools struct {
	QemuImg    string
	QemuSystem string
}

// Info contains driver metadata.
type Info struct {
	Name  string // always "qemu"
	Accel string // "kvm", "hvf", "whpx,kernel-irqchip=off", "tcg" or ""
	Arch  string // host GOARCH
}

const (
	DefaultQemuImg    = "qemu-img"
	DefaultQemuSystem = "qemu-system-x86_64"
)

type qemuDriver struct {
	tools Tools
	accel string
}

// NewDriver returns a QEMU driver. An empty accel selects the platform
// default accelerator.
func NewDriver(tools Tools, accel string) Driver {
	if tools.QemuImg == "" {
		tools.QemuImg = DefaultQemuImg
	}
	if tools.QemuSystem == "" {
		tools.QemuSystem = DefaultQemuSystem
	}
	if accel == "" {
		accel = defaultAccel()
	}
	return &qemuDriver{tools: tools, accel: accel}
}

func (d *qemuDriver) Info() Info {
	return Info{
		Name:  "qemu",
		Accel: d.accel,
		Arch:  runtime.GOARCH,
	}
}

func (d *qemuDriver) DiskCommand(path, size string) Invocation {
	return Invocation{
		Program: d.tools.QemuImg,
		Args:    []string{"create", "-f", "qcow2", path, size},
	}
}

func (d *qemuDriver) BootCommand(cfg *VMConfig) (Invocation, error) {
	if err := cfg.Validate(); err != nil {
		return Invocation{}, err
	}

	var args []string
	if d.accel != "" && d.accel != AccelNone {
		args = append(args, "-accel", d.accel)
	}
	args = append(args,
		"-m", cfg.Memory,
		"-smp", itoa(cfg.CPUs),
		"-hda", cfg.DiskPath,
		"-boot", "d",
		"-cdrom", cfg.ISOPath,
	)
	args = append(args, cfg.ExtraArgs...)

	return Invocation{Program: d.tools.QemuSystem, Args: args}, nil
}
