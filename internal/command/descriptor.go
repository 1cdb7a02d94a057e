// Package command describes external invocations as immutable values.
//
// A Descriptor is an argument vector, never a shell string: paths with
// spaces travel as single arguments and String only quotes them for display.
package command

import (
	"github.com/kballard/go-shellquote"

	"github.com/javanstorm/cloudmanager/pkg/hypervisor"
)

// Descriptor describes one external invocation. The zero value is unusable;
// build descriptors with New or the kind-specific constructors.
type Descriptor struct {
	program string
	args    []string
	dir     string
	kind    Kind
}

// New builds a descriptor. args is copied.
func New(kind Kind, program string, args []string, dir string) Descriptor {
	return Descriptor{
		program: program,
		args:    append([]string(nil), args...),
		dir:     dir,
		kind:    kind,
	}
}

// Program returns the executable name or path.
func (d Descriptor) Program() string { return d.program }

// Args returns a copy of the argument list.
func (d Descriptor) Args() []string { return append([]string(nil), d.args...) }

// Dir returns the working directory ("" inherits the console's).
func (d Descriptor) Dir() string { return d.dir }

// Kind returns the operation kind.
func (d Descriptor) Kind() Kind { return d.kind }

// String renders the invocation as a shell-quoted command line.
func (d Descriptor) String() string {
	return shellquote.Join(append([]string{d.program}, d.args...)...)
}

// DiskCreate creates a qcow2 disk at path.
func DiskCreate(driver hypervisor.Driver, path, size string) Descriptor {
	inv := driver.DiskCommand(path, size)
	return New(KindDiskCreate, inv.Program, inv.Args, "")
}

// VMBoot boots cfg through the hypervisor CLI.
func VMBoot(driver hypervisor.Driver, cfg *hypervisor.VMConfig) (Descriptor, error) {
	inv, err := driver.BootCommand(cfg)
	if err != nil {
		return Descriptor{}, err
	}
	return New(KindVMBoot, inv.Program, inv.Args, ""), nil
}
