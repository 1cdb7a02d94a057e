package hypervisor

import "strconv"

// AccelNone disables the -accel flag entirely.
const AccelNone = "none"

// VMConfig holds the parameters of one QEMU boot.
type VMConfig struct {
	// Memory is the RAM size in QEMU notation ("4G", "2048M").
	Memory string

	// CPUs is the number of virtual CPUs.
	CPUs int

	// DiskPath is the qcow2 disk attached as the first hard disk.
	DiskPath string

	// ISOPath is the installer image attached as CD-ROM and booted first.
	ISOPath string

	// ExtraArgs are appended verbatim after the generated arguments.
	ExtraArgs []string
}

// Validate performs basic validation of the configuration.
func (c *VMConfig) Validate() error {
	if c.CPUs < 1 {
		return ErrInvalidCPUCount
	}
	if c.Memory == "" {
		return ErrMissingMemory
	}
	if c.DiskPath == "" {
		return ErrMissingDisk
	}
	if c.ISOPath == "" {
		return ErrMissingISO
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
