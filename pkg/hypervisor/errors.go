package hypervisor

import "errors"

// Configuration errors
var (
	ErrInvalidCPUCount = errors.New("hypervisor: CPU count must be at least 1")
	ErrMissingMemory   = errors.New("hypervisor: memory size is required")
	ErrMissingDisk     = errors.New("hypervisor: disk path is required")
	ErrMissingISO      = errors.New("hypervisor: ISO path is required")
)
