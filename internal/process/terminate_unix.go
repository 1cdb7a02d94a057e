//go:build !windows

package process

import (
	"os"
	"syscall"
)

// terminate asks the child to exit. exec escalates to Kill after WaitDelay.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
