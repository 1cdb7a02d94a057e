//go:build windows

package process

import "os"

// terminate kills the child; Windows has no SIGTERM equivalent for
// console-less processes.
func terminate(p *os.Process) error {
	return p.Kill()
}
