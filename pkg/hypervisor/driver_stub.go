//go:build !darwin && !linux && !windows

package hypervisor

// defaultAccel leaves acceleration to QEMU on other platforms.
func defaultAccel() string {
	return ""
}
