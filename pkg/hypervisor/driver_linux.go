//go:build linux

package hypervisor

import "os"

// defaultAccel uses KVM when /dev/kvm is usable and falls back to TCG.
func defaultAccel() string {
	f, err := os.OpenFile("/dev/kvm", os.O_RDWR, 0)
	if err != nil {
		return "tcg"
	}
	f.Close()
	return "kvm"
}
