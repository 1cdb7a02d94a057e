//go:build windows

package hypervisor

// defaultAccel uses the Windows Hypervisor Platform. kernel-irqchip must be
// off for WHPX to boot most installer ISOs.
func defaultAccel() string {
	return "whpx,kernel-irqchip=off"
}
