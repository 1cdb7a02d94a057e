//go:build darwin

package hypervisor

func defaultAccel() string {
	return "hvf"
}
