package session

// VMStatus represents the VM session lifecycle.
//
//	Stopped -> CreatingDisk -> Booting -> Running -> Stopped
//
// Any step may move to Error instead. Error and Stopped both accept a new
// launch.
type VMStatus int

const (
	VMStopped VMStatus = iota
	VMCreatingDisk
	VMBooting
	VMRunning
	VMError
)

func (s VMStatus) String() string {
	switch s {
	case VMStopped:
		return "stopped"
	case VMCreatingDisk:
		return "creating-disk"
	case VMBooting:
		return "booting"
	case VMRunning:
		return "running"
	case VMError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a launch is in progress or the VM is up.
func (s VMStatus) Busy() bool {
	return s == VMCreatingDisk || s == VMBooting || s == VMRunning
}

// VMSession is the single VM managed by a console instance.
type VMSession struct {
	RAM      string
	CPUs     int
	DiskPath string
	DiskSize string
	ISOPath  string
	Status   VMStatus

	// DiskHandle and BootHandle are the IDs of the processes spawned for the
	// current launch ("" when not spawned).
	DiskHandle string
	BootHandle string

	// Err is the reason for VMError.
	Err error
}
