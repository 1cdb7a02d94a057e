package command

// Kind classifies a descriptor by the operation it performs.
type Kind int

const (
	KindDiskCreate Kind = iota
	KindVMBoot
	KindImageBuild
	KindImagePull
	KindImageRun
	KindImageSearch
	KindContainerStop
	KindContainerList
	KindImageList
	KindVersionCheck
)

func (k Kind) String() string {
	switch k {
	case KindDiskCreate:
		return "disk-create"
	case KindVMBoot:
		return "vm-boot"
	case KindImageBuild:
		return "build"
	case KindImagePull:
		return "pull"
	case KindImageRun:
		return "run"
	case KindImageSearch:
		return "search"
	case KindContainerStop:
		return "stop"
	case KindContainerList:
		return "ps"
	case KindImageList:
		return "images"
	case KindVersionCheck:
		return "version"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name (as returned by String) back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindDiskCreate; k <= KindVersionCheck; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Duration is the expected run-time class of a descriptor.
type Duration int

const (
	// Short commands finish in seconds (listing, searching, disk creation).
	Short Duration = iota
	// Long commands have no useful upper bound (VM boot, pull, build).
	Long
)

func (d Duration) String() string {
	if d == Long {
		return "long"
	}
	return "short"
}

// Duration returns the expected run-time class for k.
func (k Kind) Duration() Duration {
	switch k {
	case KindVMBoot, KindImageBuild, KindImagePull, KindImageRun:
		return Long
	default:
		return Short
	}
}

// IsContainer reports whether k is a container-runtime operation.
func (k Kind) IsContainer() bool {
	return k >= KindImageBuild && k <= KindVersionCheck
}
