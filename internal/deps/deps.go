// Package deps checks that the external tools the console drives are
// installed, and suggests how to install them on the host.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/javanstorm/cloudmanager/internal/config"
)

// Dependency represents a required external tool.
type Dependency struct {
	Name        string            // Tool name (e.g., "qemu-img")
	Command     string            // Command or path to look up
	Packages    map[string]string // OS -> package name mapping
	Description string            // Human-readable description
}

// Result is the outcome of checking one dependency.
type Result struct {
	Dependency Dependency
	Path       string // resolved executable, "" when missing
	Hint       string // install suggestion when missing
}

// Found reports whether the tool resolved to an executable.
func (r Result) Found() bool { return r.Path != "" }

var qemuPackages = map[string]string{
	"arch":        "qemu-full",
	"manjaro":     "qemu-full",
	"endeavouros": "qemu-full",
	"ubuntu":      "qemu-system-x86",
	"debian":      "qemu-system-x86",
	"linuxmint":   "qemu-system-x86",
	"pop":         "qemu-system-x86",
	"fedora":      "qemu-kvm",
	"rhel":        "qemu-kvm",
	"centos":      "qemu-kvm",
	"rocky":       "qemu-kvm",
	"almalinux":   "qemu-kvm",
	"opensuse":    "qemu-x86",
	"suse":        "qemu-x86",
	"macos":       "qemu",
	"windows":     "SoftwareFreedomConservancy.QEMU",
}

var qemuImgPackages = map[string]string{
	"arch":        "qemu-img",
	"manjaro":     "qemu-img",
	"endeavouros": "qemu-img",
	"ubuntu":      "qemu-utils",
	"debian":      "qemu-utils",
	"linuxmint":   "qemu-utils",
	"pop":         "qemu-utils",
	"fedora":      "qemu-img",
	"rhel":        "qemu-img",
	"centos":      "qemu-img",
	"rocky":       "qemu-img",
	"almalinux":   "qemu-img",
	"opensuse":    "qemu-tools",
	"suse":        "qemu-tools",
	"macos":       "qemu",
	"windows":     "SoftwareFreedomConservancy.QEMU",
}

var runtimePackages = map[string]map[string]string{
	"docker": {
		"arch":        "docker",
		"manjaro":     "docker",
		"endeavouros": "docker",
		"ubuntu":      "docker.io",
		"debian":      "docker.io",
		"linuxmint":   "docker.io",
		"pop":         "docker.io",
		"fedora":      "moby-engine",
		"opensuse":    "docker",
		"suse":        "docker",
		"macos":       "docker",
		"windows":     "Docker.DockerDesktop",
	},
	"podman": {
		"arch":        "podman",
		"manjaro":     "podman",
		"endeavouros": "podman",
		"ubuntu":      "podman",
		"debian":      "podman",
		"linuxmint":   "podman",
		"pop":         "podman",
		"fedora":      "podman",
		"rhel":        "podman",
		"centos":      "podman",
		"rocky":       "podman",
		"almalinux":   "podman",
		"opensuse":    "podman",
		"suse":        "podman",
		"macos":       "podman",
		"windows":     "RedHat.Podman",
	},
}

// Required lists the tools cfg names: the disk tool, the hypervisor and the
// container runtime.
func Required(cfg *config.Config) []Dependency {
	runtimeName := strings.TrimSuffix(filepath.Base(cfg.ContainerRuntime), ".exe")
	return []Dependency{
		{
			Name:        "qemu-img",
			Command:     cfg.QemuImg,
			Packages:    qemuImgPackages,
			Description: "Create qcow2 disk images",
		},
		{
			Name:        "qemu-system",
			Command:     cfg.QemuSystem,
			Packages:    qemuPackages,
			Description: "Boot virtual machines",
		},
		{
			Name:        runtimeName,
			Command:     cfg.ContainerRuntime,
			Packages:    runtimePackages[runtimeName],
			Description: "Build, pull and run container images",
		},
	}
}

// Checker resolves dependencies on the current host.
type Checker struct {
	hostOS   string
	lookPath func(string) (string, error)
}

// NewChecker creates a checker for the current host.
func NewChecker() *Checker {
	return &Checker{
		hostOS:   detectHostOS(),
		lookPath: exec.LookPath,
	}
}

// HostOS returns the detected OS family ("ubuntu", "arch", "macos", ...).
func (c *Checker) HostOS() string { return c.hostOS }

// Check resolves every dependency.
func (c *Checker) Check(deps []Dependency) []Result {
	results := make([]Result, 0, len(deps))
	for _, dep := range deps {
		r := Result{Dependency: dep}
		if path, err := c.lookPath(dep.Command); err == nil {
			r.Path = path
		} else {
			r.Hint = c.InstallHint(dep)
		}
		results = append(results, r)
	}
	return results
}

// Missing returns the results whose tool was not found.
func Missing(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Found() {
			out = append(out, r)
		}
	}
	return out
}

// InstallHint returns the package manager command that installs dep.
func (c *Checker) InstallHint(dep Dependency) string {
	pkg, ok := dep.Packages[c.hostOS]
	if !ok || pkg == "" {
		return fmt.Sprintf("install %s manually (no known package for %s)", dep.Name, c.hostOS)
	}

	switch c.hostOS {
	case "arch", "manjaro", "endeavouros":
		return "sudo pacman -S --noconfirm " + pkg
	case "ubuntu", "debian", "linuxmint", "pop":
		return "sudo apt-get install -y " + pkg
	case "fedora":
		return "sudo dnf install -y " + pkg
	case "rhel", "centos", "rocky", "almalinux":
		return "sudo yum install -y " + pkg
	case "opensuse", "suse":
		return "sudo zypper install -y " + pkg
	case "macos":
		return "brew install " + pkg
	case "windows":
		return "winget install " + pkg
	default:
		return fmt.Sprintf("install %s with your package manager", pkg)
	}
}

// detectHostOS returns the host OS family.
func detectHostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	}

	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "linux"
	}
	return parseOSRelease(string(data))
}

func parseOSRelease(content string) string {
	lines := strings.Split(content, "\n")

	for _, line := range lines {
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), "\"")
		}
	}

	// Check ID_LIKE for derivatives
	for _, line := range lines {
		if strings.HasPrefix(line, "ID_LIKE=") {
			idLike := strings.Trim(strings.TrimPrefix(line, "ID_LIKE="), "\"")
			if strings.Contains(idLike, "arch") {
				return "arch"
			}
			if strings.Contains(idLike, "debian") || strings.Contains(idLike, "ubuntu") {
				return "debian"
			}
			if strings.Contains(idLike, "fedora") || strings.Contains(idLike, "rhel") {
				return "fedora"
			}
		}
	}

	return "linux"
}
