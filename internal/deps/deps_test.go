package deps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanstorm/cloudmanager/internal/config"
)

func TestParseOSRelease(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"ubuntu", "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n", "ubuntu"},
		{"quoted id", "ID=\"fedora\"\n", "fedora"},
		{"id like only", "NAME=Custom\nID_LIKE=\"rhel centos\"\n", "fedora"},
		{"unknown", "NAME=Nothing\n", "linux"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOSRelease(tt.content))
		})
	}
}

func TestCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	c := &Checker{
		hostOS: "ubuntu",
		lookPath: func(name string) (string, error) {
			if name == "docker" {
				return "/usr/bin/docker", nil
			}
			return "", errors.New("not found")
		},
	}

	results := c.Check(Required(cfg))
	require.Len(t, results, 3)

	missing := Missing(results)
	require.Len(t, missing, 2)
	assert.Equal(t, "qemu-img", missing[0].Dependency.Name)
	assert.Equal(t, "sudo apt-get install -y qemu-utils", missing[0].Hint)
	assert.Equal(t, "sudo apt-get install -y qemu-system-x86", missing[1].Hint)

	assert.True(t, results[2].Found())
	assert.Equal(t, "/usr/bin/docker", results[2].Path)
	assert.Empty(t, results[2].Hint)
}

func TestInstallHintPodmanOnMac(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ContainerRuntime = "/opt/homebrew/bin/podman"

	c := &Checker{hostOS: "macos"}
	deps := Required(cfg)
	assert.Equal(t, "podman", deps[2].Name)
	assert.Equal(t, "brew install podman", c.InstallHint(deps[2]))
}

func TestInstallHintUnknownHost(t *testing.T) {
	c := &Checker{hostOS: "plan9"}
	hint := c.InstallHint(Dependency{Name: "qemu-img", Packages: qemuImgPackages})
	assert.Contains(t, hint, "manually")
}
