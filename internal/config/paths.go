// Package config provides configuration management for cloudmanager.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds platform-specific directory paths for cloudmanager.
type Paths struct {
	// ConfigDir is the directory searched for config.yaml after DataDir.
	// macOS: ~/Library/Application Support/CloudManager
	// Linux: ~/.config/cloudmanager (or XDG_CONFIG_HOME)
	ConfigDir string

	// DataDir is the base directory for ISOs, disks and launch files.
	// All platforms: ~/.cloudmanager
	DataDir string
}

// GetPaths returns platform-aware paths for cloudmanager.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{DataDir: filepath.Join(home, ".cloudmanager")}

	switch runtime.GOOS {
	case "darwin":
		p.ConfigDir = filepath.Join(home, "Library", "Application Support", "CloudManager")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			p.ConfigDir = filepath.Join(appData, "CloudManager")
		} else {
			p.ConfigDir = filepath.Join(home, "AppData", "Roaming", "CloudManager")
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			p.ConfigDir = filepath.Join(xdgConfig, "cloudmanager")
		} else {
			p.ConfigDir = filepath.Join(home, ".config", "cloudmanager")
		}
	}

	return p, nil
}

// EnsureDirectories creates the ISO, disk and launch-file directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.ISODir, c.DiskDir, c.LaunchDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
