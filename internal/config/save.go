package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings returns the configuration as a key/value map using the
// config.yaml key names.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"base_dir":          c.BaseDir,
		"iso_dir":           c.ISODir,
		"disk_dir":          c.DiskDir,
		"launch_dir":        c.LaunchDir,
		"disk_name":         c.DiskName,
		"ram":               c.RAM,
		"cpus":              c.CPUs,
		"disk_size":         c.DiskSize,
		"qemu_img":          c.QemuImg,
		"qemu_system":       c.QemuSystem,
		"accel":             c.Accel,
		"container_runtime": c.ContainerRuntime,
		"log_level":         c.LogLevel,
		"log_format":        c.LogFormat,
		"log_file":          c.LogFile,
	}
}

// Save writes c to path as YAML. An existing file is only replaced when
// overwrite is set.
func Save(c *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for k, val := range c.Settings() {
		v.Set(k, val)
	}
	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultFile is where `config init` writes when no --config is given.
func DefaultFile() (string, error) {
	paths, err := GetPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(paths.DataDir, "config.yaml"), nil
}
