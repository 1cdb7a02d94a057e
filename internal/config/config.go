package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all cloudmanager configuration.
type Config struct {
	// BaseDir is the root for data/iso, data/disks and config/.
	BaseDir string `mapstructure:"base_dir"`

	// ISODir holds installer images. Defaults to <BaseDir>/data/iso.
	ISODir string `mapstructure:"iso_dir"`

	// DiskDir holds qcow2 disks. Defaults to <BaseDir>/data/disks.
	DiskDir string `mapstructure:"disk_dir"`

	// LaunchDir holds JSON launch files. Defaults to <BaseDir>/config.
	LaunchDir string `mapstructure:"launch_dir"`

	// DiskName is the disk file name inside DiskDir.
	DiskName string `mapstructure:"disk_name"`

	// RAM is the default guest memory in QEMU notation.
	RAM string `mapstructure:"ram"`

	// CPUs is the default virtual CPU count.
	CPUs int `mapstructure:"cpus"`

	// DiskSize is the default size for newly created disks.
	DiskSize string `mapstructure:"disk_size"`

	// QemuImg and QemuSystem name the QEMU executables.
	QemuImg    string `mapstructure:"qemu_img"`
	QemuSystem string `mapstructure:"qemu_system"`

	// Accel overrides the platform accelerator ("none" disables -accel).
	Accel string `mapstructure:"accel"`

	// ContainerRuntime is the container CLI ("docker" or "podman").
	ContainerRuntime string `mapstructure:"container_runtime"`

	// LogLevel, LogFormat and LogFile configure internal/logging.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	paths, err := GetPaths()
	if err != nil {
		// Fallback if we can't determine home directory
		paths = &Paths{DataDir: filepath.Join(".", ".cloudmanager")}
	}

	cfg := &Config{
		BaseDir:          paths.DataDir,
		DiskName:         "vm_disk.img",
		RAM:              "4G",
		CPUs:             2,
		DiskSize:         "20G",
		QemuImg:          "qemu-img",
		QemuSystem:       "qemu-system-x86_64",
		ContainerRuntime: "docker",
		LogFormat:        "text",
	}
	cfg.deriveDirs()
	return cfg
}

// Global holds the loaded configuration.
var Global *Config

// Load reads configuration from defaults, an optional config.yaml and
// CLOUDMANAGER_* environment variables, in increasing priority. When file
// is non-empty it must exist.
func Load(file string) (*Config, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to determine paths: %w", err)
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("base_dir", defaults.BaseDir)
	v.SetDefault("iso_dir", "")
	v.SetDefault("disk_dir", "")
	v.SetDefault("launch_dir", "")
	v.SetDefault("disk_name", defaults.DiskName)
	v.SetDefault("ram", defaults.RAM)
	v.SetDefault("cpus", defaults.CPUs)
	v.SetDefault("disk_size", defaults.DiskSize)
	v.SetDefault("qemu_img", defaults.QemuImg)
	v.SetDefault("qemu_system", defaults.QemuSystem)
	v.SetDefault("accel", "")
	v.SetDefault("container_runtime", defaults.ContainerRuntime)
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("log_file", "")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(paths.DataDir)
		v.AddConfigPath(paths.ConfigDir)
	}

	// Environment variable support: CLOUDMANAGER_RAM, CLOUDMANAGER_CPUS, etc.
	v.SetEnvPrefix("CLOUDMANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK - we use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.deriveDirs()

	return cfg, nil
}

func (c *Config) deriveDirs() {
	if c.ISODir == "" {
		c.ISODir = filepath.Join(c.BaseDir, "data", "iso")
	}
	if c.DiskDir == "" {
		c.DiskDir = filepath.Join(c.BaseDir, "data", "disks")
	}
	if c.LaunchDir == "" {
		c.LaunchDir = filepath.Join(c.BaseDir, "config")
	}
}

// DiskPath returns the full path of the configured disk.
func (c *Config) DiskPath() string {
	return filepath.Join(c.DiskDir, c.DiskName)
}
