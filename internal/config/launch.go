package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ErrLaunchFileNotFound is returned when neither the literal path nor the
// launch directory contains the requested file.
var ErrLaunchFileNotFound = errors.New("config: launch file not found")

// LaunchFile is a saved set of VM launch parameters.
//
//	{"ram": "4G", "cpu": 2, "disk_size": "20G", "disk_name": "vm_disk.img", "iso_path": "ubuntu.iso"}
type LaunchFile struct {
	RAM      string `mapstructure:"ram"`
	CPUs     int    `mapstructure:"cpu"`
	DiskSize string `mapstructure:"disk_size"`
	DiskName string `mapstructure:"disk_name"`
	ISOPath  string `mapstructure:"iso_path"`

	// Path is where the file was found.
	Path string `mapstructure:"-"`
}

// ResolveLaunchFile returns name if it exists, otherwise launchDir/name.
func ResolveLaunchFile(name, launchDir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no file name given", ErrLaunchFileNotFound)
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	candidate := filepath.Join(launchDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: checked %s and %s", ErrLaunchFileNotFound, name, candidate)
}

// LoadLaunchFile reads a JSON launch file. Missing keys take the console's
// built-in launch defaults.
func LoadLaunchFile(name, launchDir string) (*LaunchFile, error) {
	path, err := ResolveLaunchFile(name, launchDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("ram", "4G")
	v.SetDefault("cpu", 2)
	v.SetDefault("disk_size", "20G")
	v.SetDefault("disk_name", "vm_disk.img")
	v.SetDefault("iso_path", "")

	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read launch file %s: %w", path, err)
	}

	lf := &LaunchFile{}
	if err := v.Unmarshal(lf); err != nil {
		return nil, fmt.Errorf("parse launch file %s: %w", path, err)
	}
	lf.Path = path

	return lf, nil
}
