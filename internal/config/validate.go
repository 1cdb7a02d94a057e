package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = warning only
}

// qemuSize matches QEMU size notation: 512, 512M, 4G, 1.5T.
var qemuSize = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[KMGTkmgt]?$`)

// ValidSize reports whether s is in QEMU size notation.
func ValidSize(s string) bool {
	return qemuSize.MatchString(s)
}

// Validate checks the launch defaults and tool settings.
func Validate(c *Config) []ValidationError {
	var errors []ValidationError

	if c.CPUs < 1 {
		errors = append(errors, ValidationError{
			Field:   "cpus",
			Message: fmt.Sprintf("must be at least 1, got %d", c.CPUs),
			Fatal:   true,
		})
	}

	if !ValidSize(c.RAM) {
		errors = append(errors, ValidationError{
			Field:   "ram",
			Message: fmt.Sprintf("%q is not a QEMU size (e.g. 4G)", c.RAM),
			Fatal:   true,
		})
	}

	if !ValidSize(c.DiskSize) {
		errors = append(errors, ValidationError{
			Field:   "disk_size",
			Message: fmt.Sprintf("%q is not a QEMU size (e.g. 20G)", c.DiskSize),
			Fatal:   true,
		})
	}

	if c.DiskName == "" || strings.ContainsAny(c.DiskName, `/\`) {
		errors = append(errors, ValidationError{
			Field:   "disk_name",
			Message: "must be a plain file name inside disk_dir",
			Fatal:   true,
		})
	}

	switch c.ContainerRuntime {
	case "docker", "podman":
	default:
		errors = append(errors, ValidationError{
			Field:   "container_runtime",
			Message: fmt.Sprintf("%q is untested; docker and podman are supported", c.ContainerRuntime),
			Fatal:   false,
		})
	}

	return errors
}

// HasFatal reports whether any error in errs is fatal.
func HasFatal(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration warnings:\n")
	for _, e := range errors {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}
