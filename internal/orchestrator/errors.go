package orchestrator

import "fmt"

// ValidationError reports a missing or malformed request field. It is
// returned before anything is spawned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid request: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// ResourceNotFoundError reports an input file that does not exist.
type ResourceNotFoundError struct {
	Resource string // "iso" or "config"
	Name     string
	Searched []string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s (searched %v)", e.Resource, e.Name, e.Searched)
}

func missing(field string) error {
	return &ValidationError{Field: field}
}
