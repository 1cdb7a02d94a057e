package process

import (
	"errors"
	"fmt"
)

// Terminal failure reasons. A Failed handle's Err wraps exactly one of these.
var (
	ErrSpawnFailure   = errors.New("process: spawn failed")
	ErrProcessFailure = errors.New("process: exited with non-zero status")
	ErrStreamRead     = errors.New("process: output stream read failed")
	ErrCancelled      = errors.New("process: cancelled")
)

// Runner errors
var (
	ErrNotRunning = errors.New("process: handle is not running")
)

// ExitError reports a non-zero exit status. It matches ErrProcessFailure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process: exited with status %d", e.Code)
}

func (e *ExitError) Is(target error) bool {
	return target == ErrProcessFailure
}
