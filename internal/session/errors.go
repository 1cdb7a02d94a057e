package session

import "errors"

var (
	ErrNotFound       = errors.New("session: handle not found")
	ErrAlreadyRunning = errors.New("session: VM is already running")
)
