// Package process launches external commands, streams their output and
// tracks each launch through a Handle.
package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/events"
)

// State is the lifecycle state of a Handle. Transitions only move forward:
// Pending -> Running -> Succeeded|Failed, or Pending -> Failed.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Line is one captured output line.
type Line struct {
	Time   time.Time
	Stream events.Stream
	Text   string
}

// Handle tracks one launched descriptor.
type Handle struct {
	id   string
	desc command.Descriptor
	sink events.Sink

	mu        sync.Mutex
	state     State
	startTime time.Time
	endTime   time.Time
	pid       int
	exitCode  *int
	err       error
	output    []Line

	started chan struct{} // closed on Running or terminal
	done    chan struct{} // closed on terminal
}

func newHandle(desc command.Descriptor, sink events.Sink) *Handle {
	if sink == nil {
		sink = events.Discard
	}
	return &Handle{
		id:      uuid.NewString(),
		desc:    desc,
		sink:    sink,
		state:   Pending,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the opaque handle identifier.
func (h *Handle) ID() string { return h.id }

// Descriptor returns the descriptor that spawned the handle.
func (h *Handle) Descriptor() command.Descriptor { return h.desc }

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StartTime returns when the process was spawned (zero while Pending).
func (h *Handle) StartTime() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startTime
}

// EndTime returns when the handle became terminal (zero until then).
func (h *Handle) EndTime() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endTime
}

// PID returns the OS process ID, or 0 if the process never started.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// ExitCode returns the exit status once known.
func (h *Handle) ExitCode() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exitCode == nil {
		return 0, false
	}
	return *h.exitCode, true
}

// Err returns the failure reason of a Failed handle, nil otherwise.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Output returns a copy of every line captured so far.
func (h *Handle) Output() []Line {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Line(nil), h.output...)
}

// Started is closed once the handle leaves Pending.
func (h *Handle) Started() <-chan struct{} { return h.started }

// Done is closed once the handle is terminal.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the handle is terminal or ctx ends. It returns the
// handle's failure reason, or ctx.Err() if ctx ended first.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String summarises the handle for logs and status views.
func (h *Handle) String() string {
	return fmt.Sprintf("%s %s (%s)", h.id[:8], h.desc.Kind(), h.State())
}

// markRunning moves Pending -> Running. It reports false if the handle
// already moved on (e.g. cancelled before spawn completed).
func (h *Handle) markRunning(pid int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Pending {
		return false
	}
	h.state = Running
	h.pid = pid
	h.startTime = time.Now()
	h.sink.Publish(events.Status(h.id, Running.String()))
	close(h.started)
	return true
}

// appendLine records and publishes a line unless the handle is terminal.
// Holding the lock across Publish keeps per-handle delivery order equal to
// capture order.
func (h *Handle) appendLine(stream events.Stream, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return
	}
	ev := events.Line(h.id, stream, text)
	h.output = append(h.output, Line{Time: ev.Time, Stream: stream, Text: text})
	h.sink.Publish(ev)
}

// note publishes a system line without recording it as process output.
func (h *Handle) note(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return
	}
	h.sink.Publish(events.Line(h.id, events.System, text))
}

// finish moves the handle to a terminal state and publishes the sentinel
// line. Only the first call has any effect.
func (h *Handle) finish(exitCode *int, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return false
	}

	if h.state == Pending {
		close(h.started)
	}
	if err == nil {
		h.state = Succeeded
	} else {
		h.state = Failed
		h.err = err
	}
	h.exitCode = exitCode
	h.endTime = time.Now()

	h.sink.Publish(events.Line(h.id, events.System, sentinel(exitCode, err)))
	h.sink.Publish(events.Status(h.id, h.state.String()))
	close(h.done)
	return true
}

func sentinel(exitCode *int, err error) string {
	switch {
	case err == nil:
		return "--- done ---"
	case exitCode != nil:
		return fmt.Sprintf("--- failed: exit status %d ---", *exitCode)
	default:
		return fmt.Sprintf("--- failed: %v ---", err)
	}
}
