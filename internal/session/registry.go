// Package session keeps the in-memory view of everything the console has
// launched: process handles and the VM session. Nothing here is persisted;
// a restarted console starts empty.
package session

import (
	"fmt"
	"sync"

	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/process"
)

// Registry is the single owner of shared console state. All mutations go
// through one mutex so runner completions and UI intents never interleave.
type Registry struct {
	sink events.Sink

	mu      sync.RWMutex
	handles map[string]*process.Handle
	order   []string
	vm      VMSession
}

// Compile-time interface verification
var _ process.Registrar = (*Registry)(nil)

// NewRegistry creates an empty registry. VM status changes are published to
// sink.
func NewRegistry(sink events.Sink) *Registry {
	if sink == nil {
		sink = events.Discard
	}
	return &Registry{
		sink:    sink,
		handles: make(map[string]*process.Handle),
		vm:      VMSession{Status: VMStopped},
	}
}

// Register adds a handle. Registering the same handle twice is a no-op.
func (r *Registry) Register(h *process.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[h.ID()]; ok {
		return
	}
	r.handles[h.ID()] = h
	r.order = append(r.order, h.ID())
}

// Lookup returns the handle with id.
func (r *Registry) Lookup(id string) (*process.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

// List returns every handle in registration order.
func (r *Registry) List() []*process.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*process.Handle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.handles[id])
	}
	return out
}

// ListActive returns the handles still Pending or Running, in registration
// order.
func (r *Registry) ListActive() []*process.Handle {
	var out []*process.Handle
	for _, h := range r.List() {
		if !h.State().Terminal() {
			out = append(out, h)
		}
	}
	return out
}

// VM returns a copy of the VM session.
func (r *Registry) VM() VMSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vm
}

// ClaimVM atomically replaces the VM session with s unless the current
// session is busy, in which case it returns ErrAlreadyRunning.
func (r *Registry) ClaimVM(s VMSession) error {
	r.mu.Lock()
	if r.vm.Status.Busy() {
		status := r.vm.Status
		r.mu.Unlock()
		return fmt.Errorf("%w (status %s)", ErrAlreadyRunning, status)
	}
	r.vm = s
	r.mu.Unlock()

	r.publish(s.Status)
	return nil
}

// SetVMStatus unconditionally sets the VM status. err is kept for VMError.
func (r *Registry) SetVMStatus(status VMStatus, err error) {
	r.mu.Lock()
	r.vm.Status = status
	r.vm.Err = err
	r.mu.Unlock()

	r.publish(status)
}

// SetVMHandles records the process IDs for the current launch. Empty
// arguments leave the existing value alone.
func (r *Registry) SetVMHandles(diskHandle, bootHandle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if diskHandle != "" {
		r.vm.DiskHandle = diskHandle
	}
	if bootHandle != "" {
		r.vm.BootHandle = bootHandle
	}
}

// TransitionVM sets the status only if bootHandle still owns the session and
// the session has not already moved past status. It reports whether the
// status changed.
func (r *Registry) TransitionVM(bootHandle string, status VMStatus, err error) bool {
	r.mu.Lock()
	if r.vm.BootHandle != bootHandle || !r.vm.Status.Busy() {
		r.mu.Unlock()
		return false
	}
	if status == VMRunning && r.vm.Status != VMBooting {
		r.mu.Unlock()
		return false
	}
	r.vm.Status = status
	r.vm.Err = err
	r.mu.Unlock()

	r.publish(status)
	return true
}

func (r *Registry) publish(status VMStatus) {
	logging.Logger.Info("VM status changed", "status", status.String())
	r.sink.Publish(events.Status("", status.String()))
}
