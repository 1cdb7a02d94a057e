package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/javanstorm/cloudmanager/internal/command"
	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
)

// DefaultWaitDelay is how long a cancelled process gets between the
// termination signal and a hard kill.
const DefaultWaitDelay = 5 * time.Second

// maxLineSize bounds a single output line.
const maxLineSize = 1 << 20

// Registrar is notified of every handle before its process is spawned.
type Registrar interface {
	Register(h *Handle)
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistrar registers every new handle with reg.
func WithRegistrar(reg Registrar) Option {
	return func(r *Runner) { r.registrar = reg }
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) { r.waitDelay = d }
}

type liveProcess struct {
	handle *Handle
	cancel context.CancelFunc
}

// Runner launches descriptors as child processes, one goroutine per launch.
// It never retries.
type Runner struct {
	sink      events.Sink
	registrar Registrar
	waitDelay time.Duration

	mu   sync.Mutex
	live map[string]*liveProcess
	wg   sync.WaitGroup
}

// NewRunner creates a Runner publishing to sink.
func NewRunner(sink events.Sink, opts ...Option) *Runner {
	if sink == nil {
		sink = events.Discard
	}
	r := &Runner{
		sink:      sink,
		waitDelay: DefaultWaitDelay,
		live:      make(map[string]*liveProcess),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute starts desc and returns immediately with a Pending handle.
// Every failure, including a missing executable, is reported through the
// handle's terminal state.
func (r *Runner) Execute(desc command.Descriptor) *Handle {
	h := newHandle(desc, r.sink)
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.live[h.id] = &liveProcess{handle: h, cancel: cancel}
	r.mu.Unlock()

	if r.registrar != nil {
		r.registrar.Register(h)
	}

	r.wg.Add(1)
	go r.run(ctx, h)

	return h
}

// Cancel terminates the process behind id and forces its handle to Failed
// with ErrCancelled. No output is published for the handle afterwards.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	lp, ok := r.live[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	if !lp.handle.finish(nil, ErrCancelled) {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	lp.cancel()

	logging.Logger.Info("Cancelled process", "handle", id, "kind", lp.handle.desc.Kind().String())
	return nil
}

// Shutdown cancels every live process and waits for them to be reaped or
// for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Cancel(id)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) forget(id string) {
	r.mu.Lock()
	lp, ok := r.live[id]
	delete(r.live, id)
	r.mu.Unlock()
	if ok {
		lp.cancel()
	}
}

func (r *Runner) run(ctx context.Context, h *Handle) {
	defer r.wg.Done()
	defer r.forget(h.id)

	desc := h.desc
	log := logging.Logger.With("handle", h.id, "kind", desc.Kind().String())

	cmd := exec.CommandContext(ctx, desc.Program(), desc.Args()...)
	cmd.Dir = desc.Dir()
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = r.waitDelay

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	h.note("> " + desc.String())

	if err := cmd.Start(); err != nil {
		outW.Close()
		errW.Close()
		log.Warn("Failed to spawn process", "program", desc.Program(), "error", err)
		h.finish(nil, fmt.Errorf("%w: %w", ErrSpawnFailure, err))
		return
	}

	h.markRunning(cmd.Process.Pid)
	log.Debug("Spawned process", "pid", cmd.Process.Pid, "command", desc.String())

	var g errgroup.Group
	g.Go(func() error { return drain(h, outR, events.Stdout) })
	g.Go(func() error { return drain(h, errR, events.Stderr) })

	waitErr := cmd.Wait()
	outW.Close()
	errW.Close()
	readErr := g.Wait()

	exitCode := cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError

	switch {
	case waitErr == nil && readErr == nil:
		h.finish(&exitCode, nil)
	case errors.As(waitErr, &exitErr):
		h.finish(&exitCode, &ExitError{Code: exitCode})
	case readErr != nil:
		h.finish(&exitCode, fmt.Errorf("%w: %w", ErrStreamRead, readErr))
	default:
		// e.g. exec.ErrWaitDelay when a child leaves its output pipes open.
		h.finish(&exitCode, fmt.Errorf("%w: %w", ErrProcessFailure, waitErr))
	}

	log.Debug("Process exited", "exit_code", exitCode, "state", h.State().String())
}

// drain splits r into lines and records them on h. After a read error it
// keeps consuming r so the child never blocks on a full pipe.
func drain(h *Handle, r io.Reader, stream events.Stream) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		h.appendLine(stream, sc.Text())
	}
	if err := sc.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("read %s: %w", stream, err)
	}
	return nil
}
