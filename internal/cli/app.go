package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/javanstorm/cloudmanager/internal/config"
	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/orchestrator"
	"github.com/javanstorm/cloudmanager/internal/process"
	"github.com/javanstorm/cloudmanager/internal/session"
	"github.com/javanstorm/cloudmanager/internal/timing"
)

// shutdownTimeout bounds how long exit waits for cancelled processes.
const shutdownTimeout = 10 * time.Second

// app wires one console instance: every event goes to the broker, the log
// and any extra sinks the command asks for.
type app struct {
	cfg      *config.Config
	broker   *events.Broker
	registry *session.Registry
	runner   *process.Runner
	orch     *orchestrator.Orchestrator
	timer    *timing.Timer
}

func newApp(cfg *config.Config, extra ...events.Sink) *app {
	a := &app{cfg: cfg, broker: events.NewBroker()}

	sinks := []events.Sink{a.broker, events.LogSink{Logger: logging.Logger}}
	if timing.Enabled() {
		a.timer = timing.New()
		sinks = append(sinks, a.timer.Sink())
	}
	sink := events.Multi(append(sinks, extra...)...)

	a.registry = session.NewRegistry(sink)
	a.runner = process.NewRunner(sink, process.WithRegistrar(a.registry))
	a.orch = orchestrator.New(cfg, a.runner, a.registry)
	return a
}

// shutdown cancels whatever is still running and closes the broker.
func (a *app) shutdown(w io.Writer) {
	if active := a.registry.ListActive(); len(active) > 0 {
		logging.Logger.Info("Stopping processes on exit", "count", len(active))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.runner.Shutdown(ctx); err != nil {
		logging.Logger.Warn("Processes still exiting", "error", err)
	} else {
		a.orch.Wait()
	}
	a.broker.Close()

	if a.timer != nil {
		a.timer.Report(w)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// waitForeground blocks until h is terminal. An interrupt cancels h and
// keeps waiting for the terminal state.
func (a *app) waitForeground(ctx context.Context, h *process.Handle) error {
	select {
	case <-h.Done():
	case <-ctx.Done():
		if err := a.orch.Cancel(h.ID()); err != nil && !errors.Is(err, process.ErrNotRunning) {
			return err
		}
		<-h.Done()
	}

	if err := h.Err(); err != nil {
		return fmt.Errorf("%s: %w", h.Descriptor().Kind(), err)
	}
	return nil
}

// runForeground prints every event to w while start's handle runs.
func runForeground(cfg *config.Config, w io.Writer, start func(ctx context.Context, a *app) (*process.Handle, error)) error {
	a := newApp(cfg, events.NewWriterSink(w))
	defer a.shutdown(w)

	ctx, stop := signalContext()
	defer stop()

	h, err := start(ctx, a)
	if err != nil {
		return err
	}
	return a.waitForeground(ctx, h)
}
