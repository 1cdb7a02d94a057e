package events

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LogSink mirrors events into a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ev Event) {
	if s.Logger == nil {
		return
	}
	switch ev.Kind {
	case KindStatus:
		s.Logger.Info("Status changed", "source", ev.Source, "status", ev.Status)
	default:
		s.Logger.Debug("Process output", "source", ev.Source, "stream", ev.Stream.String(), "line", ev.Line)
	}
}

// WriterSink prints events as plain text lines, one per event.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer

	// ShortIDs trims handle IDs to 8 characters in the prefix.
	ShortIDs bool
}

// NewWriterSink creates a sink that writes to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, ShortIDs: true}
}

func (s *WriterSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, Format(ev, s.ShortIDs))
}

// Format renders an event the way the console prints it.
func Format(ev Event, shortID bool) string {
	src := ev.Source
	if shortID && len(src) > 8 {
		src = src[:8]
	}

	switch {
	case ev.Kind == KindStatus && src == "":
		return fmt.Sprintf("[vm] status: %s", ev.Status)
	case ev.Kind == KindStatus:
		return fmt.Sprintf("[%s] status: %s", src, ev.Status)
	case src == "":
		return ev.Line
	case ev.Stream == Stderr:
		return fmt.Sprintf("[%s] ERR: %s", src, ev.Line)
	default:
		return fmt.Sprintf("[%s] %s", src, ev.Line)
	}
}
