// Package events carries process output and status changes from the
// orchestration layer to whichever front end is attached.
package events

import (
	"sync"
	"time"
)

// Kind distinguishes output lines from status changes.
type Kind int

const (
	KindLine Kind = iota
	KindStatus
)

// Stream identifies where a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
	System // emitted by the console itself, not the child process
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "system"
	}
}

// Event is one published line or status change.
type Event struct {
	Time   time.Time
	Kind   Kind
	Source string // handle ID, or "" for session-level events
	Stream Stream
	Line   string
	Status string // set for KindStatus
}

// Sink consumes events. Publish must not block for long: it is called from
// the goroutines that drain child-process pipes.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Line builds a line event stamped with the current time.
func Line(source string, stream Stream, line string) Event {
	return Event{Time: time.Now(), Kind: KindLine, Source: source, Stream: stream, Line: line}
}

// Status builds a status event.
func Status(source, status string) Event {
	return Event{Time: time.Now(), Kind: KindStatus, Source: source, Stream: System, Status: status}
}

type multi []Sink

func (m multi) Publish(ev Event) {
	for _, s := range m {
		s.Publish(ev)
	}
}

// Multi publishes each event to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Recorder keeps every event in memory. Useful for tests and for late
// subscribers that want the backlog.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Lines returns the recorded line texts for source.
func (r *Recorder) Lines(source string) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == KindLine && ev.Source == source {
			out = append(out, ev.Line)
		}
	}
	return out
}

// Statuses returns the recorded status values in publish order.
func (r *Recorder) Statuses() []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == KindStatus {
			out = append(out, ev.Status)
		}
	}
	return out
}

// StatusesOf returns the recorded status values for source. The VM session
// publishes with an empty source.
func (r *Recorder) StatusesOf(source string) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == KindStatus && ev.Source == source {
			out = append(out, ev.Status)
		}
	}
	return out
}
