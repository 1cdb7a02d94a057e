// Package timing measures how long each phase of a VM launch takes.
// Enable it with CLOUDMANAGER_TIMING=1.
package timing

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/javanstorm/cloudmanager/internal/events"
)

// EnvVar turns launch timing on when set to "1".
const EnvVar = "CLOUDMANAGER_TIMING"

// Enabled reports whether launch timing was requested.
func Enabled() bool {
	return os.Getenv(EnvVar) == "1"
}

// Timer tracks durations of named phases. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	start  time.Time
	last   time.Time
	phases []Phase
}

// Phase represents a timed phase with name and duration.
type Phase struct {
	Name     string
	Duration time.Duration
}

// New creates a new Timer starting from now.
func New() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// Mark records a named phase ending now, measured from the previous mark.
func (t *Timer) Mark(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.phases = append(t.phases, Phase{Name: name, Duration: now.Sub(t.last)})
	t.last = now
}

// Total returns the total elapsed time since timer creation.
func (t *Timer) Total() time.Duration {
	return time.Since(t.start)
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Phase(nil), t.phases...)
}

// Report prints a timing report to the given writer.
func (t *Timer) Report(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Launch Timing ===")
	for _, p := range t.Phases() {
		fmt.Fprintf(w, "  %-20s %s\n", p.Name+":", formatDuration(p.Duration))
	}
	fmt.Fprintf(w, "  %-20s %s\n", "TOTAL:", formatDuration(t.Total()))
	fmt.Fprintln(w, "=====================")
}

// Sink returns an event sink that closes a phase every time the VM session
// changes status. The phase is named after the status being left, so a
// launch yields "creating-disk", "booting" and so on.
func (t *Timer) Sink() events.Sink {
	var mu sync.Mutex
	current := "launch"
	return events.SinkFunc(func(ev events.Event) {
		if ev.Kind != events.KindStatus || ev.Source != "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		t.Mark(current)
		current = ev.Status
	})
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
