package timing

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanstorm/cloudmanager/internal/events"
)

func phaseNames(timer *Timer) []string {
	var names []string
	for _, p := range timer.Phases() {
		names = append(names, p.Name)
	}
	return names
}

func TestMarkMeasuresFromPreviousMark(t *testing.T) {
	timer := New()

	time.Sleep(10 * time.Millisecond)
	timer.Mark("creating-disk")
	time.Sleep(15 * time.Millisecond)
	timer.Mark("booting")

	phases := timer.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "creating-disk", phases[0].Name)
	assert.GreaterOrEqual(t, phases[0].Duration, 10*time.Millisecond)
	assert.Equal(t, "booting", phases[1].Name)
	assert.GreaterOrEqual(t, phases[1].Duration, 15*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Total(), phases[0].Duration+phases[1].Duration)
}

func TestPhasesReturnsCopy(t *testing.T) {
	timer := New()
	timer.Mark("launch")

	phases := timer.Phases()
	phases[0].Name = "changed"
	assert.Equal(t, []string{"launch"}, phaseNames(timer))
}

func TestConcurrentMarks(t *testing.T) {
	timer := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer.Mark("phase")
		}()
	}
	wg.Wait()

	assert.Len(t, timer.Phases(), 8)
}

func TestReport(t *testing.T) {
	timer := New()
	timer.Mark("creating-disk")
	timer.Mark("booting")

	var buf bytes.Buffer
	timer.Report(&buf)

	out := buf.String()
	assert.Contains(t, out, "=== Launch Timing ===")
	assert.Contains(t, out, "creating-disk:")
	assert.Contains(t, out, "booting:")
	assert.Contains(t, out, "TOTAL:")
}

func TestReportWithoutPhases(t *testing.T) {
	timer := New()
	assert.Empty(t, timer.Phases())

	var buf bytes.Buffer
	timer.Report(&buf)
	assert.Contains(t, buf.String(), "TOTAL:")
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		500 * time.Microsecond:  "500µs",
		50 * time.Millisecond:   "50ms",
		1500 * time.Millisecond: "1.50s",
		2 * time.Second:         "2.00s",
	}
	for d, want := range cases {
		assert.Equal(t, want, formatDuration(d), "formatDuration(%v)", d)
	}
}

func TestSinkMarksVMStatusChanges(t *testing.T) {
	timer := New()
	sink := timer.Sink()

	sink.Publish(events.Status("", "creating-disk"))
	sink.Publish(events.Line("abc", events.Stdout, "Formatting"))
	sink.Publish(events.Status("abc", "succeeded"))
	sink.Publish(events.Status("", "booting"))
	sink.Publish(events.Status("", "running"))

	assert.Equal(t, []string{"launch", "creating-disk", "booting"}, phaseNames(timer))
}

func TestEnabled(t *testing.T) {
	t.Setenv(EnvVar, "1")
	assert.True(t, Enabled())

	t.Setenv(EnvVar, "")
	assert.False(t, Enabled())

	t.Setenv(EnvVar, "yes")
	assert.False(t, Enabled())
}
