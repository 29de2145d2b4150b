// Package diagnostics defines the health snapshot and the event records
// pushed to websocket observers.
package diagnostics

import (
	"time"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is one observer-facing event: a timing violation, a sink
// fault, a pattern change.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// Snapshot is a point-in-time view of the refresh engine, served on
// /healthz and pushed periodically on the diag stream.
type Snapshot struct {
	Frames           uint64  `json:"frames"`
	PlannedHz        float64 `json:"planned_hz"`
	MeasuredHz       float64 `json:"measured_hz"`
	FrameTimeMs      float64 `json:"frame_time_ms"`
	TransitionBit    int     `json:"transition_bit"`
	TimingViolations uint64  `json:"timing_violations"`
	Brightness       uint8   `json:"brightness"`
	Intensity        float64 `json:"intensity"`
	Pattern          string  `json:"pattern,omitempty"`
	Driver           string  `json:"driver,omitempty"`
	UptimeS          float64 `json:"uptime_s"`
}

// FromEngine folds the engine counters into a snapshot. The caller
// fills the app-level fields.
func FromEngine(e *hub75.Engine, started time.Time) Snapshot {
	m := e.Metrics()
	return Snapshot{
		Frames:           m.Frames,
		PlannedHz:        m.PlannedHz,
		MeasuredHz:       m.MeasuredHz,
		FrameTimeMs:      float64(m.FrameTime) / float64(time.Millisecond),
		TransitionBit:    m.TransitionBit,
		TimingViolations: m.TimingViolations,
		Brightness:       e.Brightness(),
		Intensity:        e.Intensity(),
		UptimeS:          time.Since(started).Seconds(),
	}
}
