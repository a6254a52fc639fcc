// Package drowsiness turns per-frame eye-openness readings into a debounced
// Awake/Drowsy state.
package drowsiness

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMeasurement is returned for NaN, infinite or negative ratios.
var ErrInvalidMeasurement = errors.New("drowsiness: invalid openness measurement")

// Status is the debounced state of the monitored subject.
type Status int

const (
	// Awake is the initial state.
	Awake Status = iota
	// Drowsy is entered after a sustained run of closed-eye frames.
	Drowsy
)

// String returns the label written to the event log and shown to the user.
func (s Status) String() string {
	switch s {
	case Awake:
		return "Awake"
	case Drowsy:
		return "Drowsy"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText lets Status encode as its label in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a label produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Awake":
		*s = Awake
	case "Drowsy":
		*s = Drowsy
	default:
		return fmt.Errorf("drowsiness: unknown status %q", text)
	}
	return nil
}

// Config holds the decision parameters.
type Config struct {
	// Threshold is the openness ratio below which a frame counts as closed.
	Threshold float64
	// Frames is the run length that must be strictly exceeded to declare Drowsy.
	Frames int
}

// DefaultConfig returns the tuned defaults (0.28, 40 frames).
func DefaultConfig() Config {
	return Config{
		Threshold: 0.28,
		Frames:    40,
	}
}

// Validate returns a list of problems, or nil if the config is usable.
func (c Config) Validate() []string {
	var problems []string
	if c.Threshold <= 0 || math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		problems = append(problems, "threshold must be a positive number")
	}
	if c.Frames < 0 {
		problems = append(problems, "frames must be >= 0")
	}
	return problems
}

// State is the mutable session state owned by a Machine.
type State struct {
	ConsecutiveLow int    `json:"consecutive_low_frames"`
	Status         Status `json:"status"`
}

// Result describes the outcome of one observation.
type Result struct {
	Status Status
	// Transitioned is true on the single frame where Status changed.
	Transitioned bool
	// Closed is true when the ratio was below the threshold. A false value
	// means the alert latch must be released.
	Closed bool
}

// EnteredDrowsy reports whether this frame was the Awake to Drowsy edge.
func (r Result) EnteredDrowsy() bool {
	return r.Transitioned && r.Status == Drowsy
}

// Machine is the threshold + consecutive-frame reducer.
// It is not safe for concurrent use; one detection loop owns it.
type Machine struct {
	cfg   Config
	state State
}

// New creates a machine in the Awake state.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Config returns the machine's parameters.
func (m *Machine) Config() Config {
	return m.cfg
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.state = State{}
}

// Observe advances the machine by one frame.
func (m *Machine) Observe(ratio float64) (Result, error) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		return Result{Status: m.state.Status}, fmt.Errorf("%w: %v", ErrInvalidMeasurement, ratio)
	}

	if ratio < m.cfg.Threshold {
		m.state.ConsecutiveLow++
		res := Result{Status: m.state.Status, Closed: true}
		if m.state.ConsecutiveLow > m.cfg.Frames && m.state.Status == Awake {
			m.state.Status = Drowsy
			res.Status = Drowsy
			res.Transitioned = true
		}
		return res, nil
	}

	m.state.ConsecutiveLow = 0
	res := Result{Status: Awake}
	if m.state.Status == Drowsy {
		m.state.Status = Awake
		res.Transitioned = true
	}
	return res, nil
}
