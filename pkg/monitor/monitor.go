// Package monitor runs a drowsiness monitoring session: it pulls frames from
// a perception source, drives the state machine and fans out the side effects.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/eventlog"
	"github.com/teslashibe/go-drowsy/pkg/perception"
)

var (
	ErrAlreadyRunning = errors.New("monitor: session already running")
	ErrNotRunning     = errors.New("monitor: no session running")
)

// Recorder persists Drowsy transitions.
type Recorder interface {
	Initialize(ctx context.Context) error
	RecordEvent(ctx context.Context, status string) (eventlog.Record, error)
}

// Alerter is the alert latch. Trigger must not block on playback.
type Alerter interface {
	Trigger() bool
	Reset()
	Active() bool
}

// Sink receives status changes and annotated frames for display.
type Sink interface {
	PublishStatus(s Snapshot)
	PublishFrame(jpeg []byte)
}

// Notifier forwards Drowsy events to external systems.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Event is one Awake to Drowsy transition.
type Event struct {
	SessionID string  `json:"session_id"`
	EventID   int64   `json:"event_id"`
	Timestamp string  `json:"timestamp"`
	Status    string  `json:"status"`
	Ratio     float64 `json:"ratio"`
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	Running         bool              `json:"running"`
	ConsecutiveLow  int               `json:"consecutive_low_frames"`
	Status          drowsiness.Status `json:"status"`
	AlertActive     bool              `json:"alert_active"`
	LastRatio       float64           `json:"last_ratio"`
	FramesProcessed int64             `json:"frames_processed"`
	FramesSkipped   int64             `json:"frames_skipped"`
	Events          int64             `json:"events"`
	Display         Display           `json:"display"`
}

// Options wires a Monitor. Open, Recorder and Alerter are required.
type Options struct {
	Config   drowsiness.Config
	Open     perception.Opener
	Recorder Recorder
	Alerter  Alerter
	Sink     Sink     // optional
	Notifier Notifier // optional
}

// Monitor owns one detection loop at a time.
type Monitor struct {
	opts    Options
	machine *drowsiness.Machine

	// running is the cooperative continue flag polled once per frame.
	running atomic.Bool

	mu     sync.RWMutex
	snap   Snapshot
	active bool // loop goroutine alive
	done   chan struct{}
}

// New creates an idle monitor.
func New(opts Options) *Monitor {
	if opts.Config == (drowsiness.Config{}) {
		opts.Config = drowsiness.DefaultConfig()
	}
	return &Monitor{
		opts:    opts,
		machine: drowsiness.New(opts.Config),
		snap:    Snapshot{Display: NotMonitoring},
	}
}

// Start begins a session and returns once the detection loop is running.
// The loop ends on Stop, on ctx cancellation, or when the camera fails.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.active = true
	m.mu.Unlock()

	src, err := m.opts.Open()
	if err != nil {
		if !errors.Is(err, perception.ErrAcquisition) {
			err = fmt.Errorf("%w: %w", perception.ErrAcquisition, err)
		}
		log.Error("camera open failed", "error", err)
		m.update(func(s *Snapshot) {
			s.Running = false
			s.Display = CameraError
		})
		m.setInactive()
		m.publish()
		return err
	}

	if err := m.opts.Recorder.Initialize(ctx); err != nil {
		src.Close()
		m.setInactive()
		return fmt.Errorf("initialize event log: %w", err)
	}

	m.machine.Reset()
	m.opts.Alerter.Reset()
	sessionID := uuid.NewString()
	done := make(chan struct{})

	m.mu.Lock()
	m.snap = Snapshot{
		SessionID: sessionID,
		Running:   true,
		Status:    drowsiness.Awake,
		Display:   Monitoring,
	}
	m.done = done
	m.mu.Unlock()

	m.running.Store(true)
	m.publish()

	log.Info("monitoring started",
		"session", sessionID,
		"threshold", m.opts.Config.Threshold,
		"frames", m.opts.Config.Frames)

	go m.loop(ctx, src, sessionID, done)
	return nil
}

// Stop asks the loop to exit after the current frame.
func (m *Monitor) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	log.Info("monitoring stop requested")
	return nil
}

// Wait blocks until the current loop, if any, has exited.
func (m *Monitor) Wait() {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Snapshot returns a copy of the session state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Monitor) loop(ctx context.Context, src perception.Source, sessionID string, done chan struct{}) {
	failed := false
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("camera close failed", "error", err)
		}
		m.running.Store(false)
		m.update(func(s *Snapshot) {
			s.Running = false
			if !failed {
				s.Display = NotMonitoring
			}
		})
		m.setInactive()
		m.publish()
		close(done)
		log.Info("monitoring stopped", "session", sessionID)
	}()

	for m.running.Load() && ctx.Err() == nil {
		frame, err := src.Next()
		if err != nil {
			log.Error("frame acquisition failed", "session", sessionID, "error", err)
			failed = true
			m.update(func(s *Snapshot) { s.Display = CameraError })
			return
		}
		m.process(ctx, sessionID, frame)
	}
}

// process applies one frame. Only the primary face drives the machine, and
// frames without a face leave the counter untouched.
func (m *Monitor) process(ctx context.Context, sessionID string, frame *perception.Frame) {
	if m.opts.Sink != nil && len(frame.JPEG) > 0 {
		m.opts.Sink.PublishFrame(frame.JPEG)
	}

	face := perception.Primary(frame.Faces)
	if face == nil {
		m.update(func(s *Snapshot) { s.FramesProcessed++ })
		return
	}

	ratio, err := face.Eyes.Ratio()
	if err == nil {
		var res drowsiness.Result
		res, err = m.machine.Observe(ratio)
		if err == nil {
			m.apply(ctx, sessionID, ratio, res)
			return
		}
	}

	log.Debug("frame skipped", "frame", frame.Index, "error", err)
	m.update(func(s *Snapshot) {
		s.FramesProcessed++
		s.FramesSkipped++
	})
}

func (m *Monitor) apply(ctx context.Context, sessionID string, ratio float64, res drowsiness.Result) {
	if res.EnteredDrowsy() {
		m.opts.Alerter.Trigger()
		m.record(ctx, sessionID, ratio)
	}
	if !res.Closed {
		m.opts.Alerter.Reset()
	}
	if res.Transitioned {
		log.Info("status changed", "session", sessionID, "status", res.Status.String(), "ratio", ratio)
	}

	state := m.machine.State()
	alertActive := m.opts.Alerter.Active()
	changed := false
	m.update(func(s *Snapshot) {
		s.FramesProcessed++
		s.ConsecutiveLow = state.ConsecutiveLow
		s.Status = state.Status
		s.AlertActive = alertActive
		s.LastRatio = ratio
		if res.EnteredDrowsy() {
			s.Events++
		}

		next := s.Display
		switch {
		case state.Status == drowsiness.Drowsy:
			next = Drowsy
		case !res.Closed:
			next = Awake
		}
		if next != s.Display {
			s.Display = next
			changed = true
		}
	})
	if changed {
		m.publish()
	}
}

// record persists and forwards one event. Failures are logged, never returned,
// so a storage or broker outage cannot stop the loop.
func (m *Monitor) record(ctx context.Context, sessionID string, ratio float64) {
	status := drowsiness.Drowsy.String()
	ev := Event{SessionID: sessionID, Status: status, Ratio: ratio}

	rec, err := m.opts.Recorder.RecordEvent(ctx, status)
	if err != nil {
		log.Error("event not recorded", "session", sessionID, "error", err)
		ev.Timestamp = time.Now().Format(eventlog.TimeLayout)
	} else {
		ev.EventID = rec.ID
		ev.Timestamp = rec.Timestamp
	}

	if m.opts.Notifier == nil {
		return
	}
	if err := m.opts.Notifier.Notify(ctx, ev); err != nil {
		log.Warn("event notification failed", "session", sessionID, "error", err)
	}
}

func (m *Monitor) update(fn func(s *Snapshot)) {
	m.mu.Lock()
	fn(&m.snap)
	m.mu.Unlock()
}

func (m *Monitor) setInactive() {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
}

func (m *Monitor) publish() {
	if m.opts.Sink == nil {
		return
	}
	m.opts.Sink.PublishStatus(m.Snapshot())
}
