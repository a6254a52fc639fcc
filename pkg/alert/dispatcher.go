// Package alert fires a single audible alert per Drowsy episode.
package alert

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-drowsy/internal/log"
)

// Player performs the alert action. Play blocks until playback finishes.
type Player interface {
	Play(ctx context.Context) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context) error {
	return f(ctx)
}

// Dispatcher latches an alert on Trigger and releases it on Reset.
// Trigger and Reset never block on playback.
type Dispatcher struct {
	player Player
	active atomic.Bool
	wg     sync.WaitGroup

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func(err error)
}

// NewDispatcher creates a dispatcher for the given player.
func NewDispatcher(player Player) *Dispatcher {
	return &Dispatcher{player: player}
}

// Trigger starts playback on its own goroutine unless an alert is already
// active. It reports whether playback was started.
func (d *Dispatcher) Trigger() bool {
	if !d.active.CompareAndSwap(false, true) {
		return false
	}

	d.wg.Add(1)
	go d.play()
	return true
}

// play runs to completion even after the session stops; errors are only logged.
func (d *Dispatcher) play() {
	defer d.wg.Done()

	var err error
	defer func() {
		if r := recover(); r != nil {
			log.Error("alert playback panicked", "panic", r)
		}
		if d.OnPlaybackEnd != nil {
			d.OnPlaybackEnd(err)
		}
	}()

	if d.OnPlaybackStart != nil {
		d.OnPlaybackStart()
	}
	if d.player == nil {
		return
	}
	if err = d.player.Play(context.Background()); err != nil {
		log.Warn("alert playback failed", "error", err)
	}
}

// Reset clears the latch so the next Drowsy episode alerts again.
func (d *Dispatcher) Reset() {
	d.active.Store(false)
}

// Active reports whether an alert is latched.
func (d *Dispatcher) Active() bool {
	return d.active.Load()
}

// Wait blocks until every started playback has returned.
// It is meant for shutdown and tests, never for the detection loop.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
