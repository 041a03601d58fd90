// Package broadcast implements the serial broadcast engine: the controller
// that drives one track at a time through fetch -> encode -> fan-out, and
// owns the playing/paused/skipping/idle state machine.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/arung-agamani/denpa-broadcast/internal/encoder"
	"github.com/arung-agamani/denpa-broadcast/internal/fanout"
	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

// Status is the engine's internal playback state. It is never exposed
// directly; the State Snapshot derives Paused from it.
type Status int

const (
	StatusIdle Status = iota
	StatusStarting
	StatusPlaying
	StatusPaused
	StatusSkipping
)

const (
	safetyTimeout  = 30 * time.Second
	skipCooldown   = 150 * time.Millisecond
	endAdvanceWait = 100 * time.Millisecond
	errAdvanceWait = 1 * time.Second
)

type state struct {
	mu            sync.RWMutex
	status        Status
	current       *track.Track
	lastPlayed    *track.Track
	pausedAt      time.Time
	totalPausedMs int64
	thumbnails    map[track.Source]string
}

// Engine is the single serial actor over the broadcast pipeline. External
// callers (HTTP handlers) invoke EnsurePlaying, Skip, SetPaused, and read
// Snapshot/Thumbnail; all mutation is serialized through the command
// channel consumed by Run.
type Engine struct {
	queue    *track.Queue
	bus      *fanout.Bus
	resolver *fetcher.Resolver
	encCfg   encoder.Config

	cmds    chan any
	stopped chan struct{}

	state state

	// Loop-owned; touched only by the goroutine running Run.
	generation  uint64
	pendingTrk  *track.Track
	pipeline    *encoder.Pipeline
	events      <-chan encoder.Event
	trackCancel context.CancelFunc
	safetyTimer *time.Timer
	skipTimer   *time.Timer
	nextTimer   *time.Timer
}

// New builds an Engine ready to Run.
func New(q *track.Queue, bus *fanout.Bus, resolver *fetcher.Resolver, encCfg encoder.Config) *Engine {
	return &Engine{
		queue:    q,
		bus:      bus,
		resolver: resolver,
		encCfg:   encCfg,
		cmds:     make(chan any, 16),
		stopped:  make(chan struct{}),
	}
}

// Enqueue appends trk to the queue and opportunistically kicks off playback
// if the engine is idle. trk ownership passes entirely to the queue/engine.
func (e *Engine) Enqueue(trk *track.Track) {
	e.queue.Enqueue(trk)
	e.EnsurePlaying()
}

// EnsurePlaying requests the idle->starting transition if the queue is
// non-empty; idempotent if already starting/playing.
func (e *Engine) EnsurePlaying() {
	e.send(cmdEnsurePlaying{})
}

// Skip cancels the current track and advances to the next after a short
// cooldown. No-op unless currently playing or paused.
func (e *Engine) Skip() {
	e.send(cmdSkip{})
}

// SetPaused requests a pause/resume transition and returns the resulting
// paused flag. No-op (returning the unchanged flag) if the requested
// transition does not apply to the current state.
func (e *Engine) SetPaused(paused bool) bool {
	reply := make(chan bool, 1)
	if !e.send(cmdSetPaused{paused: paused, reply: reply}) {
		return false
	}
	select {
	case v := <-reply:
		return v
	case <-e.stopped:
		return false
	}
}

func (e *Engine) send(msg any) bool {
	select {
	case e.cmds <- msg:
		return true
	case <-e.stopped:
		return false
	}
}

// RemoveQueued removes a pending track by id. Safe to call concurrently with
// the engine loop: the queue has its own independent mutex.
func (e *Engine) RemoveQueued(id int64) bool {
	return e.queue.Remove(id)
}

// MoveQueued relocates a pending track by id to newIndex.
func (e *Engine) MoveQueued(id int64, newIndex int) bool {
	return e.queue.Move(id, newIndex)
}

// Bus returns the fan-out bus backing listener attach (GET /stream).
func (e *Engine) Bus() *fanout.Bus { return e.bus }

// Thumbnail returns the cached current-track thumbnail URL for src, if any.
func (e *Engine) Thumbnail(src track.Source) (string, bool) {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()
	u, ok := e.state.thumbnails[src]
	return u, ok
}

// Run drives the engine's serial loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)
	defer e.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.cmds:
			e.handleCommand(ctx, msg)
		case ev, ok := <-e.events:
			if !ok {
				e.events = nil
				continue
			}
			e.handleEvent(ev)
		case <-timerChan(e.safetyTimer):
			e.handleSafetyTimeout()
		case <-timerChan(e.skipTimer):
			e.handleSkipCooldown(ctx)
		case <-timerChan(e.nextTimer):
			e.handleEnsurePlaying(ctx)
		}
	}
}

func (e *Engine) shutdown() {
	if e.trackCancel != nil {
		e.trackCancel()
	}
	if e.pipeline != nil {
		e.pipeline.Kill()
	}
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
