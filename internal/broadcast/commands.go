package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/arung-agamani/denpa-broadcast/internal/encoder"
	"github.com/arung-agamani/denpa-broadcast/internal/fanout"
	"github.com/arung-agamani/denpa-broadcast/internal/metrics"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

type cmdEnsurePlaying struct{}

type cmdSkip struct{}

type cmdSetPaused struct {
	paused bool
	reply  chan bool
}

// msgFetchFailed reports that either the fetcher or the encoder failed to
// start for the track currently being prepared.
type msgFetchFailed struct {
	generation uint64
	err        error
}

// msgPipelineStarted hands the loop the events channel for a newly launched
// encoder subprocess.
type msgPipelineStarted struct {
	generation uint64
	pipeline   *encoder.Pipeline
	events     <-chan encoder.Event
}

func (e *Engine) handleCommand(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case cmdEnsurePlaying:
		e.handleEnsurePlaying(ctx)
	case cmdSkip:
		e.handleSkip()
	case cmdSetPaused:
		result := e.handleSetPaused(m.paused)
		m.reply <- result
	case msgFetchFailed:
		if m.generation != e.generation {
			return
		}
		e.onStartFailed(m.err)
	case msgPipelineStarted:
		if m.generation != e.generation {
			m.pipeline.Kill()
			return
		}
		e.pipeline = m.pipeline
		e.events = m.events
		e.safetyTimer = time.NewTimer(safetyTimeout)
	}
}

// handleEnsurePlaying implements the idle->starting transition and also
// serves as "playNext": both the initial enqueue trigger and every
// post-track advance (skip cooldown, track end, fetch failure) funnel
// through here, and it is a no-op unless the engine is idle.
func (e *Engine) handleEnsurePlaying(ctx context.Context) {
	stopTimer(e.nextTimer)
	e.nextTimer = nil

	e.state.mu.Lock()
	idle := e.state.status == StatusIdle
	e.state.mu.Unlock()
	if !idle {
		return
	}

	trk := e.queue.Dequeue()
	if trk == nil {
		// Queue has fully drained; stop reporting the last-played track.
		e.state.mu.Lock()
		e.state.lastPlayed = nil
		e.state.mu.Unlock()
		return
	}

	e.state.mu.Lock()
	e.state.status = StatusStarting
	e.state.mu.Unlock()

	e.generation++
	gen := e.generation
	e.pendingTrk = trk

	trackCtx, cancel := context.WithCancel(ctx)
	e.trackCancel = cancel
	go e.startTrack(trackCtx, gen, trk)
}

func (e *Engine) startTrack(ctx context.Context, gen uint64, trk *track.Track) {
	input, err := e.resolver.Fetch(ctx, trk)
	if err != nil {
		e.deliver(msgFetchFailed{generation: gen, err: err})
		return
	}

	p := encoder.New(e.encCfg)
	events, err := p.Start(ctx, input)
	if err != nil {
		_ = input.Close()
		e.deliver(msgFetchFailed{generation: gen, err: err})
		return
	}

	e.deliver(msgPipelineStarted{generation: gen, pipeline: p, events: events})
}

func (e *Engine) deliver(msg any) {
	select {
	case e.cmds <- msg:
	case <-e.stopped:
	}
}

func (e *Engine) onStartFailed(err error) {
	slog.Error("broadcast: track failed to start", "error", err)
	source := track.Source("unknown")
	if e.pendingTrk != nil {
		source = e.pendingTrk.Source
	}
	metrics.TrackFetchFailuresTotal.WithLabelValues(string(source)).Inc()
	e.clearCurrentToIdle()
	e.nextTimer = time.NewTimer(errAdvanceWait)
}

func (e *Engine) handleEvent(ev encoder.Event) {
	switch ev.Kind {
	case encoder.EventStarted:
		slog.Debug("broadcast: encoder started", "pid", ev.PID)
	case encoder.EventData:
		e.onData(ev.Chunk)
	case encoder.EventEnd:
		e.onTrackFinished(nil)
	case encoder.EventError:
		e.onTrackFinished(ev.Err)
	}
}

func (e *Engine) onData(chunk []byte) {
	e.state.mu.Lock()
	if e.state.status == StatusStarting {
		stopTimer(e.safetyTimer)
		e.safetyTimer = nil

		now := time.Now().UnixMilli()
		e.pendingTrk.StartedAtMs = now
		e.state.current = e.pendingTrk
		e.state.totalPausedMs = 0
		e.state.pausedAt = time.Time{}
		e.cacheThumbnailLocked(e.pendingTrk)
		e.state.status = StatusPlaying
		e.pendingTrk = nil
		e.bus.SetMode(fanout.Flowing)
		metrics.TracksPlayedTotal.Inc()
	}
	paused := e.state.status == StatusPaused
	e.state.mu.Unlock()

	if paused {
		// The encoder kept producing (e.g. the stop signal failed); listeners
		// get a silence frame in place of the real chunk.
		e.bus.BroadcastSilence()
		return
	}
	e.bus.Broadcast(chunk)
}

// cacheThumbnailLocked records trk's thumbnail under its source tag and
// clears the other source's cached thumbnail. Caller must hold state.mu.
func (e *Engine) cacheThumbnailLocked(trk *track.Track) {
	if e.state.thumbnails == nil {
		e.state.thumbnails = make(map[track.Source]string, 2)
	}
	other := track.SourceSoundCloud
	if trk.Source == track.SourceSoundCloud {
		other = track.SourceYouTube
	}
	delete(e.state.thumbnails, other)
	if trk.Thumbnail != "" {
		e.state.thumbnails[trk.Source] = trk.Thumbnail
	}
}

func (e *Engine) onTrackFinished(err error) {
	e.state.mu.RLock()
	skipping := e.state.status == StatusSkipping
	e.state.mu.RUnlock()
	if skipping {
		// The kill that triggered this was already driven by handleSkip;
		// the skip-cooldown timer owns advancing the queue. Suppressing
		// here prevents a double-advance.
		return
	}

	if err != nil {
		slog.Error("broadcast: track ended with error", "error", err)
	}
	e.clearCurrentToIdle()
	e.bus.BroadcastSilence()
	e.nextTimer = time.NewTimer(endAdvanceWait)
}

// clearCurrentToIdle moves the current track to last-played, drops pipeline
// handles, and returns the engine to idle with the fan-out bus ticking
// idle silence.
func (e *Engine) clearCurrentToIdle() {
	stopTimer(e.safetyTimer)
	e.safetyTimer = nil
	e.pipeline = nil
	e.events = nil
	e.pendingTrk = nil
	e.trackCancel = nil

	e.state.mu.Lock()
	if e.state.current != nil {
		e.state.lastPlayed = e.state.current
	}
	e.state.current = nil
	e.state.status = StatusIdle
	e.state.mu.Unlock()

	e.bus.SetMode(fanout.Idle)
}

func (e *Engine) handleSkip() {
	e.state.mu.Lock()
	st := e.state.status
	if st != StatusPlaying && st != StatusPaused {
		e.state.mu.Unlock()
		return
	}
	e.state.status = StatusSkipping
	e.state.mu.Unlock()

	if e.trackCancel != nil {
		e.trackCancel()
	}
	if e.pipeline != nil {
		e.pipeline.Kill()
	}
	stopTimer(e.safetyTimer)
	e.safetyTimer = nil
	e.pipeline = nil
	e.events = nil

	e.state.mu.Lock()
	if e.state.current != nil {
		e.state.lastPlayed = e.state.current
	}
	e.state.current = nil
	e.state.mu.Unlock()

	e.bus.SetMode(fanout.Idle)
	e.bus.BroadcastSilence()

	e.skipTimer = time.NewTimer(skipCooldown)
}

func (e *Engine) handleSafetyTimeout() {
	e.safetyTimer = nil
	slog.Warn("broadcast: track stuck, no data within safety timeout")
	metrics.EncoderRestartsTotal.Inc()
	if e.pipeline != nil {
		e.pipeline.Kill()
	}
	e.clearCurrentToIdle()
	e.bus.BroadcastSilence()
	e.nextTimer = time.NewTimer(endAdvanceWait)
}

func (e *Engine) handleSkipCooldown(ctx context.Context) {
	e.skipTimer = nil
	e.state.mu.Lock()
	e.state.status = StatusIdle
	e.state.mu.Unlock()
	e.handleEnsurePlaying(ctx)
}

func (e *Engine) handleSetPaused(paused bool) bool {
	e.state.mu.Lock()
	st := e.state.status
	if paused {
		if st != StatusPlaying {
			already := st == StatusPaused
			e.state.mu.Unlock()
			return already
		}
		e.state.status = StatusPaused
		e.state.pausedAt = time.Now()
		e.state.mu.Unlock()

		if e.pipeline != nil {
			if err := e.pipeline.Suspend(); err != nil {
				slog.Warn("broadcast: pause signal failed, relying on fan-out silence", "error", err)
			}
		}
		e.bus.SetMode(fanout.Paused)
		e.bus.BroadcastFlush()
		return true
	}

	if st != StatusPaused {
		stillPaused := st == StatusPaused
		e.state.mu.Unlock()
		return stillPaused
	}
	e.state.status = StatusPlaying
	if !e.state.pausedAt.IsZero() {
		e.state.totalPausedMs += time.Since(e.state.pausedAt).Milliseconds()
	}
	e.state.pausedAt = time.Time{}
	e.state.mu.Unlock()

	if e.pipeline != nil {
		if err := e.pipeline.Resume(); err != nil {
			slog.Warn("broadcast: resume signal failed", "error", err)
		}
	}
	e.bus.SetMode(fanout.Flowing)
	return false
}
