package broadcast

import (
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

// Snapshot is the pure, read-only view of broadcast state exposed to
// GET /api/status. It never mutates the engine.
type Snapshot struct {
	Current   *track.Track   `json:"current"`
	Queue     []*track.Track `json:"queue"`
	Listeners int            `json:"listeners"`
	Paused    bool           `json:"paused"`
}

// Snapshot derives the current view of playback state. Per the pause
// accounting design: while paused, the displayed elapsed time freezes at the
// pause instant — only the committed totalPausedMs accumulator shifts
// StartedAtMs, never the in-progress (now - pausedAt) delta.
func (e *Engine) Snapshot() Snapshot {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()

	var current *track.Track
	switch {
	case e.state.current != nil:
		current = e.state.current.WithPauseAdjustedStart(e.state.totalPausedMs)
	case e.state.lastPlayed != nil:
		current = e.state.lastPlayed
	}

	return Snapshot{
		Current:   current,
		Queue:     e.queue.Snapshot(),
		Listeners: e.bus.ListenerCount(),
		Paused:    e.state.status == StatusPaused,
	}
}
