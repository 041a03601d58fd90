package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/arung-agamani/denpa-broadcast/internal/encoder"
	"github.com/arung-agamani/denpa-broadcast/internal/fanout"
	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

func newTestEngine() *Engine {
	return New(track.NewQueue(), fanout.NewBus(), fetcher.NewResolver(fetcher.Config{}), encoder.DefaultConfig())
}

func TestHandleEnsurePlayingNoopWhenNotIdle(t *testing.T) {
	e := newTestEngine()
	e.queue.Enqueue(track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{}))
	e.state.status = StatusPlaying

	e.handleEnsurePlaying(context.Background())

	if e.queue.Size() != 1 {
		t.Fatalf("expected track to remain queued, size=%d", e.queue.Size())
	}
}

func TestHandleEnsurePlayingClearsLastPlayedWhenQueueDrained(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle
	e.state.lastPlayed = track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{})

	e.handleEnsurePlaying(context.Background())

	if e.state.lastPlayed != nil {
		t.Fatal("expected lastPlayed to be cleared once queue is confirmed drained")
	}
	if e.state.status != StatusIdle {
		t.Fatalf("expected status to remain idle, got %v", e.state.status)
	}
}

func TestHandleEnsurePlayingDequeuesAndStarts(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle
	e.queue.Enqueue(track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{}))

	e.handleEnsurePlaying(context.Background())

	if e.state.status != StatusStarting {
		t.Fatalf("expected status starting, got %v", e.state.status)
	}
	if e.queue.Size() != 0 {
		t.Fatal("expected track to be dequeued")
	}
	if e.trackCancel == nil {
		t.Fatal("expected trackCancel to be set")
	}
	e.trackCancel()
}

func TestHandleSkipNoopWhenIdle(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle

	e.handleSkip()

	if e.state.status != StatusIdle {
		t.Fatalf("expected status unchanged, got %v", e.state.status)
	}
	if e.skipTimer != nil {
		t.Fatal("expected no skip cooldown scheduled")
	}
}

func TestHandleSkipTransitionsToSkipping(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusPlaying
	e.state.current = track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{})

	e.handleSkip()

	if e.state.status != StatusSkipping {
		t.Fatalf("expected status skipping, got %v", e.state.status)
	}
	if e.state.current != nil {
		t.Fatal("expected current cleared")
	}
	if e.state.lastPlayed == nil {
		t.Fatal("expected skipped track moved to lastPlayed")
	}
	if e.skipTimer == nil {
		t.Fatal("expected skip cooldown timer scheduled")
	}
	e.skipTimer.Stop()
}

func TestHandleSetPausedPauseThenResumeAccumulatesPausedDuration(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusPlaying

	if got := e.handleSetPaused(true); !got {
		t.Fatal("expected pause to report paused=true")
	}
	if e.state.status != StatusPaused {
		t.Fatalf("expected status paused, got %v", e.state.status)
	}

	time.Sleep(5 * time.Millisecond)

	if got := e.handleSetPaused(false); got {
		t.Fatal("expected resume to report paused=false")
	}
	if e.state.status != StatusPlaying {
		t.Fatalf("expected status playing, got %v", e.state.status)
	}
	if e.state.totalPausedMs <= 0 {
		t.Fatal("expected totalPausedMs to accumulate the pause duration")
	}
}

func TestHandleSetPausedNoopOutsidePlaying(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle

	if got := e.handleSetPaused(true); got {
		t.Fatal("expected pause request to be rejected while idle")
	}
	if e.state.status != StatusIdle {
		t.Fatalf("expected status unchanged, got %v", e.state.status)
	}
}

func TestOnDataTransitionsStartingToPlaying(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusStarting
	e.pendingTrk = track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{})

	e.onData([]byte{1, 2, 3})

	if e.state.status != StatusPlaying {
		t.Fatalf("expected status playing, got %v", e.state.status)
	}
	if e.state.current == nil || e.state.current.StartedAtMs == 0 {
		t.Fatal("expected current track to be stamped with a start time")
	}
	if e.pendingTrk != nil {
		t.Fatal("expected pendingTrk to be cleared")
	}
}

func TestOnTrackFinishedMovesCurrentToLastPlayed(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusPlaying
	e.state.current = track.New(track.SourceYouTube, "https://youtu.be/x", "t", 0, "", track.Requester{})

	e.onTrackFinished(nil)

	if e.state.status != StatusIdle {
		t.Fatalf("expected status idle, got %v", e.state.status)
	}
	if e.state.current != nil {
		t.Fatal("expected current cleared")
	}
	if e.state.lastPlayed == nil {
		t.Fatal("expected finished track moved to lastPlayed")
	}
	if e.nextTimer == nil {
		t.Fatal("expected advance timer to be scheduled")
	}
	e.nextTimer.Stop()
}

func TestOnTrackFinishedSuppressedWhileSkipping(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusSkipping

	e.onTrackFinished(nil)

	if e.nextTimer != nil {
		t.Fatal("expected skip cooldown to own advancing the queue, not onTrackFinished")
	}
}

func TestSnapshotFreezesElapsedWhilePaused(t *testing.T) {
	e := newTestEngine()
	start := time.Now().Add(-10 * time.Second).UnixMilli()
	e.state.status = StatusPaused
	e.state.current = &track.Track{ID: 1, StartedAtMs: start}
	e.state.totalPausedMs = 500

	snap := e.Snapshot()

	if snap.Current == nil {
		t.Fatal("expected current track in snapshot")
	}
	if snap.Current.StartedAtMs != start+500 {
		t.Fatalf("expected pause-adjusted start %d, got %d", start+500, snap.Current.StartedAtMs)
	}
	if !snap.Paused {
		t.Fatal("expected paused=true")
	}
}

func TestSnapshotFallsBackToLastPlayedBetweenTracks(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle
	e.state.lastPlayed = &track.Track{ID: 2, Title: "previous"}

	snap := e.Snapshot()

	if snap.Current == nil || snap.Current.Title != "previous" {
		t.Fatal("expected snapshot to surface lastPlayed between tracks")
	}
}

func TestSnapshotNilWhenQueueFullyDrained(t *testing.T) {
	e := newTestEngine()
	e.state.status = StatusIdle

	snap := e.Snapshot()

	if snap.Current != nil {
		t.Fatal("expected nil current once fully drained")
	}
}
