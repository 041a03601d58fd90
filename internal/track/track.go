// Package track defines the Track value type and the in-memory Track Queue.
package track

import (
	"sync/atomic"
)

// Source tags which platform a Track's URL belongs to.
type Source string

const (
	SourceYouTube    Source = "youtube"
	SourceSoundCloud Source = "soundcloud"
)

// Requester identifies who queued a Track.
type Requester struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// Track is a queued or currently playing audio item. Every field except
// StartedAt is fixed at enqueue time; StartedAt is written exactly once,
// when the track starts playing.
type Track struct {
	ID          int64     `json:"id"`
	Source      Source    `json:"source"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Duration    int       `json:"duration,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Requester   Requester `json:"requestedBy"`
	StartedAtMs int64     `json:"startedAt,omitempty"`
}

var lastTrackID atomic.Int64

func nextTrackID() int64 {
	return lastTrackID.Add(1)
}

// New constructs a Track with a fresh id. Duration and Thumbnail are
// best-effort and may be zero/empty.
func New(source Source, url, title string, duration int, thumbnail string, requester Requester) *Track {
	return &Track{
		ID:        nextTrackID(),
		Source:    source,
		URL:       url,
		Title:     title,
		Duration:  duration,
		Thumbnail: thumbnail,
		Requester: requester,
	}
}

// WithPauseAdjustedStart returns a shallow copy of t with StartedAtMs shifted
// forward by pausedMs, used transiently by the state snapshot. t itself is
// never mutated by this call.
func (t *Track) WithPauseAdjustedStart(pausedMs int64) *Track {
	if t == nil || t.StartedAtMs == 0 {
		return t
	}
	cp := *t
	cp.StartedAtMs = t.StartedAtMs + pausedMs
	return &cp
}
