package track

import "sync"

// Queue is the ordered sequence of pending tracks. All operations are
// guarded by a single mutex; per-field locking is deliberately avoided so a
// snapshot is never observed half-mutated. The currently playing track is
// never stored here — Dequeue hands ownership to the caller.
type Queue struct {
	mu     sync.Mutex
	tracks []*Track
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends t to the tail of the queue.
func (q *Queue) Enqueue(t *Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
}

// Dequeue removes and returns the head of the queue, or nil if empty.
func (q *Queue) Dequeue() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return nil
	}
	t := q.tracks[0]
	q.tracks = q.tracks[1:]
	return t
}

// Peek returns the head of the queue without removing it, or nil if empty.
func (q *Queue) Peek() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return nil
	}
	return q.tracks[0]
}

// Size returns the number of pending tracks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Snapshot returns a stable shallow copy of the pending tracks, in order.
func (q *Queue) Snapshot() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Remove deletes the track with the given id. It reports whether a track was
// found and removed.
func (q *Queue) Remove(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tracks {
		if t.ID == id {
			q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
			return true
		}
	}
	return false
}

// Move relocates the track with the given id to newIndex, clamped into
// [0, size-1]. It reports whether the id was found.
func (q *Queue) Move(id int64, newIndex int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := -1
	for i, t := range q.tracks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	t := q.tracks[idx]
	q.tracks = append(q.tracks[:idx], q.tracks[idx+1:]...)

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(q.tracks) {
		newIndex = len(q.tracks)
	}
	q.tracks = append(q.tracks, nil)
	copy(q.tracks[newIndex+1:], q.tracks[newIndex:])
	q.tracks[newIndex] = t
	return true
}
