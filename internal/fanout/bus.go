// Package fanout implements the one-producer, many-consumer byte
// distributor: it receives MP3 chunks from the encoder pipeline and copies
// them to every attached listener sink without letting a slow listener
// stall the producer. It also owns the silence generator that keeps
// listener decoders fed during idle gaps and while paused.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sinkBufferSize is how many chunks a listener can lag behind before writes
// start being dropped. At ~8KB/chunk and 128kbps this is about half a minute
// of slack.
const sinkBufferSize = 64

// maxConsecutiveDrops is how many back-to-back dropped writes a sink
// tolerates before the bus evicts it as unrecoverably slow.
const maxConsecutiveDrops = 50

// idleTickInterval is how often the bus emits a silence frame while no real
// audio is flowing and at least one listener is attached.
const idleTickInterval = 50 * time.Millisecond

// Mode tags whether the bus should be forwarding real encoder output or
// substituting silence on its own ticker.
type Mode int

const (
	// Flowing means real audio chunks are arriving from the encoder; the
	// bus only needs to forward what it is given.
	Flowing Mode = iota
	// Idle means no track is playing; the bus emits a silence frame on its
	// own ticker whenever at least one listener is attached.
	Idle
	// Paused means a track is loaded but suspended; the bus substitutes
	// silence on its ticker in place of the (frozen) encoder output.
	Paused
)

// Sink is a write-only byte channel bound to one HTTP response.
type Sink struct {
	ID uuid.UUID
	ch chan []byte

	mu              sync.Mutex
	consecutiveDrop int
}

// C returns the channel the listener-attach handler should read from.
func (s *Sink) C() <-chan []byte { return s.ch }

// Bus owns the set of attached listener sinks and the silence ticker.
type Bus struct {
	mu    sync.RWMutex
	sinks map[uuid.UUID]*Sink

	mode atomicMode
}

// NewBus returns an empty Bus in Idle mode.
func NewBus() *Bus {
	b := &Bus{sinks: make(map[uuid.UUID]*Sink)}
	b.mode.store(Idle)
	return b
}

// Subscribe attaches a new listener sink, seeds it with one silence frame so
// the client's decoder starts immediately, and returns it.
func (b *Bus) Subscribe() *Sink {
	s := &Sink{ID: uuid.New(), ch: make(chan []byte, sinkBufferSize)}
	s.ch <- append([]byte(nil), silenceFrame...)

	b.mu.Lock()
	b.sinks[s.ID] = s
	b.mu.Unlock()
	return s
}

// Unsubscribe detaches and closes a listener sink. It is safe to call more
// than once for the same sink.
func (b *Bus) Unsubscribe(s *Sink) {
	b.mu.Lock()
	if _, ok := b.sinks[s.ID]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.sinks, s.ID)
	b.mu.Unlock()
	close(s.ch)
}

// ListenerCount returns the number of attached sinks.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// SetMode switches between Flowing, Idle, and Paused. The engine calls this
// on every state transition that changes whether real audio is arriving.
func (b *Bus) SetMode(m Mode) {
	b.mode.store(m)
}

// Broadcast writes chunk to every attached sink. A sink whose buffer is full
// has the write dropped, not blocked; after maxConsecutiveDrops consecutive
// drops the sink is evicted as unrecoverably slow.
func (b *Bus) Broadcast(chunk []byte) {
	cp := append([]byte(nil), chunk...)

	b.mu.RLock()
	victims := make([]*Sink, 0)
	for _, s := range b.sinks {
		select {
		case s.ch <- cp:
			s.mu.Lock()
			s.consecutiveDrop = 0
			s.mu.Unlock()
		default:
			s.mu.Lock()
			s.consecutiveDrop++
			evict := s.consecutiveDrop >= maxConsecutiveDrops
			s.mu.Unlock()
			if evict {
				victims = append(victims, s)
			}
		}
	}
	b.mu.RUnlock()

	for _, s := range victims {
		slog.Warn("evicting slow listener", "sink_id", s.ID)
		b.Unsubscribe(s)
	}
}

// BroadcastSilence writes one silence frame to every sink immediately; used
// for gap silence at track boundaries and by the idle/paused ticker. A new
// sink gets its first silence frame from Subscribe, not from here.
func (b *Bus) BroadcastSilence() {
	b.Broadcast(silenceFrame)
}

// BroadcastFlush writes the silence flush block (flushRepeatCount frames) to every sink;
// used at the instant playback pauses, to purge client buffers.
func (b *Bus) BroadcastFlush() {
	b.Broadcast(FlushBlock())
}

// RunIdleTicker drives the idle/paused silence ticker until ctx is
// cancelled. It must be started exactly once, for the lifetime of the Bus.
func (b *Bus) RunIdleTicker(ctx context.Context) {
	ticker := time.NewTicker(idleTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := b.mode.load()
			if m == Flowing {
				continue
			}
			if b.ListenerCount() == 0 {
				continue
			}
			b.BroadcastSilence()
		}
	}
}
