package fanout

import (
	"bytes"
	"testing"
	"time"
)

func TestSubscribeSeedsSilenceFrame(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	defer b.Unsubscribe(s)

	select {
	case chunk := <-s.C():
		if !bytes.Equal(chunk, silenceFrame) {
			t.Fatalf("expected silence frame on attach, got %v", chunk)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial silence frame")
	}
}

func TestBroadcastFanOut(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	<-s1.C()
	<-s2.C()

	b.Broadcast([]byte("hello"))

	for _, s := range []*Sink{s1, s2} {
		select {
		case chunk := <-s.C():
			if string(chunk) != "hello" {
				t.Fatalf("unexpected chunk %q", chunk)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast chunk")
		}
	}
}

func TestBroadcastNeverBlocksOnFullSink(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	defer b.Unsubscribe(s)
	<-s.C()

	done := make(chan struct{})
	go func() {
		for i := 0; i < sinkBufferSize+5; i++ {
			b.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full sink")
	}
}

func TestSlowListenerEvicted(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	<-s.C()

	for i := 0; i < sinkBufferSize+maxConsecutiveDrops+1; i++ {
		b.Broadcast([]byte("x"))
	}

	if b.ListenerCount() != 0 {
		t.Fatalf("expected slow listener to be evicted, count=%d", b.ListenerCount())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	b.Unsubscribe(s)
	b.Unsubscribe(s)
	if b.ListenerCount() != 0 {
		t.Fatal("expected zero listeners")
	}
}
