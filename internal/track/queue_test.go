package track

import "testing"

func newTrack(title string) *Track {
	return New(SourceYouTube, "https://youtu.be/x", title, 0, "", Requester{ID: "u1", DisplayName: "u1"})
}

func TestQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewQueue()
	t1 := newTrack("a")
	t2 := newTrack("b")
	q.Enqueue(t1)
	q.Enqueue(t2)

	if got := q.Dequeue(); got.ID != t1.ID {
		t.Fatalf("expected t1 first, got %v", got)
	}
	if got := q.Dequeue(); got.ID != t2.ID {
		t.Fatalf("expected t2 second, got %v", got)
	}
	if got := q.Dequeue(); got != nil {
		t.Fatalf("expected nil on empty queue, got %v", got)
	}
}

func TestQueueIDsUnique(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		tr := newTrack("x")
		if seen[tr.ID] {
			t.Fatalf("duplicate id %d", tr.ID)
		}
		seen[tr.ID] = true
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	t1, t2, t3 := newTrack("a"), newTrack("b"), newTrack("c")
	q.Enqueue(t1)
	q.Enqueue(t2)
	q.Enqueue(t3)

	if !q.Remove(t2.ID) {
		t.Fatal("expected removal to succeed")
	}
	if q.Remove(t2.ID) {
		t.Fatal("expected second removal to fail")
	}
	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].ID != t1.ID || snap[1].ID != t3.ID {
		t.Fatalf("unexpected snapshot after remove: %+v", snap)
	}
}

func TestQueueMoveClampsIndex(t *testing.T) {
	q := NewQueue()
	t1, t2, t3 := newTrack("a"), newTrack("b"), newTrack("c")
	q.Enqueue(t1)
	q.Enqueue(t2)
	q.Enqueue(t3)

	if !q.Move(t3.ID, 0) {
		t.Fatal("expected move to succeed")
	}
	snap := q.Snapshot()
	if snap[0].ID != t3.ID || snap[1].ID != t1.ID || snap[2].ID != t2.ID {
		t.Fatalf("unexpected order: %+v", snap)
	}

	if !q.Move(t1.ID, 999) {
		t.Fatal("expected move to succeed")
	}
	snap = q.Snapshot()
	if snap[len(snap)-1].ID != t1.ID {
		t.Fatalf("expected t1 clamped to end, got %+v", snap)
	}

	if q.Move(424242, 0) {
		t.Fatal("expected move of unknown id to fail")
	}
}

func TestQueueSizeAndPeek(t *testing.T) {
	q := NewQueue()
	if q.Size() != 0 || q.Peek() != nil {
		t.Fatal("expected empty queue")
	}
	tr := newTrack("a")
	q.Enqueue(tr)
	if q.Size() != 1 {
		t.Fatalf("expected size 1, got %d", q.Size())
	}
	if q.Peek().ID != tr.ID {
		t.Fatal("peek should not remove")
	}
	if q.Size() != 1 {
		t.Fatal("peek mutated queue")
	}
}
