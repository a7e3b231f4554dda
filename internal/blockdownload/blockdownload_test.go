package blockdownload

import (
	"testing"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/block"
)

func TestFilterHeaders(t *testing.T) {
	cutoff := time.Unix(1000, 0)
	headers := []block.Header{
		{Time: 500},
		{Time: 1500},
		{Time: 2000},
	}
	got := FilterHeaders(headers, cutoff)
	if len(got) != 2 {
		t.Fatalf("want 2 matching headers got %d", len(got))
	}
}

func TestQueueTakeAndRequeue(t *testing.T) {
	items := [][32]byte{{1}, {2}, {3}, {4}, {5}}
	q := newQueue(items)

	batch := q.take(3)
	if len(batch) != 3 {
		t.Fatalf("want batch of 3 got %d", len(batch))
	}
	if len(q.items) != 2 {
		t.Fatalf("want 2 remaining got %d", len(q.items))
	}

	q.requeue(batch)
	if len(q.items) != 5 {
		t.Fatalf("want 5 after requeue got %d", len(q.items))
	}

	// Draining more than available returns only what's left, then nil.
	all := q.take(100)
	if len(all) != 5 {
		t.Fatalf("want 5 got %d", len(all))
	}
	if q.take(1) != nil {
		t.Fatal("expected nil from an empty queue")
	}
}
