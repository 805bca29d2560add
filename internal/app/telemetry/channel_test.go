package telemetry

import (
	"math"
	"slices"
	"sync"
	"testing"
)

func TestChannelRetainsLastN(t *testing.T) {
	const capacity = 5
	for count := 0; count <= 3*capacity; count++ {
		ch := NewChannel(capacity)
		var appended []float64
		for i := 0; i < count; i++ {
			v := float64(i)
			ch.Append(v)
			appended = append(appended, v)
		}

		if ch.Len() > capacity {
			t.Fatalf("count=%d: length %d exceeds capacity", count, ch.Len())
		}
		want := appended[max(0, len(appended)-capacity):]
		if got := ch.Snapshot(); !slices.Equal(got, want) {
			t.Fatalf("count=%d: expected %v, got %v", count, want, got)
		}
	}
}

func TestChannelSnapshotIsIndependent(t *testing.T) {
	ch := NewChannel(3)
	ch.Append(1)
	ch.Append(2)

	snap := ch.Snapshot()
	ch.Append(3)
	ch.Append(4)
	snap[0] = 99

	if !slices.Equal(snap, []float64{99, 2}) {
		t.Fatalf("snapshot changed after append: %v", snap)
	}
	if got := ch.Snapshot(); !slices.Equal(got, []float64{2, 3, 4}) {
		t.Fatalf("channel affected by snapshot mutation: %v", got)
	}
}

func TestChannelSnapshotIdempotent(t *testing.T) {
	ch := NewChannel(4)
	for i := 0; i < 7; i++ {
		ch.Append(float64(i))
	}
	if a, b := ch.Snapshot(), ch.Snapshot(); !slices.Equal(a, b) {
		t.Fatalf("snapshots differ: %v vs %v", a, b)
	}
}

func TestChannelAcceptsNonFinite(t *testing.T) {
	ch := NewChannel(3)
	ch.Append(math.NaN())
	ch.Append(math.Inf(1))

	got := ch.Snapshot()
	if len(got) != 2 || !math.IsNaN(got[0]) || !math.IsInf(got[1], 1) {
		t.Fatalf("non-finite values not stored verbatim: %v", got)
	}
}

func TestChannelMinimumCapacity(t *testing.T) {
	ch := NewChannel(0)
	ch.Append(1)
	ch.Append(2)
	if ch.Cap() != 1 || !slices.Equal(ch.Snapshot(), []float64{2}) {
		t.Fatalf("expected single-slot channel holding 2, got cap=%d %v", ch.Cap(), ch.Snapshot())
	}
}

func TestChannelConcurrentAppend(t *testing.T) {
	ch := NewChannel(100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ch.Append(1)
				_ = ch.Snapshot()
			}
		}()
	}
	wg.Wait()

	if ch.Len() != 100 {
		t.Fatalf("expected full channel, got %d", ch.Len())
	}
}
