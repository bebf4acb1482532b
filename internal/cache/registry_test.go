package cache

import (
	"fmt"
	"testing"
)

func TestRegistryRegisterAndClearAll(t *testing.T) {
	r := NewRegistry()
	c1 := NewTTLCache[string, int]("cache1", 10, 20)
	c2 := NewTTLCache[string, int]("cache2", 10, 20)
	r.Register(c1, PriorityMetadata)
	r.Register(c2, PriorityTranscript)

	c1.Put("a", 1, 0)
	c1.Put("b", 2, 0)
	c2.Put("x", 1, 0)

	results := r.ClearAll()
	if results["cache1"] != 2 {
		t.Errorf("ClearAll()[cache1] = %d, want 2", results["cache1"])
	}
	if results["cache2"] != 1 {
		t.Errorf("ClearAll()[cache2] = %d, want 1", results["cache2"])
	}
	if c1.Size() != 0 || c2.Size() != 0 {
		t.Error("both caches should be empty after ClearAll")
	}
}

func TestRegistryRegisterIsIdempotentByName(t *testing.T) {
	r := NewRegistry()
	c1 := NewTTLCache[string, int]("dup", 10, 20)
	c2 := NewTTLCache[string, int]("dup", 10, 20)
	r.Register(c1, PriorityMetadata)
	r.Register(c2, PriorityMetadata)

	c1.Put("a", 1, 0)
	c2.Put("b", 2, 0)

	results := r.ClearAll()
	if len(results) != 1 {
		t.Fatalf("expected a single registration under the shared name, got %d", len(results))
	}
	if results["dup"] != 1 {
		t.Errorf("ClearAll()[dup] = %d, want 1 (only the second registration survives)", results["dup"])
	}
}

func TestRegistryPressureClearOrdersByPriority(t *testing.T) {
	r := NewRegistry()
	transcripts := NewTTLCache[string, int]("transcripts", 10, 20)
	metadata := NewTTLCache[string, int]("metadata", 10, 20)
	r.Register(transcripts, PriorityTranscript)
	r.Register(metadata, PriorityMetadata)

	transcripts.Put("a", 1, 0)
	metadata.Put("b", 2, 0)

	// abated runs before each cache is cleared; record the sizes it sees.
	var order []string
	abated := func() bool {
		order = append(order, fmt.Sprintf("transcripts=%d metadata=%d", transcripts.Size(), metadata.Size()))
		return false
	}

	r.PressureClear(abated)

	want := []string{"transcripts=1 metadata=1", "transcripts=0 metadata=1"}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("sizes seen before each clear = %v, want %v", order, want)
	}

	if transcripts.Size() != 0 {
		t.Error("transcripts tier should be cleared first and fully drained")
	}
	if metadata.Size() != 0 {
		t.Error("metadata tier should be cleared once transcripts tier is exhausted and pressure has not abated")
	}
}

func TestRegistryPressureClearStopsWhenAbated(t *testing.T) {
	r := NewRegistry()
	transcripts := NewTTLCache[string, int]("transcripts", 10, 20)
	metadata := NewTTLCache[string, int]("metadata", 10, 20)
	r.Register(transcripts, PriorityTranscript)
	r.Register(metadata, PriorityMetadata)

	transcripts.Put("a", 1, 0)
	metadata.Put("b", 2, 0)

	calls := 0
	abated := func() bool {
		calls++
		return calls > 1 // abate after the first tier is checked
	}

	r.PressureClear(abated)

	if metadata.Size() != 1 {
		t.Error("metadata tier should be untouched once pressure has abated")
	}
}

func TestRegistryStats(t *testing.T) {
	r := NewRegistry()
	c1 := NewTTLCache[string, int]("cache1", 10, 20)
	r.Register(c1, PriorityMetadata)
	c1.Put("a", 1, 0)
	c1.Get("a")
	c1.Get("missing")

	stats := r.Stats()
	s, ok := stats["cache1"]
	if !ok {
		t.Fatal("expected stats for cache1")
	}
	if s.Size != 1 {
		t.Errorf("Size = %d, want 1", s.Size)
	}
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
}

func TestRegistryClearAllIsEmptyWhenNothingRegistered(t *testing.T) {
	r := NewRegistry()
	results := r.ClearAll()
	if len(results) != 0 {
		t.Errorf("ClearAll() on empty registry = %v, want empty map", results)
	}
}
