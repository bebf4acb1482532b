package cache

import (
	"sync"

	"github.com/nclsjn/youtubingest/pkg/logger"
)

// Handle is the uniform trait every owned cache exposes to the registry,
// regardless of its key/value types.
type Handle interface {
	Name() string
	Clear() int
	Size() int
	StatsSnapshot() Stats
	EvictPercent() int
}

// Priority is the pressure-clear drain order: transcripts first, search
// pages next, metadata next, token cache last.
type Priority int

const (
	PriorityTranscript Priority = iota
	PrioritySearchPage
	PriorityMetadata
	PriorityToken
)

type registration struct {
	handle   Handle
	priority Priority
}

// Registry is the process-wide collection of caches that can be swept under
// memory pressure. Each cache registers itself once at construction time;
// registration and lookup are synchronized by one mutex.
type Registry struct {
	mu    sync.Mutex
	byName map[string]registration
}

// NewRegistry builds an empty registry. Production code uses the
// package-level Default registry; tests build their own for isolation.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]registration)}
}

// Default is the process-wide registry used outside of tests.
var Default = NewRegistry()

// Register adds a cache handle under the given priority. Registering a name
// twice replaces the previous handle (idempotent re-registration, useful
// when a component is reconstructed in tests).
func (r *Registry) Register(h Handle, priority Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[h.Name()] = registration{handle: h, priority: priority}
}

// ClearAll clears every registered cache and returns the number of entries
// evicted per cache name. A single cache panicking during clear is logged
// and does not abort the sweep.
func (r *Registry) ClearAll() map[string]int {
	r.mu.Lock()
	snapshot := make([]registration, 0, len(r.byName))
	for _, reg := range r.byName {
		snapshot = append(snapshot, reg)
	}
	r.mu.Unlock()

	results := make(map[string]int, len(snapshot))
	for _, reg := range snapshot {
		results[reg.handle.Name()] = safeClear(reg.handle)
	}
	return results
}

// PressureClear drains caches in declared priority order until either all
// caches are empty or abated reports that memory pressure has subsided.
// Each priority tier is fully cleared before the next tier is touched.
func (r *Registry) PressureClear(abated func() bool) map[string]int {
	r.mu.Lock()
	tiers := map[Priority][]Handle{}
	for _, reg := range r.byName {
		tiers[reg.priority] = append(tiers[reg.priority], reg.handle)
	}
	r.mu.Unlock()

	results := make(map[string]int)
	order := []Priority{PriorityTranscript, PrioritySearchPage, PriorityMetadata, PriorityToken}
	for _, tier := range order {
		for _, h := range tiers[tier] {
			if abated != nil && abated() {
				return results
			}
			results[h.Name()] += safeClear(h)
		}
	}
	return results
}

// Stats returns the current Stats for every registered cache, keyed by name.
func (r *Registry) Stats() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Stats, len(r.byName))
	for name, reg := range r.byName {
		out[name] = reg.handle.StatsSnapshot()
	}
	return out
}

func safeClear(h Handle) int {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Named("cache").Sugar().Warnf("cache %q panicked during clear: %v", h.Name(), rec)
		}
	}()
	n := h.Clear()
	return n
}
