// ABOUTME: Bounded-memory audio cache with single-flight decode
// ABOUTME: Reference-counted entries, LRU eviction, soft byte budget
package cache

import (
	"container/list"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
	"github.com/sonicdeck/sonicdeck-go/internal/loudness"
	"github.com/sonicdeck/sonicdeck-go/internal/waveform"
)

// DefaultBudget is the soft resident-memory target for decoded audio.
const DefaultBudget = 256 << 20

// Loader decodes a file into a PCM buffer. Production wiring uses
// decode.File; tests inject counting loaders.
type Loader func(path string) (*audio.Buffer, error)

// Entry is one decoded sound with its analysis results. Entries are owned
// by the cache and reach sessions only through reference-counted handles.
type Entry struct {
	Buffer      *audio.Buffer
	Loudness    loudness.Measurement
	HasLoudness bool
	Peaks       []float32

	fp   fingerprint
	size int64
	refs int
	elem *list.Element
}

// Handle is a shared reference to a cache entry. Holding a handle pins the
// entry's buffer in memory regardless of eviction; Release is idempotent.
type Handle struct {
	c    *Cache
	e    *Entry
	once sync.Once
}

// Entry returns the referenced entry.
func (h *Handle) Entry() *Entry { return h.e }

// Release drops this reference. The buffer stays valid for any other
// outstanding handle.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.c.release(h.e)
	})
}

// Stats is a snapshot of cache behavior.
type Stats struct {
	Entries        int
	ResidentBytes  int64
	Budget         int64
	Hits           int64
	Misses         int64
	Evictions      int64
	BudgetExceeded int64
}

// Cache stores decoded audio keyed by file path, bounded by a soft memory
// budget. Lookups for the same on-disk file version single-flight the decode.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry // keyed by path
	lru      *list.List        // front = most recently used; holds *Entry
	resident int64
	budget   int64
	loader   Loader
	flight   singleflight.Group
	stats    Stats
}

// New creates a cache with the given byte budget. A budget <= 0 uses
// DefaultBudget.
func New(budget int64, loader Loader) *Cache {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Cache{
		entries: make(map[string]*Entry),
		lru:     list.New(),
		budget:  budget,
		loader:  loader,
	}
}

// GetOrDecode returns a handle for the current on-disk version of path,
// decoding and analyzing it on a miss. Concurrent callers for the same file
// version share one decode. Decode failures are never cached; the next call
// retries.
func (c *Cache) GetOrDecode(path string) (*Handle, error) {
	for attempt := 0; ; attempt++ {
		fp, err := fingerprintFile(path)
		if err != nil {
			return nil, err
		}

		if h := c.acquire(fp, attempt == 0); h != nil {
			return h, nil
		}

		if attempt >= 2 {
			// Eviction pressure keeps removing the entry between insert
			// and acquire. Decode once more and hand the caller an
			// uncached entry rather than loop.
			e, err := c.build(fp)
			if err != nil {
				return nil, err
			}
			e.refs = 1
			return &Handle{c: c, e: e}, nil
		}

		_, err, _ = c.flight.Do(fp.key(), func() (interface{}, error) {
			e, err := c.build(fp)
			if err != nil {
				return nil, err
			}
			c.insert(e)
			return e, nil
		})
		if err != nil {
			return nil, err
		}
	}
}

// acquire returns a handle if a fresh entry exists, promoting it to most
// recently used. A stale entry (fingerprint mismatch) is detached; any live
// handles keep its buffer alive until they release. Hit/miss counters only
// record the caller's first attempt, not re-acquisition after a decode.
func (c *Cache) acquire(fp fingerprint, record bool) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp.path]
	if ok && e.fp != fp {
		c.detachLocked(e)
		ok = false
	}
	if !ok {
		if record {
			c.stats.Misses++
		}
		return nil
	}

	c.lru.MoveToFront(e.elem)
	e.refs++
	if record {
		c.stats.Hits++
	}
	return &Handle{c: c, e: e}
}

// build decodes and analyzes one file. Runs outside the cache lock.
func (c *Cache) build(fp fingerprint) (*Entry, error) {
	buf, err := c.loader(fp.path)
	if err != nil {
		return nil, err
	}

	m, ok := loudness.Measure(buf)
	if ok && m.LowReliability {
		log.Printf("Loudness measurement for %s is low reliability (clip under 1s)", fp.path)
	}

	return &Entry{
		Buffer:      buf,
		Loudness:    m,
		HasLoudness: ok,
		Peaks:       waveform.Extract(buf, waveform.DefaultPeaks),
		fp:          fp,
		size:        buf.SizeBytes(),
	}, nil
}

// insert adds an entry, evicting unreferenced entries from the LRU tail
// until the budget holds. If the budget still cannot hold the new entry it
// is inserted anyway: the budget is a soft target, never a hard failure.
func (c *Cache) insert(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[e.fp.path]; ok {
		c.detachLocked(old)
	}

	for c.resident+e.size > c.budget {
		if !c.evictOldestLocked() {
			break
		}
	}

	if c.resident+e.size > c.budget {
		c.stats.BudgetExceeded++
		log.Printf("Audio cache budget exceeded: %s needs %d bytes, %d resident of %d budget",
			e.fp.path, e.size, c.resident, c.budget)
	}

	e.elem = c.lru.PushFront(e)
	c.entries[e.fp.path] = e
	c.resident += e.size
}

// evictOldestLocked removes the least recently used unreferenced entry.
// Returns false when nothing is evictable.
func (c *Cache) evictOldestLocked() bool {
	for elem := c.lru.Back(); elem != nil; elem = elem.Prev() {
		e := elem.Value.(*Entry)
		if e.refs > 0 {
			continue
		}
		c.detachLocked(e)
		c.stats.Evictions++
		return true
	}
	return false
}

// detachLocked removes an entry from the cache's index and accounting. The
// entry's buffer is freed only when the last handle releases it.
func (c *Cache) detachLocked(e *Entry) {
	if e.elem != nil {
		c.lru.Remove(e.elem)
		e.elem = nil
	}
	if cur, ok := c.entries[e.fp.path]; ok && cur == e {
		delete(c.entries, e.fp.path)
	}
	c.resident -= e.size
}

func (c *Cache) release(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.refs > 0 {
		e.refs--
	}
}

// Clear drops every entry. Outstanding handles keep their buffers valid.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.elem != nil {
			c.lru.Remove(e.elem)
			e.elem = nil
		}
	}
	c.entries = make(map[string]*Entry)
	c.resident = 0
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.entries)
	s.ResidentBytes = c.resident
	s.Budget = c.budget
	return s
}
