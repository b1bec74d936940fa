package executor

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/born-ml/dataflow/internal/graph"
)

// DefaultCacheMaxEntries is the plan cache capacity used by DefaultPlanCache.
const DefaultCacheMaxEntries = 100

// Plan is a memoized evaluation order with its consumer counts.
// Plans are shared between executions and must not be mutated.
type Plan struct {
	Sorted []*graph.SymbolicTensor
	Counts RecipientCounts
}

// CacheStats reports plan cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// PlanCache is an LRU of plans keyed by graph, fetch names and feed names.
// It is safe for concurrent use.
type PlanCache struct {
	lru    *lru.Cache[string, *Plan]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewPlanCache creates a cache holding at most maxEntries plans.
func NewPlanCache(maxEntries int) (*PlanCache, error) {
	c, err := lru.New[string, *Plan](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("plan cache: %w", err)
	}
	return &PlanCache{lru: c}, nil
}

// Get returns the plan stored under key.
func (c *PlanCache) Get(key string) (*Plan, bool) {
	p, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return p, ok
}

// Add stores a plan, evicting the least recently used one if full.
func (c *PlanCache) Add(key string, p *Plan) {
	c.lru.Add(key, p)
}

// SetMaxEntries changes the capacity, evicting the oldest plans if needed.
func (c *PlanCache) SetMaxEntries(n int) error {
	if n < 1 {
		return fmt.Errorf("plan cache: max entries must be positive, got %d", n)
	}
	c.lru.Resize(n)
	return nil
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int {
	return c.lru.Len()
}

// Purge removes all plans.
func (c *PlanCache) Purge() {
	c.lru.Purge()
}

// Stats returns hit/miss counters and the current size.
func (c *PlanCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}

// Key separators. Names are user supplied, so control characters are used.
const (
	keyItemSep  = "\x1f"
	keyGroupSep = "\x1e"
)

// planKey builds the cache key for a fetch/feed shape. The key does not
// depend on the order of fetches or feeds.
func planKey(fetches []*graph.SymbolicTensor, feed *FeedDict) string {
	fetchNames := make([]string, len(fetches))
	for i, f := range fetches {
		fetchNames[i] = f.Name
	}
	sort.Strings(fetchNames)

	var feedNames []string
	if feed != nil {
		feedNames = feed.Names()
	}
	sort.Strings(feedNames)

	var graphID string
	if len(fetches) > 0 && fetches[0].Graph != nil {
		graphID = fetches[0].Graph.ID().String()
	}

	return graphID + keyGroupSep +
		strings.Join(fetchNames, keyItemSep) + keyGroupSep +
		strings.Join(feedNames, keyItemSep)
}

var defaultPlanCache = mustPlanCache(DefaultCacheMaxEntries)

func mustPlanCache(n int) *PlanCache {
	c, err := NewPlanCache(n)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultPlanCache returns the process-wide plan cache used by executors
// created without WithPlanCache.
func DefaultPlanCache() *PlanCache {
	return defaultPlanCache
}

// UpdateCacheMaxEntries resizes the process-wide plan cache.
func UpdateCacheMaxEntries(n int) error {
	return defaultPlanCache.SetMaxEntries(n)
}
