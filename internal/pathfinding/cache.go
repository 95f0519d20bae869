package pathfinding

import "voxelpath/internal/world"

// DefaultCacheSlots is the classification cache size used when none is given.
const DefaultCacheSlots = 4096

const (
	packXYBits = 26
	packZBits  = 12
	packXYMask = 1<<packXYBits - 1
	packZMask  = 1<<packZBits - 1
)

// ClassificationCache is a direct-mapped table from cell to static
// classification. A slot holds one coordinate; a collision simply evicts the
// previous entry. The cache is not synchronized.
type ClassificationCache struct {
	entries []cacheEntry
	mask    uint64
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key   int64
	t     PathType
	valid bool
}

// CacheStats reports lookup outcomes since the cache was created.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// NewClassificationCache allocates a cache with slots rounded up to a power
// of two. Non-positive sizes use DefaultCacheSlots.
func NewClassificationCache(slots int) *ClassificationCache {
	if slots <= 0 {
		slots = DefaultCacheSlots
	}
	size := 1
	for size < slots {
		size <<= 1
	}
	return &ClassificationCache{
		entries: make([]cacheEntry, size),
		mask:    uint64(size - 1),
	}
}

func (c *ClassificationCache) Slots() int {
	return len(c.entries)
}

// getOrCompute returns the cached classification, filling the slot with
// compute on a miss. hit reports whether compute was skipped.
func (c *ClassificationCache) getOrCompute(x, y, z int, compute func() PathType) (t PathType, hit bool) {
	key, ok := packCoord(x, y, z)
	if !ok {
		return compute(), false
	}
	slot := &c.entries[c.slot(key)]
	if slot.valid && slot.key == key {
		c.hits++
		return slot.t, true
	}
	c.misses++
	t = compute()
	*slot = cacheEntry{key: key, t: t, valid: true}
	return t, false
}

// Invalidate drops the entry for a single cell.
func (c *ClassificationCache) Invalidate(coord world.BlockCoord) {
	key, ok := packCoord(coord.X, coord.Y, coord.Z)
	if !ok {
		return
	}
	slot := &c.entries[c.slot(key)]
	if slot.valid && slot.key == key {
		*slot = cacheEntry{}
	}
}

// InvalidateAround drops the cell and its 26 neighbours. A cell's static
// classification depends on the block below it and on every adjacent block,
// so a single change can affect the whole 3x3x3 cube.
func (c *ClassificationCache) InvalidateAround(coord world.BlockCoord) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				c.Invalidate(coord.Offset(dx, dy, dz))
			}
		}
	}
}

// Clear drops every entry.
func (c *ClassificationCache) Clear() {
	clear(c.entries)
}

func (c *ClassificationCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

func (c *ClassificationCache) slot(key int64) uint64 {
	h := uint64(key) * 0x9e3779b97f4a7c15
	h ^= h >> 32
	h ^= h >> 16
	return h & c.mask
}

func packCoord(x, y, z int) (int64, bool) {
	const (
		xyLimit = 1 << (packXYBits - 1)
		zLimit  = 1 << (packZBits - 1)
	)
	if x < -xyLimit || x >= xyLimit || y < -xyLimit || y >= xyLimit || z < -zLimit || z >= zLimit {
		return 0, false
	}
	return int64(x&packXYMask)<<(packXYBits+packZBits) |
		int64(y&packXYMask)<<packZBits |
		int64(z&packZMask), true
}
