package pathfinding

import (
	"context"
	"math"

	"voxelpath/internal/world"
)

// SearchContext mediates every terrain query made during one search.
type SearchContext struct {
	ctx      context.Context
	terrain  Terrain
	cache    *ClassificationCache
	anchor   world.BlockCoord
	profiler NavigatorProfiler
	minZ     int
	maxZ     int
	seaLevel int
}

// NewSearchContext binds a terrain and an optional classification cache to
// the agent about to search. A nil cache recomputes every classification.
func NewSearchContext(ctx context.Context, terrain Terrain, cache *ClassificationCache, agent *Agent) *SearchContext {
	if ctx == nil {
		ctx = context.Background()
	}
	sc := &SearchContext{
		ctx:      ctx,
		terrain:  terrain,
		cache:    cache,
		profiler: profilerFromContext(ctx),
	}
	if agent != nil {
		sc.anchor = agent.BlockPosition()
	}
	if terrain != nil {
		sc.minZ, sc.maxZ = terrain.HeightRange()
		sc.seaLevel = terrain.SeaLevel()
	}
	return sc
}

func (sc *SearchContext) Context() context.Context {
	return sc.ctx
}

// Anchor is the cell the agent stood in when the search began.
func (sc *SearchContext) Anchor() world.BlockCoord {
	return sc.anchor
}

func (sc *SearchContext) HeightRange() (int, int) {
	return sc.minZ, sc.maxZ
}

func (sc *SearchContext) SeaLevel() int {
	return sc.seaLevel
}

// BlockAt reads a block straight from the terrain. Anything the terrain cannot
// answer reads as world.Barrier so unloaded areas are impassable rather than
// fatal to the search.
func (sc *SearchContext) BlockAt(coord world.BlockCoord) world.Block {
	if sc.terrain == nil {
		return world.Barrier
	}
	block, err := sc.terrain.Block(sc.ctx, coord)
	if err != nil {
		if sc.profiler != nil {
			sc.profiler.RecordTerrainFailure()
		}
		return world.Barrier
	}
	return block
}

// Classify returns the agent-independent static classification of a cell,
// served from the cache when one is attached.
func (sc *SearchContext) Classify(x, y, z int) PathType {
	if sc.cache == nil {
		return staticPathType(sc, x, y, z)
	}
	t, hit := sc.cache.getOrCompute(x, y, z, func() PathType {
		return staticPathType(sc, x, y, z)
	})
	if sc.profiler != nil {
		if hit {
			sc.profiler.RecordCacheHit()
		} else {
			sc.profiler.RecordCacheMiss()
		}
	}
	return t
}

// rawType classifies the block in a single cell without looking at its
// surroundings.
func (sc *SearchContext) rawType(x, y, z int) PathType {
	return rawPathType(sc.BlockAt(world.BlockCoord{X: x, Y: y, Z: z}))
}

// Collides reports whether the box overlaps the collision volume of any block.
func (sc *SearchContext) Collides(box AABB) bool {
	minX, maxX := int(math.Floor(box.MinX)), int(math.Ceil(box.MaxX))-1
	minY, maxY := int(math.Floor(box.MinY)), int(math.Ceil(box.MaxY))-1
	// Fences and walls reach up into the cell above them.
	minZ, maxZ := int(math.Floor(box.MinZ))-1, int(math.Ceil(box.MaxZ))-1
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				height := sc.BlockAt(world.BlockCoord{X: x, Y: y, Z: z}).CollisionHeight()
				if height <= 0 {
					continue
				}
				cell := AABB{
					MinX: float64(x), MinY: float64(y), MinZ: float64(z),
					MaxX: float64(x + 1), MaxY: float64(y + 1), MaxZ: float64(z) + height,
				}
				if cell.Intersects(box) {
					return true
				}
			}
		}
	}
	return false
}
