package pathfinding

import (
	"context"
	"errors"
	"time"

	"voxelpath/internal/world"
)

// ErrBlockUnreadable is returned when a loaded chunk cannot produce a block.
var ErrBlockUnreadable = errors.New("block unreadable")

// Terrain answers block queries for a search.
type Terrain interface {
	Block(ctx context.Context, coord world.BlockCoord) (world.Block, error)
	// HeightRange returns the lowest and one past the highest valid Z.
	HeightRange() (minZ, maxZ int)
	SeaLevel() int
}

// WorldTerrain reads blocks from a world.Manager, remembering the chunks it
// has resolved until Reset. It is not safe for concurrent use.
type WorldTerrain struct {
	manager *world.Manager
	region  world.ServerRegion
	chunks  map[world.ChunkCoord]*world.Chunk
}

func NewWorldTerrain(manager *world.Manager) *WorldTerrain {
	return &WorldTerrain{
		manager: manager,
		region:  manager.Region(),
		chunks:  make(map[world.ChunkCoord]*world.Chunk),
	}
}

// Reset forgets the resolved chunks.
func (t *WorldTerrain) Reset() {
	clear(t.chunks)
}

// Block returns world.Barrier with a bare sentinel error for cells it cannot
// read. Searches read past the region edge often, so nothing is formatted here.
func (t *WorldTerrain) Block(ctx context.Context, coord world.BlockCoord) (world.Block, error) {
	chunkCoord, ok := t.region.LocateBlock(coord)
	if !ok {
		return world.Barrier, world.ErrOutsideRegion
	}
	chunk, ok := t.chunks[chunkCoord]
	if !ok {
		start := time.Now()
		ch, err := t.manager.Chunk(ctx, chunkCoord)
		if err != nil {
			return world.Barrier, err
		}
		if profiler := profilerFromContext(ctx); profiler != nil {
			profiler.RecordChunkLoad(time.Since(start))
		}
		chunk = ch
		t.chunks[chunkCoord] = chunk
	}
	localX, localY, localZ, ok := chunk.GlobalToLocal(coord)
	if !ok {
		return world.Barrier, world.ErrOutsideRegion
	}
	block, ok := chunk.LocalBlock(localX, localY, localZ)
	if !ok {
		return world.Barrier, ErrBlockUnreadable
	}
	return block, nil
}

func (t *WorldTerrain) HeightRange() (int, int) {
	return 0, t.region.ChunkDimension.Height
}

func (t *WorldTerrain) SeaLevel() int {
	return t.region.SeaLevel
}
