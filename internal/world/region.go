package world

import (
	"fmt"

	"voxelpath/internal/config"
)

// ChunkCoord identifies a chunk in global chunk space.
type ChunkCoord struct {
	X int
	Y int
}

// LocalChunkIndex represents a chunk index relative to the owning region.
type LocalChunkIndex struct {
	X int
	Y int
}

// BlockCoord describes a block position in global block space. Z is vertical.
type BlockCoord struct {
	X int
	Y int
	Z int
}

// Offset returns the coordinate translated by the given deltas.
func (c BlockCoord) Offset(dx, dy, dz int) BlockCoord {
	return BlockCoord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Below returns the coordinate directly underneath.
func (c BlockCoord) Below() BlockCoord {
	return BlockCoord{X: c.X, Y: c.Y, Z: c.Z - 1}
}

// Above returns the coordinate directly overhead.
func (c BlockCoord) Above() BlockCoord {
	return BlockCoord{X: c.X, Y: c.Y, Z: c.Z + 1}
}

// Dimensions defines the size of a chunk in blocks.
type Dimensions struct {
	Width  int
	Depth  int
	Height int
}

// Bounds is an axis-aligned bounding box represented by inclusive min/max corners in block space.
type Bounds struct {
	Min BlockCoord
	Max BlockCoord
}

// Contains reports whether coord lies inside the inclusive bounds.
func (b Bounds) Contains(coord BlockCoord) bool {
	return coord.X >= b.Min.X && coord.X <= b.Max.X &&
		coord.Y >= b.Min.Y && coord.Y <= b.Max.Y &&
		coord.Z >= b.Min.Z && coord.Z <= b.Max.Z
}

// ServerRegion delineates the contiguous grid of chunks backing a world.
type ServerRegion struct {
	Origin         ChunkCoord
	ChunksPerAxis  int
	ChunkDimension Dimensions
	SeaLevel       int
}

func NewServerRegion(cfg *config.Config) ServerRegion {
	return ServerRegion{
		Origin: ChunkCoord{
			X: cfg.World.ChunkOrigin.X,
			Y: cfg.World.ChunkOrigin.Y,
		},
		ChunksPerAxis: cfg.World.ChunksPerAxis,
		ChunkDimension: Dimensions{
			Width:  cfg.World.Width,
			Depth:  cfg.World.Depth,
			Height: cfg.World.Height,
		},
		SeaLevel: cfg.World.SeaLevel,
	}
}

func (r ServerRegion) ContainsGlobalChunk(coord ChunkCoord) bool {
	return coord.X >= r.Origin.X &&
		coord.Y >= r.Origin.Y &&
		coord.X < r.Origin.X+r.ChunksPerAxis &&
		coord.Y < r.Origin.Y+r.ChunksPerAxis
}

func (r ServerRegion) LocalToGlobalChunk(local LocalChunkIndex) (ChunkCoord, error) {
	if local.X < 0 || local.Y < 0 || local.X >= r.ChunksPerAxis || local.Y >= r.ChunksPerAxis {
		return ChunkCoord{}, fmt.Errorf("local chunk index %v out of range", local)
	}
	return ChunkCoord{
		X: r.Origin.X + local.X,
		Y: r.Origin.Y + local.Y,
	}, nil
}

func (r ServerRegion) ChunkBounds(global ChunkCoord) (Bounds, error) {
	if !r.ContainsGlobalChunk(global) {
		return Bounds{}, fmt.Errorf("chunk %v outside region", global)
	}

	min := BlockCoord{
		X: global.X * r.ChunkDimension.Width,
		Y: global.Y * r.ChunkDimension.Depth,
		Z: 0,
	}
	max := BlockCoord{
		X: min.X + r.ChunkDimension.Width - 1,
		Y: min.Y + r.ChunkDimension.Depth - 1,
		Z: r.ChunkDimension.Height - 1,
	}
	return Bounds{Min: min, Max: max}, nil
}

// BlockBounds returns the block-space extent of the whole region.
func (r ServerRegion) BlockBounds() Bounds {
	return Bounds{
		Min: BlockCoord{
			X: r.Origin.X * r.ChunkDimension.Width,
			Y: r.Origin.Y * r.ChunkDimension.Depth,
			Z: 0,
		},
		Max: BlockCoord{
			X: (r.Origin.X+r.ChunksPerAxis)*r.ChunkDimension.Width - 1,
			Y: (r.Origin.Y+r.ChunksPerAxis)*r.ChunkDimension.Depth - 1,
			Z: r.ChunkDimension.Height - 1,
		},
	}
}

func (r ServerRegion) LocateBlock(block BlockCoord) (ChunkCoord, bool) {
	if block.Z < 0 || block.Z >= r.ChunkDimension.Height {
		return ChunkCoord{}, false
	}
	chunk := ChunkCoord{
		X: floorDiv(block.X, r.ChunkDimension.Width),
		Y: floorDiv(block.Y, r.ChunkDimension.Depth),
	}
	return chunk, r.ContainsGlobalChunk(chunk)
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
