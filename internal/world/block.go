package world

// Block is a single voxel. The zero value is air.
type Block struct {
	Material Material
	// Open applies to doors, trapdoors and fence gates.
	Open bool
	// Waterlogged blocks carry a water fluid alongside their material.
	Waterlogged bool
}

// Barrier is reported for coordinates whose backing data is unavailable. It is
// a full solid block so that anything unloaded reads as impassable.
var Barrier = Block{Material: MaterialBarrier}

// IsAir reports whether the block is empty space with no fluid.
func (b Block) IsAir() bool {
	return b.Material == MaterialAir && !b.Waterlogged
}

// Fluid returns the liquid held by the block.
func (b Block) Fluid() Fluid {
	switch {
	case b.Material == MaterialWater, b.Material == MaterialSeagrass, b.Waterlogged:
		return FluidWater
	case b.Material == MaterialLava:
		return FluidLava
	default:
		return FluidNone
	}
}

// CollisionHeight is the top of the block's collision box relative to the
// bottom of its cell. Zero means the block has no collision.
func (b Block) CollisionHeight() float64 {
	info := b.Material.info()
	if info.openable && b.Open {
		return 0
	}
	return info.collision
}

// HasCollision reports whether agents collide with the block at all.
func (b Block) HasCollision() bool {
	return b.CollisionHeight() > 0
}

// IsFullBlock reports whether the block fills its whole cell.
func (b Block) IsFullBlock() bool {
	info := b.Material.info()
	if info.openable {
		return false
	}
	return info.collision >= 1 && !b.Material.IsFenceLike()
}

// LandPathfindable reports whether a land agent may stand inside the cell.
func (b Block) LandPathfindable() bool {
	info := b.Material.info()
	if info.openable {
		return b.Open
	}
	return info.pathfindable
}

// WaterPathfindable reports whether a swimming agent may occupy the cell.
func (b Block) WaterPathfindable() bool {
	return b.Fluid() == FluidWater && !b.IsFullBlock()
}

// Burning reports whether standing next to the block sets agents alight.
func (b Block) Burning() bool {
	return b.Material.info().burning
}
