package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// Agent describes the shape and abilities of whatever is searching. Positions
// are continuous block-space coordinates with Z pointing up; X/Y mark the
// centre of the bounding box and Z its bottom.
type Agent struct {
	X, Y, Z float64
	Width   float64
	Height  float64

	OnGround bool
	InWater  bool

	MaxUpStep       float64
	MaxFallDistance int

	CanOpenDoors           bool
	CanPassDoors           bool
	CanFloat               bool
	CanWalkOverFences      bool
	AllowBreaching         bool
	PrefersShallowSwimming bool

	// FluidWalker is a fluid the agent can stand on top of (lava for striders).
	FluidWalker world.Fluid

	Malus *MalusTable
}

// BlockPosition returns the cell containing the agent's feet.
func (a *Agent) BlockPosition() world.BlockCoord {
	return world.BlockCoord{
		X: int(math.Floor(a.X)),
		Y: int(math.Floor(a.Y)),
		Z: int(math.Floor(a.Z)),
	}
}

// Bounds returns the agent's bounding box at its current position.
func (a *Agent) Bounds() AABB {
	half := a.Width / 2
	return AABB{
		MinX: a.X - half, MinY: a.Y - half, MinZ: a.Z,
		MaxX: a.X + half, MaxY: a.Y + half, MaxZ: a.Z + a.Height,
	}
}

// PathfindingMalus returns the agent's effective malus for t.
func (a *Agent) PathfindingMalus(t PathType) float32 {
	return a.Malus.Get(t)
}

// SetPathfindingMalus overrides the malus for t, allocating a table if needed.
func (a *Agent) SetPathfindingMalus(t PathType, malus float32) {
	a.malusTable().Set(t, malus)
}

func (a *Agent) malusTable() *MalusTable {
	if a.Malus == nil {
		a.Malus = NewMalusTable()
	}
	return a.Malus
}

func (a *Agent) canStandOn(f world.Fluid) bool {
	return f != world.FluidNone && a.FluidWalker == f
}

// footprint is the number of cells the agent spans along each axis.
func (a *Agent) footprint() (width, height, depth int) {
	width = int(math.Floor(a.Width + 1))
	height = int(math.Floor(a.Height + 1))
	return width, height, width
}

// AABB is an axis-aligned box in continuous block space.
type AABB struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

func (b AABB) Move(dx, dy, dz float64) AABB {
	return AABB{
		MinX: b.MinX + dx, MinY: b.MinY + dy, MinZ: b.MinZ + dz,
		MaxX: b.MaxX + dx, MaxY: b.MaxY + dy, MaxZ: b.MaxZ + dz,
	}
}

// Size is the mean edge length of the box.
func (b AABB) Size() float64 {
	return ((b.MaxX - b.MinX) + (b.MaxY - b.MinY) + (b.MaxZ - b.MinZ)) / 3
}

// Intersects reports whether two boxes overlap with positive volume.
func (b AABB) Intersects(o AABB) bool {
	return b.MinX < o.MaxX && b.MaxX > o.MinX &&
		b.MinY < o.MaxY && b.MaxY > o.MinY &&
		b.MinZ < o.MaxZ && b.MaxZ > o.MinZ
}
