package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// flyOffsets lists the 26 neighbour offsets with single-axis moves first,
// then edges, then corners, so every gate is resolved before it is needed.
var flyOffsets = func() []direction {
	offsets := make([]direction, 0, 26)
	for axes := 1; axes <= 3; axes++ {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					if abs(dx)+abs(dy)+abs(dz) == axes {
						offsets = append(offsets, direction{dx, dy, dz})
					}
				}
			}
		}
	}
	return offsets
}()

func offsetSlot(dx, dy, dz int) int {
	return (dx+1)*9 + (dy+1)*3 + (dz + 1)
}

// Flyer moves through open air in all 26 directions. Edge and corner moves
// need every cell they would brush past to be passable.
type Flyer struct {
	evaluator
	around [27]*Node
}

func NewFlyer() *Flyer {
	return &Flyer{}
}

func (f *Flyer) Prepare(sc *SearchContext, agent *Agent, pool *NodePool) {
	f.prepare(sc, agent, pool, func(x, y, z int) PathType {
		return footprintPathType(f.sc, f.agent, x, y, z, func(x, y, z int) PathType {
			return f.PathType(f.sc, x, y, z)
		})
	})
	f.saveMalus(PathWater)
}

func (f *Flyer) Done() {
	f.done()
	f.around = [27]*Node{}
}

func (f *Flyer) Start() *Node {
	a := f.agent
	pos := a.BlockPosition()
	var z int
	if a.CanFloat && a.InWater {
		_, maxZ := f.sc.HeightRange()
		z = pos.Z
		for z < maxZ && f.sc.BlockAt(world.BlockCoord{X: pos.X, Y: pos.Y, Z: z}).Fluid() == world.FluidWater {
			z++
		}
	} else {
		z = int(math.Floor(a.Z + 0.5))
	}

	start := world.BlockCoord{X: pos.X, Y: pos.Y, Z: z}
	if !f.canStartAt(start) {
		for _, corner := range f.boxCorners(z) {
			if f.canStartAt(corner) {
				return f.startNode(corner)
			}
		}
		return nil
	}
	return f.startNode(start)
}

func (f *Flyer) canStartAt(c world.BlockCoord) bool {
	return f.malus(f.cachedType(c.X, c.Y, c.Z)) >= 0
}

func (f *Flyer) Target(x, y, z float64) *Target {
	return f.target(x, y, z)
}

func (f *Flyer) Neighbors(out []*Node, n *Node) int {
	f.around = [27]*Node{}
	count := 0
	for _, off := range flyOffsets {
		if !f.gatesOpen(off) {
			continue
		}
		nb := f.findAcceptedNode(n.X+off.dx, n.Y+off.dy, n.Z+off.dz)
		f.around[offsetSlot(off.dx, off.dy, off.dz)] = nb
		if isOpenNode(nb) {
			out[count] = nb
			count++
		}
	}
	return count
}

// gatesOpen reports whether every move that off is composed of has been
// accepted with a usable malus.
func (f *Flyer) gatesOpen(off direction) bool {
	components := [3]direction{{off.dx, 0, 0}, {0, off.dy, 0}, {0, 0, off.dz}}
	for mask := 1; mask < 7; mask++ {
		var sub direction
		parts := 0
		for i, c := range components {
			if mask&(1<<i) == 0 {
				continue
			}
			if c == (direction{}) {
				parts = -1
				break
			}
			sub.dx += c.dx
			sub.dy += c.dy
			sub.dz += c.dz
			parts++
		}
		if parts <= 0 || sub == off {
			continue
		}
		if !hasMalus(f.around[offsetSlot(sub.dx, sub.dy, sub.dz)]) {
			return false
		}
	}
	return true
}

func (f *Flyer) findAcceptedNode(x, y, z int) *Node {
	t := f.cachedType(x, y, z)
	malus := f.malus(t)
	if malus < 0 {
		return nil
	}
	if t == PathWalkable {
		malus++
	}
	return f.nodeWithMaxCost(x, y, z, t, malus)
}

// PathType classifies a cell for flight. Open air is judged by what lies
// beneath it: hazards below make it dangerous and solid ground walkable.
func (f *Flyer) PathType(sc *SearchContext, x, y, z int) PathType {
	t := sc.rawType(x, y, z)
	if t == PathOpen && z >= sc.minZ+1 {
		switch below := sc.rawType(x, y, z-1); below {
		case PathDamageFire, PathLava:
			t = PathDamageFire
		case PathDamageOther:
			t = PathDamageOther
		case PathCocoa:
			t = PathCocoa
		case PathFence:
			if sc.Anchor() != (world.BlockCoord{X: x, Y: y, Z: z}) {
				t = PathFence
			}
		case PathWalkable, PathOpen, PathWater:
			t = PathOpen
		default:
			t = PathWalkable
		}
	}
	if t == PathWalkable || t == PathOpen {
		t = neighbourDanger(sc, x, y, z, t)
	}
	return t
}

func (f *Flyer) MobilityPathType(sc *SearchContext, x, y, z int) PathType {
	if !f.prepared() {
		return f.PathType(sc, x, y, z)
	}
	return f.cachedType(x, y, z)
}
