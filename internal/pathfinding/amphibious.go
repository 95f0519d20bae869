package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// shallowDepth is how far below sea level water starts costing extra for
// agents that prefer shallow swimming.
const shallowDepth = 10

// Amphibian walks on land and swims freely, including straight up and down
// through water. It reuses a Walker for everything on land.
type Amphibian struct {
	walker *Walker
}

func NewAmphibian() *Amphibian {
	a := &Amphibian{walker: NewWalker()}
	a.walker.amphibious = true
	a.walker.cellType = func(x, y, z int) PathType {
		return a.PathType(a.walker.sc, x, y, z)
	}
	return a
}

func (a *Amphibian) Prepare(sc *SearchContext, agent *Agent, pool *NodePool) {
	a.walker.Prepare(sc, agent, pool)
	a.walker.overrideMalus(PathWater, 0)
	a.walker.overrideMalus(PathWalkable, 6)
	a.walker.overrideMalus(PathWaterBorder, 4)
}

func (a *Amphibian) Done() {
	a.walker.Done()
}

func (a *Amphibian) Start() *Node {
	agent := a.walker.agent
	if !agent.InWater {
		return a.walker.Start()
	}
	box := agent.Bounds()
	return a.walker.startNode(world.BlockCoord{
		X: int(math.Floor(box.MinX)),
		Y: int(math.Floor(box.MinY)),
		Z: int(math.Floor(box.MinZ + 0.5)),
	})
}

func (a *Amphibian) Target(x, y, z float64) *Target {
	return a.walker.target(x, y, math.Floor(z+0.5))
}

func (a *Amphibian) Neighbors(out []*Node, n *Node) int {
	w := a.walker
	count := w.Neighbors(out, n)

	here := w.cachedType(n.X, n.Y, n.Z)
	step := w.stepHeight(n)
	floor := w.floorLevel(n.Coord())

	up := w.findAcceptedNode(n.X, n.Y, n.Z+1, max(0, step-1), floor, dirUp, here)
	down := w.findAcceptedNode(n.X, n.Y, n.Z-1, step, floor, dirDown, here)
	if w.isNeighborValid(up, n) && up.Type == PathWater {
		out[count] = up
		count++
	}
	if w.isNeighborValid(down, n) && down.Type == PathWater && here != PathTrapdoor {
		out[count] = down
		count++
	}

	if w.agent.PrefersShallowSwimming {
		deep := w.sc.SeaLevel() - shallowDepth
		penalty := w.malus(PathWater) + 1
		for _, nb := range out[:count] {
			if nb.Type == PathWater && nb.Z < deep && nb.CostMalus < penalty {
				nb.CostMalus = penalty
			}
		}
	}
	return count
}

// PathType treats water touching a solid face as a water border and defers
// to the walking classification everywhere else.
func (a *Amphibian) PathType(sc *SearchContext, x, y, z int) PathType {
	if sc.rawType(x, y, z) != PathWater {
		return sc.Classify(x, y, z)
	}
	for _, dir := range axisDirections {
		if sc.rawType(x+dir.dx, y+dir.dy, z+dir.dz) == PathBlocked {
			return PathWaterBorder
		}
	}
	return PathWater
}

func (a *Amphibian) MobilityPathType(sc *SearchContext, x, y, z int) PathType {
	if !a.walker.prepared() {
		return a.PathType(sc, x, y, z)
	}
	return a.walker.cachedType(x, y, z)
}
