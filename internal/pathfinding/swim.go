package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// breachMalus is added to nodes that leave the water entirely.
const breachMalus = 8

// Swimmer keeps agents submerged, optionally letting them breach the surface.
type Swimmer struct {
	evaluator
	axis [6]*Node
}

func NewSwimmer() *Swimmer {
	return &Swimmer{}
}

func (s *Swimmer) Prepare(sc *SearchContext, agent *Agent, pool *NodePool) {
	s.prepare(sc, agent, pool, func(x, y, z int) PathType {
		return s.footprintType(x, y, z)
	})
	s.overrideMalus(PathWater, 0)
}

func (s *Swimmer) Done() {
	s.done()
	s.axis = [6]*Node{}
}

func (s *Swimmer) Start() *Node {
	box := s.agent.Bounds()
	return s.startNode(world.BlockCoord{
		X: int(math.Floor(box.MinX)),
		Y: int(math.Floor(box.MinY)),
		Z: int(math.Floor(box.MinZ + 0.5)),
	})
}

func (s *Swimmer) Target(x, y, z float64) *Target {
	return s.target(x, y, z)
}

func (s *Swimmer) Neighbors(out []*Node, n *Node) int {
	count := 0
	for i, dir := range axisDirections {
		nb := s.findAcceptedNode(n.X+dir.dx, n.Y+dir.dy, n.Z+dir.dz)
		s.axis[i] = nb
		if isOpenNode(nb) {
			out[count] = nb
			count++
		}
	}

	for i, dir := range horizontalDirections {
		cw := horizontalDirections[(i+1)%len(horizontalDirections)]
		if !hasMalus(s.axisNode(dir)) || !hasMalus(s.axisNode(cw)) {
			continue
		}
		nb := s.findAcceptedNode(n.X+dir.dx+cw.dx, n.Y+dir.dy+cw.dy, n.Z)
		if isOpenNode(nb) {
			out[count] = nb
			count++
		}
	}
	return count
}

func (s *Swimmer) axisNode(dir direction) *Node {
	for i, d := range axisDirections {
		if d == dir {
			return s.axis[i]
		}
	}
	return nil
}

func (s *Swimmer) findAcceptedNode(x, y, z int) *Node {
	t := s.cachedType(x, y, z)
	if t != PathWater && !(s.agent.AllowBreaching && t == PathBreach) {
		return nil
	}
	malus := s.malus(t)
	if malus < 0 {
		return nil
	}
	if s.sc.BlockAt(world.BlockCoord{X: x, Y: y, Z: z}).Fluid() == world.FluidNone {
		malus += breachMalus
	}
	return s.nodeWithMaxCost(x, y, z, t, malus)
}

// PathType classifies a single cell for swimming.
func (s *Swimmer) PathType(sc *SearchContext, x, y, z int) PathType {
	b := sc.BlockAt(world.BlockCoord{X: x, Y: y, Z: z})
	switch {
	case b.Fluid() == world.FluidNone && b.IsAir():
		return PathBreach
	case b.WaterPathfindable():
		return PathWater
	default:
		return PathBlocked
	}
}

func (s *Swimmer) MobilityPathType(sc *SearchContext, x, y, z int) PathType {
	if !s.prepared() {
		return s.PathType(sc, x, y, z)
	}
	return s.cachedType(x, y, z)
}

// footprintType requires every cell of the footprint to be water; an air
// pocket anywhere makes the move a breach.
func (s *Swimmer) footprintType(x, y, z int) PathType {
	width, height, depth := s.agent.footprint()
	for i := 0; i < width; i++ {
		for j := 0; j < depth; j++ {
			for k := 0; k < height; k++ {
				b := s.sc.BlockAt(world.BlockCoord{X: x + i, Y: y + j, Z: z + k})
				if b.Fluid() == world.FluidNone && b.IsAir() {
					return PathBreach
				}
				if b.Fluid() != world.FluidWater {
					return PathBlocked
				}
			}
		}
	}
	if s.sc.BlockAt(world.BlockCoord{X: x, Y: y, Z: z}).WaterPathfindable() {
		return PathWater
	}
	return PathBlocked
}
