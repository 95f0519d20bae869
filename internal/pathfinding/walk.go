package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// Walker moves agents across solid ground. It steps up ledges within the
// agent's step height, drops down controlled falls, and only cuts corners
// when both sides of the corner are clear.
type Walker struct {
	evaluator

	// amphibious switches water handling for the Amphibian wrapper.
	amphibious bool
	// cellType overrides the per-cell classification; nil uses the static
	// classification of the search context.
	cellType func(x, y, z int) PathType

	cardinal [4]*Node
}

func NewWalker() *Walker {
	return &Walker{}
}

func (w *Walker) Prepare(sc *SearchContext, agent *Agent, pool *NodePool) {
	w.prepare(sc, agent, pool, func(x, y, z int) PathType {
		return footprintPathType(w.sc, w.agent, x, y, z, w.cellTypeAt)
	})
	w.saveMalus(PathWater)
}

func (w *Walker) Done() {
	w.done()
	w.cardinal = [4]*Node{}
}

func (w *Walker) PathType(sc *SearchContext, x, y, z int) PathType {
	return sc.Classify(x, y, z)
}

func (w *Walker) MobilityPathType(sc *SearchContext, x, y, z int) PathType {
	if !w.prepared() {
		return w.PathType(sc, x, y, z)
	}
	return w.cachedType(x, y, z)
}

func (w *Walker) cellTypeAt(x, y, z int) PathType {
	if w.cellType != nil {
		return w.cellType(x, y, z)
	}
	return w.sc.Classify(x, y, z)
}

func (w *Walker) Target(x, y, z float64) *Target {
	return w.target(x, y, z)
}

func (w *Walker) Start() *Node {
	a := w.agent
	sc := w.sc
	pos := a.BlockPosition()
	minZ, maxZ := sc.HeightRange()
	z := pos.Z

	column := func(z int) world.Block {
		return sc.BlockAt(world.BlockCoord{X: pos.X, Y: pos.Y, Z: z})
	}

	switch block := column(z); {
	case a.canStandOn(block.Fluid()):
		for z < maxZ && a.canStandOn(column(z).Fluid()) {
			z++
		}
		z--
	case a.CanFloat && a.InWater:
		for z < maxZ && column(z).Fluid() == world.FluidWater {
			z++
		}
		z--
	case a.OnGround:
		z = int(math.Floor(a.Z + 0.5))
	default:
		for z > minZ {
			b := column(z)
			if !b.IsAir() && !b.LandPathfindable() {
				break
			}
			z--
		}
		z++
	}

	start := world.BlockCoord{X: pos.X, Y: pos.Y, Z: z}
	if !w.canStartAt(start) {
		for _, corner := range w.boxCorners(z) {
			if w.canStartAt(corner) {
				return w.startNode(corner)
			}
		}
	}
	node := w.startNode(start)
	if node.CostMalus < 0 {
		return nil
	}
	return node
}

func (w *Walker) canStartAt(c world.BlockCoord) bool {
	t := w.cachedType(c.X, c.Y, c.Z)
	return t != PathOpen && w.malus(t) >= 0
}

func (w *Walker) Neighbors(out []*Node, n *Node) int {
	count := 0
	step := w.stepHeight(n)
	floor := w.floorLevel(n.Coord())
	here := w.cachedType(n.X, n.Y, n.Z)

	for i, dir := range horizontalDirections {
		nb := w.findAcceptedNode(n.X+dir.dx, n.Y+dir.dy, n.Z, step, floor, dir, here)
		w.cardinal[i] = nb
		if w.isNeighborValid(nb, n) {
			out[count] = nb
			count++
		}
	}

	for i, dir := range horizontalDirections {
		j := (i + 1) % len(horizontalDirections)
		if !w.isDiagonalValid(n, w.cardinal[i], w.cardinal[j]) {
			continue
		}
		cw := horizontalDirections[j]
		nb := w.findAcceptedNode(n.X+dir.dx+cw.dx, n.Y+dir.dy+cw.dy, n.Z, step, floor, dir, here)
		if isDiagonalNodeValid(nb) {
			out[count] = nb
			count++
		}
	}
	return count
}

// stepHeight is how many cells the agent may climb from n.
func (w *Walker) stepHeight(n *Node) int {
	above := w.cachedType(n.X, n.Y, n.Z+1)
	here := w.cachedType(n.X, n.Y, n.Z)
	if w.malus(above) >= 0 && here != PathStickyHoney {
		return int(math.Floor(math.Max(1, w.agent.MaxUpStep)))
	}
	return 0
}

func (w *Walker) isNeighborValid(nb, n *Node) bool {
	return nb != nil && !nb.Closed && (nb.CostMalus >= 0 || n.CostMalus < 0)
}

// isDiagonalValid guards against cutting corners: both orthogonal cells must
// exist, sit no higher than root, and not be doors the agent would clip.
func (w *Walker) isDiagonalValid(root, a, b *Node) bool {
	if a == nil || b == nil || a.Z > root.Z || b.Z > root.Z {
		return false
	}
	if a.Type == PathWalkableDoor || b.Type == PathWalkableDoor || root.Type == PathWalkableDoor {
		return false
	}
	return (a.Z < root.Z || a.CostMalus >= 0) && (b.Z < root.Z || b.CostMalus >= 0)
}

func isDiagonalNodeValid(n *Node) bool {
	return n != nil && !n.Closed && n.Type != PathWalkableDoor && n.CostMalus >= 0
}

// floorLevel is the height an agent in cell c stands at.
func (w *Walker) floorLevel(c world.BlockCoord) float64 {
	if (w.agent.CanFloat || w.amphibious) && w.sc.BlockAt(c).Fluid() == world.FluidWater {
		return float64(c.Z) + 0.5
	}
	below := c.Below()
	return float64(below.Z) + w.sc.BlockAt(below).CollisionHeight()
}

func (w *Walker) jumpHeight() float64 {
	return math.Max(1.125, w.agent.MaxUpStep)
}

func (w *Walker) findAcceptedNode(x, y, z, step int, nodeFloor float64, dir direction, from PathType) *Node {
	if w.floorLevel(world.BlockCoord{X: x, Y: y, Z: z})-nodeFloor > w.jumpHeight() {
		return nil
	}

	var node *Node
	t := w.cachedType(x, y, z)
	malus := w.malus(t)
	if malus >= 0 {
		node = w.nodeWithMaxCost(x, y, z, t, malus)
	}
	if from.hasPartialCollision() && node != nil && node.CostMalus >= 0 && !w.canReachWithoutCollision(node) {
		node = nil
	}
	if t == PathWalkable || (w.amphibious && t == PathWater) {
		return node
	}

	switch {
	case (node == nil || node.CostMalus < 0) && step > 0 &&
		(t != PathFence || w.agent.CanWalkOverFences) &&
		t != PathUnpassableRail && t != PathTrapdoor && t != PathPowderSnow:
		return w.tryJumpOn(x, y, z, step, nodeFloor, dir, from)
	case !w.amphibious && t == PathWater && !w.agent.CanFloat:
		return w.firstNonWaterBelow(x, y, z, node)
	case t == PathOpen:
		return w.firstGroundBelow(x, y, z)
	case t.hasPartialCollision() && node == nil:
		return w.closedNode(x, y, z, t)
	}
	return node
}

// tryJumpOn accepts the cell above (x, y, z) if the agent has headroom to
// climb into it from the cell it is coming from.
func (w *Walker) tryJumpOn(x, y, z, step int, nodeFloor float64, dir direction, from PathType) *Node {
	node := w.findAcceptedNode(x, y, z+1, step-1, nodeFloor, dir, from)
	if node == nil {
		return nil
	}
	if w.agent.Width >= 1 {
		return node
	}
	if node.Type != PathOpen && node.Type != PathWalkable {
		return node
	}

	cx := float64(x-dir.dx) + 0.5
	cy := float64(y-dir.dy) + 0.5
	half := w.agent.Width / 2
	origin := world.BlockCoord{X: int(math.Floor(cx)), Y: int(math.Floor(cy)), Z: z + 1}
	box := AABB{
		MinX: cx - half,
		MinY: cy - half,
		MinZ: w.floorLevel(origin) + 0.001,
		MaxX: cx + half,
		MaxY: cy + half,
		MaxZ: w.agent.Height + w.floorLevel(node.Coord()) - 0.002,
	}
	if w.sc.Collides(box) {
		return nil
	}
	return node
}

// firstNonWaterBelow sinks through a water column.
func (w *Walker) firstNonWaterBelow(x, y, z int, node *Node) *Node {
	minZ, _ := w.sc.HeightRange()
	for z--; z > minZ; z-- {
		t := w.cachedType(x, y, z)
		if t != PathWater {
			return node
		}
		node = w.nodeWithMaxCost(x, y, z, t, w.malus(t))
	}
	return node
}

// firstGroundBelow follows a fall down to the first non-open cell. Falls
// deeper than the agent tolerates end in a blocked node.
func (w *Walker) firstGroundBelow(x, y, z int) *Node {
	minZ, _ := w.sc.HeightRange()
	for i := z - 1; i >= minZ; i-- {
		if z-i > w.agent.MaxFallDistance {
			return w.blockedNode(x, y, i)
		}
		t := w.cachedType(x, y, i)
		malus := w.malus(t)
		if t != PathOpen {
			if malus >= 0 {
				return w.nodeWithMaxCost(x, y, i, t, malus)
			}
			return w.blockedNode(x, y, i)
		}
	}
	return w.blockedNode(x, y, z)
}

func (w *Walker) blockedNode(x, y, z int) *Node {
	n := w.pool.Get(x, y, z)
	n.Type = PathBlocked
	n.CostMalus = -1
	return n
}

func (w *Walker) closedNode(x, y, z int, t PathType) *Node {
	n := w.pool.Get(x, y, z)
	n.Closed = true
	n.Type = t
	n.CostMalus = t.DefaultMalus()
	return n
}

// canReachWithoutCollision sweeps the agent's box from its current position
// towards n and reports whether it stays clear the whole way.
func (w *Walker) canReachWithoutCollision(n *Node) bool {
	box := w.agent.Bounds()
	vx := float64(n.X) - w.agent.X + (box.MaxX-box.MinX)/2
	vy := float64(n.Y) - w.agent.Y + (box.MaxY-box.MinY)/2
	vz := float64(n.Z) - w.agent.Z + (box.MaxZ-box.MinZ)/2
	size := box.Size()
	if size <= 0 {
		return true
	}
	steps := int(math.Ceil(math.Sqrt(vx*vx+vy*vy+vz*vz) / size))
	if steps <= 0 {
		return true
	}
	sx, sy, sz := vx/float64(steps), vy/float64(steps), vz/float64(steps)
	box = box.Move(sx, sy, sz)
	for i := 1; i <= steps; i++ {
		box = box.Move(sx, sy, sz)
		if w.sc.Collides(box) {
			return false
		}
	}
	return true
}
