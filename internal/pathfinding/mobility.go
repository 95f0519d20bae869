package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// Mobility decides where an agent may go and what each step costs.
//
// Prepare is called once before a search and may temporarily override entries
// of the agent's malus table; Done puts them back. Done is safe to call
// without Prepare and more than once.
type Mobility interface {
	Prepare(sc *SearchContext, agent *Agent, pool *NodePool)
	// Start returns the node the search begins from, or nil when the agent
	// cannot start anywhere.
	Start() *Node
	Target(x, y, z float64) *Target
	// Neighbors writes the reachable neighbours of n into out and returns how
	// many were written. out must hold at least maxNeighbors entries.
	Neighbors(out []*Node, n *Node) int
	// PathType classifies a single cell independently of the agent.
	PathType(sc *SearchContext, x, y, z int) PathType
	// MobilityPathType classifies a cell for the prepared agent, taking its
	// whole footprint and malus table into account.
	MobilityPathType(sc *SearchContext, x, y, z int) PathType
	Done()
}

// maxNeighbors bounds the neighbour count of every mobility model.
const maxNeighbors = 32

type direction struct {
	dx, dy, dz int
}

var (
	// horizontalDirections is ordered clockwise so i and i+1 are perpendicular.
	horizontalDirections = [4]direction{{0, -1, 0}, {1, 0, 0}, {0, 1, 0}, {-1, 0, 0}}
	dirUp                = direction{0, 0, 1}
	dirDown              = direction{0, 0, -1}
	axisDirections       = [6]direction{{0, 0, -1}, {0, 0, 1}, {0, -1, 0}, {0, 1, 0}, {-1, 0, 0}, {1, 0, 0}}
)

// evaluator holds the per-search state every mobility model shares.
type evaluator struct {
	sc    *SearchContext
	agent *Agent
	pool  *NodePool
	// classify computes the agent-specific classification memoised in types.
	classify func(x, y, z int) PathType
	types    map[world.BlockCoord]PathType
	saved    []malusOverride
}

func (e *evaluator) prepare(sc *SearchContext, agent *Agent, pool *NodePool, classify func(x, y, z int) PathType) {
	e.restore()
	e.sc = sc
	e.agent = agent
	e.pool = pool
	e.classify = classify
	if e.types == nil {
		e.types = make(map[world.BlockCoord]PathType)
	} else {
		clear(e.types)
	}
}

func (e *evaluator) done() {
	e.restore()
	e.sc = nil
	e.agent = nil
	e.pool = nil
	e.classify = nil
	clear(e.types)
}

// saveMalus records the agent's current entry for t so done can restore it.
func (e *evaluator) saveMalus(t PathType) {
	e.saved = append(e.saved, e.agent.malusTable().save(t))
}

// overrideMalus sets t for the duration of the search.
func (e *evaluator) overrideMalus(t PathType, malus float32) {
	e.saveMalus(t)
	e.agent.Malus.Set(t, malus)
}

func (e *evaluator) restore() {
	if e.agent == nil || e.agent.Malus == nil {
		e.saved = e.saved[:0]
		return
	}
	for i := len(e.saved) - 1; i >= 0; i-- {
		e.agent.Malus.restore(e.saved[i])
	}
	e.saved = e.saved[:0]
}

func (e *evaluator) prepared() bool {
	return e.agent != nil && e.sc != nil
}

func (e *evaluator) malus(t PathType) float32 {
	return e.agent.PathfindingMalus(t)
}

func (e *evaluator) cachedType(x, y, z int) PathType {
	coord := world.BlockCoord{X: x, Y: y, Z: z}
	if t, ok := e.types[coord]; ok {
		return t
	}
	t := e.classify(x, y, z)
	e.types[coord] = t
	return t
}

func (e *evaluator) startNode(c world.BlockCoord) *Node {
	n := e.pool.Get(c.X, c.Y, c.Z)
	n.Type = e.cachedType(c.X, c.Y, c.Z)
	n.CostMalus = e.malus(n.Type)
	return n
}

// nodeWithMaxCost returns the node at the cell tagged with t, keeping the
// highest malus seen for it.
func (e *evaluator) nodeWithMaxCost(x, y, z int, t PathType, malus float32) *Node {
	n := e.pool.Get(x, y, z)
	n.Type = t
	if malus > n.CostMalus {
		n.CostMalus = malus
	}
	return n
}

func (e *evaluator) target(x, y, z float64) *Target {
	return NewTarget(world.BlockCoord{
		X: int(math.Floor(x)),
		Y: int(math.Floor(y)),
		Z: int(math.Floor(z)),
	})
}

// boxCorners returns the horizontal cells under the four corners of the
// agent's bounding box at height z.
func (e *evaluator) boxCorners(z int) [4]world.BlockCoord {
	box := e.agent.Bounds()
	minX, minY := int(math.Floor(box.MinX)), int(math.Floor(box.MinY))
	maxX, maxY := int(math.Floor(box.MaxX)), int(math.Floor(box.MaxY))
	return [4]world.BlockCoord{
		{X: minX, Y: minY, Z: z},
		{X: minX, Y: maxY, Z: z},
		{X: maxX, Y: minY, Z: z},
		{X: maxX, Y: maxY, Z: z},
	}
}

func isOpenNode(n *Node) bool {
	return n != nil && !n.Closed
}

func hasMalus(n *Node) bool {
	return n != nil && n.CostMalus >= 0
}

// Target tracks one goal together with the node that came closest to it.
type Target struct {
	goal          world.BlockCoord
	best          *Node
	bestManhattan int
	bestDistance  float32
	reached       bool
}

func NewTarget(goal world.BlockCoord) *Target {
	return &Target{
		goal:          goal,
		bestManhattan: math.MaxInt,
		bestDistance:  math.MaxFloat32,
	}
}

func (t *Target) Goal() world.BlockCoord {
	return t.goal
}

// BestNode is the closest node expanded so far, or nil before any expansion.
func (t *Target) BestNode() *Node {
	return t.best
}

// BestDistance is the Manhattan distance from the best node to the goal.
func (t *Target) BestDistance() int {
	return t.bestManhattan
}

func (t *Target) Reached() bool {
	return t.reached
}

// update records n if it is closer to the goal than the current best, ranking
// by Manhattan distance and breaking ties by straight-line distance.
func (t *Target) update(n *Node) {
	m := n.manhattanToCoord(t.goal)
	d := n.distanceToCoord(t.goal)
	if m < t.bestManhattan || (m == t.bestManhattan && d < t.bestDistance) {
		t.best = n
		t.bestManhattan = m
		t.bestDistance = d
	}
}

// reach marks the target as reached by n. Only the first call has an effect.
func (t *Target) reach(n *Node) {
	if t.reached {
		return
	}
	t.reached = true
	t.best = n
	t.bestManhattan = n.manhattanToCoord(t.goal)
	t.bestDistance = n.distanceToCoord(t.goal)
}
