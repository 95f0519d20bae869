package pathfinding

import (
	"errors"
	"fmt"
	"log"
	"time"

	"voxelpath/internal/world"
)

var (
	// ErrNoGoals is returned when Find is called without any goal.
	ErrNoGoals = errors.New("no goals")
	// ErrInvalidRequest is returned for a missing agent or search context.
	ErrInvalidRequest = errors.New("invalid path request")
)

// DefaultHeuristicWeight inflates the heuristic so searches head for the goal
// and settle for slightly longer paths in exchange for fewer expansions.
const DefaultHeuristicWeight = 1.5

// Finder runs bounded A* searches for one mobility model. The search is
// deliberately greedy: the heuristic is inflated and the first target
// reached ends the search. A Finder is not safe for concurrent use.
type Finder struct {
	model           Mobility
	maxVisitedNodes int
	weight          float32
	captureDebug    bool
	logger          *log.Logger

	pool      *NodePool
	open      *OpenSet
	neighbors [maxNeighbors]*Node
}

type FinderOption func(*Finder)

// WithDebugCapture attaches open and closed set snapshots to returned paths.
func WithDebugCapture() FinderOption {
	return func(f *Finder) {
		f.captureDebug = true
	}
}

// WithHeuristicWeight replaces DefaultHeuristicWeight. Non-positive values are ignored.
func WithHeuristicWeight(w float32) FinderOption {
	return func(f *Finder) {
		if w > 0 {
			f.weight = w
		}
	}
}

func WithLogger(logger *log.Logger) FinderOption {
	return func(f *Finder) {
		f.logger = logger
	}
}

func NewFinder(model Mobility, maxVisitedNodes int, opts ...FinderOption) *Finder {
	f := &Finder{
		model:           model,
		maxVisitedNodes: maxVisitedNodes,
		weight:          DefaultHeuristicWeight,
		pool:            NewNodePool(),
		open:            NewOpenSet(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Finder) Mobility() Mobility {
	return f.model
}

// Find searches from the agent towards the goals. It returns (nil, nil) when
// the agent has no viable start. Otherwise it always returns a path; Reached
// reports whether a goal came within reachRange (Manhattan distance).
func (f *Finder) Find(sc *SearchContext, agent *Agent, goals []world.BlockCoord, maxPathLength float32, reachRange int, multiplier float32) (*Path, error) {
	if len(goals) == 0 {
		return nil, ErrNoGoals
	}
	if sc == nil || agent == nil {
		return nil, fmt.Errorf("find path: %w", ErrInvalidRequest)
	}

	started := time.Now()
	f.pool.Reset()
	f.open.Clear()

	f.model.Prepare(sc, agent, f.pool)
	defer f.model.Done()

	start := f.model.Start()
	if start == nil {
		if f.logger != nil {
			f.logger.Printf("no start node for agent at (%.2f, %.2f, %.2f)", agent.X, agent.Y, agent.Z)
		}
		if sc.profiler != nil {
			sc.profiler.RecordSearch(SearchStats{NoStart: true, Duration: time.Since(started)})
		}
		return nil, nil
	}

	targets, dests := f.targets(goals)
	path, visited := f.search(sc, start, targets, dests, maxPathLength, reachRange, multiplier)

	if f.captureDebug && path != nil {
		path.debug = f.snapshot()
		if f.logger != nil {
			f.logger.Printf("search visited %d nodes, %d still open, reached=%v", visited, f.open.Len(), path.Reached())
		}
	}
	if sc.profiler != nil {
		stats := SearchStats{Visited: visited, Duration: time.Since(started)}
		if path != nil {
			stats.Reached = path.Reached()
			stats.Nodes = path.Len()
		}
		sc.profiler.RecordSearch(stats)
	}
	return path, nil
}

// targets converts the distinct goals into targets. dests[i] is the goal
// that targets[i] was built from and becomes the goal of its path.
func (f *Finder) targets(goals []world.BlockCoord) (targets []*Target, dests []world.BlockCoord) {
	seen := make(map[world.BlockCoord]struct{}, len(goals))
	for _, g := range goals {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		targets = append(targets, f.model.Target(float64(g.X), float64(g.Y), float64(g.Z)))
		dests = append(dests, g)
	}
	return targets, dests
}

func (f *Finder) search(sc *SearchContext, start *Node, targets []*Target, dests []world.BlockCoord, maxPathLength float32, reachRange int, multiplier float32) (*Path, int) {
	profiler := sc.profiler

	start.G = 0
	start.WalkedDistance = 0
	start.H = bestHeuristic(start, targets)
	start.F = start.H
	f.open.Insert(start)

	budget := int(float32(f.maxVisitedNodes) * multiplier)
	visited := 0
	reached := false

	for !f.open.Empty() && visited < budget {
		node := f.open.Pop()
		node.Closed = true
		visited++
		if profiler != nil {
			profiler.RecordNodeExpanded()
		}

		for _, t := range targets {
			t.update(node)
			if node.manhattanToCoord(t.goal) <= reachRange {
				t.reach(node)
				reached = true
			}
		}
		if reached {
			break
		}
		if node.WalkedDistance >= maxPathLength {
			continue
		}

		count := f.model.Neighbors(f.neighbors[:], node)
		if profiler != nil {
			profiler.RecordNeighborGeneration(count)
		}
		for _, nb := range f.neighbors[:count] {
			if nb.Closed {
				continue
			}
			step := node.DistanceTo(nb)
			walked := node.WalkedDistance + step
			g := node.G + step + nb.CostMalus
			if walked >= maxPathLength || (nb.InOpenSet() && g >= nb.G) {
				continue
			}
			f.pool.setParent(nb, node)
			nb.G = g
			nb.WalkedDistance = walked
			nb.H = bestHeuristic(nb, targets) * f.weight
			if profiler != nil {
				profiler.RecordHeuristicEvaluation()
			}
			if nb.InOpenSet() {
				f.open.ChangeCost(nb, nb.G+nb.H)
			} else {
				nb.F = nb.G + nb.H
				f.open.Insert(nb)
			}
		}
		clear(f.neighbors[:count])
	}

	if visited == 0 {
		// A zero budget still yields the trivial path from the start.
		for _, t := range targets {
			t.update(start)
		}
	}
	return f.bestPath(targets, dests, reached), visited
}

// bestPath picks the shortest path among reached targets, or else the path
// that ends closest to its goal.
func (f *Finder) bestPath(targets []*Target, dests []world.BlockCoord, reached bool) *Path {
	var best *Path
	for i, t := range targets {
		if reached && !t.Reached() {
			continue
		}
		if t.BestNode() == nil {
			continue
		}
		p := f.reconstruct(t.BestNode(), dests[i], reached)
		switch {
		case best == nil:
			best = p
		case reached && p.Len() < best.Len():
			best = p
		case !reached && (p.DistanceToTarget() < best.DistanceToTarget() ||
			(p.DistanceToTarget() == best.DistanceToTarget() && p.Len() < best.Len())):
			best = p
		}
	}
	return best
}

func (f *Finder) reconstruct(end *Node, goal world.BlockCoord, reached bool) *Path {
	length := 1
	for n := f.pool.Parent(end); n != nil; n = f.pool.Parent(n) {
		length++
	}
	nodes := make([]Waypoint, length)
	i := length - 1
	for n := end; n != nil; n = f.pool.Parent(n) {
		nodes[i] = n.waypoint()
		i--
	}
	return NewPath(nodes, goal, reached)
}

func (f *Finder) snapshot() *DebugSnapshot {
	snap := &DebugSnapshot{}
	for _, n := range f.open.Nodes() {
		snap.Open = append(snap.Open, n.waypoint())
	}
	for id := 0; id < f.pool.Len(); id++ {
		n := f.pool.Node(NodeID(id))
		if n.Closed && !n.InOpenSet() {
			snap.Closed = append(snap.Closed, n.waypoint())
		}
	}
	return snap
}

// bestHeuristic is the straight-line distance to the nearest target.
func bestHeuristic(n *Node, targets []*Target) float32 {
	best := float32(-1)
	for _, t := range targets {
		d := n.distanceToCoord(t.goal)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
