package pathfinding

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"voxelpath/internal/world"
)

func newFloorWorld(t *testing.T) *world.Manager {
	t.Helper()
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 16, Depth: 16, Height: 8}, 4)
	addFloor(chunk, 0)
	return manager
}

// newWallWorld adds a two block wall along x=8 with a single gap at y=14.
func newWallWorld(t *testing.T) *world.Manager {
	t.Helper()
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 16, Depth: 16, Height: 8}, 4)
	addFloor(chunk, 0)
	fill(chunk, coord(8, 0, 1), coord(8, 13, 2), stone)
	fill(chunk, coord(8, 15, 1), coord(8, 15, 2), stone)
	return manager
}

func TestFinderReachesGoalOnFlatGround(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)

	path, err := NewFinder(NewWalker(), 200).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{coord(7, 2, 1)}, 32, 0, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if path == nil || !path.Reached() {
		t.Fatalf("expected a reached path, got %+v", path)
	}
	want := []world.BlockCoord{coord(2, 2, 1), coord(3, 2, 1), coord(4, 2, 1), coord(5, 2, 1), coord(6, 2, 1), coord(7, 2, 1)}
	require.Equal(t, want, path.Coords())
	require.Equal(t, coord(7, 2, 1), path.Goal())
	require.Zero(t, path.DistanceToTarget())

	for i := 1; i < path.Len(); i++ {
		if path.At(i).WalkedDistance <= path.At(i-1).WalkedDistance {
			t.Fatalf("walked distance must grow along the path: %v then %v", path.At(i-1).WalkedDistance, path.At(i).WalkedDistance)
		}
	}
}

func TestFinderReachRangeStopsShort(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)

	path, err := NewFinder(NewWalker(), 200).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{coord(7, 2, 1)}, 32, 2, 1)
	require.NoError(t, err)
	require.True(t, path.Reached())
	require.Equal(t, 2, path.DistanceToTarget())
	require.Equal(t, 4, path.Len())
}

func TestFinderReturnsPartialPath(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 16, Depth: 16, Height: 8}, 4)
	addFloor(chunk, 0)
	// Box the goal cell in with a wall two blocks high and a lid.
	fill(chunk, coord(9, 9, 1), coord(11, 11, 2), stone)
	chunk.SetLocalBlock(10, 10, 1, world.Block{})

	agent := walkerAt(2, 2, 1)
	goal := coord(10, 10, 1)
	path, err := NewFinder(NewWalker(), 2000).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{goal}, 64, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, path)
	require.False(t, path.Reached())
	require.Equal(t, goal, path.Goal())

	end, ok := path.End()
	require.True(t, ok)
	require.Equal(t, 2, path.DistanceToTarget(), "closest reachable cell is beside the wall, ended at %v", end.Coord())
	require.Equal(t, end.Coord().Z, 1)
}

func TestFinderFirstReachedTargetWins(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)
	near, far := coord(5, 2, 1), coord(2, 12, 1)

	path, err := NewFinder(NewWalker(), 500).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{far, near, far}, 32, 0, 1)
	require.NoError(t, err)
	require.True(t, path.Reached())
	require.Equal(t, near, path.Goal())
	require.Equal(t, 4, path.Len())
}

func TestFinderRejectsBadRequests(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)
	finder := NewFinder(NewWalker(), 100)

	_, err := finder.Find(newSearch(manager, agent, nil), agent, nil, 32, 0, 1)
	require.ErrorIs(t, err, ErrNoGoals)

	_, err = finder.Find(newSearch(manager, agent, nil), nil, []world.BlockCoord{coord(1, 1, 1)}, 32, 0, 1)
	require.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestFinderNoStartReturnsNil(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 6, Depth: 6, Height: 6}, 2)
	addFloor(chunk, 4)

	var logs bytes.Buffer
	metrics := &NavigatorMetrics{}
	ctx := ContextWithProfiler(context.Background(), metrics.Profiler())
	agent := walkerAt(2, 2, 1)
	finder := NewFinder(NewWalker(), 100, WithLogger(log.New(&logs, "", 0)))

	path, err := finder.Find(NewSearchContext(ctx, NewWorldTerrain(manager), nil, agent), agent,
		[]world.BlockCoord{coord(4, 4, 5)}, 32, 0, 1)
	require.NoError(t, err)
	require.Nil(t, path)
	require.Contains(t, logs.String(), "no start node")
	require.Equal(t, int64(1), metrics.Snapshot().SearchesNoStart)
}

func TestFinderZeroBudgetYieldsStart(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)

	path, err := NewFinder(NewWalker(), 100).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{coord(7, 2, 1)}, 32, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, path)
	require.Equal(t, []world.BlockCoord{coord(2, 2, 1)}, path.Coords())
	require.False(t, path.Reached())
	require.Equal(t, 5, path.DistanceToTarget())
}

func TestFinderRespectsMaxPathLength(t *testing.T) {
	manager := newFloorWorld(t)
	agent := walkerAt(2, 2, 1)

	path, err := NewFinder(NewWalker(), 500).Find(newSearch(manager, agent, nil), agent,
		[]world.BlockCoord{coord(13, 2, 1)}, 4, 0, 1)
	require.NoError(t, err)
	require.False(t, path.Reached())
	end, _ := path.End()
	require.Less(t, end.WalkedDistance, float32(4))
	require.Equal(t, coord(5, 2, 1), end.Coord())
}

func TestFinderBudgetIsMonotonic(t *testing.T) {
	manager := newWallWorld(t)
	agent := walkerAt(2, 2, 1)
	goals := []world.BlockCoord{coord(13, 2, 1)}

	var prev *Path
	for budget := 1; budget <= 1024; budget *= 2 {
		path, err := NewFinder(NewWalker(), budget).Find(newSearch(manager, agent, nil), agent, goals, 64, 0, 1)
		require.NoError(t, err)
		require.NotNil(t, path)
		if prev != nil {
			if prev.Reached() {
				require.True(t, path.Reached(), "budget %d lost a reached path", budget)
				require.LessOrEqual(t, path.Len(), prev.Len())
			} else if !path.Reached() {
				require.LessOrEqual(t, path.DistanceToTarget(), prev.DistanceToTarget(), "budget %d", budget)
			}
		}
		prev = path
	}
	require.True(t, prev.Reached(), "the gap in the wall should be found with the largest budget")
}

func TestFinderIsIdempotent(t *testing.T) {
	manager := newWallWorld(t)
	agent := walkerAt(2, 2, 1)
	goals := []world.BlockCoord{coord(13, 2, 1)}
	finder := NewFinder(NewWalker(), 1000)
	cache := NewClassificationCache(1024)

	first, err := finder.Find(newSearch(manager, agent, cache), agent, goals, 64, 0, 1)
	require.NoError(t, err)
	second, err := finder.Find(newSearch(manager, agent, cache), agent, goals, 64, 0, 1)
	require.NoError(t, err)
	uncached, err := NewFinder(NewWalker(), 1000).Find(newSearch(manager, agent, nil), agent, goals, 64, 0, 1)
	require.NoError(t, err)

	require.True(t, first.SameAs(second))
	require.True(t, first.SameAs(uncached), "the classification cache must not change results")
	require.Equal(t, first.Reached(), second.Reached())
	require.Equal(t, first.DistanceToTarget(), uncached.DistanceToTarget())
}

// recordingWalker remembers the cost and parent of every node at the moment
// it is expanded.
type recordingWalker struct {
	*Walker
	expanded map[*Node]expansion
}

type expansion struct {
	g      float32
	parent *Node
}

func (r *recordingWalker) Neighbors(out []*Node, n *Node) int {
	r.expanded[n] = expansion{g: n.G, parent: r.pool.Parent(n)}
	return r.Walker.Neighbors(out, n)
}

func TestFinderNeverReopensClosedNodes(t *testing.T) {
	manager := newWallWorld(t)
	agent := walkerAt(2, 2, 1)
	model := &recordingWalker{Walker: NewWalker(), expanded: make(map[*Node]expansion)}
	finder := NewFinder(model, 1000)

	_, err := finder.Find(newSearch(manager, agent, nil), agent, []world.BlockCoord{coord(13, 2, 1)}, 64, 0, 1)
	require.NoError(t, err)
	require.NotEmpty(t, model.expanded)
	for n, at := range model.expanded {
		require.True(t, n.Closed)
		require.False(t, n.InOpenSet())
		require.Equal(t, at.g, n.G, "cost of closed node %v changed", n.Coord())
		require.Same(t, at.parent, finder.pool.Parent(n), "parent of closed node %v changed", n.Coord())
	}
}

func TestFinderRestoresMalusForEveryModel(t *testing.T) {
	manager, _ := newPoolWorld(t, 20)
	models := map[string]func() Mobility{
		"walk":       func() Mobility { return NewWalker() },
		"swim":       func() Mobility { return NewSwimmer() },
		"fly":        func() Mobility { return NewFlyer() },
		"amphibious": func() Mobility { return NewAmphibian() },
	}
	for name, build := range models {
		t.Run(name, func(t *testing.T) {
			agent := amphibianAt(5, 5, 4)
			agent.SetPathfindingMalus(PathWater, 3)
			agent.SetPathfindingMalus(PathLava, 2)
			before := agent.Malus.Clone()

			_, err := NewFinder(build(), 300).Find(newSearch(manager, agent, nil), agent,
				[]world.BlockCoord{coord(9, 9, 4)}, 32, 0, 1)
			require.NoError(t, err)
			require.Equal(t, *before, *agent.Malus)

			model := build()
			model.Done()
			model.Done()
			require.Equal(t, *before, *agent.Malus)
		})
	}
}

func TestFinderDebugCaptureAndProfiling(t *testing.T) {
	manager := newWallWorld(t)
	agent := walkerAt(2, 2, 1)
	metrics := &NavigatorMetrics{}
	ctx := ContextWithProfiler(context.Background(), metrics.Profiler())
	sc := NewSearchContext(ctx, NewWorldTerrain(manager), NewClassificationCache(512), agent)

	path, err := NewFinder(NewWalker(), 1000, WithDebugCapture()).Find(sc, agent, []world.BlockCoord{coord(13, 2, 1)}, 64, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, path.Debug())
	require.NotEmpty(t, path.Debug().Closed)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.Searches)
	require.Equal(t, int64(1), snap.SearchesReached)
	require.Positive(t, snap.NodesExpanded)
	require.Positive(t, snap.CacheMisses)
	require.Positive(t, snap.CacheHits)
	require.Equal(t, int64(1), snap.ChunkLoads)
	require.Equal(t, int64(len(path.Debug().Closed)), snap.NodesExpanded)
}

func TestFinderHeuristicWeightOption(t *testing.T) {
	f := NewFinder(NewWalker(), 10, WithHeuristicWeight(-2))
	require.Equal(t, float32(DefaultHeuristicWeight), f.weight)
	f = NewFinder(NewWalker(), 10, WithHeuristicWeight(1))
	require.Equal(t, float32(1), f.weight)
}

func TestFinderTreatsUnreadableTerrainAsBarrier(t *testing.T) {
	manager := newFloorWorld(t)
	terrain := NewWorldTerrain(manager)

	block, err := terrain.Block(context.Background(), coord(-1, 0, 1))
	require.ErrorIs(t, err, world.ErrOutsideRegion)
	require.Equal(t, world.Barrier, block)

	agent := walkerAt(0, 0, 1)
	metrics := &NavigatorMetrics{}
	ctx := ContextWithProfiler(context.Background(), metrics.Profiler())
	sc := NewSearchContext(ctx, terrain, NewClassificationCache(0), agent)

	path, err := NewFinder(NewWalker(), 400).Find(sc, agent, []world.BlockCoord{coord(-5, 0, 1)}, 64, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, path)
	require.False(t, path.Reached())
	require.NotZero(t, path.Len())
	require.Equal(t, world.BlockCoord{X: 0, Y: 0, Z: 1}, path.Coords()[0])
	require.Positive(t, metrics.Snapshot().TerrainFailures)
}
