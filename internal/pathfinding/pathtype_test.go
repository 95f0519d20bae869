package pathfinding

import (
	"testing"

	"voxelpath/internal/world"
)

func TestPathTypeNamesRoundTrip(t *testing.T) {
	for pt := PathType(0); pt < pathTypeCount; pt++ {
		parsed, err := ParsePathType(pt.String())
		if err != nil {
			t.Fatalf("parse %q: %v", pt.String(), err)
		}
		if parsed != pt {
			t.Fatalf("parse %q = %v, want %v", pt.String(), parsed, pt)
		}
	}
	if _, err := ParsePathType("quicksand"); err == nil {
		t.Fatalf("expected unknown name to fail")
	}
	if got, err := ParsePathType(" Water_Border "); err != nil || got != PathWaterBorder {
		t.Fatalf("expected case-insensitive parse, got %v %v", got, err)
	}
}

func TestMalusTableOverrides(t *testing.T) {
	var nilTable *MalusTable
	if nilTable.Get(PathWater) != 8 {
		t.Fatalf("nil table should report defaults")
	}

	table := NewMalusTable()
	table.Set(PathWater, 0)
	table.Set(PathLava, 12)
	if table.Get(PathWater) != 0 || !table.Overridden(PathWater) {
		t.Fatalf("expected water override")
	}

	saved := table.save(PathLava)
	table.Set(PathLava, -1)
	table.restore(saved)
	if table.Get(PathLava) != 12 {
		t.Fatalf("restore lost the saved value, got %v", table.Get(PathLava))
	}

	clone := table.Clone()
	table.Unset(PathWater)
	if table.Get(PathWater) != PathWater.DefaultMalus() {
		t.Fatalf("unset should fall back to the default")
	}
	if clone.Get(PathWater) != 0 {
		t.Fatalf("clone must not share state with the original")
	}

	clone.Reset()
	if clone.Overridden(PathLava) {
		t.Fatalf("reset should drop every override")
	}
	if PathType(200).DefaultMalus() != -1 || table.Get(PathType(200)) != -1 {
		t.Fatalf("unknown classifications must be forbidden")
	}
}

func TestTargetTracksClosestNode(t *testing.T) {
	pool := NewNodePool()
	target := NewTarget(world.BlockCoord{X: 10, Y: 0, Z: 0})
	if target.BestNode() != nil || target.Reached() {
		t.Fatalf("fresh target should be empty")
	}

	far := pool.Get(0, 0, 0)
	diagonal := pool.Get(7, 1, 0)
	straight := pool.Get(7, 0, 1)
	target.update(far)
	target.update(diagonal)
	target.update(straight)
	if target.BestNode() != diagonal {
		t.Fatalf("expected first node at manhattan 4 to win ties of equal distance, got %v", target.BestNode().Coord())
	}
	if target.BestDistance() != 4 {
		t.Fatalf("expected best distance 4, got %d", target.BestDistance())
	}

	closer := pool.Get(9, 0, 0)
	target.update(closer)
	target.reach(closer)
	target.reach(far)
	if !target.Reached() || target.BestNode() != closer {
		t.Fatalf("only the first reach should count")
	}
}

func TestMobilityPathTypeWithoutPrepare(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 8, Depth: 8, Height: 8}, 4)
	addFloor(chunk, 0)
	agent := walkerAt(2, 2, 1)
	sc := newSearch(manager, agent, nil)

	models := []Mobility{NewWalker(), NewSwimmer(), NewFlyer(), NewAmphibian()}
	for _, m := range models {
		if got, want := m.MobilityPathType(sc, 3, 3, 1), m.PathType(sc, 3, 3, 1); got != want {
			t.Fatalf("%T: unprepared classification %v, want %v", m, got, want)
		}
	}

	w := NewWalker()
	w.Prepare(sc, agent, NewNodePool())
	defer w.Done()
	if got := w.MobilityPathType(sc, 3, 3, 1); got != PathWalkable {
		t.Fatalf("prepared walker classified ground as %v", got)
	}
}
