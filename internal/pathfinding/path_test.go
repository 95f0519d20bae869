package pathfinding

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"voxelpath/internal/world"
)

func samplePath() *Path {
	nodes := []Waypoint{
		{X: 0, Y: 0, Z: 64, Type: PathWalkable, F: 7.5},
		{X: 1, Y: 0, Z: 64, WalkedDistance: 1, Type: PathWalkable, F: 7},
		{X: 2, Y: -1, Z: 65, WalkedDistance: 2.4142, CostMalus: 8, Closed: true, Type: PathWaterBorder, F: 12.25},
		{X: -70000, Y: 3, Z: -5, WalkedDistance: 3.5, CostMalus: -1, Type: PathDamageCautious, F: 0},
	}
	return NewPath(nodes, world.BlockCoord{X: 5, Y: -2, Z: 64}, false)
}

func TestPathBinaryRoundTrip(t *testing.T) {
	path := samplePath()
	path.SetNextIndex(2)

	data, err := path.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Path
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(decoded.nodes, path.nodes) {
		t.Fatalf("waypoints differ:\n got %+v\nwant %+v", decoded.nodes, path.nodes)
	}
	if decoded.Goal() != path.Goal() || decoded.Reached() != path.Reached() {
		t.Fatalf("header differs: goal %v reached %v", decoded.Goal(), decoded.Reached())
	}
	if decoded.NextIndex() != 2 {
		t.Fatalf("expected cursor 2, got %d", decoded.NextIndex())
	}
	if decoded.DistanceToTarget() != path.DistanceToTarget() {
		t.Fatalf("distance to target %d, want %d", decoded.DistanceToTarget(), path.DistanceToTarget())
	}
}

func TestPathBinaryEmpty(t *testing.T) {
	path := NewPath(nil, world.BlockCoord{X: 1}, true)
	data, err := path.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Path
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Len() != 0 || !decoded.Reached() || decoded.DistanceToTarget() != math.MaxInt32 {
		t.Fatalf("unexpected empty path %+v", decoded)
	}
}

func TestPathUnmarshalRejectsCorruptData(t *testing.T) {
	path := samplePath()
	path.SetNextIndex(4)
	data, err := path.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// reached(1) cursor(1) goal(12) count(1), then waypoints.
	const header = 15

	badType := append([]byte(nil), data...)
	badType[header+waypointWireSize-5] = byte(pathTypeCount)

	badCursor := append([]byte(nil), data...)
	badCursor[1] = 9

	cases := map[string][]byte{
		"empty":         nil,
		"truncated":     data[:len(data)-3],
		"header only":   data[:header],
		"trailing":      append(append([]byte(nil), data...), 0),
		"unknown type":  badType,
		"cursor beyond": badCursor,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var decoded Path
			err := decoded.UnmarshalBinary(input)
			if !errors.Is(err, ErrCorruptPath) {
				t.Fatalf("expected ErrCorruptPath, got %v", err)
			}
		})
	}
}

func TestPathMarshalRejectsOverflowingCoordinates(t *testing.T) {
	path := NewPath([]Waypoint{{X: math.MaxInt32 + 1}}, world.BlockCoord{}, false)
	if _, err := path.MarshalBinary(); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestPathCursor(t *testing.T) {
	path := samplePath()
	if pos, ok := path.NextPos(); !ok || pos != (world.BlockCoord{X: 0, Y: 0, Z: 64}) {
		t.Fatalf("unexpected first position %v", pos)
	}
	path.SetNextIndex(-4)
	if path.NextIndex() != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", path.NextIndex())
	}
	path.SetNextIndex(99)
	if path.NextIndex() != path.Len() || !path.Done() {
		t.Fatalf("expected cursor clamped to end, got %d", path.NextIndex())
	}
	if _, ok := path.NextPos(); ok {
		t.Fatalf("expected no position past the end")
	}

	path.Truncate(2)
	if path.Len() != 2 || path.NextIndex() != 2 {
		t.Fatalf("truncate: len %d cursor %d", path.Len(), path.NextIndex())
	}
}

func TestPathDistanceAndSameAs(t *testing.T) {
	path := samplePath()
	// Last waypoint (-70000, 3, -5) against goal (5, -2, 64).
	if want := 70005 + 5 + 69; path.DistanceToTarget() != want {
		t.Fatalf("distance %d, want %d", path.DistanceToTarget(), want)
	}

	other := samplePath()
	other.Replace(1, Waypoint{X: 1, Y: 0, Z: 64, Type: PathWater})
	if !path.SameAs(other) {
		t.Fatalf("paths over the same cells should match")
	}
	other.Replace(1, Waypoint{X: 1, Y: 1, Z: 64})
	if path.SameAs(other) {
		t.Fatalf("paths over different cells should differ")
	}
	if path.SameAs(nil) {
		t.Fatalf("nil path should never match")
	}
}
