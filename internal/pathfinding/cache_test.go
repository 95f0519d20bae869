package pathfinding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"voxelpath/internal/world"
)

func TestClassificationCacheRoundsToPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: DefaultCacheSlots, -3: DefaultCacheSlots, 1: 1, 3: 4, 1000: 1024, 4096: 4096}
	for in, want := range cases {
		if got := NewClassificationCache(in).Slots(); got != want {
			t.Fatalf("slots(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestClassificationCacheHitsAndMisses(t *testing.T) {
	cache := NewClassificationCache(64)
	calls := 0
	compute := func() PathType {
		calls++
		return PathWalkable
	}

	if got, hit := cache.getOrCompute(1, 2, 3, compute); got != PathWalkable || hit {
		t.Fatalf("expected miss returning walkable, got %v hit=%v", got, hit)
	}
	if got, hit := cache.getOrCompute(1, 2, 3, compute); got != PathWalkable || !hit {
		t.Fatalf("expected hit returning walkable, got %v hit=%v", got, hit)
	}
	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}
	if stats := cache.Stats(); stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	cache.Invalidate(world.BlockCoord{X: 1, Y: 2, Z: 3})
	cache.getOrCompute(1, 2, 3, compute)
	if calls != 2 {
		t.Fatalf("expected recompute after invalidate, got %d calls", calls)
	}
}

func TestClassificationCacheCollisionsEvict(t *testing.T) {
	cache := NewClassificationCache(1)
	cache.getOrCompute(0, 0, 0, func() PathType { return PathWater })
	got, hit := cache.getOrCompute(5, 0, 0, func() PathType { return PathFence })
	if hit || got != PathFence {
		t.Fatalf("expected colliding coordinate to miss, got %v hit=%v", got, hit)
	}
	got, hit = cache.getOrCompute(0, 0, 0, func() PathType { return PathLava })
	if hit || got != PathLava {
		t.Fatalf("expected evicted coordinate to be recomputed, got %v hit=%v", got, hit)
	}
}

func TestPackCoordDistinguishesNegativeAndRejectsOverflow(t *testing.T) {
	seen := make(map[int64]world.BlockCoord)
	for _, c := range []world.BlockCoord{
		{X: 0, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 0, Y: 0, Z: -1},
		{X: 1 << 24, Y: -(1 << 25), Z: 2047}, {X: -(1 << 25), Y: 1<<25 - 1, Z: -2048},
	} {
		key, ok := packCoord(c.X, c.Y, c.Z)
		require.True(t, ok, "coordinate %v should pack", c)
		if prev, dup := seen[key]; dup {
			t.Fatalf("coordinates %v and %v share key %x", prev, c, key)
		}
		seen[key] = c
	}

	_, ok := packCoord(1<<25, 0, 0)
	require.False(t, ok)
	_, ok = packCoord(0, 0, 2048)
	require.False(t, ok)

	cache := NewClassificationCache(8)
	calls := 0
	for i := 0; i < 2; i++ {
		_, hit := cache.getOrCompute(0, 0, 4096, func() PathType {
			calls++
			return PathOpen
		})
		require.False(t, hit)
	}
	require.Equal(t, 2, calls, "out of range cells bypass the cache")
}

func TestSearchContextClassifyMatchesUncached(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 8, Depth: 8, Height: 8}, 4)
	addFloor(chunk, 0)
	chunk.SetLocalBlock(2, 2, 1, world.Block{Material: world.MaterialWater})
	chunk.SetLocalBlock(4, 4, 1, world.Block{Material: world.MaterialFence})
	chunk.SetLocalBlock(5, 5, 1, world.Block{Material: world.MaterialCactus})
	chunk.SetLocalBlock(6, 2, 1, world.Block{Material: world.MaterialMagma})
	chunk.SetLocalBlock(1, 6, 1, world.Block{Material: world.MaterialWoodDoor})

	agent := walkerAt(0, 0, 1)
	cached := newSearch(manager, agent, NewClassificationCache(16))
	plain := newSearch(manager, agent, nil)

	for pass := 0; pass < 2; pass++ {
		for x := -1; x <= 8; x++ {
			for y := -1; y <= 8; y++ {
				for z := 0; z <= 3; z++ {
					want := plain.Classify(x, y, z)
					if got := cached.Classify(x, y, z); got != want {
						t.Fatalf("pass %d: cell (%d,%d,%d) cached=%v uncached=%v", pass, x, y, z, got, want)
					}
				}
			}
		}
	}
}

func TestStaticClassification(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 12, Depth: 12, Height: 8}, 4)
	addFloor(chunk, 0)
	chunk.SetLocalBlock(1, 1, 1, world.Block{Material: world.MaterialWater})
	chunk.SetLocalBlock(8, 8, 1, world.Block{Material: world.MaterialCactus})
	chunk.SetLocalBlock(8, 2, 1, world.Block{Material: world.MaterialFence})
	chunk.SetLocalBlock(2, 8, 1, world.Block{Material: world.MaterialMagma})

	sc := newSearch(manager, walkerAt(5, 5, 1), nil)
	cases := []struct {
		name string
		at   world.BlockCoord
		want PathType
	}{
		{"ground", coord(5, 5, 1), PathWalkable},
		{"air above air", coord(5, 5, 3), PathOpen},
		{"solid", coord(5, 5, 0), PathBlocked},
		{"water", coord(1, 1, 1), PathWater},
		{"beside water", coord(2, 1, 1), PathWaterBorder},
		{"beside cactus", coord(7, 8, 1), PathDangerOther},
		{"fence", coord(8, 2, 1), PathFence},
		{"above magma", coord(2, 8, 2), PathDamageFire},
		{"beside magma", coord(3, 8, 1), PathDangerFire},
		{"outside region", coord(-1, 5, 1), PathBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sc.Classify(tc.at.X, tc.at.Y, tc.at.Z); got != tc.want {
				t.Fatalf("classify %v = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestInvalidateAroundPicksUpWorldChanges(t *testing.T) {
	manager, chunk := newTestWorld(t, world.Dimensions{Width: 8, Depth: 8, Height: 8}, 4)
	addFloor(chunk, 0)
	cache := NewClassificationCache(256)
	sc := newSearch(manager, walkerAt(0, 0, 1), cache)

	require.Equal(t, PathWalkable, sc.Classify(3, 3, 1))
	require.Equal(t, PathWalkable, sc.Classify(4, 3, 1))

	changed := coord(3, 3, 1)
	require.NoError(t, manager.SetBlock(context.Background(), changed, world.Block{Material: world.MaterialWater}))

	require.Equal(t, PathWalkable, sc.Classify(3, 3, 1), "stale entry expected before invalidation")
	cache.InvalidateAround(changed)
	require.Equal(t, PathWater, sc.Classify(3, 3, 1))
	require.Equal(t, PathWaterBorder, sc.Classify(4, 3, 1))
}
