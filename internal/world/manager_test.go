package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flatGenerator struct {
	floor Block
}

func (g *flatGenerator) Generate(ctx context.Context, coord ChunkCoord, bounds Bounds, dim Dimensions) (*Chunk, error) {
	chunk := NewChunk(coord, bounds, dim)
	for x := 0; x < dim.Width; x++ {
		for y := 0; y < dim.Depth; y++ {
			chunk.SetLocalBlock(x, y, 0, g.floor)
		}
	}
	return chunk, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	region := ServerRegion{
		Origin:         ChunkCoord{X: 0, Y: 0},
		ChunksPerAxis:  2,
		ChunkDimension: Dimensions{Width: 4, Depth: 4, Height: 8},
		SeaLevel:       3,
	}
	return NewManager(region, &flatGenerator{floor: Block{Material: MaterialStone}})
}

func TestManagerBlockReadsAcrossChunks(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	for _, coord := range []BlockCoord{{X: 0, Y: 0, Z: 0}, {X: 5, Y: 6, Z: 0}} {
		block, err := manager.Block(ctx, coord)
		if err != nil {
			t.Fatalf("read %v: %v", coord, err)
		}
		if block.Material != MaterialStone {
			t.Fatalf("expected generated floor at %v, got %v", coord, block.Material)
		}
	}

	block, err := manager.Block(ctx, BlockCoord{X: 5, Y: 6, Z: 1})
	if err != nil {
		t.Fatalf("read air: %v", err)
	}
	if !block.IsAir() {
		t.Fatalf("expected air above floor, got %v", block.Material)
	}
}

func TestManagerRejectsCoordinatesOutsideRegion(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	cases := []BlockCoord{
		{X: -1, Y: 0, Z: 1},
		{X: 0, Y: 8, Z: 1},
		{X: 0, Y: 0, Z: 8},
		{X: 0, Y: 0, Z: -1},
	}
	for _, coord := range cases {
		if _, err := manager.Block(ctx, coord); !errors.Is(err, ErrOutsideRegion) {
			t.Fatalf("expected ErrOutsideRegion for %v, got %v", coord, err)
		}
		if err := manager.SetBlock(ctx, coord, Block{Material: MaterialStone}); !errors.Is(err, ErrOutsideRegion) {
			t.Fatalf("expected ErrOutsideRegion on write for %v, got %v", coord, err)
		}
	}
}

func TestManagerNotifiesSubscribersOnWrite(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []BlockCoord
	)
	unsubscribe := manager.Subscribe(func(coord BlockCoord, block Block) {
		mu.Lock()
		seen = append(seen, coord)
		mu.Unlock()
	})

	target := BlockCoord{X: 2, Y: 2, Z: 1}
	if err := manager.SetBlock(ctx, target, Block{Material: MaterialFence}); err != nil {
		t.Fatalf("set block: %v", err)
	}

	unsubscribe()
	unsubscribe()
	if err := manager.SetBlock(ctx, target.Above(), Block{Material: MaterialFence}); err != nil {
		t.Fatalf("set block: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != target {
		t.Fatalf("expected exactly one notification for %v, got %v", target, seen)
	}
}

func TestManagerConcurrentChunkLoadsShareInstance(t *testing.T) {
	manager := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	coord := ChunkCoord{X: 1, Y: 1}
	results := make([]*Chunk, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunk, err := manager.Chunk(ctx, coord)
			if err != nil {
				t.Errorf("load chunk: %v", err)
				return
			}
			results[i] = chunk
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("expected every caller to observe the same chunk instance")
		}
	}
}
