package pathfinding

import (
	"context"
	"testing"

	"voxelpath/internal/world"
)

type stubGenerator struct {
	chunks map[world.ChunkCoord]*world.Chunk
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{chunks: make(map[world.ChunkCoord]*world.Chunk)}
}

func (g *stubGenerator) setChunk(coord world.ChunkCoord, chunk *world.Chunk) {
	g.chunks[coord] = chunk
}

func (g *stubGenerator) Generate(ctx context.Context, coord world.ChunkCoord, bounds world.Bounds, dim world.Dimensions) (*world.Chunk, error) {
	if chunk, ok := g.chunks[coord]; ok {
		return chunk, nil
	}
	chunk := world.NewChunk(coord, bounds, dim)
	g.chunks[coord] = chunk
	return chunk, nil
}

// newTestWorld builds a single-chunk world and returns its manager and chunk.
func newTestWorld(t *testing.T, dims world.Dimensions, seaLevel int) (*world.Manager, *world.Chunk) {
	t.Helper()

	region := world.ServerRegion{
		Origin:         world.ChunkCoord{X: 0, Y: 0},
		ChunksPerAxis:  1,
		ChunkDimension: dims,
		SeaLevel:       seaLevel,
	}

	chunkCoord := world.ChunkCoord{X: 0, Y: 0}
	bounds, err := region.ChunkBounds(chunkCoord)
	if err != nil {
		t.Fatalf("chunk bounds: %v", err)
	}
	chunk := world.NewChunk(chunkCoord, bounds, dims)

	generator := newStubGenerator()
	generator.setChunk(chunkCoord, chunk)

	return world.NewManager(region, generator), chunk
}

func fill(chunk *world.Chunk, min, max world.BlockCoord, block world.Block) {
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			for z := min.Z; z <= max.Z; z++ {
				chunk.SetLocalBlock(x, y, z, block)
			}
		}
	}
}

func addFloor(chunk *world.Chunk, height int) {
	dims := chunk.Dimensions()
	fill(chunk,
		world.BlockCoord{X: 0, Y: 0, Z: 0},
		world.BlockCoord{X: dims.Width - 1, Y: dims.Depth - 1, Z: height},
		world.Block{Material: world.MaterialStone})
}

var stone = world.Block{Material: world.MaterialStone}

func newSearch(manager *world.Manager, agent *Agent, cache *ClassificationCache) *SearchContext {
	return NewSearchContext(context.Background(), NewWorldTerrain(manager), cache, agent)
}

// walkerAt returns a villager-sized agent standing on the floor of cell (x, y, z).
func walkerAt(x, y, z int) *Agent {
	return &Agent{
		X: float64(x) + 0.5, Y: float64(y) + 0.5, Z: float64(z),
		Width: 0.6, Height: 1.95,
		OnGround:        true,
		MaxUpStep:       0.6,
		MaxFallDistance: 3,
		CanOpenDoors:    true,
		CanPassDoors:    true,
		CanFloat:        true,
	}
}

func flyerAt(x, y, z int) *Agent {
	return &Agent{
		X: float64(x) + 0.5, Y: float64(y) + 0.5, Z: float64(z),
		Width: 0.7, Height: 0.6,
		CanPassDoors: true,
		CanFloat:     true,
	}
}

func swimmerAt(x, y, z int) *Agent {
	return &Agent{
		X: float64(x) + 0.5, Y: float64(y) + 0.5, Z: float64(z),
		Width: 0.9, Height: 0.6,
		InWater: true,
	}
}

func amphibianAt(x, y, z int) *Agent {
	return &Agent{
		X: float64(x) + 0.5, Y: float64(y) + 0.5, Z: float64(z),
		Width: 0.75, Height: 0.42,
		InWater:         true,
		MaxUpStep:       1,
		MaxFallDistance: 3,
	}
}

func neighborsOf(m Mobility, n *Node) []*Node {
	buf := make([]*Node, maxNeighbors)
	count := m.Neighbors(buf, n)
	return buf[:count]
}

func containsCoord(nodes []*Node, c world.BlockCoord) bool {
	for _, n := range nodes {
		if n.Coord() == c {
			return true
		}
	}
	return false
}

func coord(x, y, z int) world.BlockCoord {
	return world.BlockCoord{X: x, Y: y, Z: z}
}
