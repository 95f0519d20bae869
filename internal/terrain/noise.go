package terrain

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"

	"voxelpath/internal/config"
	"voxelpath/internal/world"
)

// NoiseGenerator creates repeatable terrain using hashed value noise. The
// same seed and coordinates always produce the same blocks.
type NoiseGenerator struct {
	cfg      config.TerrainConfig
	seaLevel int
	seed     int64
	logger   *log.Logger
}

func NewNoiseGenerator(cfg config.TerrainConfig, seaLevel int, logger *log.Logger) *NoiseGenerator {
	if logger == nil {
		logger = log.New(log.Writer(), "terrain ", log.LstdFlags|log.Lmicroseconds)
	}
	return &NoiseGenerator{
		cfg:      cfg,
		seaLevel: seaLevel,
		seed:     cfg.Seed,
		logger:   logger,
	}
}

var (
	stoneBlock = world.Block{Material: world.MaterialStone}
	dirtBlock  = world.Block{Material: world.MaterialDirt}
	grassBlock = world.Block{Material: world.MaterialGrass}
	sandBlock  = world.Block{Material: world.MaterialSand}
	waterBlock = world.Block{Material: world.MaterialWater}
)

// SurfaceHeight returns the local Z of the topmost ground block of a column.
func (g *NoiseGenerator) SurfaceHeight(globalX, globalY int, dim world.Dimensions) int {
	noise := g.fractalNoise(float64(globalX), float64(globalY))
	height := int(math.Round(float64(g.cfg.SurfaceLevel) + noise*g.cfg.Amplitude))
	return clampInt(height, 1, dim.Height-2)
}

func (g *NoiseGenerator) Generate(ctx context.Context, coord world.ChunkCoord, bounds world.Bounds, dim world.Dimensions) (*world.Chunk, error) {
	chunk := world.NewChunk(coord, bounds, dim)

	totalColumns := dim.Width * dim.Depth
	if totalColumns <= 0 || dim.Height < 3 {
		return chunk, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type columnTask struct {
		localX int
		localY int
	}

	type columnResult struct {
		localX  int
		localY  int
		column  []world.Block
		surface int
		err     error
	}

	workers := workerCount(totalColumns)
	tasks := make(chan columnTask, workers)
	results := make(chan columnResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if err := ctx.Err(); err != nil {
					select {
					case results <- columnResult{err: err}:
					default:
					}
					return
				}

				surface := g.SurfaceHeight(bounds.Min.X+task.localX, bounds.Min.Y+task.localY, dim)
				column := g.populateColumn(dim, surface)

				select {
				case results <- columnResult{localX: task.localX, localY: task.localY, column: column, surface: surface}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(tasks)
		for x := 0; x < dim.Width; x++ {
			for y := 0; y < dim.Depth; y++ {
				select {
				case <-ctx.Done():
					return
				case tasks <- columnTask{localX: x, localY: y}:
				}
			}
		}
	}()

	buffer := newChunkWriteBuffer(chunk, dim)
	for result := range results {
		if result.err != nil {
			cancel()
			return nil, result.err
		}
		buffer.store(result.localX, result.localY, result.column, result.surface)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.decorate(buffer, bounds, dim)

	if err := buffer.flush(); err != nil {
		return nil, err
	}
	g.logger.Printf("chunk %v generated (%d columns)", coord, totalColumns)
	return chunk, nil
}

// populateColumn lays down stone, a dirt layer and a grass or sand top, then
// floods everything up to sea level.
func (g *NoiseGenerator) populateColumn(dim world.Dimensions, surface int) []world.Block {
	top := max(surface, g.seaLevel)
	column := make([]world.Block, min(top+1, dim.Height))

	for z := 0; z <= surface && z < len(column); z++ {
		switch {
		case z == surface && surface <= g.seaLevel+1:
			column[z] = sandBlock
		case z == surface:
			column[z] = grassBlock
		case z >= surface-3:
			column[z] = dirtBlock
		default:
			column[z] = stoneBlock
		}
	}
	for z := surface + 1; z <= g.seaLevel && z < len(column); z++ {
		column[z] = waterBlock
	}
	return column
}

// decorate places features that span several cells: trees, lava pools,
// fences and doors. Features never cross the chunk edge so chunks can be
// generated independently.
func (g *NoiseGenerator) decorate(buffer *chunkWriteBuffer, bounds world.Bounds, dim world.Dimensions) {
	for x := 0; x < dim.Width; x++ {
		for y := 0; y < dim.Depth; y++ {
			surface, ok := buffer.surface(x, y)
			if !ok || surface <= g.seaLevel {
				continue
			}
			globalX, globalY := bounds.Min.X+x, bounds.Min.Y+y
			roll := g.roll(globalX, globalY, 0)

			switch {
			case roll < g.cfg.TreeDensity:
				g.growTree(buffer, dim, x, y, surface)
			case roll < g.cfg.TreeDensity+g.cfg.LavaPoolChance:
				g.digLavaPool(buffer, dim, x, y, surface)
			case roll < g.cfg.TreeDensity+g.cfg.LavaPoolChance+g.cfg.FenceDensity:
				g.placeFence(buffer, dim, globalX, globalY, x, y, surface)
			}
		}
	}
}

func (g *NoiseGenerator) growTree(buffer *chunkWriteBuffer, dim world.Dimensions, x, y, surface int) {
	const trunk = 4
	top := surface + trunk
	if top+1 >= dim.Height || x < 1 || y < 1 || x >= dim.Width-1 || y >= dim.Depth-1 {
		return
	}
	buffer.set(x, y, surface, dirtBlock)
	for z := surface + 1; z <= top; z++ {
		buffer.set(x, y, z, world.Block{Material: world.MaterialLog})
	}
	leaves := world.Block{Material: world.MaterialLeaves}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for z := top - 1; z <= top+1; z++ {
				if dx == 0 && dy == 0 && z <= top {
					continue
				}
				if existing, _ := buffer.get(x+dx, y+dy, z); existing.IsAir() {
					buffer.set(x+dx, y+dy, z, leaves)
				}
			}
		}
	}
}

// digLavaPool sinks a 2x2 pool of lava into the surface.
func (g *NoiseGenerator) digLavaPool(buffer *chunkWriteBuffer, dim world.Dimensions, x, y, surface int) {
	if x+1 >= dim.Width || y+1 >= dim.Depth {
		return
	}
	lava := world.Block{Material: world.MaterialLava}
	for dx := 0; dx <= 1; dx++ {
		for dy := 0; dy <= 1; dy++ {
			if s, ok := buffer.surface(x+dx, y+dy); ok && s == surface {
				buffer.set(x+dx, y+dy, surface, lava)
			}
		}
	}
}

// placeFence stands a fence post on the surface. A small share of posts
// become gates or two block high doors.
func (g *NoiseGenerator) placeFence(buffer *chunkWriteBuffer, dim world.Dimensions, globalX, globalY, x, y, surface int) {
	if surface+2 >= dim.Height {
		return
	}
	switch kind := g.roll(globalX, globalY, 1); {
	case kind < 0.1:
		door := world.Block{Material: world.MaterialWoodDoor, Open: g.roll(globalX, globalY, 2) < 0.5}
		buffer.set(x, y, surface+1, door)
		buffer.set(x, y, surface+2, door)
	case kind < 0.25:
		buffer.set(x, y, surface+1, world.Block{Material: world.MaterialFenceGate})
	default:
		buffer.set(x, y, surface+1, world.Block{Material: world.MaterialFence})
	}
}

// roll returns a repeatable value in [0, 1) for a column and purpose.
func (g *NoiseGenerator) roll(globalX, globalY, salt int) float64 {
	return float64(hash3(globalX, globalY, int(g.seed)+salt*7919)&0xFFFFFF) / float64(1<<24)
}

type chunkWriteBuffer struct {
	chunk    *world.Chunk
	dim      world.Dimensions
	columns  map[int][]world.Block
	surfaces map[int]int
}

func newChunkWriteBuffer(chunk *world.Chunk, dim world.Dimensions) *chunkWriteBuffer {
	return &chunkWriteBuffer{
		chunk:    chunk,
		dim:      dim,
		columns:  make(map[int][]world.Block, dim.Width*dim.Depth),
		surfaces: make(map[int]int, dim.Width*dim.Depth),
	}
}

func (b *chunkWriteBuffer) index(localX, localY int) int {
	return localY*b.dim.Width + localX
}

func (b *chunkWriteBuffer) store(localX, localY int, column []world.Block, surface int) {
	idx := b.index(localX, localY)
	b.columns[idx] = column
	b.surfaces[idx] = surface
}

func (b *chunkWriteBuffer) surface(localX, localY int) (int, bool) {
	if localX < 0 || localY < 0 || localX >= b.dim.Width || localY >= b.dim.Depth {
		return 0, false
	}
	s, ok := b.surfaces[b.index(localX, localY)]
	return s, ok
}

func (b *chunkWriteBuffer) get(localX, localY, z int) (world.Block, bool) {
	if localX < 0 || localY < 0 || localX >= b.dim.Width || localY >= b.dim.Depth {
		return world.Block{}, false
	}
	column := b.columns[b.index(localX, localY)]
	if z < 0 || z >= len(column) {
		return world.Block{}, true
	}
	return column[z], true
}

func (b *chunkWriteBuffer) set(localX, localY, z int, block world.Block) {
	if localX < 0 || localY < 0 || localX >= b.dim.Width || localY >= b.dim.Depth || z < 0 || z >= b.dim.Height {
		return
	}
	idx := b.index(localX, localY)
	column := b.columns[idx]
	if z >= len(column) {
		expanded := make([]world.Block, z+1)
		copy(expanded, column)
		column = expanded
	}
	column[z] = block
	b.columns[idx] = column
}

func (b *chunkWriteBuffer) flush() error {
	for idx, column := range b.columns {
		localX := idx % b.dim.Width
		localY := idx / b.dim.Width
		if ok := b.chunk.SetColumnBlocks(localX, localY, column); !ok {
			return fmt.Errorf("chunk %v failed to persist column (%d,%d)", b.chunk.Key, localX, localY)
		}
	}
	clear(b.columns)
	return nil
}

func (g *NoiseGenerator) fractalNoise(x, y float64) float64 {
	frequency := g.cfg.Frequency
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < g.cfg.Octaves; i++ {
		noise := g.valueNoise(x*frequency, y*frequency)
		noiseSum += noise * amplitude
		maxAmplitude += amplitude
		amplitude *= g.cfg.Persistence
		frequency *= g.cfg.Lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

func (g *NoiseGenerator) valueNoise(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1

	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))

	n0 := random2D(x0, y0, g.seed)
	n1 := random2D(x1, y0, g.seed)
	ix0 := lerp(n0, n1, sx)

	n2 := random2D(x0, y1, g.seed)
	n3 := random2D(x1, y1, g.seed)
	ix1 := lerp(n2, n3, sx)

	return lerp(ix0, ix1, sy)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, y int, seed int64) float64 {
	return float64(hash3(x, y, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func workerCount(totalColumns int) int {
	workers := runtime.GOMAXPROCS(0) * 2
	return clampInt(workers, 1, max(totalColumns, 1))
}
