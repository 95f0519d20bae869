package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrOutsideRegion is returned for coordinates the manager does not own.
var ErrOutsideRegion = errors.New("outside region")

// Generator describes terrain population for chunks.
type Generator interface {
	Generate(ctx context.Context, coord ChunkCoord, bounds Bounds, dim Dimensions) (*Chunk, error)
}

// BlockListener is notified after a block changes through the manager.
type BlockListener func(coord BlockCoord, block Block)

// Manager keeps the authoritative chunk state for a world.
type Manager struct {
	region    ServerRegion
	generator Generator

	mu     sync.RWMutex
	chunks map[ChunkCoord]*Chunk

	listenerMu sync.RWMutex
	listeners  map[uint64]BlockListener
	nextID     uint64
}

func NewManager(region ServerRegion, generator Generator) *Manager {
	return &Manager{
		region:    region,
		generator: generator,
		chunks:    make(map[ChunkCoord]*Chunk),
		listeners: make(map[uint64]BlockListener),
	}
}

func (m *Manager) Region() ServerRegion {
	return m.region
}

func (m *Manager) Chunk(ctx context.Context, coord ChunkCoord) (*Chunk, error) {
	if !m.region.ContainsGlobalChunk(coord) {
		return nil, fmt.Errorf("chunk %v: %w", coord, ErrOutsideRegion)
	}

	m.mu.RLock()
	ch, ok := m.chunks[coord]
	m.mu.RUnlock()
	if ok {
		return ch, nil
	}

	bounds, err := m.region.ChunkBounds(coord)
	if err != nil {
		return nil, err
	}

	ch, err = m.generator.Generate(ctx, coord, bounds, m.region.ChunkDimension)
	if err != nil {
		return nil, fmt.Errorf("generate chunk %v: %w", coord, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.chunks[coord]; ok {
		return existing, nil
	}
	m.chunks[coord] = ch
	return ch, nil
}

func (m *Manager) ChunkForBlock(ctx context.Context, block BlockCoord) (*Chunk, error) {
	chunkCoord, ok := m.region.LocateBlock(block)
	if !ok {
		return nil, fmt.Errorf("block %v: %w", block, ErrOutsideRegion)
	}
	return m.Chunk(ctx, chunkCoord)
}

// Block reads a single block in global coordinates.
func (m *Manager) Block(ctx context.Context, coord BlockCoord) (Block, error) {
	chunk, err := m.ChunkForBlock(ctx, coord)
	if err != nil {
		return Block{}, err
	}
	localX, localY, localZ, ok := chunk.GlobalToLocal(coord)
	if !ok {
		return Block{}, fmt.Errorf("block %v: %w", coord, ErrOutsideRegion)
	}
	block, ok := chunk.LocalBlock(localX, localY, localZ)
	if !ok {
		return Block{}, fmt.Errorf("block %v unreadable in chunk %v", coord, chunk.Key)
	}
	return block, nil
}

// SetBlock writes a block and notifies subscribers once the write succeeded.
func (m *Manager) SetBlock(ctx context.Context, coord BlockCoord, block Block) error {
	chunk, err := m.ChunkForBlock(ctx, coord)
	if err != nil {
		return err
	}
	localX, localY, localZ, ok := chunk.GlobalToLocal(coord)
	if !ok {
		return fmt.Errorf("block %v: %w", coord, ErrOutsideRegion)
	}
	if !chunk.SetLocalBlock(localX, localY, localZ, block) {
		return fmt.Errorf("write block %v in chunk %v failed", coord, chunk.Key)
	}
	m.notify(coord, block)
	return nil
}

// Subscribe registers fn for block changes and returns a function that removes it.
func (m *Manager) Subscribe(fn BlockListener) func() {
	if fn == nil {
		return func() {}
	}
	m.listenerMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenerMu.Lock()
			delete(m.listeners, id)
			m.listenerMu.Unlock()
		})
	}
}

func (m *Manager) notify(coord BlockCoord, block Block) {
	m.listenerMu.RLock()
	listeners := make([]BlockListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(coord, block)
	}
}
