package world

import "sync"

type memoryStorageProvider struct{}

func newMemoryStorageProvider() StorageProvider {
	return &memoryStorageProvider{}
}

func (p *memoryStorageProvider) NewStorage(key ChunkCoord, bounds Bounds, dim Dimensions) (BlockStorage, error) {
	return &memoryBlockStorage{
		columns: make(map[int][]Block),
	}, nil
}

// memoryBlockStorage hands out copies so callers can mutate columns freely.
type memoryBlockStorage struct {
	mu      sync.RWMutex
	columns map[int][]Block
}

func (m *memoryBlockStorage) LoadColumn(index int) ([]Block, bool, error) {
	m.mu.RLock()
	column, ok := m.columns[index]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]Block(nil), column...), true, nil
}

func (m *memoryBlockStorage) LoadBlock(index, z int) (Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	column := m.columns[index]
	if z < 0 || z >= len(column) {
		return Block{}, nil
	}
	return column[z], nil
}

func (m *memoryBlockStorage) SaveColumn(index int, blocks []Block) error {
	dup := append([]Block(nil), blocks...)
	m.mu.Lock()
	m.columns[index] = dup
	m.mu.Unlock()
	return nil
}

func (m *memoryBlockStorage) Delete(index int) error {
	m.mu.Lock()
	delete(m.columns, index)
	m.mu.Unlock()
	return nil
}

func (m *memoryBlockStorage) ForEach(fn func(index int, blocks []Block) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for idx, column := range m.columns {
		if !fn(idx, append([]Block(nil), column...)) {
			break
		}
	}
	return nil
}

func (m *memoryBlockStorage) Close() error {
	return nil
}
