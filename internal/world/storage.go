package world

import "sync"

// BlockStorage persists a chunk's block columns, indexed by localY*width+localX.
type BlockStorage interface {
	LoadColumn(index int) ([]Block, bool, error)
	// LoadBlock reads a single block without copying the column. A missing
	// column or a z above the stored column reads as air.
	LoadBlock(index, z int) (Block, error)
	SaveColumn(index int, blocks []Block) error
	Delete(index int) error
	ForEach(fn func(index int, blocks []Block) bool) error
	Close() error
}

// StorageProvider creates block storage instances for chunks.
type StorageProvider interface {
	NewStorage(key ChunkCoord, bounds Bounds, dim Dimensions) (BlockStorage, error)
}

var (
	storageProvider StorageProvider = newMemoryStorageProvider()
	storageMu       sync.RWMutex
)

// SetStorageProvider overrides the provider used for chunks created afterwards.
// Passing nil restores in-memory storage.
func SetStorageProvider(provider StorageProvider) {
	if provider == nil {
		provider = newMemoryStorageProvider()
	}
	storageMu.Lock()
	storageProvider = provider
	storageMu.Unlock()
}

func getStorageProvider() StorageProvider {
	storageMu.RLock()
	provider := storageProvider
	storageMu.RUnlock()
	return provider
}
