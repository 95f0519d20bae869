package world

import (
	"log"
	"sync"
	"sync/atomic"
)

// Chunk stores a dense block grid as vertical columns.
type Chunk struct {
	Key       ChunkCoord
	Bounds    Bounds
	mu        sync.RWMutex
	store     BlockStorage
	dimension Dimensions
	version   atomic.Uint64
}

func NewChunk(key ChunkCoord, bounds Bounds, dim Dimensions) *Chunk {
	store, err := getStorageProvider().NewStorage(key, bounds, dim)
	if err != nil {
		log.Printf("chunk storage unavailable for %v: %v", key, err)
		store, _ = newMemoryStorageProvider().NewStorage(key, bounds, dim)
	}
	return &Chunk{
		Key:       key,
		Bounds:    bounds,
		store:     store,
		dimension: dim,
	}
}

func (c *Chunk) columnIndex(localX, localY int) int {
	return localY*c.dimension.Width + localX
}

func (c *Chunk) inside(localX, localY, localZ int) bool {
	return localX >= 0 && localY >= 0 && localZ >= 0 &&
		localX < c.dimension.Width && localY < c.dimension.Depth && localZ < c.dimension.Height
}

func (c *Chunk) storage() BlockStorage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

func trimColumn(column []Block) []Block {
	end := len(column)
	for end > 0 && column[end-1].IsAir() {
		end--
	}
	return column[:end]
}

func (c *Chunk) GlobalToLocal(coord BlockCoord) (int, int, int, bool) {
	if !c.Bounds.Contains(coord) {
		return 0, 0, 0, false
	}
	return coord.X - c.Bounds.Min.X,
		coord.Y - c.Bounds.Min.Y,
		coord.Z - c.Bounds.Min.Z, true
}

// Version increments on every successful write to the chunk.
func (c *Chunk) Version() uint64 {
	return c.version.Load()
}

func (c *Chunk) LocalBlock(localX, localY, localZ int) (Block, bool) {
	if !c.inside(localX, localY, localZ) {
		return Block{}, false
	}
	store := c.storage()
	if store == nil {
		return Block{}, false
	}
	idx := c.columnIndex(localX, localY)
	block, err := store.LoadBlock(idx, localZ)
	if err != nil {
		log.Printf("chunk %v load block %d/%d: %v", c.Key, idx, localZ, err)
		return Block{}, false
	}
	return block, true
}

func (c *Chunk) SetLocalBlock(localX, localY, localZ int, block Block) bool {
	if !c.inside(localX, localY, localZ) {
		return false
	}
	store := c.storage()
	if store == nil {
		return false
	}
	idx := c.columnIndex(localX, localY)
	column, ok, err := store.LoadColumn(idx)
	if err != nil {
		log.Printf("chunk %v load column %d: %v", c.Key, idx, err)
		return false
	}
	if !ok {
		column = make([]Block, localZ+1)
	} else if localZ >= len(column) {
		expanded := make([]Block, localZ+1)
		copy(expanded, column)
		column = expanded
	}
	column[localZ] = block
	return c.persist(store, idx, trimColumn(column))
}

func (c *Chunk) ClearLocalBlock(localX, localY, localZ int) bool {
	return c.SetLocalBlock(localX, localY, localZ, Block{})
}

// SetColumnBlocks replaces the entire vertical column at the given local coordinates.
func (c *Chunk) SetColumnBlocks(localX, localY int, blocks []Block) bool {
	if localX < 0 || localY < 0 || localX >= c.dimension.Width || localY >= c.dimension.Depth {
		return false
	}
	store := c.storage()
	if store == nil {
		return false
	}
	column := make([]Block, len(blocks))
	copy(column, blocks)
	if len(column) > c.dimension.Height {
		column = column[:c.dimension.Height]
	}
	return c.persist(store, c.columnIndex(localX, localY), trimColumn(column))
}

func (c *Chunk) persist(store BlockStorage, idx int, column []Block) bool {
	var err error
	if len(column) == 0 {
		err = store.Delete(idx)
	} else {
		err = store.SaveColumn(idx, column)
	}
	if err != nil {
		log.Printf("chunk %v persist column %d: %v", c.Key, idx, err)
		return false
	}
	c.version.Add(1)
	return true
}

// TopSolid returns the local Z of the highest block with collision in the
// column, or -1 when the column is empty.
func (c *Chunk) TopSolid(localX, localY int) int {
	if localX < 0 || localY < 0 || localX >= c.dimension.Width || localY >= c.dimension.Depth {
		return -1
	}
	store := c.storage()
	if store == nil {
		return -1
	}
	column, ok, err := store.LoadColumn(c.columnIndex(localX, localY))
	if err != nil || !ok {
		return -1
	}
	for z := len(column) - 1; z >= 0; z-- {
		if column[z].HasCollision() {
			return z
		}
	}
	return -1
}

// ForEachBlock iterates over non-air blocks, invoking fn with global coordinates.
func (c *Chunk) ForEachBlock(fn func(global BlockCoord, block Block) bool) {
	store := c.storage()
	if store == nil {
		return
	}
	bounds := c.Bounds
	dim := c.dimension

	if err := store.ForEach(func(idx int, column []Block) bool {
		localX := idx % dim.Width
		localY := idx / dim.Width
		for localZ, block := range column {
			if block.IsAir() {
				continue
			}
			global := BlockCoord{
				X: bounds.Min.X + localX,
				Y: bounds.Min.Y + localY,
				Z: bounds.Min.Z + localZ,
			}
			if !fn(global, block) {
				return false
			}
		}
		return true
	}); err != nil {
		log.Printf("chunk %v iterate blocks: %v", c.Key, err)
	}
}

func (c *Chunk) Dimensions() Dimensions {
	return c.dimension
}

// HasStoredBlocks reports whether the chunk already has any persisted block data.
func (c *Chunk) HasStoredBlocks() bool {
	store := c.storage()
	if store == nil {
		return false
	}

	hasBlocks := false
	if err := store.ForEach(func(_ int, column []Block) bool {
		for _, block := range column {
			if !block.IsAir() {
				hasBlocks = true
				return false
			}
		}
		return true
	}); err != nil {
		log.Printf("chunk %v check stored blocks: %v", c.Key, err)
	}
	return hasBlocks
}

// Close releases any resources held by the chunk's underlying storage.
func (c *Chunk) Close() error {
	store := c.storage()
	if store == nil {
		return nil
	}
	return store.Close()
}
