package pathfinding

import (
	"math"

	"voxelpath/internal/world"
)

// NodeID indexes a node inside a NodePool.
type NodeID int32

const noNode NodeID = -1

// Node is the search state of a single cell. Nodes are owned by a NodePool and
// are only valid until the pool is reset.
type Node struct {
	X, Y, Z int

	G, H, F        float32
	WalkedDistance float32
	CostMalus      float32
	Type           PathType
	// Closed never reverts to false within a search.
	Closed bool

	id        NodeID
	parent    NodeID
	heapIndex int
}

func (n *Node) Coord() world.BlockCoord {
	return world.BlockCoord{X: n.X, Y: n.Y, Z: n.Z}
}

// InOpenSet reports whether the node currently sits in the open set.
func (n *Node) InOpenSet() bool {
	return n.heapIndex >= 0
}

// HasParent reports whether the node has a predecessor.
func (n *Node) HasParent() bool {
	return n.parent != noNode
}

// DistanceTo is the straight-line distance between two nodes.
func (n *Node) DistanceTo(o *Node) float32 {
	return distance3(n.X-o.X, n.Y-o.Y, n.Z-o.Z)
}

func (n *Node) distanceToCoord(c world.BlockCoord) float32 {
	return distance3(n.X-c.X, n.Y-c.Y, n.Z-c.Z)
}

func (n *Node) manhattanToCoord(c world.BlockCoord) int {
	return manhattan(n.X-c.X, n.Y-c.Y, n.Z-c.Z)
}

func (n *Node) waypoint() Waypoint {
	return Waypoint{
		X: n.X, Y: n.Y, Z: n.Z,
		WalkedDistance: n.WalkedDistance,
		CostMalus:      n.CostMalus,
		Closed:         n.Closed,
		Type:           n.Type,
		F:              n.F,
	}
}

func distance3(dx, dy, dz int) float32 {
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

func manhattan(dx, dy, dz int) int {
	return abs(dx) + abs(dy) + abs(dz)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

const nodeBlockSize = 1024

// NodePool materialises nodes on demand, one per coordinate. Nodes live in
// fixed-size blocks so pointers stay stable while the pool grows.
type NodePool struct {
	blocks [][]Node
	index  map[world.BlockCoord]NodeID
	count  int
}

func NewNodePool() *NodePool {
	return &NodePool{index: make(map[world.BlockCoord]NodeID)}
}

// Get returns the node for the coordinate, creating it on first use.
func (p *NodePool) Get(x, y, z int) *Node {
	coord := world.BlockCoord{X: x, Y: y, Z: z}
	if id, ok := p.index[coord]; ok {
		return p.Node(id)
	}

	blockIdx := p.count / nodeBlockSize
	if blockIdx == len(p.blocks) {
		p.blocks = append(p.blocks, make([]Node, nodeBlockSize))
	}
	id := NodeID(p.count)
	p.count++

	node := &p.blocks[blockIdx][int(id)%nodeBlockSize]
	*node = Node{
		X: x, Y: y, Z: z,
		Type:      PathBlocked,
		id:        id,
		parent:    noNode,
		heapIndex: -1,
	}
	p.index[coord] = id
	return node
}

// Lookup returns the node for the coordinate without creating it.
func (p *NodePool) Lookup(coord world.BlockCoord) (*Node, bool) {
	id, ok := p.index[coord]
	if !ok {
		return nil, false
	}
	return p.Node(id), true
}

// Node resolves an id handed out by this pool since the last Reset.
func (p *NodePool) Node(id NodeID) *Node {
	if id < 0 || int(id) >= p.count {
		return nil
	}
	return &p.blocks[int(id)/nodeBlockSize][int(id)%nodeBlockSize]
}

// Parent returns the predecessor of n, or nil for the root.
func (p *NodePool) Parent(n *Node) *Node {
	if n == nil || n.parent == noNode {
		return nil
	}
	return p.Node(n.parent)
}

func (p *NodePool) setParent(n, parent *Node) {
	if parent == nil {
		n.parent = noNode
		return
	}
	n.parent = parent.id
}

func (p *NodePool) Len() int {
	return p.count
}

// Reset forgets every node while keeping the allocated blocks for reuse.
func (p *NodePool) Reset() {
	p.count = 0
	clear(p.index)
}
