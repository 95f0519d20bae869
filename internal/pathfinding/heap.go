package pathfinding

import (
	"container/heap"
	"fmt"
)

// OpenSet is a binary min-heap of nodes ordered by F. Every node in the heap
// records its own slot so arbitrary nodes can be updated or removed in
// O(log n). Equal F values are ordered only by heap structure.
type OpenSet struct {
	items nodeQueue
}

func NewOpenSet() *OpenSet {
	return &OpenSet{items: make(nodeQueue, 0, 128)}
}

// Insert adds a node that is not already in the set.
func (s *OpenSet) Insert(n *Node) {
	if n.heapIndex >= 0 {
		panic(fmt.Sprintf("pathfinding: node %v already in open set at slot %d", n.Coord(), n.heapIndex))
	}
	heap.Push(&s.items, n)
}

// Pop removes and returns the node with the lowest F.
func (s *OpenSet) Pop() *Node {
	if len(s.items) == 0 {
		return nil
	}
	return heap.Pop(&s.items).(*Node)
}

// Peek returns the node with the lowest F without removing it.
func (s *OpenSet) Peek() *Node {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[0]
}

// Remove deletes n from the set.
func (s *OpenSet) Remove(n *Node) {
	if !s.holds(n) {
		panic(fmt.Sprintf("pathfinding: node %v not in open set (slot %d)", n.Coord(), n.heapIndex))
	}
	heap.Remove(&s.items, n.heapIndex)
}

// ChangeCost sets the priority of a queued node and restores heap order.
func (s *OpenSet) ChangeCost(n *Node, f float32) {
	if !s.holds(n) {
		panic(fmt.Sprintf("pathfinding: change cost of node %v outside open set", n.Coord()))
	}
	n.F = f
	heap.Fix(&s.items, n.heapIndex)
}

func (s *OpenSet) holds(n *Node) bool {
	return n.heapIndex >= 0 && n.heapIndex < len(s.items) && s.items[n.heapIndex] == n
}

func (s *OpenSet) Len() int {
	return len(s.items)
}

func (s *OpenSet) Empty() bool {
	return len(s.items) == 0
}

// Clear empties the set and marks every queued node as outside it.
func (s *OpenSet) Clear() {
	for i, n := range s.items {
		n.heapIndex = -1
		s.items[i] = nil
	}
	s.items = s.items[:0]
}

// Nodes returns the queued nodes in heap order.
func (s *OpenSet) Nodes() []*Node {
	return append([]*Node(nil), s.items...)
}

type nodeQueue []*Node

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].F < q[j].F }
func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *nodeQueue) Push(x any) {
	item := x.(*Node)
	item.heapIndex = len(*q)
	*q = append(*q, item)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIndex = -1
	*q = old[:n-1]
	return item
}
