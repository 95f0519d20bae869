package pathfinding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"voxelpath/internal/world"
)

// ErrCorruptPath is returned when decoding malformed path data.
var ErrCorruptPath = errors.New("corrupt path data")

// Waypoint is a frozen copy of a node's state at the time a path was built.
type Waypoint struct {
	X, Y, Z        int
	WalkedDistance float32
	CostMalus      float32
	Closed         bool
	Type           PathType
	F              float32
}

func (w Waypoint) Coord() world.BlockCoord {
	return world.BlockCoord{X: w.X, Y: w.Y, Z: w.Z}
}

// DebugSnapshot holds the open and closed sets at the end of a search.
type DebugSnapshot struct {
	Open   []Waypoint
	Closed []Waypoint
}

// Path is the result of a search. Its waypoints never change after
// construction except through Truncate and Replace; the cursor belongs to
// whoever follows the path.
type Path struct {
	nodes            []Waypoint
	goal             world.BlockCoord
	reached          bool
	distanceToTarget int
	next             int
	debug            *DebugSnapshot
}

// NewPath builds a path over nodes towards goal.
func NewPath(nodes []Waypoint, goal world.BlockCoord, reached bool) *Path {
	p := &Path{
		nodes:   nodes,
		goal:    goal,
		reached: reached,
	}
	p.distanceToTarget = p.computeDistance()
	return p
}

func (p *Path) computeDistance() int {
	if len(p.nodes) == 0 {
		return math.MaxInt32
	}
	last := p.nodes[len(p.nodes)-1]
	return manhattan(last.X-p.goal.X, last.Y-p.goal.Y, last.Z-p.goal.Z)
}

func (p *Path) Len() int {
	return len(p.nodes)
}

func (p *Path) At(i int) Waypoint {
	return p.nodes[i]
}

// End returns the final waypoint, or false for an empty path.
func (p *Path) End() (Waypoint, bool) {
	if len(p.nodes) == 0 {
		return Waypoint{}, false
	}
	return p.nodes[len(p.nodes)-1], true
}

func (p *Path) Goal() world.BlockCoord {
	return p.goal
}

func (p *Path) Reached() bool {
	return p.reached
}

// DistanceToTarget is the Manhattan distance from the final waypoint to the
// goal, fixed when the path was built.
func (p *Path) DistanceToTarget() int {
	return p.distanceToTarget
}

func (p *Path) NextIndex() int {
	return p.next
}

// SetNextIndex moves the cursor, clamped to [0, Len()].
func (p *Path) SetNextIndex(i int) {
	p.next = min(max(i, 0), len(p.nodes))
}

func (p *Path) Advance() {
	p.SetNextIndex(p.next + 1)
}

// Done reports whether the cursor has passed the last waypoint.
func (p *Path) Done() bool {
	return p.next >= len(p.nodes)
}

// NextPos returns the waypoint under the cursor.
func (p *Path) NextPos() (world.BlockCoord, bool) {
	if p.Done() {
		return world.BlockCoord{}, false
	}
	return p.nodes[p.next].Coord(), true
}

// Truncate drops every waypoint from index n onwards.
func (p *Path) Truncate(n int) {
	if n < 0 || n >= len(p.nodes) {
		return
	}
	p.nodes = p.nodes[:n]
	p.next = min(p.next, n)
}

// Replace overwrites the waypoint at index i.
func (p *Path) Replace(i int, wp Waypoint) {
	if i < 0 || i >= len(p.nodes) {
		return
	}
	p.nodes[i] = wp
}

// SameAs reports whether both paths visit the same cells in the same order.
func (p *Path) SameAs(other *Path) bool {
	if other == nil || len(p.nodes) != len(other.nodes) {
		return false
	}
	for i := range p.nodes {
		if p.nodes[i].Coord() != other.nodes[i].Coord() {
			return false
		}
	}
	return true
}

// Coords returns the waypoint cells in order.
func (p *Path) Coords() []world.BlockCoord {
	coords := make([]world.BlockCoord, len(p.nodes))
	for i, n := range p.nodes {
		coords[i] = n.Coord()
	}
	return coords
}

// Debug returns the search snapshot captured with the path, if any.
func (p *Path) Debug() *DebugSnapshot {
	return p.debug
}

const waypointWireSize = 3*4 + 4 + 4 + 1 + 1 + 4

// MarshalBinary encodes the path in big-endian order: reached flag, cursor
// (uvarint), goal (3 x int32), waypoint count (uvarint), then each waypoint
// as x, y, z (int32), walked distance, malus (float32), closed flag, type
// ordinal (byte) and f (float32). Debug snapshots are not encoded.
func (p *Path) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(1 + 2*binary.MaxVarintLen64 + 12 + len(p.nodes)*waypointWireSize)

	var scratch [binary.MaxVarintLen64]byte
	buf.WriteByte(boolByte(p.reached))
	buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(p.next))])
	for _, v := range [3]int{p.goal.X, p.goal.Y, p.goal.Z} {
		if err := writeInt32(&buf, v); err != nil {
			return nil, fmt.Errorf("encode goal: %w", err)
		}
	}
	buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(len(p.nodes)))])

	for i, n := range p.nodes {
		for _, v := range [3]int{n.X, n.Y, n.Z} {
			if err := writeInt32(&buf, v); err != nil {
				return nil, fmt.Errorf("encode waypoint %d: %w", i, err)
			}
		}
		writeFloat32(&buf, n.WalkedDistance)
		writeFloat32(&buf, n.CostMalus)
		buf.WriteByte(boolByte(n.Closed))
		buf.WriteByte(byte(n.Type))
		writeFloat32(&buf, n.F)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (p *Path) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	reached, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reached flag: %v", ErrCorruptPath, err)
	}
	cursor, err := binary.ReadUvarint(r)
	if err != nil {
		return fmt.Errorf("%w: cursor: %v", ErrCorruptPath, err)
	}
	var goal [3]int32
	if err := binary.Read(r, binary.BigEndian, &goal); err != nil {
		return fmt.Errorf("%w: goal: %v", ErrCorruptPath, err)
	}
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return fmt.Errorf("%w: node count: %v", ErrCorruptPath, err)
	}
	if count > uint64(r.Len()/waypointWireSize) {
		return fmt.Errorf("%w: %d waypoints declared, %d bytes left", ErrCorruptPath, count, r.Len())
	}
	if cursor > count {
		return fmt.Errorf("%w: cursor %d past %d waypoints", ErrCorruptPath, cursor, count)
	}

	nodes := make([]Waypoint, count)
	for i := range nodes {
		var wire struct {
			X, Y, Z   int32
			Walked    float32
			CostMalus float32
			Closed    uint8
			Type      uint8
			F         float32
		}
		if err := binary.Read(r, binary.BigEndian, &wire); err != nil {
			return fmt.Errorf("%w: waypoint %d: %v", ErrCorruptPath, i, err)
		}
		t := PathType(wire.Type)
		if !t.Valid() {
			return fmt.Errorf("%w: waypoint %d: unknown path type %d", ErrCorruptPath, i, wire.Type)
		}
		nodes[i] = Waypoint{
			X: int(wire.X), Y: int(wire.Y), Z: int(wire.Z),
			WalkedDistance: wire.Walked,
			CostMalus:      wire.CostMalus,
			Closed:         wire.Closed != 0,
			Type:           t,
			F:              wire.F,
		}
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptPath, r.Len())
	}

	*p = Path{
		nodes:   nodes,
		goal:    world.BlockCoord{X: int(goal[0]), Y: int(goal[1]), Z: int(goal[2])},
		reached: reached != 0,
		next:    int(cursor),
	}
	p.distanceToTarget = p.computeDistance()
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func writeInt32(w io.Writer, v int) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("coordinate %d overflows int32", v)
	}
	return binary.Write(w, binary.BigEndian, int32(v))
}

func writeFloat32(w io.Writer, v float32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	w.Write(b[:])
}
