package components

// NodeCapacity is the fixed number of particle slots in a quadtree node.
// Particles bucketed past this are dropped from spatial indexing for the
// frame rather than grown into.
const NodeCapacity = 100

// InvalidIndex marks a missing neighbor or child link.
const InvalidIndex = ^uint32(0)

// Neighbor directions, clockwise from the upper-left corner.
const (
	NeighborTopLeft = iota
	NeighborTop
	NeighborTopRight
	NeighborRight
	NeighborBottomRight
	NeighborBottom
	NeighborBottomLeft
	NeighborLeft
	NumNeighbors
)

// Child quadrants, in the order subdivision fills them.
const (
	ChildTopLeft = iota
	ChildTopRight
	ChildBottomRight
	ChildBottomLeft
	NumChildren
)

// QuadNode is one slot in the flat quadtree node array. Children and
// neighbors are indices into the same array, with InvalidIndex standing in
// for "none". Bounds use screen convention: Y grows downward, Top < Bottom.
//
// Particles[0:Count] are valid for the current frame; entries past Count are
// stale leftovers from earlier frames and must never be read.
type QuadNode struct {
	Particles [NodeCapacity]uint32
	Count     uint32

	InUse      bool
	Subdivided bool
	Children   [NumChildren]uint32

	Left, Top, Right, Bottom float32

	Neighbors [NumNeighbors]uint32
}

// Contains reports whether a point falls inside the node's bounds, treating
// Left/Top as inclusive and Right/Bottom as exclusive so adjacent nodes
// never both claim a boundary point.
func (n *QuadNode) Contains(x, y float32) bool {
	return x >= n.Left && x < n.Right && y >= n.Top && y < n.Bottom
}
