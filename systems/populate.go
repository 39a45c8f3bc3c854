// Package systems contains the per-frame kernels. Each kernel is a pure
// function of one work-item index; the engine dispatches it across every
// particle (or node) and barriers before the next phase. Kernels coordinate
// only through atomic counters, everything else is a lane-private copy
// written back at the end.
package systems

import (
	"sync/atomic"

	"github.com/pthm-cable/swarm/components"
)

// Region is the square simulation region: a center point plus a half-width.
// Y grows downward.
type Region struct {
	CenterX, CenterY float32
	Radius           float32
}

func (r Region) Left() float32   { return r.CenterX - r.Radius }
func (r Region) Top() float32    { return r.CenterY - r.Radius }
func (r Region) Right() float32  { return r.CenterX + r.Radius }
func (r Region) Bottom() float32 { return r.CenterY + r.Radius }

// GridParams describes the initial uniform grid the populator buckets into.
type GridParams struct {
	Left, Top             float32
	CellWidth, CellHeight float32
	Cols, Rows            int
}

// NewGridParams derives cell geometry from the region and grid shape.
func NewGridParams(region Region, cols, rows int) GridParams {
	side := 2 * region.Radius
	return GridParams{
		Left:       region.Left(),
		Top:        region.Top(),
		CellWidth:  side / float32(cols),
		CellHeight: side / float32(rows),
		Cols:       cols,
		Rows:       rows,
	}
}

// NodeIndex maps a position to its grid node with truncating division. The
// result is not range-checked: positions outside the region fault at the
// node array access.
func (g GridParams) NodeIndex(x, y float32) uint32 {
	col := int((x - g.Left) / g.CellWidth)
	row := int((y - g.Top) / g.CellHeight)
	return uint32(row*g.Cols + col)
}

// Tree is the flat quadtree shared by every phase of a frame. Slot
// allocation during populate goes through a per-node atomic counter kept
// separate from the node's stored Count, so concurrent inserters never race
// on node fields; CommitNodeCount publishes the counter into Count once the
// populate barrier has passed.
type Tree struct {
	Nodes []components.QuadNode

	// gridNodes nodes belong to the initial grid and start every frame in
	// use; slots past that are subdivision spares, reactivated externally.
	gridNodes int

	alloc    []atomic.Uint32
	overflow atomic.Uint32
}

// NewTree wraps a prebuilt node array. Nodes below gridNodes begin each
// frame marked in use.
func NewTree(nodes []components.QuadNode, gridNodes int) *Tree {
	return &Tree{
		Nodes:     nodes,
		gridNodes: gridNodes,
		alloc:     make([]atomic.Uint32, len(nodes)),
	}
}

// ResetNode is the per-node kernel run at the top of each frame. It clears
// the per-frame mutable fields only; bounds, neighbor links, and subdivision
// topology belong to the external grid builder.
func (t *Tree) ResetNode(n int) {
	node := &t.Nodes[n]
	node.Count = 0
	node.InUse = n < t.gridNodes
	t.alloc[n].Store(0)
}

// Insert claims a slot in node n for particle p. It returns false when the
// node is at capacity, in which case the claim is released and the particle
// is simply not indexed this frame.
func (t *Tree) Insert(n uint32, p uint32) bool {
	slot := t.alloc[n].Add(1) - 1
	if slot >= components.NodeCapacity {
		t.alloc[n].Add(^uint32(0))
		t.overflow.Add(1)
		return false
	}
	t.Nodes[n].Particles[slot] = p
	return true
}

// CommitNodeCount is the per-node kernel run after the populate barrier. It
// publishes the final allocator value as the node's stored count.
func (t *Tree) CommitNodeCount(n int) {
	count := t.alloc[n].Load()
	if count > components.NodeCapacity {
		count = components.NodeCapacity
	}
	t.Nodes[n].Count = count
}

// OverflowDrops returns the number of particles dropped from spatial
// indexing since the last ResetOverflow. The drop itself raises no signal;
// an orchestrator watching this counter can react with resubdivision.
func (t *Tree) OverflowDrops() uint32 { return t.overflow.Load() }

// ResetOverflow clears the drop counter for the next frame.
func (t *Tree) ResetOverflow() { t.overflow.Store(0) }

// PopulateParticle is the per-particle kernel assigning particle i to the
// grid node containing its position. Side effect: the particle's Node field
// is updated even when the node is full, so the collision phase still walks
// the right bucket for it.
func PopulateParticle(t *Tree, particles []components.Particle, grid GridParams, i int) {
	p := &particles[i]
	if !p.Active {
		return
	}

	node := grid.NodeIndex(p.Position.X(), p.Position.Y())
	p.Node = node
	t.Insert(node, uint32(i))
}
