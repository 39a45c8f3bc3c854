package systems

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

func testRegion() Region {
	return Region{CenterX: 200, CenterY: 200, Radius: 200}
}

// newTestTree builds a cols x rows grid tree with reset nodes.
func newTestTree(region Region, cols, rows int) *Tree {
	tree := NewTree(BuildGrid(region, cols, rows, 0), cols*rows)
	for n := range tree.Nodes {
		tree.ResetNode(n)
	}
	return tree
}

func activeParticleAt(x, y float32) components.Particle {
	return components.Particle{
		Position: mgl32.Vec4{x, y, 0, 0},
		Mass:     1,
		Radius:   1,
		Active:   true,
	}
}

func TestPopulateCountsMatchContents(t *testing.T) {
	region := testRegion()
	cols, rows := 4, 4
	tree := newTestTree(region, cols, rows)
	grid := NewGridParams(region, cols, rows)

	rng := rand.New(rand.NewSource(1))
	particles := make([]components.Particle, 500)
	for i := range particles {
		x := region.Left() + rng.Float32()*2*region.Radius
		y := region.Top() + rng.Float32()*2*region.Radius
		particles[i] = activeParticleAt(x, y)
	}

	for i := range particles {
		PopulateParticle(tree, particles, grid, i)
	}
	for n := range tree.Nodes {
		tree.CommitNodeCount(n)
	}

	var total uint32
	for n := range tree.Nodes {
		node := &tree.Nodes[n]
		if node.Count > components.NodeCapacity {
			t.Fatalf("node %d count %d exceeds capacity %d", n, node.Count, components.NodeCapacity)
		}
		seen := make(map[uint32]bool)
		for s := uint32(0); s < node.Count; s++ {
			p := node.Particles[s]
			if seen[p] {
				t.Fatalf("node %d lists particle %d twice", n, p)
			}
			seen[p] = true
			if particles[p].Node != uint32(n) {
				t.Errorf("particle %d in node %d but records node %d", p, n, particles[p].Node)
			}
		}
		total += node.Count
	}

	if want := uint32(len(particles)) - tree.OverflowDrops(); total != want {
		t.Errorf("total bucketed = %d, want %d", total, want)
	}
}

func TestPopulateNodeContainsPosition(t *testing.T) {
	region := testRegion()
	cols, rows := 8, 8
	tree := newTestTree(region, cols, rows)
	grid := NewGridParams(region, cols, rows)

	rng := rand.New(rand.NewSource(7))
	particles := make([]components.Particle, 200)
	for i := range particles {
		x := region.Left() + rng.Float32()*2*region.Radius
		y := region.Top() + rng.Float32()*2*region.Radius
		particles[i] = activeParticleAt(x, y)
	}

	for i := range particles {
		PopulateParticle(tree, particles, grid, i)
	}

	for i := range particles {
		node := &tree.Nodes[particles[i].Node]
		if !node.Contains(particles[i].Position.X(), particles[i].Position.Y()) {
			t.Errorf("particle %d at (%v,%v) assigned to node with bounds [%v,%v)x[%v,%v)",
				i, particles[i].Position.X(), particles[i].Position.Y(),
				node.Left, node.Right, node.Top, node.Bottom)
		}
	}
}

func TestNodeIndexBoundary(t *testing.T) {
	region := testRegion()
	grid := NewGridParams(region, 4, 4)

	tests := []struct {
		name string
		x, y float32
		want uint32
	}{
		{"region corner", region.Left(), region.Top(), 0},
		{"interior of first cell", region.Left() + 1, region.Top() + 1, 0},
		{"exactly on first column boundary", region.Left() + grid.CellWidth, region.Top(), 1},
		{"exactly on first row boundary", region.Left(), region.Top() + grid.CellHeight, 4},
		{"exact interior corner", region.Left() + grid.CellWidth, region.Top() + grid.CellHeight, 5},
		{"just below column boundary", region.Left() + grid.CellWidth - 0.001, region.Top(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grid.NodeIndex(tt.x, tt.y); got != tt.want {
				t.Errorf("NodeIndex(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestPopulateOverflowDropsSilently(t *testing.T) {
	region := testRegion()
	tree := newTestTree(region, 1, 1)
	grid := NewGridParams(region, 1, 1)

	extra := 17
	particles := make([]components.Particle, components.NodeCapacity+extra)
	for i := range particles {
		particles[i] = activeParticleAt(region.CenterX, region.CenterY)
	}

	for i := range particles {
		PopulateParticle(tree, particles, grid, i)
	}
	tree.CommitNodeCount(0)

	if got := tree.Nodes[0].Count; got != components.NodeCapacity {
		t.Errorf("node count = %d, want capacity %d", got, components.NodeCapacity)
	}
	if got := tree.OverflowDrops(); got != uint32(extra) {
		t.Errorf("overflow drops = %d, want %d", got, extra)
	}

	// Dropped particles still record the node they tried to enter.
	for i := range particles {
		if particles[i].Node != 0 {
			t.Fatalf("particle %d records node %d, want 0", i, particles[i].Node)
		}
	}
}

func TestPopulateConcurrent(t *testing.T) {
	region := testRegion()
	cols, rows := 2, 2
	tree := newTestTree(region, cols, rows)
	grid := NewGridParams(region, cols, rows)

	rng := rand.New(rand.NewSource(42))
	particles := make([]components.Particle, 4*components.NodeCapacity+100)
	for i := range particles {
		x := region.Left() + rng.Float32()*2*region.Radius
		y := region.Top() + rng.Float32()*2*region.Radius
		particles[i] = activeParticleAt(x, y)
	}

	workers := 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(particles); i += workers {
				PopulateParticle(tree, particles, grid, i)
			}
		}(w)
	}
	wg.Wait()
	for n := range tree.Nodes {
		tree.CommitNodeCount(n)
	}

	var total uint32
	for n := range tree.Nodes {
		node := &tree.Nodes[n]
		if node.Count > components.NodeCapacity {
			t.Fatalf("node %d count %d exceeds capacity", n, node.Count)
		}
		seen := make(map[uint32]bool)
		for s := uint32(0); s < node.Count; s++ {
			p := node.Particles[s]
			if seen[p] {
				t.Fatalf("node %d lists particle %d twice", n, p)
			}
			seen[p] = true
		}
		total += node.Count
	}
	if want := uint32(len(particles)) - tree.OverflowDrops(); total != want {
		t.Errorf("total bucketed = %d, want %d", total, want)
	}
}

func TestResetNodeDeactivatesSpares(t *testing.T) {
	region := testRegion()
	nodes := BuildGrid(region, 2, 2, 3)
	tree := NewTree(nodes, 4)

	// Pretend an external subdivider activated a spare last frame.
	tree.Nodes[5].InUse = true
	tree.Nodes[5].Count = 9

	for n := range tree.Nodes {
		tree.ResetNode(n)
	}

	for n := 0; n < 4; n++ {
		if !tree.Nodes[n].InUse {
			t.Errorf("grid node %d not in use after reset", n)
		}
	}
	for n := 4; n < 7; n++ {
		if tree.Nodes[n].InUse {
			t.Errorf("spare node %d still in use after reset", n)
		}
		if tree.Nodes[n].Count != 0 {
			t.Errorf("spare node %d count = %d after reset", n, tree.Nodes[n].Count)
		}
	}
}
