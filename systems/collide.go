package systems

import (
	"github.com/pthm-cable/swarm/components"
)

// diagonalScale is sin(45°): how far a circular influence radius reaches
// along a diagonal before it can overlap a corner-adjacent node.
const diagonalScale = 0.70710678

// CollideParams carries the per-frame constants of the collision resolver.
type CollideParams struct {
	InvDT float32 // reciprocal of the frame delta-time
}

// CollideParticle is the per-particle kernel of the collision resolver.
// Particle i is tested against everything bucketed in its own node, then
// against each of the up to 8 neighboring nodes its influence radius
// reaches into. Only particle i is updated; the mirrored invocation on the
// partner applies the other half of each impulse.
func CollideParticle(t *Tree, particles []components.Particle, params CollideParams, i int) {
	p := particles[i] // lane-private copy
	if !p.Active {
		return
	}

	node := &t.Nodes[p.Node]
	if node.Count > 0 {
		collideWithNode(&p, uint32(i), node, particles, params)
	}

	// A particle near a corner can reach several neighbors at once, so all
	// 8 directions are tested independently rather than as exclusive cases.
	x := p.Position.X()
	y := p.Position.Y()
	r := p.Radius
	d := r * diagonalScale

	overlaps := [components.NumNeighbors]bool{
		components.NeighborTopLeft:     x-d < node.Left && y-d < node.Top,
		components.NeighborTop:         y-r < node.Top,
		components.NeighborTopRight:    x+d > node.Right && y-d < node.Top,
		components.NeighborRight:       x+r > node.Right,
		components.NeighborBottomRight: x+d > node.Right && y+d > node.Bottom,
		components.NeighborBottom:      y+r > node.Bottom,
		components.NeighborBottomLeft:  x-d < node.Left && y+d > node.Bottom,
		components.NeighborLeft:        x-r < node.Left,
	}

	for dir, hit := range overlaps {
		if !hit {
			continue
		}
		n := node.Neighbors[dir]
		if n == components.InvalidIndex {
			continue
		}
		neighbor := &t.Nodes[n]
		if neighbor.InUse && neighbor.Count > 0 {
			collideWithNode(&p, uint32(i), neighbor, particles, params)
		}
	}

	// Write back only the fields this kernel mutates. Other lanes of the
	// same dispatch read this particle's position and velocity, so a
	// whole-struct store would race with those reads.
	particles[i].NetForce = p.NetForce
	particles[i].Collisions = p.Collisions
}

// collideWithNode tests p against every particle bucketed in node,
// accumulating impulse forces into p only. Entries at or past node.Count
// are stale from earlier frames and excluded by the loop bound.
func collideWithNode(p *components.Particle, self uint32, node *components.QuadNode, particles []components.Particle, params CollideParams) {
	for s := uint32(0); s < node.Count; s++ {
		other := node.Particles[s]
		if other == self {
			continue
		}

		q := &particles[other]
		delta := p.Position.Sub(q.Position)
		distSq := delta.Dot(delta)
		reach := p.Radius + q.Radius
		if distSq > reach*reach {
			continue
		}
		if distSq == 0 {
			// Coincident centers have no contact normal to push along.
			continue
		}

		// 1D elastic collision along the line of centers: project the
		// relative velocity onto the center line and exchange momentum
		// with the standard two-body elastic weights.
		relVel := p.Velocity.Sub(q.Velocity)
		k := (2 * q.Mass / (p.Mass + q.Mass)) * relVel.Dot(delta) / distSq
		deltaV := delta.Mul(-k)

		// force = Δmomentum / Δt, accumulated so simultaneous collisions
		// within one frame stack up.
		p.NetForce = p.NetForce.Add(deltaV.Mul(p.Mass * params.InvDT))
		p.Collisions++
	}
}
