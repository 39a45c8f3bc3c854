// Package components defines the flat data records shared by every frame
// phase. All cross-record references are integer indices into the same
// arrays, so the whole simulation state stays in a handful of contiguous
// allocations that every worker lane can address uniformly.
package components

import "github.com/go-gl/mathgl/mgl32"

// Particle is one slot in the particle store. W components are carried for
// layout parity with the staging buffers but are unused by the physics.
type Particle struct {
	Position mgl32.Vec4
	Velocity mgl32.Vec4
	NetForce mgl32.Vec4 // accumulated this frame, cleared by the integrator

	Collisions uint32 // collisions resolved this frame (diagnostic)
	Mass       float32
	Radius     float32 // radius of influence for the narrow phase
	Node       uint32  // quadtree node currently occupied, set by the populator
	Active     bool
}
