package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// IntegrateParams carries the per-frame constants of the integrator.
type IntegrateParams struct {
	DT     float32
	Region Region
}

// IntegrateParticle is the per-particle kernel of the explicit-Euler
// integrator. It consumes the net force accumulated by the collision
// resolver, advances velocity and position, clears the per-frame
// accumulators, and deactivates particles that leave the region.
func IntegrateParticle(particles []components.Particle, params IntegrateParams, i int) {
	p := particles[i]
	if !p.Active {
		return
	}

	accel := p.NetForce.Mul(1 / p.Mass)
	p.Velocity = p.Velocity.Add(accel.Mul(params.DT))
	p.Position = p.Position.Add(p.Velocity.Mul(params.DT))

	p.NetForce = mgl32.Vec4{}
	p.Collisions = 0

	r := params.Region
	x, y := p.Position.X(), p.Position.Y()
	if x < r.Left() || x >= r.Right() || y < r.Top() || y >= r.Bottom() {
		p.Active = false
	}

	particles[i] = p
}
