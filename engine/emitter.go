package engine

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// Emitter reactivates inactive particle slots at a fixed point with a
// randomized launch velocity. It never grows the store: when every slot is
// active it emits nothing. Runs host-side before the frame's dispatches.
type Emitter struct {
	X, Y        float32
	Rate        int
	MaxVelocity float32
	Mass        float32
	Radius      float32

	rng *rand.Rand
}

// NewEmitter creates a point emitter with its own deterministic RNG.
func NewEmitter(x, y float32, rate int, maxVelocity, mass, radius float32, seed int64) *Emitter {
	return &Emitter{
		X:           x,
		Y:           y,
		Rate:        rate,
		MaxVelocity: maxVelocity,
		Mass:        mass,
		Radius:      radius,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Emit activates up to Rate inactive slots and returns how many it launched.
func (e *Emitter) Emit(particles []components.Particle) int {
	if e.Rate <= 0 {
		return 0
	}

	launched := 0
	for i := range particles {
		if particles[i].Active {
			continue
		}

		angle := e.rng.Float64() * 2 * math.Pi
		speed := e.rng.Float32() * e.MaxVelocity
		vx := float32(math.Cos(angle)) * speed
		vy := float32(math.Sin(angle)) * speed

		particles[i] = components.Particle{
			Position: mgl32.Vec4{e.X, e.Y, 0, 0},
			Velocity: mgl32.Vec4{vx, vy, 0, 0},
			Mass:     e.Mass,
			Radius:   e.Radius,
			Active:   true,
		}

		launched++
		if launched >= e.Rate {
			break
		}
	}
	return launched
}
