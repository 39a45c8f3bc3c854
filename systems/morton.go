package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// expandBits spreads the low 10 bits of v two positions apart, leaving two
// zero bits between each source bit. Canonical 4-step magic-constant
// expansion for 3D Z-order encoding.
func expandBits(v uint32) uint32 {
	v = (v * 0x00010001) & 0xFF0000FF
	v = (v * 0x00000101) & 0x0F00F00F
	v = (v * 0x00000011) & 0xC30C30C3
	v = (v * 0x00000005) & 0x49249249
	return v
}

// MortonKey interleaves three 10-bit axis coordinates bit-by-bit into a
// 30-bit Z-order key, X in the highest position of each 3-bit run.
func MortonKey(x, y, z uint32) uint32 {
	return 4*expandBits(x) + 2*expandBits(y) + expandBits(z)
}

// quantize maps a normalized [0,1] coordinate onto a 10-bit integer.
func quantize(v float32) uint32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1<<components.MortonAxisBits - 1
	}
	return uint32(v * float32(1<<components.MortonAxisBits-1))
}

// EncodeMorton is the per-particle kernel of the Morton coder. It writes the
// particle's sort key entry and a verbatim copy of the particle into scratch
// storage, both at the particle's current slot. Inactive slots still get an
// entry (with the maximum key, so they sink to the tail) to keep the
// scatter phase a bijection over the whole store.
//
// The position is normalized by its own magnitude before quantization, so
// callers must supply positions relative to the simulation origin.
func EncodeMorton(particles []components.Particle, entries []components.MortonEntry, scratch []components.Particle, i int) {
	p := particles[i]
	scratch[i] = p

	key := uint32(components.MaxMortonKey)
	if p.Active {
		dir := p.Position.Vec3()
		if dir.Len() > 0 {
			dir = dir.Normalize()
		} else {
			dir = mgl32.Vec3{}
		}

		// Remap each axis from [-1,1] to [0,1], then take 10 bits.
		qx := quantize((dir.X() + 1) * 0.5)
		qy := quantize((dir.Y() + 1) * 0.5)
		qz := quantize((dir.Z() + 1) * 0.5)
		key = MortonKey(qx, qy, qz)
	}

	entries[i] = components.MortonEntry{Index: uint32(i), Key: key}
}
