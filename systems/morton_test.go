package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// Axis bit fields inside a 30-bit key: X occupies bits 2,5,8..., Y bits
// 1,4,7..., Z bits 0,3,6...
const (
	xFieldMask = 0x24924924
	yFieldMask = 0x12492492
	zFieldMask = 0x09249249
)

func TestExpandBits(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 0},
		{1, 1},
		{2, 0b1000},
		{3, 0b1001},
		{0b10000, 1 << 12},
		{0x3FF, 0x09249249},
	}
	for _, tt := range tests {
		if got := expandBits(tt.in); got != tt.want {
			t.Errorf("expandBits(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestMortonKeyInterleaving(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z uint32
		want    uint32
	}{
		{"origin", 0, 0, 0, 0},
		{"unit x", 1, 0, 0, 0b100},
		{"unit y", 0, 1, 0, 0b010},
		{"unit z", 0, 0, 1, 0b001},
		{"all ones", 1, 1, 1, 0b111},
		{"max", 0x3FF, 0x3FF, 0x3FF, components.MaxMortonKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MortonKey(tt.x, tt.y, tt.z); got != tt.want {
				t.Errorf("MortonKey(%d,%d,%d) = %#x, want %#x", tt.x, tt.y, tt.z, got, tt.want)
			}
		})
	}
}

// Moving one step along a single axis must only touch that axis's bit field.
func TestMortonKeyAxisFieldIsolation(t *testing.T) {
	coords := []uint32{0, 1, 63, 511, 1022}
	for _, c := range coords {
		base := MortonKey(c, 100, 200)

		if diff := base ^ MortonKey(c+1, 100, 200); diff == 0 || diff&^uint32(xFieldMask) != 0 {
			t.Errorf("x step at %d leaked outside x field: diff %#x", c, diff)
		}
		if diff := MortonKey(100, c, 200) ^ MortonKey(100, c+1, 200); diff == 0 || diff&^uint32(yFieldMask) != 0 {
			t.Errorf("y step at %d leaked outside y field: diff %#x", c, diff)
		}
		if diff := MortonKey(100, 200, c) ^ MortonKey(100, 200, c+1); diff == 0 || diff&^uint32(zFieldMask) != 0 {
			t.Errorf("z step at %d leaked outside z field: diff %#x", c, diff)
		}
	}
}

func TestMortonKeyMonotonicAlongAxis(t *testing.T) {
	prev := MortonKey(0, 77, 300)
	for x := uint32(1); x < 1024; x++ {
		key := MortonKey(x, 77, 300)
		if key <= prev {
			t.Fatalf("key not increasing at x=%d: %#x <= %#x", x, key, prev)
		}
		prev = key
	}
}

func TestEncodeMortonWritesEntryAndScratch(t *testing.T) {
	particles := []components.Particle{
		{Position: mgl32.Vec4{3, 4, 0, 0}, Velocity: mgl32.Vec4{1, 2, 3, 0}, Mass: 2, Radius: 1, Active: true},
		{Position: mgl32.Vec4{-5, 0, 5, 0}, Mass: 1, Radius: 1, Active: true},
	}
	entries := make([]components.MortonEntry, len(particles))
	scratch := make([]components.Particle, len(particles))

	for i := range particles {
		EncodeMorton(particles, entries, scratch, i)
	}

	for i := range particles {
		if entries[i].Index != uint32(i) {
			t.Errorf("entry %d index = %d", i, entries[i].Index)
		}
		if entries[i].Key > components.MaxMortonKey {
			t.Errorf("entry %d key %#x exceeds 30 bits", i, entries[i].Key)
		}
		if scratch[i] != particles[i] {
			t.Errorf("scratch copy %d differs from particle", i)
		}
	}

	// Position (3,4,0) normalizes to (0.6,0.8,0): remap, quantize, interleave.
	wantKey := MortonKey(quantize(0.8), quantize(0.9), quantize(0.5))
	if entries[0].Key != wantKey {
		t.Errorf("entry 0 key = %#x, want %#x", entries[0].Key, wantKey)
	}
}

func TestEncodeMortonInactiveSinksToTail(t *testing.T) {
	particles := []components.Particle{
		{Position: mgl32.Vec4{1, 1, 1, 0}, Active: true, Mass: 1},
		{Position: mgl32.Vec4{1, 1, 1, 0}, Mass: 1}, // inactive
	}
	entries := make([]components.MortonEntry, 2)
	scratch := make([]components.Particle, 2)

	for i := range particles {
		EncodeMorton(particles, entries, scratch, i)
	}

	if entries[1].Key != components.MaxMortonKey {
		t.Errorf("inactive key = %#x, want max %#x", entries[1].Key, uint32(components.MaxMortonKey))
	}
	if entries[0].Key >= entries[1].Key {
		t.Errorf("active key %#x should sort before inactive max key", entries[0].Key)
	}
}
