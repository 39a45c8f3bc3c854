package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
)

// testConfig loads defaults overridden for a controlled scenario: no
// emitter, a fixed particle count, and a small grid.
func testConfig(t *testing.T, particles, cols, rows int) *config.Config {
	t.Helper()
	yaml := fmt.Sprintf(`
region:
  center_x: 200
  center_y: 200
  radius: 200
grid:
  columns: %d
  rows: %d
  spare_nodes: 0
particles:
  count: %d
emitter:
  rate: 0
telemetry:
  log_every: 0
`, cols, rows, particles)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func place(e *Engine, slot int, x, y, vx, vy, radius float32) {
	e.Particles()[slot] = components.Particle{
		Position: mgl32.Vec4{x, y, 0, 0},
		Velocity: mgl32.Vec4{vx, vy, 0, 0},
		Mass:     1,
		Radius:   radius,
		Active:   true,
	}
}

// Three isolated particles in distinct cells: nothing collides, every node
// holds exactly one particle, and the store comes out Morton-ordered.
func TestStepIsolatedParticles(t *testing.T) {
	cfg := testConfig(t, 3, 4, 4)
	e := newTestEngine(t, cfg)

	place(e, 0, 350, 50, 0, 0, 1)
	place(e, 1, 50, 350, 0, 0, 1)
	place(e, 2, 210, 210, 0, 0, 1)

	e.Step()

	stats := e.LastStats()
	if stats.Collisions != 0 {
		t.Errorf("collisions = %d, want 0", stats.Collisions)
	}
	if stats.OccupiedNodes != 3 {
		t.Errorf("occupied nodes = %d, want 3", stats.OccupiedNodes)
	}
	if stats.MaxOccupancy != 1 {
		t.Errorf("max occupancy = %d, want 1", stats.MaxOccupancy)
	}
	if stats.Active != 3 {
		t.Errorf("active = %d, want 3", stats.Active)
	}

	// The sorted store must hold the particles in ascending key order.
	particles := e.Particles()
	entries := make([]components.MortonEntry, len(particles))
	scratch := make([]components.Particle, len(particles))
	for i := range particles {
		systems.EncodeMorton(particles, entries, scratch, i)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Key < entries[i-1].Key {
			t.Errorf("store not Morton-ordered at slot %d: %#x < %#x",
				i, entries[i].Key, entries[i-1].Key)
		}
	}
}

// Two particles whose radii sum to exactly their distance: the boundary
// case counts as a collision and both sides pick up an impulse.
func TestStepExactTouchPair(t *testing.T) {
	cfg := testConfig(t, 2, 1, 1)
	e := newTestEngine(t, cfg)

	// Distance 6, radii 3+3. Approaching head-on.
	place(e, 0, 197, 200, 4, 0, 3)
	place(e, 1, 203, 200, -4, 0, 3)

	e.Step()

	stats := e.LastStats()
	if stats.Collisions != 2 {
		t.Errorf("summed collision counts = %d, want 2 (one per side)", stats.Collisions)
	}

	// The integrator applied the impulse forces: equal-mass head-on
	// collision swaps the velocities. The sort may have reordered the
	// store, so match particles by which side of the contact they are on.
	for i := range e.Particles() {
		p := e.Particles()[i]
		if p.Position.X() < 200 && p.Velocity.X() >= 0 {
			t.Errorf("left particle velocity %v, want negative (bounced)", p.Velocity.X())
		}
		if p.Position.X() > 200 && p.Velocity.X() <= 0 {
			t.Errorf("right particle velocity %v, want positive (bounced)", p.Velocity.X())
		}
	}
}

func TestStepEmitsAndSettles(t *testing.T) {
	yaml := `
particles:
  count: 512
emitter:
  rate: 64
telemetry:
  log_every: 0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, cfg)

	for frame := 0; frame < 10; frame++ {
		e.Step()
	}

	stats := e.LastStats()
	if stats.Active == 0 {
		t.Error("no active particles after 10 emitting frames")
	}
	if e.Frame() != 10 {
		t.Errorf("frame = %d, want 10", e.Frame())
	}

	summary := e.Summary()
	if summary.Frames != 10 {
		t.Errorf("summary frames = %d, want 10", summary.Frames)
	}
}

// The populate/commit pair must agree with the stats the engine reports
// even under sustained churn.
func TestStepOccupancyInvariant(t *testing.T) {
	cfg := testConfig(t, 300, 2, 2)
	e := newTestEngine(t, cfg)

	// Everything in one cell: forces overflow past NodeCapacity.
	for i := 0; i < 300; i++ {
		place(e, i, 50, 50, 0, 0, 0.5)
	}

	e.Step()

	stats := e.LastStats()
	if stats.MaxOccupancy != components.NodeCapacity {
		t.Errorf("max occupancy = %d, want capacity %d", stats.MaxOccupancy, components.NodeCapacity)
	}
	if want := uint32(300 - components.NodeCapacity); stats.OverflowDrops != want {
		t.Errorf("overflow drops = %d, want %d", stats.OverflowDrops, want)
	}
}
