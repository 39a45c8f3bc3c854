// Package engine owns the flat simulation arrays and drives the per-frame
// kernel pipeline: emit, tree reset, populate, collide, Morton encode, radix
// sort, integrate. Every phase is one Dispatch over the particle (or node)
// array; the dispatch barrier is the only ordering guarantee the kernels
// rely on.
package engine

import (
	"log/slog"

	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/telemetry"
)

// Options holds run-level settings that do not belong in the config file.
type Options struct {
	Seed       int64
	OutputDir  string // CSV output, empty = disabled
	StreamAddr string // websocket stats endpoint, empty = disabled
}

// Engine is the host side of the simulation: allocator and orchestrator of
// the frame pipeline.
type Engine struct {
	cfg *config.Config

	particles []components.Particle
	scratch   []components.Particle
	entries   []components.MortonEntry
	entriesB  []components.MortonEntry

	tree *systems.Tree
	hist *systems.Histogram

	region  systems.Region
	grid    systems.GridParams
	collide systems.CollideParams
	integ   systems.IntegrateParams

	dispatcher *Dispatcher
	emitter    *Emitter

	perf     *telemetry.PerfCollector
	output   *telemetry.OutputManager
	streamer *telemetry.Streamer
	history  []telemetry.FrameStats
	last     telemetry.FrameStats

	frame uint64
}

// New builds an engine from the loaded config.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	region := systems.Region{
		CenterX: float32(cfg.Region.CenterX),
		CenterY: float32(cfg.Region.CenterY),
		Radius:  float32(cfg.Region.Radius),
	}
	nodes := systems.BuildGrid(region, cfg.Grid.Columns, cfg.Grid.Rows, cfg.Grid.SpareNodes)

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	var streamer *telemetry.Streamer
	if opts.StreamAddr != "" {
		streamer = telemetry.NewStreamer(opts.StreamAddr)
	}

	count := cfg.Particles.Count
	e := &Engine{
		cfg:       cfg,
		particles: make([]components.Particle, count),
		scratch:   make([]components.Particle, count),
		entries:   make([]components.MortonEntry, count),
		entriesB:  make([]components.MortonEntry, count),
		tree:      systems.NewTree(nodes, cfg.Derived.GridNodes),
		hist:      systems.NewHistogram(count),
		region:    region,
		grid:      systems.NewGridParams(region, cfg.Grid.Columns, cfg.Grid.Rows),
		collide:   systems.CollideParams{InvDT: cfg.Derived.InvDT32},
		integ: systems.IntegrateParams{
			DT:     cfg.Derived.DT32,
			Region: region,
		},
		dispatcher: NewDispatcher(),
		emitter: NewEmitter(
			float32(cfg.Emitter.X), float32(cfg.Emitter.Y),
			cfg.Emitter.Rate,
			float32(cfg.Emitter.MaxVelocity),
			float32(cfg.Particles.Mass), float32(cfg.Particles.Radius),
			opts.Seed,
		),
		perf:     telemetry.NewPerfCollector(int(cfg.Telemetry.StatsWindow * float64(cfg.Screen.TargetFPS))),
		output:   output,
		streamer: streamer,
	}

	slog.Info("engine ready",
		"particles", count,
		"grid_nodes", cfg.Derived.GridNodes,
		"spare_nodes", cfg.Grid.SpareNodes,
		"node_capacity", components.NodeCapacity,
		"run_id", output.RunID(),
	)

	return e, nil
}

// Step advances the simulation one frame.
func (e *Engine) Step() {
	n := len(e.particles)
	nodes := len(e.tree.Nodes)
	e.perf.StartFrame()

	e.perf.StartPhase(telemetry.PhaseEmit)
	emitted := e.emitter.Emit(e.particles)

	e.perf.StartPhase(telemetry.PhaseReset)
	e.tree.ResetOverflow()
	e.dispatcher.Dispatch(nodes, e.tree.ResetNode)

	e.perf.StartPhase(telemetry.PhasePopulate)
	e.dispatcher.Dispatch(n, func(i int) {
		systems.PopulateParticle(e.tree, e.particles, e.grid, i)
	})
	e.dispatcher.Dispatch(nodes, e.tree.CommitNodeCount)

	e.perf.StartPhase(telemetry.PhaseCollide)
	e.dispatcher.Dispatch(n, func(i int) {
		systems.CollideParticle(e.tree, e.particles, e.collide, i)
	})

	e.perf.StartPhase(telemetry.PhaseMorton)
	e.dispatcher.Dispatch(n, func(i int) {
		systems.EncodeMorton(e.particles, e.entries, e.scratch, i)
	})

	e.perf.StartPhase(telemetry.PhaseSort)
	e.sortParticles(n)

	e.perf.StartPhase(telemetry.PhaseTelemetry)
	e.collectStats(emitted)

	e.perf.StartPhase(telemetry.PhaseIntegrate)
	e.dispatcher.Dispatch(n, func(i int) {
		systems.IntegrateParticle(e.particles, e.integ, i)
	})

	e.perf.EndFrame()
	e.report()
	e.frame++
}

// sortParticles runs the 15-pass LSD radix sort over the Morton entries and
// reorders the primary store from scratch storage. Each pass histograms the
// previous pass's output order; the Dispatch barrier between the histogram
// and scatter of a pass, and between passes, is what makes the per-group
// counts safe to read.
func (e *Engine) sortParticles(n int) {
	cur, next := e.entries, e.entriesB
	for pos := 0; pos < components.RadixDigits; pos++ {
		e.hist.Reset(pos)

		src := cur
		e.dispatcher.Dispatch(n, func(i int) {
			systems.HistogramDigit(e.hist, src, pos, i)
		})

		dst := next
		e.dispatcher.Dispatch(n, func(i int) {
			systems.ScatterDigit(e.hist, src, dst, pos, i)
		})

		cur, next = next, cur
	}

	sorted := cur
	e.dispatcher.Dispatch(n, func(i int) {
		systems.ResolveSort(e.particles, e.scratch, sorted, i)
	})
}

// collectStats samples the frame's counters before the integrator clears
// the per-particle ones.
func (e *Engine) collectStats(emitted int) {
	stats := telemetry.FrameStats{
		Frame:         e.frame,
		OverflowDrops: e.tree.OverflowDrops(),
		Emitted:       emitted,
	}

	for i := range e.particles {
		if !e.particles[i].Active {
			continue
		}
		stats.Active++
		stats.Collisions += uint64(e.particles[i].Collisions)
	}

	var totalOccupancy uint64
	for i := range e.tree.Nodes {
		node := &e.tree.Nodes[i]
		if !node.InUse || node.Count == 0 {
			continue
		}
		stats.OccupiedNodes++
		totalOccupancy += uint64(node.Count)
		if node.Count > stats.MaxOccupancy {
			stats.MaxOccupancy = node.Count
		}
	}
	if stats.OccupiedNodes > 0 {
		stats.MeanOccupancy = float64(totalOccupancy) / float64(stats.OccupiedNodes)
	}

	e.last = stats
	e.history = append(e.history, stats)
}

// report emits the frame's telemetry to the configured sinks.
func (e *Engine) report() {
	if err := e.output.WriteFrame(e.last); err != nil {
		slog.Warn("frame output failed", "error", err)
	}

	logEvery := e.cfg.Telemetry.LogEvery
	if logEvery > 0 && e.frame%uint64(logEvery) == 0 {
		e.last.Log()
		perf := e.perf.Stats()
		perf.LogStats()
		if err := e.output.WritePerf(perf, e.frame); err != nil {
			slog.Warn("perf output failed", "error", err)
		}
	}

	if e.streamer != nil {
		e.streamer.Publish(e.last, e.perf.Stats())
	}
}

// Frame returns the number of completed frames.
func (e *Engine) Frame() uint64 { return e.frame }

// Particles exposes the primary particle store. Callers may mutate it
// between Steps (the emitter and tests do); never during one.
func (e *Engine) Particles() []components.Particle { return e.particles }

// Nodes exposes the quadtree node array for inspection and rendering.
func (e *Engine) Nodes() []components.QuadNode { return e.tree.Nodes }

// LastStats returns the most recent frame's stats.
func (e *Engine) LastStats() telemetry.FrameStats { return e.last }

// Summary aggregates stats over every frame stepped so far.
func (e *Engine) Summary() telemetry.Summary { return telemetry.Summarize(e.history) }

// Close stops the workers and flushes the telemetry sinks.
func (e *Engine) Close() {
	e.dispatcher.Stop()
	if err := e.output.Close(); err != nil {
		slog.Warn("closing output failed", "error", err)
	}
	if e.streamer != nil {
		e.streamer.Close()
	}
}
