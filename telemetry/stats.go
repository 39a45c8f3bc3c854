package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FrameStats holds one frame's simulation counters, sampled after the
// collision phase (the integrator clears per-particle counters).
type FrameStats struct {
	Frame  uint64 `csv:"frame"`
	Active int    `csv:"active"`

	// Collisions is the sum of per-particle collision counts; every
	// resolved pair contributes twice (once per side).
	Collisions uint64 `csv:"collisions"`

	// OverflowDrops counts particles that hit a full node and were left
	// out of spatial indexing this frame.
	OverflowDrops uint32 `csv:"overflow_drops"`

	// Node occupancy after populate.
	OccupiedNodes int     `csv:"occupied_nodes"`
	MaxOccupancy  uint32  `csv:"max_occupancy"`
	MeanOccupancy float64 `csv:"mean_occupancy"`

	Emitted int `csv:"emitted"`
}

// Log writes the frame stats as a structured log line.
func (s FrameStats) Log() {
	slog.Info("frame",
		"frame", s.Frame,
		"active", s.Active,
		"collisions", s.Collisions,
		"overflow_drops", s.OverflowDrops,
		"occupied_nodes", s.OccupiedNodes,
		"max_occupancy", s.MaxOccupancy,
		"mean_occupancy", s.MeanOccupancy,
		"emitted", s.Emitted,
	)
}

// Summary aggregates a series of frame stats for end-of-run reporting.
type Summary struct {
	Frames uint64

	CollisionsMean float64
	CollisionsStd  float64
	CollisionsP50  float64
	CollisionsP90  float64

	OverflowMean float64
	OverflowMax  uint32

	OccupancyMean float64
	OccupancyMax  uint32
}

// Summarize computes run-level statistics from collected frame stats.
func Summarize(frames []FrameStats) Summary {
	s := Summary{Frames: uint64(len(frames))}
	if len(frames) == 0 {
		return s
	}

	collisions := make([]float64, len(frames))
	overflow := make([]float64, len(frames))
	occupancy := make([]float64, len(frames))
	for i, f := range frames {
		collisions[i] = float64(f.Collisions)
		overflow[i] = float64(f.OverflowDrops)
		occupancy[i] = f.MeanOccupancy
		if f.OverflowDrops > s.OverflowMax {
			s.OverflowMax = f.OverflowDrops
		}
		if f.MaxOccupancy > s.OccupancyMax {
			s.OccupancyMax = f.MaxOccupancy
		}
	}

	s.CollisionsMean, s.CollisionsStd = stat.MeanStdDev(collisions, nil)
	sort.Float64s(collisions)
	s.CollisionsP50 = stat.Quantile(0.5, stat.Empirical, collisions, nil)
	s.CollisionsP90 = stat.Quantile(0.9, stat.Empirical, collisions, nil)

	s.OverflowMean = stat.Mean(overflow, nil)
	s.OccupancyMean = stat.Mean(occupancy, nil)

	return s
}

// Log writes the summary as a structured log line.
func (s Summary) Log() {
	slog.Info("run summary",
		"frames", s.Frames,
		"collisions_mean", s.CollisionsMean,
		"collisions_std", s.CollisionsStd,
		"collisions_p50", s.CollisionsP50,
		"collisions_p90", s.CollisionsP90,
		"overflow_mean", s.OverflowMean,
		"overflow_max", s.OverflowMax,
		"occupancy_mean", s.OccupancyMean,
		"occupancy_max", s.OccupancyMax,
	)
}
