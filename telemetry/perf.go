// Package telemetry collects per-frame statistics and phase timings and
// writes them to structured logs, CSV files, and an optional live stream.
package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the frame pipeline, in dispatch order.
const (
	PhaseEmit      = "emit"
	PhaseReset     = "reset"
	PhasePopulate  = "populate"
	PhaseCollide   = "collide"
	PhaseMorton    = "morton"
	PhaseSort      = "sort"
	PhaseIntegrate = "integrate"
	PhaseTelemetry = "telemetry"
)

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of frames to average over (e.g. 60 for 1s at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartFrame begins timing a new frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, closing the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes timing the current frame and records the sample.
func (p *PerfCollector) EndFrame() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		FrameDuration: now.Sub(p.frameStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics over the window.
type PerfStats struct {
	AvgFrameDuration time.Duration
	MinFrameDuration time.Duration
	MaxFrameDuration time.Duration

	// Phase breakdown: average durations and share of frame time
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	FramesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total time.Duration
	var minFrame, maxFrame time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.FrameDuration

		if i == 0 || s.FrameDuration < minFrame {
			minFrame = s.FrameDuration
		}
		if s.FrameDuration > maxFrame {
			maxFrame = s.FrameDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var fps float64
	if avg > 0 {
		fps = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgFrameDuration: avg,
		MinFrameDuration: minFrame,
		MaxFrameDuration: maxFrame,
		PhaseAvg:         phaseAvg,
		PhasePct:         phasePct,
		FramesPerSecond:  fps,
	}
}

// LogStats logs performance statistics via slog.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_frame_us", s.AvgFrameDuration.Microseconds(),
		"min_frame_us", s.MinFrameDuration.Microseconds(),
		"max_frame_us", s.MaxFrameDuration.Microseconds(),
		"frames_per_sec", int(s.FramesPerSecond),
	}
	for phase, avg := range s.PhaseAvg {
		attrs = append(attrs, "phase_"+phase+"_us", avg.Microseconds())
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is the flattened CSV row shape for perf output.
type PerfStatsCSV struct {
	Frame       uint64  `csv:"frame"`
	AvgFrameUs  int64   `csv:"avg_frame_us"`
	MinFrameUs  int64   `csv:"min_frame_us"`
	MaxFrameUs  int64   `csv:"max_frame_us"`
	FPS         float64 `csv:"fps"`
	EmitUs      int64   `csv:"emit_us"`
	ResetUs     int64   `csv:"reset_us"`
	PopulateUs  int64   `csv:"populate_us"`
	CollideUs   int64   `csv:"collide_us"`
	MortonUs    int64   `csv:"morton_us"`
	SortUs      int64   `csv:"sort_us"`
	IntegrateUs int64   `csv:"integrate_us"`
	TelemetryUs int64   `csv:"telemetry_us"`
}

// ToCSV flattens the stats for CSV output at the given frame.
func (s PerfStats) ToCSV(frame uint64) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:       frame,
		AvgFrameUs:  s.AvgFrameDuration.Microseconds(),
		MinFrameUs:  s.MinFrameDuration.Microseconds(),
		MaxFrameUs:  s.MaxFrameDuration.Microseconds(),
		FPS:         s.FramesPerSecond,
		EmitUs:      s.PhaseAvg[PhaseEmit].Microseconds(),
		ResetUs:     s.PhaseAvg[PhaseReset].Microseconds(),
		PopulateUs:  s.PhaseAvg[PhasePopulate].Microseconds(),
		CollideUs:   s.PhaseAvg[PhaseCollide].Microseconds(),
		MortonUs:    s.PhaseAvg[PhaseMorton].Microseconds(),
		SortUs:      s.PhaseAvg[PhaseSort].Microseconds(),
		IntegrateUs: s.PhaseAvg[PhaseIntegrate].Microseconds(),
		TelemetryUs: s.PhaseAvg[PhaseTelemetry].Microseconds(),
	}
}
