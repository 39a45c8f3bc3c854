package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/engine"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	seed := flag.Int64("seed", 0, "Emitter RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs")
	streamAddr := flag.String("stream-addr", "", "Websocket stats endpoint (overrides config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	addr := cfg.Stream.Addr
	if *streamAddr != "" {
		addr = *streamAddr
	}

	opts := engine.Options{
		Seed:       rngSeed,
		OutputDir:  *outputDir,
		StreamAddr: addr,
	}

	if *headless {
		e, err := engine.New(cfg, opts)
		if err != nil {
			slog.Error("failed to build engine", "error", err)
			os.Exit(1)
		}
		defer e.Close()

		slog.Info("starting headless run",
			"seed", rngSeed,
			"max_frames", *maxFrames,
		)

		for {
			e.Step()

			if *maxFrames > 0 && int(e.Frame()) >= *maxFrames {
				break
			}
		}
		e.Summary().Log()
		return
	}

	// Graphical mode
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Swarm")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	e, err := engine.New(cfg, opts)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer e.Close()

	for !rl.WindowShouldClose() {
		e.Step()
		drawFrame(e, cfg)

		if *maxFrames > 0 && int(e.Frame()) >= *maxFrames {
			break
		}
	}
	e.Summary().Log()
}
