package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/log"
	"github.com/ironsheep/dot-finder/internal/pipeline"
	"github.com/ironsheep/dot-finder/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	topic         = flag.String("topic", "camera", "Source stream id; topics are <id>/image_raw, <id>/camera_info, ...")
	configPath    = flag.String("config", "", "Optional JSON file with threshold parameters")
	statsInterval = flag.Duration("stats-interval", time.Minute, "Interval between frame statistics log lines (0 disables)")

	// Offline replay
	replayDir      = flag.String("replay", "", "Process the PNG/JPEG frames of this directory instead of reading stdin")
	cameraInfoPath = flag.String("camera-info", "", "JSON camera info used with -replay")
	replayFPS      = flag.Float64("fps", 0, "Replay rate in frames per second (0 = as fast as possible)")
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("dot-finder %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}
	flag.Parse()

	// Logging goes to stderr (stdout is the message bus)
	log.FromEnv()
	logger := log.With("run", uuid.NewString())
	logger.Info("dot-finder starting", "version", Version, "commit", GitCommit, "topic", *topic)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, logger)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dot-finder stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("dot-finder stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logger.Info("loaded parameters", "path", *configPath)
	}

	topics := server.NewTopics(*topic)
	if topics.Source() == "" {
		return errors.New("-topic must not be empty")
	}

	srv := server.New(os.Stdin, os.Stdout, topics)
	ctrl := pipeline.NewController(topics.Source(), calibration.NewStore(), config.NewStore(cfg), srv,
		pipeline.WithLogger(logger))

	if *statsInterval > 0 {
		go statsMonitor(ctx, ctrl, *statsInterval, logger)
	}

	if *replayDir != "" {
		return replay(ctx, ctrl, replayOptions{
			dir:        *replayDir,
			cameraInfo: *cameraInfoPath,
			fps:        *replayFPS,
			frameID:    topics.Source(),
		}, logger)
	}

	logger.Info("listening on stdin", "inputs", topics.Inputs(), "outputs", topics.Outputs())
	return srv.Run(ctx, ctrl)
}

// statsMonitor logs the frame counters every interval until ctx is done.
func statsMonitor(ctx context.Context, ctrl *pipeline.Controller, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last pipeline.StatsSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := ctrl.Stats().Snapshot()
			logger.Info("frame stats",
				"state", ctrl.State().String(),
				"received", snap.Received,
				"processed", snap.Processed,
				"dropped", snap.Dropped(),
				"reports", snap.Reports,
				"fps", float64(snap.Processed-last.Processed)/interval.Seconds())
			last = snap
		}
	}
}

func printHelp() {
	fmt.Println("dot-finder - detect dot pairs in a calibrated camera stream")
	fmt.Println()
	fmt.Println("Usage: dot-finder [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
	fmt.Println("  --version, -v")
	fmt.Println("    \tPrint version information")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DOT_FINDER_LOG_LEVEL=debug    Log level (debug, info, warn, error)")
	fmt.Println("  GO_ENV=production             JSON log output")
	fmt.Println()
	fmt.Println("Messages are newline-delimited JSON-RPC 2.0 on stdin/stdout.")
}
