package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ironsheep/dot-finder/internal/imaging"
	"github.com/ironsheep/dot-finder/internal/messages"
	"github.com/ironsheep/dot-finder/internal/pipeline"
)

// replayOptions configures an offline run over recorded frames.
type replayOptions struct {
	dir        string
	cameraInfo string
	fps        float64
	frameID    string
}

// loadCameraInfo reads a camera info message from a JSON file.
func loadCameraInfo(path string) (messages.CameraInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return messages.CameraInfo{}, fmt.Errorf("failed to read camera info: %w", err)
	}
	var info messages.CameraInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return messages.CameraInfo{}, fmt.Errorf("failed to parse camera info: %w", err)
	}
	return info, nil
}

// replay feeds the camera info and then every frame of opts.dir through
// ctrl, in name order. Frames that fail are logged and skipped.
func replay(ctx context.Context, ctrl *pipeline.Controller, opts replayOptions, logger *slog.Logger) error {
	if opts.cameraInfo == "" {
		return errors.New("-replay requires -camera-info")
	}
	info, err := loadCameraInfo(opts.cameraInfo)
	if err != nil {
		return err
	}
	if err := ctrl.HandleCameraInfo(info); err != nil {
		return fmt.Errorf("camera info rejected: %w", err)
	}

	frames, err := imaging.ListFrames(opts.dir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames found in %s", opts.dir)
	}
	logger.Info("replaying frames", "count", len(frames), "dir", opts.dir)

	var tick <-chan time.Time
	if opts.fps > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	for i, path := range frames {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		msg, err := imaging.LoadFrame(path, messages.Header{Seq: uint32(i), FrameID: opts.frameID})
		if err != nil {
			logger.Warn("skipping frame", "path", path, "error", err)
			continue
		}
		if err := ctrl.HandleImage(ctx, msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("frame not processed", "path", path, "error", err)
		}
	}

	snap := ctrl.Stats().Snapshot()
	logger.Info("replay finished", "frames", len(frames), "reports", snap.Reports, "dropped", snap.Dropped())
	return nil
}
