package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/inference"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pipeline"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/recorder"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/server"
)

func runServerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.Init(level, os.Stderr, cfg.LogColor)

	logger.Info("Main", "Pose coach starting...")
	logger.Info("Main", "Log level: %s", level)
	logger.Info("Main", "  Camera: %s", cfg.Source)
	logger.Info("Main", "  Estimator: %s", cfg.Estimator)
	logger.Info("Main", "  HTTP server: %s", cfg.HTTPAddr)
	logger.Info("Main", "  Recording path: %s", cfg.RecordPath)

	schema, err := loadSchema(cfg.JointsPath)
	if err != nil {
		return err
	}

	est, closeEst, err := newEstimator(cfg)
	if err != nil {
		return err
	}
	defer closeEst()

	m := metrics.New()
	rec := recorder.NewRecorder(cfg.RecordPath)
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hub reads snapshots back from the pipeline, which is built after it
	var pl *pipeline.Pipeline
	hub := server.NewHub(func() (features.Snapshot, bool) { return pl.Snapshot() })
	defer hub.Close()

	llm := coach.NewClient(cfg.LLMEndpoint, cfg.LLMModel, cfg.LLMTimeout)
	c := coach.New(llm, coach.Options{
		AutoAdvice: cfg.AutoAdvice,
		StaleAfter: cfg.StaleAfter,
		Sink:       hub,
		Context:    ctx,
	})

	device := camera.NewDevice(newSource(cfg))
	pl = pipeline.New(pipelineConfig(cfg), schema, device, est, coach.Multi{hub, c}, m)
	pl.SetRecorder(rec)

	if err := pl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	srv := server.New(server.Options{
		Snapshots:   pl,
		Asker:       c,
		Recorder:    rec,
		Metrics:     m,
		Hub:         hub,
		AllowOrigin: cfg.AllowOrigin,
	})
	serveErr := srv.ListenAndServe(ctx, cfg.HTTPAddr)
	if serveErr != nil {
		logger.Error("Main", "HTTP server error: %v", serveErr)
	}

	logger.Info("Main", "Shutting down...")
	if err := pl.Shutdown(); err != nil {
		logger.Warn("Main", "Error during shutdown: %v", err)
	}
	stop()
	c.Wait()
	if rec.IsRecording() {
		if err := rec.Stop(); err != nil {
			logger.Warn("Main", "Failed to stop recording: %v", err)
		}
	}
	logger.Info("Main", "Server stopped")
	return serveErr
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Capacity:            cfg.Capacity,
		Window:              cfg.Window,
		VisibilityThreshold: cfg.VisibilityThreshold,
		RequestPeriod:       cfg.RequestPeriod,
		InitialDelay:        cfg.InitialDelay,
		FrameTimeout:        cfg.FrameTimeout,
		Preprocess: camera.Options{
			FlipHorizontal: cfg.FlipHorizontal,
			Width:          cfg.Width,
			Height:         cfg.Height,
		},
	}
}

func newSource(cfg config.Config) camera.Source {
	switch cfg.Source {
	case "synthetic":
		w, h := cfg.Width, cfg.Height
		if w == 0 || h == 0 {
			w, h = 640, 480
		}
		src := camera.NewSyntheticSource(w, h)
		src.FPS = cfg.SyntheticFPS
		if cfg.SyntheticHold > 0 {
			src.Hold = cfg.SyntheticHold
		}
		return src
	default:
		return camera.NewSHMSource(cfg.SHMName)
	}
}

// newEstimator returns the configured estimator and a release func
func newEstimator(cfg config.Config) (inference.Estimator, func(), error) {
	switch cfg.Estimator {
	case "synthetic":
		return inference.NewSynthetic(), func() {}, nil
	case "replay":
		estimates, err := recorder.ReadFile(cfg.ReplayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read replay: %w", err)
		}
		replay, err := inference.NewReplay(estimates)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Main", "Replaying %d poses from %s", len(estimates), cfg.ReplayPath)
		return replay, func() {}, nil
	default:
		client := inference.NewZMQClient(cfg.SidecarEndpoint, cfg.InferenceTimeout)
		return client, func() { _ = client.Close() }, nil
	}
}
