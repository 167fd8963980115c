// Package main provides the pose-coach server entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/joints"
)

var (
	configPath string
	flagCfg    = config.DefaultConfig()
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pose-coach",
		Short:        "Pose landmark feature pipeline with an LLM coach",
		SilenceUsage: true,
		RunE:         runServerCmd,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", config.DefaultPath(), "TOML config file")
	f.StringVar(&flagCfg.JointsPath, "joints", flagCfg.JointsPath, "joint schema TOML (default: built-in)")

	f = rootCmd.Flags()
	f.IntVar(&flagCfg.Capacity, "capacity", flagCfg.Capacity, "samples kept per joint")
	f.DurationVar(&flagCfg.Window, "window", flagCfg.Window, "averaging window")
	f.Float64Var(&flagCfg.VisibilityThreshold, "visibility", flagCfg.VisibilityThreshold, "landmark visibility threshold (exclusive)")
	f.DurationVar(&flagCfg.RequestPeriod, "request-period", flagCfg.RequestPeriod, "snapshot period")
	f.DurationVar(&flagCfg.InitialDelay, "initial-delay", flagCfg.InitialDelay, "delay before the first snapshot")
	f.DurationVar(&flagCfg.FrameTimeout, "frame-timeout", flagCfg.FrameTimeout, "camera read timeout")

	f.StringVar(&flagCfg.Source, "source", flagCfg.Source, "camera source (shm, synthetic)")
	f.StringVar(&flagCfg.SHMName, "shm", flagCfg.SHMName, "shared memory name")
	f.IntVar(&flagCfg.Width, "width", flagCfg.Width, "frame width (0 keeps source size)")
	f.IntVar(&flagCfg.Height, "height", flagCfg.Height, "frame height (0 keeps source size)")
	f.BoolVar(&flagCfg.FlipHorizontal, "flip", flagCfg.FlipHorizontal, "mirror frames horizontally")

	f.StringVar(&flagCfg.Estimator, "estimator", flagCfg.Estimator, "pose estimator (zmq, synthetic, replay)")
	f.StringVar(&flagCfg.SidecarEndpoint, "sidecar", flagCfg.SidecarEndpoint, "pose sidecar ZeroMQ endpoint")
	f.DurationVar(&flagCfg.InferenceTimeout, "inference-timeout", flagCfg.InferenceTimeout, "sidecar reply timeout")
	f.StringVar(&flagCfg.ReplayPath, "replay", flagCfg.ReplayPath, "pose recording to replay")

	f.StringVar(&flagCfg.LLMEndpoint, "llm", flagCfg.LLMEndpoint, "LLM generate endpoint")
	f.StringVar(&flagCfg.LLMModel, "model", flagCfg.LLMModel, "LLM model name")
	f.DurationVar(&flagCfg.LLMTimeout, "llm-timeout", flagCfg.LLMTimeout, "LLM request timeout")
	f.BoolVar(&flagCfg.AutoAdvice, "auto-advice", flagCfg.AutoAdvice, "generate advice for every snapshot")
	f.DurationVar(&flagCfg.StaleAfter, "stale-after", flagCfg.StaleAfter, "ignore snapshots older than this when asked")

	f.StringVar(&flagCfg.HTTPAddr, "http", flagCfg.HTTPAddr, "HTTP server address")
	f.StringVar(&flagCfg.AllowOrigin, "allow-origin", flagCfg.AllowOrigin, "CORS allowed origin")
	f.StringVar(&flagCfg.RecordPath, "record-path", flagCfg.RecordPath, "recording output path")

	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "log level (debug, info, warn, error, silent)")
	f.BoolVar(&flagCfg.LogColor, "log-color", flagCfg.LogColor, "enable colored log output")

	rootCmd.AddCommand(newJointsCmd())
	return rootCmd
}

func newJointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "joints",
		Short: "Validate and print the joint schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			schema, err := loadSchema(cfg.JointsPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "angles (%d):\n", len(schema.Angles))
			for _, a := range schema.Angles {
				fmt.Fprintf(out, "  %-16s %s - %s - %s\n", a.Name, a.Anchors[0], a.Anchors[1], a.Anchors[2])
			}
			fmt.Fprintf(out, "positions (%d):\n", len(schema.Positions))
			for _, p := range schema.Positions {
				fmt.Fprintf(out, "  %-16s %s\n", p.Name, p.Anchor)
			}
			return nil
		},
	}
}

// loadConfig overlays the config file on the defaults, then applies every
// flag the user set explicitly
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	overrides := map[string]func(){
		"joints":            func() { cfg.JointsPath = flagCfg.JointsPath },
		"capacity":          func() { cfg.Capacity = flagCfg.Capacity },
		"window":            func() { cfg.Window = flagCfg.Window },
		"visibility":        func() { cfg.VisibilityThreshold = flagCfg.VisibilityThreshold },
		"request-period":    func() { cfg.RequestPeriod = flagCfg.RequestPeriod },
		"initial-delay":     func() { cfg.InitialDelay = flagCfg.InitialDelay },
		"frame-timeout":     func() { cfg.FrameTimeout = flagCfg.FrameTimeout },
		"source":            func() { cfg.Source = flagCfg.Source },
		"shm":               func() { cfg.SHMName = flagCfg.SHMName },
		"width":             func() { cfg.Width = flagCfg.Width },
		"height":            func() { cfg.Height = flagCfg.Height },
		"flip":              func() { cfg.FlipHorizontal = flagCfg.FlipHorizontal },
		"estimator":         func() { cfg.Estimator = flagCfg.Estimator },
		"sidecar":           func() { cfg.SidecarEndpoint = flagCfg.SidecarEndpoint },
		"inference-timeout": func() { cfg.InferenceTimeout = flagCfg.InferenceTimeout },
		"replay":            func() { cfg.ReplayPath = flagCfg.ReplayPath },
		"llm":               func() { cfg.LLMEndpoint = flagCfg.LLMEndpoint },
		"model":             func() { cfg.LLMModel = flagCfg.LLMModel },
		"llm-timeout":       func() { cfg.LLMTimeout = flagCfg.LLMTimeout },
		"auto-advice":       func() { cfg.AutoAdvice = flagCfg.AutoAdvice },
		"stale-after":       func() { cfg.StaleAfter = flagCfg.StaleAfter },
		"http":              func() { cfg.HTTPAddr = flagCfg.HTTPAddr },
		"allow-origin":      func() { cfg.AllowOrigin = flagCfg.AllowOrigin },
		"record-path":       func() { cfg.RecordPath = flagCfg.RecordPath },
		"log-level":         func() { cfg.LogLevel = flagCfg.LogLevel },
		"log-color":         func() { cfg.LogColor = flagCfg.LogColor },
	}
	for name, apply := range overrides {
		if changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadSchema(path string) (joints.Schema, error) {
	if path == "" {
		return joints.Default(), nil
	}
	schema, err := joints.Load(path)
	if err != nil {
		return joints.Schema{}, fmt.Errorf("failed to load joint schema: %w", err)
	}
	return schema, nil
}
