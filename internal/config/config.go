// Package config holds the runtime configuration and its TOML overlay file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config defines the runtime configuration of the pose-coach server
type Config struct {
	// Pipeline
	JointsPath          string // Empty uses the built-in joint schema
	Capacity            int
	Window              time.Duration
	VisibilityThreshold float64
	RequestPeriod       time.Duration
	InitialDelay        time.Duration
	FrameTimeout        time.Duration

	// Camera
	Source         string // "shm" or "synthetic"
	SHMName        string
	Width          int // 0 keeps the source size
	Height         int
	FlipHorizontal bool
	SyntheticFPS   float64
	SyntheticHold  int

	// Inference
	Estimator        string // "zmq", "synthetic" or "replay"
	SidecarEndpoint  string
	InferenceTimeout time.Duration
	ReplayPath       string

	// Coach
	LLMEndpoint string
	LLMModel    string
	LLMTimeout  time.Duration
	AutoAdvice  bool
	StaleAfter  time.Duration

	// Server
	HTTPAddr    string
	AllowOrigin string
	RecordPath  string

	// Logging
	LogLevel string
	LogColor bool
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		Capacity:            5,
		Window:              2 * time.Second,
		VisibilityThreshold: 0.85,
		RequestPeriod:       5 * time.Second,
		InitialDelay:        2 * time.Second,
		FrameTimeout:        5 * time.Second,

		Source:        "shm",
		SHMName:       "/pose_coach_frames",
		SyntheticFPS:  30,
		SyntheticHold: 1,

		Estimator:        "zmq",
		SidecarEndpoint:  "ipc:///tmp/pose_sidecar.sock",
		InferenceTimeout: 2 * time.Second,

		LLMEndpoint: "http://localhost:11434/api/generate",
		LLMModel:    "gpt-oss:20b",
		LLMTimeout:  60 * time.Second,
		StaleAfter:  15 * time.Second,

		HTTPAddr:   ":8082",
		RecordPath: "./recordings",

		LogLevel: "info",
		LogColor: true,
	}
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	switch {
	case c.Capacity < 1:
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	case c.Window <= 0:
		return fmt.Errorf("window must be positive, got %v", c.Window)
	case c.VisibilityThreshold < 0 || c.VisibilityThreshold >= 1:
		return fmt.Errorf("visibility threshold must be in [0, 1), got %g", c.VisibilityThreshold)
	case c.RequestPeriod <= 0:
		return fmt.Errorf("request period must be positive, got %v", c.RequestPeriod)
	case c.InitialDelay < 0:
		return fmt.Errorf("initial delay must not be negative, got %v", c.InitialDelay)
	case c.FrameTimeout <= 0:
		return fmt.Errorf("frame timeout must be positive, got %v", c.FrameTimeout)
	case c.Width < 0 || c.Height < 0:
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}

	switch c.Source {
	case "shm", "synthetic":
	default:
		return fmt.Errorf("unknown camera source %q", c.Source)
	}
	switch c.Estimator {
	case "zmq", "synthetic":
	case "replay":
		if c.ReplayPath == "" {
			return errors.New("replay estimator needs a replay path")
		}
	default:
		return fmt.Errorf("unknown estimator %q", c.Estimator)
	}
	return nil
}

// XDGConfigHome returns the XDG config home or a default fallback
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// DefaultPath returns the default TOML config path
func DefaultPath() string {
	return filepath.Join(XDGConfigHome(), "pose-coach", "config.toml")
}

// Load returns the defaults overlaid with the file at path. A missing file
// is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	fc, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	fc.Apply(&cfg)
	return cfg, nil
}

// LoadFile reads a TOML config from path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return fc, nil
}
