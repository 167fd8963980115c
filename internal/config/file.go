package config

import "time"

// Duration decodes TOML strings such as "2s" or "500ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// FileConfig represents the TOML configuration file. Every field is
// optional; unset fields keep their defaults.
type FileConfig struct {
	Pipeline  PipelineSection  `toml:"pipeline"`
	Camera    CameraSection    `toml:"camera"`
	Inference InferenceSection `toml:"inference"`
	Coach     CoachSection     `toml:"coach"`
	Server    ServerSection    `toml:"server"`
	Log       LogSection       `toml:"log"`
}

type PipelineSection struct {
	Joints              *string   `toml:"joints"`
	Capacity            *int      `toml:"capacity"`
	Window              *Duration `toml:"window"`
	VisibilityThreshold *float64  `toml:"visibility-threshold"`
	RequestPeriod       *Duration `toml:"request-period"`
	InitialDelay        *Duration `toml:"initial-delay"`
	FrameTimeout        *Duration `toml:"frame-timeout"`
}

type CameraSection struct {
	Source         *string  `toml:"source"`
	SHMName        *string  `toml:"shm"`
	Width          *int     `toml:"width"`
	Height         *int     `toml:"height"`
	FlipHorizontal *bool    `toml:"flip"`
	SyntheticFPS   *float64 `toml:"synthetic-fps"`
	SyntheticHold  *int     `toml:"synthetic-hold"`
}

type InferenceSection struct {
	Estimator *string   `toml:"estimator"`
	Endpoint  *string   `toml:"endpoint"`
	Timeout   *Duration `toml:"timeout"`
	Replay    *string   `toml:"replay"`
}

type CoachSection struct {
	Endpoint   *string   `toml:"endpoint"`
	Model      *string   `toml:"model"`
	Timeout    *Duration `toml:"timeout"`
	AutoAdvice *bool     `toml:"auto-advice"`
	StaleAfter *Duration `toml:"stale-after"`
}

type ServerSection struct {
	Addr        *string `toml:"addr"`
	AllowOrigin *string `toml:"allow-origin"`
	RecordPath  *string `toml:"record-path"`
}

type LogSection struct {
	Level *string `toml:"level"`
	Color *bool   `toml:"color"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// Apply overlays every set field onto cfg
func (fc FileConfig) Apply(cfg *Config) {
	p := fc.Pipeline
	set(&cfg.JointsPath, p.Joints)
	set(&cfg.Capacity, p.Capacity)
	setDuration(&cfg.Window, p.Window)
	set(&cfg.VisibilityThreshold, p.VisibilityThreshold)
	setDuration(&cfg.RequestPeriod, p.RequestPeriod)
	setDuration(&cfg.InitialDelay, p.InitialDelay)
	setDuration(&cfg.FrameTimeout, p.FrameTimeout)

	c := fc.Camera
	set(&cfg.Source, c.Source)
	set(&cfg.SHMName, c.SHMName)
	set(&cfg.Width, c.Width)
	set(&cfg.Height, c.Height)
	set(&cfg.FlipHorizontal, c.FlipHorizontal)
	set(&cfg.SyntheticFPS, c.SyntheticFPS)
	set(&cfg.SyntheticHold, c.SyntheticHold)

	i := fc.Inference
	set(&cfg.Estimator, i.Estimator)
	set(&cfg.SidecarEndpoint, i.Endpoint)
	setDuration(&cfg.InferenceTimeout, i.Timeout)
	set(&cfg.ReplayPath, i.Replay)

	co := fc.Coach
	set(&cfg.LLMEndpoint, co.Endpoint)
	set(&cfg.LLMModel, co.Model)
	setDuration(&cfg.LLMTimeout, co.Timeout)
	set(&cfg.AutoAdvice, co.AutoAdvice)
	setDuration(&cfg.StaleAfter, co.StaleAfter)

	s := fc.Server
	set(&cfg.HTTPAddr, s.Addr)
	set(&cfg.AllowOrigin, s.AllowOrigin)
	set(&cfg.RecordPath, s.RecordPath)

	set(&cfg.LogLevel, fc.Log.Level)
	set(&cfg.LogColor, fc.Log.Color)
}
