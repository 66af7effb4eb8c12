package engine

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// Config tunes an engine instance.
type Config struct {
	// Debounce applies to leaves that do not carry their own options.
	Debounce schema.DebounceOptions
	// Scheduler drives debounce windows and focus polling.
	Scheduler debounce.Scheduler
	// ReadonlyUntilFocus renders fields readonly until the adapter reports
	// focus.
	ReadonlyUntilFocus bool
	FocusPoll          time.Duration
	Logger             *zap.Logger
	// OnComputeError receives failed derivations; nil logs them at warn.
	OnComputeError func(name string, err error)
}

// DefaultConfig returns the settings used when Render gets no WithConfig.
func DefaultConfig() Config {
	return Config{
		Debounce:           schema.DebounceOptions{Wait: field.DefaultWait},
		Scheduler:          debounce.NewTimerScheduler(),
		ReadonlyUntilFocus: true,
		FocusPoll:          field.DefaultFocusPoll,
		Logger:             zap.NewNop(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Scheduler == nil {
		c.Scheduler = def.Scheduler
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.FocusPoll <= 0 {
		c.FocusPoll = def.FocusPoll
	}
	if c.Debounce.Wait < 0 {
		c.Debounce.Wait = 0
	}
	return c
}

// Scheduler names accepted by FileConfig.
const (
	SchedulerTimer = "timer"
	SchedulerFrame = "frame"
)

// FileConfig is the YAML shape of Config used by the CLI.
//
//	debounceMs: 250
//	maxWaitMs: 1000
//	leading: false
//	scheduler: timer
//	readonlyUntilFocus: true
//	focusPollMs: 150
type FileConfig struct {
	DebounceMS         *int   `yaml:"debounceMs"`
	MaxWaitMS          int    `yaml:"maxWaitMs"`
	Leading            bool   `yaml:"leading"`
	Trailing           *bool  `yaml:"trailing"`
	Scheduler          string `yaml:"scheduler"`
	ReadonlyUntilFocus *bool  `yaml:"readonlyUntilFocus"`
	FocusPollMS        int    `yaml:"focusPollMs"`
}

// LoadFileConfig decodes YAML from r. Unknown keys are rejected.
func LoadFileConfig(r io.Reader) (FileConfig, error) {
	var cfg FileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return FileConfig{}, fmt.Errorf("engine: decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the file settings on base. A frame scheduler is returned
// separately so the caller can drive Tick.
func (f FileConfig) Apply(base Config) (Config, *debounce.FrameScheduler, error) {
	if f.DebounceMS != nil {
		base.Debounce.Wait = time.Duration(*f.DebounceMS) * time.Millisecond
	}
	if f.MaxWaitMS > 0 {
		base.Debounce.MaxWait = time.Duration(f.MaxWaitMS) * time.Millisecond
	}
	if f.Leading {
		base.Debounce.Leading = true
	}
	if f.Trailing != nil {
		trailing := *f.Trailing
		base.Debounce.Trailing = &trailing
	}
	if f.ReadonlyUntilFocus != nil {
		base.ReadonlyUntilFocus = *f.ReadonlyUntilFocus
	}
	if f.FocusPollMS > 0 {
		base.FocusPoll = time.Duration(f.FocusPollMS) * time.Millisecond
	}

	var frames *debounce.FrameScheduler
	switch strings.ToLower(strings.TrimSpace(f.Scheduler)) {
	case "", SchedulerTimer:
		base.Scheduler = debounce.NewTimerScheduler()
	case SchedulerFrame:
		frames = debounce.NewFrameScheduler()
		base.Scheduler = frames
	default:
		return base, nil, fmt.Errorf("engine: unknown scheduler %q", f.Scheduler)
	}
	return base, frames, nil
}
