// Command formbind loads declarative form schemas and drives the engine from
// the terminal: validate schema files, resolve the initial data object, or
// fill a form interactively.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/engine"
)

// app carries the persistent flags and the objects they configure.
type app struct {
	verbose    bool
	configPath string

	logger *zap.Logger
	out    io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "formbind",
		Short: "Bind declarative form schemas to data",
		Long: `formbind reads form schemas written in YAML or JSON (or taken from an
OpenAPI request body) and runs them through the form engine.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.out == nil {
				a.out = cmd.OutOrStdout()
			}
			if a.logger != nil {
				return nil
			}
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if a.verbose {
				config = zap.NewDevelopmentConfig()
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML engine config (debounceMs, scheduler, ...)")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newFillCmd(a))
	return root
}

// engineConfig builds the engine config from --config. When the file selects
// the frame scheduler, frames are ticked until ctx is done.
func (a *app) engineConfig(ctx context.Context) (engine.Config, error) {
	base := engine.DefaultConfig()
	base.Logger = a.logger
	if a.configPath == "" {
		return base, nil
	}

	f, err := os.Open(a.configPath)
	if err != nil {
		return engine.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	fileCfg, err := engine.LoadFileConfig(f)
	if err != nil {
		return engine.Config{}, err
	}
	cfg, frames, err := fileCfg.Apply(base)
	if err != nil {
		return engine.Config{}, err
	}
	if frames != nil {
		go tickFrames(ctx, frames)
	}
	return cfg, nil
}

func tickFrames(ctx context.Context, frames *debounce.FrameScheduler) {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frames.Tick()
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
