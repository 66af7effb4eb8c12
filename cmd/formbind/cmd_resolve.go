package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/engine"
)

const watchSettle = 200 * time.Millisecond

type resolveFlags struct {
	source
	dataPath    string
	payloadPath string
	snapshot    bool
	watch       bool
}

func newResolveCmd(a *app) *cobra.Command {
	var flags resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve <schema>",
		Short: "Print the initial data object for a schema",
		Long: `Mounts the schema once and prints the resolved data object: every leaf
path seeded with its default or kind baseline, with --data merged on top.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.path = args[0]
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if !flags.watch {
				return a.resolveOnce(ctx, flags, a.out)
			}
			return a.watchResolve(ctx, flags)
		},
	}
	cmd.Flags().StringVar(&flags.dataPath, "data", "", "JSON file with initial data")
	cmd.Flags().StringVar(&flags.payloadPath, "payload", "", "JSON file with the rule payload (extras.*)")
	cmd.Flags().StringVar(&flags.form, "form", "", "Form id when <schema> is a directory")
	cmd.Flags().StringVar(&flags.operation, "operation", "", "Read <schema> as OpenAPI and use this operation's request body")
	cmd.Flags().BoolVar(&flags.snapshot, "snapshot", false, "Also print the mounted tree with per-field state")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Re-resolve whenever the schema changes")
	return cmd
}

func (a *app) resolveOnce(ctx context.Context, flags resolveFlags, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tree, err := flags.tree(ctx)
	if err != nil {
		return err
	}
	initial, err := readRecord(flags.dataPath)
	if err != nil {
		return err
	}
	payload, err := readRecord(flags.payloadPath)
	if err != nil {
		return err
	}
	cfg, err := a.engineConfig(ctx)
	if err != nil {
		return err
	}

	ready := make(chan struct{})
	opts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithInitialData(initial),
		engine.WithOnReady(func() { close(ready) }),
	}
	if payload != nil {
		opts = append(opts, engine.WithPayload(payload))
	}
	eng, err := engine.Render(ctx, tree, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := writeRecord(w, eng.Data()); err != nil {
		return err
	}
	if flags.snapshot {
		printNode(w, eng.Snapshot(), 0)
	}
	return nil
}

func printNode(w io.Writer, node engine.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.State != nil {
		var marks []string
		if !node.State.Visible {
			marks = append(marks, "hidden")
		}
		if node.State.Disabled {
			marks = append(marks, "disabled")
		}
		if node.State.Readonly {
			marks = append(marks, "readonly")
		}
		if node.State.Invalid != "" {
			marks = append(marks, "invalid: "+node.State.Invalid)
		}
		line := fmt.Sprintf("%s- %s = %v", indent, node.Name, node.State.Value)
		if len(marks) > 0 {
			line += " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Fprintln(w, line)
		return
	}
	label := node.ID
	if label == "" {
		label = node.Path
	}
	if !node.Shown {
		fmt.Fprintf(w, "%s+ %s (hidden)\n", indent, label)
		return
	}
	fmt.Fprintf(w, "%s+ %s\n", indent, label)
	for _, child := range node.Children {
		printNode(w, child, depth+1)
	}
}

// watchResolve resolves, then again after every settled change to the
// schema file, until ctx is cancelled.
func (a *app) watchResolve(ctx context.Context, flags resolveFlags) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(flags.path)
	dir := target
	if flags.form == "" {
		// Editors replace files on save, so watch the parent.
		dir = filepath.Dir(target)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	changed := make(chan struct{}, 1)
	settle := debounce.New(func(struct{}) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, watchSettle)
	defer settle.Close()

	run := func() {
		if err := a.resolveOnce(ctx, flags, a.out); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
	run()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if flags.form == "" && filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			a.logger.Debug("schema changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			settle.Call(struct{}{})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", zap.Error(err))
		case <-changed:
			fmt.Fprintf(a.out, "--- %s\n", time.Now().Format(time.TimeOnly))
			run()
		}
	}
}
