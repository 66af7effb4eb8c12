package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind/pkg/adapters/terminal"
	"github.com/goliatone/go-formbind/pkg/engine"
)

type fillFlags struct {
	source
	dataPath    string
	payloadPath string
	attempts    int
}

func newFillCmd(a *app) *cobra.Command {
	var flags fillFlags
	cmd := &cobra.Command{
		Use:   "fill <schema>",
		Short: "Fill a form interactively and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.path = args[0]
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			driver := terminal.NewSurveyDriver(cmd.ErrOrStderr())
			return a.fill(ctx, flags, driver)
		},
	}
	cmd.Flags().StringVar(&flags.dataPath, "data", "", "JSON file with initial data")
	cmd.Flags().StringVar(&flags.payloadPath, "payload", "", "JSON file with the rule payload (extras.*)")
	cmd.Flags().StringVar(&flags.form, "form", "", "Form id when <schema> is a directory")
	cmd.Flags().StringVar(&flags.operation, "operation", "", "Read <schema> as OpenAPI and use this operation's request body")
	cmd.Flags().IntVar(&flags.attempts, "attempts", 3, "Answers allowed per invalid field, 0 for no limit")
	return cmd
}

func (a *app) fill(ctx context.Context, flags fillFlags, driver terminal.PromptDriver) error {
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
		engine.WithAdapters(terminal.NewRegistry()),
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

	prompter := terminal.NewPrompter(
		terminal.WithPromptDriver(driver),
		terminal.WithLogger(a.logger),
		terminal.WithMaxAttempts(flags.attempts),
	)
	if err := prompter.Fill(ctx, eng); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return writeRecord(a.out, eng.Data())
}
