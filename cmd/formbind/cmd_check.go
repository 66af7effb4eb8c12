package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/schemafile"
)

func newCheckCmd(a *app) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "check [file|dir...]",
		Short: "Validate schema files",
		Long: `Parses each schema file and compiles its rules, validators and transforms.
Directories are loaded as one store, so duplicate document ids are reported too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed, total := 0, 0
			report := func(name string, err error) {
				total++
				if err != nil {
					a.logger.Debug("schema rejected", zap.String("file", name), zap.Error(err))
					fmt.Fprintf(a.out, "ERROR in %s: %v\n", name, err)
					failed++
					return
				}
				fmt.Fprintf(a.out, "OK: %s\n", name)
			}

			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					report(arg, err)
					continue
				}
				if info.IsDir() && operation == "" {
					checkDir(cmd.Context(), arg, report)
					continue
				}
				_, err = source{path: arg, operation: operation}.tree(cmd.Context())
				report(arg, err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d schemas failed", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Treat files as OpenAPI documents and check this operation")
	return cmd
}

func checkDir(ctx context.Context, dir string, report func(string, error)) {
	store, err := schemafile.LoadFS(ctx, os.DirFS(dir))
	if err != nil {
		report(dir, err)
		return
	}
	for _, id := range store.IDs() {
		doc, _ := store.Document(id)
		_, err := doc.Descriptors()
		report(filepath.Join(dir, doc.Source), err)
	}
}
