package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/schemafile"
)

// source names where a form schema comes from: a schema file, a directory
// of them plus a form id, or an OpenAPI document plus an operation.
type source struct {
	path      string
	form      string
	operation string
}

func (s source) document(ctx context.Context) (schemafile.Document, error) {
	if info, err := os.Stat(s.path); err == nil && info.IsDir() {
		if s.form == "" {
			return schemafile.Document{}, fmt.Errorf("%s is a directory: pass --form", s.path)
		}
		store, err := schemafile.LoadFS(ctx, os.DirFS(s.path))
		if err != nil {
			return schemafile.Document{}, err
		}
		doc, ok := store.Document(s.form)
		if !ok {
			return schemafile.Document{}, fmt.Errorf("form %q not found in %s (have %v)", s.form, s.path, store.IDs())
		}
		return doc, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return schemafile.Document{}, fmt.Errorf("read schema: %w", err)
	}
	if s.operation != "" {
		return schemafile.FromOpenAPI(ctx, raw, s.operation)
	}
	return schemafile.Parse(raw, s.path)
}

func (s source) tree(ctx context.Context) ([]schema.Descriptor, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Descriptors()
}

// readRecord decodes a JSON object from path. An empty path yields nil.
func readRecord(path string) (deep.Data, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out deep.Data
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func writeRecord(w io.Writer, data deep.Data) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
