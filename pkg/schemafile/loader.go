package schemafile

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Store holds the documents found by LoadFS, keyed by id.
type Store struct {
	docs map[string]Document
}

// Document returns the document with id.
func (s *Store) Document(id string) (Document, bool) {
	if s == nil {
		return Document{}, false
	}
	doc, ok := s.docs[id]
	return doc, ok
}

// IDs lists document ids in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any documents.
func (s *Store) Empty() bool {
	return s == nil || len(s.docs) == 0
}

// LoadFS walks fsys and parses every JSON/YAML schema file concurrently. A
// document without an id takes its file name without extension. When fsys is
// nil the store is empty.
func LoadFS(ctx context.Context, fsys fs.FS) (*Store, error) {
	store := &Store{docs: make(map[string]Document)}
	if fsys == nil {
		return store, nil
	}

	var paths []string
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() && isSchemaFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schemafile: walk: %w", err)
	}

	docs := make([]Document, len(paths))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for idx, path := range paths {
		idx, path := idx, path
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, path)
			if err != nil {
				return fmt.Errorf("schemafile: read %s: %w", path, err)
			}
			doc, err := Parse(data, path)
			if err != nil {
				return err
			}
			docs[idx] = doc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if prev, exists := store.docs[doc.ID]; exists {
			return nil, fmt.Errorf("schemafile: duplicate document %q (files %s and %s)", doc.ID, prev.Source, doc.Source)
		}
		store.docs[doc.ID] = doc
	}
	return store, nil
}

// Parse decodes one document. The extension of source picks the format;
// without one JSON is tried first, then YAML.
func Parse(data []byte, source string) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, fmt.Errorf("schemafile: file %s is empty", source)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("schemafile: parse %s: %w", source, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("schemafile: parse %s: %w", source, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			doc = Document{}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return Document{}, fmt.Errorf("schemafile: parse %s: invalid JSON or YAML", source)
			}
		}
	}

	doc.Source = source
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		base := filepath.Base(source)
		doc.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := checkNodes(doc.Fields, source, ""); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func checkNodes(nodes []NodeSpec, source, where string) error {
	for idx, node := range nodes {
		at := fmt.Sprintf("%s[%d]", where, idx)
		switch {
		case node.Name != "" && (node.Group != "" || len(node.Children) > 0):
			return fmt.Errorf("schemafile: %s fields%s sets both name and group/children", source, at)
		case node.IsGroup():
			if err := checkNodes(node.Children, source, at+".children"); err != nil {
				return err
			}
		case strings.TrimSpace(node.Name) == "":
			return fmt.Errorf("schemafile: %s fields%s needs a name or a group", source, at)
		}
	}
	return nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
