package adapter

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "srclens.dev/pkg/srclens/internal/model"
)

// SnapshotLoader reads captured DOM snapshots.
type SnapshotLoader interface {
	Load(ctx context.Context, path m.Path) (*m.Document, error)
	Decode(data []byte) (*m.Document, error)
}

// YAMLSnapshotLoader decodes snapshots written as YAML or JSON. A snapshot is
// either a document with a root element or a bare element.
type YAMLSnapshotLoader struct{}

// NewYAMLSnapshotLoader constructs a YAMLSnapshotLoader.
func NewYAMLSnapshotLoader() *YAMLSnapshotLoader {
	return &YAMLSnapshotLoader{}
}

// Load reads and decodes the snapshot at path.
func (l *YAMLSnapshotLoader) Load(ctx context.Context, path m.Path) (*m.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	doc, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	return doc, nil
}

// Decode parses a snapshot and links parent pointers.
func (l *YAMLSnapshotLoader) Decode(data []byte) (*m.Document, error) {
	var doc m.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	if doc.Root == nil {
		var root m.ElementSnapshot
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode element: %w", err)
		}

		if root.Tag == "" && len(root.Attributes) == 0 && len(root.Properties) == 0 {
			return nil, fmt.Errorf("snapshot has no root element")
		}

		doc.Root = &root
	}

	doc.Root.Link()

	return &doc, nil
}
