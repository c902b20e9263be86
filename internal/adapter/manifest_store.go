package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	m "srclens.dev/pkg/srclens/internal/model"
)

const manifestVersion = 1

// ManifestStore persists the annotate manifest between runs.
type ManifestStore interface {
	LoadManifest(ctx context.Context, path m.Path) (*m.Manifest, error)
	SaveManifest(ctx context.Context, path m.Path, manifest *m.Manifest) error
}

// YAMLManifestStore reads and writes the manifest as a YAML document.
type YAMLManifestStore struct {
	mu sync.Mutex
}

// NewYAMLManifestStore constructs a YAMLManifestStore.
func NewYAMLManifestStore() *YAMLManifestStore {
	return &YAMLManifestStore{}
}

// LoadManifest returns an empty manifest when the file does not exist yet.
func (s *YAMLManifestStore) LoadManifest(ctx context.Context, path m.Path) (*m.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(string(path))
	if errors.Is(err, fs.ErrNotExist) {
		return newManifest(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	manifest := newManifest()
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	if manifest.Files == nil {
		manifest.Files = make(map[string]m.ManifestEntry)
	}

	return manifest, nil
}

// SaveManifest writes the manifest atomically next to its final location.
func (s *YAMLManifestStore) SaveManifest(ctx context.Context, path m.Path, manifest *m.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if manifest == nil {
		manifest = newManifest()
	}

	manifest.Version = manifestVersion

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(string(path))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.yaml")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write manifest: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close manifest: %w", err)
	}

	return os.Rename(tmp.Name(), string(path))
}

func newManifest() *m.Manifest {
	return &m.Manifest{
		Version: manifestVersion,
		Files:   make(map[string]m.ManifestEntry),
	}
}
