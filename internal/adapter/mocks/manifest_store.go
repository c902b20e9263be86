package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"srclens.dev/pkg/srclens/internal/adapter"
	m "srclens.dev/pkg/srclens/internal/model"
)

// MockManifestStore is a testify mock of adapter.ManifestStore.
type MockManifestStore struct {
	mock.Mock
}

var _ adapter.ManifestStore = (*MockManifestStore)(nil)

// LoadManifest records the call and returns the configured manifest.
func (s *MockManifestStore) LoadManifest(ctx context.Context, path m.Path) (*m.Manifest, error) {
	args := s.Called(ctx, path)

	manifest, _ := args.Get(0).(*m.Manifest)

	return manifest, args.Error(1)
}

// SaveManifest records the call and returns the configured error.
func (s *MockManifestStore) SaveManifest(ctx context.Context, path m.Path, manifest *m.Manifest) error {
	args := s.Called(ctx, path, manifest)
	return args.Error(0)
}
