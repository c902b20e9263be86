// Package mocks provides testify mocks for adapter interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"srclens.dev/pkg/srclens/internal/adapter"
)

// MockEditorLauncher is a testify mock of adapter.EditorLauncher.
type MockEditorLauncher struct {
	mock.Mock
}

var _ adapter.EditorLauncher = (*MockEditorLauncher)(nil)

// Launch records the call and returns the configured output and error.
func (l *MockEditorLauncher) Launch(ctx context.Context, uri string) (string, error) {
	args := l.Called(ctx, uri)
	return args.String(0), args.Error(1)
}
