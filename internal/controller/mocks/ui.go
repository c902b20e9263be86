// Package mocks provides testify mocks for controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"srclens.dev/pkg/srclens/internal/controller"
	m "srclens.dev/pkg/srclens/internal/model"
)

// MockUI is a testify mock of controller.UI.
type MockUI struct {
	mock.Mock
}

var _ controller.UI = (*MockUI)(nil)

// Start records the call and returns the configured error.
func (u *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	args := u.Called(ctx, controller.NewStartConfig(options...))
	return args.Error(0)
}

// Close records the call.
func (u *MockUI) Close(ctx context.Context) {
	u.Called(ctx)
}

// Wait records the call.
func (u *MockUI) Wait(ctx context.Context) {
	u.Called(ctx)
}

// DisplayAnnotationResults records the call and returns the configured error.
func (u *MockUI) DisplayAnnotationResults(ctx context.Context, results []m.AnnotationResult) error {
	args := u.Called(ctx, results)
	return args.Error(0)
}

// DisplayElementCounts records the call and returns the configured error.
func (u *MockUI) DisplayElementCounts(ctx context.Context, results []m.AnnotationResult) error {
	args := u.Called(ctx, results)
	return args.Error(0)
}

// DisplayResolutions records the call and returns the configured error.
func (u *MockUI) DisplayResolutions(ctx context.Context, reports []m.ResolutionReport) error {
	args := u.Called(ctx, reports)
	return args.Error(0)
}

// DisplayEditorLink records the call and returns the configured error.
func (u *MockUI) DisplayEditorLink(ctx context.Context, link m.EditorLink) error {
	args := u.Called(ctx, link)
	return args.Error(0)
}
