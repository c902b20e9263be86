// Package controller provides the presentation layer: plain output, the
// interactive inspector and the host contract of inspection sessions.
package controller

import (
	"context"

	m "srclens.dev/pkg/srclens/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeAnnotate StartMode = iota
	ModeList
	ModeResolve
	ModeOpen
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode   StartMode
	dryRun bool
}

// Mode returns the configured mode.
func (c StartConfig) Mode() StartMode {
	return c.mode
}

// DryRun reports whether nothing is written.
func (c StartConfig) DryRun() bool {
	return c.dryRun
}

// NewStartConfig applies options over the defaults.
func NewStartConfig(options ...StartOption) StartConfig {
	var cfg StartConfig
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// WithMode sets the UI mode.
func WithMode(mode StartMode) StartOption {
	return func(c *StartConfig) {
		c.mode = mode
	}
}

// WithDryRun marks the run as a dry run.
func WithDryRun() StartOption {
	return func(c *StartConfig) {
		c.dryRun = true
	}
}

// UI defines how workflow results are presented.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	DisplayAnnotationResults(ctx context.Context, results []m.AnnotationResult) error
	DisplayElementCounts(ctx context.Context, results []m.AnnotationResult) error
	DisplayResolutions(ctx context.Context, reports []m.ResolutionReport) error
	DisplayEditorLink(ctx context.Context, link m.EditorLink) error
}
