package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srclens.dev/pkg/srclens/internal/adapter"
	m "srclens.dev/pkg/srclens/internal/model"
)

const exampleProject = "../../examples/react"

func TestExampleProject_Annotate(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())

	tests := []struct {
		path string
		file string
	}{
		{"src/App.jsx", "src/App.jsx"},
		{"src/components/Button.tsx", "src/components/Button.tsx"},
		{"public/index.html", "index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			full, err := filepath.Abs(filepath.Join(exampleProject, tt.path))
			require.NoError(t, err)

			content, err := os.ReadFile(full)
			require.NoError(t, err)

			language, ok := adapter.LanguageForPath(m.Path(full))
			require.True(t, ok)

			unit, err := annotator.Annotate(context.Background(), m.Path(full), language, content)
			require.NoError(t, err)

			assert.Equal(t, tt.file, unit.File)
			assert.Positive(t, unit.Annotated)
			assert.True(t, unit.Changed)
			assert.Contains(t, string(unit.Code), `data-source-file="`+tt.file+`"`)

			second, err := annotator.Annotate(context.Background(), m.Path(full), language, unit.Code)
			require.NoError(t, err)
			assert.False(t, second.Changed)
		})
	}
}

func TestExampleProject_ResolveSnapshot(t *testing.T) {
	doc, err := adapter.NewYAMLSnapshotLoader().Load(context.Background(), m.Path(filepath.Join(exampleProject, "snapshot.yaml")))
	require.NoError(t, err)

	r := NewResolver(NewReactFiberAdapter())

	app, ok := doc.Root.Find("0.0")
	require.True(t, ok)

	res := r.Resolve(app)
	require.True(t, res.Found)
	assert.Equal(t, m.SourceLocation{File: "src/App.jsx", Line: 5}, res.Location)
	assert.Equal(t, m.StrategyDirectAttributes, res.Strategy)

	button, ok := doc.Root.Find("0.0.1")
	require.True(t, ok)

	res = r.Resolve(button)
	require.True(t, res.Found)
	assert.Equal(t, "/work/example/src/components/Button.tsx", res.Location.File)
	assert.Equal(t, 10, res.Location.Line)
	assert.Equal(t, m.StrategyOwnerChain, res.Strategy)

	span, ok := doc.Root.Find("0.0.2")
	require.True(t, ok)

	res = r.Resolve(span)
	assert.False(t, res.Found)
	assert.Equal(t, m.ReasonNoInternalRecord, res.Reason)
}
