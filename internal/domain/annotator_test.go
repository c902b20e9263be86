package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srclens.dev/pkg/srclens/internal/adapter"
	m "srclens.dev/pkg/srclens/internal/model"
)

type stubMarkup struct {
	unit *m.MarkupUnit
	err  error
}

func (s stubMarkup) Parse(context.Context, m.Path, m.Language, []byte) (*m.MarkupUnit, error) {
	return s.unit, s.err
}

const appJSX = `export default function App() {
  return (
    <div className="app">
      <Button label="Go" />
      <>
        <span>hi</span>
      </>
    </div>
  );
}
`

const annotatedAppJSX = `export default function App() {
  return (
    <div className="app" data-source-file="src/App.jsx" data-source-line="3">
      <Button label="Go" data-source-file="src/App.jsx" data-source-line="4" />
      <>
        <span data-source-file="src/App.jsx" data-source-line="6">hi</span>
      </>
    </div>
  );
}
`

func TestAnnotator_JSX(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())

	unit, err := annotator.Annotate(context.Background(), "/home/u/proj/src/App.jsx", m.LanguageJSX, []byte(appJSX))
	require.NoError(t, err)

	assert.Equal(t, annotatedAppJSX, string(unit.Code))
	assert.Equal(t, "src/App.jsx", unit.File)
	assert.Equal(t, 3, unit.Elements)
	assert.Equal(t, 3, unit.Annotated)
	assert.Equal(t, 0, unit.Skipped)
	assert.True(t, unit.Changed)
}

func TestAnnotator_Idempotent(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())
	ctx := context.Background()

	first, err := annotator.Annotate(ctx, "/home/u/proj/src/App.jsx", m.LanguageJSX, []byte(appJSX))
	require.NoError(t, err)

	second, err := annotator.Annotate(ctx, "/home/u/proj/src/App.jsx", m.LanguageJSX, first.Code)
	require.NoError(t, err)

	assert.Equal(t, string(first.Code), string(second.Code))
	assert.False(t, second.Changed)
	assert.Equal(t, 3, second.Annotated)
}

func TestAnnotator_SelfClosingAndNestedLines(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())

	tests := []struct {
		name     string
		path     m.Path
		language m.Language
		src      string
		want     string
	}{
		{
			name:     "self-closing",
			path:     "/p/src/O.jsx",
			language: m.LanguageJSX,
			src:      "export const O = () => <p />;\n",
			want:     `export const O = () => <p data-source-file="src/O.jsx" data-source-line="1" />;` + "\n",
		},
		{
			name:     "self-closing with attributes",
			path:     "/p/src/B.tsx",
			language: m.LanguageTSX,
			src:      "export const B = () => <Button label=\"x\" />;\n",
			want:     `export const B = () => <Button label="x" data-source-file="src/B.tsx" data-source-line="1" />;` + "\n",
		},
		{
			name:     "nested on its own line",
			path:     "/p/src/App.jsx",
			language: m.LanguageJSX,
			src:      "export const App = () => (\n  <div>\n    <button>Save</button>\n  </div>\n);\n",
			want: "export const App = () => (\n" +
				`  <div data-source-file="src/App.jsx" data-source-line="2">` + "\n" +
				`    <button data-source-file="src/App.jsx" data-source-line="3">Save</button>` + "\n" +
				"  </div>\n);\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := annotator.Annotate(context.Background(), tt.path, tt.language, []byte(tt.src))
			require.NoError(t, err)

			assert.Equal(t, tt.want, string(unit.Code))
			assert.Zero(t, unit.Skipped)
		})
	}
}

func TestAnnotator_ReplacesStaleAttributes(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())
	src := `const A = () => <p data-source-line="99" id="x" data-source-file="src/Old.jsx">a</p>;` + "\n"

	unit, err := annotator.Annotate(context.Background(), "/p/src/A.jsx", m.LanguageJSX, []byte(src))
	require.NoError(t, err)

	assert.Equal(t,
		`const A = () => <p id="x" data-source-file="src/A.jsx" data-source-line="1">a</p>;`+"\n",
		string(unit.Code))
}

func TestAnnotator_HTML(t *testing.T) {
	annotator := NewAnnotator(adapter.NewTreeSitterMarkupAdapter())
	src := "<div class=\"a\"><img src=\"x.png\" /></div>\n"

	unit, err := annotator.Annotate(context.Background(), "/site/pages/index.html", m.LanguageHTML, []byte(src))
	require.NoError(t, err)

	assert.Equal(t,
		`<div class="a" data-source-file="pages/index.html" data-source-line="1">`+
			`<img src="x.png" data-source-file="pages/index.html" data-source-line="1" /></div>`+"\n",
		string(unit.Code))
}

func TestSourceAttributes_Escaping(t *testing.T) {
	loc := m.SourceLocation{File: `src/we"ird.jsx`, Line: 2}

	assert.Equal(t, ` data-source-file={"src/we\"ird.jsx"} data-source-line="2"`, sourceAttributes(m.LanguageJSX, loc))
	assert.Equal(t, ` data-source-file="src/we&#34;ird.jsx" data-source-line="2"`, sourceAttributes(m.LanguageHTML, loc))
	assert.Equal(t, ` data-source-file="src/a.jsx" data-source-line="2"`, sourceAttributes(m.LanguageTSX, m.SourceLocation{File: "src/a.jsx", Line: 2}))
}

func TestAnnotator_SkipsUnpositionedElements(t *testing.T) {
	src := []byte("<div><span</div>")
	annotator := NewAnnotator(stubMarkup{unit: &m.MarkupUnit{
		Content: src,
		Elements: []m.MarkupElement{
			{Name: "div", Line: 1, InsertAt: 4, Positioned: true},
			{Name: "span", Line: 1},
		},
	}})

	unit, err := annotator.Annotate(context.Background(), "/p/Widget.jsx", m.LanguageJSX, src)
	require.NoError(t, err)

	assert.Equal(t, 2, unit.Elements)
	assert.Equal(t, 1, unit.Annotated)
	assert.Equal(t, 1, unit.Skipped)
	assert.Equal(t, `<div data-source-file="Widget.jsx" data-source-line="1"><span</div>`, string(unit.Code))
}

func TestAnnotator_ParseError(t *testing.T) {
	parseErr := errors.New("boom")
	annotator := NewAnnotator(stubMarkup{err: parseErr})

	_, err := annotator.Annotate(context.Background(), "/p/a.jsx", m.LanguageJSX, nil)
	assert.ErrorIs(t, err, parseErr)
}

func TestApplyEdits(t *testing.T) {
	content := []byte("0123456789")

	got := applyEdits(content, []m.Edit{
		{Start: 2, End: 2, Text: "+"},
		{Start: 2, End: 4},
		{Start: 8, End: 9, Text: "x"},
	})

	assert.Equal(t, "01+4567x9", string(got))
	assert.Equal(t, "0123456789", string(content))
}
