// Package domain contains the annotator, resolver and inspection logic of srclens.
package domain

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"srclens.dev/pkg/srclens/internal/adapter"
	m "srclens.dev/pkg/srclens/internal/model"
)

// Annotator stamps source location attributes onto markup elements.
type Annotator interface {
	// Annotate rewrites content so that every positioned element carries
	// data-source-file and data-source-line. path is the unit's absolute path.
	Annotate(ctx context.Context, path m.Path, language m.Language, content []byte) (*m.AnnotatedUnit, error)
}

type annotator struct {
	adapter.MarkupFileAdapter
}

// NewAnnotator creates a new Annotator backed by the given markup parser.
func NewAnnotator(markup adapter.MarkupFileAdapter) Annotator {
	return &annotator{MarkupFileAdapter: markup}
}

func (a *annotator) Annotate(ctx context.Context, path m.Path, language m.Language, content []byte) (*m.AnnotatedUnit, error) {
	if a.MarkupFileAdapter == nil {
		return nil, fmt.Errorf("markup adapter is nil")
	}

	unit, err := a.Parse(ctx, path, language, content)
	if err != nil {
		return nil, err
	}

	file := NormalizeSourcePath(string(path))

	result := &m.AnnotatedUnit{
		Path:     path,
		Language: language,
		File:     file,
		Elements: len(unit.Elements),
	}

	var edits []m.Edit

	for _, el := range unit.Elements {
		if !el.Positioned {
			result.Skipped++
			continue
		}

		for _, span := range el.SourceAttrs {
			edits = append(edits, m.Edit{Start: span.Start, End: span.End})
		}

		loc := m.SourceLocation{File: file, Line: el.Line}
		edits = append(edits, m.Edit{
			Start: el.InsertAt,
			End:   el.InsertAt,
			Text:  sourceAttributes(language, loc),
		})

		result.Annotated++
	}

	result.Code = applyEdits(content, edits)
	result.Changed = !bytes.Equal(result.Code, content)

	return result, nil
}

// sourceAttributes renders the attribute pair in fixed order, file first.
func sourceAttributes(language m.Language, loc m.SourceLocation) string {
	attrs := []m.Attribute{
		{Key: m.SourceFileKey, Value: loc.File},
		{Key: m.SourceLineKey, Value: loc.LineString()},
	}

	var b strings.Builder

	for _, attr := range attrs {
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteByte('=')
		b.WriteString(attributeValue(language, attr.Value))
	}

	return b.String()
}

func attributeValue(language m.Language, value string) string {
	if language == m.LanguageHTML {
		return `"` + html.EscapeString(value) + `"`
	}

	// JSX string attributes have no escapes.
	if strings.Contains(value, `"`) {
		return "{" + strconv.Quote(value) + "}"
	}

	return `"` + value + `"`
}

// applyEdits applies non-overlapping edits back to front. At equal offsets a
// removal runs before an insertion so re-annotation lands where the old
// attributes were.
func applyEdits(content []byte, edits []m.Edit) []byte {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Start != edits[j].Start {
			return edits[i].Start > edits[j].Start
		}

		return edits[i].End > edits[j].End
	})

	out := append([]byte(nil), content...)
	limit := len(content)

	for _, edit := range edits {
		if edit.Start < 0 || edit.End > limit || edit.Start > edit.End {
			continue
		}

		tail := append([]byte(edit.Text), out[edit.End:]...)
		out = append(out[:edit.Start], tail...)
		limit = edit.Start
	}

	return out
}
