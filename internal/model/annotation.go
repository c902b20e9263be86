package model

import "time"

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// MarkupElement is an element node found in a compiled unit.
type MarkupElement struct {
	Name string
	// Line is the 1-based start line.
	Line int
	// InsertAt is the byte offset where new attributes are appended.
	InsertAt int
	// Positioned is false when the parser could not settle where the
	// element's start tag ends (error recovery). Such elements are skipped.
	Positioned bool
	// SourceAttrs are the spans of source attributes left by an earlier
	// annotation, including their leading whitespace.
	SourceAttrs []Span
}

// MarkupUnit is a parsed compiled unit.
type MarkupUnit struct {
	Path     Path
	Language Language
	Content  []byte
	Elements []MarkupElement
}

// Attribute is a key/value pair attached to an element.
type Attribute struct {
	Key   string
	Value string
}

// Edit replaces the bytes in [Start, End) with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// AnnotatedUnit is the output of annotating a single unit.
type AnnotatedUnit struct {
	Path      Path
	Language  Language
	File      string
	Code      []byte
	Elements  int
	Annotated int
	Skipped   int
	Changed   bool
}

// AnnotationResult reports what happened to one source during a workflow run.
type AnnotationResult struct {
	Source    Source
	Elements  int
	Annotated int
	Skipped   int
	Changed   bool
	Cached    bool
	Output    Path
	Diff      string
	Err       error
}

// Manifest records the files written by previous annotate runs.
type Manifest struct {
	Version int                      `yaml:"version"`
	Files   map[string]ManifestEntry `yaml:"files"`
}

// ManifestEntry describes one annotated output, keyed by output path. Hash
// is the sha256 of the written output, SourceHash that of its input.
type ManifestEntry struct {
	Hash       string    `yaml:"hash"`
	SourceHash string    `yaml:"source_hash,omitempty"`
	Elements   int       `yaml:"elements"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}
