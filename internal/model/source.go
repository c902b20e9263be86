// Package model defines the data structures shared by the annotator and the resolver.
package model

// Path represents a file system path.
type Path string

// Language identifies the grammar used to parse a markup unit.
type Language string

const (
	// LanguageJSX covers JavaScript files, JSX included.
	LanguageJSX Language = "jsx"
	// LanguageTSX covers TypeScript files that may contain JSX.
	LanguageTSX Language = "tsx"
	// LanguageHTML covers plain HTML documents.
	LanguageHTML Language = "html"
)

// File represents a source code file.
type File struct {
	ShortPath Path
	FullPath  Path
	Hash      string
}

// Source represents a compiled unit that can carry markup.
type Source struct {
	Origin   *File
	Language Language
}
