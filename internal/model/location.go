package model

import (
	"fmt"
	"strconv"
)

const (
	// SourceFileKey is the attribute carrying the normalized source file.
	SourceFileKey = "data-source-file"
	// SourceLineKey is the attribute carrying the 1-based start line.
	SourceLineKey = "data-source-line"
	// RootMarkerKey marks the root element of a rendered application.
	RootMarkerKey = "data-reactroot"
)

// SourceLocation identifies the file and line an element was declared at.
type SourceLocation struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// String renders the location as file:line.
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LineString returns the line serialized the way attribute values are.
func (l SourceLocation) LineString() string {
	return strconv.Itoa(l.Line)
}

// Valid reports whether the location carries a file and a positive line.
func (l SourceLocation) Valid() bool {
	return l.File != "" && l.Line > 0
}
