package model

// Editor identifies a deep-link capable editor.
type Editor string

// Supported editors.
const (
	EditorVSCode   Editor = "vscode"
	EditorWebStorm Editor = "webstorm"
	EditorIntelliJ Editor = "intellij"
	EditorAtom     Editor = "atom"
	EditorSublime  Editor = "sublime"
	EditorCursor   Editor = "cursor"
	EditorWindsurf Editor = "windsurf"

	// DefaultEditor is used when nothing is configured or detected.
	DefaultEditor = EditorVSCode
)

// KnownEditors lists the editors with a dedicated URI scheme.
var KnownEditors = []Editor{
	EditorVSCode,
	EditorWebStorm,
	EditorIntelliJ,
	EditorAtom,
	EditorSublime,
	EditorCursor,
	EditorWindsurf,
}

// EditorLink is a deep link into an editor for a source location.
type EditorLink struct {
	URI     string `json:"uri"`
	Editor  Editor `json:"editor"`
	Path    string `json:"path"`
	Display string `json:"display"`
	// Degraded is set when the link was built from a relative path without a
	// project root and may not open the right file.
	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
