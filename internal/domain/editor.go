package domain

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	m "srclens.dev/pkg/srclens/internal/model"
)

// EditorHintVars are consulted in order when no editor is configured.
var EditorHintVars = []string{"SRCLENS_EDITOR_HINT", "REACT_EDITOR", "VISUAL", "EDITOR", "TERM_PROGRAM"}

// hintMatches maps substrings of an editor hint to editors. Order matters:
// "cursor" must be checked before "code" and so on.
var hintMatches = []struct {
	needle string
	editor m.Editor
}{
	{"cursor", m.EditorCursor},
	{"windsurf", m.EditorWindsurf},
	{"webstorm", m.EditorWebStorm},
	{"idea", m.EditorIntelliJ},
	{"atom", m.EditorAtom},
	{"sublime", m.EditorSublime},
	{"subl", m.EditorSublime},
	{"code", m.EditorVSCode},
}

var drivePath = regexp.MustCompile(`^[A-Za-z]:/`)

// EditorFormatter turns source locations into editor deep links.
type EditorFormatter interface {
	Editor() m.Editor
	Format(loc m.SourceLocation) m.EditorLink
}

// EditorOptions configures an EditorFormatter.
type EditorOptions struct {
	// Editor is the configured editor identifier; empty means detect.
	Editor string
	// ProjectRoot is prepended to relative source files.
	ProjectRoot string
	// Getenv reads hint variables. Defaults to os.Getenv.
	Getenv func(string) string
}

type editorFormatter struct {
	editor   m.Editor
	root     string
	warnings []string
}

// NewEditorFormatter resolves the editor once and returns a formatter for it.
func NewEditorFormatter(opts EditorOptions) EditorFormatter {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	f := &editorFormatter{
		root: strings.TrimRight(strings.ReplaceAll(opts.ProjectRoot, "\\", "/"), "/"),
	}

	explicit := strings.ToLower(strings.TrimSpace(opts.Editor))

	switch {
	case explicit == "":
		f.editor = DetectEditor(getenv)
	case isKnownEditor(m.Editor(explicit)):
		f.editor = m.Editor(explicit)
	default:
		warning := fmt.Sprintf("unknown editor %q, using %s links", opts.Editor, m.DefaultEditor)
		slog.Warn("Unknown editor configured", "editor", opts.Editor, "fallback", m.DefaultEditor)

		f.editor = m.DefaultEditor
		f.warnings = append(f.warnings, warning)
	}

	return f
}

// DetectEditor inspects the first non-empty hint variable.
func DetectEditor(getenv func(string) string) m.Editor {
	var hint string

	for _, name := range EditorHintVars {
		if value := strings.TrimSpace(getenv(name)); value != "" {
			hint = strings.ToLower(value)
			break
		}
	}

	for _, match := range hintMatches {
		if strings.Contains(hint, match.needle) {
			return match.editor
		}
	}

	return m.DefaultEditor
}

func isKnownEditor(editor m.Editor) bool {
	for _, known := range m.KnownEditors {
		if known == editor {
			return true
		}
	}

	return false
}

func (f *editorFormatter) Editor() m.Editor {
	return f.editor
}

func (f *editorFormatter) Format(loc m.SourceLocation) m.EditorLink {
	link := m.EditorLink{
		Editor:   f.editor,
		Display:  loc.String(),
		Warnings: append([]string(nil), f.warnings...),
	}

	file := strings.ReplaceAll(loc.File, "\\", "/")

	switch {
	case isAbsolute(file):
		link.Path = file
	case f.root != "":
		link.Path = f.root + "/" + strings.TrimPrefix(file, "./")
	default:
		link.Path = "/" + strings.TrimPrefix(file, "./")
		link.Degraded = true
		link.Warnings = append(link.Warnings, "no project root configured, link may not open the right file")
	}

	link.URI = editorURI(f.editor, link.Path, loc.Line)

	return link
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "/") || drivePath.MatchString(path)
}

func editorURI(editor m.Editor, path string, line int) string {
	fileURIPath := path
	if !strings.HasPrefix(fileURIPath, "/") {
		fileURIPath = "/" + fileURIPath
	}

	switch editor {
	case m.EditorWebStorm:
		return fmt.Sprintf("webstorm://open?file=%s&line=%d", path, line)
	case m.EditorIntelliJ:
		return fmt.Sprintf("idea://open?file=%s&line=%d", path, line)
	case m.EditorAtom:
		return fmt.Sprintf("atom://core/open/file?filename=%s&line=%d", path, line)
	case m.EditorSublime:
		return fmt.Sprintf("subl://open?url=file://%s&line=%d", fileURIPath, line)
	case m.EditorCursor:
		return fmt.Sprintf("cursor://file%s:%d", fileURIPath, line)
	case m.EditorWindsurf:
		return fmt.Sprintf("windsurf://file%s:%d", fileURIPath, line)
	default:
		return fmt.Sprintf("vscode://file%s:%d", fileURIPath, line)
	}
}
