package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	m "srclens.dev/pkg/srclens/internal/model"
)

// Launcher opens an editor URI.
type Launcher interface {
	Launch(ctx context.Context, uri string) (string, error)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Inspector is an interactive terminal Host over a captured document. The
// cursor plays the pointer; the gesture keys are forwarded to the session.
type Inspector struct {
	model  *inspectorModel
	input  io.Reader
	output io.Writer
}

// NewInspector creates an inspector for doc. launcher may be nil, in which
// case links are only displayed.
func NewInspector(doc *m.Document, launcher Launcher, input io.Reader, output io.Writer) *Inspector {
	return &Inspector{
		model:  newInspectorModel(doc, launcher),
		input:  input,
		output: output,
	}
}

// Run attaches session to the inspector and blocks until the user quits or
// ctx is done.
func (i *Inspector) Run(ctx context.Context, session Session) error {
	if len(i.model.elements) == 0 {
		return errors.New("snapshot has no elements to inspect")
	}

	if err := session.Start(i.model); err != nil {
		slog.Error("Failed to start inspection session", "error", err)
		return fmt.Errorf("start inspection session: %w", err)
	}
	defer session.Stop()

	i.model.ctx = ctx

	if f, ok := i.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			i.model.width = width
			i.model.height = height
		}
	}

	// Hover the first element so the overlay has a target from the start.
	i.model.movePointer()

	program := tea.NewProgram(i.model,
		tea.WithContext(ctx),
		tea.WithInput(i.input),
		tea.WithOutput(i.output),
		tea.WithAltScreen(),
	)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run inspector: %w", err)
	}

	return nil
}

type inspectorKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Resolve key.Binding
	Toggle  key.Binding
	Open    key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

func (k inspectorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Resolve, k.Toggle, k.Open, k.Quit}
}

func (k inspectorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Resolve, k.Toggle, k.Open},
		{k.Dismiss, k.Quit},
	}
}

var inspectorKeys = inspectorKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next"),
	),
	Resolve: key.NewBinding(
		key.WithKeys("alt+O", "enter"),
		key.WithHelp("alt+O", "resolve"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("alt+L", "t"),
		key.WithHelp("alt+L", "toggle"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open in editor"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle  = lipgloss.NewStyle().Bold(true)
	overlayStyle = lipgloss.NewStyle().Reverse(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	sourceStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("10")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// reservedLines is the space taken by the title, status, notice and help.
const reservedLines = 10

type noticeKind int

const (
	noticeSource noticeKind = iota
	noticeError
)

type notice struct {
	kind     noticeKind
	location m.SourceLocation
	link     m.EditorLink
	message  string
}

type noticeExpiredMsg struct {
	seq int
}

type launchedMsg struct {
	uri string
	err error
}

// terminalOverlay tracks the highlighted row; the model draws it.
type terminalOverlay struct {
	visible bool
	removed bool
	bounds  m.Rect
}

func (o *terminalOverlay) Show() {
	if !o.removed {
		o.visible = true
	}
}

func (o *terminalOverlay) Hide() {
	o.visible = false
}

func (o *terminalOverlay) Move(bounds m.Rect) {
	o.bounds = bounds
}

func (o *terminalOverlay) Remove() {
	o.removed = true
	o.visible = false
}

// inspectorModel is both the bubbletea model and the session Host. Session
// callbacks run inside Update, so the model state needs no locking.
type inspectorModel struct {
	ctx      context.Context
	doc      *m.Document
	elements []m.FlatElement
	launcher Launcher
	keys     inspectorKeyMap
	help     help.Model

	cursor int
	offset int
	width  int
	height int

	overlay *terminalOverlay
	onMove  PointerListener
	onKey   KeyListener

	notice    *notice
	noticeSeq int
	status    string
	pending   []tea.Cmd
}

func newInspectorModel(doc *m.Document, launcher Launcher) *inspectorModel {
	model := &inspectorModel{
		ctx:      context.Background(),
		doc:      doc,
		launcher: launcher,
		keys:     inspectorKeys,
		help:     help.New(),
	}

	if doc != nil {
		doc.Root.Link()
		model.elements = doc.Root.Flatten()
	}

	return model
}

// CreateOverlay implements Host.
func (im *inspectorModel) CreateOverlay() Overlay {
	im.overlay = &terminalOverlay{}
	return im.overlay
}

// AddListeners implements Host.
func (im *inspectorModel) AddListeners(onMove PointerListener, onKey KeyListener) func() {
	im.onMove = onMove
	im.onKey = onKey

	return func() {
		im.onMove = nil
		im.onKey = nil
	}
}

// NotifySource implements Notifier.
func (im *inspectorModel) NotifySource(loc m.SourceLocation, link m.EditorLink, ttl time.Duration) {
	im.show(&notice{kind: noticeSource, location: loc, link: link}, ttl)
}

// NotifyError implements Notifier.
func (im *inspectorModel) NotifyError(message string, ttl time.Duration) {
	im.show(&notice{kind: noticeError, message: message}, ttl)
}

func (im *inspectorModel) show(n *notice, ttl time.Duration) {
	im.noticeSeq++
	im.notice = n

	seq := im.noticeSeq
	im.pending = append(im.pending, tea.Tick(ttl, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	}))
}

func (im *inspectorModel) Init() tea.Cmd {
	return nil
}

func (im *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		im.width = msg.Width
		im.height = msg.Height
		im.help.Width = msg.Width
		im.scrollToCursor()

	case noticeExpiredMsg:
		if msg.seq == im.noticeSeq {
			im.notice = nil
		}

	case launchedMsg:
		if msg.err != nil {
			im.NotifyError(fmt.Sprintf("Failed to open editor: %v", msg.err), ErrorNotificationTTL)
		} else {
			im.status = "opened " + msg.uri
		}

	case tea.KeyMsg:
		if cmd := im.handleKey(msg); cmd != nil {
			im.pending = append(im.pending, cmd)
		}
	}

	return im, im.flush()
}

func (im *inspectorModel) flush() tea.Cmd {
	if len(im.pending) == 0 {
		return nil
	}

	cmds := im.pending
	im.pending = nil

	if len(cmds) == 1 {
		return cmds[0]
	}

	return tea.Batch(cmds...)
}

func (im *inspectorModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, im.keys.Quit):
		return tea.Quit

	case key.Matches(msg, im.keys.Up):
		im.moveCursor(-1)

	case key.Matches(msg, im.keys.Down):
		im.moveCursor(1)

	case key.Matches(msg, im.keys.Resolve):
		im.sendGesture(ResolveKeyCode)

	case key.Matches(msg, im.keys.Toggle):
		im.sendGesture(ToggleKeyCode)

	case key.Matches(msg, im.keys.Dismiss):
		im.notice = nil

	case key.Matches(msg, im.keys.Open):
		return im.launch()
	}

	return nil
}

func (im *inspectorModel) moveCursor(delta int) {
	next := im.cursor + delta
	if next < 0 || next >= len(im.elements) {
		return
	}

	im.cursor = next
	im.scrollToCursor()
	im.movePointer()
}

func (im *inspectorModel) movePointer() {
	if im.onMove == nil || im.cursor >= len(im.elements) {
		return
	}

	el := im.elements[im.cursor].Element
	im.onMove(el, el.Bounds)
}

func (im *inspectorModel) sendGesture(code string) {
	if im.onKey == nil {
		return
	}

	im.onKey(m.KeyEvent{Code: code, Alt: true, Shift: true})
}

func (im *inspectorModel) launch() tea.Cmd {
	if im.notice == nil || im.notice.kind != noticeSource {
		return nil
	}

	if im.launcher == nil {
		im.status = "no editor launcher configured"
		return nil
	}

	ctx := im.ctx
	launcher := im.launcher
	uri := im.notice.link.URI

	return func() tea.Msg {
		_, err := launcher.Launch(ctx, uri)
		return launchedMsg{uri: uri, err: err}
	}
}

func (im *inspectorModel) itemsPerPage() int {
	if im.height == 0 {
		return len(im.elements)
	}

	available := im.height - reservedLines
	if available < 1 {
		return 1
	}

	return available
}

func (im *inspectorModel) scrollToCursor() {
	perPage := im.itemsPerPage()

	if im.cursor < im.offset {
		im.offset = im.cursor
	}

	if im.cursor >= im.offset+perPage {
		im.offset = im.cursor - perPage + 1
	}
}

func (im *inspectorModel) View() string {
	var b strings.Builder

	title := "srclens inspector"
	if im.doc != nil && im.doc.URL != "" {
		title += " · " + im.doc.URL
	}

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	end := im.offset + im.itemsPerPage()
	if end > len(im.elements) {
		end = len(im.elements)
	}

	for idx := im.offset; idx < end; idx++ {
		b.WriteString(im.renderRow(idx))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(im.statusLine()))
	b.WriteString("\n")

	if im.notice != nil {
		b.WriteString(im.renderNotice())
		b.WriteString("\n")
	}

	b.WriteString(im.help.View(im.keys))
	b.WriteString("\n")

	return b.String()
}

func (im *inspectorModel) renderRow(idx int) string {
	item := im.elements[idx]
	label := strings.Repeat("  ", item.Depth) + item.Element.Label()

	if file, ok := item.Element.Attribute(m.SourceFileKey); ok {
		line, _ := item.Element.Attribute(m.SourceLineKey)
		label += mutedStyle.Render(fmt.Sprintf("  %s:%s", file, line))
	}

	if idx != im.cursor {
		return "  " + label
	}

	if im.overlay != nil && im.overlay.visible {
		return cursorStyle.Render("> ") + overlayStyle.Render(label)
	}

	return cursorStyle.Render("> " + label)
}

func (im *inspectorModel) statusLine() string {
	state := "inspection off"
	if im.overlay != nil && im.overlay.visible {
		b := im.overlay.bounds
		state = fmt.Sprintf("inspection on · overlay %.0fx%.0f at %.0f,%.0f", b.Width, b.Height, b.X, b.Y)
	}

	if im.status != "" {
		state += " · " + im.status
	}

	return fmt.Sprintf("%d/%d · %s", im.cursor+1, len(im.elements), state)
}

func (im *inspectorModel) renderNotice() string {
	n := im.notice

	if n.kind == noticeError {
		return errorStyle.Render(n.message)
	}

	var b strings.Builder

	display := n.link.Display
	if display == "" {
		display = n.location.String()
	}

	fmt.Fprintf(&b, "%s\n%s", display, n.link.URI)

	for _, warning := range n.link.Warnings {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("⚠ " + warning))
	}

	return sourceStyle.Render(b.String())
}
