package domain

import (
	"errors"
	"log/slog"
	"sync"

	"srclens.dev/pkg/srclens/internal/controller"
	m "srclens.dev/pkg/srclens/internal/model"
)

// Key codes of the inspection gestures.
const (
	ResolveKeyCode = controller.ResolveKeyCode
	ToggleKeyCode  = controller.ToggleKeyCode
)

// ErrSessionStarted is returned when Start is called on a running session.
var ErrSessionStarted = errors.New("inspection session already started")

// Session owns the inspection target, the enabled flag, the overlay and the
// listener registration of one inspected page.
type Session interface {
	controller.Session
	Enabled() bool
	Target() m.Element
}

type session struct {
	Resolver
	EditorFormatter

	mu      sync.Mutex
	host    controller.Host
	overlay controller.Overlay
	remove  func()
	target  m.Element
	enabled bool
}

// NewSession creates a stopped session.
func NewSession(resolver Resolver, formatter EditorFormatter) Session {
	return &session{
		Resolver:        resolver,
		EditorFormatter: formatter,
	}
}

func (s *session) Start(host controller.Host) error {
	if host == nil {
		return errors.New("inspection host is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host != nil {
		return ErrSessionStarted
	}

	overlay := host.CreateOverlay()
	remove := host.AddListeners(s.handleMove, s.handleKey)

	s.host = host
	s.overlay = overlay
	s.remove = remove
	s.enabled = true
	s.target = nil

	if overlay != nil {
		overlay.Show()
	}

	slog.Debug("Inspection session started")

	return nil
}

func (s *session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil {
		return
	}

	if s.remove != nil {
		s.remove()
	}

	if s.overlay != nil {
		s.overlay.Remove()
	}

	s.host = nil
	s.overlay = nil
	s.remove = nil
	s.target = nil

	slog.Debug("Inspection session stopped")
}

func (s *session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.host != nil && s.enabled
}

func (s *session) Target() m.Element {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.target
}

func (s *session) handleMove(target m.Element, bounds m.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil || !s.enabled || target == nil {
		return
	}

	if target == s.target {
		return
	}

	s.target = target

	if s.overlay != nil {
		s.overlay.Move(bounds)
	}
}

func (s *session) handleKey(event m.KeyEvent) {
	notify := s.dispatchKey(event)
	if notify != nil {
		notify()
	}
}

// dispatchKey updates session state under the lock and returns the
// notification to deliver once the lock is released.
func (s *session) dispatchKey(event m.KeyEvent) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil || !isGesture(event) {
		return nil
	}

	switch event.Code {
	case ToggleKeyCode:
		s.enabled = !s.enabled

		if s.overlay != nil {
			if s.enabled {
				s.overlay.Show()
			} else {
				s.overlay.Hide()
			}
		}

		slog.Debug("Inspection toggled", "enabled", s.enabled)

		return nil
	case ResolveKeyCode:
		if !s.enabled || s.target == nil {
			return nil
		}

		return s.resolveLocked()
	default:
		return nil
	}
}

func (s *session) resolveLocked() func() {
	host := s.host
	res := s.Resolve(s.target)

	if !res.Found {
		slog.Debug("Source not found", "reason", res.Reason, "steps", res.Steps)

		message := res.Message()

		return func() { host.NotifyError(message, controller.ErrorNotificationTTL) }
	}

	link := s.Format(res.Location)
	slog.Debug("Source resolved", "location", res.Location.String(), "strategy", res.Strategy)

	return func() { host.NotifySource(res.Location, link, controller.SourceNotificationTTL) }
}

// isGesture reports whether event is modifier + Shift + a letter key.
func isGesture(event m.KeyEvent) bool {
	return event.Shift && (event.Meta || event.Ctrl || event.Alt)
}
