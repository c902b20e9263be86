package controller

import (
	"time"

	m "srclens.dev/pkg/srclens/internal/model"
)

// Notification lifetimes.
const (
	ErrorNotificationTTL  = 3 * time.Second
	SourceNotificationTTL = 10 * time.Second
)

// Key codes of the inspection gestures. Both are pressed together with Shift
// and one of Meta, Ctrl or Alt.
const (
	ResolveKeyCode = "KeyO"
	ToggleKeyCode  = "KeyL"
)

// Overlay is the highlight box drawn over the hovered element.
type Overlay interface {
	Show()
	Hide()
	Move(bounds m.Rect)
	Remove()
}

// Notifier presents resolution outcomes. Presentation and dismissal belong
// to the host; ttl is how long the notification stays up.
type Notifier interface {
	NotifySource(loc m.SourceLocation, link m.EditorLink, ttl time.Duration)
	NotifyError(message string, ttl time.Duration)
}

// PointerListener receives the element under the pointer and its bounds.
type PointerListener func(target m.Element, bounds m.Rect)

// KeyListener receives key presses.
type KeyListener func(event m.KeyEvent)

// Host is the page an inspection session attaches to: a terminal inspector
// or a browser connected over a websocket.
type Host interface {
	Notifier
	CreateOverlay() Overlay
	// AddListeners registers both listeners and returns a function removing them.
	AddListeners(onMove PointerListener, onKey KeyListener) (remove func())
}

// Session is an inspection session driven by a Host.
type Session interface {
	Start(host Host) error
	Stop()
}
