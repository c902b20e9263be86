package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"srclens.dev/pkg/srclens/internal/controller"
	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

const (
	inspectWSWriteWait = 10 * time.Second
	inspectWSPongWait  = 60 * time.Second
	inspectWSPingEvery = (inspectWSPongWait * 9) / 10
	inspectWSQueueSize = 32
)

var inspectWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type inspectWSInbound struct {
	Type    string             `json:"type"`
	Element *m.ElementSnapshot `json:"element,omitempty"`
	Bounds  m.Rect             `json:"bounds"`
	Key     *m.KeyEvent        `json:"key,omitempty"`
	URI     string             `json:"uri,omitempty"`
}

type inspectWSOutbound struct {
	Type     string            `json:"type"`
	Action   string            `json:"action,omitempty"`
	Bounds   *m.Rect           `json:"bounds,omitempty"`
	Location *m.SourceLocation `json:"location,omitempty"`
	Link     *m.EditorLink     `json:"link,omitempty"`
	Message  string            `json:"message,omitempty"`
	TTL      int64             `json:"ttl,omitempty"`
}

// HandleInspectWS runs one inspection session per connection. The browser
// shim reports pointer moves and key presses; the session answers with
// overlay and notification commands.
func (h *Handler) HandleInspectWS(w http.ResponseWriter, r *http.Request) {
	conn, err := inspectWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(inspectWSPongWait)); err != nil {
		slog.Warn("Failed to set websocket read deadline", "error", err)
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(inspectWSPongWait))
	})

	host := newWSHost()
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		writeInspectWS(ctx, conn, host.out)
	}()

	session := domain.NewSession(h.resolver, h.formatter)
	if err := session.Start(host); err != nil {
		slog.Error("Failed to start inspection session", "error", err)
		cancel()
		<-writerDone

		return
	}

	slog.Debug("Inspection session started", "remote", r.RemoteAddr)

	h.readInspectWS(ctx, conn, host)

	session.Stop()
	cancel()
	<-writerDone

	slog.Debug("Inspection session stopped", "remote", r.RemoteAddr)
}

func (h *Handler) readInspectWS(ctx context.Context, conn *websocket.Conn, host *wsHost) {
	for {
		var in inspectWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}

		// Any inbound message proves the peer is alive.
		_ = conn.SetReadDeadline(time.Now().Add(inspectWSPongWait))

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "move":
			if in.Element == nil {
				host.push(inspectWSOutbound{Type: "error", Message: "move requires an element"})
				continue
			}

			in.Element.Link()
			host.move(in.Element, in.Bounds)

		case "key":
			if in.Key == nil {
				host.push(inspectWSOutbound{Type: "error", Message: "key requires a key event"})
				continue
			}

			host.key(*in.Key)

		case "open":
			h.openFromWS(ctx, host, in.URI)

		case "ping":
			host.push(inspectWSOutbound{Type: "pong"})

		default:
			host.push(inspectWSOutbound{Type: "error", Message: "unsupported type: " + in.Type})
		}
	}
}

func (h *Handler) openFromWS(ctx context.Context, host *wsHost, uri string) {
	if h.launcher == nil {
		host.push(inspectWSOutbound{Type: "error", Message: "editor launching is disabled"})
		return
	}

	if _, err := h.launcher.Launch(ctx, uri); err != nil {
		slog.Error("Failed to launch editor", "uri", uri, "error", err)
		host.push(inspectWSOutbound{Type: "error", Message: err.Error()})
	}
}

func writeInspectWS(ctx context.Context, conn *websocket.Conn, out <-chan inspectWSOutbound) {
	ticker := time.NewTicker(inspectWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushInspectWS(conn, out)
			return
		case msg := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(inspectWSWriteWait)); err != nil {
				return
			}

			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(inspectWSWriteWait)); err != nil {
				return
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flushInspectWS writes whatever is still queued, such as the overlay removal
// pushed by Session.Stop, without waiting for more.
func flushInspectWS(conn *websocket.Conn, out <-chan inspectWSOutbound) {
	for {
		select {
		case msg := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(inspectWSWriteWait)); err != nil {
				return
			}

			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// wsHost implements controller.Host by turning session callbacks into
// outbound messages.
type wsHost struct {
	out chan inspectWSOutbound

	mu     sync.Mutex
	onMove controller.PointerListener
	onKey  controller.KeyListener
}

func newWSHost() *wsHost {
	return &wsHost{out: make(chan inspectWSOutbound, inspectWSQueueSize)}
}

func (h *wsHost) CreateOverlay() controller.Overlay {
	return &wsOverlay{host: h}
}

func (h *wsHost) AddListeners(onMove controller.PointerListener, onKey controller.KeyListener) func() {
	h.mu.Lock()
	h.onMove = onMove
	h.onKey = onKey
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.onMove = nil
		h.onKey = nil
		h.mu.Unlock()
	}
}

func (h *wsHost) NotifySource(loc m.SourceLocation, link m.EditorLink, ttl time.Duration) {
	h.push(inspectWSOutbound{Type: "source", Location: &loc, Link: &link, TTL: ttl.Milliseconds()})
}

func (h *wsHost) NotifyError(message string, ttl time.Duration) {
	h.push(inspectWSOutbound{Type: "error", Message: message, TTL: ttl.Milliseconds()})
}

func (h *wsHost) move(target m.Element, bounds m.Rect) {
	h.mu.Lock()
	listener := h.onMove
	h.mu.Unlock()

	if listener != nil {
		listener(target, bounds)
	}
}

func (h *wsHost) key(event m.KeyEvent) {
	h.mu.Lock()
	listener := h.onKey
	h.mu.Unlock()

	if listener != nil {
		listener(event)
	}
}

// push never blocks the session: when the queue is full the oldest message
// is dropped.
func (h *wsHost) push(msg inspectWSOutbound) {
	select {
	case h.out <- msg:
		return
	default:
	}

	select {
	case <-h.out:
	default:
	}

	select {
	case h.out <- msg:
	default:
	}
}

type wsOverlay struct {
	host *wsHost
}

func (o *wsOverlay) Show() {
	o.host.push(inspectWSOutbound{Type: "overlay", Action: "show"})
}

func (o *wsOverlay) Hide() {
	o.host.push(inspectWSOutbound{Type: "overlay", Action: "hide"})
}

func (o *wsOverlay) Move(bounds m.Rect) {
	o.host.push(inspectWSOutbound{Type: "overlay", Action: "move", Bounds: &bounds})
}

func (o *wsOverlay) Remove() {
	o.host.push(inspectWSOutbound{Type: "overlay", Action: "remove"})
}
