package remote

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Buttons is one message from a websocket controller: the code held on
// each remote channel. A controller sends a new message whenever a button
// changes.
type Buttons struct {
	Manual    int `json:"manual"`
	Autopilot int `json:"autopilot"`
}

// WebsocketReceiver is a Receiver fed by a browser or script over a
// websocket. Only one controller may be connected at a time; the buttons
// fall back to released when it disconnects.
type WebsocketReceiver struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	inuse   bool
	buttons Buttons
}

var _ Receiver = (*WebsocketReceiver)(nil)

// NewWebsocketReceiver creates a receiver with no controller attached.
func NewWebsocketReceiver(log *slog.Logger) *WebsocketReceiver {
	if log == nil {
		log = slog.Default()
	}
	return &WebsocketReceiver{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// ReadRemote implements Receiver.
func (w *WebsocketReceiver) ReadRemote(ctx context.Context, channel int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch channel {
	case ManualChannel:
		return w.buttons.Manual, nil
	case AutopilotChannel:
		return w.buttons.Autopilot, nil
	default:
		return 0, nil
	}
}

// Connected reports whether a controller is attached.
func (w *WebsocketReceiver) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inuse
}

func (w *WebsocketReceiver) lock() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inuse {
		return false
	}
	w.inuse = true
	return true
}

func (w *WebsocketReceiver) unlock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inuse = false
	w.buttons = Buttons{}
}

func (w *WebsocketReceiver) set(b Buttons) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buttons = b
}

// ServeHTTP upgrades the request and reads Buttons messages until the
// connection closes. A second controller gets 409 Conflict.
func (w *WebsocketReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Cache-Control", "no-cache")
	if !w.lock() {
		http.Error(rw, "remote controller already connected", http.StatusConflict)
		return
	}
	defer w.unlock()

	ws, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer ws.Close()
	w.log.Info("remote controller connected", "addr", r.RemoteAddr)

	for {
		var b Buttons
		if err := ws.ReadJSON(&b); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.log.Warn("remote controller read failed", "err", err)
			}
			break
		}
		w.set(b)
	}
	w.log.Info("remote controller disconnected", "addr", r.RemoteAddr)
}
