package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWebsocketReceiver(t *testing.T) {
	rx := NewWebsocketReceiver(quiet())
	srv := httptest.NewServer(rx)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx := context.Background()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	eventually(t, "controller", rx.Connected)

	if err := ws.WriteJSON(Buttons{Autopilot: 2}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "autopilot code", func() bool {
		code, _ := rx.ReadRemote(ctx, AutopilotChannel)
		return code == 2
	})
	if code, _ := rx.ReadRemote(ctx, ManualChannel); code != 0 {
		t.Errorf("manual = %d, want 0", code)
	}
	if code, _ := rx.ReadRemote(ctx, 1); code != 0 {
		t.Errorf("unused channel = %d, want 0", code)
	}

	// a second controller is refused
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second controller connected")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("second controller response = %v, want 409", resp)
	}

	if err := ws.WriteJSON(Buttons{Manual: 3}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "manual code", func() bool {
		code, _ := rx.ReadRemote(ctx, ManualChannel)
		return code == 3
	})

	ws.Close()
	eventually(t, "disconnect", func() bool { return !rx.Connected() })
	if code, _ := rx.ReadRemote(ctx, ManualChannel); code != 0 {
		t.Errorf("manual after disconnect = %d, want released", code)
	}
}

func TestWebsocketReceiver_FeedsDispatcher(t *testing.T) {
	rx := NewWebsocketReceiver(quiet())
	rx.set(Buttons{Manual: 4})

	d := newTestDispatcher(deliveringDevice(), rx)
	if err := d.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	d.mu.Lock()
	last := d.last.Action
	d.mu.Unlock()
	if last != ActionBackward {
		t.Errorf("last = %v, want backward", last)
	}
}

func TestWebsocketReceiver_CancelledContext(t *testing.T) {
	rx := NewWebsocketReceiver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rx.ReadRemote(ctx, ManualChannel); err == nil {
		t.Error("expected context error")
	}
}
