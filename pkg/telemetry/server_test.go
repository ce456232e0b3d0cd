package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gwillem/fetchbot/pkg/remote"
	"github.com/gwillem/fetchbot/pkg/robot"
	"github.com/gwillem/fetchbot/pkg/sim"
)

type fakeControl struct {
	busy      bool
	started   []robot.Side
	cancelled int
}

func (c *fakeControl) StartAutopilot(_ context.Context, dodge robot.Side) error {
	if c.busy {
		return remote.ErrModeBusy
	}
	c.started = append(c.started, dodge)
	return nil
}

func (c *fakeControl) CancelAutopilot() { c.cancelled++ }

func (c *fakeControl) Mode() remote.Mode {
	if c.busy {
		return remote.ModeAutopilot
	}
	return remote.ModeIdle
}

func newTestServer(t *testing.T, ctl Control) (*httptest.Server, *Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	hub := NewHub(NewMetrics(reg))
	srv := NewServer(ServerConfig{
		Hub:      hub,
		Gatherer: reg,
		Remote:   remote.NewWebsocketReceiver(quiet()),
		Control:  ctl,
		Logger:   quiet(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func do(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, body := do(t, "GET", ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestServer_StatusAndMetrics(t *testing.T) {
	ctl := &fakeControl{}
	ts, hub := newTestServer(t, ctl)
	runSession(t, hub, sim.New(sim.OnTable(1), sim.Frame{Distance: 100}))

	resp, body := do(t, "GET", ts.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var st statusResponse
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Sessions != 1 || st.LastOutcome != "delivered" || st.Mode != "idle" {
		t.Errorf("status = %+v", st)
	}

	_, metrics := do(t, "GET", ts.URL+"/metrics")
	for _, want := range []string{
		`fetchbot_sessions_total{outcome="delivered"} 1`,
		`fetchbot_commands_total{kind="drop"} 1`,
		"fetchbot_autopilot_active 0",
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_Autopilot(t *testing.T) {
	ctl := &fakeControl{}
	ts, _ := newTestServer(t, ctl)

	resp, _ := do(t, "POST", ts.URL+"/autopilot?dodge=right")
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("start = %d, want 202", resp.StatusCode)
	}
	resp, _ = do(t, "POST", ts.URL+"/autopilot")
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("start without dodge = %d, want 202", resp.StatusCode)
	}
	if len(ctl.started) != 2 || ctl.started[0] != robot.Right || ctl.started[1] != robot.Left {
		t.Errorf("started = %v", ctl.started)
	}

	resp, _ = do(t, "POST", ts.URL+"/autopilot?dodge=up")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad dodge = %d, want 400", resp.StatusCode)
	}

	ctl.busy = true
	resp, _ = do(t, "POST", ts.URL+"/autopilot")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("busy = %d, want 409", resp.StatusCode)
	}

	resp, _ = do(t, "DELETE", ts.URL+"/autopilot")
	if resp.StatusCode != http.StatusNoContent || ctl.cancelled != 1 {
		t.Errorf("cancel = %d, cancelled %d", resp.StatusCode, ctl.cancelled)
	}

	resp, _ = do(t, "GET", ts.URL+"/autopilot")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /autopilot = %d, want 405", resp.StatusCode)
	}
}

func TestServer_WithoutControl(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, _ := do(t, "POST", ts.URL+"/autopilot")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("POST /autopilot without control = %d, want 404", resp.StatusCode)
	}
}
