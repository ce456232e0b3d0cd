package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gwillem/fetchbot/pkg/robot"
)

const sample = `
name: far edge
dodge: right
steps:
  - {left: true, right: true, distance: 40, repeat: 2}
  - {left: false, right: true, distance: 5}
  - {left: true, right: true, distance: 40, fault: sensor}
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(sample))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if sc.Name != "far edge" || sc.Dodge != "right" {
		t.Errorf("header = %q %q", sc.Name, sc.Dodge)
	}
	if got := len(sc.frames()); got != 4 {
		t.Errorf("frames = %d, want 4", got)
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := map[string]string{
		"no steps":  "name: empty\n",
		"bad fault": "steps:\n  - {fault: smoke}\n",
		"negative":  "steps:\n  - {repeat: -1}\n",
		"not yaml":  "steps: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseScenario([]byte(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
}

func TestDevice_FramesAdvanceOnLeftRead(t *testing.T) {
	sc, err := ParseScenario([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	d := FromScenario(sc)
	ctx := context.Background()

	type reading struct {
		left, right bool
		dist        float64
	}
	want := []reading{
		{true, true, 40},
		{true, true, 40},
		{false, true, 5},
	}
	for i, w := range want {
		l, _ := d.ReadEdge(ctx, robot.Left)
		r, _ := d.ReadEdge(ctx, robot.Right)
		dist, _ := d.ReadDistance(ctx)
		if l != w.left || r != w.right || dist != w.dist {
			t.Errorf("sample %d = %v %v %v, want %+v", i, l, r, dist, w)
		}
	}

	_, err = d.ReadEdge(ctx, robot.Left)
	if !errors.Is(err, robot.ErrSensorUnavailable) {
		t.Errorf("faulted frame: got %v, want ErrSensorUnavailable", err)
	}
	if !d.Exhausted() {
		t.Error("device should be exhausted")
	}
	// the last frame is held
	if _, err := d.ReadEdge(ctx, robot.Left); err == nil {
		t.Error("held faulted frame should still fail")
	}
}

func TestDevice_StopIsIdempotent(t *testing.T) {
	d := New(OnTable(1))
	ctx := context.Background()

	if err := d.Drive(ctx, robot.Forward, robot.Forward, true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := d.Drive(ctx, robot.Stop, robot.Stop, true); err != nil {
			t.Fatal(err)
		}
	}
	if got := d.Changes(); got != 2 {
		t.Errorf("changes = %d, want 2", got)
	}
	m := d.Motors()
	if m.Left != robot.Stop || m.Right != robot.Stop {
		t.Errorf("motors = %+v", m)
	}
}

func TestDevice_KeepAndClock(t *testing.T) {
	d := New(OnTable(1))
	ctx := context.Background()

	_ = d.Drive(ctx, robot.Backward, robot.Backward, true)
	_ = d.Drive(ctx, robot.Keep, robot.Forward, false)
	_ = d.Wait(ctx, 1750*time.Millisecond)

	m := d.Motors()
	if m.Left != robot.Backward || m.Right != robot.Forward {
		t.Errorf("motors = %+v, want backward/forward", m)
	}
	if d.Clock() != 1750*time.Millisecond {
		t.Errorf("clock = %v", d.Clock())
	}
	if got := d.Journal()[1].String(); got != "drive keep/forward" {
		t.Errorf("journal[1] = %q", got)
	}
}

func TestDevice_MotorFault(t *testing.T) {
	d := New(Frame{Left: true, Right: true, Fault: MotorFault})
	err := d.Drive(context.Background(), robot.Forward, robot.Forward, true)
	if !errors.Is(err, robot.ErrMotorCommandRejected) {
		t.Errorf("got %v, want ErrMotorCommandRejected", err)
	}
}
