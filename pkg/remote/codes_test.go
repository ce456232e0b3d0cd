package remote

import (
	"testing"

	"github.com/gwillem/fetchbot/pkg/robot"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		manual, auto int
		ok           bool
		action       Action
		dodge        robot.Side
	}{
		{0, 0, true, ActionStop, 0},
		{1, 0, true, ActionLeft, 0},
		{2, 0, true, ActionRight, 0},
		{3, 0, true, ActionForward, 0},
		{4, 0, true, ActionBackward, 0},
		{7, 0, true, ActionUnknown, 0},
		{0, 2, true, ActionAutopilot, robot.Left},
		{0, 4, true, ActionAutopilot, robot.Right},
		{0, 1, true, ActionUnknown, 0},
		{0, 9, true, ActionUnknown, 0},
		// both channels busy
		{3, 2, false, 0, 0},
		// out of range
		{10, 0, false, 0, 0},
		{-1, 0, false, 0, 0},
		{0, 12, false, 0, 0},
	}
	for _, tt := range tests {
		cmd, ok := Decode(tt.manual, tt.auto)
		if ok != tt.ok {
			t.Errorf("Decode(%d, %d) ok = %v, want %v", tt.manual, tt.auto, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if cmd.Action != tt.action || cmd.Dodge != tt.dodge {
			t.Errorf("Decode(%d, %d) = %v dodge %v, want %v dodge %v",
				tt.manual, tt.auto, cmd.Action, cmd.Dodge, tt.action, tt.dodge)
		}
	}
}

func TestDecode_ChannelAndCode(t *testing.T) {
	cmd, _ := Decode(0, 7)
	if cmd.Channel != AutopilotChannel || cmd.Code != 7 {
		t.Errorf("unknown autopilot code = channel %d code %d", cmd.Channel, cmd.Code)
	}
	cmd, _ = Decode(5, 0)
	if cmd.Channel != ManualChannel || cmd.Code != 5 {
		t.Errorf("unknown manual code = channel %d code %d", cmd.Channel, cmd.Code)
	}
}

func TestCommand_Manual(t *testing.T) {
	for _, a := range []Action{ActionStop, ActionLeft, ActionRight, ActionForward, ActionBackward} {
		if !(Command{Action: a}).Manual() {
			t.Errorf("%v should be manual", a)
		}
	}
	for _, a := range []Action{ActionAutopilot, ActionUnknown} {
		if (Command{Action: a}).Manual() {
			t.Errorf("%v should not be manual", a)
		}
	}
	if got := (Command{Action: ActionAutopilot, Dodge: robot.Right}).String(); got != "autopilot(dodge right)" {
		t.Errorf("String = %q", got)
	}
}
