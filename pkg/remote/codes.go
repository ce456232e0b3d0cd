// Package remote implements the manual dispatch loop: it polls a remote
// control receiver, drives the motors directly for manual codes and hands
// the motors to the autopilot for autopilot codes.
package remote

import (
	"context"
	"fmt"

	"github.com/gwillem/fetchbot/pkg/robot"
)

// Receiver channels (0-based).
const (
	ManualChannel    = 0
	AutopilotChannel = 3
)

// MaxCode is the highest button code a receiver reports.
const MaxCode = 9

// Receiver reports the button code pressed on a remote channel, 0 when
// nothing is pressed.
type Receiver interface {
	ReadRemote(ctx context.Context, channel int) (int, error)
}

// Action is what a decoded remote command asks for.
type Action int

const (
	ActionStop Action = iota + 1
	ActionLeft
	ActionRight
	ActionForward
	ActionBackward
	ActionAutopilot
	// ActionUnknown is a code in range that has no meaning.
	ActionUnknown
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	case ActionForward:
		return "forward"
	case ActionBackward:
		return "backward"
	case ActionAutopilot:
		return "autopilot"
	case ActionUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Command is a decoded remote reading.
type Command struct {
	Action  Action
	Dodge   robot.Side // autopilot only
	Channel int
	Code    int
}

// Manual reports whether the command drives the motors directly.
func (c Command) Manual() bool {
	switch c.Action {
	case ActionStop, ActionLeft, ActionRight, ActionForward, ActionBackward:
		return true
	}
	return false
}

func (c Command) String() string {
	if c.Action == ActionAutopilot {
		return fmt.Sprintf("autopilot(dodge %s)", c.Dodge)
	}
	return c.Action.String()
}

// Decode maps the readings of both channels to a command. A manual code
// only counts while the autopilot channel is idle and the other way round;
// ok is false when neither channel carries a usable reading.
func Decode(manual, auto int) (cmd Command, ok bool) {
	switch {
	case manual >= 0 && manual <= MaxCode && auto == 0:
		cmd = Command{Channel: ManualChannel, Code: manual}
		switch manual {
		case 0:
			cmd.Action = ActionStop
		case 1:
			cmd.Action = ActionLeft
		case 2:
			cmd.Action = ActionRight
		case 3:
			cmd.Action = ActionForward
		case 4:
			cmd.Action = ActionBackward
		default:
			cmd.Action = ActionUnknown
		}
		return cmd, true

	case auto >= 1 && auto <= MaxCode && manual == 0:
		cmd = Command{Channel: AutopilotChannel, Code: auto}
		switch auto {
		case 2:
			cmd.Action, cmd.Dodge = ActionAutopilot, robot.Left
		case 4:
			cmd.Action, cmd.Dodge = ActionAutopilot, robot.Right
		default:
			cmd.Action = ActionUnknown
		}
		return cmd, true
	}
	return Command{}, false
}
