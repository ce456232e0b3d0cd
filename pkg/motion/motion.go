// Package motion provides the named motion primitives of the robot and an
// executor that runs them on a robot.Device.
package motion

import (
	"fmt"
	"time"

	"github.com/gwillem/fetchbot/pkg/robot"
)

// Kind is the variant of a Command.
type Kind int

const (
	KindStop Kind = iota + 1
	KindForward
	KindBackward
	KindTurnLeft
	KindTurnRight
	KindLift
	KindDrop
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindForward:
		return "forward"
	case KindBackward:
		return "reverse"
	case KindTurnLeft:
		return "turnLeft"
	case KindTurnRight:
		return "turnRight"
	case KindLift:
		return "lift"
	case KindDrop:
		return "drop"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Timed reports whether commands of this kind block for a duration.
func (k Kind) Timed() bool {
	switch k {
	case KindBackward, KindTurnLeft, KindTurnRight, KindLift, KindDrop:
		return true
	default:
		return false
	}
}

// ArmStroke is how long the arm motor runs for a lift or a drop.
const ArmStroke = 1500 * time.Millisecond

// Paces used by the autopilot and the manual remote.
var (
	ArmPace            = robot.Pace{Speed: 200, Acceleration: 230}
	PatrolPace         = robot.Pace{Speed: 270, Acceleration: 220}
	TurnAwayPace       = robot.Pace{Speed: 220, Acceleration: 200}
	RetreatPace        = robot.Pace{Speed: 700, Acceleration: 300}
	ManualTurnPace     = robot.Pace{Speed: 350, Acceleration: 300}
	ManualForwardPace  = robot.Pace{Speed: 600, Acceleration: 600}
	ManualBackwardPace = robot.Pace{Speed: 600, Acceleration: 500}
)

// Command is one motion primitive. A non-zero Pace is applied to the
// involved motors before the command is issued. Duration is only used by
// timed kinds.
type Command struct {
	Kind     Kind
	Pace     robot.Pace
	Duration time.Duration
}

func (c Command) String() string {
	s := c.Kind.String()
	if c.Kind.Timed() && c.Kind != KindLift && c.Kind != KindDrop {
		s = fmt.Sprintf("%s(%dms)", s, c.Duration.Milliseconds())
	}
	if !c.Pace.IsZero() {
		s += "@" + c.Pace.String()
	}
	return s
}

// Stop halts both traction motors together.
func Stop() Command {
	return Command{Kind: KindStop}
}

// Forward starts both traction motors forward; it does not block.
func Forward(pace robot.Pace) Command {
	return Command{Kind: KindForward, Pace: pace}
}

// Backward runs both traction motors backward for d.
func Backward(d time.Duration) Command {
	return Command{Kind: KindBackward, Duration: d}
}

// BackwardAt is Backward with a pace change first.
func BackwardAt(d time.Duration, pace robot.Pace) Command {
	return Command{Kind: KindBackward, Duration: d, Pace: pace}
}

// Turn pivots toward side for d by driving only the outer motor.
func Turn(side robot.Side, d time.Duration) Command {
	if side == robot.Right {
		return Command{Kind: KindTurnRight, Duration: d}
	}
	return Command{Kind: KindTurnLeft, Duration: d}
}

// Lift raises the arm and grips the payload.
func Lift(pace robot.Pace) Command {
	return Command{Kind: KindLift, Pace: pace, Duration: ArmStroke}
}

// Drop lowers the arm and releases the payload.
func Drop() Command {
	return Command{Kind: KindDrop, Duration: ArmStroke}
}

// Kinds returns the kinds of cmds in order.
func Kinds(cmds []Command) []Kind {
	out := make([]Kind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}
