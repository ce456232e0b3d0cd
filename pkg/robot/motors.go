// Package robot provides the device abstraction for the fetch robot: two
// touch sensors that detect table edges, an IR distance sensor, two traction
// motors and one arm motor.
package robot

import "fmt"

// MotorID identifies a motor on the robot.
type MotorID string

// Motor ids.
const (
	LeftMotor  MotorID = "left"
	RightMotor MotorID = "right"
	ArmMotor   MotorID = "arm"
)

// AllMotors returns all motor ids in order (matching link ports A-C).
func AllMotors() []MotorID {
	return []MotorID{
		LeftMotor,
		RightMotor,
		ArmMotor,
	}
}

// Side is the left or right side of the robot.
type Side int

const (
	Left Side = iota + 1
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// ParseSide converts "left" or "right" into a Side.
func ParseSide(value string) (Side, error) {
	switch value {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown side %q", value)
	}
}

// Direction is what a motor is told to do.
type Direction int

const (
	// Keep leaves the motor in whatever state it is in.
	Keep Direction = iota
	Stop
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Keep:
		return "keep"
	case Stop:
		return "stop"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Pace is a motor speed and acceleration in device units.
type Pace struct {
	Speed        int `json:"speed" yaml:"speed"`
	Acceleration int `json:"acceleration" yaml:"acceleration"`
}

// IsZero reports whether the pace is unset.
func (p Pace) IsZero() bool {
	return p.Speed == 0 && p.Acceleration == 0
}

// Validate returns ErrInvalidPace for negative values.
// Upper bounds are left to the device.
func (p Pace) Validate() error {
	if p.Speed < 0 || p.Acceleration < 0 {
		return fmt.Errorf("%w: speed=%d acceleration=%d", ErrInvalidPace, p.Speed, p.Acceleration)
	}
	return nil
}

func (p Pace) String() string {
	return fmt.Sprintf("%d/%d", p.Speed, p.Acceleration)
}
