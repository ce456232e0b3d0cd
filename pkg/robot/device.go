package robot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Device errors. Every device error ends an autopilot session.
var (
	ErrSensorUnavailable    = errors.New("sensor unavailable")
	ErrMotorCommandRejected = errors.New("motor command rejected")
	ErrInvalidPace          = errors.New("invalid pace")
)

// DeviceError records the device operation that failed.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Device is the capability contract of the robot hardware.
type Device interface {
	// ReadEdge returns true while the touch sensor on side is pressed,
	// i.e. the robot is still over the table.
	ReadEdge(ctx context.Context, side Side) (bool, error)

	// ReadDistance returns one raw sample of the IR distance sensor.
	ReadDistance(ctx context.Context) (float64, error)

	// Drive commands both traction motors. With sync set the two
	// commands take effect together.
	Drive(ctx context.Context, left, right Direction, sync bool) error

	// DriveArm commands the arm motor.
	DriveArm(ctx context.Context, dir Direction) error

	// Configure sets speed and acceleration of one motor.
	Configure(ctx context.Context, id MotorID, pace Pace) error

	// Wait blocks for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error
}

// Sleep is a Wait implementation for real hardware.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
