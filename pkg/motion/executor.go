package motion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/fetchbot/pkg/robot"
)

// Executor runs motion primitives on a device. It is the only part of the
// autopilot that blocks or touches hardware.
type Executor struct {
	dev robot.Device
	log *slog.Logger
}

// NewExecutor creates an executor for dev. A nil logger uses slog.Default.
func NewExecutor(dev robot.Device, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{dev: dev, log: log}
}

// Device returns the device the executor drives.
func (e *Executor) Device() robot.Device {
	return e.dev
}

// Execute runs cmds in order and stops at the first error.
func (e *Executor) Execute(ctx context.Context, cmds ...Command) error {
	for _, c := range cmds {
		if err := e.Run(ctx, c); err != nil {
			return fmt.Errorf("%s: %w", c, err)
		}
	}
	return nil
}

// Run executes a single command.
func (e *Executor) Run(ctx context.Context, c Command) error {
	switch c.Kind {
	case KindStop:
		return e.StopAll(ctx)
	case KindForward:
		if err := e.paceDrive(ctx, c.Pace); err != nil {
			return err
		}
		return e.DriveForward(ctx)
	case KindBackward:
		if err := e.paceDrive(ctx, c.Pace); err != nil {
			return err
		}
		return e.DriveBackward(ctx, c.Duration)
	case KindTurnLeft:
		if err := e.paceDrive(ctx, c.Pace); err != nil {
			return err
		}
		return e.TurnLeft(ctx, c.Duration)
	case KindTurnRight:
		if err := e.paceDrive(ctx, c.Pace); err != nil {
			return err
		}
		return e.TurnRight(ctx, c.Duration)
	case KindLift:
		if !c.Pace.IsZero() {
			if err := e.SetArmPace(ctx, c.Pace); err != nil {
				return err
			}
		}
		return e.Lift(ctx)
	case KindDrop:
		if !c.Pace.IsZero() {
			if err := e.SetArmPace(ctx, c.Pace); err != nil {
				return err
			}
		}
		return e.Drop(ctx)
	default:
		return fmt.Errorf("unknown command kind %v", c.Kind)
	}
}

func (e *Executor) paceDrive(ctx context.Context, p robot.Pace) error {
	if p.IsZero() {
		return nil
	}
	return e.SetDrivePace(ctx, p)
}

// SetDrivePace configures both traction motors.
func (e *Executor) SetDrivePace(ctx context.Context, p robot.Pace) error {
	if err := e.dev.Configure(ctx, robot.LeftMotor, p); err != nil {
		return err
	}
	return e.dev.Configure(ctx, robot.RightMotor, p)
}

// SetArmPace configures the arm motor.
func (e *Executor) SetArmPace(ctx context.Context, p robot.Pace) error {
	return e.dev.Configure(ctx, robot.ArmMotor, p)
}

// DriveForward starts both traction motors forward as a synchronized pair.
func (e *Executor) DriveForward(ctx context.Context) error {
	return e.dev.Drive(ctx, robot.Forward, robot.Forward, true)
}

// Reverse starts both traction motors backward as a synchronized pair; it
// does not block.
func (e *Executor) Reverse(ctx context.Context) error {
	return e.dev.Drive(ctx, robot.Backward, robot.Backward, true)
}

// DriveBackward reverses both traction motors and blocks for d. The motors
// keep running afterwards.
func (e *Executor) DriveBackward(ctx context.Context, d time.Duration) error {
	if err := e.Reverse(ctx); err != nil {
		return err
	}
	e.log.Debug("reversing", "duration", d)
	return e.wait(ctx, d)
}

// StopAll stops both traction motors as a synchronized pair.
func (e *Executor) StopAll(ctx context.Context) error {
	e.log.Debug("stopping")
	return e.dev.Drive(ctx, robot.Stop, robot.Stop, true)
}

// Halt stops every motor, including the arm. It takes no context so it can
// be used on the way out of a cancelled session.
func (e *Executor) Halt() error {
	ctx := context.Background()
	if err := e.dev.Drive(ctx, robot.Stop, robot.Stop, true); err != nil {
		return err
	}
	return e.dev.DriveArm(ctx, robot.Stop)
}

// Pivot starts the outer motor for a turn toward side and leaves the other
// motor as it is.
func (e *Executor) Pivot(ctx context.Context, side robot.Side) error {
	if side == robot.Right {
		return e.dev.Drive(ctx, robot.Forward, robot.Keep, false)
	}
	return e.dev.Drive(ctx, robot.Keep, robot.Forward, false)
}

// TurnLeft drives only the right motor forward for d.
func (e *Executor) TurnLeft(ctx context.Context, d time.Duration) error {
	if err := e.Pivot(ctx, robot.Left); err != nil {
		return err
	}
	e.log.Debug("turning", "side", robot.Left, "duration", d)
	return e.wait(ctx, d)
}

// TurnRight drives only the left motor forward for d.
func (e *Executor) TurnRight(ctx context.Context, d time.Duration) error {
	if err := e.Pivot(ctx, robot.Right); err != nil {
		return err
	}
	e.log.Debug("turning", "side", robot.Right, "duration", d)
	return e.wait(ctx, d)
}

// Lift raises the arm for one stroke and stops it.
func (e *Executor) Lift(ctx context.Context) error {
	return e.stroke(ctx, robot.Backward)
}

// Drop lowers the arm for one stroke and stops it.
func (e *Executor) Drop(ctx context.Context) error {
	e.log.Info("dropping payload")
	return e.stroke(ctx, robot.Forward)
}

func (e *Executor) stroke(ctx context.Context, dir robot.Direction) error {
	if err := e.dev.DriveArm(ctx, dir); err != nil {
		return err
	}
	if err := e.wait(ctx, ArmStroke); err != nil {
		return err
	}
	return e.dev.DriveArm(ctx, robot.Stop)
}

// wait blocks for d; cancellation is checked before and after.
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.dev.Wait(ctx, d); err != nil {
		return err
	}
	return ctx.Err()
}
