package robot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rig is the real robot: the controller board link plus an optional Feetech
// arm. Without an arm servo the arm motor is driven through the link.
type Rig struct {
	link *Link
	arm  *Arm
}

var _ Device = (*Rig)(nil)

// OpenRig connects to the hardware described by cfg.
func OpenRig(ctx context.Context, cfg *Config) (*Rig, error) {
	if cfg.Link.Port == "" {
		return nil, errors.New("link.port is not configured")
	}
	link, err := OpenLink(cfg.Link.Port, cfg.Link.BaudRate)
	if err != nil {
		return nil, err
	}

	rig := &Rig{link: link}
	if cfg.Arm.Port != "" {
		if !cfg.Arm.IsCalibrated() {
			link.Close()
			return nil, fmt.Errorf("arm on %s has no calibration range", cfg.Arm.Port)
		}
		arm, err := NewArm(ctx, cfg.Arm.Port, cfg.Arm.Calibration)
		if err != nil {
			link.Close()
			return nil, fmt.Errorf("create arm: %w", err)
		}
		rig.arm = arm
	}
	return rig, nil
}

// Link returns the controller board link.
func (r *Rig) Link() *Link {
	return r.link
}

// ReadRemote reads the IR remote through the link.
func (r *Rig) ReadRemote(ctx context.Context, channel int) (int, error) {
	return r.link.ReadRemote(ctx, channel)
}

// Close stops the motors and releases both buses.
func (r *Rig) Close() error {
	ctx := context.Background()
	var errs []error
	if err := r.link.Drive(ctx, Stop, Stop, true); err != nil {
		errs = append(errs, err)
	}
	if r.arm != nil {
		if err := r.arm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.link.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (r *Rig) ReadEdge(ctx context.Context, side Side) (bool, error) {
	return r.link.ReadEdge(ctx, side)
}

func (r *Rig) ReadDistance(ctx context.Context) (float64, error) {
	return r.link.ReadDistance(ctx)
}

func (r *Rig) Drive(ctx context.Context, left, right Direction, sync bool) error {
	return r.link.Drive(ctx, left, right, sync)
}

func (r *Rig) DriveArm(ctx context.Context, dir Direction) error {
	if r.arm != nil {
		return r.arm.Drive(ctx, dir)
	}
	return r.link.DriveArm(ctx, dir)
}

func (r *Rig) Configure(ctx context.Context, id MotorID, pace Pace) error {
	if id == ArmMotor && r.arm != nil {
		return r.arm.Configure(pace)
	}
	return r.link.Configure(ctx, id, pace)
}

func (r *Rig) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}
