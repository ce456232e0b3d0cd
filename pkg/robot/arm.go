package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// defaultArmTravel is how long a full lift or drop takes when no arm pace
// has been configured.
const defaultArmTravel = 1500 * time.Millisecond

// Arm drives the gripper arm on a Feetech servo bus.
//
// The servo is position controlled: Backward moves it to the raised end of
// the calibrated range, Forward to the lowered end, Stop holds the current
// position.
type Arm struct {
	bus         *feetech.Bus
	servo       *feetech.Servo
	calibration MotorCalibration

	mu     sync.Mutex
	travel time.Duration
}

func openBus(port string) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}
	return bus, nil
}

// ProbeServos lists the Feetech servos with ids in [minID, maxID] that
// answer on port.
func ProbeServos(ctx context.Context, port string, minID, maxID int) ([]feetech.FoundServo, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()
	return bus.Scan(ctx, minID, maxID)
}

// OpenServo connects to servo id on port with torque disabled, so the arm
// can be moved by hand. The caller closes the bus.
func OpenServo(ctx context.Context, port string, id int) (*feetech.Bus, *feetech.Servo, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, nil, err
	}
	found, err := bus.Scan(ctx, id, id)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("scan servo %d: %w", id, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, nil, fmt.Errorf("servo %d not found on %s", id, port)
	}
	servo := feetech.NewServo(bus, found[0].ID, found[0].Model)
	if err := servo.Disable(ctx); err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("disable servo %d: %w", id, err)
	}
	return bus, servo, nil
}

// NewArm creates and initializes an arm connection.
func NewArm(ctx context.Context, port string, cal MotorCalibration) (*Arm, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, err
	}

	found, err := bus.Scan(ctx, cal.ID, cal.ID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan arm servo: %w", err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("arm servo %d not found on %s", cal.ID, port)
	}

	servo := feetech.NewServo(bus, found[0].ID, found[0].Model)
	if err := servo.Enable(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable arm servo: %w", err)
	}

	return &Arm{
		bus:         bus,
		servo:       servo,
		calibration: cal,
		travel:      defaultArmTravel,
	}, nil
}

// Close disables torque and closes the arm's bus connection.
func (a *Arm) Close() error {
	_ = a.servo.Disable(context.Background())
	return a.bus.Close()
}

// Position reads the arm position normalized to [-100, 100].
func (a *Arm) Position(ctx context.Context) (float64, error) {
	raw, err := a.servo.Position(ctx)
	if err != nil {
		return 0, &DeviceError{Op: "read arm", Err: fmt.Errorf("%w: %v", ErrSensorUnavailable, err)}
	}
	return a.calibration.Normalize(raw), nil
}

// Drive moves the arm toward one end of its range, or holds it on Stop.
func (a *Arm) Drive(ctx context.Context, dir Direction) error {
	a.mu.Lock()
	travel := a.travel
	a.mu.Unlock()

	var target int
	switch dir {
	case Keep:
		return nil
	case Backward:
		target = a.calibration.Raised()
	case Forward:
		target = a.calibration.Lowered()
	case Stop:
		raw, err := a.servo.Position(ctx)
		if err != nil {
			return &DeviceError{Op: "stop arm", Err: fmt.Errorf("%w: %v", ErrMotorCommandRejected, err)}
		}
		target, travel = raw, 0
	default:
		return &DeviceError{Op: "drive arm", Err: fmt.Errorf("%w: direction %v", ErrMotorCommandRejected, dir)}
	}

	if err := a.servo.SetPositionWithTime(ctx, target, int(travel/time.Millisecond)); err != nil {
		return &DeviceError{Op: "drive arm " + dir.String(), Err: fmt.Errorf("%w: %v", ErrMotorCommandRejected, err)}
	}
	return nil
}

// Configure derives the travel time for a full stroke from pace.Speed,
// read as servo steps per second.
func (a *Arm) Configure(pace Pace) error {
	if err := pace.Validate(); err != nil {
		return &DeviceError{Op: "configure arm", Err: err}
	}
	travel := defaultArmTravel
	if pace.Speed > 0 {
		travel = time.Duration(a.calibration.Span()) * time.Second / time.Duration(pace.Speed)
	}
	a.mu.Lock()
	a.travel = travel
	a.mu.Unlock()
	return nil
}
