package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/fetchbot/pkg/robot"
)

// Call is one journaled device call.
type Call struct {
	At       time.Duration
	Op       string
	Left     robot.Direction
	Right    robot.Direction
	Sync     bool
	Motor    robot.MotorID
	Pace     robot.Pace
	Duration time.Duration
}

func (c Call) String() string {
	switch c.Op {
	case "drive":
		s := fmt.Sprintf("drive %s/%s", c.Left, c.Right)
		if c.Sync {
			s += " sync"
		}
		return s
	case "arm":
		return "arm " + c.Left.String()
	case "configure":
		return fmt.Sprintf("configure %s %s", c.Motor, c.Pace)
	case "wait":
		return fmt.Sprintf("wait %dms", c.Duration.Milliseconds())
	default:
		return c.Op
	}
}

// MotorState is the simulated state of all motors.
type MotorState struct {
	Left, Right, Arm robot.Direction
	Paces            map[robot.MotorID]robot.Pace
}

// Device is a simulated robot.
//
// Sensor frames advance on every left edge read, so one sample of the
// autopilot (left, right, distance) sees one frame. After the last frame
// the device keeps reporting it.
type Device struct {
	mu      sync.Mutex
	frames  []Frame
	pos     int
	clock   time.Duration
	motors  MotorState
	journal []Call
	changes int
}

var _ robot.Device = (*Device)(nil)

// New creates a device that replays frames.
func New(frames ...Frame) *Device {
	sc := &Scenario{Steps: frames}
	return FromScenario(sc)
}

// FromScenario creates a device that replays a scenario.
func FromScenario(sc *Scenario) *Device {
	return &Device{
		frames: sc.frames(),
		pos:    -1,
		motors: MotorState{
			Left:  robot.Stop,
			Right: robot.Stop,
			Arm:   robot.Stop,
			Paces: make(map[robot.MotorID]robot.Pace),
		},
	}
}

func (d *Device) frame() Frame {
	if len(d.frames) == 0 {
		return Frame{}
	}
	i := d.pos
	if i < 0 {
		i = 0
	}
	if i >= len(d.frames) {
		i = len(d.frames) - 1
	}
	return d.frames[i]
}

// Exhausted reports whether every frame has been sampled.
func (d *Device) Exhausted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos >= len(d.frames)-1
}

// Samples returns how many samples have started.
func (d *Device) Samples() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos + 1
}

// Clock returns the virtual time spent in waits.
func (d *Device) Clock() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock
}

// Motors returns a copy of the motor state.
func (d *Device) Motors() MotorState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.motors
	st.Paces = make(map[robot.MotorID]robot.Pace, len(d.motors.Paces))
	for k, v := range d.motors.Paces {
		st.Paces[k] = v
	}
	return st
}

// Changes returns how many calls changed motor state.
func (d *Device) Changes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changes
}

// Journal returns a copy of all calls so far.
func (d *Device) Journal() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.journal...)
}

// Transcript renders the journal one call per line.
func (d *Device) Transcript() string {
	var sb strings.Builder
	for _, c := range d.Journal() {
		fmt.Fprintf(&sb, "%6dms  %s\n", c.At.Milliseconds(), c)
	}
	return sb.String()
}

func (d *Device) record(c Call) {
	c.At = d.clock
	d.journal = append(d.journal, c)
}

func (d *Device) ReadEdge(ctx context.Context, side robot.Side) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if side == robot.Left {
		d.pos++
	}
	f := d.frame()
	if f.Fault == SensorFault {
		return false, &robot.DeviceError{Op: "read edge " + side.String(), Err: robot.ErrSensorUnavailable}
	}
	if side == robot.Left {
		return f.Left, nil
	}
	return f.Right, nil
}

func (d *Device) ReadDistance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f := d.frame()
	if f.Fault == SensorFault {
		return 0, &robot.DeviceError{Op: "read distance", Err: robot.ErrSensorUnavailable}
	}
	return f.Distance, nil
}

func (d *Device) motorFault(op string) error {
	if d.frame().Fault == MotorFault {
		return &robot.DeviceError{Op: op, Err: robot.ErrMotorCommandRejected}
	}
	return nil
}

func (d *Device) Drive(ctx context.Context, left, right robot.Direction, sync bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.motorFault("drive"); err != nil {
		return err
	}
	d.record(Call{Op: "drive", Left: left, Right: right, Sync: sync})

	changed := false
	if left != robot.Keep && left != d.motors.Left {
		d.motors.Left = left
		changed = true
	}
	if right != robot.Keep && right != d.motors.Right {
		d.motors.Right = right
		changed = true
	}
	if changed {
		d.changes++
	}
	return nil
}

func (d *Device) DriveArm(ctx context.Context, dir robot.Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.motorFault("drive arm"); err != nil {
		return err
	}
	d.record(Call{Op: "arm", Left: dir})
	if dir != robot.Keep && dir != d.motors.Arm {
		d.motors.Arm = dir
		d.changes++
	}
	return nil
}

func (d *Device) Configure(ctx context.Context, id robot.MotorID, pace robot.Pace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pace.Validate(); err != nil {
		return &robot.DeviceError{Op: "configure " + string(id), Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.motorFault("configure " + string(id)); err != nil {
		return err
	}
	d.record(Call{Op: "configure", Motor: id, Pace: pace})
	if d.motors.Paces[id] != pace {
		d.motors.Paces[id] = pace
		d.changes++
	}
	return nil
}

// Wait advances the virtual clock without sleeping.
func (d *Device) Wait(ctx context.Context, dur time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: "wait", Duration: dur})
	d.clock += dur
	return nil
}
