package robot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Link is the line protocol spoken by the motor/sensor controller board.
//
// Requests are single lines, every request gets exactly one reply line:
//
//	D <left> <right> <sync>   drive traction motors      -> ok | err <msg>
//	A <dir>                   drive arm motor            -> ok | err <msg>
//	P <motor> <speed> <acc>   configure a motor          -> ok | err <msg>
//	T <side>                  touch sensor               -> 1 | 0 | err <msg>
//	U                         IR distance sample         -> <float> | err <msg>
//	I <channel>               IR remote button code      -> <int> | err <msg>
//
// Directions are k(eep), s(top), f(orward) and b(ackward); motors and sides
// are l, r and a.
type Link struct {
	mu     sync.Mutex
	rw     io.ReadWriter
	closer io.Closer
	in     *bufio.Reader
	out    *bufio.Writer

	// last drive command, used to skip repeats
	driveCache map[MotorID]Direction
}

// OpenLink opens the serial port and waits for the board to report ready.
func OpenLink(port string, baud int) (*Link, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", port, err)
	}
	if err := p.SetReadTimeout(2 * time.Second); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	l := NewLink(p)
	l.closer = p
	if err := l.handshake(); err != nil {
		p.Close()
		return nil, err
	}
	return l, nil
}

// NewLink wraps an already open stream. No handshake is performed.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{
		rw:         rw,
		in:         bufio.NewReader(rw),
		out:        bufio.NewWriter(rw),
		driveCache: make(map[MotorID]Direction),
	}
}

// Close closes the underlying port, if the link owns one.
func (l *Link) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Link) handshake() error {
	ln, err := l.in.ReadString('\n')
	if err != nil {
		return fmt.Errorf("wait for ready: %w", err)
	}
	if ln = strings.TrimSpace(ln); ln != "ready" {
		return fmt.Errorf("expected 'ready' but got %q", ln)
	}
	return nil
}

// request sends one line and returns the reply without the newline.
func (l *Link) request(format string, args ...any) (string, error) {
	if _, err := fmt.Fprintf(l.out, format+"\n", args...); err != nil {
		return "", err
	}
	if err := l.out.Flush(); err != nil {
		return "", err
	}
	ln, err := l.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ln), nil
}

// command sends a motor request that must be acknowledged with "ok".
func (l *Link) command(op string, format string, args ...any) error {
	reply, err := l.request(format, args...)
	if err != nil {
		return &DeviceError{Op: op, Err: fmt.Errorf("%w: %v", ErrMotorCommandRejected, err)}
	}
	if reply != "ok" {
		return &DeviceError{Op: op, Err: fmt.Errorf("%w: %s", ErrMotorCommandRejected, reply)}
	}
	return nil
}

// query sends a sensor request and returns the reply.
func (l *Link) query(op string, format string, args ...any) (string, error) {
	reply, err := l.request(format, args...)
	if err != nil {
		return "", &DeviceError{Op: op, Err: fmt.Errorf("%w: %v", ErrSensorUnavailable, err)}
	}
	if strings.HasPrefix(reply, "err") {
		return "", &DeviceError{Op: op, Err: fmt.Errorf("%w: %s", ErrSensorUnavailable, reply)}
	}
	return reply, nil
}

func dirCode(d Direction) string {
	switch d {
	case Stop:
		return "s"
	case Forward:
		return "f"
	case Backward:
		return "b"
	default:
		return "k"
	}
}

func sideCode(s Side) string {
	if s == Right {
		return "r"
	}
	return "l"
}

func motorCode(id MotorID) (string, error) {
	switch id {
	case LeftMotor:
		return "l", nil
	case RightMotor:
		return "r", nil
	case ArmMotor:
		return "a", nil
	default:
		return "", fmt.Errorf("unknown motor %q", id)
	}
}

// ReadEdge implements Device.
func (l *Link) ReadEdge(ctx context.Context, side Side) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	op := "read edge " + side.String()
	reply, err := l.query(op, "T %s", sideCode(side))
	if err != nil {
		return false, err
	}
	switch reply {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, &DeviceError{Op: op, Err: fmt.Errorf("%w: unexpected reply %q", ErrSensorUnavailable, reply)}
	}
}

// ReadDistance implements Device.
func (l *Link) ReadDistance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	reply, err := l.query("read distance", "U")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, &DeviceError{Op: "read distance", Err: fmt.Errorf("%w: %v", ErrSensorUnavailable, err)}
	}
	return v, nil
}

// ReadRemote returns the button code currently pressed on an IR remote
// channel (0-based), or 0 when nothing is pressed.
func (l *Link) ReadRemote(ctx context.Context, channel int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	op := fmt.Sprintf("read remote %d", channel)
	reply, err := l.query(op, "I %d", channel)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(reply)
	if err != nil {
		return 0, &DeviceError{Op: op, Err: fmt.Errorf("%w: %v", ErrSensorUnavailable, err)}
	}
	return code, nil
}

// Drive implements Device. A repeat of the last command is not sent again.
func (l *Link) Drive(ctx context.Context, left, right Direction, sync bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if left == Keep {
		left = l.driveCache[LeftMotor]
	}
	if right == Keep {
		right = l.driveCache[RightMotor]
	}
	lc, lok := l.driveCache[LeftMotor]
	rc, rok := l.driveCache[RightMotor]
	if lok && rok && lc == left && rc == right {
		return nil
	}

	s := 0
	if sync {
		s = 1
	}
	if err := l.command("drive", "D %s %s %d", dirCode(left), dirCode(right), s); err != nil {
		// state on the board is unknown now
		delete(l.driveCache, LeftMotor)
		delete(l.driveCache, RightMotor)
		return err
	}
	if left != Keep {
		l.driveCache[LeftMotor] = left
	}
	if right != Keep {
		l.driveCache[RightMotor] = right
	}
	return nil
}

// DriveArm implements Device for boards that carry the arm motor.
func (l *Link) DriveArm(ctx context.Context, dir Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir == Keep {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.command("drive arm", "A %s", dirCode(dir))
}

// Configure implements Device.
func (l *Link) Configure(ctx context.Context, id MotorID, pace Pace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pace.Validate(); err != nil {
		return &DeviceError{Op: "configure " + string(id), Err: err}
	}
	code, err := motorCode(id)
	if err != nil {
		return &DeviceError{Op: "configure", Err: fmt.Errorf("%w: %v", ErrMotorCommandRejected, err)}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.command("configure "+string(id), "P %s %d %d", code, pace.Speed, pace.Acceleration)
}

// Wait implements Device.
func (l *Link) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}
