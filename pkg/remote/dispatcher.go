package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/fetchbot/pkg/autopilot"
	"github.com/gwillem/fetchbot/pkg/motion"
	"github.com/gwillem/fetchbot/pkg/robot"
)

// Config holds configuration for the dispatcher.
type Config struct {
	Hz     int
	Logger *slog.Logger
}

// Dispatcher polls a receiver and turns remote codes into motor commands or
// autopilot sessions.
type Dispatcher struct {
	rx    Receiver
	exec  *motion.Executor
	pilot *autopilot.Runner
	lock  *ModeLock
	hz    int
	log   *slog.Logger

	mu       sync.Mutex
	running  bool
	last     Command
	sessions sync.WaitGroup
	results  chan autopilot.Result
}

// NewDispatcher creates a dispatcher that drives dev for manual codes and
// hands it to pilot for autopilot codes.
func NewDispatcher(dev robot.Device, rx Receiver, pilot *autopilot.Runner, cfg Config) *Dispatcher {
	if cfg.Hz <= 0 {
		cfg.Hz = 20
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	exec := motion.NewExecutor(dev, log)
	return &Dispatcher{
		rx:      rx,
		exec:    exec,
		pilot:   pilot,
		lock:    NewModeLock(exec.StopAll),
		hz:      cfg.Hz,
		log:     log,
		results: make(chan autopilot.Result, 1),
	}
}

// Hz returns the polling frequency.
func (d *Dispatcher) Hz() int {
	return d.hz
}

// Mode returns who holds the motors.
func (d *Dispatcher) Mode() Mode {
	return d.lock.Mode()
}

// Results returns a channel that receives the result of each autopilot
// session. Only the latest unread result is kept.
func (d *Dispatcher) Results() <-chan autopilot.Result {
	return d.results
}

// Start runs the polling loop until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("already running")
	}
	d.running = true
	d.mu.Unlock()

	d.log.Info("dispatcher started", "hz", d.hz)

	ticker := time.NewTicker(time.Second / time.Duration(d.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return ctx.Err()
		case <-ticker.C:
			if err := d.Poll(ctx); err != nil && ctx.Err() == nil {
				d.log.Error("dispatch failed", "err", err)
			}
		}
	}
}

// Poll reads both remote channels once and acts on the reading.
func (d *Dispatcher) Poll(ctx context.Context) error {
	manual, err := d.rx.ReadRemote(ctx, ManualChannel)
	if err != nil {
		return fmt.Errorf("read remote: %w", err)
	}
	auto, err := d.rx.ReadRemote(ctx, AutopilotChannel)
	if err != nil {
		return fmt.Errorf("read remote: %w", err)
	}
	cmd, ok := Decode(manual, auto)
	if !ok {
		return nil
	}
	return d.Apply(ctx, cmd)
}

// Apply executes one decoded command. Manual commands are ignored while the
// autopilot holds the motors; an autopilot command blocks until the session
// ends.
func (d *Dispatcher) Apply(ctx context.Context, cmd Command) error {
	switch {
	case cmd.Action == ActionUnknown:
		d.log.Warn(string(autopilot.NoteUnrecognized), "channel", cmd.Channel, "code", cmd.Code)
		return nil

	case cmd.Action == ActionAutopilot:
		_, err := d.RunAutopilot(ctx, cmd.Dodge)
		if errors.Is(err, ErrModeBusy) {
			d.log.Debug("autopilot already running")
			return nil
		}
		return err

	case !cmd.Manual():
		return fmt.Errorf("unknown action %v", cmd.Action)
	}

	err := d.lock.Do(ctx, ModeManual, func(ctx context.Context) error {
		d.mu.Lock()
		changed := cmd.Action != d.last.Action
		d.last = cmd
		d.mu.Unlock()

		if changed {
			d.log.Info("manual", "cmd", cmd.String())
		}
		return d.drive(ctx, cmd, changed)
	})
	if errors.Is(err, ErrModeBusy) {
		return nil
	}
	return err
}

func (d *Dispatcher) drive(ctx context.Context, cmd Command, changed bool) error {
	pace := func(p robot.Pace) error {
		if !changed {
			return nil
		}
		return d.exec.SetDrivePace(ctx, p)
	}

	switch cmd.Action {
	case ActionStop:
		return d.exec.StopAll(ctx)
	case ActionLeft, ActionRight:
		if err := pace(motion.ManualTurnPace); err != nil {
			return err
		}
		side := robot.Left
		if cmd.Action == ActionRight {
			side = robot.Right
		}
		return d.exec.Pivot(ctx, side)
	case ActionForward:
		if err := pace(motion.ManualForwardPace); err != nil {
			return err
		}
		return d.exec.DriveForward(ctx)
	case ActionBackward:
		if err := pace(motion.ManualBackwardPace); err != nil {
			return err
		}
		return d.exec.Reverse(ctx)
	}
	return nil
}

// RunAutopilot takes the motors from manual control and runs one session.
// It returns ErrModeBusy when a session is already running.
func (d *Dispatcher) RunAutopilot(ctx context.Context, dodge robot.Side) (autopilot.Result, error) {
	if err := d.lock.Acquire(ctx, ModeAutopilot); err != nil {
		return autopilot.Result{}, err
	}
	defer d.lock.Release(ModeAutopilot)
	return d.session(ctx, dodge)
}

// StartAutopilot is RunAutopilot in the background. ctx bounds the session
// and must outlive the caller when the caller is a request handler.
func (d *Dispatcher) StartAutopilot(ctx context.Context, dodge robot.Side) error {
	if err := d.lock.Acquire(ctx, ModeAutopilot); err != nil {
		return err
	}
	d.sessions.Add(1)
	go func() {
		defer d.sessions.Done()
		defer d.lock.Release(ModeAutopilot)
		if _, err := d.session(ctx, dodge); err != nil {
			d.log.Error("autopilot session failed", "err", err)
		}
	}()
	return nil
}

// CancelAutopilot stops a running session; the session halts the motors.
func (d *Dispatcher) CancelAutopilot() {
	d.pilot.Cancel()
}

func (d *Dispatcher) session(ctx context.Context, dodge robot.Side) (autopilot.Result, error) {
	// the autopilot changes paces; the next manual command sets its own
	d.mu.Lock()
	d.last = Command{}
	d.mu.Unlock()

	res, err := d.pilot.Run(ctx, dodge)
	d.sendResult(res)
	return res, err
}

func (d *Dispatcher) sendResult(res autopilot.Result) {
	select {
	case d.results <- res:
	default:
		// replace the unread result
		select {
		case <-d.results:
		default:
		}
		select {
		case d.results <- res:
		default:
		}
	}
}

func (d *Dispatcher) shutdown() {
	d.pilot.Cancel()
	d.sessions.Wait()

	if err := d.exec.Halt(); err != nil {
		d.log.Warn("failed to stop motors", "err", err)
	}
	d.lock.Release(ModeManual)

	d.mu.Lock()
	d.running = false
	d.last = Command{}
	d.mu.Unlock()
	d.log.Info("dispatcher stopped")
}
