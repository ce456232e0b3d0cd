package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/fetchbot/pkg/motion"
	"github.com/gwillem/fetchbot/pkg/robot"
)

var (
	// ErrRunning is returned when a session is started while one is active.
	ErrRunning = errors.New("autopilot already running")
	// ErrStepLimit is returned when a session exceeds Config.MaxSteps.
	ErrStepLimit = errors.New("autopilot step limit reached")
)

// Outcome is how a session ended.
type Outcome int

const (
	// Delivered means the payload was dropped.
	Delivered Outcome = iota + 1
	// Cancelled means the session was stopped from outside.
	Cancelled
	// Failed means a device error ended the session.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StepEvent describes one executed transition.
type StepEvent struct {
	Session  uuid.UUID
	Step     int
	From     State
	To       State
	Snapshot Snapshot
	Commands []motion.Command
	Note     Note
	At       time.Time
}

// Result describes a finished session.
type Result struct {
	Session uuid.UUID
	Dodge   robot.Side
	Outcome Outcome
	// Last is the final state, always Done: failures and cancellations end
	// the session too.
	Last State
	// Interrupted is the state a cancelled or failed session was in when it
	// stopped; unset after a delivery.
	Interrupted State
	Steps       int
	Duration    time.Duration
	Err         error
}

// Observer receives session progress. Calls are made from the runner's
// goroutine and must not block.
type Observer interface {
	SessionStarted(id uuid.UUID, dodge robot.Side)
	Stepped(ev StepEvent)
	SessionEnded(res Result)
}

// Config holds runner settings. Zero values use defaults.
type Config struct {
	Threshold float64
	Window    int
	// Interval is the pause between polling cycles that issued no timed
	// command. Zero polls back to back.
	Interval time.Duration
	// MaxSteps bounds a session; zero means unbounded.
	MaxSteps int
	Logger   *slog.Logger
	Observer Observer
}

// Runner runs autopilot sessions on a device, one at a time.
type Runner struct {
	dev      robot.Device
	exec     *motion.Executor
	detector ObstacleDetector
	cfg      Config
	log      *slog.Logger

	active atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	state   State
}

// NewRunner creates a runner for dev.
func NewRunner(dev robot.Device, cfg Config) *Runner {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		dev:      dev,
		exec:     motion.NewExecutor(dev, log),
		detector: ObstacleDetector{Threshold: cfg.Threshold},
		cfg:      cfg,
		log:      log,
	}
}

// Active reports whether a session currently holds the motors.
func (r *Runner) Active() bool {
	return r.active.Load()
}

// State returns the state of the running session, or Done when idle.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return Done
	}
	return r.state
}

// Cancel asks the running session to stop. The session stops all motors
// and returns at the next polling boundary; a timed maneuver in progress is
// cut short.
func (r *Runner) Cancel() {
	r.active.Store(false)
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes one session and blocks until it ends. A cancelled session
// is not an error.
func (r *Runner) Run(ctx context.Context, dodge robot.Side) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Result{}, ErrRunning
	}
	r.running = true
	r.cancel = cancel
	r.state = Patrolling
	r.mu.Unlock()
	r.active.Store(true)

	defer func() {
		r.active.Store(false)
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	sess := NewSession(dodge, r.cfg.Window)
	log := r.log.With("session", sess.ID.String())
	log.Info("autopilot started", "dodge", dodge)
	if r.cfg.Observer != nil {
		r.cfg.Observer.SessionStarted(sess.ID, dodge)
	}

	res, err := r.loop(ctx, sess, log)
	res.Session = sess.ID
	res.Dodge = dodge
	res.Duration = time.Since(sess.Started)

	// every exit path leaves the motors stopped
	if herr := r.exec.Halt(); herr != nil {
		log.Error("failed to stop motors", "err", herr)
		if err == nil {
			err = fmt.Errorf("stop motors: %w", herr)
			res.Outcome = Failed
		}
	}
	res.Err = err
	if res.Outcome != Delivered {
		res.Interrupted = res.Last
		res.Last = Done
	}

	switch res.Outcome {
	case Delivered:
		log.Info("autopilot finished", "steps", res.Steps)
	case Cancelled:
		log.Info("autopilot cancelled", "state", res.Interrupted, "steps", res.Steps)
	default:
		log.Error("autopilot failed", "state", res.Interrupted, "err", err)
	}
	if r.cfg.Observer != nil {
		r.cfg.Observer.SessionEnded(res)
	}
	return res, err
}

func (r *Runner) loop(ctx context.Context, sess *Session, log *slog.Logger) (Result, error) {
	res := Result{Last: Patrolling}
	stopped := func() bool {
		return !r.active.Load() || ctx.Err() != nil
	}
	fail := func(err error) (Result, error) {
		if stopped() && isCancel(err) {
			res.Outcome = Cancelled
			return res, nil
		}
		res.Outcome = Failed
		return res, err
	}

	if err := r.exec.Execute(ctx, Begin()...); err != nil {
		return fail(fmt.Errorf("begin: %w", err))
	}

	state := Patrolling
	for !state.Terminal() {
		if stopped() {
			res.Outcome = Cancelled
			return res, nil
		}
		if r.cfg.MaxSteps > 0 && res.Steps >= r.cfg.MaxSteps {
			return fail(ErrStepLimit)
		}

		snap, err := r.sample(ctx, state, sess)
		if err != nil {
			return fail(err)
		}

		t := Step(state, sess, snap)
		res.Steps++
		r.trace(log, sess, res.Steps, t, snap)

		if err := r.exec.Execute(ctx, t.Commands...); err != nil {
			return fail(err)
		}

		state = t.To
		res.Last = state
		r.mu.Lock()
		r.state = state
		r.mu.Unlock()

		if !state.Terminal() && r.cfg.Interval > 0 && !timed(t.Commands) {
			if err := r.dev.Wait(ctx, r.cfg.Interval); err != nil {
				return fail(err)
			}
		}
	}
	res.Outcome = Delivered
	return res, nil
}

// sample reads the sensors in the order left, right, obstacle.
func (r *Runner) sample(ctx context.Context, state State, sess *Session) (Snapshot, error) {
	left, err := r.dev.ReadEdge(ctx, robot.Left)
	if err != nil {
		return Snapshot{}, err
	}
	right, err := r.dev.ReadEdge(ctx, robot.Right)
	if err != nil {
		return Snapshot{}, err
	}
	snap := EdgesOnly(left, right)
	if !state.SamplesObstacle() {
		return snap, nil
	}

	raw, err := r.dev.ReadDistance(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Obstacle, snap.Distance = r.detector.Detect(sess, raw)
	snap.Sampled = true
	return snap, nil
}

func (r *Runner) trace(log *slog.Logger, sess *Session, step int, t Transition, snap Snapshot) {
	attrs := []any{
		"state", t.From,
		"left", snap.Edges.Left,
		"right", snap.Edges.Right,
	}
	if snap.Sampled {
		attrs = append(attrs, "obstacle", snap.Obstacle, "distance", snap.Distance)
	}

	switch {
	case t.Note == NoteUnrecognized:
		log.Warn(string(t.Note), attrs...)
	case t.From != t.To || t.Note == NoteDodge:
		log.Info(string(t.Note), append(attrs, "next", t.To, "cmd", fmt.Sprint(t.Commands))...)
	default:
		log.Debug(string(t.Note), attrs...)
	}

	if r.cfg.Observer != nil {
		r.cfg.Observer.Stepped(StepEvent{
			Session:  sess.ID,
			Step:     step,
			From:     t.From,
			To:       t.To,
			Snapshot: snap,
			Commands: t.Commands,
			Note:     t.Note,
			At:       time.Now(),
		})
	}
}

func timed(cmds []motion.Command) bool {
	for _, c := range cmds {
		if c.Kind.Timed() {
			return true
		}
	}
	return false
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
