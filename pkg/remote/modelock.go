package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrModeBusy is returned when the motors are held by another mode.
var ErrModeBusy = errors.New("motors held by another mode")

// Mode is who commands the traction motors.
type Mode int

const (
	ModeIdle Mode = iota
	ModeManual
	ModeAutopilot
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeManual:
		return "manual"
	case ModeAutopilot:
		return "autopilot"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeLock gives the motors to one mode at a time. Manual control yields to
// the autopilot after its motors are halted; the autopilot yields to nobody
// until it releases.
type ModeLock struct {
	mu   sync.Mutex
	mode Mode
	halt func(context.Context) error
}

// NewModeLock creates an idle lock. halt stops the manual motor commands
// when the autopilot takes over; it may be nil.
func NewModeLock(halt func(context.Context) error) *ModeLock {
	return &ModeLock{halt: halt}
}

// Mode returns the current holder.
func (l *ModeLock) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Acquire makes m the holder. Re-acquiring manual mode is a no-op.
func (l *ModeLock) Acquire(ctx context.Context, m Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquire(ctx, m)
}

// Do acquires the motors for m and runs fn while still holding the lock, so
// no other mode can take over until fn has issued its commands.
func (l *ModeLock) Do(ctx context.Context, m Mode, fn func(context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.acquire(ctx, m); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *ModeLock) acquire(ctx context.Context, m Mode) error {
	switch {
	case m == ModeIdle:
		return fmt.Errorf("cannot acquire %s", m)
	case l.mode == ModeAutopilot:
		return ErrModeBusy
	case l.mode == m:
		return nil
	case l.mode == ModeManual && l.halt != nil:
		if err := l.halt(ctx); err != nil {
			return fmt.Errorf("halt %s: %w", l.mode, err)
		}
	}
	l.mode = m
	return nil
}

// Release gives the motors back if m holds them.
func (l *ModeLock) Release(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == m {
		l.mode = ModeIdle
	}
}
