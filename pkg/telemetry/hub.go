// Package telemetry publishes autopilot progress: an in-process event
// stream for the terminal UI, Prometheus metrics, MQTT messages and a small
// HTTP server.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/fetchbot/pkg/autopilot"
	"github.com/gwillem/fetchbot/pkg/robot"
)

// Event kinds.
const (
	KindStarted = "started"
	KindStep    = "step"
	KindEnded   = "ended"
)

// Event is one autopilot event as published to subscribers.
type Event struct {
	Kind     string              `json:"kind"`
	Session  string              `json:"session"`
	At       time.Time           `json:"at"`
	Dodge    string              `json:"dodge,omitempty"`
	Step     int                 `json:"step,omitempty"`
	From     string              `json:"from,omitempty"`
	To       string              `json:"to,omitempty"`
	Edges    *autopilot.EdgePair `json:"edges,omitempty"`
	Sampled  bool                `json:"obstacle_sampled,omitempty"`
	Obstacle bool                `json:"obstacle,omitempty"`
	Distance float64             `json:"distance,omitempty"`
	Commands []string            `json:"commands,omitempty"`
	Note     string              `json:"note,omitempty"`
	Outcome  string              `json:"outcome,omitempty"`
	Steps    int                 `json:"steps,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Sink receives every event. Publish must not block.
type Sink interface {
	Publish(ev Event)
}

// Status is the latest known autopilot status.
type Status struct {
	Active      bool               `json:"active"`
	Session     string             `json:"session,omitempty"`
	Dodge       string             `json:"dodge,omitempty"`
	State       string             `json:"state"`
	Steps       int                `json:"steps"`
	Edges       autopilot.EdgePair `json:"edges"`
	Distance    float64            `json:"distance"`
	Sessions    int                `json:"sessions"`
	LastOutcome string             `json:"last_outcome,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	Updated     time.Time          `json:"updated"`
}

// Hub is an autopilot.Observer that keeps the latest status and fans events
// out to metrics, sinks and an event channel.
type Hub struct {
	metrics *Metrics
	sinks   []Sink

	mu     sync.RWMutex
	status Status
	events chan Event
}

var _ autopilot.Observer = (*Hub)(nil)

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *Metrics, sinks ...Sink) *Hub {
	return &Hub{
		metrics: metrics,
		sinks:   sinks,
		status:  Status{State: autopilot.Done.String()},
		events:  make(chan Event, 64),
	}
}

// AddSink registers another sink.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Events returns a channel of events. When the reader falls behind the
// oldest events are dropped.
func (h *Hub) Events() <-chan Event {
	return h.events
}

// Status returns a copy of the current status.
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *Hub) SessionStarted(id uuid.UUID, dodge robot.Side) {
	now := time.Now()
	h.mu.Lock()
	h.status.Active = true
	h.status.Session = id.String()
	h.status.Dodge = dodge.String()
	h.status.State = autopilot.Patrolling.String()
	h.status.Steps = 0
	h.status.Updated = now
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.sessionStarted()
	}
	h.emit(Event{Kind: KindStarted, Session: id.String(), At: now, Dodge: dodge.String()})
}

func (h *Hub) Stepped(ev autopilot.StepEvent) {
	h.mu.Lock()
	h.status.State = ev.To.String()
	h.status.Steps = ev.Step
	h.status.Edges = ev.Snapshot.Edges
	if ev.Snapshot.Sampled {
		h.status.Distance = ev.Snapshot.Distance
	}
	h.status.Updated = ev.At
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.stepped(ev)
	}

	edges := ev.Snapshot.Edges
	out := Event{
		Kind:     KindStep,
		Session:  ev.Session.String(),
		At:       ev.At,
		Step:     ev.Step,
		From:     ev.From.String(),
		To:       ev.To.String(),
		Edges:    &edges,
		Sampled:  ev.Snapshot.Sampled,
		Obstacle: ev.Snapshot.Obstacle,
		Distance: ev.Snapshot.Distance,
		Note:     string(ev.Note),
	}
	for _, c := range ev.Commands {
		out.Commands = append(out.Commands, c.String())
	}
	h.emit(out)
}

func (h *Hub) SessionEnded(res autopilot.Result) {
	now := time.Now()
	out := Event{
		Kind:    KindEnded,
		Session: res.Session.String(),
		At:      now,
		Dodge:   res.Dodge.String(),
		To:      res.Last.String(),
		Outcome: res.Outcome.String(),
		Steps:   res.Steps,
	}
	if res.Outcome != autopilot.Delivered {
		out.From = res.Interrupted.String()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	h.mu.Lock()
	h.status.Active = false
	h.status.State = autopilot.Done.String()
	h.status.Sessions++
	h.status.LastOutcome = out.Outcome
	h.status.LastError = out.Error
	h.status.Updated = now
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.sessionEnded(res)
	}
	h.emit(out)
}

func (h *Hub) emit(ev Event) {
	h.mu.RLock()
	sinks := h.sinks
	h.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(ev)
	}

	select {
	case h.events <- ev:
	default:
		// drop the oldest event
		select {
		case <-h.events:
		default:
		}
		select {
		case h.events <- ev:
		default:
		}
	}
}
