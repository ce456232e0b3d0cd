// Package autopilot implements the fetch-and-deposit behavior: patrol the
// table, dodge obstacles, find an edge, carry the payload to the opposite
// edge and drop it there.
//
// Decisions are made by Step, a pure function of the current state, the
// session context and one sensor snapshot. Runner samples the sensors, calls
// Step and executes the returned motion commands on the device.
package autopilot

import "fmt"

// State is a state of an autopilot session.
type State int

const (
	// Patrolling drives forward and watches both edges and the obstacle sensor.
	Patrolling State = iota + 1
	// RecoveringFromObstacle follows an obstacle seen while one edge was
	// released; the next sample picks between a short turn and more reverse.
	RecoveringFromObstacle
	// EdgeDropOff follows the reverse after an edge was found; the next
	// sample decides where the payload goes.
	EdgeDropOff
	// EdgeSettling follows the stop after exactly one edge stayed pressed;
	// the robot may still roll onto the edge.
	EdgeSettling
	// PostTurnApproach drives toward the opposite edge after turning away.
	PostTurnApproach
	// Done ends the session.
	Done
)

func (s State) String() string {
	switch s {
	case Patrolling:
		return "PATROLLING"
	case RecoveringFromObstacle:
		return "RECOVERING_FROM_OBSTACLE"
	case EdgeDropOff:
		return "EDGE_DROP_OFF"
	case EdgeSettling:
		return "EDGE_SETTLING"
	case PostTurnApproach:
		return "POST_TURN_APPROACH"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SamplesObstacle reports whether a sample taken in this state includes the
// obstacle sensor. Reading it advances the detector hysteresis, so only
// patrolling reads it; every other state decides on the edges alone.
func (s State) SamplesObstacle() bool {
	return s == Patrolling
}

// Terminal reports whether the session is over.
func (s State) Terminal() bool {
	return s == Done
}

// AllStates returns every state in declaration order.
func AllStates() []State {
	return []State{Patrolling, RecoveringFromObstacle, EdgeDropOff, EdgeSettling, PostTurnApproach, Done}
}
