package autopilot

import (
	"time"

	"github.com/gwillem/fetchbot/pkg/motion"
	"github.com/gwillem/fetchbot/pkg/robot"
)

// Maneuver timings.
const (
	SideObstacleReverse = 1000 * time.Millisecond
	SideObstacleTurn    = 600 * time.Millisecond
	SideObstacleBackoff = 400 * time.Millisecond

	DodgeReverse = 1600 * time.Millisecond
	DodgeTurn    = 1750 * time.Millisecond

	EdgeReverse    = 1600 * time.Millisecond
	TurnAwayBackup = 700 * time.Millisecond
	TurnAway       = 1000 * time.Millisecond
	RetreatReverse = 500 * time.Millisecond

	BlockedReverse = 1000 * time.Millisecond
	BlockedTurn    = 2500 * time.Millisecond
)

// Note labels a transition for logs and telemetry.
type Note string

const (
	NotePatrol       Note = "patrol"
	NoteSideObstacle Note = "obstacle with one edge released"
	NoteSideTurn     Note = "clear after side obstacle, turning"
	NoteSideBackoff  Note = "still blocked after side obstacle, backing off"
	NoteDodge        Note = "obstacle ahead, dodging"
	NoteEdge         Note = "edge detected"
	NoteDrop         Note = "dropping payload"
	NoteSettle       Note = "one edge pressed, settling"
	NoteTurnAway     Note = "turning away from edge"
	NoteBlocked      Note = "blocked while backing off edge"
	NoteApproach     Note = "approaching opposite edge"
	NoteUnrecognized Note = "unrecognized input, continuing"
	NoteFinished     Note = "session finished"
)

// Transition is the outcome of one Step.
type Transition struct {
	From     State
	To       State
	Commands []motion.Command
	Note     Note
}

// Begin returns the commands that start a session: grip and raise the
// payload.
func Begin() []motion.Command {
	return []motion.Command{motion.Lift(motion.ArmPace)}
}

// Step decides what to do for one sample. It only mutates the session's
// decision fields (Before, Turn); the obstacle hysteresis is advanced by the
// detector when the sample is taken.
func Step(st State, s *Session, snap Snapshot) Transition {
	switch st {
	case Patrolling:
		return patrol(s, snap)
	case RecoveringFromObstacle:
		return recoverFromObstacle(s, snap)
	case EdgeDropOff:
		return edgeDropOff(s, snap)
	case EdgeSettling:
		return settle(s, snap)
	case PostTurnApproach:
		return approach(snap)
	default:
		return Transition{From: st, To: Done, Note: NoteFinished}
	}
}

func patrol(s *Session, snap Snapshot) Transition {
	e, obstacle := snap.Edges, snap.Obstacle
	t := Transition{From: Patrolling, To: Patrolling}

	switch {
	case e.BothPressed() && !obstacle:
		t.Commands = []motion.Command{motion.Forward(motion.PatrolPace)}
		t.Note = NotePatrol

	case !e.Left && e.Right && obstacle:
		s.Turn = robot.Right
		t.To = RecoveringFromObstacle
		t.Commands = []motion.Command{motion.Backward(SideObstacleReverse), motion.Stop()}
		t.Note = NoteSideObstacle

	case e.Left && !e.Right && obstacle:
		s.Turn = robot.Left
		t.To = RecoveringFromObstacle
		t.Commands = []motion.Command{motion.Backward(SideObstacleReverse), motion.Stop()}
		t.Note = NoteSideObstacle

	case e.BothPressed() && obstacle:
		t.Commands = []motion.Command{
			motion.Stop(),
			motion.Backward(DodgeReverse),
			motion.Turn(s.Dodge, DodgeTurn),
		}
		t.Note = NoteDodge

	case !obstacle:
		// at least one edge released
		s.Before = e
		t.To = EdgeDropOff
		t.Commands = []motion.Command{motion.Backward(EdgeReverse)}
		t.Note = NoteEdge

	default:
		// both released with an obstacle ahead
		t.Note = NoteUnrecognized
	}
	return t
}

func recoverFromObstacle(s *Session, snap Snapshot) Transition {
	t := Transition{From: RecoveringFromObstacle, To: Patrolling}
	if snap.Edges.BothPressed() {
		t.Commands = []motion.Command{motion.Turn(s.Turn, SideObstacleTurn), motion.Stop()}
		t.Note = NoteSideTurn
	} else {
		t.Commands = []motion.Command{motion.Backward(SideObstacleBackoff), motion.Stop()}
		t.Note = NoteSideBackoff
	}
	return t
}

func edgeDropOff(s *Session, snap Snapshot) Transition {
	e := snap.Edges
	t := Transition{From: EdgeDropOff}

	if e.BothReleased() {
		t.To = Done
		t.Commands = []motion.Command{
			motion.Stop(),
			motion.Drop(),
			motion.BackwardAt(RetreatReverse, motion.RetreatPace),
		}
		t.Note = NoteDrop
		return t
	}

	if side, ok := e.OnlyPressed(); ok {
		// turn toward the released side
		s.Turn = side.Opposite()
		t.To = EdgeSettling
		t.Commands = []motion.Command{motion.Stop()}
		t.Note = NoteSettle
		return t
	}

	// both pressed again: something pushed the robot back onto the table
	turn := robot.Left
	if side, ok := s.Before.OnlyPressed(); ok {
		turn = side.Opposite()
	}
	t.To = Patrolling
	t.Commands = []motion.Command{
		motion.Backward(BlockedReverse),
		motion.Stop(),
		motion.Turn(turn, BlockedTurn),
		motion.Stop(),
	}
	t.Note = NoteBlocked
	return t
}

func settle(s *Session, snap Snapshot) Transition {
	t := Transition{From: EdgeSettling}
	if snap.Edges.BothReleased() {
		t.To = Done
		t.Commands = []motion.Command{motion.Drop(), motion.Backward(RetreatReverse)}
		t.Note = NoteDrop
		return t
	}
	t.To = PostTurnApproach
	t.Commands = []motion.Command{
		motion.BackwardAt(TurnAwayBackup, motion.TurnAwayPace),
		motion.Turn(s.Turn, TurnAway),
		motion.Stop(),
	}
	t.Note = NoteTurnAway
	return t
}

func approach(snap Snapshot) Transition {
	t := Transition{From: PostTurnApproach}
	if snap.Edges.BothPressed() {
		t.To = PostTurnApproach
		t.Commands = []motion.Command{motion.Forward(robot.Pace{})}
		t.Note = NoteApproach
		return t
	}
	t.To = Done
	t.Commands = []motion.Command{
		motion.Stop(),
		motion.Drop(),
		motion.BackwardAt(RetreatReverse, motion.RetreatPace),
		motion.Stop(),
	}
	t.Note = NoteDrop
	return t
}
