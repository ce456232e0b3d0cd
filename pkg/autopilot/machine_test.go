package autopilot

import (
	"reflect"
	"testing"

	"github.com/gwillem/fetchbot/pkg/motion"
	"github.com/gwillem/fetchbot/pkg/robot"
)

func cmdStrings(cmds []motion.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.String())
	}
	return out
}

func TestStep_Patrolling(t *testing.T) {
	tests := []struct {
		name  string
		dodge robot.Side
		snap  Snapshot
		next  State
		turn  robot.Side
		cmds  []string
		note  Note
	}{
		{
			name: "on table, clear",
			snap: Sample(true, true, false),
			next: Patrolling,
			cmds: []string{"forward@270/220"},
			note: NotePatrol,
		},
		{
			name: "left released with obstacle",
			snap: Sample(false, true, true),
			next: RecoveringFromObstacle,
			turn: robot.Right,
			cmds: []string{"reverse(1000ms)", "stop"},
			note: NoteSideObstacle,
		},
		{
			name: "right released with obstacle",
			snap: Sample(true, false, true),
			next: RecoveringFromObstacle,
			turn: robot.Left,
			cmds: []string{"reverse(1000ms)", "stop"},
			note: NoteSideObstacle,
		},
		{
			name:  "obstacle ahead, dodge left",
			dodge: robot.Left,
			snap:  Sample(true, true, true),
			next:  Patrolling,
			cmds:  []string{"stop", "reverse(1600ms)", "turnLeft(1750ms)"},
			note:  NoteDodge,
		},
		{
			name:  "obstacle ahead, dodge right",
			dodge: robot.Right,
			snap:  Sample(true, true, true),
			next:  Patrolling,
			cmds:  []string{"stop", "reverse(1600ms)", "turnRight(1750ms)"},
			note:  NoteDodge,
		},
		{
			name: "left edge",
			snap: Sample(false, true, false),
			next: EdgeDropOff,
			cmds: []string{"reverse(1600ms)"},
			note: NoteEdge,
		},
		{
			name: "right edge",
			snap: Sample(true, false, false),
			next: EdgeDropOff,
			cmds: []string{"reverse(1600ms)"},
			note: NoteEdge,
		},
		{
			name: "both edges",
			snap: Sample(false, false, false),
			next: EdgeDropOff,
			cmds: []string{"reverse(1600ms)"},
			note: NoteEdge,
		},
		{
			name: "both released with obstacle",
			snap: Sample(false, false, true),
			next: Patrolling,
			cmds: []string{},
			note: NoteUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dodge := tt.dodge
			if dodge == 0 {
				dodge = robot.Left
			}
			s := NewSession(dodge, DefaultWindow)
			got := Step(Patrolling, s, tt.snap)

			if got.From != Patrolling || got.To != tt.next {
				t.Errorf("transition %v -> %v, want -> %v", got.From, got.To, tt.next)
			}
			if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, tt.cmds) {
				t.Errorf("commands = %q, want %q", cmds, tt.cmds)
			}
			if got.Note != tt.note {
				t.Errorf("note = %q, want %q", got.Note, tt.note)
			}
			if tt.turn != 0 && s.Turn != tt.turn {
				t.Errorf("pending turn = %v, want %v", s.Turn, tt.turn)
			}
			if tt.next == EdgeDropOff && s.Before != tt.snap.Edges {
				t.Errorf("before = %v, want %v", s.Before, tt.snap.Edges)
			}
		})
	}
}

func TestStep_ClearPatrolNeverLeavesPatrolling(t *testing.T) {
	for _, dodge := range []robot.Side{robot.Left, robot.Right} {
		s := NewSession(dodge, DefaultWindow)
		for i := 0; i < 10; i++ {
			got := Step(Patrolling, s, Sample(true, true, false))
			if got.To != Patrolling {
				t.Fatalf("cycle %d: state %v, want Patrolling", i, got.To)
			}
			if k := motion.Kinds(got.Commands); !reflect.DeepEqual(k, []motion.Kind{motion.KindForward}) {
				t.Fatalf("cycle %d: commands %v, want forward", i, k)
			}
		}
	}
}

func TestStep_RecoveringFromObstacle(t *testing.T) {
	tests := []struct {
		name string
		turn robot.Side
		snap Snapshot
		cmds []string
	}{
		{"back on table, turn right", robot.Right, EdgesOnly(true, true), []string{"turnRight(600ms)", "stop"}},
		{"back on table, turn left", robot.Left, EdgesOnly(true, true), []string{"turnLeft(600ms)", "stop"}},
		{"left still released", robot.Right, EdgesOnly(false, true), []string{"reverse(400ms)", "stop"}},
		{"right still released", robot.Left, EdgesOnly(true, false), []string{"reverse(400ms)", "stop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(robot.Left, DefaultWindow)
			s.Turn = tt.turn
			got := Step(RecoveringFromObstacle, s, tt.snap)
			if got.To != Patrolling {
				t.Errorf("next = %v, want Patrolling", got.To)
			}
			if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, tt.cmds) {
				t.Errorf("commands = %q, want %q", cmds, tt.cmds)
			}
		})
	}
}

func TestStep_EdgeDropOff(t *testing.T) {
	tests := []struct {
		name   string
		before EdgePair
		snap   Snapshot
		next   State
		turn   robot.Side
		cmds   []string
	}{
		{
			name: "both released drops",
			snap: EdgesOnly(false, false),
			next: Done,
			cmds: []string{"stop", "drop", "reverse(500ms)@700/300"},
		},
		{
			name: "right pressed only settles, turning left",
			snap: EdgesOnly(false, true),
			next: EdgeSettling,
			turn: robot.Left,
			cmds: []string{"stop"},
		},
		{
			name: "left pressed only settles, turning right",
			snap: EdgesOnly(true, false),
			next: EdgeSettling,
			turn: robot.Right,
			cmds: []string{"stop"},
		},
		{
			name:   "blocked after left edge turns left",
			before: EdgePair{Left: false, Right: true},
			snap:   EdgesOnly(true, true),
			next:   Patrolling,
			cmds:   []string{"reverse(1000ms)", "stop", "turnLeft(2500ms)", "stop"},
		},
		{
			name:   "blocked after right edge turns right",
			before: EdgePair{Left: true, Right: false},
			snap:   EdgesOnly(true, true),
			next:   Patrolling,
			cmds:   []string{"reverse(1000ms)", "stop", "turnRight(2500ms)", "stop"},
		},
		{
			name:   "blocked after both edges defaults to left",
			before: EdgePair{Left: false, Right: false},
			snap:   EdgesOnly(true, true),
			next:   Patrolling,
			cmds:   []string{"reverse(1000ms)", "stop", "turnLeft(2500ms)", "stop"},
		},
		{
			name:   "blocked with both pressed before defaults to left",
			before: EdgePair{Left: true, Right: true},
			snap:   EdgesOnly(true, true),
			next:   Patrolling,
			cmds:   []string{"reverse(1000ms)", "stop", "turnLeft(2500ms)", "stop"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(robot.Right, DefaultWindow)
			s.Before = tt.before
			got := Step(EdgeDropOff, s, tt.snap)
			if got.To != tt.next {
				t.Errorf("next = %v, want %v", got.To, tt.next)
			}
			if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, tt.cmds) {
				t.Errorf("commands = %q, want %q", cmds, tt.cmds)
			}
			if tt.turn != 0 && s.Turn != tt.turn {
				t.Errorf("pending turn = %v, want %v", s.Turn, tt.turn)
			}
		})
	}
}

func TestStep_EdgeDropOffBothReleasedTerminalKinds(t *testing.T) {
	s := NewSession(robot.Left, DefaultWindow)
	got := Step(EdgeDropOff, s, EdgesOnly(false, false))
	want := []motion.Kind{motion.KindStop, motion.KindDrop, motion.KindBackward}
	if k := motion.Kinds(got.Commands); !reflect.DeepEqual(k, want) {
		t.Errorf("kinds = %v, want %v", k, want)
	}
	if got.Commands[2].Duration != RetreatReverse {
		t.Errorf("retreat = %v, want %v", got.Commands[2].Duration, RetreatReverse)
	}
	if !got.To.Terminal() {
		t.Errorf("next = %v, want terminal", got.To)
	}
}

func TestStep_EdgeSettling(t *testing.T) {
	tests := []struct {
		name string
		turn robot.Side
		snap Snapshot
		next State
		cmds []string
	}{
		{"rolled onto the edge", robot.Left, EdgesOnly(false, false), Done, []string{"drop", "reverse(500ms)"}},
		{"settled, turn left", robot.Left, EdgesOnly(true, true), PostTurnApproach,
			[]string{"reverse(700ms)@220/200", "turnLeft(1000ms)", "stop"}},
		{"still one edge, turn right", robot.Right, EdgesOnly(true, false), PostTurnApproach,
			[]string{"reverse(700ms)@220/200", "turnRight(1000ms)", "stop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(robot.Left, DefaultWindow)
			s.Turn = tt.turn
			got := Step(EdgeSettling, s, tt.snap)
			if got.To != tt.next {
				t.Errorf("next = %v, want %v", got.To, tt.next)
			}
			if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, tt.cmds) {
				t.Errorf("commands = %q, want %q", cmds, tt.cmds)
			}
		})
	}
}

func TestStep_PostTurnApproach(t *testing.T) {
	s := NewSession(robot.Left, DefaultWindow)

	got := Step(PostTurnApproach, s, EdgesOnly(true, true))
	if got.To != PostTurnApproach {
		t.Errorf("next = %v, want PostTurnApproach", got.To)
	}
	if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, []string{"forward"}) {
		t.Errorf("commands = %q", cmds)
	}

	for _, snap := range []Snapshot{EdgesOnly(false, true), EdgesOnly(true, false), EdgesOnly(false, false)} {
		got := Step(PostTurnApproach, s, snap)
		if got.To != Done {
			t.Errorf("%v: next = %v, want Done", snap.Edges, got.To)
		}
		want := []string{"stop", "drop", "reverse(500ms)@700/300", "stop"}
		if cmds := cmdStrings(got.Commands); !reflect.DeepEqual(cmds, want) {
			t.Errorf("%v: commands = %q, want %q", snap.Edges, cmds, want)
		}
	}
}

func TestStep_DoneIsTerminal(t *testing.T) {
	s := NewSession(robot.Left, DefaultWindow)
	got := Step(Done, s, Sample(true, true, false))
	if got.To != Done || len(got.Commands) != 0 {
		t.Errorf("Done stepped to %v with %v", got.To, got.Commands)
	}
}

func TestStateStrings(t *testing.T) {
	seen := map[string]bool{}
	for _, st := range AllStates() {
		name := st.String()
		if seen[name] {
			t.Errorf("duplicate state name %q", name)
		}
		seen[name] = true
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("unknown state = %q", got)
	}
	if !Patrolling.SamplesObstacle() || RecoveringFromObstacle.SamplesObstacle() || EdgeDropOff.SamplesObstacle() {
		t.Error("SamplesObstacle is wrong")
	}
}
