package autopilot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/fetchbot/pkg/robot"
)

// EdgePair is one reading of both edge sensors. Pressed (true) means the
// robot is over the table on that side.
type EdgePair struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

func (p EdgePair) BothPressed() bool  { return p.Left && p.Right }
func (p EdgePair) BothReleased() bool { return !p.Left && !p.Right }

// OnlyPressed returns the side that is still pressed when exactly one is.
func (p EdgePair) OnlyPressed() (robot.Side, bool) {
	switch {
	case p.Left && !p.Right:
		return robot.Left, true
	case !p.Left && p.Right:
		return robot.Right, true
	default:
		return 0, false
	}
}

func (p EdgePair) String() string {
	return fmt.Sprintf("%s/%s", pressed(p.Left), pressed(p.Right))
}

func pressed(v bool) string {
	if v {
		return "pressed"
	}
	return "released"
}

// Snapshot is one sample of the sensors. Obstacle and Distance are only
// meaningful when Sampled is set.
type Snapshot struct {
	Edges    EdgePair `json:"edges"`
	Obstacle bool     `json:"obstacle"`
	Distance float64  `json:"distance"`
	Sampled  bool     `json:"obstacle_sampled"`
}

// Sample builds a snapshot that includes the obstacle sensor.
func Sample(left, right, obstacle bool) Snapshot {
	return Snapshot{Edges: EdgePair{Left: left, Right: right}, Obstacle: obstacle, Sampled: true}
}

// EdgesOnly builds a snapshot without the obstacle sensor.
func EdgesOnly(left, right bool) Snapshot {
	return Snapshot{Edges: EdgePair{Left: left, Right: right}}
}

// Session is the context of one autonomous run. It is created when the
// autopilot is triggered and discarded when the run ends.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	// Dodge is the side to turn to when an obstacle is straight ahead.
	Dodge robot.Side

	// IgnoreNext suppresses the next obstacle report. It starts set so
	// the first reading after activation never reports an obstacle.
	IgnoreNext bool

	// Filter smooths distance samples.
	Filter *MeanFilter

	// Before is the edge pair that made the robot back off an edge.
	Before EdgePair

	// Turn is the side chosen for the pending turn in
	// RecoveringFromObstacle and EdgeSettling.
	Turn robot.Side
}

// NewSession creates a fresh session.
func NewSession(dodge robot.Side, window int) *Session {
	return &Session{
		ID:         uuid.New(),
		Started:    time.Now(),
		Dodge:      dodge,
		IgnoreNext: true,
		Filter:     NewMeanFilter(window),
	}
}
