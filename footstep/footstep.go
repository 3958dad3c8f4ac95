// Package footstep contains the footstep data model shared by the planner, the actuator and the
// navigation supervisor, along with the relative-footstep computation and tolerance checks.
package footstep

import (
	"fmt"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

// Leg identifies one of the two feet.
type Leg uint8

// The two legs of a humanoid.
const (
	Left = Leg(iota)
	Right
)

// Opposite returns the other leg.
func (l Leg) Opposite() Leg {
	if l == Left {
		return Right
	}
	return Left
}

func (l Leg) String() string {
	switch l {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Leg(%d)", uint8(l))
	}
}

// State is an absolute foot placement in the map frame, either planned or observed.
type State struct {
	X     float64
	Y     float64
	Theta float64
	Leg   Leg
}

// NewState returns a State with its heading normalized.
func NewState(x, y, theta float64, leg Leg) State {
	return State{X: x, Y: y, Theta: spatialmath.NormalizeAngle(theta), Leg: leg}
}

// StateFromPose attaches a leg to an observed foot pose.
func StateFromPose(pose spatialmath.Pose2D, leg Leg) State {
	return NewState(pose.X, pose.Y, pose.Theta, leg)
}

// Pose drops the leg assignment.
func (s State) Pose() spatialmath.Pose2D {
	return spatialmath.Pose2D{X: s.X, Y: s.Y, Theta: s.Theta}
}

func (s State) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f, %v)", s.X, s.Y, s.Theta, s.Leg)
}

// Path is a planned footstep sequence. Entry 0 is the foot the robot starts standing on; every
// following entry moves the opposite foot of its predecessor.
type Path []State

// Alternates reports whether consecutive entries alternate legs.
func (p Path) Alternates() bool {
	for i := 1; i < len(p); i++ {
		if p[i].Leg == p[i-1].Leg {
			return false
		}
	}
	return true
}

// Clone returns a copy of the path that does not share storage with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	cp := make(Path, len(p))
	copy(cp, p)
	return cp
}

// StepCommand is a foot placement relative to the support foot, in the convention of the step
// actuator: right-leg steps are mirrored so that positive Y always points away from the support
// foot.
type StepCommand struct {
	X     float64
	Y     float64
	Theta float64
	Leg   Leg
}

func (c StepCommand) String() string {
	return fmt.Sprintf("step %v (%.4f, %.4f, %.4f)", c.Leg, c.X, c.Y, c.Theta)
}
