package footstep

import (
	"math"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

// Tolerances bound how far an executed or clipped footstep may drift from what was asked for.
type Tolerances struct {
	AccuracyX     float64
	AccuracyY     float64
	AccuracyTheta float64

	// CellSize and NumAngleBins describe the planner's state discretization.
	CellSize     float64
	NumAngleBins int
}

// WithinTolerance reports whether the executed placement matches the planned one on every axis and
// on the leg.
func (t Tolerances) WithinTolerance(planned, executed State) bool {
	return math.Abs(planned.X-executed.X) <= t.AccuracyX &&
		math.Abs(planned.Y-executed.Y) <= t.AccuracyY &&
		spatialmath.AngleWithin(planned.Theta, executed.Theta, t.AccuracyTheta) &&
		planned.Leg == executed.Leg
}

// commandWithin is WithinTolerance for relative commands.
func (t Tolerances) commandWithin(requested, adjusted StepCommand) bool {
	return math.Abs(requested.X-adjusted.X) <= t.AccuracyX &&
		math.Abs(requested.Y-adjusted.Y) <= t.AccuracyY &&
		spatialmath.AngleWithin(requested.Theta, adjusted.Theta, t.AccuracyTheta) &&
		requested.Leg == adjusted.Leg
}
