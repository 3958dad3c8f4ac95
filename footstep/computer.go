package footstep

import (
	"context"

	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

// ErrStepInfeasible is returned when the clipping service cannot honor a footstep within tolerance.
var ErrStepInfeasible = errors.New("footstep cannot be performed")

// A Clipper adjusts a requested step to the closest one the robot can physically perform.
type Clipper interface {
	ClipFootstep(ctx context.Context, step StepCommand) (StepCommand, error)
}

// Computer turns absolute foot placements into actuator step commands.
type Computer struct {
	clipper    Clipper
	tolerances Tolerances
}

// NewComputer returns a Computer that validates steps through clipper.
func NewComputer(clipper Clipper, tolerances Tolerances) *Computer {
	return &Computer{clipper: clipper, tolerances: tolerances}
}

// RelativeStep returns the unclipped command that moves to.Leg from the support foot at from onto
// to. Right-leg steps are mirrored.
func RelativeStep(from spatialmath.Pose2D, to State) StepCommand {
	rel := spatialmath.PoseBetween(from, to.Pose())
	step := StepCommand{X: rel.X, Y: rel.Y, Theta: rel.Theta, Leg: to.Leg}
	if to.Leg == Right {
		step.Y = -step.Y
		step.Theta = -step.Theta
	}
	return step
}

// ApplyStep is the inverse of RelativeStep: it returns where the swing foot lands when step is
// executed from the support foot at from.
func ApplyStep(from spatialmath.Pose2D, step StepCommand) State {
	rel := spatialmath.Pose2D{X: step.X, Y: step.Y, Theta: step.Theta}
	if step.Leg == Right {
		rel.Y = -rel.Y
		rel.Theta = -rel.Theta
	}
	return StateFromPose(spatialmath.Compose(from, rel), step.Leg)
}

// Compute returns the clipped command that moves the foot opposite to the support foot at from onto
// to. If clipping changes the command by more than the configured tolerances, or changes the leg,
// the error wraps ErrStepInfeasible.
func (c *Computer) Compute(ctx context.Context, from spatialmath.Pose2D, to State) (StepCommand, error) {
	raw := RelativeStep(from, to)
	adjusted, err := c.clipper.ClipFootstep(ctx, raw)
	if err != nil {
		return StepCommand{}, errors.Wrapf(err, "failed to clip %v", raw)
	}
	if !c.tolerances.commandWithin(raw, adjusted) {
		return StepCommand{}, errors.Wrapf(ErrStepInfeasible, "%v clipped to %v", raw, adjusted)
	}
	return adjusted, nil
}

// CommandsFromPath computes the commands for path[start:], starting with support as the support foot.
// Each planned entry becomes the support foot of the entry after it.
func (c *Computer) CommandsFromPath(
	ctx context.Context,
	support spatialmath.Pose2D,
	path Path,
	start int,
) ([]StepCommand, error) {
	if start < 0 || start > len(path) {
		return nil, errors.Errorf("start index %d out of range for path of size %d", start, len(path))
	}
	steps := make([]StepCommand, 0, len(path)-start)
	last := support
	for i := start; i < len(path); i++ {
		step, err := c.Compute(ctx, last, path[i])
		if err != nil {
			return nil, errors.Wrapf(err, "path entry %d", i)
		}
		steps = append(steps, step)
		last = path[i].Pose()
	}
	return steps, nil
}
