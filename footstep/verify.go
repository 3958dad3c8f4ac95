package footstep

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// floatCmpThreshold is how far a clipped example step may move before it is considered rejected.
const floatCmpThreshold = 1e-4

// VerifyPerformable clips every example step as a left step and fails if the clipping service
// alters any of them. It is meant to run once at startup to catch a planner configuration that the
// robot cannot follow.
func VerifyPerformable(ctx context.Context, clipper Clipper, examples []StepCommand) error {
	strict := Tolerances{AccuracyX: floatCmpThreshold, AccuracyY: floatCmpThreshold, AccuracyTheta: floatCmpThreshold}

	g, gctx := errgroup.WithContext(ctx)
	for _, example := range examples {
		step := example
		step.Leg = Left
		g.Go(func() error {
			clipped, err := clipper.ClipFootstep(gctx, step)
			if err != nil {
				return errors.Wrapf(err, "failed to clip example %v", step)
			}
			if !strict.commandWithin(step, clipped) {
				return errors.Errorf("step (%f, %f, %f) cannot be performed by the robot", step.X, step.Y, step.Theta)
			}
			return nil
		})
	}
	return g.Wait()
}
