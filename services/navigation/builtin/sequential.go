package builtin

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/services/navigation"
)

// executeSequential performs plan one footstep at a time. Before every step the support foot is
// observed and the step is recomputed from it, so the robot never accumulates drift. A step that
// cannot be performed is a deviation. A support foot that cannot be observed halts the run.
func (s *Supervisor) executeSequential(ctx context.Context, plan plannedPath) (executeResponse, error) {
	logger := s.logger.Named("sequential")
	path := plan.path
	if len(path) < 2 {
		logger.Debugw("path has no steps to execute", "size", len(path))
		return executeResponse{}, nil
	}

	for i := 1; i < len(path); i++ {
		if err := ctx.Err(); err != nil {
			return executeResponse{}, err
		}
		to := path[i]

		support, err := s.lookupFoot(ctx, to.Leg.Opposite())
		if err != nil {
			if ctx.Err() != nil {
				return executeResponse{}, ctx.Err()
			}
			logger.Errorw("support foot unavailable", "index", i, "leg", to.Leg.Opposite(), "error", err)
			return executeResponse{}, errors.Wrapf(err, "support foot of step %d", i)
		}

		step, err := s.computer.Compute(ctx, support, to)
		if err != nil {
			if ctx.Err() != nil {
				return executeResponse{}, ctx.Err()
			}
			logger.Infow("footstep cannot be performed", "index", i, "to", to, "error", err)
			return executeResponse{replan: true, replanReason: fmt.Sprintf("step %d: %v", i, err)}, nil
		}

		logger.Debugw("performing footstep", "index", i, "step", step)
		if err := s.steps.Step(ctx, step); err != nil {
			if ctx.Err() != nil {
				return executeResponse{}, ctx.Err()
			}
			return executeResponse{}, navigation.WithCause(navigation.ErrActuatorFailure, errors.Wrapf(err, "step %d", i))
		}
	}
	return executeResponse{}, nil
}
