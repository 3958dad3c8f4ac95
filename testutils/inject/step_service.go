package inject

import (
	"context"

	"github.com/viamrobotics/footstepnav/actuator"
	"github.com/viamrobotics/footstepnav/footstep"
)

// StepService is an injected single-step actuator.
type StepService struct {
	actuator.StepService
	StepFunc func(ctx context.Context, step footstep.StepCommand) error
}

// Step calls the injected Step or the real version.
func (s *StepService) Step(ctx context.Context, step footstep.StepCommand) error {
	if s.StepFunc == nil {
		return s.StepService.Step(ctx, step)
	}
	return s.StepFunc(ctx, step)
}
