package inject

import (
	"context"

	"github.com/viamrobotics/footstepnav/footstep"
)

// Clipper is an injected footstep clipping service.
type Clipper struct {
	footstep.Clipper
	ClipFootstepFunc func(ctx context.Context, step footstep.StepCommand) (footstep.StepCommand, error)
}

// ClipFootstep calls the injected ClipFootstep or the real version.
func (c *Clipper) ClipFootstep(ctx context.Context, step footstep.StepCommand) (footstep.StepCommand, error) {
	if c.ClipFootstepFunc == nil {
		return c.Clipper.ClipFootstep(ctx, step)
	}
	return c.ClipFootstepFunc(ctx, step)
}
