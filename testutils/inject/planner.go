package inject

import (
	"context"

	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/planner"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

// Planner is an injected footstep planner.
type Planner struct {
	planner.Planner
	SetStartFunc       func(ctx context.Context, left, right footstep.State) error
	SetGoalFunc        func(ctx context.Context, goal spatialmath.Pose2D) error
	PlanFunc           func(ctx context.Context) error
	ReplanFunc         func(ctx context.Context) error
	UpdateMapFunc      func(ctx context.Context, m *gridmap.GridMap2D) error
	PathFunc           func() footstep.Path
	StartFootLeftFunc  func() footstep.State
	StartFootRightFunc func() footstep.State
}

// SetStart calls the injected SetStart or the real version.
func (p *Planner) SetStart(ctx context.Context, left, right footstep.State) error {
	if p.SetStartFunc == nil {
		return p.Planner.SetStart(ctx, left, right)
	}
	return p.SetStartFunc(ctx, left, right)
}

// SetGoal calls the injected SetGoal or the real version.
func (p *Planner) SetGoal(ctx context.Context, goal spatialmath.Pose2D) error {
	if p.SetGoalFunc == nil {
		return p.Planner.SetGoal(ctx, goal)
	}
	return p.SetGoalFunc(ctx, goal)
}

// Plan calls the injected Plan or the real version.
func (p *Planner) Plan(ctx context.Context) error {
	if p.PlanFunc == nil {
		return p.Planner.Plan(ctx)
	}
	return p.PlanFunc(ctx)
}

// Replan calls the injected Replan or the real version.
func (p *Planner) Replan(ctx context.Context) error {
	if p.ReplanFunc == nil {
		return p.Planner.Replan(ctx)
	}
	return p.ReplanFunc(ctx)
}

// UpdateMap calls the injected UpdateMap or the real version.
func (p *Planner) UpdateMap(ctx context.Context, m *gridmap.GridMap2D) error {
	if p.UpdateMapFunc == nil {
		return p.Planner.UpdateMap(ctx, m)
	}
	return p.UpdateMapFunc(ctx, m)
}

// Path calls the injected Path or the real version.
func (p *Planner) Path() footstep.Path {
	if p.PathFunc == nil {
		return p.Planner.Path()
	}
	return p.PathFunc()
}

// StartFootLeft calls the injected StartFootLeft or the real version.
func (p *Planner) StartFootLeft() footstep.State {
	if p.StartFootLeftFunc == nil {
		return p.Planner.StartFootLeft()
	}
	return p.StartFootLeftFunc()
}

// StartFootRight calls the injected StartFootRight or the real version.
func (p *Planner) StartFootRight() footstep.State {
	if p.StartFootRightFunc == nil {
		return p.Planner.StartFootRight()
	}
	return p.StartFootRightFunc()
}
