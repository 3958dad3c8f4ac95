// Package planner defines the footstep planner contract relied on by the navigation supervisor.
// The search itself lives behind this interface.
package planner

import (
	"context"

	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

// A Planner searches footstep paths between the robot's feet and a goal pose.
//
// SetStart, SetGoal, Plan and Replan return an error when the request cannot be honored: an
// unreachable start or goal, or no path found. Path, StartFootLeft and StartFootRight describe the
// result of the most recent successful Plan or Replan; Path returns a snapshot the caller owns.
type Planner interface {
	SetStart(ctx context.Context, left, right footstep.State) error
	SetGoal(ctx context.Context, goal spatialmath.Pose2D) error
	Plan(ctx context.Context) error
	Replan(ctx context.Context) error
	UpdateMap(ctx context.Context, m *gridmap.GridMap2D) error

	Path() footstep.Path
	StartFootLeft() footstep.State
	StartFootRight() footstep.State
}
