// Package navigation contains the footstep navigation service API: goal intake, map and robot pose
// ingestion, and the status of past and current runs.
package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

// A Service plans footstep paths to goals and supervises their execution.
type Service interface {
	// HandleGoal plans to goal from the robot's current feet and starts executing. It returns
	// ErrBusy without side effects while a run is active.
	HandleGoal(ctx context.Context, goal spatialmath.Pose2D) error
	// Run plans from the planner's current start and goal and starts executing, replacing any
	// active run.
	Run(ctx context.Context) error
	HandleMapUpdate(ctx context.Context, grid *gridmap.OccupancyGrid) error
	HandleRobotPoseUpdate(pose spatialmath.Pose2D, stamp time.Time)

	Executing() bool
	History() []RunStatus
	Close(ctx context.Context) error
}

var (
	// ErrBusy is returned when a goal arrives while a run is active.
	ErrBusy = errors.New("already executing a navigation task")
	// ErrStartUnreachable is returned when the planner rejects the robot's current feet.
	ErrStartUnreachable = errors.New("start pose not accessible")
	// ErrGoalUnreachable is returned when the planner rejects the goal pose.
	ErrGoalUnreachable = errors.New("goal pose not accessible")
	// ErrPlanningFailed is returned when the planner finds no path.
	ErrPlanningFailed = errors.New("planning failed")
	// ErrActuatorFailure is recorded when the actuator ends a goal in a failure state or rejects a
	// step.
	ErrActuatorFailure = errors.New("actuator failure")
)

// WithCause returns an error that matches sentinel with errors.Is and unwraps to cause.
func WithCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &causeError{sentinel: sentinel, cause: cause}
}

type causeError struct {
	sentinel error
	cause    error
}

func (e *causeError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *causeError) Is(target error) bool {
	return target == e.sentinel
}

func (e *causeError) Unwrap() error {
	return e.cause
}

// Strategy selects how a planned path is executed.
type Strategy uint8

// The set of known strategies.
const (
	// StrategySequential sends one step at a time and checks every step before sending it.
	StrategySequential = Strategy(iota)
	// StrategyAsynchronous submits the whole path and corrects it from streamed feedback.
	StrategyAsynchronous
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyAsynchronous:
		return "asynchronous"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// RunReason says what started a run.
type RunReason string

// The reasons a run is started.
const (
	ReasonGoal   = RunReason("goal")
	ReasonReplan = RunReason("replan")
	ReasonPlan   = RunReason("plan")
)

// RunState is the status of a run.
type RunState uint8

// The set of run states. All but RunStateInProgress are terminal.
const (
	RunStateInProgress = RunState(iota)
	RunStateSucceeded
	RunStateFailed
	RunStateStopped
	RunStateReplanned
)

// TerminalStateSet is the set of states a run can end in.
var TerminalStateSet = map[RunState]struct{}{
	RunStateSucceeded: {},
	RunStateFailed:    {},
	RunStateStopped:   {},
	RunStateReplanned: {},
}

func (s RunState) String() string {
	switch s {
	case RunStateInProgress:
		return "in_progress"
	case RunStateSucceeded:
		return "succeeded"
	case RunStateFailed:
		return "failed"
	case RunStateStopped:
		return "stopped"
	case RunStateReplanned:
		return "replanned"
	default:
		return fmt.Sprintf("RunState(%d)", uint8(s))
	}
}

// RunStatus describes one execution of one planned path. A deviation that leads to a new path ends
// the current run as replanned and starts a new one.
type RunStatus struct {
	ID         uuid.UUID
	Strategy   Strategy
	Reason     RunReason
	State      RunState
	PathLength int
	// Err is set when State is RunStateFailed or RunStateReplanned.
	Err       string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Done reports whether the run has ended.
func (rs RunStatus) Done() bool {
	_, ok := TerminalStateSet[rs.State]
	return ok
}
