// Package actuator defines the contracts of the step-execution services the navigator drives: a
// blocking single-step service and a long-running footstep goal with streamed feedback.
package actuator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/viamrobotics/footstepnav/footstep"
)

// A StepService performs one footstep and returns once the actuator accepted it.
type StepService interface {
	Step(ctx context.Context, step footstep.StepCommand) error
}

// Goal is a batch of footsteps executed in order by an ActionClient.
type Goal struct {
	ID                uuid.UUID
	Footsteps         []footstep.StepCommand
	FeedbackFrequency float64
}

// NewGoal returns a goal with a fresh ID.
func NewGoal(steps []footstep.StepCommand, feedbackFrequency float64) Goal {
	return Goal{ID: uuid.New(), Footsteps: steps, FeedbackFrequency: feedbackFrequency}
}

// An ActionClient submits footstep goals. SendGoal returns as soon as the goal is submitted;
// progress is reported on the handle's event channel.
type ActionClient interface {
	SendGoal(ctx context.Context, goal Goal) (GoalHandle, error)
}

// A GoalHandle tracks one submitted goal.
//
// Events are delivered in order on a single channel. The last event for a goal is always an
// EventDone, after which the channel is closed. Cancel requests preemption and does not wait;
// callers observe completion through the EventDone.
type GoalHandle interface {
	ID() uuid.UUID
	Events() <-chan GoalEvent
	Cancel()
}

// EventKind distinguishes goal events.
type EventKind uint8

// Kinds of goal events.
const (
	EventActive = EventKind(iota)
	EventFeedback
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventActive:
		return "active"
	case EventFeedback:
		return "feedback"
	case EventDone:
		return "done"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// GoalEvent is a single notification about a goal. ExecutedCount is set for feedback events and
// State for done events.
type GoalEvent struct {
	Kind          EventKind
	ExecutedCount int
	State         GoalState
}

// GoalState is the status of a goal.
type GoalState uint8

// Goal states. Succeeded, Preempted, Aborted, Rejected and Lost are terminal.
const (
	GoalPending = GoalState(iota)
	GoalActive
	GoalSucceeded
	GoalPreempted
	GoalAborted
	GoalRejected
	GoalLost
)

// Terminal reports whether no further events follow a goal in this state.
func (s GoalState) Terminal() bool {
	return s >= GoalSucceeded
}

func (s GoalState) String() string {
	switch s {
	case GoalPending:
		return "pending"
	case GoalActive:
		return "active"
	case GoalSucceeded:
		return "succeeded"
	case GoalPreempted:
		return "preempted"
	case GoalAborted:
		return "aborted"
	case GoalRejected:
		return "rejected"
	case GoalLost:
		return "lost"
	default:
		return fmt.Sprintf("GoalState(%d)", uint8(s))
	}
}
