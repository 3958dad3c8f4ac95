package inject

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/viamrobotics/footstepnav/actuator"
)

// ActionClient is an injected footstep goal client.
type ActionClient struct {
	actuator.ActionClient
	SendGoalFunc func(ctx context.Context, goal actuator.Goal) (actuator.GoalHandle, error)
}

// SendGoal calls the injected SendGoal or the real version.
func (ac *ActionClient) SendGoal(ctx context.Context, goal actuator.Goal) (actuator.GoalHandle, error) {
	if ac.SendGoalFunc == nil {
		return ac.ActionClient.SendGoal(ctx, goal)
	}
	return ac.SendGoalFunc(ctx, goal)
}

// GoalHandle is a goal handle whose events are pushed by the test.
type GoalHandle struct {
	GoalID     uuid.UUID
	CancelFunc func()

	mu     sync.Mutex
	events chan actuator.GoalEvent
	done   bool
}

// NewGoalHandle returns a handle with room for buffer undelivered events.
func NewGoalHandle(goalID uuid.UUID, buffer int) *GoalHandle {
	return &GoalHandle{GoalID: goalID, events: make(chan actuator.GoalEvent, buffer)}
}

// ID returns GoalID.
func (h *GoalHandle) ID() uuid.UUID {
	return h.GoalID
}

// Events returns the event channel.
func (h *GoalHandle) Events() <-chan actuator.GoalEvent {
	return h.events
}

// Cancel calls the injected Cancel, or finishes the goal as preempted.
func (h *GoalHandle) Cancel() {
	if h.CancelFunc == nil {
		h.Emit(actuator.GoalEvent{Kind: actuator.EventDone, State: actuator.GoalPreempted})
		return
	}
	h.CancelFunc()
}

// Emit delivers ev. A done event closes the channel; events after it are dropped.
func (h *GoalHandle) Emit(ev actuator.GoalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.events <- ev
	if ev.Kind == actuator.EventDone {
		h.done = true
		close(h.events)
	}
}

// Finished reports whether a done event was emitted.
func (h *GoalHandle) Finished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
