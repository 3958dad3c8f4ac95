package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/actuator"
	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/services/navigation"
)

// goalCancelTimeout bounds how long a cancelled goal may take to report that it is done.
const goalCancelTimeout = 5 * time.Second

type goalPhase uint8

const (
	goalPhasePending = goalPhase(iota)
	goalPhaseActive
	goalPhaseCancelling
	goalPhaseDone
)

func (p goalPhase) String() string {
	switch p {
	case goalPhasePending:
		return "pending"
	case goalPhaseActive:
		return "active"
	case goalPhaseCancelling:
		return "cancelling"
	case goalPhaseDone:
		return "done"
	default:
		return fmt.Sprintf("goalPhase(%d)", uint8(p))
	}
}

// asyncExecution is the state of one asynchronous run over one planned path. It is owned by the
// run goroutine and only touched from there.
type asyncExecution struct {
	s       *Supervisor
	logger  golog.Logger
	path    footstep.Path
	session *session

	handle actuator.GoalHandle
	phase  goalPhase
}

// executeAsync submits the whole of plan to the action client and follows its feedback. Steps
// that land within tolerance are confirmed one by one; if feedback shows the robot got ahead of
// the confirmed steps, the goal is replaced by one computed from where the robot actually is.
func (s *Supervisor) executeAsync(ctx context.Context, plan plannedPath) (executeResponse, error) {
	ex := &asyncExecution{
		s:       s,
		logger:  s.logger.Named("async"),
		path:    plan.path,
		session: newSession(s.equalStepsThreshold),
	}
	if len(ex.path) < 2 {
		ex.logger.Debugw("path has no steps to execute", "size", len(ex.path))
		return executeResponse{}, nil
	}

	support := plan.startLeft
	if ex.path[0].Leg == footstep.Right {
		support = plan.startRight
	}
	steps, err := s.computer.CommandsFromPath(ctx, support.Pose(), ex.path, 1)
	if err != nil {
		if ctx.Err() != nil {
			return executeResponse{}, ctx.Err()
		}
		return executeResponse{}, errors.Wrap(err, "footstep cannot be performed, stopping execution")
	}

	ex.session.reset()
	if err := ex.submit(ctx, steps); err != nil {
		return executeResponse{}, err
	}
	return ex.loop(ctx)
}

func (ex *asyncExecution) loop(ctx context.Context) (executeResponse, error) {
	for {
		select {
		case <-ctx.Done():
			if err := ex.cancelAndWait(context.Background()); err != nil {
				ex.logger.Warnw("cancelled goal did not finish", "goal", ex.handle.ID(), "phase", ex.phase, "error", err)
			}
			return executeResponse{}, ctx.Err()

		case ev, ok := <-ex.handle.Events():
			if !ok {
				return executeResponse{}, errors.Wrapf(navigation.ErrActuatorFailure,
					"event stream of goal %s closed without a result", ex.handle.ID())
			}
			switch ev.Kind {
			case actuator.EventActive:
				ex.onActive(ctx)
			case actuator.EventFeedback:
				resp, finished, err := ex.onFeedback(ctx, ev.ExecutedCount)
				if finished || err != nil {
					return resp, err
				}
			case actuator.EventDone:
				return ex.onDone(ev.State)
			default:
				ex.logger.Warnw("ignoring unknown goal event", "kind", ev.Kind)
			}
		}
	}
}

func (ex *asyncExecution) submit(ctx context.Context, steps []footstep.StepCommand) error {
	handle, err := ex.s.actions.SendGoal(ctx, actuator.NewGoal(steps, ex.s.feedbackFrequency))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return navigation.WithCause(navigation.ErrActuatorFailure, errors.Wrap(err, "failed to send footstep goal"))
	}
	ex.handle = handle
	ex.phase = goalPhasePending
	ex.logger.Infow("sent footstep goal", "goal", handle.ID(), "steps", len(steps))
	return nil
}

func (ex *asyncExecution) onActive(ctx context.Context) {
	ex.phase = goalPhaseActive
	if ctx.Err() == nil {
		ex.s.executing.Store(true)
	}
	ex.logger.Infow("start walking", "goal", ex.handle.ID())
}

// onFeedback handles the actuator's report that executedCount steps of the current goal have been
// executed. finished is true when the path ended or a deviation was detected.
func (ex *asyncExecution) onFeedback(ctx context.Context, executedCount int) (resp executeResponse, finished bool, err error) {
	idx := executedCount - ex.s.executionShift
	control := ex.session.controlStepIndex
	if idx < 0 || idx == control {
		return executeResponse{}, false, nil
	}
	plannedIdx := ex.session.plannedIndex()
	if plannedIdx >= len(ex.path) {
		return executeResponse{}, false, nil
	}
	planned := ex.path[plannedIdx]

	pose, err := ex.s.lookupFoot(ctx, planned.Leg)
	if err != nil {
		if ctx.Err() != nil {
			return executeResponse{}, true, ctx.Err()
		}
		ex.logger.Warnw("executed footstep unknown, waiting for the next feedback", "index", plannedIdx, "error", err)
		return executeResponse{}, false, nil
	}
	executed := footstep.StateFromPose(pose, planned.Leg)

	switch {
	case idx >= control+2:
		start := idx + ex.session.resetOffset
		ex.logger.Infow("robot is ahead of the confirmed footsteps, resubmitting",
			"goal", ex.handle.ID(), "feedback_index", idx, "confirmed", control, "path_index", start)
		if err := ex.cancelAndWait(ctx); err != nil {
			if ctx.Err() != nil {
				return executeResponse{}, true, ctx.Err()
			}
			return executeResponse{}, true, navigation.WithCause(navigation.ErrActuatorFailure, err)
		}

		steps, err := ex.s.computer.CommandsFromPath(ctx, pose, ex.path, start)
		if err != nil {
			if ctx.Err() != nil {
				return executeResponse{}, true, ctx.Err()
			}
			return executeResponse{replan: true, replanReason: fmt.Sprintf("resubmitting from path index %d: %v", start, err)}, true, nil
		}
		if len(steps) == 0 {
			return executeResponse{}, true, nil
		}
		if err := ex.submit(ctx, steps); err != nil {
			return executeResponse{}, true, err
		}
		ex.session.rebase()

	case idx == control+1:
		if !ex.s.tolerances.WithinTolerance(planned, executed) {
			ex.session.lastStepValid = false
			ex.logger.Debugw("footstep not within tolerance yet", "index", plannedIdx, "planned", planned, "executed", executed)
			return executeResponse{}, false, nil
		}
		ex.session.advance()
		ex.logger.Debugw("footstep confirmed", "index", plannedIdx, "executed", executed)
	}
	return executeResponse{}, false, nil
}

func (ex *asyncExecution) onDone(state actuator.GoalState) (executeResponse, error) {
	ex.phase = goalPhaseDone
	switch state {
	case actuator.GoalSucceeded:
		ex.logger.Infow("footstep goal succeeded", "goal", ex.handle.ID())
		return executeResponse{}, nil
	case actuator.GoalPreempted:
		ex.logger.Infow("footstep goal preempted", "goal", ex.handle.ID())
		return executeResponse{}, errGoalPreempted
	default:
		ex.logger.Errorw("failed to execute footsteps", "goal", ex.handle.ID(), "state", state)
		return executeResponse{}, errors.Wrapf(navigation.ErrActuatorFailure, "goal %s ended %v", ex.handle.ID(), state)
	}
}

// cancelAndWait cancels the current goal and consumes its events until it is done. Feedback from
// the cancelled goal is dropped.
func (ex *asyncExecution) cancelAndWait(ctx context.Context) error {
	if ex.phase == goalPhaseDone {
		return nil
	}
	ex.phase = goalPhaseCancelling
	ex.handle.Cancel()

	timer := ex.s.clock.Timer(goalCancelTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.Errorf("goal %s did not finish within %v of being cancelled", ex.handle.ID(), goalCancelTimeout)
		case ev, ok := <-ex.handle.Events():
			if !ok || ev.Kind == actuator.EventDone {
				ex.phase = goalPhaseDone
				ex.logger.Debugw("cancelled footstep goal", "goal", ex.handle.ID(), "state", ev.State)
				return nil
			}
		}
	}
}
