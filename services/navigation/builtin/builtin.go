// Package builtin implements the default footstep navigation service. A Supervisor owns the
// execution lock, drives the planner and hands planned paths to either the sequential or the
// asynchronous executor.
package builtin

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"github.com/viamrobotics/footstepnav/actuator"
	"github.com/viamrobotics/footstepnav/config"
	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/planner"
	"github.com/viamrobotics/footstepnav/posesource"
	"github.com/viamrobotics/footstepnav/services/navigation"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

var _ = navigation.Service(&Supervisor{})

var (
	// errGoalPreempted ends a run whose goal was preempted by someone other than the supervisor.
	errGoalPreempted = errors.New("goal preempted")
	errClosed        = errors.New("navigation service is closed")
)

// Dependencies are the services a Supervisor talks to. StepService is required for sequential
// execution and ActionClient for asynchronous execution.
type Dependencies struct {
	Planner      planner.Planner
	Transformer  posesource.Transformer
	Clipper      footstep.Clipper
	StepService  actuator.StepService
	ActionClient actuator.ActionClient
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Validate ensures every dependency the strategy needs is set.
func (deps Dependencies) Validate(strategy navigation.Strategy) error {
	switch {
	case deps.Planner == nil:
		return utils.NewConfigValidationFieldRequiredError("dependencies", "planner")
	case deps.Transformer == nil:
		return utils.NewConfigValidationFieldRequiredError("dependencies", "transformer")
	case deps.Clipper == nil:
		return utils.NewConfigValidationFieldRequiredError("dependencies", "clipper")
	case strategy == navigation.StrategySequential && deps.StepService == nil:
		return utils.NewConfigValidationFieldRequiredError("dependencies", "step_service")
	case strategy == navigation.StrategyAsynchronous && deps.ActionClient == nil:
		return utils.NewConfigValidationFieldRequiredError("dependencies", "action_client")
	}
	return nil
}

// plannedPath is a snapshot of the planner's result.
type plannedPath struct {
	path       footstep.Path
	startLeft  footstep.State
	startRight footstep.State
}

// executeResponse is the result of executing one planned path.
type executeResponse struct {
	// If true, the robot deviated from the path and the caller should replan.
	replan bool
	// Set if replan is true, describes why replanning was triggered.
	replanReason string
}

// activeRun holds what is needed to shut down a run's goroutine.
type activeRun struct {
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
}

func (r *activeRun) stop() {
	r.cancelFunc()
	r.waitGroup.Wait()
}

// Supervisor is the footstep navigation service.
type Supervisor struct {
	strategy            navigation.Strategy
	rightFootFrameID    string
	leftFootFrameID     string
	feedbackFrequency   float64
	executionShift      int
	equalStepsThreshold int
	tolerances          footstep.Tolerances

	planner  planner.Planner
	poses    *posesource.Source
	computer *footstep.Computer
	steps    actuator.StepService
	actions  actuator.ActionClient
	clock    clock.Clock
	logger   golog.Logger

	execute func(ctx context.Context, plan plannedPath) (executeResponse, error)

	// executing is the execution lock. It is held from goal intake until a run ends without
	// replanning.
	executing  atomic.Bool
	closed     atomic.Bool
	mapFrameID atomic.String

	// plannerMu serializes multi-call planner sequences.
	plannerMu sync.Mutex

	// runMu serializes run replacement.
	runMu sync.Mutex
	// activeMu guards active.
	activeMu sync.Mutex
	active   *activeRun

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	history    *history
}

// NewSupervisor returns a Supervisor configured by cfg. It fails if any example footstep in cfg
// cannot be performed unaltered by the robot.
func NewSupervisor(ctx context.Context, cfg *config.Config, deps Dependencies, logger golog.Logger) (*Supervisor, error) {
	strategy := navigation.StrategyAsynchronous
	if cfg.Protective() {
		strategy = navigation.StrategySequential
	}
	if err := deps.Validate(strategy); err != nil {
		return nil, err
	}
	if err := footstep.VerifyPerformable(ctx, deps.Clipper, cfg.ExampleFootsteps()); err != nil {
		return nil, errors.Wrap(err, "planner configuration is not performable")
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	s := &Supervisor{
		strategy:            strategy,
		rightFootFrameID:    cfg.RightFootFrameID,
		leftFootFrameID:     cfg.LeftFootFrameID,
		feedbackFrequency:   cfg.FeedbackFrequency,
		executionShift:      cfg.Shift(),
		equalStepsThreshold: cfg.EqualStepsThreshold(),
		tolerances:          cfg.Tolerances(),
		planner:             deps.Planner,
		poses:               posesource.NewSource(deps.Transformer, cfg.TransformWait(), clk, logger.Named("poses")),
		computer:            footstep.NewComputer(deps.Clipper, cfg.Tolerances()),
		steps:               deps.StepService,
		actions:             deps.ActionClient,
		clock:               clk,
		logger:              logger,
		cancelCtx:           cancelCtx,
		cancelFunc:          cancelFunc,
		history:             newHistory(),
	}
	s.mapFrameID.Store(cfg.MapFrameID)
	if strategy == navigation.StrategySequential {
		s.execute = s.executeSequential
	} else {
		s.execute = s.executeAsync
	}
	logger.Infow("footstep navigation ready", "strategy", strategy, "map_frame", cfg.MapFrameID)
	return s, nil
}

// Strategy returns the execution strategy chosen at construction.
func (s *Supervisor) Strategy() navigation.Strategy {
	return s.strategy
}

// HandleGoal implements navigation.Service.
func (s *Supervisor) HandleGoal(ctx context.Context, goal spatialmath.Pose2D) error {
	if s.closed.Load() {
		return errClosed
	}
	if !s.executing.CompareAndSwap(false, true) {
		s.logger.Infow("already executing a navigation task, discarding new goal", "goal", goal)
		return navigation.ErrBusy
	}
	if s.closed.Load() {
		s.executing.Store(false)
		return errClosed
	}
	s.logger.Infow("received navigation goal", "goal", goal)

	if err := s.setStartAndGoal(ctx, goal); err != nil {
		s.executing.Store(false)
		return err
	}
	return s.run(ctx, navigation.ReasonGoal)
}

func (s *Supervisor) setStartAndGoal(ctx context.Context, goal spatialmath.Pose2D) error {
	s.plannerMu.Lock()
	defer s.plannerMu.Unlock()
	if err := s.updateStart(ctx); err != nil {
		s.logger.Errorw("start pose not accessible", "error", err)
		return navigation.WithCause(navigation.ErrStartUnreachable, err)
	}
	if err := s.planner.SetGoal(ctx, goal); err != nil {
		s.logger.Errorw("goal pose not accessible", "goal", goal, "error", err)
		return navigation.WithCause(navigation.ErrGoalUnreachable, err)
	}
	return nil
}

// updateStart sets the planner start from the feet observed at the last robot pose timestamp. It
// must be called with plannerMu held.
func (s *Supervisor) updateStart(ctx context.Context) error {
	feet, err := s.poses.LookupAtRobotTime(ctx, s.mapFrameID.Load(), s.leftFootFrameID, s.rightFootFrameID)
	if err != nil {
		return err
	}
	left := footstep.StateFromPose(feet[0], footstep.Left)
	right := footstep.StateFromPose(feet[1], footstep.Right)
	return s.planner.SetStart(ctx, left, right)
}

// Run implements navigation.Service.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.closed.Load() {
		return errClosed
	}
	return s.run(ctx, navigation.ReasonPlan)
}

func (s *Supervisor) run(ctx context.Context, reason navigation.RunReason) error {
	s.executing.Store(true)

	s.runMu.Lock()
	defer s.runMu.Unlock()
	if previous := s.swapActive(nil); previous != nil {
		previous.stop()
	}
	if s.closed.Load() {
		s.executing.Store(false)
		return errClosed
	}
	// a replaced run may have released the lock while stopping
	s.executing.Store(true)

	plan, err := s.plan(ctx, s.planner.Plan)
	if err != nil {
		s.executing.Store(false)
		s.logger.Errorw("planning failed, navigation halted", "error", err)
		return navigation.WithCause(navigation.ErrPlanningFailed, err)
	}
	s.start(plan, reason)
	return nil
}

// plan calls planFn and snapshots the planner's result.
func (s *Supervisor) plan(ctx context.Context, planFn func(context.Context) error) (plannedPath, error) {
	s.plannerMu.Lock()
	defer s.plannerMu.Unlock()
	if err := planFn(ctx); err != nil {
		return plannedPath{}, err
	}
	return s.snapshot(), nil
}

// snapshot must be called with plannerMu held.
func (s *Supervisor) snapshot() plannedPath {
	return plannedPath{
		path:       s.planner.Path(),
		startLeft:  s.planner.StartFootLeft(),
		startRight: s.planner.StartFootRight(),
	}
}

func (s *Supervisor) swapActive(r *activeRun) *activeRun {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	previous := s.active
	s.active = r
	return previous
}

// start launches the run goroutine. It must be called with runMu held.
func (s *Supervisor) start(plan plannedPath, reason navigation.RunReason) {
	cancelCtx, cancelFunc := context.WithCancel(s.cancelCtx)
	r := &activeRun{cancelFunc: cancelFunc}
	s.swapActive(r)

	id := s.history.start(s.strategy, reason, len(plan.path), s.clock.Now())
	s.logger.Infow("executing footstep path", "run", id, "reason", reason, "strategy", s.strategy, "steps", len(plan.path))

	r.waitGroup.Add(1)
	utils.PanicCapturingGo(func() {
		defer r.waitGroup.Done()
		defer cancelFunc()
		s.supervise(cancelCtx, r, id, plan)
	})
}

// supervise executes plan and every path that replaces it after a deviation. Exit conditions:
// 1. the run's context was cancelled, because it was replaced or the supervisor closed
// 2. the path was executed to its end
// 3. execution failed
// 4. recovering from a deviation failed
func (s *Supervisor) supervise(ctx context.Context, r *activeRun, id uuid.UUID, plan plannedPath) {
	for {
		resp, err := s.execute(ctx, plan)

		switch {
		// stopped
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			s.history.finish(id, navigation.RunStateStopped, "", s.clock.Now())
			s.logger.Infow("footstep execution stopped", "run", id)
			return

		case errors.Is(err, errGoalPreempted):
			s.history.finish(id, navigation.RunStateStopped, err.Error(), s.clock.Now())
			s.logger.Infow("footstep goal preempted", "run", id)
			s.release(r)
			return

		// failure
		case err != nil:
			s.history.finish(id, navigation.RunStateFailed, err.Error(), s.clock.Now())
			s.logger.Errorw("footstep execution failed, navigation halted", "run", id, "error", err)
			s.release(r)
			return

		// success
		case !resp.replan:
			s.history.finish(id, navigation.RunStateSucceeded, "", s.clock.Now())
			s.logger.Infow("succeeded walking to the goal", "run", id)
			s.release(r)
			return

		// replan
		default:
			s.logger.Infow("robot deviated from the path, replanning", "run", id, "reason", resp.replanReason)
			next, reason, err := s.recoverPath(ctx)
			if err != nil {
				if ctx.Err() != nil {
					s.history.finish(id, navigation.RunStateStopped, "", s.clock.Now())
					return
				}
				s.history.finish(id, navigation.RunStateFailed, err.Error(), s.clock.Now())
				s.logger.Errorw("failed to recover from deviation, navigation halted", "run", id, "error", err)
				s.release(r)
				return
			}
			now := s.clock.Now()
			s.history.finish(id, navigation.RunStateReplanned, resp.replanReason, now)
			id = s.history.start(s.strategy, reason, len(next.path), now)
			s.logger.Infow("executing footstep path", "run", id, "reason", reason, "strategy", s.strategy, "steps", len(next.path))
			plan = next
		}
	}
}

// recoverPath plans a new path from the robot's current feet, first by replanning and then by
// planning from scratch.
func (s *Supervisor) recoverPath(ctx context.Context) (plannedPath, navigation.RunReason, error) {
	s.plannerMu.Lock()
	defer s.plannerMu.Unlock()
	if err := s.updateStart(ctx); err != nil {
		return plannedPath{}, "", navigation.WithCause(navigation.ErrStartUnreachable, err)
	}
	err := s.planner.Replan(ctx)
	if err == nil {
		return s.snapshot(), navigation.ReasonReplan, nil
	}
	s.logger.Warnw("replanning failed, planning from scratch", "error", err)
	if err := s.planner.Plan(ctx); err != nil {
		return plannedPath{}, "", navigation.WithCause(navigation.ErrPlanningFailed, err)
	}
	return s.snapshot(), navigation.ReasonPlan, nil
}

// release clears the execution lock unless r has been replaced.
func (s *Supervisor) release(r *activeRun) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if s.active == r {
		s.executing.Store(false)
	}
}

// footFrameID returns the frame of leg's foot.
func (s *Supervisor) footFrameID(leg footstep.Leg) string {
	if leg == footstep.Right {
		return s.rightFootFrameID
	}
	return s.leftFootFrameID
}

// lookupFoot returns the current pose of leg's foot in the map frame.
func (s *Supervisor) lookupFoot(ctx context.Context, leg footstep.Leg) (spatialmath.Pose2D, error) {
	return s.poses.LookupNow(ctx, s.footFrameID(leg), s.mapFrameID.Load())
}

// HandleMapUpdate implements navigation.Service.
func (s *Supervisor) HandleMapUpdate(ctx context.Context, grid *gridmap.OccupancyGrid) error {
	m, err := gridmap.New(grid, gridmap.DefaultOccupiedThreshold)
	if err != nil {
		return errors.Wrap(err, "invalid occupancy grid")
	}
	s.plannerMu.Lock()
	defer s.plannerMu.Unlock()
	if err := s.planner.UpdateMap(ctx, m); err != nil {
		return errors.Wrap(err, "planner rejected map")
	}
	s.mapFrameID.Store(m.FrameID())
	s.logger.Debugw("map updated", "frame", m.FrameID(), "resolution", m.Resolution())
	return nil
}

// HandleRobotPoseUpdate implements navigation.Service. Only the timestamp is used.
func (s *Supervisor) HandleRobotPoseUpdate(_ spatialmath.Pose2D, stamp time.Time) {
	s.poses.UpdateRobotTime(stamp)
}

// Executing implements navigation.Service.
func (s *Supervisor) Executing() bool {
	return s.executing.Load()
}

// History implements navigation.Service. Lower indices are newer.
func (s *Supervisor) History() []navigation.RunStatus {
	return s.history.list()
}

// Close stops the active run and waits for it to end.
func (s *Supervisor) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancelFunc()
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if previous := s.swapActive(nil); previous != nil {
		previous.stop()
	}
	s.executing.Store(false)
	return nil
}
