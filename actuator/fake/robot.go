// Package fake implements a simulated humanoid that performs footsteps. It serves the single-step
// service, the footstep goal action and the clipping service, and publishes the poses of its feet
// to a posesource.Buffer so that the navigator can observe it.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viamrobotics/footstepnav/actuator"
	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/posesource"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

var (
	_ = actuator.StepService(&Robot{})
	_ = actuator.ActionClient(&Robot{})
	_ = footstep.Clipper(&Robot{})
)

// Config is used for converting fake robot attributes.
type Config struct {
	// Clipping limits of a step relative to the support foot. Y is measured away from the support
	// foot.
	MaxX     float64 `json:"max_x,omitempty"`
	MinY     float64 `json:"min_y,omitempty"`
	MaxY     float64 `json:"max_y,omitempty"`
	MaxTheta float64 `json:"max_theta,omitempty"`

	FootSeparation  float64 `json:"foot_separation,omitempty"`
	StepDurationMs  int     `json:"step_duration_ms,omitempty"`
	PublishPeriodMs int     `json:"publish_period_ms,omitempty"`

	// Lookahead is how many steps ahead of the last landed one the robot reports as executed,
	// modelling a walking engine that queues steps.
	Lookahead *int `json:"lookahead,omitempty"`

	// Every SlipEvery-th step lands Slip meters short of where it was commanded.
	Slip      float64 `json:"slip,omitempty"`
	SlipEvery int     `json:"slip_every,omitempty"`
}

// DecodeConfig converts free-form attributes into a Config with defaults applied.
func DecodeConfig(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	if conf.MaxX == 0 {
		conf.MaxX = 0.25
	}
	if conf.MinY == 0 {
		conf.MinY = 0.08
	}
	if conf.MaxY == 0 {
		conf.MaxY = 0.3
	}
	if conf.MaxTheta == 0 {
		conf.MaxTheta = 0.4
	}
	if conf.FootSeparation == 0 {
		conf.FootSeparation = 0.16
	}
	if conf.StepDurationMs == 0 {
		conf.StepDurationMs = 400
	}
	if conf.PublishPeriodMs == 0 {
		conf.PublishPeriodMs = 20
	}
	if conf.Lookahead == nil {
		lookahead := 2
		conf.Lookahead = &lookahead
	}
	if conf.MinY > conf.MaxY {
		return nil, errors.Errorf("min_y %f is greater than max_y %f", conf.MinY, conf.MaxY)
	}
	if conf.StepDurationMs < 0 || conf.PublishPeriodMs < 0 || *conf.Lookahead < 0 || conf.SlipEvery < 0 {
		return nil, errors.New("step_duration_ms, publish_period_ms, lookahead and slip_every must not be negative")
	}
	return &conf, nil
}

// Robot is a simulated humanoid. Steps land instantly once their duration has passed.
type Robot struct {
	conf       Config
	leftFrame  string
	rightFrame string
	buffer     *posesource.Buffer
	clock      clock.Clock
	logger     golog.Logger
	workers    *utils.StoppableWorkers

	mu      sync.Mutex
	left    spatialmath.Pose2D
	right   spatialmath.Pose2D
	landed  int
	current *goalHandle
}

// NewRobot returns a robot standing at the origin of buffer's reference frame. Its feet are
// published as leftFrame and rightFrame until Close is called.
func NewRobot(
	attributes map[string]interface{},
	leftFrame, rightFrame string,
	buffer *posesource.Buffer,
	clk clock.Clock,
	logger golog.Logger,
) (*Robot, error) {
	conf, err := DecodeConfig(attributes)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	r := &Robot{
		conf:       *conf,
		leftFrame:  leftFrame,
		rightFrame: rightFrame,
		buffer:     buffer,
		clock:      clk,
		logger:     logger,
		left:       spatialmath.NewPose2D(0, conf.FootSeparation/2, 0),
		right:      spatialmath.NewPose2D(0, -conf.FootSeparation/2, 0),
	}
	r.publish()
	r.workers = utils.NewBackgroundStoppableWorkers(r.publishLoop)
	return r, nil
}

// Feet returns the current poses of both feet.
func (r *Robot) Feet() (left, right spatialmath.Pose2D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.left, r.right
}

// Landed returns the number of steps performed so far.
func (r *Robot) Landed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.landed
}

// publishLoop re-stamps both feet so that lookups at the current time succeed.
func (r *Robot) publishLoop(ctx context.Context) {
	ticker := r.clock.Ticker(time.Duration(r.conf.PublishPeriodMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publish()
		}
	}
}

func (r *Robot) publish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	r.buffer.Set(r.leftFrame, r.left, now)
	r.buffer.Set(r.rightFrame, r.right, now)
}

// ClipFootstep implements footstep.Clipper.
func (r *Robot) ClipFootstep(ctx context.Context, step footstep.StepCommand) (footstep.StepCommand, error) {
	if err := ctx.Err(); err != nil {
		return footstep.StepCommand{}, err
	}
	step.X = clamp(step.X, -r.conf.MaxX, r.conf.MaxX)
	step.Y = clamp(step.Y, r.conf.MinY, r.conf.MaxY)
	step.Theta = clamp(step.Theta, -r.conf.MaxTheta, r.conf.MaxTheta)
	return step, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Step implements actuator.StepService. It returns once the step has landed.
func (r *Robot) Step(ctx context.Context, step footstep.StepCommand) error {
	if !r.wait(ctx, nil) {
		return ctx.Err()
	}
	return r.land(ctx, step)
}

// wait blocks for one step duration. It returns false if ctx is done or cancel is closed first.
func (r *Robot) wait(ctx context.Context, cancel <-chan struct{}) bool {
	timer := r.clock.Timer(time.Duration(r.conf.StepDurationMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-cancel:
		return false
	case <-timer.C:
		return true
	}
}

func (r *Robot) land(ctx context.Context, step footstep.StepCommand) error {
	clipped, err := r.ClipFootstep(ctx, step)
	if err != nil {
		return err
	}

	r.mu.Lock()
	support := r.left
	if clipped.Leg == footstep.Left {
		support = r.right
	}
	r.landed++
	if r.conf.SlipEvery > 0 && r.landed%r.conf.SlipEvery == 0 {
		clipped.X -= r.conf.Slip
	}
	landed := footstep.ApplyStep(support, clipped)
	if landed.Leg == footstep.Left {
		r.left = landed.Pose()
	} else {
		r.right = landed.Pose()
	}
	r.mu.Unlock()

	r.logger.Debugw("footstep landed", "step", clipped, "foot", landed)
	r.publish()
	return nil
}

// SendGoal implements actuator.ActionClient. A new goal preempts the current one.
func (r *Robot) SendGoal(ctx context.Context, goal actuator.Goal) (actuator.GoalHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if goal.FeedbackFrequency <= 0 {
		return nil, errors.Errorf("feedback frequency must be positive, got %f", goal.FeedbackFrequency)
	}
	h := &goalHandle{
		id:        goal.ID,
		events:    make(chan actuator.GoalEvent, 8),
		cancelled: make(chan struct{}),
	}
	if h.id == uuid.Nil {
		h.id = uuid.New()
	}

	r.mu.Lock()
	previous := r.current
	r.current = h
	r.mu.Unlock()
	if previous != nil {
		previous.Cancel()
	}

	r.workers.Add(func(ctx context.Context) {
		r.executeGoal(ctx, h, goal)
	})
	return h, nil
}

// executeGoal performs the goal's steps in order, reporting progress at the goal's feedback
// frequency.
func (r *Robot) executeGoal(ctx context.Context, h *goalHandle, goal actuator.Goal) {
	defer close(h.events)
	h.send(ctx, actuator.GoalEvent{Kind: actuator.EventActive})

	stepsDone := make(chan int, 1)
	finished := make(chan actuator.GoalState, 1)
	utils.PanicCapturingGo(func() {
		for i, step := range goal.Footsteps {
			if !r.wait(ctx, h.cancelled) {
				if ctx.Err() != nil {
					finished <- actuator.GoalAborted
				} else {
					finished <- actuator.GoalPreempted
				}
				return
			}
			if err := r.land(ctx, step); err != nil {
				finished <- actuator.GoalAborted
				return
			}
			select {
			case <-stepsDone:
			default:
			}
			stepsDone <- i + 1
		}
		finished <- actuator.GoalSucceeded
	})

	ticker := r.clock.Ticker(time.Duration(float64(time.Second) / goal.FeedbackFrequency))
	defer ticker.Stop()
	executed := 0
	for {
		select {
		case state := <-finished:
			h.send(ctx, actuator.GoalEvent{Kind: actuator.EventDone, State: state})
			r.logger.Debugw("footstep goal finished", "goal", h.id, "state", state, "executed", executed)
			return
		case n := <-stepsDone:
			executed = n
		case <-ticker.C:
			reported := min(executed+*r.conf.Lookahead, len(goal.Footsteps))
			h.trySend(actuator.GoalEvent{Kind: actuator.EventFeedback, ExecutedCount: reported})
		}
	}
}

type goalHandle struct {
	id         uuid.UUID
	events     chan actuator.GoalEvent
	cancelOnce sync.Once
	cancelled  chan struct{}
}

func (h *goalHandle) ID() uuid.UUID {
	return h.id
}

func (h *goalHandle) Events() <-chan actuator.GoalEvent {
	return h.events
}

func (h *goalHandle) Cancel() {
	h.cancelOnce.Do(func() { close(h.cancelled) })
}

// send blocks until ev is delivered or ctx is done.
func (h *goalHandle) send(ctx context.Context, ev actuator.GoalEvent) {
	select {
	case h.events <- ev:
	case <-ctx.Done():
	}
}

// trySend drops ev if the consumer is behind.
func (h *goalHandle) trySend(ev actuator.GoalEvent) {
	select {
	case h.events <- ev:
	default:
	}
}

// Close stops every goal and the pose publisher.
func (r *Robot) Close(ctx context.Context) error {
	r.workers.Stop()
	return nil
}
