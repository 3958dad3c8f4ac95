package fake

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/viamrobotics/footstepnav/actuator"
	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/posesource"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

func newTestRobot(t *testing.T, attributes map[string]interface{}) (*Robot, *posesource.Buffer) {
	t.Helper()
	buffer := posesource.NewBuffer("map", clock.New())
	r, err := NewRobot(attributes, "/l_sole", "/r_sole", buffer, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, r.Close(context.Background()), test.ShouldBeNil)
	})
	return r, buffer
}

func TestDecodeConfig(t *testing.T) {
	conf, err := DecodeConfig(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MaxX, test.ShouldEqual, 0.25)
	test.That(t, *conf.Lookahead, test.ShouldEqual, 2)

	conf, err = DecodeConfig(map[string]interface{}{"lookahead": 0, "slip": 0.02, "slip_every": 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *conf.Lookahead, test.ShouldEqual, 0)
	test.That(t, conf.SlipEvery, test.ShouldEqual, 3)

	_, err = DecodeConfig(map[string]interface{}{"min_y": 0.5, "max_y": 0.2})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestClipFootstep(t *testing.T) {
	r, _ := newTestRobot(t, map[string]interface{}{"max_x": 0.2, "max_theta": 0.3})
	clipped, err := r.ClipFootstep(context.Background(), footstep.StepCommand{X: 0.5, Y: 0.01, Theta: -1, Leg: footstep.Right})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, clipped, test.ShouldResemble, footstep.StepCommand{X: 0.2, Y: 0.08, Theta: -0.3, Leg: footstep.Right})
}

func TestStep(t *testing.T) {
	ctx := context.Background()
	r, buffer := newTestRobot(t, map[string]interface{}{"step_duration_ms": 1, "slip": 0.01, "slip_every": 2})

	test.That(t, r.Step(ctx, footstep.StepCommand{X: 0.1, Y: 0.16, Leg: footstep.Left}), test.ShouldBeNil)
	left, right := r.Feet()
	test.That(t, left.X, test.ShouldAlmostEqual, 0.1)
	test.That(t, left.Y, test.ShouldAlmostEqual, 0.08)
	test.That(t, right.X, test.ShouldAlmostEqual, 0)

	pose, _, err := buffer.LookupLatest("map", "/l_sole")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.X, test.ShouldAlmostEqual, 0.1)

	// the second step slips
	test.That(t, r.Step(ctx, footstep.StepCommand{X: 0.2, Y: 0.16, Leg: footstep.Right}), test.ShouldBeNil)
	_, right = r.Feet()
	test.That(t, right.X, test.ShouldAlmostEqual, 0.29)
	test.That(t, right.Y, test.ShouldAlmostEqual, -0.08)
	test.That(t, r.Landed(), test.ShouldEqual, 2)

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	test.That(t, r.Step(cancelCtx, footstep.StepCommand{X: 0.1, Y: 0.16, Leg: footstep.Left}), test.ShouldNotBeNil)
}

func TestStepSimulatedTime(t *testing.T) {
	clk := clock.NewMock()
	buffer := posesource.NewBuffer("map", clk)
	r, err := NewRobot(map[string]interface{}{"step_duration_ms": 400}, "/l_sole", "/r_sole", buffer, clk, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(context.Background()), test.ShouldBeNil)
	}()

	done := make(chan error, 1)
	go func() {
		done <- r.Step(context.Background(), footstep.StepCommand{X: 0.1, Y: 0.16, Leg: footstep.Left})
	}()

	// nothing lands until the step duration has passed on the robot's clock
	clk.Add(100 * time.Millisecond)
	test.That(t, r.Landed(), test.ShouldEqual, 0)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(50 * time.Millisecond)
		test.That(tb, r.Landed(), test.ShouldEqual, 1)
	})
	test.That(t, <-done, test.ShouldBeNil)

	left, _ := r.Feet()
	test.That(t, spatialmath.PoseAlmostEqual(left, spatialmath.NewPose2D(0.1, 0.08, 0), 1e-9), test.ShouldBeTrue)
	pose, _, err := buffer.LookupLatest("map", "/l_sole")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(pose, left, 1e-9), test.ShouldBeTrue)
}

func collect(t *testing.T, h actuator.GoalHandle) []actuator.GoalEvent {
	t.Helper()
	var events []actuator.GoalEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("goal did not finish")
		}
	}
}

func TestSendGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds with feedback", func(t *testing.T) {
		r, _ := newTestRobot(t, map[string]interface{}{"step_duration_ms": 10})
		steps := []footstep.StepCommand{
			{X: 0.1, Y: 0.16, Leg: footstep.Left},
			{X: 0.1, Y: 0.16, Leg: footstep.Right},
			{X: 0.1, Y: 0.16, Leg: footstep.Left},
		}
		h, err := r.SendGoal(ctx, actuator.NewGoal(steps, 500))
		test.That(t, err, test.ShouldBeNil)

		events := collect(t, h)
		test.That(t, events[0].Kind, test.ShouldEqual, actuator.EventActive)
		last := events[len(events)-1]
		test.That(t, last.Kind, test.ShouldEqual, actuator.EventDone)
		test.That(t, last.State, test.ShouldEqual, actuator.GoalSucceeded)

		previous := 0
		for _, ev := range events[1 : len(events)-1] {
			test.That(t, ev.Kind, test.ShouldEqual, actuator.EventFeedback)
			test.That(t, ev.ExecutedCount, test.ShouldBeGreaterThanOrEqualTo, previous)
			test.That(t, ev.ExecutedCount, test.ShouldBeLessThanOrEqualTo, len(steps))
			previous = ev.ExecutedCount
		}

		left, right := r.Feet()
		test.That(t, left.X, test.ShouldAlmostEqual, 0.3)
		test.That(t, right.X, test.ShouldAlmostEqual, 0.2)
	})

	t.Run("cancel preempts", func(t *testing.T) {
		r, _ := newTestRobot(t, map[string]interface{}{"step_duration_ms": 1000})
		h, err := r.SendGoal(ctx, actuator.NewGoal([]footstep.StepCommand{{X: 0.1, Y: 0.16}}, 10))
		test.That(t, err, test.ShouldBeNil)
		h.Cancel()
		events := collect(t, h)
		test.That(t, events[len(events)-1].State, test.ShouldEqual, actuator.GoalPreempted)
		test.That(t, r.Landed(), test.ShouldEqual, 0)
	})

	t.Run("new goal preempts the current one", func(t *testing.T) {
		r, _ := newTestRobot(t, map[string]interface{}{"step_duration_ms": 1000})
		first, err := r.SendGoal(ctx, actuator.NewGoal([]footstep.StepCommand{{X: 0.1, Y: 0.16}}, 10))
		test.That(t, err, test.ShouldBeNil)
		second, err := r.SendGoal(ctx, actuator.NewGoal([]footstep.StepCommand{{X: 0.1, Y: 0.16}}, 10))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, second.ID(), test.ShouldNotEqual, first.ID())

		events := collect(t, first)
		test.That(t, events[len(events)-1].State, test.ShouldEqual, actuator.GoalPreempted)
		second.Cancel()
		collect(t, second)
	})

	t.Run("rejects bad feedback frequency", func(t *testing.T) {
		r, _ := newTestRobot(t, nil)
		_, err := r.SendGoal(ctx, actuator.NewGoal(nil, 0))
		test.That(t, err, test.ShouldNotBeNil)
	})
}
