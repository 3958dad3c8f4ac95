package fake

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

var testTolerances = footstep.Tolerances{AccuracyX: 0.005, AccuracyY: 0.005, AccuracyTheta: 0.05, CellSize: 0.005, NumAngleBins: 128}

func TestDecodeConfig(t *testing.T) {
	conf, err := DecodeConfig(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.StepLength, test.ShouldEqual, 0.1)
	test.That(t, conf.FootSeparation, test.ShouldEqual, 0.16)

	conf, err = DecodeConfig(map[string]interface{}{"step_length": 0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.StepLength, test.ShouldEqual, 0.05)

	_, err = DecodeConfig(map[string]interface{}{"max_turn": -1.0})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeConfig(map[string]interface{}{"step_length": "far"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	logger := golog.NewTestLogger(t)
	p, err := NewPlanner(nil, testTolerances, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Plan(ctx), test.ShouldNotBeNil)

	left := footstep.NewState(0, 0.08, 0, footstep.Left)
	right := footstep.NewState(0, -0.08, 0, footstep.Right)
	test.That(t, p.SetStart(ctx, left, right), test.ShouldBeNil)
	test.That(t, p.SetGoal(ctx, spatialmath.NewPose2D(0.5, 0, 0)), test.ShouldBeNil)
	test.That(t, p.Plan(ctx), test.ShouldBeNil)

	path := p.Path()
	test.That(t, path[0], test.ShouldResemble, p.StartFootRight())
	test.That(t, path.Alternates(), test.ShouldBeTrue)
	// five steps forward and one to close the stance
	test.That(t, path, test.ShouldHaveLength, 7)
	for i := 1; i < len(path); i++ {
		test.That(t, math.Abs(path[i].Y), test.ShouldAlmostEqual, 0.08, 1e-9)
		test.That(t, path[i].Theta, test.ShouldAlmostEqual, 0)
	}
	last := path[len(path)-1]
	test.That(t, last.X, test.ShouldAlmostEqual, 0.5, 1e-9)

	path[0].X = 42
	test.That(t, p.Path()[0].X, test.ShouldEqual, 0)

	// nothing changed, so replanning yields the same path
	before := p.Path()
	test.That(t, p.Replan(ctx), test.ShouldBeNil)
	test.That(t, cmp.Diff(before, p.Path()), test.ShouldBeEmpty)
	plans, replans := p.Counts()
	test.That(t, plans, test.ShouldEqual, 2)
	test.That(t, replans, test.ShouldEqual, 1)
}

func TestPlanTurns(t *testing.T) {
	ctx := context.Background()
	p, err := NewPlanner(map[string]interface{}{"max_turn": 0.2}, testTolerances, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.SetStart(ctx, footstep.NewState(0, 0.08, 0, footstep.Left), footstep.NewState(0, -0.08, 0, footstep.Right)), test.ShouldBeNil)
	test.That(t, p.SetGoal(ctx, spatialmath.NewPose2D(0, 0, math.Pi/2)), test.ShouldBeNil)
	test.That(t, p.Plan(ctx), test.ShouldBeNil)

	path := p.Path()
	test.That(t, path.Alternates(), test.ShouldBeTrue)
	for i := 1; i < len(path); i++ {
		turn := spatialmath.ShortestAngularDistance(path[i-1].Theta, path[i].Theta)
		test.That(t, math.Abs(turn), test.ShouldBeLessThanOrEqualTo, 0.2+testTolerances.AccuracyTheta)
	}
	test.That(t, path[len(path)-1].Theta, test.ShouldAlmostEqual, math.Pi/2, 2*math.Pi/128)
}

func TestPlanObstacles(t *testing.T) {
	ctx := context.Background()
	p, err := NewPlanner(nil, testTolerances, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	data := make([]int8, 40*40)
	// a wall across x in [0.23, 0.28)
	for row := 0; row < 40; row++ {
		for col := 23; col < 28; col++ {
			data[row*40+col] = 100
		}
	}
	m, err := gridmap.New(&gridmap.OccupancyGrid{
		FrameID:    "map",
		Resolution: 0.01,
		Width:      40,
		Height:     40,
		Origin:     spatialmath.NewPose2D(0, -0.2, 0),
		Data:       data,
	}, gridmap.DefaultOccupiedThreshold)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.UpdateMap(ctx, m), test.ShouldBeNil)

	test.That(t, p.SetStart(ctx, footstep.NewState(-1, 0.08, 0, footstep.Left), footstep.NewState(0.05, -0.08, 0, footstep.Right)), test.ShouldNotBeNil)
	test.That(t, p.SetStart(ctx, footstep.NewState(0.05, 0.08, 0, footstep.Left), footstep.NewState(0.05, -0.08, 0, footstep.Right)), test.ShouldBeNil)
	test.That(t, p.SetGoal(ctx, spatialmath.NewPose2D(0.255, 0, 0)), test.ShouldNotBeNil)
	test.That(t, p.SetGoal(ctx, spatialmath.NewPose2D(0.35, 0, 0)), test.ShouldBeNil)
	test.That(t, p.Plan(ctx), test.ShouldNotBeNil)
}
