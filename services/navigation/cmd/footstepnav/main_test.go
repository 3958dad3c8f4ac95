package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/viamrobotics/footstepnav/config"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

const fastConfig = `{
  "protective_execution": %s,
  "footsteps": {"x": [0.1], "y": [0.16], "theta": [0.0]},
  "fake": {
    "robot": {"step_duration_ms": 150, "publish_period_ms": 5}
  }
}`

func writeConfig(t *testing.T, protective string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "footstepnav.json")
	test.That(t, os.WriteFile(path, []byte(strings.Replace(fastConfig, "%s", protective, 1)), 0o600), test.ShouldBeNil)
	return path
}

func TestParseGoal(t *testing.T) {
	goal, err := parseGoal("0.5, -0.2,1.57")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, goal, test.ShouldResemble, spatialmath.NewPose2D(0.5, -0.2, 1.57))

	for _, bad := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		_, err := parseGoal(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestStanceCenter(t *testing.T) {
	center := stanceCenter(spatialmath.NewPose2D(0, 0.08, 3.1), spatialmath.NewPose2D(0, -0.08, -3.1))
	test.That(t, center.X, test.ShouldAlmostEqual, 0)
	test.That(t, center.Y, test.ShouldAlmostEqual, 0)
	test.That(t, spatialmath.AngleWithin(center.Theta, 3.14159, 1e-3), test.ShouldBeTrue)
}

func TestFreeMap(t *testing.T) {
	grid := freeMap("map")
	test.That(t, grid.Validate(), test.ShouldBeNil)
	test.That(t, grid.Width, test.ShouldEqual, 400)
	test.That(t, grid.Origin.X, test.ShouldEqual, -10)
}

func TestMainWithArgs(t *testing.T) {
	ctx := context.Background()

	t.Run("missing config", func(t *testing.T) {
		err := mainWithArgs(ctx, []string{"footstepnav"}, golog.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("missing goal", func(t *testing.T) {
		err := mainWithArgs(ctx, []string{"footstepnav", writeConfig(t, "true")}, golog.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "goal is required")
	})

	for _, protective := range []string{"true", "false"} {
		t.Run("walks to the goal with protective_execution "+protective, func(t *testing.T) {
			logger, logs := golog.NewObservedTestLogger(t)
			err := mainWithArgs(ctx, []string{"footstepnav", "--goal=0.3,0,0", writeConfig(t, protective)}, logger)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, logs.FilterMessageSnippet("navigation finished").Len(), test.ShouldEqual, 1)
		})
	}
}

func TestNavigateRejectsUnperformableFootsteps(t *testing.T) {
	cfg := &config.Config{
		Footsteps: config.Footsteps{X: []float64{0.5}, Y: []float64{0.16}, Theta: []float64{0}},
	}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)

	err := navigate(context.Background(), cfg, spatialmath.NewPose2D(0.3, 0, 0), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not performable")
}
