package config

import (
	"testing"

	"go.viam.com/test"

	"github.com/viamrobotics/footstepnav/footstep"
)

func TestValidate(t *testing.T) {
	var cfg Config
	err := cfg.Validate("nav")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"rfoot_frame_id" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"map_frame_id" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "feedback_frequency must be positive")

	test.That(t, cfg.Ensure(), test.ShouldBeNil)

	shift := -1
	cfg.ExecutionShift = &shift
	test.That(t, cfg.Validate("nav"), test.ShouldNotBeNil)
}

func TestDerived(t *testing.T) {
	cfg := Config{
		FeedbackFrequency: 5,
		Footsteps: Footsteps{
			X:     []float64{0.1, 0.2},
			Y:     []float64{0.16, 0.2},
			Theta: []float64{0, -0.3},
		},
	}
	test.That(t, cfg.EqualStepsThreshold(), test.ShouldEqual, 0)
	cfg.FeedbackFrequency = 0.1
	test.That(t, cfg.EqualStepsThreshold(), test.ShouldEqual, 2)

	examples := cfg.ExampleFootsteps()
	test.That(t, examples, test.ShouldResemble, []footstep.StepCommand{
		{X: 0.1, Y: 0.16, Theta: 0, Leg: footstep.Left},
		{X: 0.2, Y: 0.2, Theta: -0.3, Leg: footstep.Left},
	})

	test.That(t, cfg.TransformWait(), test.ShouldEqual, 0)
	test.That(t, cfg.Protective(), test.ShouldBeTrue)
	test.That(t, cfg.Shift(), test.ShouldEqual, DefaultExecutionShift)
}
