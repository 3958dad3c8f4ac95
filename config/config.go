// Package config defines the structures to configure the footstep navigator.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/viamrobotics/footstepnav/footstep"
)

// Defaults applied to fields left unset.
const (
	DefaultRightFootFrameID    = "/r_sole"
	DefaultLeftFootFrameID     = "/l_sole"
	DefaultMapFrameID          = "map"
	DefaultAccuracyX           = 0.005
	DefaultAccuracyY           = 0.005
	DefaultAccuracyTheta       = 0.05
	DefaultCellSize            = 0.005
	DefaultNumAngleBins        = 128
	DefaultFeedbackFrequency   = 5.0
	DefaultExecutionShift      = 2
	DefaultTransformWaitMillis = 100
)

// A Config describes the configuration of the navigator.
type Config struct {
	RightFootFrameID    string    `json:"rfoot_frame_id,omitempty"`
	LeftFootFrameID     string    `json:"lfoot_frame_id,omitempty"`
	MapFrameID          string    `json:"map_frame_id,omitempty"`
	Accuracy            Accuracy  `json:"accuracy"`
	FeedbackFrequency   float64   `json:"feedback_frequency,omitempty"`
	ProtectiveExecution *bool     `json:"protective_execution,omitempty"`
	ExecutionShift      *int      `json:"execution_shift,omitempty"`
	TransformWaitMillis int       `json:"transform_wait_ms,omitempty"`
	Footsteps           Footsteps `json:"footsteps"`
	Fake                Fake      `json:"fake"`

	ConfigFilePath string `json:"-"`
}

// Accuracy bounds how far executed and clipped steps may drift, and describes the planner's
// discretization.
type Accuracy struct {
	Footstep     AxisAccuracy `json:"footstep"`
	CellSize     float64      `json:"cell_size,omitempty"`
	NumAngleBins int          `json:"num_angle_bins,omitempty"`
}

// AxisAccuracy is a per-axis tolerance.
type AxisAccuracy struct {
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Theta float64 `json:"theta,omitempty"`
}

// Footsteps lists example steps, as parallel arrays, that the robot must be able to perform
// unaltered.
type Footsteps struct {
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Theta []float64 `json:"theta"`
}

// Fake holds free-form attributes for the simulated robot and planner.
type Fake struct {
	Robot   map[string]interface{} `json:"robot,omitempty"`
	Planner map[string]interface{} `json:"planner,omitempty"`
}

// Ensure fills in defaults and validates the config.
func (c *Config) Ensure() error {
	c.applyDefaults()
	return c.Validate("")
}

func (c *Config) applyDefaults() {
	if c.RightFootFrameID == "" {
		c.RightFootFrameID = DefaultRightFootFrameID
	}
	if c.LeftFootFrameID == "" {
		c.LeftFootFrameID = DefaultLeftFootFrameID
	}
	if c.MapFrameID == "" {
		c.MapFrameID = DefaultMapFrameID
	}
	if c.Accuracy.Footstep.X == 0 {
		c.Accuracy.Footstep.X = DefaultAccuracyX
	}
	if c.Accuracy.Footstep.Y == 0 {
		c.Accuracy.Footstep.Y = DefaultAccuracyY
	}
	if c.Accuracy.Footstep.Theta == 0 {
		c.Accuracy.Footstep.Theta = DefaultAccuracyTheta
	}
	if c.Accuracy.CellSize == 0 {
		c.Accuracy.CellSize = DefaultCellSize
	}
	if c.Accuracy.NumAngleBins == 0 {
		c.Accuracy.NumAngleBins = DefaultNumAngleBins
	}
	if c.FeedbackFrequency == 0 {
		c.FeedbackFrequency = DefaultFeedbackFrequency
	}
	if c.ProtectiveExecution == nil {
		protective := true
		c.ProtectiveExecution = &protective
	}
	if c.ExecutionShift == nil {
		shift := DefaultExecutionShift
		c.ExecutionShift = &shift
	}
	if c.TransformWaitMillis == 0 {
		c.TransformWaitMillis = DefaultTransformWaitMillis
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	var err error
	if c.RightFootFrameID == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "rfoot_frame_id"))
	}
	if c.LeftFootFrameID == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "lfoot_frame_id"))
	}
	if c.RightFootFrameID != "" && c.RightFootFrameID == c.LeftFootFrameID {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("rfoot_frame_id and lfoot_frame_id must differ, both are %q", c.LeftFootFrameID)))
	}
	if c.MapFrameID == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "map_frame_id"))
	}
	if c.Accuracy.Footstep.X < 0 || c.Accuracy.Footstep.Y < 0 || c.Accuracy.Footstep.Theta < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("accuracy.footstep must not be negative")))
	}
	if c.Accuracy.CellSize < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("accuracy.cell_size must not be negative")))
	}
	if c.Accuracy.NumAngleBins < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("accuracy.num_angle_bins must not be negative")))
	}
	if c.FeedbackFrequency <= 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("feedback_frequency must be positive, got %f", c.FeedbackFrequency)))
	}
	if c.ExecutionShift != nil && *c.ExecutionShift < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("execution_shift must not be negative")))
	}
	if len(c.Footsteps.X) != len(c.Footsteps.Y) || len(c.Footsteps.X) != len(c.Footsteps.Theta) {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf(
			"footsteps.x, footsteps.y and footsteps.theta must have the same length, got %d, %d and %d",
			len(c.Footsteps.X), len(c.Footsteps.Y), len(c.Footsteps.Theta))))
	}
	return err
}

// Tolerances returns the footstep accuracy and discretization.
func (c *Config) Tolerances() footstep.Tolerances {
	return footstep.Tolerances{
		AccuracyX:     c.Accuracy.Footstep.X,
		AccuracyY:     c.Accuracy.Footstep.Y,
		AccuracyTheta: c.Accuracy.Footstep.Theta,
		CellSize:      c.Accuracy.CellSize,
		NumAngleBins:  c.Accuracy.NumAngleBins,
	}
}

// Protective reports whether footsteps are executed one at a time.
func (c *Config) Protective() bool {
	return c.ProtectiveExecution == nil || *c.ProtectiveExecution
}

// Shift is the number of feedback steps the actuator reports ahead of the foot actually landing.
func (c *Config) Shift() int {
	if c.ExecutionShift == nil {
		return DefaultExecutionShift
	}
	return *c.ExecutionShift
}

// TransformWait is how long a pose lookup waits for a transform.
func (c *Config) TransformWait() time.Duration {
	return time.Duration(c.TransformWaitMillis) * time.Millisecond
}

// EqualStepsThreshold is the number of consecutive unchanged feedback ticks that would count as a
// stall. It is derived from the feedback frequency.
func (c *Config) EqualStepsThreshold() int {
	return int((0.5 / c.FeedbackFrequency) * 0.5)
}

// ExampleFootsteps returns the configured example steps, all assigned to the left leg.
func (c *Config) ExampleFootsteps() []footstep.StepCommand {
	n := min(len(c.Footsteps.X), len(c.Footsteps.Y), len(c.Footsteps.Theta))
	return lo.Map(c.Footsteps.X[:n], func(x float64, i int) footstep.StepCommand {
		return footstep.StepCommand{X: x, Y: c.Footsteps.Y[i], Theta: c.Footsteps.Theta[i], Leg: footstep.Left}
	})
}
