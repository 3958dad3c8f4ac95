// Package fake implements a footstep planner that walks in straight lines. It turns in place to
// face the goal, walks to it, and turns in place to the goal heading, rejecting any path that
// crosses an obstacle.
package fake

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/footstep"
	"github.com/viamrobotics/footstepnav/gridmap"
	"github.com/viamrobotics/footstepnav/planner"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

var _ = planner.Planner(&Planner{})

// Config is used for converting fake planner attributes.
type Config struct {
	StepLength     float64 `json:"step_length,omitempty"`
	FootSeparation float64 `json:"foot_separation,omitempty"`
	MaxTurn        float64 `json:"max_turn,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	if conf.StepLength < 0 || conf.FootSeparation < 0 || conf.MaxTurn < 0 {
		return errors.New("fake planner step_length, foot_separation and max_turn must not be negative")
	}
	return nil
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
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if conf.StepLength == 0 {
		conf.StepLength = 0.1
	}
	if conf.FootSeparation == 0 {
		conf.FootSeparation = 0.16
	}
	if conf.MaxTurn == 0 {
		conf.MaxTurn = 0.25
	}
	return &conf, nil
}

// Planner is a straight-line footstep planner. It is safe for concurrent use.
type Planner struct {
	conf       Config
	tolerances footstep.Tolerances
	logger     golog.Logger

	mu         sync.Mutex
	grid       *gridmap.GridMap2D
	startLeft  footstep.State
	startRight footstep.State
	goal       spatialmath.Pose2D
	hasStart   bool
	hasGoal    bool
	path       footstep.Path
	plans      int
	replans    int
}

// NewPlanner returns a planner that discretizes states to the given tolerances' cell size and
// angle bins.
func NewPlanner(attributes map[string]interface{}, tolerances footstep.Tolerances, logger golog.Logger) (*Planner, error) {
	conf, err := DecodeConfig(attributes)
	if err != nil {
		return nil, err
	}
	return &Planner{conf: *conf, tolerances: tolerances, logger: logger}, nil
}

// SetStart implements planner.Planner.
func (p *Planner) SetStart(ctx context.Context, left, right footstep.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.free(left) || !p.free(right) {
		return errors.Errorf("start feet %v and %v are not free", left, right)
	}
	p.startLeft = p.discretize(left)
	p.startRight = p.discretize(right)
	p.hasStart = true
	return nil
}

// SetGoal implements planner.Planner.
func (p *Planner) SetGoal(ctx context.Context, goal spatialmath.Pose2D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.grid != nil && p.grid.IsOccupied(goal.X, goal.Y) {
		return errors.Errorf("goal %v is occupied", goal)
	}
	p.goal = goal
	p.hasGoal = true
	return nil
}

// Plan implements planner.Planner.
func (p *Planner) Plan(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plans++
	return p.plan(ctx)
}

// Replan implements planner.Planner. A straight line has nothing to reuse, so replanning plans
// from scratch.
func (p *Planner) Replan(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replans++
	return p.plan(ctx)
}

// UpdateMap implements planner.Planner.
func (p *Planner) UpdateMap(ctx context.Context, m *gridmap.GridMap2D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grid = m
	return nil
}

// Path implements planner.Planner.
func (p *Planner) Path() footstep.Path {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path.Clone()
}

// StartFootLeft implements planner.Planner.
func (p *Planner) StartFootLeft() footstep.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLeft
}

// StartFootRight implements planner.Planner.
func (p *Planner) StartFootRight() footstep.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startRight
}

// Counts returns how many times Plan and Replan were called.
func (p *Planner) Counts() (plans, replans int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plans, p.replans
}

// plan must be called with mu held.
func (p *Planner) plan(ctx context.Context) error {
	if !p.hasStart || !p.hasGoal {
		return errors.New("start and goal must be set before planning")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	left, right := p.startLeft.Pose(), p.startRight.Pose()
	center := spatialmath.NewPose2D(
		(left.X+right.X)/2,
		(left.Y+right.Y)/2,
		left.Theta+spatialmath.ShortestAngularDistance(left.Theta, right.Theta)/2,
	)

	// the right foot supports the first step
	path := footstep.Path{p.startRight}
	leg := footstep.Left
	place := func(c spatialmath.Pose2D) error {
		s := p.discretize(p.footAt(c, leg))
		if !p.free(s) {
			return errors.Errorf("footstep %v is occupied", s)
		}
		path = append(path, s)
		leg = leg.Opposite()
		return nil
	}

	delta := p.goal.Point().Sub(center.Point())
	dist := delta.Norm()
	heading := center.Theta
	if dist > p.tolerances.CellSize {
		heading = math.Atan2(delta.Y, delta.X)
	}

	for _, c := range p.turn(center, heading) {
		if err := place(c); err != nil {
			return err
		}
	}
	last := spatialmath.NewPose2D(center.X, center.Y, heading)
	if dist > p.tolerances.CellSize {
		n := int(math.Ceil(dist / p.conf.StepLength))
		for k := 1; k <= n; k++ {
			frac := float64(k) / float64(n)
			last = spatialmath.NewPose2D(center.X+delta.X*frac, center.Y+delta.Y*frac, heading)
			if err := place(last); err != nil {
				return err
			}
		}
	}
	for _, c := range p.turn(last, p.goal.Theta) {
		if err := place(c); err != nil {
			return err
		}
		last = c
	}
	// bring the trailing foot alongside
	if err := place(last); err != nil {
		return err
	}

	p.path = path
	p.logger.Debugw("planned footstep path", "steps", len(path), "goal", p.goal)
	return nil
}

// turn returns the stances that rotate in place from c to heading, at most MaxTurn apart.
func (p *Planner) turn(c spatialmath.Pose2D, heading float64) []spatialmath.Pose2D {
	diff := spatialmath.ShortestAngularDistance(c.Theta, heading)
	n := int(math.Ceil(math.Abs(diff) / p.conf.MaxTurn))
	stances := make([]spatialmath.Pose2D, 0, n)
	for k := 1; k <= n; k++ {
		stances = append(stances, spatialmath.NewPose2D(c.X, c.Y, c.Theta+diff*float64(k)/float64(n)))
	}
	return stances
}

// footAt places leg's foot beside the stance center c.
func (p *Planner) footAt(c spatialmath.Pose2D, leg footstep.Leg) footstep.State {
	offset := p.conf.FootSeparation / 2
	if leg == footstep.Right {
		offset = -offset
	}
	return footstep.StateFromPose(spatialmath.Compose(c, spatialmath.Pose2D{Y: offset}), leg)
}

// discretize snaps s to the planner's state lattice.
func (p *Planner) discretize(s footstep.State) footstep.State {
	if p.tolerances.CellSize > 0 {
		s.X = math.Round(s.X/p.tolerances.CellSize) * p.tolerances.CellSize
		s.Y = math.Round(s.Y/p.tolerances.CellSize) * p.tolerances.CellSize
	}
	if p.tolerances.NumAngleBins > 0 {
		bin := 2 * math.Pi / float64(p.tolerances.NumAngleBins)
		s.Theta = spatialmath.NormalizeAngle(math.Round(s.Theta/bin) * bin)
	}
	return s
}

func (p *Planner) free(s footstep.State) bool {
	return p.grid == nil || !p.grid.IsOccupied(s.X, s.Y)
}
