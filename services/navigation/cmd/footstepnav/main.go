// Package main walks a simulated humanoid to a goal with the footstep navigation service.
package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	robotfake "github.com/viamrobotics/footstepnav/actuator/fake"
	"github.com/viamrobotics/footstepnav/config"
	"github.com/viamrobotics/footstepnav/gridmap"
	plannerfake "github.com/viamrobotics/footstepnav/planner/fake"
	"github.com/viamrobotics/footstepnav/posesource"
	"github.com/viamrobotics/footstepnav/services/navigation"
	"github.com/viamrobotics/footstepnav/services/navigation/builtin"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

const (
	mapSizeMeters  = 20.0
	mapResolution  = 0.05
	poseFeedPeriod = 50 * time.Millisecond
	pollPeriod     = 50 * time.Millisecond
)

var logger = golog.NewDevelopmentLogger("footstepnav")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=navigation config file"`
	Goal       string `flag:"goal,usage=goal pose in the map frame as x,y,theta"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	goal, err := parseGoal(argsParsed.Goal)
	if err != nil {
		return err
	}
	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	return navigate(ctx, cfg, goal, logger)
}

// parseGoal parses "x,y,theta". Whitespace around each value is ignored.
func parseGoal(s string) (spatialmath.Pose2D, error) {
	if s == "" {
		return spatialmath.Pose2D{}, errors.New("a goal is required")
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return spatialmath.Pose2D{}, errors.Errorf("goal %q must be x,y,theta", s)
	}
	var values [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return spatialmath.Pose2D{}, errors.Wrapf(err, "invalid goal %q", s)
		}
		values[i] = v
	}
	return spatialmath.NewPose2D(values[0], values[1], values[2]), nil
}

// freeMap is an empty occupancy grid centered on the map origin.
func freeMap(frameID string) *gridmap.OccupancyGrid {
	cells := int(mapSizeMeters / mapResolution)
	return &gridmap.OccupancyGrid{
		FrameID:    frameID,
		Resolution: mapResolution,
		Width:      cells,
		Height:     cells,
		Origin:     spatialmath.NewPose2D(-mapSizeMeters/2, -mapSizeMeters/2, 0),
		Data:       make([]int8, cells*cells),
	}
}

// stanceCenter is the pose midway between both feet.
func stanceCenter(left, right spatialmath.Pose2D) spatialmath.Pose2D {
	return spatialmath.NewPose2D(
		(left.X+right.X)/2,
		(left.Y+right.Y)/2,
		left.Theta+spatialmath.ShortestAngularDistance(left.Theta, right.Theta)/2,
	)
}

// navigate walks a simulated robot to goal and returns an error unless the last run succeeded.
func navigate(ctx context.Context, cfg *config.Config, goal spatialmath.Pose2D, logger golog.Logger) (err error) {
	buffer := posesource.NewBuffer(cfg.MapFrameID, nil)
	robot, err := robotfake.NewRobot(cfg.Fake.Robot, cfg.LeftFootFrameID, cfg.RightFootFrameID, buffer, nil, logger.Named("robot"))
	if err != nil {
		return errors.Wrap(err, "failed to create simulated robot")
	}
	defer func() {
		err = multierr.Combine(err, robot.Close(context.Background()))
	}()

	p, err := plannerfake.NewPlanner(cfg.Fake.Planner, cfg.Tolerances(), logger.Named("planner"))
	if err != nil {
		return errors.Wrap(err, "failed to create planner")
	}

	nav, err := builtin.NewSupervisor(ctx, cfg, builtin.Dependencies{
		Planner:      p,
		Transformer:  buffer,
		Clipper:      robot,
		StepService:  robot,
		ActionClient: robot,
	}, logger.Named("navigation"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, nav.Close(context.Background()))
	}()

	if err := nav.HandleMapUpdate(ctx, freeMap(cfg.MapFrameID)); err != nil {
		return err
	}

	feeder := utils.NewStoppableWorkerWithTicker(poseFeedPeriod, func(ctx context.Context) {
		nav.HandleRobotPoseUpdate(stanceCenter(robot.Feet()), time.Now())
	})
	defer feeder.Stop()

	if err := nav.HandleGoal(ctx, goal); err != nil {
		return err
	}
	for nav.Executing() {
		if !utils.SelectContextOrWait(ctx, pollPeriod) {
			return ctx.Err()
		}
	}

	history := nav.History()
	if len(history) == 0 {
		return errors.New("no navigation run was recorded")
	}
	last := history[0]
	left, right := robot.Feet()
	logger.Infow("navigation finished",
		"run", last.ID,
		"state", last.State,
		"replans", len(history)-1,
		"steps", robot.Landed(),
		"left", left,
		"right", right,
	)
	if last.State != navigation.RunStateSucceeded {
		return errors.Errorf("navigation %s: %s", last.State, last.Err)
	}
	return nil
}
