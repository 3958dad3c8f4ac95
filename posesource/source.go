// Package posesource resolves the world-frame pose of the robot's feet.
//
// A Source wraps a Transformer (the transform provider) with the locking discipline the navigator
// relies on: the last robot pose timestamp and every transform lookup share one mutex, so a lookup
// anchored at "the last time the robot pose was seen" always reads a consistent timestamp.
package posesource

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

// DefaultMaxWait is how long a lookup waits for a transform to become available.
const DefaultMaxWait = 100 * time.Millisecond

// ErrTransformUnavailable is returned when a transform could not be resolved in time. It is
// transient: callers should treat the pose as momentarily unknown.
var ErrTransformUnavailable = errors.New("transform unavailable")

// A Transformer provides frame transforms.
//
// WaitForTransform blocks until the transform of frameID in referenceFrame is available at time at,
// the timeout elapses, or ctx is done. A zero at means any sample will do. LookupLatest returns the
// most recent cached transform regardless of its time.
type Transformer interface {
	WaitForTransform(ctx context.Context, referenceFrame, frameID string, at time.Time, timeout time.Duration) error
	LookupLatest(referenceFrame, frameID string) (spatialmath.Pose2D, time.Time, error)
}

// Source is the navigator's thread-safe view of foot poses.
type Source struct {
	tf      Transformer
	clock   clock.Clock
	maxWait time.Duration
	logger  golog.Logger

	mu            sync.Mutex
	lastRobotTime time.Time
}

// NewSource returns a Source over tf. A zero maxWait uses DefaultMaxWait; a nil clk uses the wall
// clock.
func NewSource(tf Transformer, maxWait time.Duration, clk clock.Clock, logger golog.Logger) *Source {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Source{tf: tf, clock: clk, maxWait: maxWait, logger: logger}
}

// UpdateRobotTime records the timestamp of the latest robot pose observation.
func (s *Source) UpdateRobotTime(stamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRobotTime = stamp
}

// LastRobotTime returns the timestamp recorded by UpdateRobotTime.
func (s *Source) LastRobotTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRobotTime
}

// Lookup returns the pose of frameID in referenceFrame, waiting up to the configured maximum for a
// sample at time at and then returning the latest cached one.
func (s *Source) Lookup(ctx context.Context, frameID, referenceFrame string, at time.Time) (spatialmath.Pose2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(ctx, frameID, referenceFrame, at)
}

// LookupNow is Lookup anchored at the current time.
func (s *Source) LookupNow(ctx context.Context, frameID, referenceFrame string) (spatialmath.Pose2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(ctx, frameID, referenceFrame, s.clock.Now())
}

// LookupAtRobotTime resolves every frame in one critical section, anchored at the last robot pose
// timestamp.
func (s *Source) LookupAtRobotTime(
	ctx context.Context,
	referenceFrame string,
	frameIDs ...string,
) ([]spatialmath.Pose2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poses := make([]spatialmath.Pose2D, 0, len(frameIDs))
	for _, frameID := range frameIDs {
		pose, err := s.lookup(ctx, frameID, referenceFrame, s.lastRobotTime)
		if err != nil {
			return nil, err
		}
		poses = append(poses, pose)
	}
	return poses, nil
}

// lookup must be called with mu held.
func (s *Source) lookup(ctx context.Context, frameID, referenceFrame string, at time.Time) (spatialmath.Pose2D, error) {
	if err := s.tf.WaitForTransform(ctx, referenceFrame, frameID, at, s.maxWait); err != nil {
		s.logger.Warnw("failed to obtain foot transform", "frame", frameID, "reference", referenceFrame, "error", err)
		return spatialmath.Pose2D{}, errors.Wrapf(ErrTransformUnavailable, "%s in %s: %v", frameID, referenceFrame, err)
	}
	pose, _, err := s.tf.LookupLatest(referenceFrame, frameID)
	if err != nil {
		s.logger.Warnw("failed to obtain foot transform", "frame", frameID, "reference", referenceFrame, "error", err)
		return spatialmath.Pose2D{}, errors.Wrapf(ErrTransformUnavailable, "%s in %s: %v", frameID, referenceFrame, err)
	}
	return pose, nil
}
