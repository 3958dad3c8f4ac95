package posesource

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

type stampedPose struct {
	pose  spatialmath.Pose2D
	stamp time.Time
}

// Buffer is an in-memory Transformer holding the latest pose of each frame relative to a single
// reference frame. Publishers call Set; waiters are woken on every update.
type Buffer struct {
	referenceFrame string
	clock          clock.Clock

	mu      sync.Mutex
	frames  map[string]stampedPose
	updated chan struct{}
}

// NewBuffer returns an empty buffer whose frames are all expressed in referenceFrame.
func NewBuffer(referenceFrame string, clk clock.Clock) *Buffer {
	if clk == nil {
		clk = clock.New()
	}
	return &Buffer{
		referenceFrame: referenceFrame,
		clock:          clk,
		frames:         map[string]stampedPose{},
		updated:        make(chan struct{}),
	}
}

// ReferenceFrame is the frame every stored pose is expressed in.
func (b *Buffer) ReferenceFrame() string {
	return b.referenceFrame
}

// Set stores the pose of frameID observed at stamp and wakes any waiters.
func (b *Buffer) Set(frameID string, pose spatialmath.Pose2D, stamp time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[frameID] = stampedPose{pose: pose, stamp: stamp}
	close(b.updated)
	b.updated = make(chan struct{})
}

// WaitForTransform implements Transformer.
func (b *Buffer) WaitForTransform(
	ctx context.Context,
	referenceFrame, frameID string,
	at time.Time,
	timeout time.Duration,
) error {
	if referenceFrame != b.referenceFrame {
		return errors.Errorf("no transform from %q to %q", b.referenceFrame, referenceFrame)
	}
	timer := b.clock.Timer(timeout)
	defer timer.Stop()
	for {
		b.mu.Lock()
		sample, ok := b.frames[frameID]
		updated := b.updated
		b.mu.Unlock()
		if ok && (at.IsZero() || !sample.stamp.Before(at)) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if !ok {
				return errors.Errorf("frame %q does not exist", frameID)
			}
			return errors.Errorf("frame %q has no sample at %v, latest is %v", frameID, at, sample.stamp)
		case <-updated:
		}
	}
}

// LookupLatest implements Transformer.
func (b *Buffer) LookupLatest(referenceFrame, frameID string) (spatialmath.Pose2D, time.Time, error) {
	if referenceFrame != b.referenceFrame {
		return spatialmath.Pose2D{}, time.Time{}, errors.Errorf("no transform from %q to %q", b.referenceFrame, referenceFrame)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sample, ok := b.frames[frameID]
	if !ok {
		return spatialmath.Pose2D{}, time.Time{}, errors.Errorf("frame %q does not exist", frameID)
	}
	return sample.pose, sample.stamp, nil
}
