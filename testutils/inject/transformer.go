package inject

import (
	"context"
	"time"

	"github.com/viamrobotics/footstepnav/posesource"
	"github.com/viamrobotics/footstepnav/spatialmath"
)

// Transformer is an injected transform provider.
type Transformer struct {
	posesource.Transformer
	WaitForTransformFunc func(
		ctx context.Context,
		referenceFrame, frameID string,
		at time.Time,
		timeout time.Duration,
	) error
	LookupLatestFunc func(referenceFrame, frameID string) (spatialmath.Pose2D, time.Time, error)
}

// WaitForTransform calls the injected WaitForTransform or the real version.
func (tf *Transformer) WaitForTransform(
	ctx context.Context,
	referenceFrame, frameID string,
	at time.Time,
	timeout time.Duration,
) error {
	if tf.WaitForTransformFunc == nil {
		return tf.Transformer.WaitForTransform(ctx, referenceFrame, frameID, at, timeout)
	}
	return tf.WaitForTransformFunc(ctx, referenceFrame, frameID, at, timeout)
}

// LookupLatest calls the injected LookupLatest or the real version.
func (tf *Transformer) LookupLatest(referenceFrame, frameID string) (spatialmath.Pose2D, time.Time, error) {
	if tf.LookupLatestFunc == nil {
		return tf.Transformer.LookupLatest(referenceFrame, frameID)
	}
	return tf.LookupLatestFunc(referenceFrame, frameID)
}
