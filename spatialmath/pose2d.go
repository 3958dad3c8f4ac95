// Package spatialmath defines the planar poses used by the footstep navigator.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose2D is a position and heading on the ground plane. Theta is in radians.
type Pose2D struct {
	X     float64
	Y     float64
	Theta float64
}

// NewPose2D returns a pose with its heading normalized into (-pi, pi].
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: NormalizeAngle(theta)}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose2D {
	return Pose2D{}
}

// Point returns the translational part of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Compose returns the pose obtained by applying other in the frame of p.
func Compose(p, other Pose2D) Pose2D {
	rotated := rotate(other.Point(), p.Theta)
	return NewPose2D(p.X+rotated.X, p.Y+rotated.Y, p.Theta+other.Theta)
}

// PoseBetween returns the pose of to expressed in the frame of from, such that
// Compose(from, PoseBetween(from, to)) == to.
func PoseBetween(from, to Pose2D) Pose2D {
	delta := rotate(to.Point().Sub(from.Point()), -from.Theta)
	return Pose2D{X: delta.X, Y: delta.Y, Theta: ShortestAngularDistance(from.Theta, to.Theta)}
}

// PoseAlmostEqual reports whether two poses match within epsilon on each translational axis and on
// the shortest arc between their headings.
func PoseAlmostEqual(a, b Pose2D, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon &&
		math.Abs(a.Y-b.Y) <= epsilon &&
		AngleWithin(a.Theta, b.Theta, epsilon)
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Theta)
}

func rotate(pt r2.Point, theta float64) r2.Point {
	c, s := math.Cos(theta), math.Sin(theta)
	return r2.Point{X: c*pt.X - s*pt.Y, Y: s*pt.X + c*pt.Y}
}
