package spatialmath

import (
	"math"

	"github.com/golang/geo/s1"
)

// NormalizeAngle maps an angle in radians into (-pi, pi].
func NormalizeAngle(theta float64) float64 {
	return s1.Angle(theta).Normalized().Radians()
}

// ShortestAngularDistance returns the signed angle, in radians, that must be added to from to
// reach to, taking wraparound into account. The result lies in (-pi, pi].
func ShortestAngularDistance(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// AngleWithin reports whether two angles are no further apart than tolerance, measured along the
// shortest arc.
func AngleWithin(a, b, tolerance float64) bool {
	return math.Abs(ShortestAngularDistance(a, b)) <= tolerance
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}
