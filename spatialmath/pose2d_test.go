package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(0), test.ShouldEqual, 0)
	test.That(t, NormalizeAngle(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(-3*math.Pi/2), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, NormalizeAngle(5*math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldAlmostEqual, math.Pi)
}

func TestShortestAngularDistance(t *testing.T) {
	test.That(t, ShortestAngularDistance(0.1, 0.3), test.ShouldAlmostEqual, 0.2)
	test.That(t, ShortestAngularDistance(0.3, 0.1), test.ShouldAlmostEqual, -0.2)

	// across the +-pi seam the short way round is tiny even though raw subtraction is ~2pi
	d := ShortestAngularDistance(3.13, -3.14)
	test.That(t, d, test.ShouldAlmostEqual, 2*math.Pi-6.27, 1e-9)
	test.That(t, math.Abs(d), test.ShouldBeLessThan, 0.05)
	test.That(t, AngleWithin(3.13, -3.14, 0.05), test.ShouldBeTrue)
	test.That(t, AngleWithin(0, 0.06, 0.05), test.ShouldBeFalse)
}

func TestPoseBetween(t *testing.T) {
	t.Run("identity frame", func(t *testing.T) {
		rel := PoseBetween(NewZeroPose(), NewPose2D(0.04, 0.1, 0.2))
		test.That(t, rel.X, test.ShouldAlmostEqual, 0.04)
		test.That(t, rel.Y, test.ShouldAlmostEqual, 0.1)
		test.That(t, rel.Theta, test.ShouldAlmostEqual, 0.2)
	})

	t.Run("rotated frame", func(t *testing.T) {
		from := NewPose2D(1, 1, math.Pi/2)
		to := NewPose2D(1, 2, math.Pi/2)
		rel := PoseBetween(from, to)
		test.That(t, rel.X, test.ShouldAlmostEqual, 1)
		test.That(t, rel.Y, test.ShouldAlmostEqual, 0)
		test.That(t, rel.Theta, test.ShouldAlmostEqual, 0)
	})

	t.Run("compose inverts", func(t *testing.T) {
		from := NewPose2D(-0.3, 2.5, 2.9)
		to := NewPose2D(-0.25, 2.61, -3.05)
		back := Compose(from, PoseBetween(from, to))
		test.That(t, PoseAlmostEqual(back, to, 1e-9), test.ShouldBeTrue)
	})
}
