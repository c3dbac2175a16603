package gesture

import (
	"errors"
	"math"
)

// ErrInvalidCanvas is returned when the canvas has a non-positive dimension.
var ErrInvalidCanvas = errors.New("canvas dimensions must be positive")

// Point is a 2D point in canvas pixels, y growing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is the geometry measured for one frame.
type Sample struct {
	A            Point   `json:"a"` // left palm, pixels
	B            Point   `json:"b"` // right palm, pixels
	Radius       float64 `json:"radius"`
	Angle        float64 `json:"-"` // radians
	AngleDegrees float64 `json:"angle_degrees"`
}

// Midpoint returns the pixel midpoint between the two palms.
func (s Sample) Midpoint() Point {
	return Point{X: (s.A.X + s.B.X) / 2, Y: (s.A.Y + s.B.Y) / 2}
}

// ToPixels scales a normalized point to a width x height canvas.
// No horizontal flip is applied: mirrored input is expected to already be
// mirrored in the landmarks.
func ToPixels(c PalmCenter, width, height float64) Point {
	return Point{X: c.X * width, Y: c.Y * height}
}

// Measure returns the sample for two pixel points.
//
// The angle is 0 when the hands are level with b to the right of a, and
// positive when b is lower on screen. Coincident points give the neutral
// sample (radius 0, angle 0).
func Measure(a, b Point) Sample {
	vx := b.X - a.X
	vy := b.Y - a.Y

	theta := math.Atan2(vy, vx)
	deg := theta * 180 / math.Pi
	// atan2 yields -pi only for a signed zero y with negative x; fold it into +180.
	if deg <= -180 {
		deg += 360
		theta += 2 * math.Pi
	}

	return Sample{
		A:            a,
		B:            b,
		Radius:       math.Hypot(vx, vy),
		Angle:        theta,
		AngleDegrees: deg,
	}
}

// Extract converts a hand pair to pixel space and measures it.
func Extract(pair HandPair, width, height float64) (Sample, error) {
	if !(width > 0) || !(height > 0) {
		return Sample{}, ErrInvalidCanvas
	}
	return Measure(ToPixels(pair.Left, width, height), ToPixels(pair.Right, width, height)), nil
}
