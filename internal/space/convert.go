package space

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNumericDegeneracy is returned when the scale solve would divide by a
// near-zero quantity. Callers keep the previous scale for that frame.
var ErrNumericDegeneracy = errors.New("scale solve is numerically degenerate")

// degenerateEpsilon bounds the object radius and pixel density below which
// the scale solve is skipped.
const degenerateEpsilon = 1e-6

// PixelToNDC maps a canvas pixel (y down) to normalized device coordinates (y up).
func PixelToNDC(x, y, width, height float64) (ndcX, ndcY float64) {
	return 2*x/width - 1, -(2*y/height - 1)
}

// Converter turns steering geometry into a world-space target position and
// a target scale for the rendered object.
type Converter struct {
	Camera Camera

	// ReferenceDepth is the NDC z at which the pixel anchor is unprojected.
	ReferenceDepth float64

	// The object's on-screen radius is RadiusFraction of the hand distance,
	// never less than MinPixelRadius.
	RadiusFraction float64
	MinPixelRadius float64

	// ObjectRadius is the object's bounding radius in world units at scale 1.
	ObjectRadius float64

	// Solved scales are clamped to [MinScale, MaxScale]; MaxScale 0 disables the upper bound.
	MinScale float64
	MaxScale float64

	// DepthAware divides the pixel density by the object's real view depth.
	// Off by default: the solve assumes the object sits at depth 1 so its size
	// follows the hand distance rather than its distance from the camera.
	DepthAware bool
}

// NewConverter returns a Converter with the default wheel parameters.
func NewConverter(cam Camera) *Converter {
	return &Converter{
		Camera:         cam,
		ReferenceDepth: 0.5,
		RadiusFraction: 0.5,
		MinPixelRadius: 10,
		ObjectRadius:   0.57,
		MinScale:       0.01,
	}
}

// AnchorPosition unprojects the pixel point (x, y) on a width x height canvas
// to world space at the reference depth.
func (c *Converter) AnchorPosition(x, y, width, height float64) (r3.Vec, error) {
	if !(width > 0) || !(height > 0) {
		return r3.Vec{}, fmt.Errorf("%w: canvas %vx%v", ErrInvalidCamera, width, height)
	}
	ndcX, ndcY := PixelToNDC(x, y, width, height)
	return c.Camera.Unproject(r3.Vec{X: ndcX, Y: ndcY, Z: c.ReferenceDepth})
}

// DesiredPixelRadius returns the on-screen radius the object should have for
// a hand distance of radiusPx.
func (c *Converter) DesiredPixelRadius(radiusPx float64) float64 {
	return math.Max(c.MinPixelRadius, radiusPx*c.RadiusFraction)
}

// SolveScale returns the scale that makes the object's on-screen radius match
// DesiredPixelRadius(radiusPx). objectPos is only consulted when DepthAware is set.
func (c *Converter) SolveScale(radiusPx float64, objectPos r3.Vec) (float64, error) {
	ppwu := c.Camera.PixelsPerWorldUnit()

	if c.DepthAware {
		depth := c.Camera.ViewDepth(objectPos)
		if depth < degenerateEpsilon {
			return 0, fmt.Errorf("%w: object depth %v", ErrNumericDegeneracy, depth)
		}
		ppwu /= depth
	}

	if math.Abs(c.ObjectRadius) < degenerateEpsilon || !(ppwu > degenerateEpsilon) || math.IsInf(ppwu, 0) {
		return 0, fmt.Errorf("%w: object radius %v, pixels per unit %v", ErrNumericDegeneracy, c.ObjectRadius, ppwu)
	}

	scale := c.DesiredPixelRadius(radiusPx) / (math.Abs(c.ObjectRadius) * ppwu)
	if scale < c.MinScale {
		scale = c.MinScale
	}
	if c.MaxScale > 0 && scale > c.MaxScale {
		scale = c.MaxScale
	}
	return scale, nil
}
