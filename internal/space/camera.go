// Package space converts between canvas pixels, normalized device
// coordinates and the world space of the rendered scene.
//
// The camera model follows the OpenGL convention used by browser renderers:
// right-handed world, camera looking down its local -Z axis, column vectors,
// NDC in [-1,1] on all three axes.
package space

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handwheel/internal/transform"
)

// ErrInvalidCamera is returned when camera parameters cannot form a projection.
var ErrInvalidCamera = errors.New("invalid camera parameters")

// Camera is a perspective camera with a world pose and a pixel viewport.
type Camera struct {
	FovY        float64     // vertical field of view, degrees
	Aspect      float64     // viewport width / height
	Near        float64     // near clip distance
	Far         float64     // far clip distance
	Position    r3.Vec      // world position
	Orientation quat.Number // world orientation, unit quaternion

	// Viewport size in pixels.
	Width  float64
	Height float64
}

// DefaultCamera returns the scene camera: 50° vertical FOV, clip planes at
// 0.1 and 1000, placed 1.5 units in front of the origin looking at it.
func DefaultCamera() Camera {
	return Camera{
		FovY:        50,
		Aspect:      640.0 / 480.0,
		Near:        0.1,
		Far:         1000,
		Position:    r3.Vec{X: 0, Y: 0, Z: 1.5},
		Orientation: transform.Identity,
		Width:       640,
		Height:      480,
	}
}

// SetViewport resizes the viewport and updates the aspect ratio to match.
// Non-positive sizes are ignored.
func (c *Camera) SetViewport(width, height float64) {
	if !(width > 0) || !(height > 0) {
		return
	}
	c.Width = width
	c.Height = height
	c.Aspect = width / height
}

// Validate checks that the camera can produce an invertible projection.
func (c Camera) Validate() error {
	switch {
	case !(c.FovY > 0 && c.FovY < 180):
		return fmt.Errorf("%w: fov %v must be in (0, 180)", ErrInvalidCamera, c.FovY)
	case !(c.Aspect > 0):
		return fmt.Errorf("%w: aspect %v must be positive", ErrInvalidCamera, c.Aspect)
	case !(c.Near > 0) || !(c.Far > c.Near):
		return fmt.Errorf("%w: need 0 < near (%v) < far (%v)", ErrInvalidCamera, c.Near, c.Far)
	case quat.Abs(c.Orientation) < 1e-9:
		return fmt.Errorf("%w: zero orientation", ErrInvalidCamera)
	}
	return nil
}

// halfFovTan returns tan(fovY/2).
func (c Camera) halfFovTan() float64 {
	return math.Tan(c.FovY * math.Pi / 360)
}

// Projection returns the 4x4 perspective projection matrix.
func (c Camera) Projection() *mat.Dense {
	f := 1 / c.halfFovTan()
	depth := c.Far - c.Near
	return mat.NewDense(4, 4, []float64{
		f / c.Aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -(c.Far + c.Near) / depth, -2 * c.Far * c.Near / depth,
		0, 0, -1, 0,
	})
}

// Forward returns the world direction the camera is looking along.
func (c Camera) Forward() r3.Vec {
	return r3.Unit(transform.Rotate(c.Orientation, r3.Vec{Z: -1}))
}

// ToCamera transforms a world point into the camera's local frame.
func (c Camera) ToCamera(world r3.Vec) r3.Vec {
	return transform.Rotate(quat.Conj(c.Orientation), r3.Sub(world, c.Position))
}

// ToWorld transforms a point in the camera's local frame into world space.
func (c Camera) ToWorld(local r3.Vec) r3.Vec {
	return r3.Add(transform.Rotate(c.Orientation, local), c.Position)
}

// Unproject maps an NDC point back into world space through the inverse
// projection followed by the camera's world transform.
func (c Camera) Unproject(ndc r3.Vec) (r3.Vec, error) {
	if err := c.Validate(); err != nil {
		return r3.Vec{}, err
	}

	var inv mat.Dense
	if err := inv.Inverse(c.Projection()); err != nil {
		return r3.Vec{}, fmt.Errorf("invert projection: %w", err)
	}

	local, err := applyHomogeneous(&inv, ndc)
	if err != nil {
		return r3.Vec{}, err
	}
	return c.ToWorld(local), nil
}

// Project maps a world point to NDC. It is the inverse of Unproject.
func (c Camera) Project(world r3.Vec) (r3.Vec, error) {
	if err := c.Validate(); err != nil {
		return r3.Vec{}, err
	}
	return applyHomogeneous(c.Projection(), c.ToCamera(world))
}

// ViewDepth returns the distance of a world point in front of the camera,
// measured along the forward axis. Points behind the camera are negative.
func (c Camera) ViewDepth(world r3.Vec) float64 {
	return -c.ToCamera(world).Z
}

// PixelsPerWorldUnit returns how many viewport pixels one world unit spans
// at a depth of 1 in front of the camera.
func (c Camera) PixelsPerWorldUnit() float64 {
	return c.Height / (2 * c.halfFovTan())
}

// applyHomogeneous multiplies (p, 1) by m and performs the perspective divide.
func applyHomogeneous(m mat.Matrix, p r3.Vec) (r3.Vec, error) {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))

	w := out.AtVec(3)
	if math.Abs(w) < 1e-12 {
		return r3.Vec{}, fmt.Errorf("%w: point at infinity", ErrInvalidCamera)
	}
	return r3.Vec{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: out.AtVec(2) / w}, nil
}
