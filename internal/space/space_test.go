package space

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handwheel/internal/transform"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got r3.Vec, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tol, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tol, msgAndArgs...)
}

func TestPixelToNDC(t *testing.T) {
	tests := []struct {
		name  string
		x, y  float64
		wantX float64
		wantY float64
	}{
		{"top left", 0, 0, -1, 1},
		{"bottom right", 640, 480, 1, -1},
		{"center", 320, 240, 0, 0},
		{"quarter", 160, 360, -0.5, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := PixelToNDC(tt.x, tt.y, 640, 480)
			assert.InDelta(t, tt.wantX, x, tol)
			assert.InDelta(t, tt.wantY, y, tol)
		})
	}
}

func TestCamera_Forward(t *testing.T) {
	cam := DefaultCamera()
	assertVec(t, r3.Vec{Z: -1}, cam.Forward())

	// Turn the camera a quarter turn about +Y: it now looks down -X
	cam.Orientation = transform.FromAxisAngle(r3.Vec{Y: 1}, math.Pi/2)
	assertVec(t, r3.Vec{X: -1}, cam.Forward())
}

func TestCamera_UnprojectCenterLiesOnAxis(t *testing.T) {
	cam := DefaultCamera()

	p, err := cam.Unproject(r3.Vec{Z: 0.5})
	require.NoError(t, err)

	// Solve the projection's depth row for z_ndc = 0.5
	c := -(cam.Far + cam.Near) / (cam.Far - cam.Near)
	d := -2 * cam.Far * cam.Near / (cam.Far - cam.Near)
	zCam := d / (-0.5 - c)

	assertVec(t, r3.Vec{Z: cam.Position.Z + zCam}, p)
}

func TestCamera_UnprojectFrustumEdge(t *testing.T) {
	cam := DefaultCamera()
	cam.FovY = 90
	cam.SetViewport(800, 400)

	p, err := cam.Unproject(r3.Vec{X: 1, Y: 1, Z: 0})
	require.NoError(t, err)

	local := cam.ToCamera(p)
	depth := -local.Z
	require.Greater(t, depth, 0.0)

	// At the frustum corner x/depth = aspect*tan(fov/2) and y/depth = tan(fov/2)
	assert.InDelta(t, 2.0, local.X/depth, 1e-9)
	assert.InDelta(t, 1.0, local.Y/depth, 1e-9)
}

func TestCamera_ProjectInvertsUnproject(t *testing.T) {
	cam := DefaultCamera()
	cam.Position = r3.Vec{X: 0.3, Y: -0.2, Z: 2}
	cam.Orientation = transform.FromAxisAngle(r3.Unit(r3.Vec{X: 1, Y: 1}), 0.3)

	points := []r3.Vec{
		{X: 0, Y: 0, Z: 0.5},
		{X: -0.8, Y: 0.4, Z: 0.2},
		{X: 0.9, Y: -0.9, Z: 0.95},
		{X: 0.1, Y: 0.7, Z: -0.5},
	}

	for _, ndc := range points {
		world, err := cam.Unproject(ndc)
		require.NoError(t, err)

		back, err := cam.Project(world)
		require.NoError(t, err)

		assert.InDelta(t, ndc.X, back.X, 1e-7)
		assert.InDelta(t, ndc.Y, back.Y, 1e-7)
		assert.InDelta(t, ndc.Z, back.Z, 1e-7)
	}
}

func TestCamera_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Camera)
	}{
		{"zero fov", func(c *Camera) { c.FovY = 0 }},
		{"straight fov", func(c *Camera) { c.FovY = 180 }},
		{"zero aspect", func(c *Camera) { c.Aspect = 0 }},
		{"negative near", func(c *Camera) { c.Near = -1 }},
		{"far before near", func(c *Camera) { c.Far = c.Near / 2 }},
		{"zero orientation", func(c *Camera) { c.Orientation.Real = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := DefaultCamera()
			tt.mutate(&cam)

			_, err := cam.Unproject(r3.Vec{})
			assert.True(t, errors.Is(err, ErrInvalidCamera), "got %v", err)
		})
	}

	assert.NoError(t, DefaultCamera().Validate())
}

func TestCamera_SetViewportIgnoresEmpty(t *testing.T) {
	cam := DefaultCamera()
	cam.SetViewport(0, 100)
	assert.Equal(t, 640.0, cam.Width)

	cam.SetViewport(1280, 720)
	assert.Equal(t, 1280.0, cam.Width)
	assert.Equal(t, 720.0, cam.Height)
	assert.InDelta(t, 1280.0/720.0, cam.Aspect, tol)
}

func TestCamera_PixelsPerWorldUnit(t *testing.T) {
	cam := DefaultCamera()
	cam.FovY = 90
	cam.SetViewport(400, 400)

	assert.InDelta(t, 200.0, cam.PixelsPerWorldUnit(), 1e-9)

	cam = DefaultCamera()
	want := 480 / (2 * math.Tan(25*math.Pi/180))
	assert.InDelta(t, want, cam.PixelsPerWorldUnit(), 1e-9)
}

func TestConverter_AnchorPosition(t *testing.T) {
	cam := DefaultCamera()
	conv := NewConverter(cam)

	center, err := conv.AnchorPosition(320, 240, 640, 480)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, center.X, tol)
	assert.InDelta(t, 0.0, center.Y, tol)

	// Pixel right of center maps to +X, pixel below center to -Y
	p, err := conv.AnchorPosition(480, 360, 640, 480)
	require.NoError(t, err)
	assert.Greater(t, p.X, 0.0)
	assert.Less(t, p.Y, 0.0)
	assert.InDelta(t, center.Z, p.Z, tol)

	_, err = conv.AnchorPosition(10, 10, 0, 480)
	assert.Error(t, err)
}

func TestConverter_SolveScale(t *testing.T) {
	cam := DefaultCamera()
	cam.FovY = 90
	cam.SetViewport(400, 400) // 200 pixels per world unit

	conv := NewConverter(cam)
	conv.ObjectRadius = 0.5
	conv.RadiusFraction = 0.5
	conv.MinPixelRadius = 10

	t.Run("matches the desired radius", func(t *testing.T) {
		// 300px between hands -> 150px radius -> 150 / (0.5 * 200)
		s, err := conv.SolveScale(300, r3.Vec{})
		require.NoError(t, err)
		assert.InDelta(t, 1.5, s, tol)
	})

	t.Run("small radius uses the pixel floor", func(t *testing.T) {
		s, err := conv.SolveScale(4, r3.Vec{})
		require.NoError(t, err)
		assert.InDelta(t, 10.0/100.0, s, tol)
	})

	t.Run("clamps to the scale bounds", func(t *testing.T) {
		c := *conv
		c.MinScale = 0.5
		c.MaxScale = 1.2

		s, err := c.SolveScale(0, r3.Vec{})
		require.NoError(t, err)
		assert.Equal(t, 0.5, s)

		s, err = c.SolveScale(10000, r3.Vec{})
		require.NoError(t, err)
		assert.Equal(t, 1.2, s)
	})

	t.Run("ignores object depth by default", func(t *testing.T) {
		near, err := conv.SolveScale(300, r3.Vec{Z: 1})
		require.NoError(t, err)
		far, err := conv.SolveScale(300, r3.Vec{Z: -20})
		require.NoError(t, err)
		assert.Equal(t, near, far)
	})

	t.Run("depth aware scales with distance", func(t *testing.T) {
		c := *conv
		c.DepthAware = true
		// Camera sits at z=1.5, so an object at z=-0.5 is 2 units away
		s, err := c.SolveScale(300, r3.Vec{Z: -0.5})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, s, tol)

		_, err = c.SolveScale(300, r3.Vec{Z: 5})
		assert.ErrorIs(t, err, ErrNumericDegeneracy)
	})

	t.Run("degenerate object radius", func(t *testing.T) {
		c := *conv
		c.ObjectRadius = 1e-9
		_, err := c.SolveScale(300, r3.Vec{})
		assert.ErrorIs(t, err, ErrNumericDegeneracy)
	})

	t.Run("degenerate viewport", func(t *testing.T) {
		c := *conv
		c.Camera.Height = 0
		_, err := c.SolveScale(300, r3.Vec{})
		assert.ErrorIs(t, err, ErrNumericDegeneracy)
	})
}
