// Package config loads handwheel tuning from a JSON file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/handwheel/internal/gesture"
	"github.com/ayusman/handwheel/internal/session"
	"github.com/ayusman/handwheel/internal/space"
	"github.com/ayusman/handwheel/internal/transform"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config is the root tuning configuration. Every field is optional; the
// Get* methods fall back to the defaults for anything left unset, so
// partial files are safe.
type Config struct {
	// Smoothing
	PositionAlpha *float64 `json:"position_alpha,omitempty"`
	RotationAlpha *float64 `json:"rotation_alpha,omitempty"`
	ScaleAlpha    *float64 `json:"scale_alpha,omitempty"`
	ReferenceFPS  *float64 `json:"reference_fps,omitempty"`

	// Scale solve
	RadiusFraction  *float64 `json:"radius_fraction,omitempty"`
	MinPixelRadius  *float64 `json:"min_pixel_radius,omitempty"`
	MinScale        *float64 `json:"min_scale,omitempty"`
	MaxScale        *float64 `json:"max_scale,omitempty"`
	ObjectRadius    *float64 `json:"object_radius,omitempty"`
	InitialScale    *float64 `json:"initial_scale,omitempty"`
	ReferenceDepth  *float64 `json:"reference_depth,omitempty"`
	DepthAwareScale *bool    `json:"depth_aware_scale,omitempty"`

	// Scene camera
	FovDegrees *float64 `json:"fov_degrees,omitempty"`
	CameraZ    *float64 `json:"camera_z,omitempty"`

	// Session
	MaxHistory         *int     `json:"max_history,omitempty"`
	MinHandednessScore *float64 `json:"min_handedness_score,omitempty"`
	Mirror             *bool    `json:"mirror,omitempty"`

	// Runtime
	Addr     *string `json:"addr,omitempty"`
	CameraID *int    `json:"camera_id,omitempty"`
	FPS      *int    `json:"fps,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	factors := transform.Factors{
		Position: c.GetPositionAlpha(),
		Rotation: c.GetRotationAlpha(),
		Scale:    c.GetScaleAlpha(),
	}
	if err := factors.Validate(); err != nil {
		return err
	}

	if c.ReferenceFPS != nil && *c.ReferenceFPS < 0 {
		return fmt.Errorf("reference_fps must be non-negative, got %f", *c.ReferenceFPS)
	}
	if c.RadiusFraction != nil && !(*c.RadiusFraction > 0) {
		return fmt.Errorf("radius_fraction must be positive, got %f", *c.RadiusFraction)
	}
	if c.MinPixelRadius != nil && *c.MinPixelRadius < 0 {
		return fmt.Errorf("min_pixel_radius must be non-negative, got %f", *c.MinPixelRadius)
	}
	if c.MinScale != nil && !(*c.MinScale > 0) {
		return fmt.Errorf("min_scale must be positive, got %f", *c.MinScale)
	}
	if maxScale := c.GetMaxScale(); maxScale != 0 && maxScale < c.GetMinScale() {
		return fmt.Errorf("max_scale %f is below min_scale %f", maxScale, c.GetMinScale())
	}
	if c.InitialScale != nil && !(*c.InitialScale > 0) {
		return fmt.Errorf("initial_scale must be positive, got %f", *c.InitialScale)
	}
	if c.ReferenceDepth != nil && (*c.ReferenceDepth < -1 || *c.ReferenceDepth > 1) {
		return fmt.Errorf("reference_depth must be between -1 and 1, got %f", *c.ReferenceDepth)
	}
	if c.FovDegrees != nil && !(*c.FovDegrees > 0 && *c.FovDegrees < 180) {
		return fmt.Errorf("fov_degrees must be between 0 and 180, got %f", *c.FovDegrees)
	}
	if c.MaxHistory != nil && *c.MaxHistory <= 0 {
		return fmt.Errorf("max_history must be positive, got %d", *c.MaxHistory)
	}
	if c.MinHandednessScore != nil && (*c.MinHandednessScore < 0 || *c.MinHandednessScore > 1) {
		return fmt.Errorf("min_handedness_score must be between 0 and 1, got %f", *c.MinHandednessScore)
	}
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", *c.FPS)
	}
	return nil
}

func (c *Config) GetPositionAlpha() float64 {
	if c.PositionAlpha == nil {
		return transform.DefaultFactors.Position
	}
	return *c.PositionAlpha
}

func (c *Config) GetRotationAlpha() float64 {
	if c.RotationAlpha == nil {
		return transform.DefaultFactors.Rotation
	}
	return *c.RotationAlpha
}

func (c *Config) GetScaleAlpha() float64 {
	if c.ScaleAlpha == nil {
		return transform.DefaultFactors.Scale
	}
	return *c.ScaleAlpha
}

func (c *Config) GetReferenceFPS() float64 {
	if c.ReferenceFPS == nil {
		return 0
	}
	return *c.ReferenceFPS
}

func (c *Config) GetRadiusFraction() float64 {
	if c.RadiusFraction == nil {
		return 0.5
	}
	return *c.RadiusFraction
}

func (c *Config) GetMinPixelRadius() float64 {
	if c.MinPixelRadius == nil {
		return 10
	}
	return *c.MinPixelRadius
}

func (c *Config) GetMinScale() float64 {
	if c.MinScale == nil {
		return 0.01
	}
	return *c.MinScale
}

// GetMaxScale returns the upper scale bound; 0 means unbounded.
func (c *Config) GetMaxScale() float64 {
	if c.MaxScale == nil {
		return 0
	}
	return *c.MaxScale
}

// GetObjectRadius returns the wheel's bounding radius at scale 1: a rim of
// radius 0.5 plus a 0.07 tube.
func (c *Config) GetObjectRadius() float64 {
	if c.ObjectRadius == nil {
		return 0.57
	}
	return *c.ObjectRadius
}

func (c *Config) GetInitialScale() float64 {
	if c.InitialScale == nil {
		return 1.1
	}
	return *c.InitialScale
}

func (c *Config) GetReferenceDepth() float64 {
	if c.ReferenceDepth == nil {
		return 0.5
	}
	return *c.ReferenceDepth
}

func (c *Config) GetDepthAwareScale() bool {
	if c.DepthAwareScale == nil {
		return false
	}
	return *c.DepthAwareScale
}

func (c *Config) GetFovDegrees() float64 {
	if c.FovDegrees == nil {
		return 50
	}
	return *c.FovDegrees
}

func (c *Config) GetCameraZ() float64 {
	if c.CameraZ == nil {
		return 1.5
	}
	return *c.CameraZ
}

func (c *Config) GetMaxHistory() int {
	if c.MaxHistory == nil {
		return gesture.MaxHistory
	}
	return *c.MaxHistory
}

func (c *Config) GetMinHandednessScore() float64 {
	if c.MinHandednessScore == nil {
		return 0
	}
	return *c.MinHandednessScore
}

func (c *Config) GetMirror() bool {
	if c.Mirror == nil {
		return true
	}
	return *c.Mirror
}

func (c *Config) GetAddr() string {
	if c.Addr == nil || *c.Addr == "" {
		return ":8080"
	}
	return *c.Addr
}

func (c *Config) GetCameraID() int {
	if c.CameraID == nil {
		return 0
	}
	return *c.CameraID
}

func (c *Config) GetFPS() int {
	if c.FPS == nil {
		return 30
	}
	return *c.FPS
}

// Camera returns the scene camera described by the config.
func (c *Config) Camera() space.Camera {
	cam := space.DefaultCamera()
	cam.FovY = c.GetFovDegrees()
	cam.Position = r3.Vec{Z: c.GetCameraZ()}
	return cam
}

// Converter returns a space converter for the configured camera and scale solve.
func (c *Config) Converter() *space.Converter {
	conv := space.NewConverter(c.Camera())
	conv.ReferenceDepth = c.GetReferenceDepth()
	conv.RadiusFraction = c.GetRadiusFraction()
	conv.MinPixelRadius = c.GetMinPixelRadius()
	conv.ObjectRadius = c.GetObjectRadius()
	conv.MinScale = c.GetMinScale()
	conv.MaxScale = c.GetMaxScale()
	conv.DepthAware = c.GetDepthAwareScale()
	return conv
}

// Session returns the session tuning described by the config.
func (c *Config) Session() session.Config {
	return session.Config{
		Factors: transform.Factors{
			Position: c.GetPositionAlpha(),
			Rotation: c.GetRotationAlpha(),
			Scale:    c.GetScaleAlpha(),
		},
		ReferenceFPS:       c.GetReferenceFPS(),
		InitialScale:       c.GetInitialScale(),
		MaxHistory:         c.GetMaxHistory(),
		MinHandednessScore: c.GetMinHandednessScore(),
		Mirror:             c.GetMirror(),
	}
}
