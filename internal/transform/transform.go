// Package transform owns the rendered object's transform and moves it
// toward per-frame targets with exponential smoothing.
package transform

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidFactor is returned when a smoothing factor is outside (0, 1).
var ErrInvalidFactor = errors.New("smoothing factor must be in (0, 1)")

// Transform is the object's rigid-body pose plus a uniform scale.
type Transform struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
	Scale       float64     `json:"scale"`
}

// Target holds the values to move toward this frame. A nil field is
// withheld and leaves that part of the transform untouched.
type Target struct {
	Position    *r3.Vec
	Orientation *quat.Number
	Scale       *float64
}

// Factors are the fraction of the remaining distance covered per frame.
type Factors struct {
	Position float64
	Rotation float64
	Scale    float64
}

// DefaultFactors favors smooth motion with a slower scale response.
var DefaultFactors = Factors{Position: 0.4, Rotation: 0.4, Scale: 0.25}

// Validate checks every factor lies strictly between 0 and 1.
func (f Factors) Validate() error {
	for name, v := range map[string]float64{"position": f.Position, "rotation": f.Rotation, "scale": f.Scale} {
		if !(v > 0 && v < 1) {
			return fmt.Errorf("%s factor %v: %w", name, v, ErrInvalidFactor)
		}
	}
	return nil
}

// Smoother advances a Transform toward targets a fixed fraction per step.
//
// Factors apply per processed frame, so the same constants feel faster at
// higher frame rates. SetReferenceFPS switches StepElapsed to factors that
// are rescaled by the real time between frames.
type Smoother struct {
	mu           sync.RWMutex
	current      Transform
	factors      Factors
	referenceFPS float64
}

// NewSmoother creates a Smoother starting at initial.
func NewSmoother(initial Transform, factors Factors) (*Smoother, error) {
	if err := factors.Validate(); err != nil {
		return nil, err
	}
	if !(initial.Scale > 0) {
		return nil, fmt.Errorf("initial scale %v must be positive", initial.Scale)
	}
	initial.Orientation = Normalize(initial.Orientation)
	return &Smoother{current: initial, factors: factors}, nil
}

// SetReferenceFPS sets the frame rate the factors were tuned for.
// Zero restores purely per-frame smoothing.
func (s *Smoother) SetReferenceFPS(fps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fps < 0 {
		fps = 0
	}
	s.referenceFPS = fps
}

// Current returns the current transform.
func (s *Smoother) Current() Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Step advances one frame toward target using the per-frame factors.
func (s *Smoother) Step(target Target) Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(target, s.factors)
	return s.current
}

// StepElapsed advances toward target after dt of wall time. Without a
// reference frame rate it behaves exactly like Step.
func (s *Smoother) StepElapsed(target Target, dt time.Duration) Transform {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.factors
	if s.referenceFPS > 0 && dt > 0 {
		frames := dt.Seconds() * s.referenceFPS
		f = Factors{
			Position: rescale(f.Position, frames),
			Rotation: rescale(f.Rotation, frames),
			Scale:    rescale(f.Scale, frames),
		}
	}
	s.advance(target, f)
	return s.current
}

// rescale returns the factor that covers the same ground over frames
// reference frames as alpha does over one.
func rescale(alpha, frames float64) float64 {
	a := 1 - math.Pow(1-alpha, frames)
	// Never snap onto the target
	return math.Min(a, 1-1e-9)
}

func (s *Smoother) advance(target Target, f Factors) {
	if target.Position != nil {
		s.current.Position = Lerp(s.current.Position, *target.Position, f.Position)
	}
	if target.Orientation != nil {
		s.current.Orientation = Slerp(s.current.Orientation, *target.Orientation, f.Rotation)
	}
	if target.Scale != nil && *target.Scale > 0 {
		s.current.Scale += (*target.Scale - s.current.Scale) * f.Scale
	}
}

// Lerp moves a toward b by t.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}
