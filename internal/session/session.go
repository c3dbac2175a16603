// Package session runs the per-frame steering pipeline and owns the state
// that outlives a frame: mirror mode, the auto-mirror latch, the object
// transform and the sample history.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/gesture"
	"github.com/ayusman/handwheel/internal/space"
	"github.com/ayusman/handwheel/internal/transform"
)

// StatusFunc receives short human-readable status lines.
type StatusFunc func(msg string)

// Config holds the session tuning that is not part of the converter.
type Config struct {
	Factors            transform.Factors
	ReferenceFPS       float64 // 0 keeps smoothing per frame
	InitialScale       float64
	MaxHistory         int
	MinHandednessScore float64
	Mirror             bool
}

// DefaultConfig returns the default session tuning.
func DefaultConfig() Config {
	return Config{
		Factors:      transform.DefaultFactors,
		InitialScale: 1.1,
		MaxHistory:   gesture.MaxHistory,
		Mirror:       true,
	}
}

// Frame is one detector result together with the canvas it was measured on.
type Frame struct {
	Hands  []detector.HandLandmarks
	Width  float64
	Height float64
	// Elapsed is the time since the previous frame. Only used when a
	// reference frame rate is configured.
	Elapsed time.Duration
	// Mirror is the mirror mode the frame was captured under. The whole
	// frame is processed with it, and mirror inference on this frame only
	// affects later ones. Nil uses the session's mode after inference.
	Mirror *bool
}

// Result is the outcome of one processed frame.
type Result struct {
	Transform transform.Transform `json:"transform"`
	Sample    gesture.Sample      `json:"sample"`
	Pair      gesture.HandPair    `json:"pair"`
	Mirror    bool                `json:"mirror"`
	Tracked   bool                `json:"tracked"`
}

// State is a point-in-time view of the session for readers outside the pipeline.
type State struct {
	Transform transform.Transform `json:"transform"`
	Mirror    bool                `json:"mirror"`
	Tracked   bool                `json:"tracked"`
	Sample    *gesture.Sample     `json:"sample,omitempty"`
	Status    string              `json:"status"`
	Frames    uint64              `json:"frames"`
}

// Session is the per-run steering context. Process must be called from a
// single goroutine; the other methods are safe for concurrent use.
type Session struct {
	converter *space.Converter
	smoother  *transform.Smoother
	history   *gesture.History
	minScore  float64

	mu                sync.Mutex
	mirror            bool
	autoMirrorChecked bool
	tracked           bool
	degenerate        bool
	last              *gesture.Sample
	status            string
	frames            uint64
	onStatus          StatusFunc
}

// New creates a session that measures against conv. The session takes
// ownership of conv and resizes its camera viewport to each frame's canvas.
func New(conv *space.Converter, cfg Config) (*Session, error) {
	if conv == nil {
		return nil, errors.New("converter is required")
	}
	if err := conv.Camera.Validate(); err != nil {
		return nil, err
	}

	initial := transform.Transform{
		Orientation: conv.Camera.Orientation,
		Scale:       cfg.InitialScale,
	}
	smoother, err := transform.NewSmoother(initial, cfg.Factors)
	if err != nil {
		return nil, fmt.Errorf("create smoother: %w", err)
	}
	smoother.SetReferenceFPS(cfg.ReferenceFPS)

	return &Session{
		converter: conv,
		smoother:  smoother,
		history:   gesture.NewHistory(cfg.MaxHistory),
		minScore:  cfg.MinHandednessScore,
		mirror:    cfg.Mirror,
	}, nil
}

// OnStatus registers the status callback. It is called synchronously from
// whichever goroutine produced the status.
func (s *Session) OnStatus(fn StatusFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// Mirror reports the current mirror mode. A capture loop reads it once per
// frame and hands the value back in Frame.Mirror.
func (s *Session) Mirror() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror
}

// AutoMirrorChecked reports whether the one-shot mirror inference has run
// or been overridden by SetMirror.
func (s *Session) AutoMirrorChecked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoMirrorChecked
}

// SetMirror sets mirror mode explicitly. It takes effect on the next frame
// and disables automatic inference.
func (s *Session) SetMirror(on bool) {
	s.mu.Lock()
	s.mirror = on
	s.autoMirrorChecked = true
	s.mu.Unlock()

	s.emit(fmt.Sprintf("Mirror mode %s", onOff(on)))
}

// History returns the sample history.
func (s *Session) History() *gesture.History {
	return s.history
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Transform: s.smoother.Current(),
		Mirror:    s.mirror,
		Tracked:   s.tracked,
		Status:    s.status,
		Frames:    s.frames,
	}
	if s.last != nil {
		sample := *s.last
		st.Sample = &sample
	}
	return st
}

// Process runs one frame through the pipeline.
//
// A frame without two usable hands or with an invalid canvas leaves the
// transform and history untouched and returns the reason. A degenerate scale
// solve is not an error: position and orientation still update and the
// previous scale is kept.
func (s *Session) Process(f Frame) (Result, error) {
	mirror := s.beginFrame(f)
	res := Result{Mirror: mirror}

	pair, err := gesture.ResolvePair(f.Hands, s.minScore)
	if err != nil {
		s.setTracked(false)
		res.Transform = s.smoother.Current()
		return res, err
	}

	sample, err := gesture.Extract(pair, f.Width, f.Height)
	if err != nil {
		s.setTracked(false)
		res.Transform = s.smoother.Current()
		return res, err
	}

	s.converter.Camera.SetViewport(f.Width, f.Height)
	cam := s.converter.Camera

	var target transform.Target

	mid := sample.Midpoint()
	objectPos := s.smoother.Current().Position
	if pos, err := s.converter.AnchorPosition(mid.X, mid.Y, f.Width, f.Height); err == nil {
		target.Position = &pos
		objectPos = pos
	} else {
		log.Printf("Anchor position unavailable: %v", err)
	}

	orientation := transform.TargetOrientation(cam.Orientation, cam.Forward(), sample.Angle, mirror)
	target.Orientation = &orientation

	scale, err := s.converter.SolveScale(sample.Radius, objectPos)
	if err == nil {
		target.Scale = &scale
	}
	s.setDegenerate(err != nil)

	res.Transform = s.smoother.StepElapsed(target, f.Elapsed)
	s.history.Push(sample.Radius, sample.AngleDegrees)

	res.Sample = sample
	res.Pair = pair
	res.Tracked = true

	s.mu.Lock()
	s.last = &sample
	s.frames++
	s.mu.Unlock()
	s.setTracked(true)

	return res, nil
}

// beginFrame runs the one-shot mirror inference and returns the mirror
// mode to use for the whole frame.
func (s *Session) beginFrame(f Frame) bool {
	s.mu.Lock()
	var msg string
	if !s.autoMirrorChecked {
		if mirrored, ok := gesture.InferMirror(f.Hands, s.minScore); ok {
			s.autoMirrorChecked = true
			// Evidence can only turn mirroring on
			if mirrored {
				s.mirror = true
			}
			msg = fmt.Sprintf("Auto mirror set to %t", s.mirror)
		}
	}
	mirror := s.mirror
	s.mu.Unlock()
	if f.Mirror != nil {
		mirror = *f.Mirror
	}

	if msg != "" {
		s.emit(msg)
	}
	return mirror
}

func (s *Session) setTracked(tracked bool) {
	s.mu.Lock()
	changed := s.tracked != tracked
	s.tracked = tracked
	s.mu.Unlock()

	if !changed {
		return
	}
	if tracked {
		s.emit("Tracking two hands")
	} else {
		s.emit("Waiting for two hands")
	}
}

func (s *Session) setDegenerate(degenerate bool) {
	s.mu.Lock()
	changed := s.degenerate != degenerate
	s.degenerate = degenerate
	s.mu.Unlock()

	if changed && degenerate {
		s.emit("Scale unavailable, keeping previous scale")
	}
}

// Notify publishes an external status line, such as an upstream failure.
func (s *Session) Notify(msg string) {
	s.emit(msg)
}

func (s *Session) emit(msg string) {
	s.mu.Lock()
	s.status = msg
	fn := s.onStatus
	s.mu.Unlock()

	log.Printf("Status: %s", msg)
	if fn != nil {
		fn(msg)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
