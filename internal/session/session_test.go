package session

import (
	"math"
	"sync"
	"testing"

	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/gesture"
	"github.com/ayusman/handwheel/internal/space"
	"github.com/ayusman/handwheel/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

const (
	canvasW = 640.0
	canvasH = 480.0
)

func newTestSession(t *testing.T, mirror bool) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mirror = mirror
	s, err := New(space.NewConverter(space.DefaultCamera()), cfg)
	require.NoError(t, err)
	return s
}

func frame(hands []detector.HandLandmarks) Frame {
	return Frame{Hands: hands, Width: canvasW, Height: canvasH}
}

type statusLog struct {
	mu   sync.Mutex
	msgs []string
}

func (l *statusLog) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *statusLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	cam := space.DefaultCamera()
	cam.FovY = 0
	_, err = New(space.NewConverter(cam), DefaultConfig())
	assert.ErrorIs(t, err, space.ErrInvalidCamera)

	cfg := DefaultConfig()
	cfg.Factors.Scale = 1
	_, err = New(space.NewConverter(space.DefaultCamera()), cfg)
	assert.ErrorIs(t, err, transform.ErrInvalidFactor)
}

func TestProcess_LevelHands(t *testing.T) {
	s := newTestSession(t, true)

	// 200px apart on a 640px canvas, level
	res, err := s.Process(frame(detector.SteeringPair(0.25, 0.5, 0.25+200/canvasW, 0.5)))
	require.NoError(t, err)

	assert.True(t, res.Tracked)
	assert.True(t, res.Pair.Labeled)
	assert.InDelta(t, 200, res.Sample.Radius, 1e-6)
	assert.InDelta(t, 0, res.Sample.AngleDegrees, 1e-6)
	assert.Equal(t, 1, s.History().Len())
}

func TestProcess_VerticalHands(t *testing.T) {
	s := newTestSession(t, true)

	// Right hand 100px above the left
	res, err := s.Process(frame(detector.SteeringPair(0.5, 0.6, 0.5, 0.6-100/canvasH)))
	require.NoError(t, err)

	assert.InDelta(t, 100, res.Sample.Radius, 1e-6)
	assert.InDelta(t, -90, res.Sample.AngleDegrees, 1e-6)
	assert.Equal(t, []float64{res.Sample.AngleDegrees}, s.History().Angle())
}

func TestProcess_SingleHandIsNoOp(t *testing.T) {
	s := newTestSession(t, true)
	before := s.Snapshot()

	res, err := s.Process(frame([]detector.HandLandmarks{detector.HandAt("Left", 0.3, 0.5)}))
	assert.ErrorIs(t, err, gesture.ErrInsufficientInput)
	assert.False(t, res.Tracked)

	after := s.Snapshot()
	assert.Equal(t, before.Transform, after.Transform)
	assert.Equal(t, before.Transform, res.Transform)
	assert.Equal(t, 0, s.History().Len())
	assert.Nil(t, after.Sample)
}

func TestProcess_InvalidCanvas(t *testing.T) {
	s := newTestSession(t, true)

	f := frame(detector.SteeringPair(0.3, 0.5, 0.7, 0.5))
	f.Width = 0
	_, err := s.Process(f)
	assert.ErrorIs(t, err, gesture.ErrInvalidCanvas)
	assert.Equal(t, 0, s.History().Len())
}

func TestProcess_MovesObject(t *testing.T) {
	s := newTestSession(t, true)
	hands := detector.SteeringPair(0.6, 0.3, 0.9, 0.3)

	first, err := s.Process(frame(hands))
	require.NoError(t, err)

	// Palm midpoint is right of and above center
	assert.Greater(t, first.Transform.Position.X, 0.0)
	assert.Greater(t, first.Transform.Position.Y, 0.0)

	// 192px between hands solves to about 0.33, below the initial 1.1
	assert.Less(t, first.Transform.Scale, 1.1)

	second, err := s.Process(frame(hands))
	require.NoError(t, err)
	assert.Greater(t, second.Transform.Position.X, first.Transform.Position.X)
	assert.Equal(t, uint64(2), s.Snapshot().Frames)
}

func TestProcess_MirrorNegatesRotation(t *testing.T) {
	hands := detector.SteeringPair(0.3, 0.4, 0.7, 0.6)

	on := newTestSession(t, true)
	off := newTestSession(t, false)
	// Keep the auto inference from touching either session
	on.SetMirror(true)
	off.SetMirror(false)

	a, err := on.Process(frame(hands))
	require.NoError(t, err)
	b, err := off.Process(frame(hands))
	require.NoError(t, err)

	require.NotZero(t, a.Sample.Angle)
	assert.InDelta(t, transform.Angle(transform.Identity, a.Transform.Orientation),
		transform.Angle(transform.Identity, b.Transform.Orientation), 1e-9)
	// Equal turns in opposite directions cancel
	assert.InDelta(t, 0, transform.Angle(transform.Identity, quat.Mul(a.Transform.Orientation, b.Transform.Orientation)), 1e-9)
	// Everything else matches
	assert.Equal(t, a.Transform.Position, b.Transform.Position)
	assert.Equal(t, a.Transform.Scale, b.Transform.Scale)
}

func TestProcess_AutoMirror(t *testing.T) {
	t.Run("mirrored labels turn mirroring on once", func(t *testing.T) {
		s := newTestSession(t, false)
		var log statusLog
		s.OnStatus(log.record)

		// Left-labeled hand on the right half of the frame
		_, err := s.Process(frame(detector.SteeringPair(0.8, 0.5, 0.2, 0.5)))
		require.NoError(t, err)
		assert.True(t, s.Mirror())
		assert.True(t, s.AutoMirrorChecked())
		assert.Equal(t, []string{"Auto mirror set to true", "Tracking two hands"}, log.all())
	})

	t.Run("consistent labels latch without change", func(t *testing.T) {
		s := newTestSession(t, false)

		_, err := s.Process(frame(detector.SteeringPair(0.2, 0.5, 0.8, 0.5)))
		require.NoError(t, err)
		assert.False(t, s.Mirror())
		assert.True(t, s.AutoMirrorChecked())

		// Later mirrored evidence is ignored
		_, err = s.Process(frame(detector.SteeringPair(0.8, 0.5, 0.2, 0.5)))
		require.NoError(t, err)
		assert.False(t, s.Mirror())
	})

	t.Run("unlabeled frames do not latch", func(t *testing.T) {
		s := newTestSession(t, false)

		hands := []detector.HandLandmarks{detector.HandAt("", 0.8, 0.5), detector.HandAt("", 0.2, 0.5)}
		res, err := s.Process(frame(hands))
		require.NoError(t, err)
		assert.False(t, res.Pair.Labeled)
		assert.False(t, s.AutoMirrorChecked())

		_, err = s.Process(frame(detector.SteeringPair(0.8, 0.5, 0.2, 0.5)))
		require.NoError(t, err)
		assert.True(t, s.Mirror())
	})

	t.Run("explicit choice disables inference", func(t *testing.T) {
		s := newTestSession(t, false)
		s.SetMirror(false)

		res, err := s.Process(frame(detector.SteeringPair(0.8, 0.5, 0.2, 0.5)))
		require.NoError(t, err)
		assert.False(t, res.Mirror)
		assert.False(t, s.Mirror())
	})
}

func TestProcess_CapturedMirrorMode(t *testing.T) {
	hands := detector.SteeringPair(0.3, 0.4, 0.7, 0.6)

	ref := newTestSession(t, true)
	ref.SetMirror(true)
	want, err := ref.Process(frame(hands))
	require.NoError(t, err)

	t.Run("toggle after capture waits for the next frame", func(t *testing.T) {
		s := newTestSession(t, true)
		s.SetMirror(true)

		captured := s.Mirror()
		s.SetMirror(false)

		f := frame(hands)
		f.Mirror = &captured
		res, err := s.Process(f)
		require.NoError(t, err)
		assert.True(t, res.Mirror)
		assert.Equal(t, want.Transform.Orientation, res.Transform.Orientation)
		assert.False(t, s.Mirror())
	})

	t.Run("inference applies from the next frame", func(t *testing.T) {
		s := newTestSession(t, false)

		captured := s.Mirror()
		f := frame(detector.SteeringPair(0.8, 0.5, 0.2, 0.5))
		f.Mirror = &captured
		res, err := s.Process(f)
		require.NoError(t, err)
		assert.False(t, res.Mirror)
		assert.True(t, s.Mirror())
	})
}

func TestProcess_StatusTransitions(t *testing.T) {
	s := newTestSession(t, true)
	s.SetMirror(true)

	var log statusLog
	s.OnStatus(log.record)

	single := frame([]detector.HandLandmarks{detector.HandAt("Left", 0.3, 0.5)})
	pair := frame(detector.SteeringPair(0.3, 0.5, 0.7, 0.5))

	_, _ = s.Process(single)
	_, _ = s.Process(pair)
	_, _ = s.Process(pair)
	_, _ = s.Process(single)
	_, _ = s.Process(single)
	s.SetMirror(false)

	assert.Equal(t, []string{
		"Tracking two hands",
		"Waiting for two hands",
		"Mirror mode off",
	}, log.all())
	assert.Equal(t, "Mirror mode off", s.Snapshot().Status)
}

func TestProcess_DegenerateScaleKeepsPrevious(t *testing.T) {
	conv := space.NewConverter(space.DefaultCamera())
	conv.ObjectRadius = 0
	s, err := New(conv, DefaultConfig())
	require.NoError(t, err)

	var log statusLog
	s.OnStatus(log.record)

	hands := detector.SteeringPair(0.6, 0.3, 0.9, 0.3)
	for i := 0; i < 3; i++ {
		res, err := s.Process(frame(hands))
		require.NoError(t, err)
		assert.Equal(t, 1.1, res.Transform.Scale)
		assert.NotZero(t, res.Transform.Position.X)
	}

	msgs := log.all()
	count := 0
	for _, m := range msgs {
		if m == "Scale unavailable, keeping previous scale" {
			count++
		}
	}
	assert.Equal(t, 1, count, "status %v", msgs)
}

func TestProcess_HistoryBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHistory = 5
	s, err := New(space.NewConverter(space.DefaultCamera()), cfg)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		x := 0.5 + float64(i)*0.01
		_, err := s.Process(frame(detector.SteeringPair(0.2, 0.5, x, 0.5)))
		require.NoError(t, err)
	}

	radius := s.History().Radius()
	require.Len(t, radius, 5)
	assert.InDelta(t, (0.53-0.2)*canvasW, radius[0], 1e-6)
	assert.InDelta(t, (0.57-0.2)*canvasW, radius[4], 1e-6)
}

func TestSession_ConcurrentMirrorToggle(t *testing.T) {
	s := newTestSession(t, true)
	hands := detector.SteeringPair(0.3, 0.4, 0.7, 0.6)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.SetMirror(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Snapshot()
		}
	}()

	for i := 0; i < 200; i++ {
		res, err := s.Process(frame(hands))
		require.NoError(t, err)
		require.False(t, math.IsNaN(res.Transform.Scale))
	}
	wg.Wait()
}
