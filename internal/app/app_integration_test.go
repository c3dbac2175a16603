package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/handwheel/internal/capture"
	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/session"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApp_Pipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames := capture.BlankFrames(3, 640, 480)
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	det := detector.NewMockDetector()
	det.SetHands(detector.SteeringPair(0.3, 0.5, 0.7, 0.6))
	feed := &fakeFeed{}
	s := newTestStore(t)

	a := newTestApp(t, Config{
		Camera:   capture.NewMockCamera(frames, true),
		Detector: det,
		Feed:     feed,
		FPS:      60,
		Store:    s,
		Record:   true,
	})

	require.NoError(t, a.Start())
	assert.True(t, a.Running())
	// Starting twice is a no-op
	require.NoError(t, a.Start())

	waitFor(t, "tracked frames", func() bool {
		return a.Session().Snapshot().Frames >= 5
	})

	frame, err := a.LatestFrame()
	require.NoError(t, err)
	assert.Equal(t, 640, frame.Cols())
	assert.Equal(t, 480, frame.Rows())
	frame.Close()

	a.Stop()
	assert.False(t, a.Running())

	st := a.Session().Snapshot()
	assert.True(t, st.Tracked)
	assert.Greater(t, st.Transform.Scale, 0.0)

	states, _ := feed.snapshot()
	assert.GreaterOrEqual(t, len(states), 5)

	// Stop flushes the partial batch
	rec, err := s.Recordings().GetByID(a.Recorder().ID())
	require.NoError(t, err)
	assert.Equal(t, len(states), rec.Frames)
}

func TestApp_DetectorFailureBacksOff(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames := capture.BlankFrames(1, 320, 240)
	defer frames[0].Close()

	det := detector.NewMockDetector()
	det.SetError(errors.New("pipe closed"))
	feed := &fakeFeed{}

	a := newTestApp(t, Config{
		Camera:   capture.NewMockCamera(frames, true),
		Detector: det,
		Feed:     feed,
		FPS:      100,
	})
	require.NoError(t, a.Start())

	time.Sleep(600 * time.Millisecond)
	calls := det.Calls()

	// 250ms then 500ms backoff allows at most three attempts in 600ms
	assert.LessOrEqual(t, calls, 3)
	assert.GreaterOrEqual(t, calls, 1)

	det.SetError(nil)
	det.SetHands(detector.SteeringPair(0.3, 0.5, 0.7, 0.5))
	waitFor(t, "recovery", func() bool {
		return a.Session().Snapshot().Tracked
	})
	a.Stop()

	_, statuses := feed.snapshot()
	assert.Contains(t, statuses, "Detector unavailable: pipe closed")
	assert.Contains(t, statuses, "Input restored")
	n := 0
	for _, s := range statuses {
		if s == "Detector unavailable: pipe closed" {
			n++
		}
	}
	assert.Equal(t, 1, n, "failure should be reported once")
}

// togglingDetector reports whether each frame arrived flipped, then flips
// the session's mirror mode before the frame reaches the session.
type togglingDetector struct {
	sess    *session.Session
	width   int
	flipped []bool
}

func (d *togglingDetector) Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	d.flipped = append(d.flipped, frame.GetUCharAt(0, d.width-1) == 255)
	d.sess.SetMirror(!d.sess.Mirror())
	return detector.SteeringPair(0.3, 0.4, 0.7, 0.6), nil
}

func (d *togglingDetector) Close() error { return nil }

func TestApp_TickMirrorAgreesWithFlip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	const width = 640
	// A marked first column shows up in the last one once flipped
	marked := gocv.NewMatWithSize(480, width, gocv.MatTypeCV8UC1)
	defer marked.Close()
	marked.SetUCharAt(0, 0, 255)

	sess := newSession(t)
	sess.SetMirror(true)
	det := &togglingDetector{sess: sess, width: width}
	s := newTestStore(t)

	a := newTestApp(t, Config{
		Session:  sess,
		Camera:   capture.NewMockCamera([]*gocv.Mat{&marked}, true),
		Detector: det,
		Store:    s,
		Record:   true,
	})
	require.NoError(t, a.camera.Open())

	now := time.Unix(1000, 0)
	for i := 0; i < 4; i++ {
		a.tick(now.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	a.Stop()

	assert.Equal(t, []bool{true, false, true, false}, det.flipped)

	stored, err := s.Recordings().Frames(a.Recorder().ID())
	require.NoError(t, err)
	require.Len(t, stored, len(det.flipped))
	for i, f := range stored {
		assert.Equal(t, det.flipped[i], f.Mirror, "frame %d processed with a different mode than it was captured under", i)
	}
}
