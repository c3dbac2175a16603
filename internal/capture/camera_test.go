package capture

import (
	"errors"
	"testing"
)

func TestNewCamera(t *testing.T) {
	cam := NewCamera(1)

	if got := cam.FPS(); got != DefaultFPS {
		t.Errorf("FPS() = %d, want %d (default)", got, DefaultFPS)
	}
	if cam.IsOpen() {
		t.Error("camera should not be open before Open()")
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	steps := []struct {
		fps  int
		want int
	}{
		{15, 15},
		{60, 60},
		{0, 60},  // ignored
		{-5, 60}, // ignored
		{1, 1},
	}

	for _, step := range steps {
		cam.SetFPS(step.fps)
		if got := cam.FPS(); got != step.want {
			t.Errorf("after SetFPS(%d) FPS() = %d, want %d", step.fps, got, step.want)
		}
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("Frame dimensions: %dx%d (camera may not support %dx%d)", mat.Cols(), mat.Rows(), DefaultWidth, DefaultHeight)
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}
