// Package app runs the live steering pipeline: camera frames are mirrored
// when mirror mode is on, passed to the landmark detector and fed through
// the steering session, whose state is pushed to the viewer and optionally
// recorded.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handwheel/internal/capture"
	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/session"
	"github.com/ayusman/handwheel/internal/store"
)

// Upstream retry limits. After a camera or detector failure the pipeline
// waits before the next attempt, doubling the wait up to maxRetryDelay.
const (
	minRetryDelay = 250 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// ErrNoFrame is returned by LatestFrame before the first frame arrives.
var ErrNoFrame = errors.New("no frame captured yet")

// Feed receives session updates for the viewer.
type Feed interface {
	PublishState(st session.State)
	PublishStatus(status string)
}

// Config holds configuration options for the application.
type Config struct {
	Session  *session.Session
	Camera   capture.Camera
	Detector detector.Detector
	Feed     Feed
	FPS      int

	// Store and RecordingName enable recording when Record is set.
	Store         *store.Store
	Record        bool
	RecordingName string
}

// App owns the capture loop for one session.
type App struct {
	config   Config
	session  *session.Session
	camera   capture.Camera
	detector detector.Detector
	feed     Feed
	recorder *Recorder

	mu     sync.RWMutex
	stopCh chan struct{}
	doneCh chan struct{}

	frameMu sync.Mutex
	latest  *gocv.Mat

	// Pipeline goroutine only
	upstream   string
	retryDelay time.Duration
	retryAt    time.Time
	lastFrame  time.Time
}

// New creates a new App. A missing camera defaults to device 0 and a
// missing detector to MediaPipe, falling back to the mock detector.
func New(config Config) (*App, error) {
	if config.Session == nil {
		return nil, errors.New("session is required")
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}

	a := &App{
		config:   config,
		session:  config.Session,
		camera:   config.Camera,
		detector: config.Detector,
		feed:     config.Feed,
	}

	if a.feed != nil {
		a.session.OnStatus(a.feed.PublishStatus)
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(0)
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.session.Notify(fmt.Sprintf("Detector unavailable: %v", err))
			a.detector = detector.NewMockDetector()
		}
	}

	if config.Record {
		if config.Store == nil {
			return nil, errors.New("recording requires a store")
		}
		a.recorder = NewRecorder(config.Store, config.RecordingName)
	}

	return a, nil
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		a.session.Notify(fmt.Sprintf("Camera unavailable: %v", err))
		return fmt.Errorf("start pipeline: %w", err)
	}
	a.camera.SetFPS(a.config.FPS)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Steering pipeline started")
	return nil
}

// Stop halts the pipeline, flushes the recorder and releases the camera
// and detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		<-a.doneCh
		a.stopCh = nil
		a.doneCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	if a.recorder != nil {
		if err := a.recorder.Flush(); err != nil {
			log.Printf("Error flushing recording: %v", err)
		}
	}

	a.frameMu.Lock()
	if a.latest != nil {
		a.latest.Close()
		a.latest = nil
	}
	a.frameMu.Unlock()

	log.Println("Steering pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Session returns the steering session.
func (a *App) Session() *session.Session {
	return a.session
}

// Recorder returns the active recorder, or nil when not recording.
func (a *App) Recorder() *Recorder {
	return a.recorder
}

// LatestFrame returns a copy of the most recent frame as shown to the
// user. The caller closes it.
func (a *App) LatestFrame() (*gocv.Mat, error) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if a.latest == nil {
		return nil, ErrNoFrame
	}
	frame := a.latest.Clone()
	return &frame, nil
}

func (a *App) setLatest(frame *gocv.Mat) {
	clone := frame.Clone()

	a.frameMu.Lock()
	if a.latest != nil {
		a.latest.Close()
	}
	a.latest = &clone
	a.frameMu.Unlock()
}
