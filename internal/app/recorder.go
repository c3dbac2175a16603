package app

import (
	"fmt"
	"sync"

	"github.com/ayusman/handwheel/internal/session"
	"github.com/ayusman/handwheel/internal/store"
)

// recordBatch is the number of frames buffered before a write.
const recordBatch = 30

// Recorder writes processed frames to a store recording. The recording row
// is created with the first frame, which fixes its canvas size and initial
// mirror mode. Every frame also keeps the mirror mode it was processed with.
type Recorder struct {
	store *store.Store
	name  string

	mu      sync.Mutex
	rec     *store.Recording
	pending []store.Frame
	seq     int
}

// NewRecorder creates a Recorder that writes to s under name.
func NewRecorder(s *store.Store, name string) *Recorder {
	return &Recorder{
		store:   s,
		name:    name,
		pending: make([]store.Frame, 0, recordBatch),
	}
}

// ID returns the recording ID, or "" before the first frame.
func (r *Recorder) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return ""
	}
	return r.rec.ID
}

// Add buffers one frame and its result, writing a batch when full.
func (r *Recorder) Add(f session.Frame, res session.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		rec := &store.Recording{
			Name:   r.name,
			Width:  f.Width,
			Height: f.Height,
			Mirror: res.Mirror,
		}
		if err := r.store.Recordings().Create(rec); err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		r.rec = rec
	}

	frame := store.Frame{
		Sequence: r.seq,
		Elapsed:  f.Elapsed,
		Hands:    f.Hands,
		Tracked:  res.Tracked,
		Mirror:   res.Mirror,
	}
	if res.Tracked {
		frame.Radius = res.Sample.Radius
		frame.AngleDegrees = res.Sample.AngleDegrees
	}
	r.pending = append(r.pending, frame)
	r.seq++

	if len(r.pending) >= recordBatch {
		return r.flushLocked()
	}
	return nil
}

// Flush writes any buffered frames.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if r.rec == nil || len(r.pending) == 0 {
		return nil
	}
	if err := r.store.Recordings().AppendFrames(r.rec.ID, r.pending); err != nil {
		return fmt.Errorf("write %d frames: %w", len(r.pending), err)
	}
	r.pending = r.pending[:0]
	return nil
}
