package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/handwheel/internal/capture"
	"github.com/ayusman/handwheel/internal/detector"
	"github.com/ayusman/handwheel/internal/gesture"
	"github.com/ayusman/handwheel/internal/session"
)

// runPipeline is the capture loop. Each tick:
//  1. read a frame, mirroring it when mirror mode is on; that mode holds
//     for the rest of the frame
//  2. keep a copy for the MJPEG stream
//  3. run hand detection
//  4. process the hands through the session, then publish and record
//
// Camera and detector failures put the loop into backoff and are reported
// once per distinct failure.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if now.Before(a.retryAt) {
				continue
			}
			a.tick(now)
		}
	}
}

func (a *App) tick(now time.Time) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.upstreamFailed("Camera", err, now)
		return
	}
	defer frame.Close()

	// One read per frame: the flip and the rotation sign must agree
	mirror := a.session.Mirror()
	if mirror {
		capture.Mirror(frame)
	}
	a.setLatest(frame)

	width, height := float64(frame.Cols()), float64(frame.Rows())

	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.upstreamFailed("Detector", err, now)
		return
	}
	a.upstreamRecovered()

	var elapsed time.Duration
	if !a.lastFrame.IsZero() {
		elapsed = now.Sub(a.lastFrame)
	}
	a.lastFrame = now

	a.processHands(session.Frame{
		Hands:   hands,
		Width:   width,
		Height:  height,
		Elapsed: elapsed,
		Mirror:  &mirror,
	})
}

// processHands runs one detector result through the session and fans the
// outcome out to the feed and the recorder.
func (a *App) processHands(f session.Frame) (session.Result, error) {
	res, err := a.session.Process(f)
	if err != nil && !skippable(err) {
		log.Printf("Error processing frame: %v", err)
	}

	if a.recorder != nil {
		if rerr := a.recorder.Add(f, res); rerr != nil {
			log.Printf("Error recording frame: %v", rerr)
		}
	}

	if a.feed != nil {
		a.feed.PublishState(a.session.Snapshot())
	}

	return res, err
}

// skippable reports whether err only means the frame carried no usable pair.
func skippable(err error) bool {
	return errors.Is(err, gesture.ErrInsufficientInput)
}

// upstreamFailed reports a camera or detector failure once per distinct
// message and pushes the next attempt back.
func (a *App) upstreamFailed(source string, err error, now time.Time) {
	msg := fmt.Sprintf("%s unavailable: %v", source, err)
	if errors.Is(err, detector.ErrUnavailable) {
		msg = fmt.Sprintf("%s unavailable", source)
	}
	if msg != a.upstream {
		a.upstream = msg
		a.session.Notify(msg)
	}

	if a.retryDelay == 0 {
		a.retryDelay = minRetryDelay
	} else if a.retryDelay < maxRetryDelay {
		a.retryDelay *= 2
		if a.retryDelay > maxRetryDelay {
			a.retryDelay = maxRetryDelay
		}
	}
	a.retryAt = now.Add(a.retryDelay)
}

func (a *App) upstreamRecovered() {
	if a.upstream == "" {
		return
	}
	a.upstream = ""
	a.retryDelay = 0
	a.retryAt = time.Time{}
	a.session.Notify("Input restored")
}
