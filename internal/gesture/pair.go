// Package gesture turns per-frame hand detections into steering geometry.
//
// Everything here is a pure function of its inputs except History, which is
// the bounded sample series fed to the charts.
package gesture

import (
	"errors"

	"github.com/ayusman/handwheel/internal/detector"
)

// ErrInsufficientInput is returned when a frame has fewer than two usable hands.
var ErrInsufficientInput = errors.New("fewer than two hands detected")

// PalmCenter is a 2D point in normalized image coordinates.
type PalmCenter struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandPair is the left/right assignment of palm centers for one frame.
type HandPair struct {
	Left  PalmCenter `json:"left"`
	Right PalmCenter `json:"right"`
	// Labeled is true when handedness labels decided the assignment,
	// false when the positional fallback was used.
	Labeled bool `json:"labeled"`
}

// PalmCenterOf returns the midpoint of the wrist and middle MCP landmarks.
// It is a cheap stand-in for the palm center, not a true centroid.
// The hand must satisfy HasPalm.
func PalmCenterOf(hand *detector.HandLandmarks) PalmCenter {
	wrist := hand.Points[detector.Wrist]
	mcp := hand.Points[detector.MiddleMCP]
	return PalmCenter{
		X: (wrist.X + mcp.X) / 2,
		Y: (wrist.Y + mcp.Y) / 2,
	}
}

// labeledSide returns the hand's side, or SideUnknown when its handedness
// confidence is below minScore.
func labeledSide(hand *detector.HandLandmarks, minScore float64) detector.Side {
	if minScore > 0 && hand.Score < minScore {
		return detector.SideUnknown
	}
	return hand.Side()
}

// ResolvePair picks the left and right hands for this frame.
//
// Hands with fewer than detector.MinPalmLandmarks points are ignored.
// If a left-labeled and a right-labeled hand are both present, the first of
// each is used. Otherwise, with at least two hands, the first is taken as
// left and the second as right. That fallback is best-effort and swaps the
// hands whenever the detector orders them the other way.
//
// Labels with a confidence below minScore are treated as missing; pass 0 to
// trust every label.
func ResolvePair(hands []detector.HandLandmarks, minScore float64) (HandPair, error) {
	var (
		valid       []*detector.HandLandmarks
		left, right *detector.HandLandmarks
	)

	for i := range hands {
		hand := &hands[i]
		if !hand.HasPalm() {
			continue
		}
		valid = append(valid, hand)

		switch labeledSide(hand, minScore) {
		case detector.SideLeft:
			if left == nil {
				left = hand
			}
		case detector.SideRight:
			if right == nil {
				right = hand
			}
		}
	}

	if left != nil && right != nil {
		return HandPair{
			Left:    PalmCenterOf(left),
			Right:   PalmCenterOf(right),
			Labeled: true,
		}, nil
	}

	if len(valid) < 2 {
		return HandPair{}, ErrInsufficientInput
	}

	return HandPair{
		Left:  PalmCenterOf(valid[0]),
		Right: PalmCenterOf(valid[1]),
	}, nil
}

// InferMirror inspects labeled hands to decide whether the frame is mirrored.
// A left hand whose mean x lies in the right half, or a right hand in the
// left half, means the image is mirrored. ok is false when no hand carried a
// usable label, in which case nothing can be concluded.
func InferMirror(hands []detector.HandLandmarks, minScore float64) (mirrored bool, ok bool) {
	for i := range hands {
		hand := &hands[i]
		if len(hand.Points) == 0 {
			continue
		}

		meanX := hand.MeanX()
		switch labeledSide(hand, minScore) {
		case detector.SideLeft:
			ok = true
			if meanX > 0.5 {
				mirrored = true
			}
		case detector.SideRight:
			ok = true
			if meanX < 0.5 {
				mirrored = true
			}
		}
	}
	return mirrored, ok
}
