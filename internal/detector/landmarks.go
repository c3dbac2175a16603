// Package detector provides hand detection interfaces and types for the steering pipeline.
package detector

import "strings"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MinPalmLandmarks is the smallest landmark count from which a palm center can be derived.
const MinPalmLandmarks = MiddleMCP + 1

// Side identifies which hand a handedness label refers to.
type Side int

const (
	// SideUnknown means the label is missing or unrecognized.
	SideUnknown Side = iota
	// SideLeft is a hand labeled "Left".
	SideLeft
	// SideRight is a hand labeled "Right".
	SideRight
)

// String returns the label for the side.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "Left"
	case SideRight:
		return "Right"
	default:
		return "Unknown"
	}
}

// Point3D represents a landmark in normalized image coordinates.
// X and Y are in [0,1]; Z is the detector's relative depth and is not consumed.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand for a single frame.
// Points normally holds NumLandmarks entries, but a detector may deliver fewer.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right", may be empty
	Score      float64   `json:"score"`      // handedness confidence
}

// HasPalm reports whether the hand carries the wrist and middle MCP landmarks.
func (h *HandLandmarks) HasPalm() bool {
	return h != nil && len(h.Points) >= MinPalmLandmarks
}

// Side classifies the handedness label by case-insensitive prefix,
// so "Left", "left_hand" and "LEFT" all resolve to SideLeft.
func (h *HandLandmarks) Side() Side {
	if h == nil {
		return SideUnknown
	}
	label := strings.ToLower(strings.TrimSpace(h.Handedness))
	switch {
	case strings.HasPrefix(label, "left"):
		return SideLeft
	case strings.HasPrefix(label, "right"):
		return SideRight
	default:
		return SideUnknown
	}
}

// MeanX returns the average x coordinate across all landmarks, or 0 for an empty hand.
func (h *HandLandmarks) MeanX() float64 {
	if h == nil || len(h.Points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range h.Points {
		sum += p.X
	}
	return sum / float64(len(h.Points))
}
