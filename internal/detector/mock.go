package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// openPalmCenter is the palm center (mean of wrist and middle MCP) of OpenPalmLandmarks.
var openPalmCenter = Point3D{X: 0.5, Y: 0.73}

// OpenPalmLandmarks returns a preset right hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	points := make([]Point3D, NumLandmarks)

	points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return HandLandmarks{
		Points:     points,
		Handedness: "Right",
		Score:      0.95,
	}
}

// HandAt returns an open palm translated so that its palm center
// (mean of wrist and middle MCP) sits at (x, y) in normalized coordinates.
func HandAt(handedness string, x, y float64) HandLandmarks {
	hand := OpenPalmLandmarks()
	dx := x - openPalmCenter.X
	dy := y - openPalmCenter.Y
	for i := range hand.Points {
		hand.Points[i].X += dx
		hand.Points[i].Y += dy
	}
	hand.Handedness = handedness
	return hand
}

// SteeringPair returns a labeled left and right hand with palm centers at the given points.
func SteeringPair(leftX, leftY, rightX, rightY float64) []HandLandmarks {
	return []HandLandmarks{
		HandAt("Left", leftX, leftY),
		HandAt("Right", rightX, rightY),
	}
}
