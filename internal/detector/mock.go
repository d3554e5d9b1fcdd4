package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It plays back a scripted sequence of landmark results; the last entry
// is sticky once the sequence is exhausted. A nil entry means "no face".
type MockDetector struct {
	faces []*FaceLandmarks
	index int
	err   error
	mu    sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets a single face result that Detect returns on every call.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = []*FaceLandmarks{face}
	m.index = 0
}

// SetSequence sets a sequence of face results returned by successive
// Detect calls. Nil entries simulate frames where no face was found.
func (m *MockDetector) SetSequence(faces []*FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next pre-configured face result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.faces) == 0 {
		return nil, nil
	}

	face := m.faces[m.index]
	if m.index < len(m.faces)-1 {
		m.index++
	}
	return face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Eye geometry for synthetic faces: corners 0.08 apart, lid points placed
// so that the vertical lid distance yields exactly the requested EAR.
const (
	synthEyeHalfWidth = 0.04
	synthLidOffsetX   = 0.015
)

// setSynthEye writes a six-point eye contour centered at (cx, cy) whose
// eye aspect ratio evaluates to ear.
func setSynthEye(f *FaceLandmarks, contour [6]int, cx, cy, ear float64) {
	// EAR = (2h + 2h) / (2 * 2*halfWidth) = h / halfWidth
	h := ear * synthEyeHalfWidth

	f.Points[contour[0]] = Point3D{X: cx - synthEyeHalfWidth, Y: cy} // p1, outer corner
	f.Points[contour[3]] = Point3D{X: cx + synthEyeHalfWidth, Y: cy} // p4, inner corner
	f.Points[contour[1]] = Point3D{X: cx - synthLidOffsetX, Y: cy - h} // p2, upper lid
	f.Points[contour[2]] = Point3D{X: cx + synthLidOffsetX, Y: cy - h} // p3, upper lid
	f.Points[contour[5]] = Point3D{X: cx - synthLidOffsetX, Y: cy + h} // p6, lower lid
	f.Points[contour[4]] = Point3D{X: cx + synthLidOffsetX, Y: cy + h} // p5, lower lid
}

// FaceWithSignals builds a synthetic FaceLandmarks whose eye aspect ratios
// and yaw evaluate to the given values. Used by tests to script precise
// signal sequences without a camera.
func FaceWithSignals(leftEAR, rightEAR, yawDeg float64) FaceLandmarks {
	f := FaceLandmarks{Score: 0.95}

	setSynthEye(&f, leftEyeContour, 0.42, 0.42, leftEAR)
	setSynthEye(&f, rightEyeContour, 0.58, 0.42, rightEAR)

	// Nose and cheeks on one horizontal line so the cheek distances are
	// exact: dRight - dLeft = yaw/90 * (dRight + dLeft).
	const span = 0.30
	dRight := span/2 + yawDeg/90*span/2
	dLeft := span - dRight

	f.Points[NoseTip] = Point3D{X: 0.5, Y: 0.55}
	f.Points[LeftCheek] = Point3D{X: 0.5 - dLeft, Y: 0.55}
	f.Points[RightCheek] = Point3D{X: 0.5 + dRight, Y: 0.55}

	return f
}

// NeutralFaceLandmarks returns a synthetic face at rest: both eyes open,
// head facing the camera.
func NeutralFaceLandmarks() FaceLandmarks {
	return FaceWithSignals(0.30, 0.30, 0)
}

// ClosedEyesLandmarks returns a synthetic face with both eyes closed.
func ClosedEyesLandmarks() FaceLandmarks {
	return FaceWithSignals(0.05, 0.05, 0)
}

// LeftWinkLandmarks returns a synthetic face winking the left eye.
func LeftWinkLandmarks() FaceLandmarks {
	return FaceWithSignals(0.05, 0.30, 0)
}

// RightWinkLandmarks returns a synthetic face winking the right eye.
func RightWinkLandmarks() FaceLandmarks {
	return FaceWithSignals(0.30, 0.05, 0)
}

// TurnedHeadLandmarks returns a synthetic face with the head rotated by
// yawDeg degrees (positive toward the camera's right), eyes open.
func TurnedHeadLandmarks(yawDeg float64) FaceLandmarks {
	return FaceWithSignals(0.30, 0.30, yawDeg)
}
