// Package detector provides face landmark detection interfaces and the
// landmark geometry used for gesture recognition.
package detector

import "math"

// Face landmark indices following the MediaPipe FaceMesh convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip      = 1
	LeftCheek    = 234
	RightCheek   = 454
	NumLandmarks = 468
)

// Eye contour indices, ordered p1..p6 for the eye aspect ratio:
// p1/p4 are the horizontal corners, p2/p3 the upper lid, p6/p5 the lower lid.
// "Left" and "right" are as seen in the (mirrored) camera image.
var (
	leftEyeContour  = [6]int{33, 160, 158, 133, 153, 144}
	rightEyeContour = [6]int{362, 385, 387, 263, 373, 380}
)

// Point3D represents a 3D point in normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents the 468 face landmarks detected by MediaPipe
// for a single video frame.
type FaceLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ear computes the eye aspect ratio over a six-point eye contour:
// (|p2-p6| + |p3-p5|) / (2*|p1-p4|). The ratio is high while the eye is
// open and drops sharply when it closes. Returns 0 when the horizontal
// eye width is degenerate (occlusion, fast motion).
func (f *FaceLandmarks) ear(contour [6]int) float64 {
	p1 := f.Points[contour[0]]
	p2 := f.Points[contour[1]]
	p3 := f.Points[contour[2]]
	p4 := f.Points[contour[3]]
	p5 := f.Points[contour[4]]
	p6 := f.Points[contour[5]]

	width := distance3D(p1, p4)
	if width < 1e-10 {
		return 0
	}

	return (distance3D(p2, p6) + distance3D(p3, p5)) / (2 * width)
}

// LeftEAR returns the eye aspect ratio of the left eye.
func (f *FaceLandmarks) LeftEAR() float64 {
	if f == nil {
		return 0
	}
	return f.ear(leftEyeContour)
}

// RightEAR returns the eye aspect ratio of the right eye.
func (f *FaceLandmarks) RightEAR() float64 {
	if f == nil {
		return 0
	}
	return f.ear(rightEyeContour)
}

// Yaw estimates the head rotation about the vertical axis in approximate
// degrees, from the relative nose-to-cheek distances. Positive values mean
// the head is turned toward the camera's right. Returns 0 when the cheek
// distances are degenerate.
func (f *FaceLandmarks) Yaw() float64 {
	if f == nil {
		return 0
	}

	nose := f.Points[NoseTip]
	dRight := distance3D(nose, f.Points[RightCheek])
	dLeft := distance3D(nose, f.Points[LeftCheek])

	sum := dRight + dLeft
	if sum < 1e-10 {
		return 0
	}

	return (dRight - dLeft) / sum * 90
}
