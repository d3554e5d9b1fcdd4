package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection tuning.
const (
	// blurKernelSize is the Gaussian blur kernel edge, chosen large enough
	// to wash out sensor noise before differencing.
	blurKernelSize = 21
	// pixelDiffThreshold is the per-pixel intensity change counted as real.
	pixelDiffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that
	// counts as scene motion.
	DefaultMotionThreshold = 1.0
)

// MotionDetector compares consecutive frames to tell a static scene from
// one where something moved. The pipeline uses it as a cheap wake gate
// while no face is in view: face detection stays off until the scene
// changes.
type MotionDetector struct {
	mu          sync.Mutex
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
}

// NewMotionDetector creates a detector firing when more than threshold
// percent of pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares the frame against the previous one and reports whether
// motion occurred, along with the percentage of pixels that changed. The
// first frame establishes the reference and always reports no motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernelSize, Y: blurKernelSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, pixelDiffThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()
	percent := float64(changed) / float64(total) * 100.0

	blurred.CopyTo(&m.prevGray)

	return percent > m.threshold, percent
}

// Reset discards the reference frame so the next Detect re-establishes it.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases the detector's OpenCV resources.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}
