// Package capture provides webcam frame capture and scene motion detection
// using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. Gesture timing windows are measured in tens of
// milliseconds, so the camera runs at the full detection rate rather than a
// power-saving one; the pipeline throttles itself when no face is present.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when reading from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera is the frame source driving the detection pipeline.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// webcam captures frames from a physical camera device via GoCV.
type webcam struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	open     bool
	fps      int
}

// NewCamera creates a Camera for the given device ID.
func NewCamera(deviceID int) Camera {
	return &webcam{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open opens the device at 640x480. The driver-side frame buffer is kept at
// one frame so a slow consumer sees fresh frames, not a backlog.
func (w *webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(w.deviceID)
	if err != nil {
		return fmt.Errorf("opening camera %d: %w", w.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(w.fps))
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	w.capture = capture
	w.open = true

	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (w *webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open || w.capture == nil {
		w.open = false
		return nil
	}

	err := w.capture.Close()
	w.capture = nil
	w.open = false

	return err
}

// ReadFrame reads one frame. The caller owns the returned Mat and must
// close it.
func (w *webcam) ReadFrame() (*gocv.Mat, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open || w.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := w.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS changes the capture rate. Values <= 0 are ignored.
func (w *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.fps = fps
	if w.capture != nil {
		w.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate setting.
func (w *webcam) FPS() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.fps
}

// IsOpen reports whether the device is open.
func (w *webcam) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.open
}
