package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func testFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &mat
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := NewMockCamera(testFrames(t, 2), false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("ReadFrame() before Open = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	for i := 0; i < 2; i++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() #%d = %v", i, err)
		}
		frame.Close()
	}

	// Without looping the sequence runs out.
	if _, err := cam.ReadFrame(); err == nil {
		t.Error("expected an error once frames are exhausted")
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := NewMockCamera(testFrames(t, 2), true)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	for i := 0; i < 7; i++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() #%d = %v", i, err)
		}
		frame.Close()
	}
}

func TestMockCamera_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := NewMockCamera(testFrames(t, 1), false)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	frame, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() = %v", err)
	}
	frame.Close()

	cam.Reset()

	frame, err = cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after Reset = %v", err)
	}
	frame.Close()
}
