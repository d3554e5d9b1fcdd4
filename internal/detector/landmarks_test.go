package detector

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestFaceLandmarks_EAR_OpenEyes(t *testing.T) {
	face := NeutralFaceLandmarks()

	left := face.LeftEAR()
	right := face.RightEAR()

	if math.Abs(left-0.30) > 1e-6 {
		t.Errorf("LeftEAR() = %f, want 0.30", left)
	}
	if math.Abs(right-0.30) > 1e-6 {
		t.Errorf("RightEAR() = %f, want 0.30", right)
	}
}

func TestFaceLandmarks_EAR_ClosedEyes(t *testing.T) {
	face := ClosedEyesLandmarks()

	if ear := face.LeftEAR(); math.Abs(ear-0.05) > 1e-6 {
		t.Errorf("LeftEAR() = %f, want 0.05", ear)
	}
	if ear := face.RightEAR(); math.Abs(ear-0.05) > 1e-6 {
		t.Errorf("RightEAR() = %f, want 0.05", ear)
	}
}

func TestFaceLandmarks_EAR_Asymmetric(t *testing.T) {
	face := LeftWinkLandmarks()

	left := face.LeftEAR()
	right := face.RightEAR()

	if left >= right {
		t.Errorf("winking left eye should have lower EAR: left=%f right=%f", left, right)
	}
	if math.Abs(right-0.30) > 1e-6 {
		t.Errorf("open eye EAR = %f, want 0.30", right)
	}
}

func TestFaceLandmarks_EAR_DegenerateWidth(t *testing.T) {
	// All points at the origin: zero horizontal eye width must not divide
	// by zero, it reports a safe 0.
	var face FaceLandmarks

	if ear := face.LeftEAR(); ear != 0 {
		t.Errorf("LeftEAR() on degenerate geometry = %f, want 0", ear)
	}
	if ear := face.RightEAR(); ear != 0 {
		t.Errorf("RightEAR() on degenerate geometry = %f, want 0", ear)
	}
}

func TestFaceLandmarks_Yaw(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
	}{
		{name: "centered", deg: 0},
		{name: "turned right", deg: 20},
		{name: "turned left", deg: -20},
		{name: "slight turn", deg: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := TurnedHeadLandmarks(tt.deg)
			yaw := face.Yaw()
			if math.Abs(yaw-tt.deg) > 1e-6 {
				t.Errorf("Yaw() = %f, want %f", yaw, tt.deg)
			}
		})
	}
}

func TestFaceLandmarks_Yaw_Degenerate(t *testing.T) {
	var face FaceLandmarks

	if yaw := face.Yaw(); yaw != 0 {
		t.Errorf("Yaw() on degenerate geometry = %f, want 0", yaw)
	}
}

func TestFaceLandmarks_NilReceiver(t *testing.T) {
	var face *FaceLandmarks

	if v := face.LeftEAR(); v != 0 {
		t.Errorf("nil LeftEAR() = %f, want 0", v)
	}
	if v := face.RightEAR(); v != 0 {
		t.Errorf("nil RightEAR() = %f, want 0", v)
	}
	if v := face.Yaw(); v != 0 {
		t.Errorf("nil Yaw() = %f, want 0", v)
	}
}

func TestDistance3D(t *testing.T) {
	a := Point3D{X: 0, Y: 0, Z: 0}
	b := Point3D{X: 3, Y: 4, Z: 0}

	if d := distance3D(a, b); math.Abs(d-5) > epsilon {
		t.Errorf("distance3D = %f, want 5", d)
	}

	if d := distance3D(a, a); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}
