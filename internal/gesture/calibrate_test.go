package gesture

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/vsubito/volti/internal/detector"
)

// scriptedSource cycles through a fixed list of frames.
type scriptedSource struct {
	frames []*detector.FaceLandmarks
	pos    int
}

func (s *scriptedSource) NextFrame() (*detector.FaceLandmarks, error) {
	if len(s.frames) == 0 {
		return nil, nil
	}
	f := s.frames[s.pos%len(s.frames)]
	s.pos++
	return f, nil
}

func shortOpts() CalibrationOptions {
	return CalibrationOptions{
		Duration: 120 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	}
}

func TestCalibrate_SteadyFace(t *testing.T) {
	face := detector.FaceWithSignals(0.30, 0.28, 4)
	source := &scriptedSource{frames: []*detector.FaceLandmarks{&face}}

	baseline, noise := Calibrate(context.Background(), source, shortOpts())

	if math.Abs(baseline.LeftEAR-0.30) > 1e-6 {
		t.Errorf("left baseline = %f, want 0.30", baseline.LeftEAR)
	}
	if math.Abs(baseline.RightEAR-0.28) > 1e-6 {
		t.Errorf("right baseline = %f, want 0.28", baseline.RightEAR)
	}
	if math.Abs(baseline.Yaw-4) > 1e-6 {
		t.Errorf("yaw baseline = %f, want 4", baseline.Yaw)
	}

	// Identical samples have zero spread, so every noise estimate sits
	// on its floor.
	if noise.LeftEAR != earNoiseFloor || noise.RightEAR != earNoiseFloor {
		t.Errorf("EAR noise = %f/%f, want floor %f", noise.LeftEAR, noise.RightEAR, earNoiseFloor)
	}
	if noise.Diff != earNoiseFloor {
		t.Errorf("diff noise = %f, want floor %f", noise.Diff, earNoiseFloor)
	}
	if noise.Yaw != yawNoiseFloor {
		t.Errorf("yaw noise = %f, want floor %f", noise.Yaw, yawNoiseFloor)
	}
}

func TestCalibrate_NoFaceFallsBackToDefaults(t *testing.T) {
	source := &scriptedSource{frames: []*detector.FaceLandmarks{nil}}

	baseline, noise := Calibrate(context.Background(), source, shortOpts())

	if baseline != DefaultBaseline() {
		t.Errorf("baseline = %+v, want defaults", baseline)
	}
	if noise != DefaultNoise() {
		t.Errorf("noise = %+v, want defaults", noise)
	}
}

func TestCalibrate_SkipsNoFaceTicks(t *testing.T) {
	open := detector.NeutralFaceLandmarks()
	source := &scriptedSource{frames: []*detector.FaceLandmarks{nil, nil, &open}}

	baseline, _ := Calibrate(context.Background(), source, shortOpts())

	// Only face-bearing ticks contribute, so the baseline is the open
	// face, undiluted by the no-face ticks.
	if math.Abs(baseline.LeftEAR-0.30) > 1e-6 {
		t.Errorf("left baseline = %f, want 0.30", baseline.LeftEAR)
	}
}

func TestCalibrate_NoisyYawIsMeasured(t *testing.T) {
	a := detector.FaceWithSignals(0.30, 0.30, -10)
	b := detector.FaceWithSignals(0.30, 0.30, 10)
	source := &scriptedSource{frames: []*detector.FaceLandmarks{&a, &b, &a, &b, &a, &b}}

	baseline, noise := Calibrate(context.Background(), source, shortOpts())

	if math.Abs(baseline.Yaw) > 2.5 {
		t.Errorf("yaw baseline = %f, want near 0", baseline.Yaw)
	}
	if noise.Yaw <= yawNoiseFloor {
		t.Errorf("yaw noise = %f, want above the floor", noise.Yaw)
	}
}

func TestCalibrate_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &scriptedSource{}
	start := time.Now()
	baseline, noise := Calibrate(ctx, source, CalibrationOptions{
		Duration: 5 * time.Second,
		Interval: 50 * time.Millisecond,
	})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("calibration ran %v after cancel", elapsed)
	}
	if baseline != DefaultBaseline() || noise != DefaultNoise() {
		t.Error("cancelled empty calibration should return defaults")
	}
}

func TestCalibrate_ZeroOptionsUseDefaults(t *testing.T) {
	face := detector.NeutralFaceLandmarks()
	source := &scriptedSource{frames: []*detector.FaceLandmarks{&face}}

	start := time.Now()
	baseline, _ := Calibrate(context.Background(), source, CalibrationOptions{})

	if elapsed := time.Since(start); elapsed < DefaultCalibrationDuration {
		t.Fatalf("calibration finished in %v, want at least %v", elapsed, DefaultCalibrationDuration)
	}
	if math.Abs(baseline.LeftEAR-0.30) > 1e-6 {
		t.Errorf("left baseline = %f, want 0.30", baseline.LeftEAR)
	}
}
