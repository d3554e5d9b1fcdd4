package gesture

import (
	"context"
	"math"
	"time"

	"github.com/vsubito/volti/internal/detector"
)

// Baseline holds the per-session rest-state signal values established by
// calibration and slowly adapted by the engine afterwards.
type Baseline struct {
	LeftEAR  float64 `json:"leftEar"`
	RightEAR float64 `json:"rightEar"`
	Yaw      float64 `json:"yaw"`
}

// NoiseEstimate holds the per-signal sample standard deviation measured
// during calibration. It scales the detection thresholds to the user's
// camera and lighting noise floor, and is immutable after calibration.
type NoiseEstimate struct {
	LeftEAR  float64 `json:"leftEar"`
	RightEAR float64 `json:"rightEar"`
	Diff     float64 `json:"diff"`
	Yaw      float64 `json:"yaw"`
}

// Noise floors: calibration stddevs are never allowed below these, so a
// user sitting unnaturally still cannot produce zero-width thresholds.
const (
	earNoiseFloor = 0.004
	yawNoiseFloor = 0.5
)

// DefaultBaseline returns the built-in rest-state values used when
// calibration collects no samples.
func DefaultBaseline() Baseline {
	return Baseline{
		LeftEAR:  0.25,
		RightEAR: 0.25,
		Yaw:      0,
	}
}

// DefaultNoise returns the built-in noise estimate (the floors).
func DefaultNoise() NoiseEstimate {
	return NoiseEstimate{
		LeftEAR:  earNoiseFloor,
		RightEAR: earNoiseFloor,
		Diff:     earNoiseFloor,
		Yaw:      yawNoiseFloor,
	}
}

// LandmarkSource supplies one face landmark result per call.
// A nil result with a nil error means no face was found this tick.
type LandmarkSource interface {
	NextFrame() (*detector.FaceLandmarks, error)
}

// Calibration timing defaults.
const (
	DefaultCalibrationDuration = 2000 * time.Millisecond
	DefaultCalibrationInterval = 50 * time.Millisecond
)

// CalibrationOptions controls the sampling phase.
type CalibrationOptions struct {
	// Duration is the wall-clock length of the sampling window.
	Duration time.Duration
	// Interval is the fixed polling interval between samples.
	Interval time.Duration
}

// Calibrate samples the landmark source for a fixed wall-clock duration and
// derives the user's rest-state baseline and noise estimate. Ticks where no
// face is found contribute no sample. If the whole window yields nothing,
// the built-in defaults are returned; calibration never fails.
func Calibrate(ctx context.Context, source LandmarkSource, opts CalibrationOptions) (Baseline, NoiseEstimate) {
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultCalibrationDuration
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultCalibrationInterval
	}

	var lefts, rights, diffs, yaws []float64

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return summarize(lefts, rights, diffs, yaws)
		case <-ticker.C:
		}

		face, err := source.NextFrame()
		if err != nil || face == nil {
			continue
		}

		left := face.LeftEAR()
		right := face.RightEAR()
		lefts = append(lefts, left)
		rights = append(rights, right)
		diffs = append(diffs, math.Abs(left-right))
		yaws = append(yaws, face.Yaw())
	}

	return summarize(lefts, rights, diffs, yaws)
}

// summarize reduces the collected samples to a Baseline and a floored
// NoiseEstimate, falling back to defaults when nothing was collected.
func summarize(lefts, rights, diffs, yaws []float64) (Baseline, NoiseEstimate) {
	if len(lefts) == 0 {
		return DefaultBaseline(), DefaultNoise()
	}

	baseline := Baseline{
		LeftEAR:  mean(lefts),
		RightEAR: mean(rights),
		Yaw:      mean(yaws),
	}

	noise := NoiseEstimate{
		LeftEAR:  math.Max(stddev(lefts), earNoiseFloor),
		RightEAR: math.Max(stddev(rights), earNoiseFloor),
		Diff:     math.Max(stddev(diffs), earNoiseFloor),
		Yaw:      math.Max(stddev(yaws), yawNoiseFloor),
	}

	return baseline, noise
}
