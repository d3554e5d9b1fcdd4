package gesture

import "time"

// Gesture identifies a recognizable facial gesture.
type Gesture string

const (
	// WinkLeft is a deliberate short closure of the left eye only.
	WinkLeft Gesture = "wink_left"
	// WinkRight is a deliberate short closure of the right eye only.
	WinkRight Gesture = "wink_right"
	// DoubleBlink is two short synchronized blinks in quick succession.
	DoubleBlink Gesture = "double_blink"
	// LongBlink is a single synchronized blink held noticeably longer
	// than a reflexive one.
	LongBlink Gesture = "long_blink"
	// HeadLeft is a head turn toward the camera's left.
	HeadLeft Gesture = "head_left"
	// HeadRight is a head turn toward the camera's right.
	HeadRight Gesture = "head_right"
)

// Valid reports whether g is one of the recognized gesture names.
func (g Gesture) Valid() bool {
	switch g {
	case WinkLeft, WinkRight, DoubleBlink, LongBlink, HeadLeft, HeadRight:
		return true
	}
	return false
}

// Direction is a page navigation command emitted by the engine.
type Direction string

const (
	// DirectionNone means no trigger fired this frame.
	DirectionNone Direction = ""
	// DirectionNext advances to the next page.
	DirectionNext Direction = "next"
	// DirectionPrev goes back to the previous page.
	DirectionPrev Direction = "prev"
)

// Config holds the per-session engine configuration supplied by the
// settings layer. It is immutable for the lifetime of a session.
type Config struct {
	// TriggerNext is the gesture bound to the "next page" command.
	TriggerNext Gesture

	// TriggerPrev is the gesture bound to the "previous page" command.
	TriggerPrev Gesture

	// Sensitivity divides all detection thresholds. Higher values lower
	// the signal excursion required to trigger. Must be > 0; values <= 0
	// are replaced with 1.
	Sensitivity float64

	// Cooldown is the minimum spacing between any two triggers.
	Cooldown time.Duration

	// OnNext and OnPrev are invoked when a trigger fires. The engine does
	// not wait for them; callers that do slow work should hand off to a
	// goroutine.
	OnNext func()
	OnPrev func()

	// Tuning exposes the detection constants. Zero-value fields are
	// filled from DefaultTuning.
	Tuning Tuning
}

// DefaultConfig returns a Config with the default bindings: double blink
// turns forward, long blink turns back.
func DefaultConfig() Config {
	return Config{
		TriggerNext: DoubleBlink,
		TriggerPrev: LongBlink,
		Sensitivity: 1.0,
		Cooldown:    1000 * time.Millisecond,
		Tuning:      DefaultTuning(),
	}
}

// Tuning holds every numeric detection constant. The values are starting
// points, not requirements; they interact with the per-user noise estimate
// and the sensitivity divisor.
type Tuning struct {
	// TargetFPS is the effective processing rate the engine self-limits
	// to, regardless of the capture rate.
	TargetFPS int

	// HistoryLen is the rolling window length for signal smoothing.
	HistoryLen int

	// MinEARDrop is the minimum absolute EAR drop below baseline for an
	// eye to be judged closed, before noise scaling.
	MinEARDrop float64

	// CloseNoiseMult and OpenNoiseMult scale the calibrated noise floor
	// into the close and open thresholds. OpenNoiseMult is smaller so the
	// open threshold sits closer to baseline (hysteresis).
	CloseNoiseMult float64
	OpenNoiseMult  float64

	// OpenDropFrac is the fraction of MinEARDrop used for the open
	// threshold's absolute component.
	OpenDropFrac float64

	// BlinkSyncWindow is the maximum onset skew between the two eyes for
	// their closures to count as one synchronized blink.
	BlinkSyncWindow time.Duration

	// BlinkMin and BlinkMax bound the duration of a "short" blink.
	BlinkMin time.Duration
	BlinkMax time.Duration

	// MinBlinkGap is the smallest realistic gap between two human blinks;
	// DoubleBlinkWindow is the largest gap still read as a double blink.
	MinBlinkGap       time.Duration
	DoubleBlinkWindow time.Duration

	// LongBlinkMin and LongBlinkMax bound a deliberate long blink. The
	// upper bound excludes eyes simply left closed.
	LongBlinkMin time.Duration
	LongBlinkMax time.Duration

	// PatternRecent is how recently a completed blink pattern must have
	// ended to still produce a candidate.
	PatternRecent time.Duration

	// BlinkRetention is the trailing window of completed blink events
	// kept for pattern matching.
	BlinkRetention time.Duration

	// WinkMin and WinkMax bound the held duration of a wink. Longer
	// asymmetries are read as one-sided droop, not intent.
	WinkMin time.Duration
	WinkMax time.Duration

	// WinkMinDiff is the minimum EAR difference between the eyes for a
	// wink candidate, before noise scaling by WinkDiffNoiseMult.
	WinkMinDiff       float64
	WinkDiffNoiseMult float64

	// WinkCooldown spaces wink candidates independently of the global
	// trigger cooldown.
	WinkCooldown time.Duration

	// TurnThreshold is the yaw delta in degrees that enters a head turn;
	// CenterBand is the tighter band the yaw must return to before a new
	// turn can fire.
	TurnThreshold float64
	CenterBand    float64

	// RearmOpenFrames is the number of consecutive both-eyes-open frames
	// required after a trigger before the next one is eligible.
	RearmOpenFrames int

	// BaselineAdaptRate is the per-frame EMA rate nudging the baseline
	// toward the current reading while the eyes are confidently open.
	BaselineAdaptRate float64
}

// DefaultTuning returns the reference detection constants.
func DefaultTuning() Tuning {
	return Tuning{
		TargetFPS:         30,
		HistoryLen:        5,
		MinEARDrop:        0.06,
		CloseNoiseMult:    3.0,
		OpenNoiseMult:     1.5,
		OpenDropFrac:      0.5,
		BlinkSyncWindow:   40 * time.Millisecond,
		BlinkMin:          60 * time.Millisecond,
		BlinkMax:          350 * time.Millisecond,
		MinBlinkGap:       80 * time.Millisecond,
		DoubleBlinkWindow: 600 * time.Millisecond,
		LongBlinkMin:      450 * time.Millisecond,
		LongBlinkMax:      1500 * time.Millisecond,
		PatternRecent:     150 * time.Millisecond,
		BlinkRetention:    3 * time.Second,
		WinkMin:           80 * time.Millisecond,
		WinkMax:           500 * time.Millisecond,
		WinkMinDiff:       0.08,
		WinkDiffNoiseMult: 3.0,
		WinkCooldown:      400 * time.Millisecond,
		TurnThreshold:     14,
		CenterBand:        6,
		RearmOpenFrames:   3,
		BaselineAdaptRate: 0.01,
	}
}

// withDefaults fills zero-value fields from DefaultConfig/DefaultTuning and
// clamps invalid values.
func (c Config) withDefaults() Config {
	if c.Sensitivity <= 0 {
		c.Sensitivity = 1.0
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}

	def := DefaultTuning()
	t := &c.Tuning
	if t.TargetFPS <= 0 {
		t.TargetFPS = def.TargetFPS
	}
	if t.HistoryLen <= 0 {
		t.HistoryLen = def.HistoryLen
	}
	if t.MinEARDrop <= 0 {
		t.MinEARDrop = def.MinEARDrop
	}
	if t.CloseNoiseMult <= 0 {
		t.CloseNoiseMult = def.CloseNoiseMult
	}
	if t.OpenNoiseMult <= 0 {
		t.OpenNoiseMult = def.OpenNoiseMult
	}
	if t.OpenDropFrac <= 0 {
		t.OpenDropFrac = def.OpenDropFrac
	}
	if t.BlinkSyncWindow <= 0 {
		t.BlinkSyncWindow = def.BlinkSyncWindow
	}
	if t.BlinkMin <= 0 {
		t.BlinkMin = def.BlinkMin
	}
	if t.BlinkMax <= 0 {
		t.BlinkMax = def.BlinkMax
	}
	if t.MinBlinkGap <= 0 {
		t.MinBlinkGap = def.MinBlinkGap
	}
	if t.DoubleBlinkWindow <= 0 {
		t.DoubleBlinkWindow = def.DoubleBlinkWindow
	}
	if t.LongBlinkMin <= 0 {
		t.LongBlinkMin = def.LongBlinkMin
	}
	if t.LongBlinkMax <= 0 {
		t.LongBlinkMax = def.LongBlinkMax
	}
	if t.PatternRecent <= 0 {
		t.PatternRecent = def.PatternRecent
	}
	if t.BlinkRetention <= 0 {
		t.BlinkRetention = def.BlinkRetention
	}
	if t.WinkMin <= 0 {
		t.WinkMin = def.WinkMin
	}
	if t.WinkMax <= 0 {
		t.WinkMax = def.WinkMax
	}
	if t.WinkMinDiff <= 0 {
		t.WinkMinDiff = def.WinkMinDiff
	}
	if t.WinkDiffNoiseMult <= 0 {
		t.WinkDiffNoiseMult = def.WinkDiffNoiseMult
	}
	if t.WinkCooldown <= 0 {
		t.WinkCooldown = def.WinkCooldown
	}
	if t.TurnThreshold <= 0 {
		t.TurnThreshold = def.TurnThreshold
	}
	if t.CenterBand <= 0 {
		t.CenterBand = def.CenterBand
	}
	if t.RearmOpenFrames <= 0 {
		t.RearmOpenFrames = def.RearmOpenFrames
	}
	if t.BaselineAdaptRate <= 0 {
		t.BaselineAdaptRate = def.BaselineAdaptRate
	}

	return c
}
