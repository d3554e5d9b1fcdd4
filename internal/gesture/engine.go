package gesture

import (
	"math"
	"time"

	"github.com/vsubito/volti/internal/detector"
)

// WinkState names the wink state machine states.
type WinkState string

const (
	WinkNone        WinkState = "none"
	WinkingLeftEye  WinkState = "left_winking"
	WinkingRightEye WinkState = "right_winking"
)

// HeadState names the head-turn state machine states.
type HeadState string

const (
	HeadCenter         HeadState = "center"
	HeadTurnedLeft     HeadState = "left"
	HeadTurnedRight    HeadState = "right"
	HeadTriggeredLeft  HeadState = "triggered_left"
	HeadTriggeredRight HeadState = "triggered_right"
)

// BlinkEvent marks one closed-eyes interval. End is the zero time while the
// eyes are still closed.
type BlinkEvent struct {
	Start time.Time
	End   time.Time
}

// completed reports whether the eyes have reopened.
func (b BlinkEvent) completed() bool {
	return !b.End.IsZero()
}

// duration returns how long the eyes were closed, or 0 while still open.
func (b BlinkEvent) duration() time.Duration {
	if !b.completed() {
		return 0
	}
	return b.End.Sub(b.Start)
}

// Snapshot is the per-frame debug readout. It is a read-only side channel:
// nothing in it feeds back into detection.
type Snapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	FaceDetected bool      `json:"faceDetected"`
	Skipped      bool      `json:"skipped"`

	LeftEAR  float64 `json:"leftEar"`
	RightEAR float64 `json:"rightEar"`
	Yaw      float64 `json:"yaw"`
	YawDelta float64 `json:"yawDelta"`

	CloseThresholdLeft  float64 `json:"closeThresholdLeft"`
	CloseThresholdRight float64 `json:"closeThresholdRight"`
	OpenThresholdLeft   float64 `json:"openThresholdLeft"`
	OpenThresholdRight  float64 `json:"openThresholdRight"`
	TurnThreshold       float64 `json:"turnThreshold"`

	LeftClosed  bool `json:"leftClosed"`
	RightClosed bool `json:"rightClosed"`
	BlinkActive bool `json:"blinkActive"`
	BlinkCount  int  `json:"blinkCount"`

	WinkState WinkState `json:"winkState"`
	HeadState HeadState `json:"headState"`

	CooldownRemaining time.Duration `json:"cooldownRemainingMs"`
	OpenFrames        int           `json:"openFrames"`
	Rearmed           bool          `json:"rearmed"`
	FPS               float64       `json:"fps"`

	LastGesture   Gesture   `json:"lastGesture"`
	LastDirection Direction `json:"lastDirection"`
}

// Engine converts a stream of face landmark frames into discrete page-turn
// triggers. It owns all mutable detection state for one session; construct a
// fresh Engine per session and drive it from a single goroutine.
type Engine struct {
	config   Config
	baseline Baseline
	noise    NoiseEstimate

	leftHist  *history
	rightHist *history
	yawHist   *history

	minInterval   time.Duration
	lastProcessed time.Time

	leftClosed    bool
	rightClosed   bool
	leftClosedAt  time.Time
	rightClosedAt time.Time

	blinks []BlinkEvent

	wink        WinkState
	winkStart   time.Time
	lastWinkEnd time.Time

	head HeadState

	cooldownUntil time.Time
	openFrames    int
	rearmed       bool

	lastGesture   Gesture
	lastDirection Direction

	fpsCount       int
	fpsWindowStart time.Time
	fps            float64
}

// New creates an Engine with the given configuration and the baseline and
// noise estimate produced by calibration.
func New(config Config, baseline Baseline, noise NoiseEstimate) *Engine {
	config = config.withDefaults()

	return &Engine{
		config:      config,
		baseline:    baseline,
		noise:       noise,
		leftHist:    newHistory(config.Tuning.HistoryLen),
		rightHist:   newHistory(config.Tuning.HistoryLen),
		yawHist:     newHistory(config.Tuning.HistoryLen),
		minInterval: time.Second / time.Duration(config.Tuning.TargetFPS),
		wink:        WinkNone,
		head:        HeadCenter,
		rearmed:     true,
	}
}

// Config returns the engine's normalized configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Baseline returns the current (possibly adapted) baseline.
func (e *Engine) Baseline() Baseline {
	return e.baseline
}

// SetBaseline replaces the baseline and noise estimate, e.g. after an
// explicit recalibration.
func (e *Engine) SetBaseline(baseline Baseline, noise NoiseEstimate) {
	e.baseline = baseline
	e.noise = noise
}

// Reset clears all mutable detection state (histories, blink events, state
// machines, cooldown timers) so a restarted session begins cleanly. The
// baseline is left in place; restarting sessions recalibrate anyway.
func (e *Engine) Reset() {
	e.leftHist.reset()
	e.rightHist.reset()
	e.yawHist.reset()
	e.lastProcessed = time.Time{}
	e.leftClosed = false
	e.rightClosed = false
	e.leftClosedAt = time.Time{}
	e.rightClosedAt = time.Time{}
	e.blinks = nil
	e.wink = WinkNone
	e.winkStart = time.Time{}
	e.lastWinkEnd = time.Time{}
	e.head = HeadCenter
	e.cooldownUntil = time.Time{}
	e.openFrames = 0
	e.rearmed = true
	e.lastGesture = ""
	e.lastDirection = DirectionNone
	e.fpsCount = 0
	e.fpsWindowStart = time.Time{}
	e.fps = 0
}

// ProcessFrame ingests one landmark frame and returns the navigation
// command for this frame (usually DirectionNone) together with a debug
// snapshot. A nil face means no face was detected: histories are left
// untouched rather than fed fabricated values. ProcessFrame never fails;
// every branch is total over its inputs.
func (e *Engine) ProcessFrame(face *detector.FaceLandmarks, now time.Time) (Direction, Snapshot) {
	// Self rate-limiting: frames arriving sooner than the target interval
	// are skipped so the smoothing windows see a stable sample rate.
	if !e.lastProcessed.IsZero() && now.Sub(e.lastProcessed) < e.minInterval*9/10 {
		snap := e.snapshot(now, face != nil)
		snap.Skipped = true
		return DirectionNone, snap
	}
	e.lastProcessed = now
	e.measureFPS(now)

	if face == nil {
		return DirectionNone, e.snapshot(now, false)
	}

	e.leftHist.push(face.LeftEAR())
	e.rightHist.push(face.RightEAR())
	e.yawHist.push(face.Yaw())

	left := e.leftHist.median()
	right := e.rightHist.median()
	yaw := e.yawHist.mean()

	t := e.config.Tuning

	closeLeft, openLeft := e.eyeThresholds(e.baseline.LeftEAR, e.noise.LeftEAR)
	closeRight, openRight := e.eyeThresholds(e.baseline.RightEAR, e.noise.RightEAR)

	// Hysteresis: an eye must drop below the close threshold to latch
	// closed, and recover above the (nearer) open threshold to unlatch.
	if !e.leftClosed && left < closeLeft {
		e.leftClosed = true
		e.leftClosedAt = now
	} else if e.leftClosed && left > openLeft {
		e.leftClosed = false
	}
	if !e.rightClosed && right < closeRight {
		e.rightClosed = true
		e.rightClosedAt = now
	} else if e.rightClosed && right > openRight {
		e.rightClosed = false
	}

	leftOpen := left > openLeft
	rightOpen := right > openRight

	// A synchronized blink requires both eyes closed with closure onsets
	// within the sync window; anything else is not a blink.
	syncBlink := e.leftClosed && e.rightClosed &&
		absDuration(e.leftClosedAt.Sub(e.rightClosedAt)) <= t.BlinkSyncWindow

	e.trackBlink(syncBlink, now)
	e.pruneBlinks(now)

	// Rearm bookkeeping: a trigger is only eligible again once the eyes
	// have been confirmed open for several consecutive frames.
	if leftOpen && rightOpen {
		e.openFrames++
		if e.openFrames >= t.RearmOpenFrames {
			e.rearmed = true
		}
	} else {
		e.openFrames = 0
	}

	candidate := e.detectWink(left, right, leftOpen, rightOpen, syncBlink, now)
	if candidate == "" {
		candidate = e.blinkCandidate(now)
	}
	headCandidate := e.updateHead(yaw, now)
	if candidate == "" {
		candidate = headCandidate
	}

	var direction Direction
	if candidate != "" {
		e.lastGesture = candidate
		if e.armed(now) {
			switch candidate {
			case e.config.TriggerNext:
				direction = DirectionNext
			case e.config.TriggerPrev:
				direction = DirectionPrev
			}
		}
	}

	if direction != DirectionNone {
		e.cooldownUntil = now.Add(e.config.Cooldown)
		e.openFrames = 0
		e.rearmed = false
		e.lastDirection = direction
		e.dispatch(direction)
	}

	// Slow baseline adaptation tracks lighting and posture drift. Only
	// while both eyes are confidently open, no gesture is in flight and
	// no cooldown is pending, so closed-eye samples never pollute it.
	if leftOpen && rightOpen && e.wink == WinkNone && !e.blinkOpen() &&
		direction == DirectionNone && !now.Before(e.cooldownUntil) {
		r := t.BaselineAdaptRate
		e.baseline.LeftEAR += r * (left - e.baseline.LeftEAR)
		e.baseline.RightEAR += r * (right - e.baseline.RightEAR)
		e.baseline.Yaw += r * (yaw - e.baseline.Yaw)
	}

	snap := e.snapshot(now, true)
	snap.LeftEAR = left
	snap.RightEAR = right
	snap.Yaw = yaw
	snap.YawDelta = yaw - e.baseline.Yaw
	snap.CloseThresholdLeft = closeLeft
	snap.CloseThresholdRight = closeRight
	snap.OpenThresholdLeft = openLeft
	snap.OpenThresholdRight = openRight

	return direction, snap
}

// eyeThresholds derives the adaptive close/open threshold pair for one eye.
// The close threshold sits further from baseline than the open threshold,
// creating the hysteresis band. Sensitivity divides the required drop.
func (e *Engine) eyeThresholds(baseline, noise float64) (closeThr, openThr float64) {
	t := e.config.Tuning
	closeDrop := math.Max(t.MinEARDrop, noise*t.CloseNoiseMult) / e.config.Sensitivity
	openDrop := math.Max(t.MinEARDrop*t.OpenDropFrac, noise*t.OpenNoiseMult) / e.config.Sensitivity
	return baseline - closeDrop, baseline - openDrop
}

// trackBlink opens a BlinkEvent when a synchronized closure begins and
// closes it when the eyes reopen.
func (e *Engine) trackBlink(syncBlink bool, now time.Time) {
	open := e.blinkOpen()

	if syncBlink && !open {
		start := e.leftClosedAt
		if e.rightClosedAt.Before(start) {
			start = e.rightClosedAt
		}
		e.blinks = append(e.blinks, BlinkEvent{Start: start})
		return
	}

	if !syncBlink && open {
		e.blinks[len(e.blinks)-1].End = now
	}
}

// blinkOpen reports whether a blink interval is currently in progress.
func (e *Engine) blinkOpen() bool {
	return len(e.blinks) > 0 && !e.blinks[len(e.blinks)-1].completed()
}

// pruneBlinks drops completed events older than the retention window.
func (e *Engine) pruneBlinks(now time.Time) {
	cutoff := now.Add(-e.config.Tuning.BlinkRetention)
	kept := e.blinks[:0]
	for _, b := range e.blinks {
		if !b.completed() || b.End.After(cutoff) {
			kept = append(kept, b)
		}
	}
	e.blinks = kept
}

// detectWink advances the wink state machine and returns a wink candidate
// when an asymmetric closure resolves within the wink duration band.
func (e *Engine) detectWink(left, right float64, leftOpen, rightOpen, syncBlink bool, now time.Time) Gesture {
	t := e.config.Tuning

	// The eye difference must clear a threshold adapted to the user's
	// measured asymmetry noise.
	diffThr := math.Max(t.WinkMinDiff, e.noise.Diff*t.WinkDiffNoiseMult) / e.config.Sensitivity

	leftWinking := !syncBlink && e.leftClosed && rightOpen && right-left >= diffThr
	rightWinking := !syncBlink && e.rightClosed && leftOpen && left-right >= diffThr

	switch e.wink {
	case WinkNone:
		if leftWinking {
			e.wink = WinkingLeftEye
			e.winkStart = now
		} else if rightWinking {
			e.wink = WinkingRightEye
			e.winkStart = now
		}

	case WinkingLeftEye:
		if !leftWinking {
			return e.resolveWink(WinkLeft, now)
		}

	case WinkingRightEye:
		if !rightWinking {
			return e.resolveWink(WinkRight, now)
		}
	}

	return ""
}

// resolveWink ends the in-progress wink and returns it as a candidate when
// the held duration lies inside [WinkMin, WinkMax] and the wink cooldown
// has elapsed. Durations outside the band are noise or a one-sided droop.
func (e *Engine) resolveWink(gesture Gesture, now time.Time) Gesture {
	t := e.config.Tuning
	held := now.Sub(e.winkStart)

	prevEnd := e.lastWinkEnd
	e.wink = WinkNone
	e.lastWinkEnd = now

	if held < t.WinkMin || held > t.WinkMax {
		return ""
	}
	if !prevEnd.IsZero() && now.Sub(prevEnd) < t.WinkCooldown {
		return ""
	}
	return gesture
}

// blinkCandidate inspects the completed blink events for a long blink or a
// double blink that just resolved. Matched events are consumed so a pattern
// can never fire twice.
func (e *Engine) blinkCandidate(now time.Time) Gesture {
	t := e.config.Tuning

	done := e.completedBlinks()
	if len(done) == 0 {
		return ""
	}

	last := done[len(done)-1]
	if now.Sub(last.End) > t.PatternRecent {
		return ""
	}

	d := last.duration()

	if d >= t.LongBlinkMin && d <= t.LongBlinkMax {
		e.consumeCompletedBlinks()
		return LongBlink
	}

	if d >= t.BlinkMin && d <= t.BlinkMax && len(done) >= 2 {
		prev := done[len(done)-2]
		pd := prev.duration()
		gap := last.Start.Sub(prev.End)
		if pd >= t.BlinkMin && pd <= t.BlinkMax &&
			gap > t.MinBlinkGap && gap < t.DoubleBlinkWindow {
			e.consumeCompletedBlinks()
			return DoubleBlink
		}
	}

	return ""
}

// completedBlinks returns the closed blink events in order.
func (e *Engine) completedBlinks() []BlinkEvent {
	done := make([]BlinkEvent, 0, len(e.blinks))
	for _, b := range e.blinks {
		if b.completed() {
			done = append(done, b)
		}
	}
	return done
}

// consumeCompletedBlinks removes closed events after a pattern matched.
func (e *Engine) consumeCompletedBlinks() {
	kept := e.blinks[:0]
	for _, b := range e.blinks {
		if !b.completed() {
			kept = append(kept, b)
		}
	}
	e.blinks = kept
}

// updateHead advances the head-turn state machine. A turn candidate is
// emitted once per excursion; the yaw must return to the center band before
// another turn can fire, so a held turn cannot repeat.
func (e *Engine) updateHead(yaw float64, now time.Time) Gesture {
	t := e.config.Tuning
	delta := yaw - e.baseline.Yaw
	threshold := t.TurnThreshold / e.config.Sensitivity
	centered := math.Abs(delta) <= t.CenterBand

	switch e.head {
	case HeadCenter:
		if delta <= -threshold {
			e.head = HeadTurnedLeft
			return HeadLeft
		}
		if delta >= threshold {
			e.head = HeadTurnedRight
			return HeadRight
		}

	case HeadTurnedLeft:
		if centered {
			e.head = HeadCenter
		} else {
			e.head = HeadTriggeredLeft
		}

	case HeadTurnedRight:
		if centered {
			e.head = HeadCenter
		} else {
			e.head = HeadTriggeredRight
		}

	case HeadTriggeredLeft, HeadTriggeredRight:
		if centered {
			e.head = HeadCenter
		}
	}

	return ""
}

// armed reports whether a trigger may fire: the global cooldown must have
// elapsed and the engine must have re-armed via open-eye frames since the
// previous trigger.
func (e *Engine) armed(now time.Time) bool {
	return !now.Before(e.cooldownUntil) && e.rearmed
}

// dispatch invokes the configured callback for the fired direction. The
// engine does not wait on the callback's work; slow handlers belong in a
// goroutine on the caller's side.
func (e *Engine) dispatch(direction Direction) {
	switch direction {
	case DirectionNext:
		if e.config.OnNext != nil {
			e.config.OnNext()
		}
	case DirectionPrev:
		if e.config.OnPrev != nil {
			e.config.OnPrev()
		}
	}
}

// measureFPS tracks the effective processed-frame rate over one-second
// windows for the debug snapshot.
func (e *Engine) measureFPS(now time.Time) {
	if e.fpsWindowStart.IsZero() {
		e.fpsWindowStart = now
	}
	e.fpsCount++

	if elapsed := now.Sub(e.fpsWindowStart); elapsed >= time.Second {
		e.fps = float64(e.fpsCount) / elapsed.Seconds()
		e.fpsCount = 0
		e.fpsWindowStart = now
	}
}

// snapshot assembles the state-machine portion of the debug readout.
func (e *Engine) snapshot(now time.Time, faceDetected bool) Snapshot {
	cooldown := e.cooldownUntil.Sub(now)
	if cooldown < 0 {
		cooldown = 0
	}

	return Snapshot{
		Timestamp:         now,
		FaceDetected:      faceDetected,
		LeftClosed:        e.leftClosed,
		RightClosed:       e.rightClosed,
		BlinkActive:       e.blinkOpen(),
		BlinkCount:        len(e.completedBlinks()),
		WinkState:         e.wink,
		HeadState:         e.head,
		TurnThreshold:     e.config.Tuning.TurnThreshold / e.config.Sensitivity,
		CooldownRemaining: cooldown,
		OpenFrames:        e.openFrames,
		Rearmed:           e.rearmed,
		FPS:               e.fps,
		LastGesture:       e.lastGesture,
		LastDirection:     e.lastDirection,
	}
}

// absDuration returns the absolute value of d.
func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
