package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/vsubito/volti/internal/detector"
)

// frameStep is just above the engine's minimum processing interval at the
// default 30fps target, so no harness frame is rate-limit skipped.
const frameStep = 33 * time.Millisecond

type harness struct {
	eng  *Engine
	now  time.Time
	next int
	prev int
}

func newHarness(cfg Config) *harness {
	h := &harness{now: time.Unix(1000, 0)}
	cfg.OnNext = func() { h.next++ }
	cfg.OnPrev = func() { h.prev++ }

	baseline := Baseline{LeftEAR: 0.30, RightEAR: 0.30, Yaw: 0}
	h.eng = New(cfg, baseline, DefaultNoise())
	return h
}

func (h *harness) feed(face *detector.FaceLandmarks) (Direction, Snapshot) {
	h.now = h.now.Add(frameStep)
	return h.eng.ProcessFrame(face, h.now)
}

// run feeds the same face n times and returns the directions that fired.
func (h *harness) run(face *detector.FaceLandmarks, n int) []Direction {
	var fired []Direction
	for i := 0; i < n; i++ {
		d, _ := h.feed(face)
		if d != DirectionNone {
			fired = append(fired, d)
		}
	}
	return fired
}

// phases feeds each (face, count) phase in order and returns all fires.
type phase struct {
	face  detector.FaceLandmarks
	count int
}

func (h *harness) runPhases(phases []phase) []Direction {
	var fired []Direction
	for _, p := range phases {
		face := p.face
		fired = append(fired, h.run(&face, p.count)...)
	}
	return fired
}

func openFace() detector.FaceLandmarks   { return detector.NeutralFaceLandmarks() }
func closedFace() detector.FaceLandmarks { return detector.ClosedEyesLandmarks() }

func doubleBlinkPhases() []phase {
	return []phase{
		{openFace(), 5},
		{closedFace(), 5},
		{openFace(), 5},
		{closedFace(), 5},
		{openFace(), 5},
	}
}

func TestEngine_SingleBlinkDoesNotTrigger(t *testing.T) {
	h := newHarness(DefaultConfig())

	fired := h.runPhases([]phase{
		{openFace(), 5},
		{closedFace(), 5},
		{openFace(), 10},
	})
	if len(fired) != 0 {
		t.Fatalf("single blink fired %v, want nothing", fired)
	}

	_, snap := h.feed(ptr(openFace()))
	if snap.BlinkCount != 1 {
		t.Errorf("blink count = %d, want 1", snap.BlinkCount)
	}
}

func TestEngine_DoubleBlinkFiresNext(t *testing.T) {
	h := newHarness(DefaultConfig())

	fired := h.runPhases(doubleBlinkPhases())
	if len(fired) != 1 || fired[0] != DirectionNext {
		t.Fatalf("fired = %v, want exactly one next", fired)
	}
	if h.next != 1 || h.prev != 0 {
		t.Errorf("callbacks next=%d prev=%d, want 1/0", h.next, h.prev)
	}
}

func TestEngine_LongBlinkFiresPrev(t *testing.T) {
	h := newHarness(DefaultConfig())

	fired := h.runPhases([]phase{
		{openFace(), 5},
		{closedFace(), 17}, // ~560ms closed once latched
		{openFace(), 10},
	})
	if len(fired) != 1 || fired[0] != DirectionPrev {
		t.Fatalf("fired = %v, want exactly one prev", fired)
	}
	if h.prev != 1 {
		t.Errorf("prev callbacks = %d, want 1", h.prev)
	}
}

func TestEngine_LongBlinkConsumedNotReusedForDouble(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown = time.Millisecond // isolate consumption from the cooldown

	h := newHarness(cfg)

	// A long blink followed shortly by a single short blink: the long
	// blink fires and is consumed, so the short blink stands alone and
	// must not complete a double-blink pattern.
	fired := h.runPhases([]phase{
		{openFace(), 5},
		{closedFace(), 17},
		{openFace(), 5},
		{closedFace(), 5},
		{openFace(), 10},
	})
	if len(fired) != 1 || fired[0] != DirectionPrev {
		t.Fatalf("fired = %v, want exactly one prev", fired)
	}
}

func TestEngine_WinkFires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TriggerNext = WinkLeft
	cfg.TriggerPrev = WinkRight

	t.Run("left", func(t *testing.T) {
		h := newHarness(cfg)
		fired := h.runPhases([]phase{
			{openFace(), 5},
			{detector.LeftWinkLandmarks(), 8},
			{openFace(), 10},
		})
		if len(fired) != 1 || fired[0] != DirectionNext {
			t.Fatalf("fired = %v, want exactly one next", fired)
		}
	})

	t.Run("right", func(t *testing.T) {
		h := newHarness(cfg)
		fired := h.runPhases([]phase{
			{openFace(), 5},
			{detector.RightWinkLandmarks(), 8},
			{openFace(), 10},
		})
		if len(fired) != 1 || fired[0] != DirectionPrev {
			t.Fatalf("fired = %v, want exactly one prev", fired)
		}
	})
}

func TestEngine_WinkHeldTooLongRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TriggerNext = WinkLeft

	h := newHarness(cfg)
	fired := h.runPhases([]phase{
		{openFace(), 5},
		{detector.LeftWinkLandmarks(), 20}, // held well past the wink band
		{openFace(), 10},
	})
	if len(fired) != 0 {
		t.Fatalf("over-long wink fired %v, want nothing", fired)
	}
}

func TestEngine_HeadTurnFiresOncePerExcursion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TriggerNext = HeadRight
	cfg.TriggerPrev = HeadLeft
	cfg.Cooldown = 50 * time.Millisecond

	h := newHarness(cfg)
	turned := detector.FaceWithSignals(0.30, 0.30, 25)

	if fired := h.run(&turned, 20); len(fired) != 1 || fired[0] != DirectionNext {
		t.Fatalf("first excursion fired %v, want exactly one next", fired)
	}

	// Holding the turn must not re-fire no matter how long.
	if fired := h.run(&turned, 30); len(fired) != 0 {
		t.Fatalf("held turn fired %v, want nothing", fired)
	}

	// Return to center, then a second excursion fires again.
	center := openFace()
	if fired := h.run(&center, 10); len(fired) != 0 {
		t.Fatalf("centering fired %v, want nothing", fired)
	}
	if fired := h.run(&turned, 20); len(fired) != 1 || fired[0] != DirectionNext {
		t.Fatalf("second excursion fired %v, want exactly one next", fired)
	}
}

func TestEngine_CooldownSuppressesAndConsumes(t *testing.T) {
	h := newHarness(DefaultConfig()) // 1s cooldown

	if fired := h.runPhases(doubleBlinkPhases()); len(fired) != 1 {
		t.Fatalf("first pattern fired %v, want one", fired)
	}

	// A second pattern inside the cooldown is suppressed, and its blink
	// events are consumed so nothing fires late.
	if fired := h.runPhases(doubleBlinkPhases()); len(fired) != 0 {
		t.Fatalf("pattern inside cooldown fired %v, want nothing", fired)
	}
	if fired := h.run(ptr(openFace()), 15); len(fired) != 0 {
		t.Fatalf("stale pattern fired %v after cooldown, want nothing", fired)
	}

	// A fresh pattern after the cooldown fires normally.
	if fired := h.runPhases(doubleBlinkPhases()); len(fired) != 1 {
		t.Fatalf("pattern after cooldown fired %v, want one", fired)
	}
	if h.next != 2 {
		t.Errorf("next callbacks = %d, want 2", h.next)
	}
}

func TestEngine_StaggeredClosureIsNotABlink(t *testing.T) {
	h := newHarness(DefaultConfig())

	// One eye closes well before the other (~260ms between latch onsets,
	// far past the sync window), then both sit closed. Without synchronized
	// onsets this must never open a blink interval, no matter how often it
	// happens.
	staggered := []phase{
		{openFace(), 5},
		{detector.LeftWinkLandmarks(), 8},
		{closedFace(), 5},
		{openFace(), 8},
	}

	fired := h.runPhases(staggered)
	fired = append(fired, h.runPhases(staggered)...)
	if len(fired) != 0 {
		t.Fatalf("staggered closures fired %v, want nothing", fired)
	}

	_, snap := h.feed(ptr(openFace()))
	if snap.BlinkCount != 0 {
		t.Errorf("blink count = %d, want 0", snap.BlinkCount)
	}
	if snap.BlinkActive {
		t.Error("unsynchronized closure opened a blink interval")
	}
}

func TestEngine_NoFaceFrames(t *testing.T) {
	h := newHarness(DefaultConfig())

	for i := 0; i < 10; i++ {
		d, snap := h.feed(nil)
		if d != DirectionNone {
			t.Fatalf("no-face frame fired %v", d)
		}
		if snap.FaceDetected {
			t.Fatal("snapshot reports a face on a nil frame")
		}
	}

	// Detection still works once the face comes back.
	if fired := h.runPhases(doubleBlinkPhases()); len(fired) != 1 {
		t.Fatalf("fired %v after no-face gap, want one", fired)
	}
}

func TestEngine_RateLimitSkipsFastFrames(t *testing.T) {
	h := newHarness(DefaultConfig())
	face := openFace()

	h.feed(&face)

	// A frame arriving 5ms later is skipped without touching state. The
	// snapshot still reports the face that was present in the call.
	h.now = h.now.Add(5 * time.Millisecond)
	d, snap := h.eng.ProcessFrame(&face, h.now)
	if d != DirectionNone || !snap.Skipped {
		t.Fatalf("fast frame: direction=%v skipped=%v, want none/true", d, snap.Skipped)
	}
	if !snap.FaceDetected {
		t.Error("skipped frame with a face reported faceDetected=false")
	}

	h.now = h.now.Add(5 * time.Millisecond)
	_, snap = h.eng.ProcessFrame(nil, h.now)
	if !snap.Skipped || snap.FaceDetected {
		t.Errorf("skipped nil frame: skipped=%v faceDetected=%v, want true/false",
			snap.Skipped, snap.FaceDetected)
	}

	// The next full-interval frame is processed normally.
	_, snap = h.feed(&face)
	if snap.Skipped {
		t.Error("full-interval frame was skipped")
	}
}

func TestEngine_NeutralInputIsQuiet(t *testing.T) {
	h := newHarness(DefaultConfig())

	if fired := h.run(ptr(openFace()), 200); len(fired) != 0 {
		t.Fatalf("neutral input fired %v", fired)
	}

	_, snap := h.feed(ptr(openFace()))
	if snap.BlinkCount != 0 || snap.LeftClosed || snap.RightClosed {
		t.Errorf("neutral steady state: %+v", snap)
	}
	if snap.HeadState != HeadCenter {
		t.Errorf("head state = %s, want center", snap.HeadState)
	}

	// The baseline only adapts toward the signal it already matches.
	if b := h.eng.Baseline(); math.Abs(b.LeftEAR-0.30) > 1e-9 {
		t.Errorf("baseline drifted to %f", b.LeftEAR)
	}
}

func TestEngine_EyesHeldClosedNeverFires(t *testing.T) {
	h := newHarness(DefaultConfig())

	h.run(ptr(openFace()), 5)
	fired := h.run(ptr(closedFace()), 60) // ~2s, past the long-blink cap
	if len(fired) != 0 {
		t.Fatalf("held-closed eyes fired %v", fired)
	}

	_, snap := h.feed(ptr(closedFace()))
	if !snap.BlinkActive {
		t.Error("expected an in-progress blink interval")
	}
}

func TestEngine_SensitivityScalesThresholds(t *testing.T) {
	// 0.255 sits between the close thresholds at sensitivity 1 (0.24)
	// and sensitivity 2 (0.27).
	droopy := detector.FaceWithSignals(0.255, 0.255, 0)

	low := newHarness(DefaultConfig())
	low.run(&droopy, 5)
	_, snap := low.feed(&droopy)
	if snap.LeftClosed {
		t.Error("sensitivity 1 judged a mild droop as closed")
	}
	if math.Abs(snap.CloseThresholdLeft-0.24) > 1e-9 {
		t.Errorf("close threshold = %f, want 0.24", snap.CloseThresholdLeft)
	}

	cfg := DefaultConfig()
	cfg.Sensitivity = 2
	high := newHarness(cfg)
	high.run(&droopy, 5)
	_, snap = high.feed(&droopy)
	if !snap.LeftClosed {
		t.Error("sensitivity 2 should judge the droop as closed")
	}
	if math.Abs(snap.CloseThresholdLeft-0.27) > 1e-9 {
		t.Errorf("close threshold = %f, want 0.27", snap.CloseThresholdLeft)
	}
}

func TestEngine_Reset(t *testing.T) {
	h := newHarness(DefaultConfig())

	h.runPhases(doubleBlinkPhases())
	h.eng.Reset()

	_, snap := h.feed(ptr(openFace()))
	if snap.BlinkCount != 0 || snap.LeftClosed || snap.RightClosed {
		t.Errorf("state survived reset: %+v", snap)
	}
	if snap.HeadState != HeadCenter || snap.WinkState != WinkNone {
		t.Errorf("machines survived reset: head=%s wink=%s", snap.HeadState, snap.WinkState)
	}
	if !snap.Rearmed {
		t.Error("engine not rearmed after reset")
	}

	// Detection works again from a clean slate.
	if fired := h.runPhases(doubleBlinkPhases()); len(fired) != 1 {
		t.Fatalf("fired %v after reset, want one", fired)
	}
}

func TestEngine_ZeroConfigGetsDefaults(t *testing.T) {
	eng := New(Config{}, DefaultBaseline(), DefaultNoise())

	cfg := eng.Config()
	if cfg.Sensitivity != 1.0 {
		t.Errorf("sensitivity = %f, want 1", cfg.Sensitivity)
	}
	if cfg.Tuning.TargetFPS != 30 {
		t.Errorf("target fps = %d, want 30", cfg.Tuning.TargetFPS)
	}
	if cfg.Tuning.HistoryLen != 5 {
		t.Errorf("history len = %d, want 5", cfg.Tuning.HistoryLen)
	}
}

func ptr(f detector.FaceLandmarks) *detector.FaceLandmarks {
	return &f
}
