package app

import (
	"context"
	"log"
	"time"

	"github.com/vsubito/volti/internal/capture"
	"github.com/vsubito/volti/internal/detector"
	"github.com/vsubito/volti/internal/gesture"
	"github.com/vsubito/volti/internal/plugin"
	"github.com/vsubito/volti/internal/store"
)

// cameraSource adapts the camera+detector pair to the calibration routine.
type cameraSource struct {
	camera   capture.Camera
	detector detector.Detector
}

func (s *cameraSource) NextFrame() (*detector.FaceLandmarks, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	return s.detector.Detect(frame)
}

// runPipeline is the main detection loop.
//
// Two modes:
//   - idle: low frame rate, motion detection only. Face detection stays
//     off until something moves in front of the camera.
//   - active: full frame rate, every frame goes through face detection
//     and the gesture engine. After FaceTimeout without a face the loop
//     drops back to idle and the engine state is cleared.
//
// Calibration runs inside this loop (at startup when no stored calibration
// exists, and whenever one is requested) so the engine is never fed frames
// concurrently with recalibration.
func (a *App) runPipeline(stopCh chan struct{}) {
	active := false
	lastFace := time.Now()

	ticker := time.NewTicker(time.Second / IdleFPS)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		frame, err := a.Camera().ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		if !active {
			// Cheap motion gate: no face detection until the scene changes.
			moved, _ := a.motion.Detect(frame)
			if !moved {
				frame.Close()
				continue
			}
		}

		face, err := a.Detector().Detect(frame)
		frame.Close()
		if err != nil {
			log.Printf("Error detecting face: %v", err)
			continue
		}

		now := time.Now()

		if face != nil {
			lastFace = now
			if !active {
				active = true
				a.Camera().SetFPS(ActiveFPS)
				ticker.Reset(time.Second / ActiveFPS)
				log.Println("Face found, switched to active mode")
			}
		}

		if !active {
			continue
		}

		if a.takeRecalibration() {
			a.calibrate(stopCh)
			continue
		}

		direction, snap := a.Engine().ProcessFrame(face, now)

		if p := a.publisherRef(); p != nil {
			p.Publish(snap)
		}

		if direction != gesture.DirectionNone {
			a.dispatch(snap.LastGesture, direction)
		}

		if face == nil && now.Sub(lastFace) > FaceTimeout {
			active = false
			a.Camera().SetFPS(IdleFPS)
			ticker.Reset(time.Second / IdleFPS)
			a.Engine().Reset()
			a.motion.Reset()
			log.Println("Face lost, switched to idle mode")
		}
	}
}

// takeRecalibration consumes a pending recalibration request.
func (a *App) takeRecalibration() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	pending := a.recalibrate
	a.recalibrate = false
	return pending
}

// publisherRef returns the snapshot publisher, if any.
func (a *App) publisherRef() Publisher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.publisher
}

// calibrate samples the camera for the calibration window, installs the
// result in the engine and persists it for the active profile. Stopping
// the app cancels an in-flight calibration.
func (a *App) calibrate(stopCh chan struct{}) {
	log.Println("Calibrating, look at the camera and keep still...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	src := &cameraSource{camera: a.Camera(), detector: a.Detector()}
	baseline, noise := gesture.Calibrate(ctx, src, gesture.CalibrationOptions{})

	engine := a.Engine()
	engine.SetBaseline(baseline, noise)
	engine.Reset()

	log.Printf("Calibrated: EAR %.3f/%.3f, yaw %.1f", baseline.LeftEAR, baseline.RightEAR, baseline.Yaw)

	profile := a.Profile()
	if a.config.Store == nil || profile == nil {
		return
	}

	err := a.config.Store.Calibrations().Save(&store.Calibration{
		ProfileID:     profile.ID,
		LeftEAR:       baseline.LeftEAR,
		RightEAR:      baseline.RightEAR,
		Yaw:           baseline.Yaw,
		NoiseLeftEAR:  noise.LeftEAR,
		NoiseRightEAR: noise.RightEAR,
		NoiseDiff:     noise.Diff,
		NoiseYaw:      noise.Yaw,
	})
	if err != nil {
		log.Printf("Failed to save calibration: %v", err)
	}
}

// dispatch records the trigger and delivers it through the output plugin.
// The pipeline never waits on delivery; a slow plugin costs pages, not
// frames.
func (a *App) dispatch(g gesture.Gesture, direction gesture.Direction) {
	a.mu.Lock()
	a.lastTrigger = string(g) + " -> " + string(direction)
	a.lastFired = time.Now()
	listener := a.onTrigger
	profile := a.profile
	a.mu.Unlock()

	log.Printf("Trigger: %s (%s)", g, direction)

	go func() {
		if a.config.Store != nil {
			entry := &store.TriggerEntry{
				Gesture:   string(g),
				Direction: string(direction),
			}
			if profile != nil {
				entry.ProfileID = profile.ID
			}
			if err := a.config.Store.TriggerLog().Insert(entry); err != nil {
				log.Printf("Failed to log trigger: %v", err)
			}
		}

		name := a.outputPluginName()
		p, err := a.pluginMgr.Get(name)
		if err != nil {
			log.Printf("Output plugin %q not available: %v", name, err)
		} else {
			resp, err := a.pluginExec.Execute(p, &plugin.Request{
				Action:    "page-turn",
				Direction: string(direction),
				Gesture:   string(g),
			})
			if err != nil {
				log.Printf("Plugin %q failed: %v", name, err)
			} else if !resp.Success {
				log.Printf("Plugin %q reported: %s", name, resp.Error)
			}
		}

		if listener != nil {
			listener(string(g), string(direction))
		}
	}()
}
