// Package app wires the camera, face detector, gesture engine, store and
// output plugins into the running page-turner session.
package app

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsubito/volti/internal/capture"
	"github.com/vsubito/volti/internal/detector"
	"github.com/vsubito/volti/internal/gesture"
	"github.com/vsubito/volti/internal/plugin"
	"github.com/vsubito/volti/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while nobody is in front of the camera.
	IdleFPS = 5
	// ActiveFPS is the frame rate during gesture detection.
	ActiveFPS = capture.DefaultFPS
	// FaceTimeout is how long the pipeline keeps running at full rate
	// after the face disappears before dropping back to idle.
	FaceTimeout = 3 * time.Second
	// DefaultProfileName is used when no profile is configured.
	DefaultProfileName = "default"
	// settingOutputPlugin is the settings key naming the output plugin.
	settingOutputPlugin = "output_plugin"
	// defaultOutputPlugin delivers page turns as keystrokes.
	defaultOutputPlugin = "keyboard"
)

// Publisher receives per-frame engine snapshots. The HTTP snapshot hub
// implements it; tests use a recording stub.
type Publisher interface {
	Publish(v interface{})
}

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	CameraID     int
	MotionThresh float64
	ProfileName  string
}

// App orchestrates the detection session.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	engine     *gesture.Engine
	profile    *store.Profile
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	publisher  Publisher

	mu          sync.RWMutex
	enabled     bool
	stopCh      chan struct{}
	recalibrate bool
	onTrigger   func(gesture, direction string)
	lastTrigger string
	lastFired   time.Time
}

// New creates an App with the given configuration.
func New(config Config) *App {
	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.CameraID),
		motion:     capture.NewMotionDetector(config.MotionThresh),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(plugin.DefaultTimeout),
	}

	// Try MediaPipe first, fall back to the mock detector so the rest of
	// the app stays testable on machines without the model.
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe face detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled pauses or resumes gesture detection without tearing down the
// pipeline.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the face detector implementation.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera, e.g. with a mock for tests.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetPublisher sets the sink for per-frame snapshots.
func (a *App) SetPublisher(p Publisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publisher = p
}

// SetTriggerListener registers a callback invoked after every fired
// trigger, e.g. to update the tray.
func (a *App) SetTriggerListener(fn func(gesture, direction string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onTrigger = fn
}

// RequestRecalibration asks the pipeline to redo calibration on its next
// frame. Implements the server's Controller interface.
func (a *App) RequestRecalibration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recalibrate = true
}

// LoadProfile loads (or creates) the configured profile and builds the
// gesture engine from it. A stored calibration is applied when present;
// otherwise the engine starts from defaults until the first calibration.
func (a *App) LoadProfile() error {
	name := a.config.ProfileName
	if name == "" {
		name = DefaultProfileName
	}

	profile, err := a.config.Store.Profiles().GetByName(name)
	if errors.Is(err, store.ErrNotFound) {
		def := gesture.DefaultConfig()
		profile = &store.Profile{
			ID:          uuid.New().String(),
			Name:        name,
			TriggerNext: string(def.TriggerNext),
			TriggerPrev: string(def.TriggerPrev),
			Sensitivity: def.Sensitivity,
			CooldownMs:  int(def.Cooldown.Milliseconds()),
		}
		if err := a.config.Store.Profiles().Create(profile); err != nil {
			return err
		}
		log.Printf("Created profile %q", name)
	} else if err != nil {
		return err
	}

	baseline := gesture.DefaultBaseline()
	noise := gesture.DefaultNoise()
	calibrated := false

	if cal, err := a.config.Store.Calibrations().Latest(profile.ID); err == nil {
		baseline = gesture.Baseline{LeftEAR: cal.LeftEAR, RightEAR: cal.RightEAR, Yaw: cal.Yaw}
		noise = gesture.NoiseEstimate{
			LeftEAR:  cal.NoiseLeftEAR,
			RightEAR: cal.NoiseRightEAR,
			Diff:     cal.NoiseDiff,
			Yaw:      cal.NoiseYaw,
		}
		calibrated = true
		log.Printf("Loaded calibration from %s", cal.CreatedAt.Format(time.RFC3339))
	}

	cfg := gesture.Config{
		TriggerNext: gesture.Gesture(profile.TriggerNext),
		TriggerPrev: gesture.Gesture(profile.TriggerPrev),
		Sensitivity: profile.Sensitivity,
		Cooldown:    time.Duration(profile.CooldownMs) * time.Millisecond,
	}

	a.mu.Lock()
	a.profile = profile
	a.engine = gesture.New(cfg, baseline, noise)
	a.recalibrate = !calibrated
	a.mu.Unlock()

	return nil
}

// DiscoverPlugins scans the plugin directory.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and launches the pipeline goroutine. Starting a
// running app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.engine == nil {
		// No profile loaded; run with defaults and calibrate on first use.
		a.engine = gesture.New(gesture.DefaultConfig(), gesture.DefaultBaseline(), gesture.DefaultNoise())
		a.recalibrate = true
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the face detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Engine returns the gesture engine, or nil before LoadProfile/Start.
func (a *App) Engine() *gesture.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Profile returns the active profile, or nil before LoadProfile.
func (a *App) Profile() *store.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// LastTrigger returns a short description of the most recent trigger and
// when it fired, for the tray.
func (a *App) LastTrigger() (string, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastTrigger, a.lastFired
}

// outputPluginName resolves which plugin delivers page turns.
func (a *App) outputPluginName() string {
	if a.config.Store == nil {
		return defaultOutputPlugin
	}
	name, err := a.config.Store.Settings().Get(settingOutputPlugin)
	if err != nil || name == "" {
		return defaultOutputPlugin
	}
	return name
}
