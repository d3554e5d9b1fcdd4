package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/vsubito/volti/internal/app"
	"github.com/vsubito/volti/internal/server"
	"github.com/vsubito/volti/internal/store"
	"github.com/vsubito/volti/internal/tray"
)

func main() {
	var (
		addr     = flag.String("addr", ":8080", "HTTP listen address")
		cameraID = flag.Int("camera", 0, "camera device ID")
		profile  = flag.String("profile", "", "profile name (default profile when empty)")
		headless = flag.Bool("headless", false, "run without the system tray")
		dataFlag = flag.String("data-dir", "", "data directory (defaults to ~/.volti)")
	)
	flag.Parse()

	fmt.Println("Volti - hands-free page turner")

	dataDir := *dataFlag
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		dataDir = filepath.Join(homeDir, ".volti")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "volti.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:       st,
		PluginDir:   filepath.Join(dataDir, "plugins"),
		CameraID:    *cameraID,
		ProfileName: *profile,
	})

	if err := a.LoadProfile(); err != nil {
		log.Fatalf("Failed to load profile: %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	hub := server.NewSnapshotHub()
	a.SetPublisher(hub)

	srv := server.New(server.Config{
		StaticDir:  findWebDir(dataDir),
		Store:      st,
		Camera:     a.Camera(),
		Hub:        hub,
		Controller: a,
	})

	go func() {
		log.Printf("Starting server on %s", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection: %v", err)
	}
	a.SetEnabled(true)
	defer a.Stop()

	if *headless {
		select {}
	}

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnRecalibrate(a.RequestRecalibration)
	t.OnSettings(func() { openBrowser("http://localhost" + *addr) })
	t.OnQuit(a.Stop)
	a.SetTriggerListener(func(gesture, direction string) {
		t.SetLastTrigger(gesture + " -> " + direction)
	})

	// Blocks until quit.
	t.Run()
}

// findWebDir searches common locations for the settings UI.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// openBrowser opens the URL with the platform opener.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
