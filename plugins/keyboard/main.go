// Package main provides the keyboard output plugin for macOS.
// It turns pages by sending Page Down / Page Up key codes via AppleScript,
// which works with most sheet music readers out of the box.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action    string          `json:"action"`
	Direction string          `json:"direction"`
	Gesture   string          `json:"gesture"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PageTurnConfig allows rebinding the keys, e.g. to arrow keys for readers
// that page with those instead.
type PageTurnConfig struct {
	NextKeyCode int `json:"nextKeyCode"`
	PrevKeyCode int `json:"prevKeyCode"`
}

// macOS virtual key codes.
const (
	keyCodePageDown = 121
	keyCodePageUp   = 116
)

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "page-turn" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg := PageTurnConfig{
		NextKeyCode: keyCodePageDown,
		PrevKeyCode: keyCodePageUp,
	}
	if len(req.Config) > 0 {
		var override PageTurnConfig
		if err := json.Unmarshal(req.Config, &override); err == nil {
			if override.NextKeyCode != 0 {
				cfg.NextKeyCode = override.NextKeyCode
			}
			if override.PrevKeyCode != 0 {
				cfg.PrevKeyCode = override.PrevKeyCode
			}
		}
	}

	var keyCode int
	switch req.Direction {
	case "next":
		keyCode = cfg.NextKeyCode
	case "prev":
		keyCode = cfg.PrevKeyCode
	default:
		writeErrorResponse(fmt.Sprintf("unknown direction: %s", req.Direction))
		return
	}

	script := fmt.Sprintf(`tell application "System Events" to key code %d`, keyCode)
	if err := runAppleScript(script); err != nil {
		writeErrorResponse(fmt.Sprintf("keystroke failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
