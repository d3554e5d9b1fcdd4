// Package plugin discovers and runs the output plugins that deliver page
// turns to the outside world (keystrokes, webhooks, and anything a user
// drops into the plugin directory).
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin on stdin when a trigger fires.
type Request struct {
	Action    string          `json:"action"`
	Direction string          `json:"direction"`
	Gesture   string          `json:"gesture"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is what a plugin writes to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
