// Package main provides the webhook output plugin. It POSTs every page
// turn to a configured URL, for setups where the sheet music lives on a
// tablet or another machine.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
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

// WebhookConfig holds the target endpoint.
type WebhookConfig struct {
	URL string `json:"url"`
}

type webhookPayload struct {
	Direction string `json:"direction"`
	Gesture   string `json:"gesture"`
	Timestamp int64  `json:"timestamp"`
}

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

	var cfg WebhookConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}
	if cfg.URL == "" {
		writeErrorResponse("url is required in the plugin config")
		return
	}

	payload, err := json.Marshal(webhookPayload{
		Direction: req.Direction,
		Gesture:   req.Gesture,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		writeErrorResponse(fmt.Sprintf("failed to marshal payload: %v", err))
		return
	}

	client := &http.Client{Timeout: 1500 * time.Millisecond}
	resp, err := client.Post(cfg.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		writeErrorResponse(fmt.Sprintf("webhook failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		writeErrorResponse(fmt.Sprintf("webhook returned %s", resp.Status))
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
