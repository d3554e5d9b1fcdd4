package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsubito/volti/internal/store"
)

func newTestHandler(t *testing.T) (*ProfileHandler, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return NewProfileHandler(s), s
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createProfile(t *testing.T, h *ProfileHandler, body string) profileResponse {
	t.Helper()

	rec := doRequest(t, h, http.MethodPost, "/api/profiles", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestProfileHandler_Create(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := createProfile(t, h, `{"name": "recital", "triggerNext": "head_right", "sensitivity": 1.2}`)

	if resp.ID == "" {
		t.Error("expected a generated ID")
	}
	if resp.Name != "recital" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.TriggerNext != "head_right" {
		t.Errorf("triggerNext = %q", resp.TriggerNext)
	}
	// Omitted fields fall back to defaults.
	if resp.TriggerPrev != "long_blink" {
		t.Errorf("triggerPrev = %q, want default long_blink", resp.TriggerPrev)
	}
	if resp.CooldownMs != 1000 {
		t.Errorf("cooldownMs = %d, want default 1000", resp.CooldownMs)
	}
}

func TestProfileHandler_CreateValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"triggerNext": "double_blink"}`},
		{"blank name", `{"name": "   "}`},
		{"unknown gesture", `{"name": "x", "triggerNext": "triple_nod"}`},
		{"same binding both ways", `{"name": "x", "triggerNext": "double_blink", "triggerPrev": "double_blink"}`},
		{"negative sensitivity", `{"name": "x", "sensitivity": -1}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/profiles", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestProfileHandler_GetAndList(t *testing.T) {
	h, _ := newTestHandler(t)

	created := createProfile(t, h, `{"name": "home"}`)
	createProfile(t, h, `{"name": "stage"}`)

	rec := doRequest(t, h, http.MethodGet, "/api/profiles/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get returned %d", rec.Code)
	}
	var got profileResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "home" {
		t.Errorf("name = %q", got.Name)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var list listProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Profiles) != 2 {
		t.Errorf("profiles = %d, want 2", len(list.Profiles))
	}
}

func TestProfileHandler_GetMissing(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/profiles/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProfileHandler_Update(t *testing.T) {
	h, _ := newTestHandler(t)

	created := createProfile(t, h, `{"name": "before"}`)

	rec := doRequest(t, h, http.MethodPut, "/api/profiles/"+created.ID,
		`{"name": "after", "triggerNext": "wink_right", "triggerPrev": "wink_left", "cooldownMs": 750}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	var got profileResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "after" || got.TriggerNext != "wink_right" || got.CooldownMs != 750 {
		t.Errorf("updated profile = %+v", got)
	}

	rec = doRequest(t, h, http.MethodPut, "/api/profiles/nope", `{"name": "x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProfileHandler_Delete(t *testing.T) {
	h, _ := newTestHandler(t)

	created := createProfile(t, h, `{"name": "gone"}`)

	rec := doRequest(t, h, http.MethodDelete, "/api/profiles/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/profiles/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted profile still there: %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/profiles/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTriggersHandler(t *testing.T) {
	_, s := newTestHandler(t)

	log := s.TriggerLog()
	for _, g := range []string{"double_blink", "long_blink", "head_right"} {
		if err := log.Insert(&store.TriggerEntry{Gesture: g, Direction: "next"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	th := NewTriggersHandler(s)

	rec := doRequest(t, th, http.MethodGet, "/api/triggers?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list listTriggersResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Triggers) != 2 {
		t.Errorf("triggers = %d, want 2", len(list.Triggers))
	}

	rec = doRequest(t, th, http.MethodGet, "/api/triggers?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, th, http.MethodPost, "/api/triggers", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
