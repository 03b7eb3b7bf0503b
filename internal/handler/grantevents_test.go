package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGrantEventHandler_RejectsBadLimits(t *testing.T) {
	t.Parallel()

	// Validation failures return before the repository is touched, so
	// a nil repository is fine for these cases.
	h := NewGrantEventHandler(testLogger(), nil)

	tests := []struct {
		name string
		url  string
	}{
		{"zero", "/api/v1/grant-events?limit=0"},
		{"negative", "/api/v1/grant-events?limit=-5"},
		{"not a number", "/api/v1/grant-events?limit=abc"},
		{"over maximum", "/api/v1/grant-events?limit=501"},
		{"far over maximum", "/api/v1/grant-events?limit=100000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.ListGrantEvents(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Error.Code != "INVALID_REQUEST" {
				t.Errorf("code = %q, want INVALID_REQUEST", body.Error.Code)
			}
			if !strings.Contains(body.Error.Message, "500") {
				t.Errorf("message %q should state the maximum", body.Error.Message)
			}
		})
	}
}
