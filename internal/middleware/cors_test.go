package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(origins ...string) http.Handler {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins
	return CORS(cfg)(okHandler())
}

func TestCORS_SameOriginPassthrough(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	corsHandler("https://app.example.com").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("same-origin request should not get CORS headers")
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	corsHandler("https://app.example.com").ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q, want origin echoed", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("Vary: Origin should be set")
	}
}

func TestCORS_DisallowedPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example.net")

	rec := httptest.NewRecorder()
	corsHandler("https://app.example.com").ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	corsHandler("https://app.example.com").ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should list allowed methods")
	}
	if rec.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Errorf("Max-Age = %q, want 86400", rec.Header().Get("Access-Control-Max-Age"))
	}
}

func TestCORS_WildcardSubdomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://sub.example.com", true},
		{"https://deep.sub.example.com", true},
		{"https://notexample.com", false},
		{"https://example.com.evil.net", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", tt.origin)

		rec := httptest.NewRecorder()
		corsHandler("*.example.com").ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin") != ""
		if got != tt.want {
			t.Errorf("origin %q allowed = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	corsHandler().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("no configured origins should deny all cross-origin requests")
	}
}
