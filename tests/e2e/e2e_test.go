//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gamaccess/gamaccess/internal/auth"
	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/repository"
)

type apiKeyCreateResponse struct {
	ID     string   `json:"id"`
	Key    string   `json:"key"`
	Scopes []string `json:"scopes"`
}

type summaryResponse struct {
	Range     string `json:"range"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Totals    struct {
		Impressions int64   `json:"impressions"`
		Clicks      int64   `json:"clicks"`
		CTR         float64 `json:"ctr"`
	} `json:"totals"`
}

type grantResponse struct {
	Email   string `json:"email"`
	Results []struct {
		Network string `json:"network"`
		Status  string `json:"status"`
		Error   string `json:"error"`
	} `json:"results"`
}

// TestE2ESmoke runs the key lifecycle and report path against a live
// server. Reports assume REPORT_SOURCE=static; grant and network calls
// need real GAM credentials and only run with GAM_E2E=1.
func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("GAMACCESS_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	bootstrapKey := bootstrapAdminKey(t, dbURL, model.TierUnlimited, []string{model.ScopeAdmin})
	testKey := createAPIKey(t, baseURL, bootstrapKey)

	assertSummary(t, baseURL, testKey)
	assertGrantEventsListable(t, baseURL, testKey)

	if os.Getenv("GAM_E2E") == "1" {
		assertNetworksListable(t, baseURL, testKey)
		assertGrant(t, baseURL, testKey)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func bootstrapAdminKey(t *testing.T, dbURL, tier string, scopes []string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}

	apiKey := &model.APIKey{
		ID:            ulid.Make().String(),
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          "e2e-bootstrap",
		CreatedAt:     time.Now().UTC(),
	}

	if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
		t.Fatalf("create api key: %v", err)
	}

	return generated.Plaintext
}

func createAPIKey(t *testing.T, baseURL, bootstrapKey string) string {
	t.Helper()

	payload := map[string]any{
		"name":   "e2e-key",
		"scopes": []string{"admin"},
		"tier":   "unlimited",
	}

	var resp apiKeyCreateResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/api-keys", bootstrapKey, payload, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from api key create, got %d", status)
	}
	if resp.Key == "" {
		t.Fatalf("api key response missing key")
	}
	return resp.Key
}

func assertSummary(t *testing.T, baseURL, apiKey string) {
	t.Helper()

	var resp summaryResponse
	status := doJSON(t, http.MethodGet, baseURL+"/api/v1/reports/summary?range=last_7_days", apiKey, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from summary, got %d", status)
	}
	if resp.Range != "last_7_days" {
		t.Fatalf("summary echoed range %q", resp.Range)
	}
	if resp.StartDate == "" || resp.EndDate == "" {
		t.Fatalf("summary missing resolved dates: %+v", resp)
	}
	if resp.Totals.Impressions <= 0 {
		t.Fatalf("summary impressions = %d, want positive", resp.Totals.Impressions)
	}
}

func assertGrantEventsListable(t *testing.T, baseURL, apiKey string) {
	t.Helper()

	var resp struct {
		Events []json.RawMessage `json:"events"`
	}
	status := doJSON(t, http.MethodGet, baseURL+"/api/v1/grant-events?limit=10", apiKey, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from grant-events, got %d", status)
	}
}

func assertNetworksListable(t *testing.T, baseURL, apiKey string) {
	t.Helper()

	var resp struct {
		Networks []struct {
			NetworkCode string `json:"networkCode"`
		} `json:"networks"`
	}
	status := doJSON(t, http.MethodGet, baseURL+"/api/v1/networks", apiKey, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from networks, got %d", status)
	}
}

func assertGrant(t *testing.T, baseURL, apiKey string) {
	t.Helper()

	email := os.Getenv("GAM_E2E_GRANT_EMAIL")
	if email == "" {
		t.Skip("GAM_E2E_GRANT_EMAIL not set")
	}

	payload := map[string]any{"email": email}

	var resp grantResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/grant-access", apiKey, payload, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from grant-access, got %d", status)
	}
	if len(resp.Results) == 0 {
		t.Fatalf("grant returned no per-network results")
	}
	for _, result := range resp.Results {
		if result.Status == "error" {
			t.Errorf("network %s failed: %s", result.Network, result.Error)
		}
	}

	// Granting again must converge on already-admin, not fail.
	status = doJSON(t, http.MethodPost, baseURL+"/api/v1/grant-access", apiKey, payload, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from repeated grant, got %d", status)
	}
	for _, result := range resp.Results {
		if result.Status != "already-admin" {
			t.Errorf("repeated grant on %s = %q, want already-admin", result.Network, result.Status)
		}
	}
}

// TestE2ERateLimiting validates that rate limiting returns 429 with proper headers.
func TestE2ERateLimiting(t *testing.T) {
	baseURL := envOrDefault("GAMACCESS_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	// Standard tier: 60 RPM, burst 10.
	testKey := bootstrapAdminKey(t, dbURL, model.TierStandard, []string{model.ScopeRead})

	client := &http.Client{Timeout: 10 * time.Second}
	var rateLimited bool
	var lastResp *http.Response

	for i := 0; i < 20; i++ {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/reports/summary?range=today", nil)
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+testKey)

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			lastResp = resp
			break
		}
		resp.Body.Close()
	}

	if !rateLimited {
		t.Fatalf("expected 429 rate limit after burst, but never hit rate limit")
	}

	defer lastResp.Body.Close()

	if lastResp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header on 429 response")
	}
	if remaining := lastResp.Header.Get("X-RateLimit-Remaining"); remaining != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", remaining)
	}
	if lastResp.Header.Get("Retry-After") == "" {
		t.Log("Retry-After header not present (optional but recommended)")
	}

	var errResp map[string]any
	if err := json.NewDecoder(lastResp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp["error"] == nil {
		t.Error("429 response missing 'error' field")
	}
}

// TestE2ENoSecretsInResponses validates that API keys never appear in
// response bodies.
func TestE2ENoSecretsInResponses(t *testing.T) {
	baseURL := envOrDefault("GAMACCESS_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	bootstrapKey := bootstrapAdminKey(t, dbURL, model.TierUnlimited, []string{model.ScopeAdmin})

	client := &http.Client{Timeout: 10 * time.Second}

	// A fake key must never be echoed in the error body.
	fakeKey := "gak_live_abc123_" + strings.Repeat("f", 32)
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/networks", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+fakeKey)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if strings.Contains(string(body), fakeKey) {
		t.Error("SECURITY: Error response leaked Authorization header value")
	}

	// Key listings must not contain the plaintext key.
	req2, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/api-keys", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req2.Header.Set("Authorization", "Bearer "+bootstrapKey)

	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if strings.Contains(string(body2), bootstrapKey) {
		t.Error("SECURITY: Key listing echoed back a plaintext API key")
	}
	if strings.Contains(string(body2), "key_hash") {
		t.Error("SECURITY: Key listing exposes stored hashes")
	}
}

func doJSON(t *testing.T, method, url, apiKey string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && resp.ContentLength != 0 {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}
