package model

import (
	"slices"
	"time"
)

// Scope constants for API key authorization.
const (
	// ScopeRead allows listing networks and fetching reports.
	ScopeRead = "read"
	// ScopeGrant allows granting Administrator access.
	ScopeGrant = "grant"
	// ScopeAdmin allows key management and audit access, and implies all scopes.
	ScopeAdmin = "admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeRead, ScopeGrant, ScopeAdmin}

// RateLimitTier constants.
const (
	TierStandard  = "standard"
	TierElevated  = "elevated"
	TierUnlimited = "unlimited"
)

// RateLimitConfig defines rate limit parameters per tier.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// TierConfigs maps tier names to their rate limit configurations.
// A zero RequestsPerMinute means unlimited.
var TierConfigs = map[string]RateLimitConfig{
	TierStandard:  {RequestsPerMinute: 60, Burst: 10},
	TierElevated:  {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {RequestsPerMinute: 0, Burst: 0},
}

// APIKey represents an API key entity.
type APIKey struct {
	ID            string     `json:"id"`
	KeyHash       string     `json:"-"` // Never serialize
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope checks if the key has a specific scope.
// Admin scope implies all other scopes.
func (k *APIKey) HasScope(scope string) bool {
	if slices.Contains(k.Scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(k.Scopes, scope)
}

// GetRateLimitConfig returns the rate limit configuration for this key.
func (k *APIKey) GetRateLimitConfig() RateLimitConfig {
	if config, ok := TierConfigs[k.RateLimitTier]; ok {
		return config
	}
	return TierConfigs[TierStandard]
}

// AuthContext holds authenticated request context.
// Injected into the request context by the auth middleware.
type AuthContext struct {
	KeyID         string
	KeyPrefix     string
	Scopes        []string
	RateLimitTier string
}

// HasScope checks if the auth context has a specific scope.
func (a *AuthContext) HasScope(scope string) bool {
	if slices.Contains(a.Scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(a.Scopes, scope)
}
