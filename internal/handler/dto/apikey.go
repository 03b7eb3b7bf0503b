package dto

import (
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
)

// APIKeyCreateRequest is the body for POST /api/v1/api-keys.
type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	Tier   string   `json:"tier,omitempty"`
}

// APIKeyCreateResponse returns the plaintext key exactly once.
type APIKeyCreateResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name,omitempty"`
	KeyPrefix     string    `json:"key_prefix"`
	Scopes        []string  `json:"scopes"`
	RateLimitTier string    `json:"rate_limit_tier"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIKeyResponse is a key without secret material, for listings.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToAPIKeyResponse strips secret material for listing responses.
func ToAPIKeyResponse(k *model.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		LastUsedAt:    k.LastUsedAt,
		RevokedAt:     k.RevokedAt,
		CreatedAt:     k.CreatedAt,
	}
}
