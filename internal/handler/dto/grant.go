// Package dto defines request and response bodies for the API.
package dto

import (
	"github.com/gamaccess/gamaccess/internal/model"
)

// GrantRequest is the body for POST /api/v1/grant-access.
type GrantRequest struct {
	Email    string   `json:"email"`
	Networks []string `json:"networks,omitempty"`
}

// NetworkGrantResult is one per-network outcome in a grant response.
type NetworkGrantResult struct {
	Network string `json:"network"`
	Status  string `json:"status"`
	UserID  *int64 `json:"userId,omitempty"`
	RoleID  *int64 `json:"roleId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GrantResponse is the full result of a grant request.
type GrantResponse struct {
	Email   string               `json:"email"`
	Results []NetworkGrantResult `json:"results"`
}

// ToGrantResponse converts the service result to the wire shape.
func ToGrantResponse(email string, grants []model.NetworkGrant) GrantResponse {
	results := make([]NetworkGrantResult, len(grants))
	for i, g := range grants {
		results[i] = NetworkGrantResult{
			Network: g.Network,
			Status:  string(g.Status),
			UserID:  g.UserID,
			RoleID:  g.RoleID,
			Error:   g.Error,
		}
	}
	return GrantResponse{Email: email, Results: results}
}
