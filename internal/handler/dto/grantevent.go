package dto

import (
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
)

// GrantEventResponse is one audit record in the listing.
type GrantEventResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	NetworkCode string    `json:"network_code"`
	Status      string    `json:"status"`
	UserID      *int64    `json:"user_id,omitempty"`
	RoleID      *int64    `json:"role_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// GrantEventListResponse is the body for GET /api/v1/grant-events.
type GrantEventListResponse struct {
	Events []GrantEventResponse `json:"events"`
}

// ToGrantEventListResponse converts audit records to the wire shape.
func ToGrantEventListResponse(events []*model.GrantEvent) GrantEventListResponse {
	out := make([]GrantEventResponse, len(events))
	for i, e := range events {
		out[i] = GrantEventResponse{
			ID:          e.ID,
			Email:       e.Email,
			NetworkCode: e.NetworkCode,
			Status:      string(e.Status),
			UserID:      e.UserID,
			RoleID:      e.RoleID,
			Error:       e.Error,
			RequestedBy: e.RequestedBy,
			OccurredAt:  e.OccurredAt,
		}
	}
	return GrantEventListResponse{Events: out}
}
