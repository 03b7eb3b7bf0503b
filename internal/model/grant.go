package model

import "time"

// GrantStatus is the terminal state of a single-network grant attempt.
type GrantStatus string

const (
	// GrantCreated means the user did not exist and was created as Administrator.
	GrantCreated GrantStatus = "created"
	// GrantUpgraded means the user existed with a different role and was upgraded.
	GrantUpgraded GrantStatus = "upgraded"
	// GrantAlreadyAdmin means the user already held the Administrator role.
	GrantAlreadyAdmin GrantStatus = "already-admin"
	// GrantError means the attempt failed; Error carries the message.
	GrantError GrantStatus = "error"
)

// NetworkGrant is the per-network outcome of a batch grant request.
// A failed network never hides the outcomes of its siblings.
type NetworkGrant struct {
	Network string      `json:"network"`
	Status  GrantStatus `json:"status"`
	UserID  *int64      `json:"userId,omitempty"`
	RoleID  *int64      `json:"roleId,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Succeeded reports whether the grant reached a terminal success state.
func (g *NetworkGrant) Succeeded() bool {
	return g.Status != GrantError
}

// GrantEvent is an audit record of one grant attempt, persisted by the
// audit worker.
type GrantEvent struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	NetworkCode string      `json:"network_code"`
	Status      GrantStatus `json:"status"`
	UserID      *int64      `json:"user_id,omitempty"`
	RoleID      *int64      `json:"role_id,omitempty"`
	Error       string      `json:"error,omitempty"`
	// RequestedBy is the API key id that initiated the grant, when known.
	RequestedBy string    `json:"requested_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}
