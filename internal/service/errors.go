// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	// ErrRoleNotFound means no role named "Administrator" exists in the
	// network. Hard failure for that network's grant, never retried.
	ErrRoleNotFound = errors.New("administrator role not found in this network")

	// ErrNoNetworks means a grant request named no networks and no
	// default list is configured.
	ErrNoNetworks = errors.New("no networks specified and no default configured")

	// ErrInvalidRange means a report date range could not be resolved:
	// unknown selector, missing custom bounds, or start after end.
	ErrInvalidRange = errors.New("invalid date range")
)
