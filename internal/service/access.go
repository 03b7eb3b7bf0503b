package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamaccess/gamaccess/internal/gam"
	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/model"
)

// UserServiceFactory builds a network-scoped GAM user service.
// Building can fail (bad network code, credential problems).
type UserServiceFactory interface {
	UserService(networkCode string) (gam.UserService, error)
}

// GrantRecorder receives grant outcomes for asynchronous audit
// persistence. Implementations must not block.
type GrantRecorder interface {
	RecordGrant(email string, grant model.NetworkGrant, requestedBy string, occurredAt time.Time)
}

// GrantOutcome is the result of a single-network grant.
type GrantOutcome struct {
	Status model.GrantStatus
	UserID int64
	RoleID int64
}

// AccessGranter makes an email an Administrator on GAM networks,
// idempotently: repeated grants converge on the same terminal state.
type AccessGranter struct {
	factory         UserServiceFactory
	defaultNetworks []string
	logger          *slog.Logger
	metrics         metrics.Recorder
	audit           GrantRecorder
	now             func() time.Time
}

// NewAccessGranter creates an AccessGranter. audit may be nil when no
// audit pipeline is wired (tests, bootstrap tooling).
func NewAccessGranter(factory UserServiceFactory, defaultNetworks []string, logger *slog.Logger, recorder metrics.Recorder, audit GrantRecorder) *AccessGranter {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccessGranter{
		factory:         factory,
		defaultNetworks: defaultNetworks,
		logger:          logger.With("component", "service.access"),
		metrics:         recorder,
		audit:           audit,
		now:             time.Now,
	}
}

// GrantAdmin ensures email holds the Administrator role on the network
// the given user service is scoped to.
//
// Resolution order: admin role id, then existing user. A missing
// Administrator role fails with ErrRoleNotFound before any user is
// touched. An absent user is created active with the admin role and a
// display name derived from the email's local part; a user with another
// role gets only its roleId updated; a user already holding the role
// causes no remote write.
func (g *AccessGranter) GrantAdmin(ctx context.Context, users gam.UserService, email string) (GrantOutcome, error) {
	roles, err := users.GetAllRoles(ctx)
	if err != nil {
		return GrantOutcome{}, fmt.Errorf("list roles: %w", err)
	}

	adminRoleID := int64(-1)
	for _, role := range roles {
		if role.Name == model.AdministratorRoleName {
			adminRoleID = role.ID
			break
		}
	}
	if adminRoleID < 0 {
		return GrantOutcome{}, ErrRoleNotFound
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return GrantOutcome{}, fmt.Errorf("find user: %w", err)
	}

	if existing == nil {
		created, err := users.CreateUser(ctx, model.User{
			Email:       email,
			DisplayName: gam.DisplayNameForEmail(email),
			RoleID:      adminRoleID,
			IsActive:    true,
		})
		if err != nil {
			return GrantOutcome{}, fmt.Errorf("create user: %w", err)
		}
		return GrantOutcome{Status: model.GrantCreated, UserID: created.ID, RoleID: adminRoleID}, nil
	}

	if !existing.IsAdministrator(adminRoleID) {
		updated, err := users.UpdateUserRole(ctx, existing.ID, adminRoleID)
		if err != nil {
			return GrantOutcome{}, fmt.Errorf("update user role: %w", err)
		}
		return GrantOutcome{Status: model.GrantUpgraded, UserID: updated.ID, RoleID: adminRoleID}, nil
	}

	return GrantOutcome{Status: model.GrantAlreadyAdmin, UserID: existing.ID, RoleID: adminRoleID}, nil
}

// GrantBatch grants Administrator access across networks. An empty
// network list falls back to the configured default; an empty result
// after that is ErrNoNetworks.
//
// Failures are isolated per network: one network's client build or
// grant error becomes that network's error record and the remaining
// networks still run. The returned slice has exactly one record per
// requested network, in request order.
func (g *AccessGranter) GrantBatch(ctx context.Context, email string, networks []string, requestedBy string) ([]model.NetworkGrant, error) {
	if len(networks) == 0 {
		networks = g.defaultNetworks
	}
	if len(networks) == 0 {
		return nil, ErrNoNetworks
	}

	results := make([]model.NetworkGrant, 0, len(networks))
	for _, code := range networks {
		grant := g.grantOne(ctx, email, code)
		results = append(results, grant)

		g.metrics.IncGrant(string(grant.Status))
		if g.audit != nil {
			g.audit.RecordGrant(email, grant, requestedBy, g.now())
		}

		if grant.Succeeded() {
			g.logger.Info("grant_completed",
				"network", code,
				"email", email,
				"status", grant.Status,
				"user_id", *grant.UserID,
			)
		} else {
			g.logger.Warn("grant_failed",
				"network", code,
				"email", email,
				"error", grant.Error,
			)
		}
	}
	return results, nil
}

func (g *AccessGranter) grantOne(ctx context.Context, email, networkCode string) model.NetworkGrant {
	users, err := g.factory.UserService(networkCode)
	if err != nil {
		return model.NetworkGrant{
			Network: networkCode,
			Status:  model.GrantError,
			Error:   fmt.Sprintf("build client: %v", err),
		}
	}

	outcome, err := g.GrantAdmin(ctx, users, email)
	if err != nil {
		return model.NetworkGrant{
			Network: networkCode,
			Status:  model.GrantError,
			Error:   err.Error(),
		}
	}

	return model.NetworkGrant{
		Network: networkCode,
		Status:  outcome.Status,
		UserID:  &outcome.UserID,
		RoleID:  &outcome.RoleID,
	}
}
