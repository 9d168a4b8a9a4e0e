package gateway

import (
	"context"
	"fmt"

	"github.com/condoplane/condoplane/pkg/observability"
	"github.com/condoplane/condoplane/pkg/roles"
	"github.com/condoplane/condoplane/pkg/routes"
)

// Principal is an authenticated caller as reported by the identity
// provider.
type Principal struct {
	ID string
}

// IdentityProvider exchanges an opaque bearer credential for the
// Principal it identifies. Implementations return an error for expired,
// malformed, or forged credentials; the gateway maps any such error to
// an unauthenticated decision.
type IdentityProvider interface {
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// RoleStore reports the roles currently granted to a user. An empty
// slice means the user exists but holds no roles.
type RoleStore interface {
	RolesForUser(ctx context.Context, userID string) ([]roles.Role, error)
}

// Outcome classifies a decision for wire-status mapping.
type Outcome string

const (
	OutcomeAuthorized      Outcome = "authorized"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
)

// Decision messages exposed on the wire.
const (
	msgPublicRoute      = "Public route"
	msgMissingAuth      = "Missing or invalid Authorization header"
	msgInvalidToken     = "Invalid JWT token"
	msgNoRoles          = "User has no roles assigned"
	msgFetchRolesFailed = "Error fetching user roles"
)

// Decision is the result of one authorization check. It is produced
// fresh per request and never cached.
type Decision struct {
	Outcome      Outcome
	Authorized   bool
	Path         string
	Message      string
	Public       bool
	UserID       string
	UserRole     roles.Role
	RequiredRole roles.Role
}

// RoleStoreError wraps a role-store failure so the handler can render
// the dedicated wire message for it.
type RoleStoreError struct {
	Err error
}

func (e *RoleStoreError) Error() string {
	return fmt.Sprintf("failed to fetch user roles: %v", e.Err)
}

func (e *RoleStoreError) Unwrap() error {
	return e.Err
}

// Gateway authorizes requests against the route policy.
type Gateway struct {
	policy   *routes.Policy
	identity IdentityProvider
	roles    RoleStore
	logger   *observability.Logger
	stats    *observability.Metrics
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithMetrics records decision outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.stats = m }
}

// New creates a gateway. All collaborators are required except the
// logger, which falls back to a default info-level logger.
func New(policy *routes.Policy, identity IdentityProvider, roleStore RoleStore, logger *observability.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	g := &Gateway{
		policy:   policy,
		identity: identity,
		roles:    roleStore,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize renders the decision for a request targeting path with the
// given bearer credential (empty when the caller sent none).
//
// A non-nil error means a downstream collaborator failed and the caller
// should answer with an internal error, not a denial.
func (g *Gateway) Authorize(ctx context.Context, path, credential string) (*Decision, error) {
	required, protected := g.policy.RequiredRole(path)
	if !protected {
		g.stats.GatewayDecision("public")
		return &Decision{
			Outcome:    OutcomeAuthorized,
			Authorized: true,
			Public:     true,
			Path:       path,
			Message:    msgPublicRoute,
		}, nil
	}

	if credential == "" {
		g.stats.GatewayDecision("unauthenticated")
		return &Decision{
			Outcome:      OutcomeUnauthenticated,
			Path:         path,
			Message:      msgMissingAuth,
			RequiredRole: required,
		}, nil
	}

	principal, err := g.identity.Authenticate(ctx, credential)
	if err != nil || principal == nil {
		g.logger.WithError(err).WithField("path", path).Debug("credential rejected")
		g.stats.GatewayDecision("unauthenticated")
		return &Decision{
			Outcome:      OutcomeUnauthenticated,
			Path:         path,
			Message:      msgInvalidToken,
			RequiredRole: required,
		}, nil
	}

	granted, err := g.roles.RolesForUser(ctx, principal.ID)
	if err != nil {
		g.stats.GatewayDecision("error")
		return nil, &RoleStoreError{Err: err}
	}

	have, ok, err := roles.Highest(granted)
	if err != nil {
		// The role store returned a value outside the catalog.
		g.stats.GatewayDecision("error")
		return nil, fmt.Errorf("role store returned an invalid role for user %s: %w", principal.ID, err)
	}
	if !ok {
		g.stats.GatewayDecision("forbidden")
		return &Decision{
			Outcome:      OutcomeForbidden,
			Path:         path,
			Message:      msgNoRoles,
			UserID:       principal.ID,
			RequiredRole: required,
		}, nil
	}

	covered, err := roles.Covers(have, required)
	if err != nil {
		g.stats.GatewayDecision("error")
		return nil, fmt.Errorf("failed to compare roles: %w", err)
	}
	if !covered {
		g.stats.GatewayDecision("forbidden")
		return &Decision{
			Outcome:      OutcomeForbidden,
			Path:         path,
			Message:      fmt.Sprintf("Insufficient permissions. Required: %s, User has: %s", required, have),
			UserID:       principal.ID,
			UserRole:     have,
			RequiredRole: required,
		}, nil
	}

	g.stats.GatewayDecision("authorized")
	return &Decision{
		Outcome:      OutcomeAuthorized,
		Authorized:   true,
		Path:         path,
		UserID:       principal.ID,
		UserRole:     have,
		RequiredRole: required,
	}, nil
}
