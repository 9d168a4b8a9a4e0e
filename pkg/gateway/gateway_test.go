package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condoplane/condoplane/pkg/roles"
	"github.com/condoplane/condoplane/pkg/routes"
)

// fakeIdentity authenticates a fixed set of credentials.
type fakeIdentity struct {
	tokens map[string]string // credential -> user ID
}

func (f *fakeIdentity) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	if id, ok := f.tokens[credential]; ok {
		return &Principal{ID: id}, nil
	}
	return nil, errors.New("token rejected")
}

// fakeRoleStore returns canned role sets per user ID.
type fakeRoleStore struct {
	grants map[string][]roles.Role
	err    error
}

func (f *fakeRoleStore) RolesForUser(ctx context.Context, userID string) ([]roles.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[userID], nil
}

func newTestGateway(t *testing.T, identity IdentityProvider, store RoleStore) *Gateway {
	t.Helper()

	policy, err := routes.NewPolicy(routes.DefaultRules())
	require.NoError(t, err)
	return New(policy, identity, store, nil)
}

func defaultFixture(t *testing.T) *Gateway {
	t.Helper()

	identity := &fakeIdentity{tokens: map[string]string{
		"resident-token":  "user-resident",
		"syndicate-token": "user-syndicate",
		"admin-token":     "user-admin",
		"ghost-token":     "user-ghost",
	}}
	store := &fakeRoleStore{grants: map[string][]roles.Role{
		"user-resident":  {roles.RoleResident},
		"user-syndicate": {roles.RoleSyndicate},
		"user-admin":     {roles.RoleAdmin},
		"user-ghost":     {},
	}}
	return newTestGateway(t, identity, store)
}

func TestAuthorizePublicRoute(t *testing.T) {
	gw := defaultFixture(t)

	// No credential at all; public paths never consult the identity
	// provider.
	decision, err := gw.Authorize(context.Background(), "/about", "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
	assert.True(t, decision.Authorized)
	assert.True(t, decision.Public)
	assert.Equal(t, "Public route", decision.Message)
}

func TestAuthorizeMissingCredential(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/reservations", "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnauthenticated, decision.Outcome)
	assert.False(t, decision.Authorized)
	assert.Equal(t, "Missing or invalid Authorization header", decision.Message)
}

func TestAuthorizeRejectedCredential(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/reservations", "forged")
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnauthenticated, decision.Outcome)
	assert.Equal(t, "Invalid JWT token", decision.Message)
}

func TestAuthorizeSufficientRole(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/reservations", "resident-token")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
	assert.True(t, decision.Authorized)
	assert.Equal(t, "user-resident", decision.UserID)
	assert.Equal(t, roles.RoleResident, decision.UserRole)
	assert.Equal(t, roles.RoleResident, decision.RequiredRole)
}

func TestAuthorizeHigherRoleCoversLowerRequirement(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/documents", "admin-token")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
	assert.Equal(t, roles.RoleAdmin, decision.UserRole)
	assert.Equal(t, roles.RoleResident, decision.RequiredRole)
}

func TestAuthorizeInsufficientRole(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/admin", "resident-token")
	require.NoError(t, err)

	assert.Equal(t, OutcomeForbidden, decision.Outcome)
	assert.False(t, decision.Authorized)
	assert.Equal(t, "Insufficient permissions. Required: admin, User has: resident", decision.Message)
	assert.Equal(t, roles.RoleAdmin, decision.RequiredRole)
}

func TestAuthorizeNoRolesAssigned(t *testing.T) {
	gw := defaultFixture(t)

	decision, err := gw.Authorize(context.Background(), "/reservations", "ghost-token")
	require.NoError(t, err)

	assert.Equal(t, OutcomeForbidden, decision.Outcome)
	assert.Equal(t, "User has no roles assigned", decision.Message)
}

func TestAuthorizeMultipleRolesUsesHighest(t *testing.T) {
	identity := &fakeIdentity{tokens: map[string]string{"tok": "user-multi"}}
	store := &fakeRoleStore{grants: map[string][]roles.Role{
		"user-multi": {roles.RoleResident, roles.RoleManager},
	}}
	gw := newTestGateway(t, identity, store)

	decision, err := gw.Authorize(context.Background(), "/settings", "tok")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
	assert.Equal(t, roles.RoleManager, decision.UserRole)
}

func TestAuthorizeRoleStoreFailure(t *testing.T) {
	identity := &fakeIdentity{tokens: map[string]string{"tok": "user-1"}}
	store := &fakeRoleStore{err: errors.New("connection refused")}
	gw := newTestGateway(t, identity, store)

	_, err := gw.Authorize(context.Background(), "/reservations", "tok")
	require.Error(t, err)

	var rsErr *RoleStoreError
	assert.True(t, errors.As(err, &rsErr))
}

func TestAuthorizeInvalidRoleFromStore(t *testing.T) {
	identity := &fakeIdentity{tokens: map[string]string{"tok": "user-1"}}
	store := &fakeRoleStore{grants: map[string][]roles.Role{
		"user-1": {roles.Role("super_admin")},
	}}
	gw := newTestGateway(t, identity, store)

	_, err := gw.Authorize(context.Background(), "/reservations", "tok")
	require.Error(t, err)

	var rsErr *RoleStoreError
	assert.False(t, errors.As(err, &rsErr))
}
