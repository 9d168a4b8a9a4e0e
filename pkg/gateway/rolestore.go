package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/condoplane/condoplane/pkg/roles"
)

// SQLRoleStore reads role grants from a user_roles table. Roles are
// granted and revoked by the portal's administration surface; the
// gateway only ever reads them.
type SQLRoleStore struct {
	db *sql.DB
}

// RoleSchema is the DDL for the user_roles table, exposed for migration
// tooling.
const RoleSchema = `
CREATE TABLE IF NOT EXISTS user_roles (
	user_id TEXT NOT NULL,
	role    TEXT NOT NULL,
	PRIMARY KEY (user_id, role)
);
`

// NewSQLRoleStore wraps a database handle.
func NewSQLRoleStore(db *sql.DB) *SQLRoleStore {
	return &SQLRoleStore{db: db}
}

// RolesForUser returns every role granted to userID. A user without
// grants yields an empty slice, which the gateway renders as "no roles
// assigned"; values outside the catalog are rejected here rather than
// leaking into hierarchy comparisons.
func (s *SQLRoleStore) RolesForUser(ctx context.Context, userID string) ([]roles.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	var granted []roles.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if !roles.Valid(roles.Role(role)) {
			return nil, fmt.Errorf("user %s holds a role outside the catalog: %q", userID, role)
		}
		granted = append(granted, roles.Role(role))
	}
	return granted, rows.Err()
}
