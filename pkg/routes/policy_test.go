package routes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condoplane/condoplane/pkg/roles"
)

func TestNewPolicy_Validation(t *testing.T) {
	t.Run("rejects empty prefix", func(t *testing.T) {
		_, err := NewPolicy([]Rule{{Prefix: "", Role: roles.RoleAdmin}})
		assert.Error(t, err)
	})

	t.Run("rejects prefix without leading slash", func(t *testing.T) {
		_, err := NewPolicy([]Rule{{Prefix: "admin", Role: roles.RoleAdmin}})
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewPolicy([]Rule{{Prefix: "/admin", Role: roles.Role("root")}})
		assert.Error(t, err)
	})

	t.Run("copies the rule slice", func(t *testing.T) {
		rules := []Rule{{Prefix: "/admin", Role: roles.RoleAdmin}}
		p, err := NewPolicy(rules)
		require.NoError(t, err)

		rules[0].Role = roles.RoleResident
		required, ok := p.RequiredRole("/admin")
		require.True(t, ok)
		assert.Equal(t, roles.RoleAdmin, required)
	})
}

func TestRequiredRole_FirstMatchWins(t *testing.T) {
	p, err := NewPolicy([]Rule{
		{Prefix: "/admin", Role: roles.RoleAdmin},
		{Prefix: "/admin/sub", Role: roles.RoleResident},
	})
	require.NoError(t, err)

	// The first-declared rule wins even though the later prefix is longer
	// and more specific.
	role, ok := p.RequiredRole("/admin/sub")
	require.True(t, ok)
	assert.Equal(t, roles.RoleAdmin, role)
}

func TestRequiredRole_DefaultTable(t *testing.T) {
	p, err := NewPolicy(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		path     string
		role     roles.Role
		isPublic bool
	}{
		{path: "/admin", role: roles.RoleAdmin},
		{path: "/admin/users", role: roles.RoleAdmin},
		{path: "/settings", role: roles.RoleManager},
		{path: "/residents/42", role: roles.RoleSyndicate},
		{path: "/reservations", role: roles.RoleResident},
		{path: "/documents/minutes.pdf", role: roles.RoleResident},
		{path: "/notices", role: roles.RoleResident},
		{path: "/", isPublic: true},
		{path: "/login", isPublic: true},
		{path: "", isPublic: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			role, ok := p.RequiredRole(tt.path)
			if tt.isPublic {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.role, role)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("loads ordered rules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.yaml")
		content := `
- prefix: /admin
  role: admin
- prefix: /admin/reports
  role: manager
- prefix: /notices
  role: resident
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		p, err := LoadFile(path)
		require.NoError(t, err)

		rules := p.Rules()
		require.Len(t, rules, 3)
		assert.Equal(t, "/admin", rules[0].Prefix)

		// Declaration order preserved from the file.
		role, ok := p.RequiredRole("/admin/reports")
		require.True(t, ok)
		assert.Equal(t, roles.RoleAdmin, role)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid role in file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- prefix: /x\n  role: overlord\n"), 0o644))

		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}
