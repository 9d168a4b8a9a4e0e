package roles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		role  Role
		level int
	}{
		{RoleResident, 1},
		{RoleSyndicate, 2},
		{RoleManager, 3},
		{RoleAdmin, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			level, err := Level(tt.role)
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestLevel_UnknownRole(t *testing.T) {
	_, err := Level(Role("superuser"))
	require.Error(t, err)

	var unknownErr *ErrUnknownRole
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, Role("superuser"), unknownErr.Role)
}

func TestCovers_MatchesLevelOrdering(t *testing.T) {
	// For every pair in the catalog, Covers must agree with level comparison.
	for _, have := range All() {
		for _, need := range All() {
			haveLevel, err := Level(have)
			require.NoError(t, err)
			needLevel, err := Level(need)
			require.NoError(t, err)

			covered, err := Covers(have, need)
			require.NoError(t, err)
			assert.Equal(t, haveLevel >= needLevel, covered,
				"Covers(%s, %s)", have, need)
		}
	}
}

func TestCovers_UnknownRole(t *testing.T) {
	_, err := Covers(Role("ghost"), RoleResident)
	assert.Error(t, err)

	_, err = Covers(RoleAdmin, Role("ghost"))
	assert.Error(t, err)
}

func TestHighest(t *testing.T) {
	t.Run("picks the highest level", func(t *testing.T) {
		role, ok, err := Highest([]Role{RoleResident, RoleManager, RoleSyndicate})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, RoleManager, role)
	})

	t.Run("single role", func(t *testing.T) {
		role, ok, err := Highest([]Role{RoleResident})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, RoleResident, role)
	})

	t.Run("empty set", func(t *testing.T) {
		_, ok, err := Highest(nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown role is an error", func(t *testing.T) {
		_, _, err := Highest([]Role{RoleResident, Role("root")})
		assert.Error(t, err)
	})
}

func TestValid(t *testing.T) {
	for _, role := range All() {
		assert.True(t, Valid(role))
	}
	assert.False(t, Valid(Role("super_admin")))
	assert.False(t, Valid(Role("")))
}
