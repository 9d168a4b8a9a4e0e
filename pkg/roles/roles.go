package roles

import "fmt"

// Role is a named permission tier in the catalog.
type Role string

const (
	RoleResident  Role = "resident"
	RoleSyndicate Role = "syndicate"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

// hierarchy maps each role to its level. Higher level strictly dominates
// lower; levels are injective so Highest never ties.
var hierarchy = map[Role]int{
	RoleResident:  1,
	RoleSyndicate: 2,
	RoleManager:   3,
	RoleAdmin:     4,
}

// ErrUnknownRole is returned when a value outside the closed catalog is
// supplied, e.g. stringified garbage from an untrusted caller.
type ErrUnknownRole struct {
	Role Role
}

func (e *ErrUnknownRole) Error() string {
	return fmt.Sprintf("unknown role: %q", string(e.Role))
}

// All returns the catalog in ascending level order.
func All() []Role {
	return []Role{RoleResident, RoleSyndicate, RoleManager, RoleAdmin}
}

// Valid reports whether role is part of the catalog.
func Valid(role Role) bool {
	_, ok := hierarchy[role]
	return ok
}

// Level returns the hierarchy level for a role.
func Level(role Role) (int, error) {
	level, ok := hierarchy[role]
	if !ok {
		return 0, &ErrUnknownRole{Role: role}
	}
	return level, nil
}

// Covers reports whether have satisfies a requirement of need.
// Both roles must belong to the catalog.
func Covers(have, need Role) (bool, error) {
	haveLevel, err := Level(have)
	if err != nil {
		return false, err
	}
	needLevel, err := Level(need)
	if err != nil {
		return false, err
	}
	return haveLevel >= needLevel, nil
}

// Highest returns the highest-level role in the set, or ok=false for an
// empty set. Unknown roles in the input are an error rather than being
// silently skipped.
func Highest(set []Role) (Role, bool, error) {
	var (
		best      Role
		bestLevel int
		found     bool
	)
	for _, role := range set {
		level, err := Level(role)
		if err != nil {
			return "", false, err
		}
		if !found || level > bestLevel {
			best = role
			bestLevel = level
			found = true
		}
	}
	return best, found, nil
}
