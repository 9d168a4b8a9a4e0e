// Package routes maps request paths to the minimum role required to
// access them.
//
// Rules are an explicit ordered list and the first matching prefix wins,
// even when a later rule is a longer, more specific prefix. Declaration
// order is part of the table's contract; callers that need a specific
// rule to win must declare it first.
package routes

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/condoplane/condoplane/pkg/roles"
)

// Rule gates every path starting with Prefix behind Role.
type Rule struct {
	Prefix string     `yaml:"prefix"`
	Role   roles.Role `yaml:"role"`
}

// Policy resolves a path to its required role. It is immutable after
// construction and safe for concurrent use.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from an ordered rule list. Every rule must
// have a non-empty prefix starting with "/" and a role from the catalog.
func NewPolicy(rules []Rule) (*Policy, error) {
	for i, rule := range rules {
		if rule.Prefix == "" || !strings.HasPrefix(rule.Prefix, "/") {
			return nil, fmt.Errorf("rule %d: prefix %q must start with /", i, rule.Prefix)
		}
		if !roles.Valid(rule.Role) {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Prefix, &roles.ErrUnknownRole{Role: rule.Role})
		}
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Policy{rules: copied}, nil
}

// DefaultRules is the portal's route table in declaration order.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/admin", Role: roles.RoleAdmin},
		{Prefix: "/settings", Role: roles.RoleManager},
		{Prefix: "/residents", Role: roles.RoleSyndicate},
		{Prefix: "/reservations", Role: roles.RoleResident},
		{Prefix: "/documents", Role: roles.RoleResident},
		{Prefix: "/notices", Role: roles.RoleResident},
	}
}

// LoadFile reads an ordered rule list from a YAML file.
//
// The file is a sequence of {prefix, role} entries; sequence order is the
// declaration order.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}

	return NewPolicy(rules)
}

// RequiredRole returns the role required for path, or ok=false when no
// rule matches and the path is public.
func (p *Policy) RequiredRole(path string) (roles.Role, bool) {
	for _, rule := range p.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Role, true
		}
	}
	return "", false
}

// Rules returns a copy of the rule list in declaration order.
func (p *Policy) Rules() []Rule {
	copied := make([]Rule, len(p.rules))
	copy(copied, p.rules)
	return copied
}
