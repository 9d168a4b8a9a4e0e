// Package gateway renders route-level authorization decisions.
//
// A request for a protected path flows through the gateway as:
// resolve the route's required role, validate the caller's bearer
// credential with the identity provider, load the caller's roles from
// the role store, and compare the caller's highest role against the
// requirement. Public paths short-circuit before any credential check.
//
// The gateway holds no per-request state beyond read-only configuration
// (the route policy), so any number of requests can be authorized in
// parallel. "Not authorized" is a decision, never an error: errors are
// reserved for downstream failures (identity or role store outages),
// which render as 500s.
package gateway
