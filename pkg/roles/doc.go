// Package roles defines the canonical role catalog and the hierarchy
// comparisons used for every authorization decision in condoplane.
//
// The catalog is a closed, totally ordered set:
//
//	resident (1) < syndicate (2) < manager (3) < admin (4)
//
// Levels are injective, so "highest role" is always unambiguous. A role
// A covers a requirement B when Level(A) >= Level(B).
//
// Earlier client-side code carried a separate three-tier catalog
// (resident/admin/super_admin). That catalog is retired: the gateway is
// the only component that renders authorization decisions, so its
// four-tier catalog is canonical and admin is the top level.
package roles
