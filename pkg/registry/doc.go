// Package registry implements the dynamic service registry: named
// service instances with a liveness status, refreshed by heartbeats and
// queried by discovery clients.
//
// The Service is the entry point. It validates input, stamps times from
// an injectable clock, and delegates persistence to a Store. Two stores
// ship with the package: an in-memory store for development and tests,
// and a PostgreSQL store for production. A Redis read-through cache can
// wrap either store to bound query volume on hot lookups.
//
// A row is keyed solely by service name: registering an existing name is
// an upsert, never a second row. Rows are only removed by an explicit
// deregister; the optional Sweeper (see sweeper.go) demotes instances
// whose heartbeat has gone silent to DOWN instead of deleting them.
package registry
