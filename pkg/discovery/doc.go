// Package discovery is the caller-side companion to pkg/registry: it
// registers the running service, keeps it alive with a background
// heartbeat loop, and resolves other services' URLs through a short-TTL
// read cache.
//
// The cache bounds registry query volume at the cost of bounded
// staleness: a cached URL may point at an instance that has since gone
// DOWN or been deregistered, for at most the cache TTL. Callers that
// suspect stale routing data can drop the whole cache with FlushCache.
//
// All operations report failures as structured Results rather than
// panicking or aborting, so best-effort callers (the heartbeat loop
// above all) keep running across transient registry outages.
package discovery
