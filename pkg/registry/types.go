package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the liveness state of a registered service instance.
type Status string

const (
	StatusUp           Status = "UP"
	StatusDown         Status = "DOWN"
	StatusStarting     Status = "STARTING"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusStarting, StatusOutOfService:
		return true
	}
	return false
}

// ServiceInstance is one named, addressable service endpoint.
//
// Name is the sole uniqueness key: a later register for the same name
// replaces URL, status, and metadata rather than creating a second row.
type ServiceInstance struct {
	ID            string         `json:"id"`
	Name          string         `json:"service_name"`
	URL           string         `json:"service_url"`
	Status        Status         `json:"status"`
	Metadata      map[string]any `json:"metadata"`
	LastHeartbeat time.Time      `json:"last_heartbeat"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ErrNotFound is returned on lookup or heartbeat for a name that was
// never registered. A heartbeat before a register is a protocol
// violation, not an implicit registration.
var ErrNotFound = errors.New("service not found")

// ValidationError rejects a malformed register or heartbeat payload.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Store persists service instances. Implementations must make Upsert
// atomic per name so concurrent register/heartbeat calls for the same
// name resolve to a clean last-writer-wins, never duplicate rows.
type Store interface {
	// Upsert inserts or replaces the row keyed by inst.Name and returns
	// the stored row. On replace the original ID and CreatedAt survive.
	Upsert(ctx context.Context, inst ServiceInstance) (ServiceInstance, error)

	// UpdateHeartbeat sets status and last-heartbeat for an existing row.
	// Returns ErrNotFound if the name was never registered.
	UpdateHeartbeat(ctx context.Context, name string, status Status, at time.Time) error

	// Get returns the row for name regardless of status, or ErrNotFound.
	Get(ctx context.Context, name string) (ServiceInstance, error)

	// List returns all rows ordered by name.
	List(ctx context.Context) ([]ServiceInstance, error)

	// Delete removes the row for name; removing an absent name is a no-op.
	Delete(ctx context.Context, name string) error

	// MarkStale demotes UP rows whose last heartbeat is older than cutoff
	// to DOWN and returns how many rows changed.
	MarkStale(ctx context.Context, cutoff time.Time, at time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Msg: "service_name is required"}
	}
	return nil
}

func validateStatus(status Status) error {
	if !status.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid status: %q", string(status))}
	}
	return nil
}
