package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresStore persists service instances in a service_registry table.
//
// The upsert relies on a unique constraint on service_name, which makes
// concurrent register/heartbeat calls for the same name resolve at the
// database rather than producing duplicate rows.
type PostgresStore struct {
	db *sql.DB
}

// Schema is the DDL for the service_registry table, exposed for
// migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS service_registry (
	id             UUID PRIMARY KEY,
	service_name   TEXT NOT NULL UNIQUE,
	service_url    TEXT NOT NULL,
	status         TEXT NOT NULL,
	metadata       JSONB NOT NULL DEFAULT '{}',
	last_heartbeat TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

// OpenPostgresStore connects to url and verifies the connection.
func OpenPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing database handle, e.g. one shared
// with the gateway's role store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts or replaces the row keyed by inst.Name.
func (p *PostgresStore) Upsert(ctx context.Context, inst ServiceInstance) (ServiceInstance, error) {
	metadataJSON, err := json.Marshal(inst.Metadata)
	if err != nil {
		return ServiceInstance{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO service_registry (id, service_name, service_url, status, metadata, last_heartbeat, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (service_name) DO UPDATE SET
			service_url    = EXCLUDED.service_url,
			status         = EXCLUDED.status,
			metadata       = EXCLUDED.metadata,
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at     = EXCLUDED.updated_at
		RETURNING id, service_name, service_url, status, metadata, last_heartbeat, created_at, updated_at
	`

	row := p.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		inst.Name,
		inst.URL,
		string(inst.Status),
		string(metadataJSON),
		inst.LastHeartbeat,
		inst.UpdatedAt,
		inst.UpdatedAt,
	)

	stored, err := scanInstance(row)
	if err != nil {
		return ServiceInstance{}, fmt.Errorf("failed to upsert service: %w", err)
	}
	return stored, nil
}

// UpdateHeartbeat refreshes status and last-heartbeat for an existing row.
func (p *PostgresStore) UpdateHeartbeat(ctx context.Context, name string, status Status, at time.Time) error {
	query := `
		UPDATE service_registry
		SET status = $1, last_heartbeat = $2, updated_at = $2
		WHERE service_name = $3
	`

	result, err := p.db.ExecContext(ctx, query, string(status), at, name)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the row for name regardless of status.
func (p *PostgresStore) Get(ctx context.Context, name string) (ServiceInstance, error) {
	query := `
		SELECT id, service_name, service_url, status, metadata, last_heartbeat, created_at, updated_at
		FROM service_registry
		WHERE service_name = $1
	`

	inst, err := scanInstance(p.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return ServiceInstance{}, ErrNotFound
	}
	if err != nil {
		return ServiceInstance{}, fmt.Errorf("failed to get service: %w", err)
	}
	return inst, nil
}

// List returns all rows ordered by name.
func (p *PostgresStore) List(ctx context.Context) ([]ServiceInstance, error) {
	query := `
		SELECT id, service_name, service_url, status, metadata, last_heartbeat, created_at, updated_at
		FROM service_registry
		ORDER BY service_name
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var instances []ServiceInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// Delete removes the row for name; absent names are a no-op.
func (p *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM service_registry WHERE service_name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

// MarkStale demotes UP rows with a last heartbeat before cutoff to DOWN.
func (p *PostgresStore) MarkStale(ctx context.Context, cutoff time.Time, at time.Time) (int64, error) {
	query := `
		UPDATE service_registry
		SET status = $1, updated_at = $2
		WHERE status = $3 AND last_heartbeat < $4
	`

	result, err := p.db.ExecContext(ctx, query, string(StatusDown), at, string(StatusUp), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale services: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database handle.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// scanInstance scans one service_registry row.
func scanInstance(scanner interface {
	Scan(dest ...interface{}) error
}) (ServiceInstance, error) {
	var (
		inst         ServiceInstance
		status       string
		metadataJSON []byte
	)

	err := scanner.Scan(
		&inst.ID,
		&inst.Name,
		&inst.URL,
		&status,
		&metadataJSON,
		&inst.LastHeartbeat,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return ServiceInstance{}, err
	}

	inst.Status = Status(status)
	inst.Metadata = map[string]any{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &inst.Metadata); err != nil {
			return ServiceInstance{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return inst, nil
}
