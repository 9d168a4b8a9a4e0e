package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for development and tests. All
// operations are guarded by a single mutex, which makes the per-name
// upsert trivially atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]ServiceInstance
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[string]ServiceInstance),
	}
}

// Upsert inserts or replaces the row keyed by inst.Name.
func (m *MemoryStore) Upsert(ctx context.Context, inst ServiceInstance) (ServiceInstance, error) {
	if err := ctx.Err(); err != nil {
		return ServiceInstance{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.instances[inst.Name]; ok {
		inst.ID = existing.ID
		inst.CreatedAt = existing.CreatedAt
	} else {
		inst.ID = uuid.NewString()
		inst.CreatedAt = inst.UpdatedAt
	}
	inst.Metadata = cloneMetadata(inst.Metadata)
	m.instances[inst.Name] = inst
	return inst, nil
}

// UpdateHeartbeat refreshes status and last-heartbeat for an existing row.
func (m *MemoryStore) UpdateHeartbeat(ctx context.Context, name string, status Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[name]
	if !ok {
		return ErrNotFound
	}
	inst.Status = status
	inst.LastHeartbeat = at
	inst.UpdatedAt = at
	m.instances[name] = inst
	return nil
}

// Get returns the row for name regardless of status.
func (m *MemoryStore) Get(ctx context.Context, name string) (ServiceInstance, error) {
	if err := ctx.Err(); err != nil {
		return ServiceInstance{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[name]
	if !ok {
		return ServiceInstance{}, ErrNotFound
	}
	inst.Metadata = cloneMetadata(inst.Metadata)
	return inst, nil
}

// List returns all rows ordered by name.
func (m *MemoryStore) List(ctx context.Context) ([]ServiceInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	instances := make([]ServiceInstance, 0, len(m.instances))
	for _, inst := range m.instances {
		inst.Metadata = cloneMetadata(inst.Metadata)
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Name < instances[j].Name
	})
	return instances, nil
}

// Delete removes the row for name; absent names are a no-op.
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instances, name)
	return nil
}

// MarkStale demotes UP rows with a last heartbeat before cutoff to DOWN.
func (m *MemoryStore) MarkStale(ctx context.Context, cutoff time.Time, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var demoted int64
	for name, inst := range m.instances {
		if inst.Status == StatusUp && inst.LastHeartbeat.Before(cutoff) {
			inst.Status = StatusDown
			inst.UpdatedAt = at
			m.instances[name] = inst
			demoted++
		}
	}
	return demoted, nil
}

// Close marks the store closed. Held rows are discarded.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.instances = make(map[string]ServiceInstance)
	return nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	copied := make(map[string]any, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}
	return copied
}
