package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/condoplane/condoplane/pkg/observability"
)

// Service implements the registry operations on top of a Store.
//
// It is explicitly constructed with its dependencies; there is no hidden
// package-level state, so tests can run independent instances.
type Service struct {
	store  Store
	now    func() time.Time
	logger *observability.Logger
	stats  *observability.Metrics
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records registry operation counts on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.stats = m }
}

// NewService creates a registry service backed by store. A nil logger
// falls back to the default info-level logger.
func NewService(store Store, logger *observability.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register upserts the instance keyed by name and returns the stored
// row. Status defaults to UP and metadata to an empty map.
func (s *Service) Register(ctx context.Context, name, url string, status Status, metadata map[string]any) (ServiceInstance, error) {
	if name == "" || url == "" {
		s.stats.RegistryOperation("register", "invalid")
		return ServiceInstance{}, &ValidationError{Msg: "service_name and service_url are required"}
	}
	if status == "" {
		status = StatusUp
	}
	if err := validateStatus(status); err != nil {
		s.stats.RegistryOperation("register", "invalid")
		return ServiceInstance{}, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := s.now()
	inst, err := s.store.Upsert(ctx, ServiceInstance{
		Name:          name,
		URL:           url,
		Status:        status,
		Metadata:      metadata,
		LastHeartbeat: now,
		UpdatedAt:     now,
	})
	if err != nil {
		s.stats.RegistryOperation("register", "error")
		return ServiceInstance{}, fmt.Errorf("failed to register service %q: %w", name, err)
	}

	s.stats.RegistryOperation("register", "ok")
	s.logger.WithFields(map[string]interface{}{
		"service": name,
		"url":     url,
		"status":  string(status),
	}).Info("service registered")
	return inst, nil
}

// Heartbeat refreshes status and last-heartbeat for a registered name.
// Status defaults to UP. Returns ErrNotFound for an unknown name.
func (s *Service) Heartbeat(ctx context.Context, name string, status Status) error {
	if err := validateName(name); err != nil {
		s.stats.RegistryOperation("heartbeat", "invalid")
		return err
	}
	if status == "" {
		status = StatusUp
	}
	if err := validateStatus(status); err != nil {
		s.stats.RegistryOperation("heartbeat", "invalid")
		return err
	}

	if err := s.store.UpdateHeartbeat(ctx, name, status, s.now()); err != nil {
		if err == ErrNotFound {
			s.stats.RegistryOperation("heartbeat", "not_found")
			return ErrNotFound
		}
		s.stats.RegistryOperation("heartbeat", "error")
		return fmt.Errorf("failed to record heartbeat for %q: %w", name, err)
	}

	s.stats.RegistryOperation("heartbeat", "ok")
	return nil
}

// Get returns the instance for name only while its status is UP. A row
// in any other status still exists in List but is unavailable for
// discovery, so Get reports ok=false for it.
func (s *Service) Get(ctx context.Context, name string) (ServiceInstance, bool, error) {
	if err := validateName(name); err != nil {
		return ServiceInstance{}, false, err
	}

	inst, err := s.store.Get(ctx, name)
	if err == ErrNotFound {
		s.stats.RegistryOperation("get", "not_found")
		return ServiceInstance{}, false, nil
	}
	if err != nil {
		s.stats.RegistryOperation("get", "error")
		return ServiceInstance{}, false, fmt.Errorf("failed to look up service %q: %w", name, err)
	}
	if inst.Status != StatusUp {
		s.stats.RegistryOperation("get", "not_up")
		return ServiceInstance{}, false, nil
	}

	s.stats.RegistryOperation("get", "ok")
	return inst, true, nil
}

// List returns every registered instance regardless of status, ordered
// by name.
func (s *Service) List(ctx context.Context) ([]ServiceInstance, error) {
	instances, err := s.store.List(ctx)
	if err != nil {
		s.stats.RegistryOperation("list", "error")
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	s.stats.RegistryOperation("list", "ok")
	return instances, nil
}

// Deregister removes the row for name. Deregistering a name that was
// never registered is a no-op, not an error.
func (s *Service) Deregister(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		s.stats.RegistryOperation("deregister", "invalid")
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil {
		s.stats.RegistryOperation("deregister", "error")
		return fmt.Errorf("failed to deregister service %q: %w", name, err)
	}
	s.stats.RegistryOperation("deregister", "ok")
	s.logger.WithField("service", name).Info("service deregistered")
	return nil
}

// SweepStale marks UP instances whose last heartbeat is older than
// maxSilence as DOWN and returns how many were demoted.
func (s *Service) SweepStale(ctx context.Context, maxSilence time.Duration) (int64, error) {
	now := s.now()
	demoted, err := s.store.MarkStale(ctx, now.Add(-maxSilence), now)
	if err != nil {
		s.stats.RegistryOperation("sweep", "error")
		return 0, fmt.Errorf("failed to sweep stale services: %w", err)
	}
	if demoted > 0 {
		s.logger.WithField("demoted", demoted).Warn("marked stale services DOWN")
	}
	s.stats.RegistryOperation("sweep", "ok")
	return demoted, nil
}
