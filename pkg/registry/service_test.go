package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for deterministic timestamps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryStore(), nil, WithClock(clock.Now))
	return svc, clock
}

func TestRegisterDefaults(t *testing.T) {
	svc, clock := newTestService(t)

	inst, err := svc.Register(context.Background(), "billing", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, "billing", inst.Name)
	assert.Equal(t, StatusUp, inst.Status)
	assert.NotNil(t, inst.Metadata)
	assert.Equal(t, clock.Now(), inst.LastHeartbeat)
	assert.Equal(t, clock.Now(), inst.CreatedAt)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "", "http://10.0.0.5:9090", "", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "service_name and service_url are required", err.Error())

	_, err = svc.Register(context.Background(), "billing", "", "", nil)
	assert.True(t, IsValidation(err))

	_, err = svc.Register(context.Background(), "billing", "http://10.0.0.5:9090", Status("SLEEPING"), nil)
	assert.True(t, IsValidation(err))
}

func TestRegisterReplacesByName(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "billing", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := svc.Register(ctx, "billing", "http://10.0.0.6:9090", StatusStarting, map[string]any{"zone": "b"})
	require.NoError(t, err)

	// Identity survives replacement; nothing else does.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "http://10.0.0.6:9090", second.URL)
	assert.Equal(t, StatusStarting, second.Status)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHeartbeatAdvancesTimestamp(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "billing", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	require.NoError(t, svc.Heartbeat(ctx, "billing", ""))

	inst, ok, err := svc.Get(ctx, "billing")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), inst.LastHeartbeat)
	assert.Equal(t, StatusUp, inst.Status)
}

func TestHeartbeatUnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Heartbeat(context.Background(), "ghost", StatusUp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeartbeatRejectsInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Heartbeat(context.Background(), "billing", Status("SLEEPING"))
	assert.True(t, IsValidation(err))
}

func TestGetHidesNonUpInstances(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "billing", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Heartbeat(ctx, "billing", StatusOutOfService))

	_, ok, err := svc.Get(ctx, "billing")
	require.NoError(t, err)
	assert.False(t, ok)

	// Still visible in the full listing.
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusOutOfService, all[0].Status)
}

func TestGetUnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	_, ok, err := svc.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOrderedByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"notices", "billing", "documents"} {
		_, err := svc.Register(ctx, name, "http://"+name+":8080", "", nil)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "billing", all[0].Name)
	assert.Equal(t, "documents", all[1].Name)
	assert.Equal(t, "notices", all[2].Name)
}

func TestDeregisterIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "billing", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Deregister(ctx, "billing"))
	require.NoError(t, svc.Deregister(ctx, "billing"))

	_, ok, err := svc.Get(ctx, "billing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepStaleDemotesSilentInstances(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "stale", "http://10.0.0.5:9090", "", nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Register(ctx, "fresh", "http://10.0.0.6:9090", "", nil)
	require.NoError(t, err)

	demoted, err := svc.SweepStale(ctx, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), demoted)

	_, ok, err := svc.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = svc.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second sweep finds nothing new.
	demoted, err = svc.SweepStale(ctx, 90*time.Second)
	require.NoError(t, err)
	assert.Zero(t, demoted)
}

func TestSweepLeavesNonUpStatusesAlone(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "parked", "http://10.0.0.5:9090", StatusOutOfService, nil)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	demoted, err := svc.SweepStale(ctx, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, demoted)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusOutOfService, all[0].Status)
}
