package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLegacyDocument(t *testing.T) {
	registered := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	beat := registered.Add(30 * time.Second)

	doc, err := ToLegacyDocument([]ServiceInstance{
		{
			ID:            "abc-123",
			Name:          "billing",
			URL:           "http://10.0.0.5:9090",
			Status:        StatusUp,
			Metadata:      map[string]any{"zone": "a"},
			LastHeartbeat: beat,
			CreatedAt:     registered,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "1", doc.Applications.VersionsDelta)
	assert.Equal(t, "", doc.Applications.AppsHashcode)
	require.Len(t, doc.Applications.Application, 1)

	app := doc.Applications.Application[0]
	assert.Equal(t, "billing", app.Name)
	require.Len(t, app.Instance, 1)

	inst := app.Instance[0]
	assert.Equal(t, "abc-123", inst.InstanceID)
	assert.Equal(t, "10.0.0.5", inst.HostName)
	assert.Equal(t, 9090, inst.Port.Port)
	assert.Equal(t, "true", inst.Port.Enabled)
	assert.Equal(t, StatusUp, inst.Status)
	assert.Equal(t, beat.UnixMilli(), inst.LastUpdatedTimestamp)
	assert.Equal(t, registered.UnixMilli(), inst.LastDirtyTimestamp)
}

func TestToLegacyDocumentDefaultsPort(t *testing.T) {
	doc, err := ToLegacyDocument([]ServiceInstance{
		{ID: "a", Name: "billing", URL: "http://billing.internal", Status: StatusUp},
	})
	require.NoError(t, err)
	assert.Equal(t, 80, doc.Applications.Application[0].Instance[0].Port.Port)
}

func TestToLegacyDocumentEmpty(t *testing.T) {
	doc, err := ToLegacyDocument(nil)
	require.NoError(t, err)
	// Application renders as [] on the wire, never null.
	assert.NotNil(t, doc.Applications.Application)
	assert.Empty(t, doc.Applications.Application)
}

func TestToLegacyDocumentInvalidPort(t *testing.T) {
	_, err := ToLegacyDocument([]ServiceInstance{
		{ID: "a", Name: "billing", URL: "http://host:notaport", Status: StatusUp},
	})
	assert.Error(t, err)
}
