package registry

import (
	"fmt"
	"net/url"
	"strconv"
)

// The legacy discovery document mirrors the nested application/instance
// shape produced by Eureka's /apps endpoint, kept for discovery clients
// written against that wire format. No business logic lives here; it is
// a pure transform over registry rows.

// LegacyDocument is the top-level legacy discovery response.
type LegacyDocument struct {
	Applications LegacyApplications `json:"applications"`
}

// LegacyApplications wraps the application list with the legacy
// bookkeeping fields clients expect to be present.
type LegacyApplications struct {
	VersionsDelta string              `json:"versions__delta"`
	AppsHashcode  string              `json:"apps__hashcode"`
	Application   []LegacyApplication `json:"application"`
}

// LegacyApplication groups the instances registered under one name.
type LegacyApplication struct {
	Name     string           `json:"name"`
	Instance []LegacyInstance `json:"instance"`
}

// LegacyPort is the port object with its enabled flag, both in the
// string-keyed form the legacy format uses.
type LegacyPort struct {
	Port    int    `json:"$"`
	Enabled string `json:"@enabled"`
}

// LegacyInstance is one instance record in the legacy shape. Both
// timestamps are epoch milliseconds.
type LegacyInstance struct {
	InstanceID           string         `json:"instanceId"`
	HostName             string         `json:"hostName"`
	App                  string         `json:"app"`
	IPAddr               string         `json:"ipAddr"`
	Status               Status         `json:"status"`
	Port                 LegacyPort     `json:"port"`
	LastUpdatedTimestamp int64          `json:"lastUpdatedTimestamp"`
	LastDirtyTimestamp   int64          `json:"lastDirtyTimestamp"`
	Metadata             map[string]any `json:"metadata"`
}

// ToLegacyDocument renders registry rows into the legacy discovery
// document. Instances sharing a name are grouped into one application;
// the host and port come from each instance's URL, with port defaulting
// to 80 when the URL carries none.
func ToLegacyDocument(instances []ServiceInstance) (LegacyDocument, error) {
	doc := LegacyDocument{
		Applications: LegacyApplications{
			VersionsDelta: "1",
			AppsHashcode:  "",
			Application:   []LegacyApplication{},
		},
	}

	// Group by name, preserving the input (name-sorted) order.
	index := make(map[string]int)
	for _, inst := range instances {
		legacy, err := toLegacyInstance(inst)
		if err != nil {
			return LegacyDocument{}, err
		}

		if i, ok := index[inst.Name]; ok {
			doc.Applications.Application[i].Instance = append(doc.Applications.Application[i].Instance, legacy)
			continue
		}
		index[inst.Name] = len(doc.Applications.Application)
		doc.Applications.Application = append(doc.Applications.Application, LegacyApplication{
			Name:     inst.Name,
			Instance: []LegacyInstance{legacy},
		})
	}

	return doc, nil
}

func toLegacyInstance(inst ServiceInstance) (LegacyInstance, error) {
	parsed, err := url.Parse(inst.URL)
	if err != nil {
		return LegacyInstance{}, fmt.Errorf("service %q has unparsable url %q: %w", inst.Name, inst.URL, err)
	}

	port := 80
	if portStr := parsed.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return LegacyInstance{}, fmt.Errorf("service %q has invalid port in url %q: %w", inst.Name, inst.URL, err)
		}
	}

	metadata := inst.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return LegacyInstance{
		InstanceID:           inst.ID,
		HostName:             parsed.Hostname(),
		App:                  inst.Name,
		IPAddr:               inst.URL,
		Status:               inst.Status,
		Port:                 LegacyPort{Port: port, Enabled: "true"},
		LastUpdatedTimestamp: inst.LastHeartbeat.UnixMilli(),
		LastDirtyTimestamp:   inst.CreatedAt.UnixMilli(),
		Metadata:             metadata,
	}, nil
}
