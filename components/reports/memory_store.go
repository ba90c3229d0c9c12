package reports

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tiendc/go-deepcopy"
)

// InMemoryDashboardStore is a concurrency-safe DashboardStore for tests and the CLI.
type InMemoryDashboardStore struct {
	mu         sync.RWMutex
	dashboards map[string]Dashboard
	versions   map[string]DashboardVersion
}

// NewInMemoryDashboardStore creates a store seeded with dashboards. Seeded
// dashboards that carry a Published version have it registered as well.
func NewInMemoryDashboardStore(seed ...Dashboard) *InMemoryDashboardStore {
	s := &InMemoryDashboardStore{
		dashboards: make(map[string]Dashboard),
		versions:   make(map[string]DashboardVersion),
	}
	for _, d := range seed {
		if d.Published != nil {
			v := *d.Published
			if v.DashboardID == "" {
				v.DashboardID = d.ID
			}
			if v.TenantID == "" {
				v.TenantID = d.TenantID
			}
			s.versions[v.ID] = v
			d.PublishedVersionID = v.ID
			d.Published = nil
		}
		s.dashboards[s.key(d.TenantID, d.ID)] = d
	}
	return s
}

// Dashboard returns the dashboard with its published version attached.
func (s *InMemoryDashboardStore) Dashboard(_ context.Context, tenantID, dashboardID string) (Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dashboards[s.key(tenantID, dashboardID)]
	if !ok {
		return Dashboard{}, fmt.Errorf("%w: %s", ErrDashboardNotFound, dashboardID)
	}
	if v, ok := s.versions[d.PublishedVersionID]; ok {
		var published DashboardVersion
		if err := deepcopy.Copy(&published, v); err != nil {
			return Dashboard{}, fmt.Errorf("reports: copy version: %w", err)
		}
		d.Published = &published
	}
	return d, nil
}

// SaveVersion stores a new version numbered after the latest one of its dashboard.
func (s *InMemoryDashboardStore) SaveVersion(_ context.Context, version DashboardVersion) (DashboardVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dashboards[s.key(version.TenantID, version.DashboardID)]; !ok {
		return DashboardVersion{}, fmt.Errorf("%w: %s", ErrDashboardNotFound, version.DashboardID)
	}
	latest := 0
	for _, v := range s.versions {
		if v.DashboardID == version.DashboardID && v.TenantID == version.TenantID && v.Number > latest {
			latest = v.Number
		}
	}
	version.Number = latest + 1
	var stored DashboardVersion
	if err := deepcopy.Copy(&stored, version); err != nil {
		return DashboardVersion{}, fmt.Errorf("reports: copy version: %w", err)
	}
	s.versions[version.ID] = stored
	return version, nil
}

// Publish marks versionID as the served version of the dashboard.
func (s *InMemoryDashboardStore) Publish(_ context.Context, tenantID, dashboardID, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(tenantID, dashboardID)
	d, ok := s.dashboards[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDashboardNotFound, dashboardID)
	}
	v, ok := s.versions[versionID]
	if !ok || v.DashboardID != dashboardID || v.TenantID != tenantID {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	d.PublishedVersionID = versionID
	s.dashboards[key] = d
	return nil
}

// Versions lists the stored versions of a dashboard, oldest first.
func (s *InMemoryDashboardStore) Versions(tenantID, dashboardID string) []DashboardVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DashboardVersion
	for _, v := range s.versions {
		if v.DashboardID == dashboardID && v.TenantID == tenantID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *InMemoryDashboardStore) key(tenantID, dashboardID string) string {
	return tenantID + "::" + dashboardID
}

// InMemoryConnectionStore serves fixed connections per tenant.
type InMemoryConnectionStore struct {
	mu   sync.RWMutex
	data map[string][]Connection
}

// NewInMemoryConnectionStore creates an empty store.
func NewInMemoryConnectionStore() *InMemoryConnectionStore {
	return &InMemoryConnectionStore{data: make(map[string][]Connection)}
}

// SetConnections replaces the connections of a tenant.
func (s *InMemoryConnectionStore) SetConnections(tenantID string, conns []Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tenantID] = append([]Connection(nil), conns...)
}

func (s *InMemoryConnectionStore) Connections(_ context.Context, tenantID string) ([]Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Connection(nil), s.data[tenantID]...), nil
}
