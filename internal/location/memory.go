package location

import (
	"context"
	"sort"
	"sync"
	"time"

	"hail/internal/geo"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
// Writes are keyed per driver; Query takes a snapshot under the read lock so
// a concurrent Upsert can never produce a torn position.
type MemoryStore struct {
	mu        sync.RWMutex
	drivers   map[string]DriverLocation
	freshness time.Duration
	now       func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given freshness window.
// A non-positive freshness falls back to DefaultFreshness.
func NewMemoryStore(freshness time.Duration) *MemoryStore {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &MemoryStore{
		drivers:   make(map[string]DriverLocation),
		freshness: freshness,
		now:       time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Upsert replaces the stored position for a driver.
func (s *MemoryStore) Upsert(ctx context.Context, driverID string, pos geo.Point) error {
	if !pos.IsValid() {
		return ErrInvalidCenter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[driverID] = DriverLocation{
		DriverID:   driverID,
		Position:   pos,
		ReportedAt: s.now(),
	}
	return nil
}

// Query returns fresh drivers within radiusKm of center, nearest first.
func (s *MemoryStore) Query(ctx context.Context, center geo.Point, radiusKm float64) ([]DriverLocation, error) {
	if !center.IsValid() {
		return nil, ErrInvalidCenter
	}

	cutoff := s.now().Add(-s.freshness)

	s.mu.RLock()
	matches := make([]DriverLocation, 0, len(s.drivers))
	for _, loc := range s.drivers {
		if loc.ReportedAt.Before(cutoff) {
			continue
		}
		if geo.Haversine(center, loc.Position) <= radiusKm {
			matches = append(matches, loc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return geo.Haversine(center, matches[i].Position) < geo.Haversine(center, matches[j].Position)
	})

	return matches, nil
}

// Remove deletes a driver's position.
func (s *MemoryStore) Remove(ctx context.Context, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drivers, driverID)
	return nil
}
