package store

import (
	"context"
	"sync"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// MemoryStore is an in-memory SailingStore for tests and local runs
// without a database file.
type MemoryStore struct {
	mu       sync.RWMutex
	sailings map[string]map[string]domain.Sailing // service date -> key -> sailing
	wind     []domain.WindObservation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sailings: make(map[string]map[string]domain.Sailing)}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) UpsertSailing(_ context.Context, s domain.Sailing) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day, ok := m.sailings[s.ServiceDate]
	if !ok {
		day = make(map[string]domain.Sailing)
		m.sailings[s.ServiceDate] = day
	}

	existing, ok := day[s.Key]
	if !ok {
		day[s.Key] = s
		return UpsertResult{Created: true, StatusChanged: s.Status != domain.StatusNone, NewStatus: s.Status}, nil
	}

	merged, changed := mergeSailings(existing, s)
	day[s.Key] = merged
	return UpsertResult{
		StatusChanged: changed,
		OldStatus:     existing.Status,
		NewStatus:     merged.Status,
	}, nil
}

func (m *MemoryStore) ApplyReason(_ context.Context, serviceDate, key, reason string) (bool, error) {
	if reason == "" {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sailings[serviceDate][key]
	if !ok || s.StatusReason == reason {
		return false, nil
	}
	s.StatusReason = reason
	m.sailings[serviceDate][key] = s
	return true, nil
}

func (m *MemoryStore) ListSailings(_ context.Context, serviceDate string) ([]domain.Sailing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := m.sailings[serviceDate]
	out := make([]domain.Sailing, 0, len(day))
	for _, s := range day {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) CountCanceled(_ context.Context, serviceDate string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sailings[serviceDate] {
		if s.Status == domain.StatusCanceled {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveWindObservation(_ context.Context, o domain.WindObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wind = append(m.wind, o)
	return nil
}

func (m *MemoryStore) RecentWindObservations(_ context.Context, terminal string, since time.Time) ([]domain.WindObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.WindObservation
	for _, o := range m.wind {
		if o.Terminal == terminal && !o.ObservedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
