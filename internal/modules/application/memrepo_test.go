package application

import (
	"context"
	"sync"
	"time"

	"helperhub/internal/infra"
	"helperhub/internal/types"
)

// memRepo enforces the same uniqueness rules as the SQL indexes.
type memRepo struct {
	mu   sync.Mutex
	rows map[types.ID]Application
}

func newMemRepo(apps ...Application) *memRepo {
	m := &memRepo{rows: map[types.ID]Application{}}
	for _, a := range apps {
		m.rows[a.ID] = a
	}
	return m
}

func (m *memRepo) Create(ctx context.Context, q infra.DBTX, a *Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.OrderID == a.OrderID && existing.HelperID == a.HelperID {
			return ErrAlreadyApplied
		}
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memRepo) Get(ctx context.Context, q infra.DBTX, id types.ID) (*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memRepo) ListByHelper(ctx context.Context, q infra.DBTX, helperID types.ID) ([]Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Application
	for _, a := range m.rows {
		if a.HelperID == helperID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) CompareAndSetStatus(ctx context.Context, q infra.DBTX, id types.ID, from, to Status, checkedInAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.Status != from {
		return false, nil
	}
	if to == StatusApproved || to == StatusSelected || to == StatusInProgress {
		for _, other := range m.rows {
			if other.ID != id && other.OrderID == a.OrderID && (other.Active() || other.Status == StatusInProgress) {
				return false, ErrActiveExists
			}
		}
	}
	a.Status = to
	if checkedInAt != nil {
		a.CheckedInAt = checkedInAt
	}
	m.rows[id] = a
	return true, nil
}
