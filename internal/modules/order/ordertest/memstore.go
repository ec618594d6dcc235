// README: In-memory order store with the same compare-and-set semantics as the SQL store, for tests.
package ordertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"helperhub/internal/infra"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type MemStore struct {
	mu      sync.Mutex
	orders  map[types.ID]order.Order
	events  []order.Event
	closing map[types.ID]order.ClosingReport
}

func NewMemStore(orders ...order.Order) *MemStore {
	m := &MemStore{
		orders:  map[types.ID]order.Order{},
		closing: map[types.ID]order.ClosingReport{},
	}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MemStore) Put(o order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *MemStore) Create(ctx context.Context, q infra.DBTX, o *order.Order) error {
	m.Put(*o)
	return nil
}

func (m *MemStore) Get(ctx context.Context, q infra.DBTX, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (m *MemStore) CompareAndSetStatus(ctx context.Context, q infra.DBTX, c order.StatusChange) (*order.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[c.OrderID]
	if !ok || o.Status != c.From || o.StatusVersion != c.Version {
		return nil, false, nil
	}
	o.Status = c.To
	o.StatusVersion++
	if c.MatchedHelperID != nil {
		h := *c.MatchedHelperID
		o.MatchedHelperID = &h
	}
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = o
	return &o, true, nil
}

func (m *MemStore) AppendEvent(ctx context.Context, q infra.DBTX, e *order.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *MemStore) Events() []order.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.Event(nil), m.events...)
}

func (m *MemStore) InsertClosingReport(ctx context.Context, q infra.DBTX, r *order.ClosingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.closing[r.OrderID]; ok {
		return order.ErrClosingExists
	}
	m.closing[r.OrderID] = *r
	return nil
}

func (m *MemStore) GetClosingReport(ctx context.Context, q infra.DBTX, orderID types.ID) (*order.ClosingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.closing[orderID]
	if !ok {
		return nil, order.ErrClosingNotFound
	}
	return &r, nil
}

func (m *MemStore) filter(keep func(order.Order) bool) []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.Status.Assignable() && keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemStore) ListAssignableByRequester(ctx context.Context, q infra.DBTX, requesterID types.ID) ([]order.Order, error) {
	return m.filter(func(o order.Order) bool { return o.RequesterID == requesterID }), nil
}

func (m *MemStore) ListAssignableByIDs(ctx context.Context, q infra.DBTX, ids []types.ID) ([]order.Order, error) {
	set := map[types.ID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return m.filter(func(o order.Order) bool { return set[o.ID] }), nil
}
