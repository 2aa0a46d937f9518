package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
)

// Memory is an in-process store for dev mode and tests. One mutex owns the
// whole store for the duration of InTx, so check-and-write units never
// interleave. Writes are staged and applied only when fn succeeds.
type Memory struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	events   []memoryEvent
	seq      int64
}

type memoryEvent struct {
	record    outbox.Record
	published bool
}

func NewMemory() *Memory {
	return &Memory{bookings: make(map[string]model.Booking)}
}

var (
	_ booking.Store = (*Memory)(nil)
	_ outbox.Source = (*Memory)(nil)
)

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{m: m, staged: make(map[string]*model.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, b := range tx.staged {
		if b == nil {
			delete(m.bookings, id)
			continue
		}
		m.bookings[id] = *b
	}
	m.events = append(m.events, tx.events...)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (m *Memory) List(_ context.Context, f booking.Filter) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if matches(b, f) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (m *Memory) CommittedInRange(_ context.Context, from, to string) ([]availability.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []availability.Interval
	for _, b := range m.bookings {
		if b.Status.Committed() && b.Date >= from && b.Date <= to {
			out = append(out, booking.IntervalOf(b))
		}
	}
	sortIntervals(out)
	return out, nil
}

// WithUnpublished copies a batch out under the lock and calls fn without it,
// so a slow broker never blocks booking writes.
func (m *Memory) WithUnpublished(ctx context.Context, limit int, fn func(context.Context, []outbox.Record) error) error {
	m.mu.Lock()
	var batch []outbox.Record
	for _, e := range m.events {
		if len(batch) == limit {
			break
		}
		if !e.published {
			batch = append(batch, e.record)
		}
	}
	m.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := fn(ctx, batch); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(map[int64]struct{}, len(batch))
	for _, r := range batch {
		done[r.ID] = struct{}{}
	}
	for i := range m.events {
		if _, ok := done[m.events[i].record.ID]; ok {
			m.events[i].published = true
		}
	}
	return nil
}

// Events returns every recorded outbox event in insertion order.
func (m *Memory) Events() []outbox.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]outbox.Record, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.record)
	}
	return out
}

type memoryTx struct {
	m      *Memory
	staged map[string]*model.Booking
	events []memoryEvent
}

func (tx *memoryTx) Lock(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (tx *memoryTx) Get(_ context.Context, id string) (model.Booking, bool, error) {
	if b, ok := tx.staged[id]; ok {
		if b == nil {
			return model.Booking{}, false, nil
		}
		return *b, true, nil
	}
	b, ok := tx.m.bookings[id]
	return b, ok, nil
}

func (tx *memoryTx) CommittedOn(_ context.Context, date string) ([]availability.Interval, error) {
	var out []availability.Interval
	for id, b := range tx.m.bookings {
		if _, ok := tx.staged[id]; ok {
			continue
		}
		if b.Date == date && b.Status.Committed() {
			out = append(out, booking.IntervalOf(b))
		}
	}
	for _, b := range tx.staged {
		if b != nil && b.Date == date && b.Status.Committed() {
			out = append(out, booking.IntervalOf(*b))
		}
	}
	sortIntervals(out)
	return out, nil
}

func (tx *memoryTx) Insert(_ context.Context, b model.Booking) error {
	tx.staged[b.ID] = &b
	return nil
}

func (tx *memoryTx) Update(_ context.Context, b model.Booking) error {
	tx.staged[b.ID] = &b
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id string) error {
	tx.staged[id] = nil
	return nil
}

func (tx *memoryTx) Emit(ctx context.Context, evt outbox.Event) error {
	tx.m.seq++
	traceparent, tracestate := outbox.TraceFields(ctx)
	tx.events = append(tx.events, memoryEvent{record: outbox.Record{
		ID:            tx.m.seq,
		EventID:       uuid.NewString(),
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		Traceparent:   traceparent,
		Tracestate:    tracestate,
		CreatedAt:     time.Now().UTC(),
	}})
	return nil
}

func matches(b model.Booking, f booking.Filter) bool {
	if f.From != "" && b.Date < f.From {
		return false
	}
	if f.To != "" && b.Date > f.To {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Phone != "" && b.Phone != f.Phone && b.CreatedBy != f.Phone {
		return false
	}
	return true
}

func sortBookings(bs []model.Booking) {
	slices.SortFunc(bs, func(a, b model.Booking) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func sortIntervals(ivs []availability.Interval) {
	slices.SortFunc(ivs, func(a, b availability.Interval) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.Start, b.Start),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
