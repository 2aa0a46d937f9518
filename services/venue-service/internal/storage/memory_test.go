package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s booking.Store, bs ...model.Booking) {
	t.Helper()
	err := s.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		for _, b := range bs {
			if err := tx.Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func bk(id, date, start, end string, st model.Status) model.Booking {
	return model.Booking{
		ID: id, CustomerName: "n", Phone: "0170" + id, Date: date,
		StartTime: start, EndTime: end, Status: st, CreatedBy: "0170" + id,
		CreatedAt: "2024-01-01T00:00:00Z",
	}
}

func TestMemory_RollbackOnError(t *testing.T) {
	m := NewMemory()
	seed(t, m, bk("A", "2024-01-01", "10:00", "12:00", model.StatusConfirmed))

	boom := errors.New("boom")
	err := m.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		require.NoError(t, tx.Insert(ctx, bk("B", "2024-01-01", "13:00", "14:00", model.StatusPending)))
		require.NoError(t, tx.Delete(ctx, "A"))
		require.NoError(t, tx.Emit(ctx, outbox.Event{EventType: "x", AggregateID: "B"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = m.Get(context.Background(), "B")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = m.Get(context.Background(), "A")
	assert.NoError(t, err)
	assert.Empty(t, m.Events())
}

func TestMemory_TxSeesOwnWrites(t *testing.T) {
	m := NewMemory()
	seed(t, m, bk("A", "2024-01-01", "10:00", "12:00", model.StatusConfirmed))

	err := m.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		require.NoError(t, tx.Insert(ctx, bk("B", "2024-01-01", "13:00", "14:00", model.StatusReserved)))
		cancelled := bk("A", "2024-01-01", "10:00", "12:00", model.StatusCancelled)
		require.NoError(t, tx.Update(ctx, cancelled))

		committed, err := tx.CommittedOn(ctx, "2024-01-01")
		require.NoError(t, err)
		require.Len(t, committed, 1)
		assert.Equal(t, "B", committed[0].ID)

		got, found, err := tx.Get(ctx, "A")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, model.StatusCancelled, got.Status)

		require.NoError(t, tx.Delete(ctx, "B"))
		_, found, err = tx.Get(ctx, "B")
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestMemory_ListFiltersAndOrder(t *testing.T) {
	m := NewMemory()
	seed(t, m,
		bk("C", "2024-01-02", "09:00", "10:00", model.StatusPending),
		bk("A", "2024-01-01", "18:00", "19:00", model.StatusConfirmed),
		bk("B", "2024-01-01", "08:00", "09:00", model.StatusReserved),
		bk("D", "2024-01-05", "08:00", "09:00", model.StatusCancelled),
	)
	ctx := context.Background()

	all, err := m.List(ctx, booking.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C", "D"}, ids(all))

	ranged, err := m.List(ctx, booking.Filter{From: "2024-01-01", To: "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, ids(ranged))

	confirmed, err := m.List(ctx, booking.Filter{Status: model.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(confirmed))

	byPhone, err := m.List(ctx, booking.Filter{Phone: "0170C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, ids(byPhone))

	none, err := m.List(ctx, booking.Filter{From: "2030-01-01"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemory_CommittedInRange(t *testing.T) {
	m := NewMemory()
	seed(t, m,
		bk("A", "2024-01-01", "10:00", "11:00", model.StatusConfirmed),
		bk("B", "2024-01-02", "10:00", "11:00", model.StatusReserved),
		bk("C", "2024-01-02", "12:00", "13:00", model.StatusPending),
		bk("D", "2024-01-03", "10:00", "11:00", model.StatusCancelled),
		bk("E", "2024-01-04", "10:00", "11:00", model.StatusConfirmed),
	)
	got, err := m.CommittedInRange(context.Background(), "2024-01-01", "2024-01-03")
	require.NoError(t, err)
	var gotIDs []string
	for _, iv := range got {
		gotIDs = append(gotIDs, iv.ID)
	}
	assert.Equal(t, []string{"A", "B"}, gotIDs)
}

func TestMemory_WithUnpublished(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		for _, id := range []string{"A", "B", "C"} {
			if err := tx.Emit(ctx, outbox.Event{EventType: outbox.EventBookingSaved, AggregateID: id}); err != nil {
				return err
			}
		}
		return nil
	}))

	failed := m.WithUnpublished(ctx, 2, func(context.Context, []outbox.Record) error { return errors.New("down") })
	require.Error(t, failed)

	var seen []string
	collect := func(_ context.Context, rs []outbox.Record) error {
		for _, r := range rs {
			assert.NotEmpty(t, r.EventID)
			seen = append(seen, r.AggregateID)
		}
		return nil
	}
	require.NoError(t, m.WithUnpublished(ctx, 2, collect))
	require.NoError(t, m.WithUnpublished(ctx, 2, collect))
	require.NoError(t, m.WithUnpublished(ctx, 2, collect))
	assert.Equal(t, []string{"A", "B", "C"}, seen)
}

func ids(bs []model.Booking) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
