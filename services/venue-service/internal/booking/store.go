package booking

import (
	"context"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
)

// Filter narrows List. Zero values match everything; Phone matches either the
// booking's phone or its creator.
type Filter struct {
	From   string
	To     string
	Status model.Status
	Phone  string
}

// Store is the persistence port. Implementations live in internal/storage.
type Store interface {
	// InTx runs fn in one atomic unit. Everything fn writes, events included,
	// becomes visible together or not at all.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Get(ctx context.Context, id string) (model.Booking, error)
	List(ctx context.Context, f Filter) ([]model.Booking, error)
	// CommittedInRange returns Reserved and Confirmed bookings dated in [from, to].
	CommittedInRange(ctx context.Context, from, to string) ([]availability.Interval, error)
}

// Tx is the view of the store inside InTx.
type Tx interface {
	// Lock takes an exclusive lock on key until the unit ends. Callers lock a
	// booking key before a date key.
	Lock(ctx context.Context, key string) error
	// Get returns found=false when no booking has id.
	Get(ctx context.Context, id string) (b model.Booking, found bool, err error)
	CommittedOn(ctx context.Context, date string) ([]availability.Interval, error)
	Insert(ctx context.Context, b model.Booking) error
	Update(ctx context.Context, b model.Booking) error
	Delete(ctx context.Context, id string) error
	Emit(ctx context.Context, evt outbox.Event) error
}

func BookingLockKey(id string) string { return "booking:" + id }

func DateLockKey(date string) string { return "date:" + date }

// IntervalOf projects a booking onto the detector's input type.
func IntervalOf(b model.Booking) availability.Interval {
	return availability.Interval{ID: b.ID, Date: b.Date, Start: b.StartTime, End: b.EndTime}
}
