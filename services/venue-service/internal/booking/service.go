package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/metrics"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("venue-service/booking")

type Options struct {
	Policy  Policy
	Metrics *metrics.Metrics
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service owns the booking lifecycle: every write that can commit a slot runs
// the conflict detector inside the same store transaction as the write.
type Service struct {
	store   Store
	logger  *slog.Logger
	policy  Policy
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func NewService(store Store, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		store:   store,
		logger:  logger,
		policy:  opts.Policy,
		metrics: opts.Metrics,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

type SaveResult struct {
	Booking model.Booking
	Created bool
}

// Save creates the booking, or updates it when a booking with the same id
// exists. The conflict gate evaluates the resulting booking.
func (s *Service) Save(ctx context.Context, in Input) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "booking.Save")
	defer span.End()

	if err := in.Validate(); err != nil {
		s.metrics.Write("save", "invalid")
		return SaveResult{}, err
	}
	id := ""
	if in.ID != nil {
		id = *in.ID
	}
	if id == "" {
		id = s.newID()
	}
	span.SetAttributes(attribute.String("booking.id", id), attribute.String("booking.date", in.Date))

	var res SaveResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, BookingLockKey(id)); err != nil {
			return err
		}
		existing, found, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Lock(ctx, DateLockKey(in.Date)); err != nil {
			return err
		}

		now := s.timestamp()
		var next model.Booking
		if found {
			next = in.applyTo(existing)
			if !model.CanTransition(existing.Status, next.Status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, next.Status)
			}
			next.UpdatedAt = now
		} else {
			next = in.newBooking(id, now)
		}

		if err := s.gate(ctx, tx, next); err != nil {
			return err
		}

		if found {
			err = tx.Update(ctx, next)
		} else {
			err = tx.Insert(ctx, next)
		}
		if err != nil {
			return err
		}

		payload := outbox.BookingPayload{Booking: next, Created: !found}
		if found && existing.Status != next.Status {
			payload.PreviousStatus = existing.Status
		}
		if err := s.emit(ctx, tx, outbox.EventBookingSaved, payload); err != nil {
			return err
		}
		res = SaveResult{Booking: next, Created: !found}
		return nil
	})
	if err != nil {
		s.fail(span, "save", err, "booking_id", id)
		return SaveResult{}, err
	}

	s.metrics.Write("save", "ok")
	s.logger.InfoContext(ctx, "booking saved",
		"booking_id", res.Booking.ID,
		"date", res.Booking.Date,
		"status", res.Booking.Status,
		"created", res.Created,
	)
	return res, nil
}

// UpdateStatus moves a booking to status. Moving into a checked status runs
// the conflict gate against the booking's stored slot.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (model.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.UpdateStatus", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if strings.TrimSpace(status) == "" {
		s.metrics.Write("status", "invalid")
		return model.Booking{}, fmt.Errorf("%w: status required", ErrValidation)
	}
	target, err := model.ParseStatus(status)
	if err != nil {
		s.metrics.Write("status", "invalid")
		return model.Booking{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var updated model.Booking
	var previous model.Status
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, BookingLockKey(id)); err != nil {
			return err
		}
		current, found, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		if !model.CanTransition(current.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		}
		if err := tx.Lock(ctx, DateLockKey(current.Date)); err != nil {
			return err
		}

		next := current
		next.Status = target
		next.UpdatedAt = s.timestamp()
		if err := s.gate(ctx, tx, next); err != nil {
			return err
		}
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, outbox.EventBookingStatusChanged, outbox.BookingPayload{
			Booking:        next,
			PreviousStatus: current.Status,
		}); err != nil {
			return err
		}
		updated, previous = next, current.Status
		return nil
	})
	if err != nil {
		s.fail(span, "status", err, "booking_id", id, "status", target)
		return model.Booking{}, err
	}

	s.metrics.Write("status", "ok")
	s.logger.InfoContext(ctx, "booking status changed", "booking_id", id, "from", previous, "to", updated.Status)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "booking.Delete", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, BookingLockKey(id)); err != nil {
			return err
		}
		current, found, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, outbox.EventBookingDeleted, outbox.BookingPayload{Booking: current})
	})
	if err != nil {
		s.fail(span, "delete", err, "booking_id", id)
		return err
	}
	s.metrics.Write("delete", "ok")
	s.logger.InfoContext(ctx, "booking deleted", "booking_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Booking, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// ListQuery is the raw list request; Status "All" or empty disables the status filter.
type ListQuery struct {
	From   string
	To     string
	Status string
	Phone  string
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]model.Booking, error) {
	f := Filter{
		From:  strings.TrimSpace(q.From),
		To:    strings.TrimSpace(q.To),
		Phone: normalizePhone(q.Phone),
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := availability.ParseDate(d); err != nil {
			return nil, err
		}
	}
	if st := strings.TrimSpace(q.Status); st != "" && !strings.EqualFold(st, "all") {
		parsed, err := model.ParseStatus(st)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		f.Status = parsed
	}
	return s.store.List(ctx, f)
}

// EvaluateConflict answers whether candidate would collide with a committed
// booking. It never writes; excludeID lets an edit ignore its own slot.
func (s *Service) EvaluateConflict(ctx context.Context, candidate availability.Interval, excludeID string) (availability.ConflictResult, error) {
	ctx, span := tracer.Start(ctx, "booking.EvaluateConflict")
	defer span.End()

	candidate.Date = strings.TrimSpace(candidate.Date)
	candidate.Start = strings.TrimSpace(candidate.Start)
	candidate.End = strings.TrimSpace(candidate.End)
	excludeID = strings.TrimSpace(excludeID)

	if _, err := availability.ParseDate(candidate.Date); err != nil {
		return availability.ConflictResult{}, err
	}
	if _, err := candidate.Span(); err != nil {
		return availability.ConflictResult{}, err
	}
	committed, err := s.store.CommittedInRange(ctx, candidate.Date, candidate.Date)
	if err != nil {
		return availability.ConflictResult{}, err
	}
	res, err := availability.CheckConflict(candidate, committed, excludeID)
	if err != nil {
		return availability.ConflictResult{}, err
	}
	if res.Conflict {
		s.metrics.Conflict("probe")
	}
	return res, nil
}

// ComputeAvailability returns the free spans of the daily window for every
// date in [from, to], ascending.
func (s *Service) ComputeAvailability(ctx context.Context, from, to, dayStart, dayEnd string) ([]availability.DayFree, error) {
	ctx, span := tracer.Start(ctx, "booking.ComputeAvailability", trace.WithAttributes(
		attribute.String("range.from", from),
		attribute.String("range.to", to),
	))
	defer span.End()
	started := time.Now()

	window, err := availability.ParseWindow(dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	dates, err := availability.DateRange(from, to, s.policy.MaxRangeDays)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []availability.DayFree{}, nil
	}

	committed, err := s.store.CommittedInRange(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, iv := range committed {
		if _, err := iv.Span(); err != nil {
			s.logger.WarnContext(ctx, "skipping booking with unparseable times", "booking_id", iv.ID, "err", err)
		}
	}

	out := availability.FreeWindowsOn(dates, window, committed)
	s.metrics.Availability(len(dates), time.Since(started))
	return out, nil
}

func (s *Service) gate(ctx context.Context, tx Tx, b model.Booking) error {
	if !s.policy.RequiresCheck(b.Status) {
		return nil
	}
	committed, err := tx.CommittedOn(ctx, b.Date)
	if err != nil {
		return err
	}
	res, err := availability.CheckConflict(IntervalOf(b), committed, b.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if res.Conflict {
		s.metrics.Conflict("gate")
		return &SlotConflictError{With: *res.With}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, tx Tx, eventType string, p outbox.BookingPayload) error {
	evt, err := outbox.NewBookingEvent(eventType, p, s.now())
	if err != nil {
		return err
	}
	return tx.Emit(ctx, evt)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// fail records err on the span and metrics. Caller mistakes and lost races are
// logged at info; anything else is an error.
func (s *Service) fail(span trace.Span, op string, err error, attrs ...any) {
	result := "error"
	switch {
	case IsInputError(err):
		result = "invalid"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalidTransition):
		result = "invalid_transition"
	case errors.Is(err, ErrSlotConflict):
		result = "conflict"
	}
	s.metrics.Write(op, result)

	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("booking write failed", append(attrs, "op", op, "err", err)...)
		return
	}
	s.logger.Info("booking write rejected", append(attrs, "op", op, "result", result, "err", err)...)
}
