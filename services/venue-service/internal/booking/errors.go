package booking

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotConflict      = errors.New("time conflict: slot already booked")
)

// SlotConflictError reports the committed booking that blocked a write.
type SlotConflictError struct {
	With availability.Interval
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("%s: overlaps booking %s on %s %s-%s",
		ErrSlotConflict, e.With.ID, e.With.Date, e.With.Start, e.With.End)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

// IsInputError reports whether err was caused by the caller's input rather
// than by the store or the booking's state.
func IsInputError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, availability.ErrInvalidTimeFormat) ||
		errors.Is(err, availability.ErrInvalidDate) ||
		errors.Is(err, availability.ErrInvalidRange)
}
