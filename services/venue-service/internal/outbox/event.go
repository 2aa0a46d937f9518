package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateBooking = "booking"

	EventBookingSaved         = "venue.booking.saved.v1"
	EventBookingStatusChanged = "venue.booking.status_changed.v1"
	EventBookingDeleted       = "venue.booking.deleted.v1"
)

// BookingPayload is the body of every booking event. Booking is the state
// after the change; for deletions it is the last stored state.
type BookingPayload struct {
	Booking        model.Booking `json:"booking"`
	PreviousStatus model.Status  `json:"previousStatus,omitempty"`
	Created        bool          `json:"created,omitempty"`
	OccurredAt     string        `json:"occurredAt"`
}

func NewBookingEvent(eventType string, p BookingPayload, at time.Time) (Event, error) {
	p.OccurredAt = at.UTC().Format(time.RFC3339)
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   p.Booking.ID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
