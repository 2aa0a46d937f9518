package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
)

// Input is a create-or-update request. Optional fields are pointers: nil
// means "not sent", so an update leaves the stored value alone.
type Input struct {
	ID            *string `json:"id,omitempty"`
	CustomerName  string  `json:"customerName"`
	Phone         string  `json:"phone"`
	Date          string  `json:"date"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"paymentStatus,omitempty"`
	Advance       *Amount `json:"advance,omitempty"`
	Comments      *string `json:"comments,omitempty"`
	CreatedBy     *string `json:"createdBy,omitempty"`

	status model.Status
}

// Amount accepts a JSON number, a numeric string, an empty string or null.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("advance: %q is not a number", s)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Validate trims the input, normalizes the phone to digits and checks every
// field the service relies on.
func (in *Input) Validate() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = normalizePhone(in.Phone)
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	if in.ID != nil {
		id := strings.TrimSpace(*in.ID)
		in.ID = &id
	}

	var missing []string
	if in.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if in.StartTime == "" {
		missing = append(missing, "startTime")
	}
	if in.EndTime == "" {
		missing = append(missing, "endTime")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}

	if _, err := availability.ParseDate(in.Date); err != nil {
		return fmt.Errorf("%w: date: %w", ErrValidation, err)
	}
	if _, err := availability.ParseClock(in.StartTime); err != nil {
		return fmt.Errorf("%w: startTime: %w", ErrValidation, err)
	}
	if _, err := availability.ParseClock(in.EndTime); err != nil {
		return fmt.Errorf("%w: endTime: %w", ErrValidation, err)
	}

	in.status = model.StatusPending
	if in.Status != nil {
		st, err := model.ParseStatus(*in.Status)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		in.status = st
	}
	if in.Advance != nil && *in.Advance < 0 {
		return fmt.Errorf("%w: advance must not be negative", ErrValidation)
	}
	return nil
}

// newBooking applies the creation defaults. Validate must have succeeded.
func (in *Input) newBooking(id, now string) model.Booking {
	b := model.Booking{
		ID:            id,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		Date:          in.Date,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Status:        in.status,
		PaymentStatus: model.PaymentUnpaid,
		CreatedBy:     in.Phone,
		CreatedAt:     now,
	}
	if in.PaymentStatus != nil && strings.TrimSpace(*in.PaymentStatus) != "" {
		b.PaymentStatus = strings.TrimSpace(*in.PaymentStatus)
	}
	if in.Advance != nil {
		b.Advance = float64(*in.Advance)
	}
	if in.Comments != nil {
		b.Comments = *in.Comments
	}
	if in.CreatedBy != nil && strings.TrimSpace(*in.CreatedBy) != "" {
		b.CreatedBy = strings.TrimSpace(*in.CreatedBy)
	}
	return b
}

// applyTo overwrites the fields of existing that the input carries. Required
// fields are always carried; optional ones only when sent.
func (in *Input) applyTo(existing model.Booking) model.Booking {
	b := existing
	b.CustomerName = in.CustomerName
	b.Phone = in.Phone
	b.Date = in.Date
	b.StartTime = in.StartTime
	b.EndTime = in.EndTime
	if in.Status != nil {
		b.Status = in.status
	}
	if in.PaymentStatus != nil {
		b.PaymentStatus = strings.TrimSpace(*in.PaymentStatus)
	}
	if in.Advance != nil {
		b.Advance = float64(*in.Advance)
	}
	if in.Comments != nil {
		b.Comments = *in.Comments
	}
	if in.CreatedBy != nil {
		b.CreatedBy = strings.TrimSpace(*in.CreatedBy)
	}
	return b
}

func normalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
