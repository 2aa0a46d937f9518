package model

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusReserved  Status = "Reserved"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

var ErrUnknownStatus = errors.New("unknown status")

// ParseStatus is case-insensitive. An empty name means Pending.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return StatusPending, nil
	case "reserved":
		return StatusReserved, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Committed reports whether a booking in this status holds its slot.
func (s Status) Committed() bool {
	return s == StatusReserved || s == StatusConfirmed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReserved, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusReserved, StatusConfirmed, StatusCancelled},
	StatusReserved:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// CanTransition allows staying in the same status so that field edits keep
// their status. Cancelled is terminal.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
