package booking

import "github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"

// Policy decides which writes must pass the conflict detector.
type Policy struct {
	// CheckReservedConflicts extends the gate to bookings entering or staying
	// in Reserved. Off by default: only Confirmed writes are checked.
	CheckReservedConflicts bool
	// MaxRangeDays caps availability queries; zero means
	// availability.DefaultMaxDays.
	MaxRangeDays int
}

func (p Policy) RequiresCheck(s model.Status) bool {
	switch s {
	case model.StatusConfirmed:
		return true
	case model.StatusReserved:
		return p.CheckReservedConflicts
	default:
		return false
	}
}
