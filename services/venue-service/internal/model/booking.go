package model

// Booking is one reservation of the venue. Date is YYYY-MM-DD; StartTime and
// EndTime are wall-clock HH:MM strings kept exactly as submitted.
type Booking struct {
	ID            string  `json:"id"`
	CustomerName  string  `json:"customerName"`
	Phone         string  `json:"phone"`
	Date          string  `json:"date"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Status        Status  `json:"status"`
	PaymentStatus string  `json:"paymentStatus"`
	Advance       float64 `json:"advance"`
	Comments      string  `json:"comments"`
	CreatedBy     string  `json:"createdBy"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt,omitempty"`
}

const PaymentUnpaid = "Unpaid"
