package enums

import "fmt"

// ReservationStatus is the lifecycle state of a single reservation.
type ReservationStatus string

const (
	ReservationStatusDraft           ReservationStatus = "draft"
	ReservationStatusAwaitingPayment ReservationStatus = "awaiting_payment"
	ReservationStatusPending         ReservationStatus = "pending"
	ReservationStatusConfirmed       ReservationStatus = "confirmed"
	ReservationStatusInProgress      ReservationStatus = "in_progress"
	ReservationStatusCompleted       ReservationStatus = "completed"
	ReservationStatusCancelled       ReservationStatus = "cancelled"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusDraft,
	ReservationStatusAwaitingPayment,
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusInProgress,
	ReservationStatusCompleted,
	ReservationStatusCancelled,
}

// ActiveReservationStatuses are the states that count against availability and stock.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusInProgress,
}

// BlockingReservationStatuses are the states that conflict with new bookings
// of the same resource interval.
var BlockingReservationStatuses = []ReservationStatus{
	ReservationStatusConfirmed,
	ReservationStatusInProgress,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsActive reports whether the state holds availability and stock.
func (r ReservationStatus) IsActive() bool {
	for _, candidate := range ActiveReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state has no outgoing transitions.
func (r ReservationStatus) IsTerminal() bool {
	return r == ReservationStatusCompleted || r == ReservationStatusCancelled
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
