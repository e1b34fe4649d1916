package reservations

import "github.com/jortega-dev/riverside-backend/pkg/enums"

// transitionTable is the complete reservation lifecycle. Terminal states have
// no entry, so any transition out of them fails the lookup.
var transitionTable = map[enums.ReservationStatus][]enums.ReservationStatus{
	enums.ReservationStatusDraft: {
		enums.ReservationStatusAwaitingPayment,
		enums.ReservationStatusCancelled,
	},
	enums.ReservationStatusAwaitingPayment: {
		enums.ReservationStatusPending,
		enums.ReservationStatusConfirmed,
		enums.ReservationStatusCancelled,
	},
	enums.ReservationStatusPending: {
		enums.ReservationStatusConfirmed,
		enums.ReservationStatusCancelled,
	},
	enums.ReservationStatusConfirmed: {
		enums.ReservationStatusInProgress,
		enums.ReservationStatusCancelled,
	},
	enums.ReservationStatusInProgress: {
		enums.ReservationStatusCompleted,
		enums.ReservationStatusCancelled,
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to enums.ReservationStatus) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the legal targets from a state. Terminal states
// return nil.
func AllowedTargets(from enums.ReservationStatus) []enums.ReservationStatus {
	return transitionTable[from]
}
