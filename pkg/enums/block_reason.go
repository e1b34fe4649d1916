package enums

// Block reasons are free text so operators can record why a date was closed,
// but the reservation-driven value is fixed: release only ever clears blocks
// whose reason is exactly BlockReasonReserved, so manual blackouts survive
// cancellations.
const (
	BlockReasonReserved    = "RESERVED"
	BlockReasonMaintenance = "MAINTENANCE"
)
