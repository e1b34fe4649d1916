package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemReservation is a price-locked line on a reservation. The unit price is
// snapshotted at booking time and never recomputed; cancellation releases the
// quantity by state change on the parent reservation, not by editing the line.
type ItemReservation struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID uuid.UUID       `gorm:"column:reservation_id;type:uuid;not null;index"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	Qty           int             `gorm:"column:qty;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
