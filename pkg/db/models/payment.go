package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/enums"
)

// Payment records an amount/method/reference against a reservation or a
// package. The engine validates amounts but never calls out to a processor.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID *uuid.UUID          `gorm:"column:reservation_id;type:uuid;index"`
	PackageID     *uuid.UUID          `gorm:"column:package_id;type:uuid;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	ExternalRef   *string             `gorm:"column:external_ref"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
