package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/enums"
)

// Reservation books one resource for one customer over a half-open interval
// [StartsAt, EndsAt). Cancellation is a state change, never a delete.
type Reservation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResourceID uuid.UUID               `gorm:"column:resource_id;type:uuid;not null;index"`
	CustomerID uuid.UUID               `gorm:"column:customer_id;type:uuid;not null;index"`
	PackageID  *uuid.UUID              `gorm:"column:package_id;type:uuid;index"`
	StartsAt   time.Time               `gorm:"column:starts_at;not null;index"`
	EndsAt     time.Time               `gorm:"column:ends_at;not null;index"`
	Status     enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	BasePrice  decimal.Decimal         `gorm:"column:base_price;type:numeric(12,2);not null"`
	ItemsPrice decimal.Decimal         `gorm:"column:items_price;type:numeric(12,2);not null;default:0"`
	TotalPrice decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null"`
	Notes      *string                 `gorm:"column:notes"`
	Items      []ItemReservation       `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Overlaps applies the half-open conflict rule against another interval.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartsAt.Before(end) && start.Before(r.EndsAt)
}
