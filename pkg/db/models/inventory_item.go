package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is auxiliary equipment attached to a resource. TotalQty only
// changes through manual movements; AvailableQty is a read cache refreshed in
// the same transaction that mutates reservations. The source of truth for
// availability is the live sum over active item reservations.
type InventoryItem struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResourceID           uuid.UUID       `gorm:"column:resource_id;type:uuid;not null;index"`
	Name                 string          `gorm:"column:name;not null"`
	Category             string          `gorm:"column:category"`
	TotalQty             int             `gorm:"column:total_qty;not null;default:0"`
	AvailableQty         int             `gorm:"column:available_qty;not null;default:0"`
	Reservable           bool            `gorm:"column:reservable;not null;default:true"`
	UnitReservationPrice decimal.Decimal `gorm:"column:unit_reservation_price;type:numeric(12,2);not null;default:0"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
