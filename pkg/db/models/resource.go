package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/enums"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// Resource is a bookable entity. The kind column discriminates the two
// variants: lodging units carry capacity/rooms, timed services carry the
// block duration and operating hours. Variant fields are nullable and only
// meaningful for their own kind.
type Resource struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      enums.ResourceKind   `gorm:"column:kind;type:text;not null"`
	Name      string               `gorm:"column:name;not null"`
	Status    enums.ResourceStatus `gorm:"column:status;type:text;not null;default:'available'"`
	UnitPrice decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`

	// Lodging fields.
	Capacity *int `gorm:"column:capacity"`
	Rooms    *int `gorm:"column:rooms"`

	// Timed-service fields.
	BlockMinutes *int             `gorm:"column:block_minutes"`
	OpensAt      *types.TimeOfDay `gorm:"column:opens_at;type:text"`
	ClosesAt     *types.TimeOfDay `gorm:"column:closes_at;type:text"`

	Items     []InventoryItem `gorm:"foreignKey:ResourceID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsBookable reports whether new bookings may target the resource at all.
// MAINTENANCE only suspends new lodging date generation, OUT_OF_SERVICE
// rejects everything.
func (r Resource) IsBookable() bool {
	return r.Status != enums.ResourceStatusOutOfService
}
