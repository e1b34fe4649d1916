package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// AvailabilityBlock records whether a resource may be booked on a date.
// Lodging uses one row per calendar date (StartsAt/EndsAt nil); timed services
// use one row per generated slot. Rows are created on first touch and toggled
// afterwards, never deleted, so the history of blackout reasons survives.
type AvailabilityBlock struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResourceID   uuid.UUID        `gorm:"column:resource_id;type:uuid;not null;uniqueIndex:idx_blocks_resource_slot"`
	Date         time.Time        `gorm:"column:date;type:date;not null;uniqueIndex:idx_blocks_resource_slot"`
	StartsAt     *types.TimeOfDay `gorm:"column:starts_at;type:text;uniqueIndex:idx_blocks_resource_slot"`
	EndsAt       *types.TimeOfDay `gorm:"column:ends_at;type:text"`
	Available    bool             `gorm:"column:available;not null;default:true"`
	Reason       string           `gorm:"column:reason"`
	SpecialPrice *decimal.Decimal `gorm:"column:special_price;type:numeric(12,2)"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
