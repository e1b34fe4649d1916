package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jortega-dev/riverside-backend/pkg/enums"
)

// MovementRecord is an immutable audit entry for a stock quantity change.
// Rows are only ever appended; nothing in the codebase updates or deletes them.
type MovementRecord struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID          `gorm:"column:item_id;type:uuid;not null;index"`
	Kind          enums.MovementKind `gorm:"column:kind;type:text;not null"`
	Qty           int                `gorm:"column:qty;not null"`
	StockBefore   int                `gorm:"column:stock_before;not null"`
	StockAfter    int                `gorm:"column:stock_after;not null"`
	ReservationID *uuid.UUID         `gorm:"column:reservation_id;type:uuid"`
	ActorID       *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	Note          *string            `gorm:"column:note"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime;index"`
}
