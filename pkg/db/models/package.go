package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/enums"
)

// Package groups one lodging and/or several service reservations under one
// customer with aggregate pricing. Final = Total - Discount.
type Package struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Name       string              `gorm:"column:name;not null"`
	Status     enums.PackageStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StartsAt   time.Time           `gorm:"column:starts_at;not null"`
	EndsAt     time.Time           `gorm:"column:ends_at;not null"`
	Total      decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Discount   decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Final      decimal.Decimal     `gorm:"column:final;type:numeric(12,2);not null;default:0"`
	Notes      *string             `gorm:"column:notes"`
	Members    []Reservation       `gorm:"foreignKey:PackageID"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
