package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// Repository manages availability block rows and the overlap queries that
// back the conflict checks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]models.AvailabilityBlock, error)
	FindUnavailableInDateRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]models.AvailabilityBlock, error)
	FindUnavailableInClockRange(ctx context.Context, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) ([]models.AvailabilityBlock, error)
	FindBlock(ctx context.Context, resourceID uuid.UUID, date time.Time, start *types.TimeOfDay) (*models.AvailabilityBlock, error)
	Create(ctx context.Context, block *models.AvailabilityBlock) error
	Update(ctx context.Context, blockID uuid.UUID, updates map[string]any) error
	ReleaseReservedInDateRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time) error
	ReleaseReservedInClockRange(ctx context.Context, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) error
	CountOverlappingReservations(ctx context.Context, resourceID uuid.UUID, start, end time.Time, statuses []enums.ReservationStatus, excludeID *uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an availability repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]models.AvailabilityBlock, error) {
	var blocks []models.AvailabilityBlock
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND date = ?", resourceID, dateOnly(date)).
		Order("starts_at ASC").
		Find(&blocks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list availability blocks")
	}
	return blocks, nil
}

// FindUnavailableInDateRange returns closed lodging day-blocks with dates in
// [from, to). Slot rows (starts_at set) are ignored here.
func (r *repository) FindUnavailableInDateRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]models.AvailabilityBlock, error) {
	var blocks []models.AvailabilityBlock
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND starts_at IS NULL AND available = ? AND date >= ? AND date < ?",
			resourceID, false, dateOnly(from), dateOnly(to)).
		Find(&blocks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find unavailable day blocks")
	}
	return blocks, nil
}

// FindUnavailableInClockRange returns closed service slots on date whose
// [starts_at, ends_at) range intersects [start, end).
func (r *repository) FindUnavailableInClockRange(ctx context.Context, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) ([]models.AvailabilityBlock, error) {
	var blocks []models.AvailabilityBlock
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND date = ? AND starts_at IS NOT NULL AND available = ? AND starts_at < ? AND ends_at > ?",
			resourceID, dateOnly(date), false, string(end), string(start)).
		Find(&blocks).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find unavailable slots")
	}
	return blocks, nil
}

func (r *repository) FindBlock(ctx context.Context, resourceID uuid.UUID, date time.Time, start *types.TimeOfDay) (*models.AvailabilityBlock, error) {
	query := r.db.WithContext(ctx).
		Where("resource_id = ? AND date = ?", resourceID, dateOnly(date))
	if start == nil {
		query = query.Where("starts_at IS NULL")
	} else {
		query = query.Where("starts_at = ?", string(*start))
	}
	var block models.AvailabilityBlock
	if err := query.First(&block).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find availability block")
	}
	return &block, nil
}

func (r *repository) Create(ctx context.Context, block *models.AvailabilityBlock) error {
	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create availability block")
	}
	return nil
}

func (r *repository) Update(ctx context.Context, blockID uuid.UUID, updates map[string]any) error {
	if err := r.db.WithContext(ctx).
		Model(&models.AvailabilityBlock{}).
		Where("id = ?", blockID).
		Updates(updates).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability block")
	}
	return nil
}

// ReleaseReservedInDateRange reopens lodging day-blocks in [from, to) whose
// reason is exactly the reserved marker. Manual blackouts keep their rows.
func (r *repository) ReleaseReservedInDateRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.AvailabilityBlock{}).
		Where("resource_id = ? AND starts_at IS NULL AND reason = ? AND date >= ? AND date < ?",
			resourceID, enums.BlockReasonReserved, dateOnly(from), dateOnly(to)).
		Updates(map[string]any{"available": true, "reason": ""}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release day blocks")
	}
	return nil
}

func (r *repository) ReleaseReservedInClockRange(ctx context.Context, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) error {
	if err := r.db.WithContext(ctx).
		Model(&models.AvailabilityBlock{}).
		Where("resource_id = ? AND date = ? AND starts_at IS NOT NULL AND reason = ? AND starts_at < ? AND ends_at > ?",
			resourceID, dateOnly(date), enums.BlockReasonReserved, string(end), string(start)).
		Updates(map[string]any{"available": true, "reason": ""}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release slots")
	}
	return nil
}

func (r *repository) CountOverlappingReservations(ctx context.Context, resourceID uuid.UUID, start, end time.Time, statuses []enums.ReservationStatus, excludeID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("resource_id = ? AND status IN ? AND starts_at < ? AND ends_at > ?",
			resourceID, statuses, end, start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overlapping reservations")
	}
	return count, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
