package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// Repository persists item stock, reservation lines and the movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetItemForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	SumActiveReservedQty(ctx context.Context, itemID uuid.UUID) (int, error)
	SumReservedQtyOverlapping(ctx context.Context, itemID uuid.UUID, start, end time.Time) (int, error)
	UpdateItemQuantities(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	CreateLine(ctx context.Context, line *models.ItemReservation) error
	ListLinesByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.ItemReservation, error)
	CreateMovement(ctx context.Context, record *models.MovementRecord) error
	ListMovements(ctx context.Context, itemID uuid.UUID, since *time.Time, limit int) ([]models.MovementRecord, error)
	ListReservableItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error)
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	ListItemsMovedSince(ctx context.Context, since time.Time) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return &item, nil
}

// GetItemForUpdate locks the item row for the rest of the transaction. All
// stock mutations go through this lock so concurrent reservations for the
// same item serialize instead of double-spending quantity.
func (r *repository) GetItemForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
	}
	return &item, nil
}

// SumActiveReservedQty computes the committed quantity: lines of every
// reservation still holding stock, regardless of window. This is the sum the
// ledger and the cached available_qty column track; it changes only when a
// movement is written, which is what lets the audit compare the two.
func (r *repository) SumActiveReservedQty(ctx context.Context, itemID uuid.UUID) (int, error) {
	var reserved int64
	err := r.db.WithContext(ctx).
		Model(&models.ItemReservation{}).
		Select("COALESCE(SUM(item_reservations.qty), 0)").
		Joins("JOIN reservations ON reservations.id = item_reservations.reservation_id").
		Where("item_reservations.item_id = ? AND reservations.status IN ?", itemID, enums.ActiveReservationStatuses).
		Scan(&reserved).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved quantity")
	}
	return int(reserved), nil
}

// SumReservedQtyOverlapping computes the reserved quantity inside one booking
// window: lines whose parent reservation is active AND overlaps [start, end)
// under the half-open rule. Booking decisions use this sum, so quantity held
// for one window never blocks a disjoint one.
func (r *repository) SumReservedQtyOverlapping(ctx context.Context, itemID uuid.UUID, start, end time.Time) (int, error) {
	var reserved int64
	err := r.db.WithContext(ctx).
		Model(&models.ItemReservation{}).
		Select("COALESCE(SUM(item_reservations.qty), 0)").
		Joins("JOIN reservations ON reservations.id = item_reservations.reservation_id").
		Where("item_reservations.item_id = ? AND reservations.status IN ?", itemID, enums.ActiveReservationStatuses).
		Where("reservations.starts_at < ? AND reservations.ends_at > ?", end, start).
		Scan(&reserved).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved quantity for window")
	}
	return int(reserved), nil
}

func (r *repository) UpdateItemQuantities(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory quantities")
	}
	return nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.ItemReservation) error {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item reservation line")
	}
	return nil
}

func (r *repository) ListLinesByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.ItemReservation, error) {
	var lines []models.ItemReservation
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Find(&lines).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservation lines")
	}
	return lines, nil
}

func (r *repository) CreateMovement(ctx context.Context, record *models.MovementRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append movement record")
	}
	return nil
}

func (r *repository) ListMovements(ctx context.Context, itemID uuid.UUID, since *time.Time, limit int) ([]models.MovementRecord, error) {
	query := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC")
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.MovementRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movement records")
	}
	return records, nil
}

func (r *repository) ListReservableItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND reservable = ?", resourceID, true).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservable items")
	}
	return items, nil
}

func (r *repository) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}

// ListItemsMovedSince returns items that appear in the movement ledger on or
// after the cutoff, for audits scoped to recent stock activity.
func (r *repository) ListItemsMovedSince(ctx context.Context, since time.Time) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.
			Model(&models.MovementRecord{}).
			Select("DISTINCT item_id").
			Where("created_at >= ?", since)).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recently moved items")
	}
	return items, nil
}
