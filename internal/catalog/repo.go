// Package catalog is the read-only lookup surface the booking engine consumes.
// Resource and item CRUD belongs to the surrounding catalog management system;
// the engine only ever reads status, prices and variant fields from here.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// Repository exposes the narrow catalog contract.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	GetResourceForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Resource, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListInventoryItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
	}
	return &resource, nil
}

// GetResourceForUpdate loads the resource under a row lock. The lock is what
// serializes concurrent check-then-act booking sequences on one resource, so
// it must run inside the booking transaction.
func (r *repository) GetResourceForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Resource, error) {
	if tx == nil {
		tx = r.db
	}
	var resource models.Resource
	err := db.ForUpdate(tx.WithContext(ctx)).
		First(&resource, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock resource")
	}
	return &resource, nil
}

func (r *repository) GetInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return &item, nil
}

func (r *repository) ListInventoryItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}
