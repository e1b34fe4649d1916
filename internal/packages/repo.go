package packages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// Repository persists package rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pkg *models.Package) error
	Get(ctx context.Context, id uuid.UUID) (*models.Package, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Package, error)
	UpdateTotals(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PackageStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a package repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pkg *models.Package) error {
	if err := r.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package")
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.Items").
		First(&pkg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	return &pkg, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Package, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var pkgs []models.Package
	if err := query.Find(&pkgs).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer packages")
	}
	return pkgs, nil
}

func (r *repository) UpdateTotals(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package totals")
	}
	return nil
}

// UpdateStatus flips the package status only from the expected source state.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PackageStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update package status")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "package state changed concurrently")
	}
	return nil
}
