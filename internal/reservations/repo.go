package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// Repository persists reservations and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, statuses []enums.ReservationStatus, limit int) ([]models.Reservation, error)
	ListByPackage(ctx context.Context, packageID uuid.UUID) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) error
	ListEndedHoldingStock(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	ListStartedConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&reservation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return &reservation, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, statuses []enums.ReservationStatus, limit int) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("starts_at DESC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer reservations")
	}
	return reservations, nil
}

func (r *repository) ListByPackage(ctx context.Context, packageID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("starts_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list package reservations")
	}
	return reservations, nil
}

// UpdateStatus flips the reservation status only when the row is still in the
// expected source state. A zero-row update means someone moved it first; that
// surfaces as a state conflict for the caller to handle.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update reservation status")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation state changed concurrently")
	}
	return nil
}

// ListEndedHoldingStock feeds the completion sweep: reservations still
// holding stock whose interval has fully elapsed.
func (r *repository) ListEndedHoldingStock(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ? AND ends_at <= ?", enums.BlockingReservationStatuses, now).
		Order("ends_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ended reservations")
	}
	return reservations, nil
}

// ListStartedConfirmed feeds the activation sweep: confirmed reservations
// whose stay has started but not ended.
func (r *repository) ListStartedConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND starts_at <= ? AND ends_at > ?", enums.ReservationStatusConfirmed, now, now).
		Order("starts_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list started reservations")
	}
	return reservations, nil
}
