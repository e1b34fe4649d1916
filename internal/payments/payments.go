// Package payments persists payment records. The engine validates amounts
// and methods but never talks to a processor; the external reference is
// whatever the gateway integration hands us.
package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// RecordInput describes one payment against a reservation or a package.
// Exactly one of ReservationID/PackageID should be set.
type RecordInput struct {
	ReservationID *uuid.UUID
	PackageID     *uuid.UUID
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
	ExternalRef   *string
}

// Service records and lists payments.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.Payment, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.Payment, error)
	ListByPackage(ctx context.Context, packageID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	db *gorm.DB
}

// NewService wires the payment recorder.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &service{db: db}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.Payment, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if (input.ReservationID == nil) == (input.PackageID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment must target exactly one reservation or package")
	}

	conn := s.db
	if tx != nil {
		conn = tx
	}
	payment := &models.Payment{
		ID:            uuid.New(),
		ReservationID: input.ReservationID,
		PackageID:     input.PackageID,
		Amount:        input.Amount,
		Method:        input.Method,
		ExternalRef:   input.ExternalRef,
	}
	if err := conn.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	return payment, nil
}

func (s *service) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservation payments")
	}
	return payments, nil
}

func (s *service) ListByPackage(ctx context.Context, packageID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list package payments")
	}
	return payments, nil
}
