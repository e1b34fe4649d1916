// Package reservations owns the booking lifecycle: creation inside one
// locked transaction, the transition table, and payment confirmation.
package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/availability"
	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/payments"
	"github.com/jortega-dev/riverside-backend/internal/pricing"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// CreateInput is a booking request for one resource.
type CreateInput struct {
	ResourceID uuid.UUID
	CustomerID uuid.UUID
	PackageID  *uuid.UUID
	StartsAt   time.Time
	EndsAt     time.Time
	Lines      []inventory.LineRequest
	Notes      *string
}

// Service drives a reservation through its lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reservation, error)
	CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, statuses []enums.ReservationStatus, limit int) ([]models.Reservation, error)
	Transition(ctx context.Context, id uuid.UUID, target enums.ReservationStatus, actorID *uuid.UUID) (*models.Reservation, error)
	TransitionInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, target enums.ReservationStatus, actorID *uuid.UUID) error
	ConfirmWithPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod, externalRef *string) (*models.Reservation, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo         Repository
	catalogRepo  catalog.Repository
	availability availability.Service
	inventory    inventory.Service
	payments     payments.Service
	db           txRunner
	booking      config.BookingConfig
	now          func() time.Time
}

// NewService wires the reservation state machine.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	availabilitySvc availability.Service,
	inventorySvc inventory.Service,
	paymentsSvc payments.Service,
	db txRunner,
	booking config.BookingConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if availabilitySvc == nil {
		return nil, fmt.Errorf("availability service required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:         repo,
		catalogRepo:  catalogRepo,
		availability: availabilitySvc,
		inventory:    inventorySvc,
		payments:     paymentsSvc,
		db:           db,
		booking:      booking,
		now:          time.Now,
	}, nil
}

// Create books the resource in one transaction: resource row lock first, then
// availability check, stock reservation, pricing, block commit. Serialization
// conflicts retry once before surfacing.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reservation, error) {
	var reservation *models.Reservation
	attempt := func() error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			created, err := s.CreateInTx(ctx, tx, input)
			if err != nil {
				return err
			}
			reservation = created
			return nil
		})
	}

	err := attempt()
	for retries := 0; err != nil && retries < s.booking.ConflictRetries && pkgerrors.IsSerializationFailure(err); retries++ {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// CreateInTx runs the booking sequence inside the caller's transaction. The
// package orchestrator uses this to make all members share one atomic unit.
func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Reservation, error) {
	if err := s.validateInterval(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}

	resource, err := s.catalogRepo.GetResourceForUpdate(ctx, tx, input.ResourceID)
	if err != nil {
		return nil, err
	}

	free, err := s.checkAvailable(ctx, tx, resource, input.StartsAt, input.EndsAt)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "resource is not available for the requested interval")
	}

	basePrice, err := s.basePrice(resource, input.StartsAt, input.EndsAt)
	if err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		ID:         uuid.New(),
		ResourceID: input.ResourceID,
		CustomerID: input.CustomerID,
		PackageID:  input.PackageID,
		StartsAt:   input.StartsAt,
		EndsAt:     input.EndsAt,
		Status:     enums.ReservationStatusPending,
		BasePrice:  basePrice,
		ItemsPrice: decimal.Zero,
		TotalPrice: basePrice,
		Notes:      input.Notes,
	}
	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, reservation); err != nil {
		return nil, err
	}

	if len(input.Lines) > 0 {
		lines, err := s.inventory.Reserve(ctx, tx, reservation.ID, input.StartsAt, input.EndsAt, input.Lines, nil)
		if err != nil {
			return nil, err
		}
		itemsPrice := decimal.Zero
		for _, line := range lines {
			itemsPrice = itemsPrice.Add(line.Subtotal)
		}
		reservation.Items = lines
		reservation.ItemsPrice = itemsPrice
		reservation.TotalPrice = basePrice.Add(itemsPrice).Round(2)
		if err := tx.WithContext(ctx).Model(&models.Reservation{}).
			Where("id = ?", reservation.ID).
			Updates(map[string]any{
				"items_price": reservation.ItemsPrice,
				"total_price": reservation.TotalPrice,
			}).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation prices")
		}
	}

	if err := s.availability.Commit(ctx, tx, resource, input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, statuses []enums.ReservationStatus, limit int) ([]models.Reservation, error) {
	return s.repo.ListByCustomer(ctx, customerID, statuses, limit)
}

// Transition moves the reservation to target, applying the release side
// effects for terminal targets inside one transaction.
func (s *service) Transition(ctx context.Context, id uuid.UUID, target enums.ReservationStatus, actorID *uuid.UUID) (*models.Reservation, error) {
	var updated *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		reservation, err := s.repo.WithTx(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.TransitionInTx(ctx, tx, reservation, target, actorID); err != nil {
			return err
		}
		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionInTx validates the edge and applies side effects within the
// caller's transaction. The reservation struct is mutated to the new status.
func (s *service) TransitionInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, target enums.ReservationStatus, actorID *uuid.UUID) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown reservation status %q", target))
	}
	if reservation.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("reservation is %s, a terminal state", reservation.Status))
	}
	if !CanTransition(reservation.Status, target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition reservation from %s to %s", reservation.Status, target))
	}

	// Side effects run before the flip so the inventory ledger records stock
	// levels while the reservation still holds its quantity.
	switch target {
	case enums.ReservationStatusCancelled:
		if err := s.inventory.Release(ctx, tx, reservation.ID, actorID); err != nil {
			return err
		}
		resource, err := s.catalogRepo.WithTx(tx).GetResource(ctx, reservation.ResourceID)
		if err != nil {
			return err
		}
		if err := s.availability.Release(ctx, tx, resource, reservation.StartsAt, reservation.EndsAt); err != nil {
			return err
		}
	case enums.ReservationStatusCompleted:
		// Lines are released; the block stays closed, the slot was consumed.
		if err := s.inventory.Release(ctx, tx, reservation.ID, actorID); err != nil {
			return err
		}
	}

	if err := s.repo.WithTx(tx).UpdateStatus(ctx, reservation.ID, reservation.Status, target); err != nil {
		return err
	}
	reservation.Status = target
	return nil
}

// ConfirmWithPayment validates exact amount equality, records the payment and
// confirms the reservation in one transaction.
func (s *service) ConfirmWithPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod, externalRef *string) (*models.Reservation, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}

	var updated *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		switch reservation.Status {
		case enums.ReservationStatusPending, enums.ReservationStatusAwaitingPayment:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("reservation in state %s cannot be confirmed with payment", reservation.Status))
		}
		if !amount.Equal(reservation.TotalPrice) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule,
				fmt.Sprintf("payment amount %s does not match reservation total %s",
					amount.StringFixed(2), reservation.TotalPrice.StringFixed(2)))
		}

		if _, err := s.payments.Record(ctx, tx, payments.RecordInput{
			ReservationID: &reservation.ID,
			Amount:        amount,
			Method:        method,
			ExternalRef:   externalRef,
		}); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, reservation.Status, enums.ReservationStatusConfirmed); err != nil {
			return err
		}
		reservation.Status = enums.ReservationStatusConfirmed
		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if !start.Before(end) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start must be before end")
	}
	now := s.now()
	if end.Before(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "interval is entirely in the past")
	}
	if s.booking.MaxAdvanceDays > 0 {
		horizon := now.AddDate(0, 0, s.booking.MaxAdvanceDays)
		if start.After(horizon) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("start exceeds the %d-day booking horizon", s.booking.MaxAdvanceDays))
		}
	}
	return nil
}

func (s *service) checkAvailable(ctx context.Context, tx *gorm.DB, resource *models.Resource, start, end time.Time) (bool, error) {
	switch resource.Kind {
	case enums.ResourceKindLodging:
		return s.availability.CheckLodgingAvailable(ctx, tx, resource.ID, start, end)
	case enums.ResourceKindService:
		// A midnight end would map to clock 00:00 and compare before every
		// slot; operating hours cannot reach 24:00 either, so reject it.
		if clockOf(end).Minutes() == 0 {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "service bookings must end before midnight")
		}
		if !start.UTC().Truncate(24 * time.Hour).Equal(end.UTC().Truncate(24 * time.Hour)) {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "service bookings must start and end on the same day")
		}
		return s.availability.CheckServiceAvailable(ctx, tx, resource.ID, start, clockOf(start), clockOf(end))
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resource kind %q", resource.Kind))
	}
}

func (s *service) basePrice(resource *models.Resource, start, end time.Time) (decimal.Decimal, error) {
	switch resource.Kind {
	case enums.ResourceKindLodging:
		nights := int(end.Sub(start).Hours() / 24)
		if nights < 1 {
			nights = 1
		}
		return pricing.LodgingPrice(resource.UnitPrice, nights), nil
	case enums.ResourceKindService:
		minutes := int(end.Sub(start).Minutes())
		blockMinutes := minutes
		if resource.BlockMinutes != nil && *resource.BlockMinutes > 0 {
			blockMinutes = *resource.BlockMinutes
		}
		blocks := minutes / blockMinutes
		if minutes%blockMinutes != 0 {
			blocks++
		}
		if blocks < 1 {
			blocks = 1
		}
		return pricing.ServicePrice(resource.UnitPrice, blocks), nil
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resource kind %q", resource.Kind))
	}
}

func clockOf(t time.Time) types.TimeOfDay {
	return types.FromMinutes(t.UTC().Hour()*60 + t.UTC().Minute())
}
