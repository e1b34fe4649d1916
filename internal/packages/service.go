// Package packages composes a lodging stay and/or several timed services
// into one atomic booking with aggregate pricing. Members are real
// reservations created through the reservation engine inside the package
// transaction, so a failing member rolls back the lot.
package packages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/payments"
	"github.com/jortega-dev/riverside-backend/internal/pricing"
	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// MemberSpec is one resource booking inside a package.
type MemberSpec struct {
	ResourceID uuid.UUID
	StartsAt   time.Time
	EndsAt     time.Time
	Lines      []inventory.LineRequest
}

// CreateInput describes a package request. At least one member is required.
type CreateInput struct {
	CustomerID uuid.UUID
	Name       string
	Lodging    *MemberSpec
	Services   []MemberSpec
	Notes      *string
}

// Quote is the package-discount preview returned by QuoteDiscount.
type Quote struct {
	Total      decimal.Decimal
	Percent    decimal.Decimal
	Discount   decimal.Decimal
	Final      decimal.Decimal
	StayDays   int
	ServiceCnt int
}

// Service is the package orchestrator.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Package, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Package, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Package, error)
	Confirm(ctx context.Context, id uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod, externalRef *string) (*models.Package, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.Package, error)
	QuoteDiscount(ctx context.Context, id uuid.UUID) (*Quote, error)
	ApplyDiscount(ctx context.Context, id uuid.UUID) (*models.Package, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo         Repository
	reservations reservations.Service
	payments     payments.Service
	catalogRepo  catalog.Repository
	db           txRunner
}

// NewService wires the package orchestrator.
func NewService(repo Repository, reservationsSvc reservations.Service, paymentsSvc payments.Service, catalogRepo catalog.Repository, db txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("package repository required")
	}
	if reservationsSvc == nil {
		return nil, fmt.Errorf("reservations service required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:         repo,
		reservations: reservationsSvc,
		payments:     paymentsSvc,
		catalogRepo:  catalogRepo,
		db:           db,
	}, nil
}

// Create books every member in one transaction. The package total is the sum
// of member totals; no discount is applied at creation, so final == total
// until an operator runs ApplyDiscount.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Package, error) {
	members := make([]MemberSpec, 0, len(input.Services)+1)
	if input.Lodging != nil {
		members = append(members, *input.Lodging)
	}
	members = append(members, input.Services...)
	if len(members) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package requires at least one lodging or service member")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package name required")
	}

	startsAt, endsAt := members[0].StartsAt, members[0].EndsAt
	for _, m := range members[1:] {
		if m.StartsAt.Before(startsAt) {
			startsAt = m.StartsAt
		}
		if m.EndsAt.After(endsAt) {
			endsAt = m.EndsAt
		}
	}

	var created *models.Package
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		pkg := &models.Package{
			ID:         uuid.New(),
			CustomerID: input.CustomerID,
			Name:       input.Name,
			Status:     enums.PackageStatusPending,
			StartsAt:   startsAt,
			EndsAt:     endsAt,
			Total:      decimal.Zero,
			Discount:   decimal.Zero,
			Final:      decimal.Zero,
			Notes:      input.Notes,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, pkg); err != nil {
			return err
		}

		total := decimal.Zero
		for _, member := range members {
			reservation, err := s.reservations.CreateInTx(ctx, tx, reservations.CreateInput{
				ResourceID: member.ResourceID,
				CustomerID: input.CustomerID,
				PackageID:  &pkg.ID,
				StartsAt:   member.StartsAt,
				EndsAt:     member.EndsAt,
				Lines:      member.Lines,
			})
			if err != nil {
				return err
			}
			total = total.Add(reservation.TotalPrice)
			pkg.Members = append(pkg.Members, *reservation)
		}

		pkg.Total = total
		pkg.Final = total
		if err := repo.UpdateTotals(ctx, pkg.ID, map[string]any{
			"total": total,
			"final": total,
		}); err != nil {
			return err
		}
		created = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Package, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit)
}

// Confirm records one payment for the whole package and confirms every
// member. Validation runs over all members before anything is written: a
// single member that cannot legally reach confirmed fails the operation with
// no mutation at all.
func (s *service) Confirm(ctx context.Context, id uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod, externalRef *string) (*models.Package, error) {
	var confirmed *models.Package
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pkg, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if pkg.Status != enums.PackageStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("package in state %s cannot be confirmed", pkg.Status))
		}
		if !amount.Equal(pkg.Final) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule,
				fmt.Sprintf("payment amount %s does not match package final %s",
					amount.StringFixed(2), pkg.Final.StringFixed(2)))
		}

		for _, member := range pkg.Members {
			if member.Status == enums.ReservationStatusConfirmed {
				continue
			}
			if !reservations.CanTransition(member.Status, enums.ReservationStatusConfirmed) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("member reservation %s in state %s cannot be confirmed", member.ID, member.Status))
			}
		}

		if _, err := s.payments.Record(ctx, tx, payments.RecordInput{
			PackageID:   &pkg.ID,
			Amount:      amount,
			Method:      method,
			ExternalRef: externalRef,
		}); err != nil {
			return err
		}
		for i := range pkg.Members {
			member := &pkg.Members[i]
			if member.Status == enums.ReservationStatusConfirmed {
				continue
			}
			if err := s.reservations.TransitionInTx(ctx, tx, member, enums.ReservationStatusConfirmed, nil); err != nil {
				return err
			}
		}
		if err := repo.UpdateStatus(ctx, pkg.ID, enums.PackageStatusPending, enums.PackageStatusConfirmed); err != nil {
			return err
		}
		pkg.Status = enums.PackageStatusConfirmed
		confirmed = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Cancel cascades cancellation to every non-terminal member and cancels the
// package itself. Members already completed or cancelled are left alone.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.Package, error) {
	var cancelled *models.Package
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pkg, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if pkg.Status == enums.PackageStatusCancelled || pkg.Status == enums.PackageStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("package is already %s", pkg.Status))
		}

		for i := range pkg.Members {
			member := &pkg.Members[i]
			if member.Status.IsTerminal() {
				continue
			}
			if err := s.reservations.TransitionInTx(ctx, tx, member, enums.ReservationStatusCancelled, actorID); err != nil {
				return err
			}
		}
		if err := repo.UpdateStatus(ctx, pkg.ID, pkg.Status, enums.PackageStatusCancelled); err != nil {
			return err
		}
		pkg.Status = enums.PackageStatusCancelled
		cancelled = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// QuoteDiscount previews the package discount without persisting anything.
func (s *service) QuoteDiscount(ctx context.Context, id uuid.UUID) (*Quote, error) {
	pkg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	serviceCount, stayDays, err := s.composition(ctx, pkg)
	if err != nil {
		return nil, err
	}
	percent := pricing.PackageDiscountPercent(serviceCount, stayDays)
	discount := pricing.PackageDiscount(pkg.Total, serviceCount, stayDays)
	return &Quote{
		Total:      pkg.Total,
		Percent:    percent,
		Discount:   discount,
		Final:      pkg.Total.Sub(discount),
		StayDays:   stayDays,
		ServiceCnt: serviceCount,
	}, nil
}

// ApplyDiscount persists the quoted discount. It is only legal while the
// package is still pending; confirmation validated against the old final
// would otherwise silently change the amount owed.
func (s *service) ApplyDiscount(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var updated *models.Package
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pkg, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if pkg.Status != enums.PackageStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("discount cannot be applied to a %s package", pkg.Status))
		}
		serviceCount, stayDays, err := s.composition(ctx, pkg)
		if err != nil {
			return err
		}
		discount := pricing.PackageDiscount(pkg.Total, serviceCount, stayDays)
		final := pkg.Total.Sub(discount)
		if err := repo.UpdateTotals(ctx, pkg.ID, map[string]any{
			"discount": discount,
			"final":    final,
		}); err != nil {
			return err
		}
		pkg.Discount = discount
		pkg.Final = final
		updated = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// composition derives the discount inputs from the members: how many timed
// services the package holds and how long the lodging stay runs.
func (s *service) composition(ctx context.Context, pkg *models.Package) (serviceCount, stayDays int, err error) {
	for _, member := range pkg.Members {
		resource, rerr := s.catalogRepo.GetResource(ctx, member.ResourceID)
		if rerr != nil {
			return 0, 0, rerr
		}
		switch resource.Kind {
		case enums.ResourceKindService:
			serviceCount++
		case enums.ResourceKindLodging:
			days := int(member.EndsAt.Sub(member.StartsAt).Hours() / 24)
			if days > stayDays {
				stayDays = days
			}
		}
	}
	return serviceCount, stayDays, nil
}
