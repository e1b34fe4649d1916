// Package inventory holds equipment stock. Reserving and releasing quantity
// happens inside the caller's booking transaction; every quantity change, no
// matter the origin, appends an entry to the movement ledger with the stock
// level before and after.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
)

// LineRequest asks for a quantity of one item on a reservation.
type LineRequest struct {
	ItemID uuid.UUID
	Qty    int
}

// Service is the stock engine consumed by the reservation and package flows.
type Service interface {
	CheckAvailability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, start, end time.Time) (bool, int, error)
	Reserve(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, start, end time.Time, requests []LineRequest, actorID *uuid.UUID) ([]models.ItemReservation, error)
	Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, actorID *uuid.UUID) error
	RecordMovement(ctx context.Context, itemID uuid.UUID, kind enums.MovementKind, qty int, actorID *uuid.UUID, note *string) (*models.MovementRecord, error)
	RecomputeAvailability(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	ListMovements(ctx context.Context, itemID uuid.UUID, since *time.Time, limit int) ([]models.MovementRecord, error)
	ListReservableItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	db   txRunner
}

// NewService wires the stock engine.
func NewService(repo Repository, db txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, db: db}, nil
}

// CheckAvailability reports whether qty units are free for the [start, end)
// window, plus the live available count inside that window. The cached column
// is ignored here on purpose.
func (s *service) CheckAvailability(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, start, end time.Time) (bool, int, error) {
	if qty <= 0 {
		return false, 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := validateWindow(start, end); err != nil {
		return false, 0, err
	}
	repo := s.repo.WithTx(tx)
	item, err := repo.GetItem(ctx, itemID)
	if err != nil {
		return false, 0, err
	}
	if !item.Reservable {
		return false, 0, nil
	}
	reserved, err := repo.SumReservedQtyOverlapping(ctx, itemID, start, end)
	if err != nil {
		return false, 0, err
	}
	available := item.TotalQty - reserved
	return qty <= available, available, nil
}

// Reserve creates price-locked lines for the reservation and appends one OUT
// ledger entry per line. Item rows are locked first so the live sum cannot be
// invalidated by a concurrent booking. The shortage check is scoped to the
// booking window; quantity held for a disjoint window stays bookable. Any
// shortage fails the whole request; the caller's transaction rolls back
// whatever was already written.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, start, end time.Time, requests []LineRequest, actorID *uuid.UUID) ([]models.ItemReservation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserve requires a transaction")
	}
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	lines := make([]models.ItemReservation, 0, len(requests))

	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		item, err := repo.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.Reservable {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("item %q is not reservable", item.Name))
		}
		windowReserved, err := repo.SumReservedQtyOverlapping(ctx, req.ItemID, start, end)
		if err != nil {
			return nil, err
		}
		if req.Qty > item.TotalQty-windowReserved {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("item %q has %d available in the requested window, %d requested",
					item.Name, item.TotalQty-windowReserved, req.Qty))
		}
		// The ledger and cache track committed quantity across all windows,
		// separate from the window-scoped booking decision above.
		reserved, err := repo.SumActiveReservedQty(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		available := item.TotalQty - reserved

		line := models.ItemReservation{
			ID:            uuid.New(),
			ReservationID: reservationID,
			ItemID:        req.ItemID,
			Qty:           req.Qty,
			UnitPrice:     item.UnitReservationPrice,
			Subtotal:      item.UnitReservationPrice.Mul(decimal.NewFromInt(int64(req.Qty))).Round(2),
		}
		if err := repo.CreateLine(ctx, &line); err != nil {
			return nil, err
		}

		stockBefore := available
		stockAfter := available - req.Qty
		if err := repo.CreateMovement(ctx, &models.MovementRecord{
			ID:            uuid.New(),
			ItemID:        req.ItemID,
			Kind:          enums.MovementKindOut,
			Qty:           req.Qty,
			StockBefore:   stockBefore,
			StockAfter:    stockAfter,
			ReservationID: &reservationID,
			ActorID:       actorID,
		}); err != nil {
			return nil, err
		}
		if err := repo.UpdateItemQuantities(ctx, req.ItemID, map[string]any{"available_qty": stockAfter}); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Release appends RETURN entries for every line of the reservation and
// refreshes the cache. It must run before the caller flips the reservation
// status: the flip is what frees the quantity in the live sum, and the ledger
// entries record the stock levels around that flip.
func (s *service) Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, actorID *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "release requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	lines, err := repo.ListLinesByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		item, err := repo.GetItemForUpdate(ctx, line.ItemID)
		if err != nil {
			return err
		}
		reserved, err := repo.SumActiveReservedQty(ctx, line.ItemID)
		if err != nil {
			return err
		}
		available := item.TotalQty - reserved
		if err := repo.CreateMovement(ctx, &models.MovementRecord{
			ID:            uuid.New(),
			ItemID:        line.ItemID,
			Kind:          enums.MovementKindReturn,
			Qty:           line.Qty,
			StockBefore:   available,
			StockAfter:    available + line.Qty,
			ReservationID: &reservationID,
			ActorID:       actorID,
		}); err != nil {
			return err
		}
		if err := repo.UpdateItemQuantities(ctx, line.ItemID, map[string]any{"available_qty": available + line.Qty}); err != nil {
			return err
		}
	}
	return nil
}

// RecordMovement applies an operator stock adjustment. Manual kinds are the
// only path that changes total quantity; OUT and RETURN entries are written
// exclusively by the reservation flows.
func (s *service) RecordMovement(ctx context.Context, itemID uuid.UUID, kind enums.MovementKind, qty int, actorID *uuid.UUID, note *string) (*models.MovementRecord, error) {
	if !kind.IsManual() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("movement kind %q is reservation-driven", kind))
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var record *models.MovementRecord
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		newTotal := item.TotalQty + kind.Delta()*qty
		if newTotal < 0 {
			return pkgerrors.New(pkgerrors.CodeBusinessRule,
				fmt.Sprintf("adjustment would leave item %q with negative stock", item.Name))
		}
		reserved, err := repo.SumActiveReservedQty(ctx, itemID)
		if err != nil {
			return err
		}
		if newTotal < reserved {
			return pkgerrors.New(pkgerrors.CodeBusinessRule,
				fmt.Sprintf("item %q has %d units reserved, cannot reduce total to %d", item.Name, reserved, newTotal))
		}

		record = &models.MovementRecord{
			ID:          uuid.New(),
			ItemID:      itemID,
			Kind:        kind,
			Qty:         qty,
			StockBefore: item.TotalQty,
			StockAfter:  newTotal,
			ActorID:     actorID,
			Note:        note,
		}
		if err := repo.CreateMovement(ctx, record); err != nil {
			return err
		}
		return repo.UpdateItemQuantities(ctx, itemID, map[string]any{
			"total_qty":     newTotal,
			"available_qty": newTotal - reserved,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecomputeAvailability rewrites the cache from the live sum. Exposed for
// operators acting on audit discrepancies; the scheduler itself never fixes.
func (s *service) RecomputeAvailability(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item *models.InventoryItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		reserved, err := repo.SumActiveReservedQty(ctx, itemID)
		if err != nil {
			return err
		}
		live := locked.TotalQty - reserved
		if err := repo.UpdateItemQuantities(ctx, itemID, map[string]any{"available_qty": live}); err != nil {
			return err
		}
		locked.AvailableQty = live
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) ListMovements(ctx context.Context, itemID uuid.UUID, since *time.Time, limit int) ([]models.MovementRecord, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, itemID, since, limit)
}

func (s *service) ListReservableItems(ctx context.Context, resourceID uuid.UUID) ([]models.InventoryItem, error) {
	return s.repo.ListReservableItems(ctx, resourceID)
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking window is required")
	}
	if !start.Before(end) {
		return pkgerrors.New(pkgerrors.CodeValidation, "window start must be before end")
	}
	return nil
}
