// Package availability decides whether a resource is free over a requested
// interval and owns the per-date / per-slot block rows, including manual
// blackouts and deterministic slot generation for timed services.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// Service is the availability engine. Check methods report ordinary
// unavailability as a plain false; only missing resources and infrastructure
// failures surface as errors. Mutating methods accept the booking transaction
// so commit/release stay atomic with the reservation write.
type Service interface {
	CheckLodgingAvailable(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, start, end time.Time) (bool, error)
	CheckServiceAvailable(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) (bool, error)
	ListBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]models.AvailabilityBlock, error)
	Commit(ctx context.Context, tx *gorm.DB, resource *models.Resource, start, end time.Time) error
	Release(ctx context.Context, tx *gorm.DB, resource *models.Resource, start, end time.Time) error
	GenerateBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time, open, close types.TimeOfDay, blockMinutes int) (int, error)
	Blackout(ctx context.Context, resourceID uuid.UUID, date time.Time, slotStart *types.TimeOfDay, reason string) error
	ClearBlackout(ctx context.Context, resourceID uuid.UUID, date time.Time, slotStart *types.TimeOfDay) error
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
}

// NewService wires the availability engine.
func NewService(repo Repository, catalogRepo catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, catalogRepo: catalogRepo}, nil
}

func (s *service) CheckLodgingAvailable(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, start, end time.Time) (bool, error) {
	if !start.Before(end) {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "start must be before end")
	}
	repo := s.repo.WithTx(tx)
	resource, err := s.catalogRepo.WithTx(tx).GetResource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if !resource.IsBookable() {
		return false, nil
	}

	closed, err := repo.FindUnavailableInDateRange(ctx, resourceID, start, end)
	if err != nil {
		return false, err
	}
	if len(closed) > 0 {
		return false, nil
	}

	overlapping, err := repo.CountOverlappingReservations(ctx, resourceID, start, end, enums.BlockingReservationStatuses, nil)
	if err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

func (s *service) CheckServiceAvailable(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, date time.Time, start, end types.TimeOfDay) (bool, error) {
	if !start.Before(end) {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "start time must be before end time")
	}
	repo := s.repo.WithTx(tx)
	resource, err := s.catalogRepo.WithTx(tx).GetResource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if !resource.IsBookable() {
		return false, nil
	}
	if resource.OpensAt != nil && start.Before(*resource.OpensAt) {
		return false, nil
	}
	if resource.ClosesAt != nil && resource.ClosesAt.Before(end) {
		return false, nil
	}

	closed, err := repo.FindUnavailableInClockRange(ctx, resourceID, date, start, end)
	if err != nil {
		return false, err
	}
	if len(closed) > 0 {
		return false, nil
	}

	startAt := atClock(date, start)
	endAt := atClock(date, end)
	overlapping, err := repo.CountOverlappingReservations(ctx, resourceID, startAt, endAt, enums.BlockingReservationStatuses, nil)
	if err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

func (s *service) ListBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]models.AvailabilityBlock, error) {
	if _, err := s.catalogRepo.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.repo.ListBlocks(ctx, resourceID, date)
}

// Commit closes the blocks covering [start, end) with the reserved marker,
// creating rows lazily for dates or slots never touched before.
func (s *service) Commit(ctx context.Context, tx *gorm.DB, resource *models.Resource, start, end time.Time) error {
	if resource == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "resource required")
	}
	repo := s.repo.WithTx(tx)
	switch resource.Kind {
	case enums.ResourceKindLodging:
		for day := dateOnly(start); day.Before(end); day = day.AddDate(0, 0, 1) {
			if err := s.closeBlock(ctx, repo, resource.ID, day, nil, nil); err != nil {
				return err
			}
		}
		return nil
	case enums.ResourceKindService:
		startClock := clockOf(start)
		endClock := clockOf(end)
		step := endClock.Minutes() - startClock.Minutes()
		if resource.BlockMinutes != nil && *resource.BlockMinutes > 0 {
			step = *resource.BlockMinutes
		}
		for m := startClock.Minutes(); m < endClock.Minutes(); m += step {
			slotStart := types.FromMinutes(m)
			slotEnd := types.FromMinutes(min(m+step, endClock.Minutes()))
			if err := s.closeBlock(ctx, repo, resource.ID, dateOnly(start), &slotStart, &slotEnd); err != nil {
				return err
			}
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resource kind %q", resource.Kind))
	}
}

// Release reopens reserved blocks in [start, end). Blocks closed for any
// other reason are untouched.
func (s *service) Release(ctx context.Context, tx *gorm.DB, resource *models.Resource, start, end time.Time) error {
	if resource == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "resource required")
	}
	repo := s.repo.WithTx(tx)
	switch resource.Kind {
	case enums.ResourceKindLodging:
		return repo.ReleaseReservedInDateRange(ctx, resource.ID, start, end)
	case enums.ResourceKindService:
		return repo.ReleaseReservedInClockRange(ctx, resource.ID, dateOnly(start), clockOf(start), clockOf(end))
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resource kind %q", resource.Kind))
	}
}

// GenerateBlocks partitions [open, close) into fixed-size open slots.
// Existing slots are left alone so re-running for the same day is a no-op.
func (s *service) GenerateBlocks(ctx context.Context, resourceID uuid.UUID, date time.Time, open, close types.TimeOfDay, blockMinutes int) (int, error) {
	if blockMinutes <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "block minutes must be positive")
	}
	if !open.Before(close) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "opening time must be before closing time")
	}
	if _, err := s.catalogRepo.GetResource(ctx, resourceID); err != nil {
		return 0, err
	}

	created := 0
	for m := open.Minutes(); m+blockMinutes <= close.Minutes(); m += blockMinutes {
		slotStart := types.FromMinutes(m)
		slotEnd := types.FromMinutes(m + blockMinutes)

		existing, err := s.repo.FindBlock(ctx, resourceID, date, &slotStart)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		block := &models.AvailabilityBlock{
			ResourceID: resourceID,
			Date:       dateOnly(date),
			StartsAt:   &slotStart,
			EndsAt:     &slotEnd,
			Available:  true,
		}
		if err := s.repo.Create(ctx, block); err != nil {
			if db.IsUniqueViolation(err, "") {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *service) Blackout(ctx context.Context, resourceID uuid.UUID, date time.Time, slotStart *types.TimeOfDay, reason string) error {
	if reason == "" || reason == enums.BlockReasonReserved {
		return pkgerrors.New(pkgerrors.CodeValidation, "blackout reason required and must not be the reserved marker")
	}
	if _, err := s.catalogRepo.GetResource(ctx, resourceID); err != nil {
		return err
	}
	existing, err := s.repo.FindBlock(ctx, resourceID, date, slotStart)
	if err != nil {
		return err
	}
	if existing != nil {
		if !existing.Available && existing.Reason == enums.BlockReasonReserved {
			return pkgerrors.New(pkgerrors.CodeConflict, "block already held by a reservation")
		}
		return s.repo.Update(ctx, existing.ID, map[string]any{"available": false, "reason": reason})
	}
	block := &models.AvailabilityBlock{
		ResourceID: resourceID,
		Date:       dateOnly(date),
		StartsAt:   slotStart,
		Available:  false,
		Reason:     reason,
	}
	return s.repo.Create(ctx, block)
}

func (s *service) ClearBlackout(ctx context.Context, resourceID uuid.UUID, date time.Time, slotStart *types.TimeOfDay) error {
	existing, err := s.repo.FindBlock(ctx, resourceID, date, slotStart)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "availability block not found")
	}
	if existing.Reason == enums.BlockReasonReserved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved blocks are released through cancellation")
	}
	return s.repo.Update(ctx, existing.ID, map[string]any{"available": true, "reason": ""})
}

func (s *service) closeBlock(ctx context.Context, repo Repository, resourceID uuid.UUID, date time.Time, slotStart, slotEnd *types.TimeOfDay) error {
	existing, err := repo.FindBlock(ctx, resourceID, date, slotStart)
	if err != nil {
		return err
	}
	if existing != nil {
		return repo.Update(ctx, existing.ID, map[string]any{
			"available": false,
			"reason":    enums.BlockReasonReserved,
		})
	}
	block := &models.AvailabilityBlock{
		ResourceID: resourceID,
		Date:       date,
		StartsAt:   slotStart,
		EndsAt:     slotEnd,
		Available:  false,
		Reason:     enums.BlockReasonReserved,
	}
	return repo.Create(ctx, block)
}

func atClock(date time.Time, clock types.TimeOfDay) time.Time {
	minutes := clock.Minutes()
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, time.UTC)
}

func clockOf(t time.Time) types.TimeOfDay {
	return types.FromMinutes(t.UTC().Hour()*60 + t.UTC().Minute())
}
