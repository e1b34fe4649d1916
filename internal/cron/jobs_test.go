package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeSweepReader struct {
	ended   []models.Reservation
	started []models.Reservation
	err     error
}

func (f *fakeSweepReader) ListEndedHoldingStock(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	return f.ended, f.err
}

func (f *fakeSweepReader) ListStartedConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	return f.started, f.err
}

type fakeSweepRepoStore struct {
	reservations map[uuid.UUID]*models.Reservation
}

func (f *fakeSweepRepoStore) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	reservation, ok := f.reservations[id]
	if !ok {
		return nil, errors.New("reservation not found")
	}
	return reservation, nil
}

type transitionCall struct {
	id     uuid.UUID
	target enums.ReservationStatus
}

type fakeTransitioner struct {
	calls  []transitionCall
	failOn *uuid.UUID
}

func (f *fakeTransitioner) TransitionInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, target enums.ReservationStatus, actorID *uuid.UUID) error {
	if f.failOn != nil && reservation.ID == *f.failOn {
		return errors.New("transition rejected")
	}
	f.calls = append(f.calls, transitionCall{id: reservation.ID, target: target})
	reservation.Status = target
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func reservationFixture(status enums.ReservationStatus) *models.Reservation {
	return &models.Reservation{ID: uuid.New(), Status: status}
}

func TestCompletionJobRoutesConfirmedThroughInProgress(t *testing.T) {
	confirmed := reservationFixture(enums.ReservationStatusConfirmed)
	inProgress := reservationFixture(enums.ReservationStatusInProgress)
	store := &fakeSweepRepoStore{reservations: map[uuid.UUID]*models.Reservation{
		confirmed.ID:  confirmed,
		inProgress.ID: inProgress,
	}}
	transitioner := &fakeTransitioner{}
	job, err := NewCompletionJob(CompletionJobParams{
		Logger:       testLogger(),
		DB:           fakeTxRunner{},
		Reader:       &fakeSweepReader{ended: []models.Reservation{*confirmed, *inProgress}},
		Reservations: transitioner,
		Interval:     time.Hour,
		RepoFactory:  func(tx *gorm.DB) sweepRepo { return store },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(transitioner.calls) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(transitioner.calls))
	}
	first, second := transitioner.calls[0], transitioner.calls[1]
	if first.id != confirmed.ID || first.target != enums.ReservationStatusInProgress {
		t.Fatalf("expected confirmed reservation to pass through in_progress first, got %+v", first)
	}
	if second.id != confirmed.ID || second.target != enums.ReservationStatusCompleted {
		t.Fatalf("expected confirmed reservation to complete second, got %+v", second)
	}
	if last := transitioner.calls[2]; last.id != inProgress.ID || last.target != enums.ReservationStatusCompleted {
		t.Fatalf("expected in_progress reservation to complete, got %+v", last)
	}
}

func TestCompletionJobSkipsRowsAlreadyTerminal(t *testing.T) {
	stale := reservationFixture(enums.ReservationStatusConfirmed)
	// The row was listed while confirmed but a guest cancelled it before
	// the sweep reloaded it inside its transaction.
	current := reservationFixture(enums.ReservationStatusCancelled)
	current.ID = stale.ID
	store := &fakeSweepRepoStore{reservations: map[uuid.UUID]*models.Reservation{current.ID: current}}
	transitioner := &fakeTransitioner{}
	job, err := NewCompletionJob(CompletionJobParams{
		Logger:       testLogger(),
		DB:           fakeTxRunner{},
		Reader:       &fakeSweepReader{ended: []models.Reservation{*stale}},
		Reservations: transitioner,
		Interval:     time.Hour,
		RepoFactory:  func(tx *gorm.DB) sweepRepo { return store },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(transitioner.calls) != 0 {
		t.Fatalf("expected no transitions for a terminal row, got %d", len(transitioner.calls))
	}
}

func TestCompletionJobIsolatesPerReservationFailures(t *testing.T) {
	bad := reservationFixture(enums.ReservationStatusInProgress)
	good := reservationFixture(enums.ReservationStatusInProgress)
	store := &fakeSweepRepoStore{reservations: map[uuid.UUID]*models.Reservation{
		bad.ID:  bad,
		good.ID: good,
	}}
	transitioner := &fakeTransitioner{failOn: &bad.ID}
	job, err := NewCompletionJob(CompletionJobParams{
		Logger:       testLogger(),
		DB:           fakeTxRunner{},
		Reader:       &fakeSweepReader{ended: []models.Reservation{*bad, *good}},
		Reservations: transitioner,
		Interval:     time.Hour,
		RepoFactory:  func(tx *gorm.DB) sweepRepo { return store },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error from the failing reservation")
	}
	if len(transitioner.calls) != 1 {
		t.Fatalf("expected the healthy reservation to still complete, got %d calls", len(transitioner.calls))
	}
	if call := transitioner.calls[0]; call.id != good.ID || call.target != enums.ReservationStatusCompleted {
		t.Fatalf("unexpected transition: %+v", call)
	}
}

func TestActivationJobMovesStartedConfirmedOnly(t *testing.T) {
	confirmed := reservationFixture(enums.ReservationStatusConfirmed)
	// Listed as confirmed but completed by the time the sweep reloads it.
	flipped := reservationFixture(enums.ReservationStatusCompleted)
	store := &fakeSweepRepoStore{reservations: map[uuid.UUID]*models.Reservation{
		confirmed.ID: confirmed,
		flipped.ID:   flipped,
	}}
	transitioner := &fakeTransitioner{}
	job, err := NewActivationJob(ActivationJobParams{
		Logger:       testLogger(),
		DB:           fakeTxRunner{},
		Reader:       &fakeSweepReader{started: []models.Reservation{*confirmed, *flipped}},
		Reservations: transitioner,
		Interval:     30 * time.Minute,
		RepoFactory:  func(tx *gorm.DB) sweepRepo { return store },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(transitioner.calls) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitioner.calls))
	}
	if call := transitioner.calls[0]; call.id != confirmed.ID || call.target != enums.ReservationStatusInProgress {
		t.Fatalf("unexpected transition: %+v", call)
	}
}

type fakeAuditReader struct {
	all    []models.InventoryItem
	recent []models.InventoryItem
	sums   map[uuid.UUID]int

	listedAll    bool
	listedRecent bool
	recentCutoff time.Time
}

func (f *fakeAuditReader) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	f.listedAll = true
	return f.all, nil
}

func (f *fakeAuditReader) ListItemsMovedSince(ctx context.Context, since time.Time) ([]models.InventoryItem, error) {
	f.listedRecent = true
	f.recentCutoff = since
	return f.recent, nil
}

func (f *fakeAuditReader) SumActiveReservedQty(ctx context.Context, itemID uuid.UUID) (int, error) {
	sum, ok := f.sums[itemID]
	if !ok {
		return 0, errors.New("unknown item")
	}
	return sum, nil
}

func TestStockAuditJobReportsWithoutRepairing(t *testing.T) {
	healthy := models.InventoryItem{ID: uuid.New(), Name: "kayak", TotalQty: 10, AvailableQty: 7}
	poisoned := models.InventoryItem{ID: uuid.New(), Name: "paddle", TotalQty: 10, AvailableQty: 9}
	reader := &fakeAuditReader{
		recent: []models.InventoryItem{healthy, poisoned},
		sums: map[uuid.UUID]int{
			healthy.ID:  3,
			poisoned.ID: 3,
		},
	}
	job, err := NewStockAuditJob(StockAuditJobParams{
		Logger:   testLogger(),
		Reader:   reader,
		Interval: 6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reader.listedAll {
		t.Fatal("light audit should not scan every item")
	}
	if !reader.listedRecent {
		t.Fatal("light audit should scan recently moved items")
	}
	// The audit surfaces the paddle discrepancy (expected 7, cached 9) but
	// never touches the rows.
	if poisoned.AvailableQty != 9 {
		t.Fatalf("audit must not repair the cache, got %d", poisoned.AvailableQty)
	}
}

func TestStockAuditJobDeepScansEveryItem(t *testing.T) {
	item := models.InventoryItem{ID: uuid.New(), Name: "tent", TotalQty: 4, AvailableQty: 4}
	reader := &fakeAuditReader{
		all:  []models.InventoryItem{item},
		sums: map[uuid.UUID]int{item.ID: 0},
	}
	job, err := NewStockAuditJob(StockAuditJobParams{
		Logger:   testLogger(),
		Reader:   reader,
		Interval: 24 * time.Hour,
		Deep:     true,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if got := job.Name(); got != "stock-audit-deep" {
		t.Fatalf("unexpected job name: %s", got)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reader.listedAll {
		t.Fatal("deep audit should scan every item")
	}
	if reader.listedRecent {
		t.Fatal("deep audit should not use the recent-movement shortcut")
	}
}
