package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/availability"
	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/payments"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var bookingSchema = []string{
	`CREATE TABLE resources (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  unit_price NUMERIC NOT NULL DEFAULT 0,
  capacity INTEGER,
  rooms INTEGER,
  block_minutes INTEGER,
  opens_at TEXT,
  closes_at TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE availability_blocks (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  resource_id TEXT NOT NULL,
  date DATETIME NOT NULL,
  starts_at TEXT,
  ends_at TEXT,
  available INTEGER NOT NULL DEFAULT 1,
  reason TEXT,
  special_price NUMERIC,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (resource_id, date, starts_at)
);`,
	`CREATE TABLE reservations (
  id TEXT PRIMARY KEY,
  resource_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  package_id TEXT,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  base_price NUMERIC NOT NULL DEFAULT 0,
  items_price NUMERIC NOT NULL DEFAULT 0,
  total_price NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE inventory_items (
  id TEXT PRIMARY KEY,
  resource_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT,
  total_qty INTEGER NOT NULL DEFAULT 0,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reservable INTEGER NOT NULL DEFAULT 1,
  unit_reservation_price NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE item_reservations (
  id TEXT PRIMARY KEY,
  reservation_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE movement_records (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  qty INTEGER NOT NULL,
  stock_before INTEGER NOT NULL,
  stock_after INTEGER NOT NULL,
  reservation_id TEXT,
  actor_id TEXT,
  note TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  reservation_id TEXT,
  package_id TEXT,
  amount NUMERIC NOT NULL,
  method TEXT NOT NULL,
  external_ref TEXT,
  created_at DATETIME
);`,
}

type bookingEnv struct {
	conn *gorm.DB
	svc  Service
	inv  inventory.Service
}

func setupBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:reservations_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range bookingSchema {
		require.NoError(t, conn.Exec(ddl).Error)
	}

	runner := &testTxRunner{db: conn}
	catalogRepo := catalog.NewRepository(conn)
	availabilitySvc, err := availability.NewService(availability.NewRepository(conn), catalogRepo)
	require.NoError(t, err)
	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), runner)
	require.NoError(t, err)
	paymentsSvc, err := payments.NewService(conn)
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(conn),
		catalogRepo,
		availabilitySvc,
		inventorySvc,
		paymentsSvc,
		runner,
		config.BookingConfig{MaxAdvanceDays: 365, ConflictRetries: 1},
	)
	require.NoError(t, err)
	// Bookings in these tests are anchored in July 2026.
	svc.(*service).now = func() time.Time {
		return time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	}
	return &bookingEnv{conn: conn, svc: svc, inv: inventorySvc}
}

func (e *bookingEnv) seedLodging(t *testing.T, nightly int64) uuid.UUID {
	t.Helper()
	capacity := 4
	resource := models.Resource{
		ID:        uuid.New(),
		Kind:      enums.ResourceKindLodging,
		Name:      "Riverside Cabin",
		Status:    enums.ResourceStatusAvailable,
		UnitPrice: decimal.NewFromInt(nightly),
		Capacity:  &capacity,
	}
	require.NoError(t, e.conn.Create(&resource).Error)
	return resource.ID
}

func (e *bookingEnv) seedItem(t *testing.T, resourceID uuid.UUID, total int, price int64) uuid.UUID {
	t.Helper()
	item := models.InventoryItem{
		ID:                   uuid.New(),
		ResourceID:           resourceID,
		Name:                 "Bike",
		TotalQty:             total,
		AvailableQty:         total,
		Reservable:           true,
		UnitReservationPrice: decimal.NewFromInt(price),
	}
	require.NoError(t, e.conn.Create(&item).Error)
	return item.ID
}

func (e *bookingEnv) seedTour(t *testing.T, perBlock int64) uuid.UUID {
	t.Helper()
	blockMinutes := 60
	opens, closes := types.TimeOfDay("09:00"), types.TimeOfDay("23:00")
	resource := models.Resource{
		ID:           uuid.New(),
		Kind:         enums.ResourceKindService,
		Name:         "Night Paddle",
		Status:       enums.ResourceStatusAvailable,
		UnitPrice:    decimal.NewFromInt(perBlock),
		BlockMinutes: &blockMinutes,
		OpensAt:      &opens,
		ClosesAt:     &closes,
	}
	require.NoError(t, e.conn.Create(&resource).Error)
	return resource.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateSevenNightStay(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 17),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, reservation.Status)
	// 7 nights x 100.00 with the 7-13 night tier (x0.85).
	assert.Equal(t, "595.00", reservation.BasePrice.StringFixed(2))
	assert.Equal(t, "595.00", reservation.TotalPrice.StringFixed(2))

	var blocks int64
	require.NoError(t, env.conn.Model(&models.AvailabilityBlock{}).
		Where("resource_id = ? AND available = ? AND reason = ?", resourceID, false, enums.BlockReasonReserved).
		Count(&blocks).Error)
	assert.Equal(t, int64(7), blocks)
}

func TestCreateOverlapLosesToCommittedBlocks(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	_, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 13),
	})
	require.NoError(t, err)

	// A pending reservation already owns RESERVED blocks, so an overlapping
	// request fails even though pending does not count in the overlap query.
	_, err = env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 12),
		EndsAt:     day(2026, time.July, 14),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// Back-to-back succeeds.
	_, err = env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 13),
		EndsAt:     day(2026, time.July, 14),
	})
	require.NoError(t, err)
}

func TestCreateWithItemsPricesLines(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)
	itemID := env.seedItem(t, resourceID, 5, 15)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "200.00", reservation.BasePrice.StringFixed(2))
	assert.Equal(t, "30.00", reservation.ItemsPrice.StringFixed(2))
	assert.Equal(t, "230.00", reservation.TotalPrice.StringFixed(2))
	require.Len(t, reservation.Items, 1)
	assert.Equal(t, "15.00", reservation.Items[0].UnitPrice.StringFixed(2))
}

func TestCreateInsufficientStockLeavesNothing(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)
	itemID := env.seedItem(t, resourceID, 1, 15)

	_, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 3}},
	})
	require.Error(t, err)

	for _, model := range []any{
		&models.Reservation{}, &models.ItemReservation{},
		&models.MovementRecord{}, &models.AvailabilityBlock{},
	} {
		var count int64
		require.NoError(t, env.conn.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows must roll back", model)
	}
}

func TestCreateRejectsBadIntervals(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"reversed", day(2026, time.July, 12), day(2026, time.July, 10)},
		{"zero length", day(2026, time.July, 10), day(2026, time.July, 10)},
		{"in the past", day(2026, time.June, 1), day(2026, time.June, 3)},
		{"beyond horizon", day(2028, time.July, 1), day(2028, time.July, 3)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Create(ctx, CreateInput{
				ResourceID: resourceID,
				CustomerID: uuid.New(),
				StartsAt:   tc.start,
				EndsAt:     tc.end,
			})
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestTransitionLifecycle(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)
	itemID := env.seedItem(t, resourceID, 5, 10)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 2}},
	})
	require.NoError(t, err)

	for _, target := range []enums.ReservationStatus{
		enums.ReservationStatusConfirmed,
		enums.ReservationStatusInProgress,
		enums.ReservationStatusCompleted,
	} {
		reservation, err = env.svc.Transition(ctx, reservation.ID, target, nil)
		require.NoError(t, err)
		assert.Equal(t, target, reservation.Status)
	}

	// Completion released the lines (RETURN logged) but kept the blocks closed.
	var returns int64
	require.NoError(t, env.conn.Model(&models.MovementRecord{}).
		Where("kind = ?", enums.MovementKindReturn).
		Count(&returns).Error)
	assert.Equal(t, int64(1), returns)

	var openBlocks int64
	require.NoError(t, env.conn.Model(&models.AvailabilityBlock{}).
		Where("resource_id = ? AND available = ?", resourceID, true).
		Count(&openBlocks).Error)
	assert.Zero(t, openBlocks, "completed stays keep their blocks consumed")

	// Terminal states reject further transitions instead of absorbing them.
	_, err = env.svc.Transition(ctx, reservation.ID, enums.ReservationStatusCancelled, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelReleasesAndAllowsRebooking(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
	})
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, reservation.ID, enums.ReservationStatusCancelled, nil)
	require.NoError(t, err)

	rebooked, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, rebooked.Status)
}

func TestTransitionCannotSkipStates(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
	})
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, reservation.ID, enums.ReservationStatusCompleted, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestConfirmWithPayment(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 17),
	})
	require.NoError(t, err)

	// Near-misses are rejected; equality is exact, not approximate.
	_, err = env.svc.ConfirmWithPayment(ctx, reservation.ID, decimal.RequireFromString("595.01"), enums.PaymentMethodCard, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBusinessRule, typed.Code())

	confirmed, err := env.svc.ConfirmWithPayment(ctx, reservation.ID, decimal.RequireFromString("595.00"), enums.PaymentMethodCard, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusConfirmed, confirmed.Status)

	var payment models.Payment
	require.NoError(t, env.conn.First(&payment, "reservation_id = ?", reservation.ID).Error)
	assert.Equal(t, "595.00", payment.Amount.StringFixed(2))
	assert.Equal(t, enums.PaymentMethodCard, payment.Method)

	// Double confirmation is a state conflict.
	_, err = env.svc.ConfirmWithPayment(ctx, reservation.ID, decimal.RequireFromString("595.00"), enums.PaymentMethodCard, nil)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCreateItemHeldForDisjointWindow(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	cabinA := env.seedLodging(t, 100)
	cabinB := env.seedLodging(t, 100)
	itemID := env.seedItem(t, cabinA, 1, 15)

	_, err := env.svc.Create(ctx, CreateInput{
		ResourceID: cabinA,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 1}},
	})
	require.NoError(t, err)

	// The single bike is held July 10 to 12; a stay two weeks later may still
	// take it.
	later, err := env.svc.Create(ctx, CreateInput{
		ResourceID: cabinA,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 24),
		EndsAt:     day(2026, time.July, 26),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "15.00", later.ItemsPrice.StringFixed(2))

	// A stay overlapping the first hold cannot. The other cabin keeps the
	// lodging blocks out of the way so the conflict is the item's.
	_, err = env.svc.Create(ctx, CreateInput{
		ResourceID: cabinB,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 11),
		EndsAt:     day(2026, time.July, 13),
		Lines:      []inventory.LineRequest{{ItemID: itemID, Qty: 1}},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

// flakyTxRunner fails the first N transactions with a serialization error
// before delegating to the real runner.
type flakyTxRunner struct {
	inner    txRunner
	failures int
	attempts int
}

func (r *flakyTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.attempts++
	if r.attempts <= r.failures {
		return &pgconn.PgError{Code: "40001"}
	}
	return r.inner.WithTx(ctx, fn)
}

func TestCreateRetriesSerializationConflict(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	flaky := &flakyTxRunner{inner: &testTxRunner{db: env.conn}, failures: 1}
	env.svc.(*service).db = flaky

	reservation, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, reservation.Status)
	assert.Equal(t, 2, flaky.attempts, "one failed attempt plus the retry")
}

func TestCreateSurfacesRepeatedSerializationConflict(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	resourceID := env.seedLodging(t, 100)

	flaky := &flakyTxRunner{inner: &testTxRunner{db: env.conn}, failures: 10}
	env.svc.(*service).db = flaky

	_, err := env.svc.Create(ctx, CreateInput{
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 10),
		EndsAt:     day(2026, time.July, 12),
	})
	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "40001", pgErr.Code)
	// ConflictRetries is 1 here: the initial attempt and exactly one retry.
	assert.Equal(t, 2, flaky.attempts)
}

func TestCreateServiceBookingCannotEndAtMidnight(t *testing.T) {
	t.Parallel()

	env := setupBookingEnv(t)
	ctx := context.Background()
	tourID := env.seedTour(t, 50)

	// 22:00 to midnight lands on the same calendar day but maps to an end
	// clock of 00:00, which no slot grid can satisfy.
	_, err := env.svc.Create(ctx, CreateInput{
		ResourceID: tourID,
		CustomerID: uuid.New(),
		StartsAt:   time.Date(2026, time.July, 10, 22, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// Crossing midnight outright is rejected as well.
	_, err = env.svc.Create(ctx, CreateInput{
		ResourceID: tourID,
		CustomerID: uuid.New(),
		StartsAt:   time.Date(2026, time.July, 10, 22, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, time.July, 11, 1, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
