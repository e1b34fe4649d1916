package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

func setupAvailabilityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:availability_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
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
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
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
	} {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func newAvailabilityService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func seedLodging(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	capacity, rooms := 4, 2
	resource := models.Resource{
		ID:        uuid.New(),
		Kind:      enums.ResourceKindLodging,
		Name:      "Cabin 12",
		Status:    enums.ResourceStatusAvailable,
		UnitPrice: decimal.NewFromInt(100),
		Capacity:  &capacity,
		Rooms:     &rooms,
	}
	require.NoError(t, conn.Create(&resource).Error)
	return resource.ID
}

func seedServiceResource(t *testing.T, conn *gorm.DB, blockMinutes int, opens, closes types.TimeOfDay) uuid.UUID {
	t.Helper()
	resource := models.Resource{
		ID:           uuid.New(),
		Kind:         enums.ResourceKindService,
		Name:         "Spa Room",
		Status:       enums.ResourceStatusAvailable,
		UnitPrice:    decimal.NewFromInt(60),
		BlockMinutes: &blockMinutes,
		OpensAt:      &opens,
		ClosesAt:     &closes,
	}
	require.NoError(t, conn.Create(&resource).Error)
	return resource.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckLodgingAvailable(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedLodging(t, conn)

	start := day(2026, time.July, 10)
	end := day(2026, time.July, 13)

	ok, err := svc.CheckLodgingAvailable(ctx, nil, resourceID, start, end)
	require.NoError(t, err)
	assert.True(t, ok, "empty calendar should be available")

	// Confirmed reservation sharing only the checkout boundary does not
	// conflict under the half-open rule.
	require.NoError(t, conn.Create(&models.Reservation{
		ID:         uuid.New(),
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   day(2026, time.July, 13),
		EndsAt:     day(2026, time.July, 15),
		Status:     enums.ReservationStatusConfirmed,
	}).Error)

	ok, err = svc.CheckLodgingAvailable(ctx, nil, resourceID, start, end)
	require.NoError(t, err)
	assert.True(t, ok, "back-to-back stays must not conflict")

	ok, err = svc.CheckLodgingAvailable(ctx, nil, resourceID, day(2026, time.July, 12), day(2026, time.July, 14))
	require.NoError(t, err)
	assert.False(t, ok, "one shared night is a conflict")
}

func TestCheckLodgingAvailableBlackout(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedLodging(t, conn)

	require.NoError(t, svc.Blackout(ctx, resourceID, day(2026, time.July, 11), nil, enums.BlockReasonMaintenance))

	ok, err := svc.CheckLodgingAvailable(ctx, nil, resourceID, day(2026, time.July, 10), day(2026, time.July, 12))
	require.NoError(t, err)
	assert.False(t, ok)

	// The night before the blackout is still open.
	ok, err = svc.CheckLodgingAvailable(ctx, nil, resourceID, day(2026, time.July, 10), day(2026, time.July, 11))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckLodgingAvailableOutOfService(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedLodging(t, conn)

	require.NoError(t, conn.Model(&models.Resource{}).
		Where("id = ?", resourceID).
		Update("status", enums.ResourceStatusOutOfService).Error)

	ok, err := svc.CheckLodgingAvailable(ctx, nil, resourceID, day(2026, time.July, 10), day(2026, time.July, 11))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckLodgingAvailableUnknownResource(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)

	_, err := svc.CheckLodgingAvailable(context.Background(), nil, uuid.New(), day(2026, time.July, 10), day(2026, time.July, 11))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCheckServiceAvailable(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedServiceResource(t, conn, 60, "09:00", "18:00")
	date := day(2026, time.July, 10)

	ok, err := svc.CheckServiceAvailable(ctx, nil, resourceID, date, "10:00", "11:00")
	require.NoError(t, err)
	assert.True(t, ok)

	// Outside operating hours.
	ok, err = svc.CheckServiceAvailable(ctx, nil, resourceID, date, "08:00", "09:00")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckServiceAvailable(ctx, nil, resourceID, date, "17:30", "18:30")
	require.NoError(t, err)
	assert.False(t, ok)

	// A confirmed booking at 10:00-11:00 blocks overlapping slots but not
	// the adjacent 11:00-12:00 slot.
	require.NoError(t, conn.Create(&models.Reservation{
		ID:         uuid.New(),
		ResourceID: resourceID,
		CustomerID: uuid.New(),
		StartsAt:   time.Date(2026, time.July, 10, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, time.July, 10, 11, 0, 0, 0, time.UTC),
		Status:     enums.ReservationStatusConfirmed,
	}).Error)

	ok, err = svc.CheckServiceAvailable(ctx, nil, resourceID, date, "10:00", "11:00")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckServiceAvailable(ctx, nil, resourceID, date, "11:00", "12:00")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCommitAndReleaseLodging(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedLodging(t, conn)

	var resource models.Resource
	require.NoError(t, conn.First(&resource, "id = ?", resourceID).Error)

	start := day(2026, time.July, 10)
	end := day(2026, time.July, 13)
	require.NoError(t, svc.Commit(ctx, nil, &resource, start, end))

	blocks, err := svc.ListBlocks(ctx, resourceID, day(2026, time.July, 11))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].Available)
	assert.Equal(t, enums.BlockReasonReserved, blocks[0].Reason)

	// Checkout date itself stays untouched.
	blocks, err = svc.ListBlocks(ctx, resourceID, end)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	// A maintenance blackout inside the range must survive release.
	require.NoError(t, conn.Create(&models.AvailabilityBlock{
		ID:         uuid.New(),
		ResourceID: resourceID,
		Date:       day(2026, time.July, 20),
		Available:  false,
		Reason:     enums.BlockReasonMaintenance,
	}).Error)

	require.NoError(t, svc.Release(ctx, nil, &resource, start, day(2026, time.July, 21)))

	var reopened int64
	require.NoError(t, conn.Model(&models.AvailabilityBlock{}).
		Where("resource_id = ? AND available = ?", resourceID, true).
		Count(&reopened).Error)
	assert.Equal(t, int64(3), reopened)

	var maintenance models.AvailabilityBlock
	require.NoError(t, conn.First(&maintenance, "resource_id = ? AND date = ?", resourceID, day(2026, time.July, 20)).Error)
	assert.False(t, maintenance.Available)
	assert.Equal(t, enums.BlockReasonMaintenance, maintenance.Reason)
}

func TestCommitServiceSlots(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedServiceResource(t, conn, 60, "09:00", "18:00")

	var resource models.Resource
	require.NoError(t, conn.First(&resource, "id = ?", resourceID).Error)

	start := time.Date(2026, time.July, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.July, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Commit(ctx, nil, &resource, start, end))

	blocks, err := svc.ListBlocks(ctx, resourceID, day(2026, time.July, 10))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "10:00", blocks[0].StartsAt.String())
	assert.Equal(t, "11:00", blocks[1].StartsAt.String())
	for _, b := range blocks {
		assert.False(t, b.Available)
		assert.Equal(t, enums.BlockReasonReserved, b.Reason)
	}

	require.NoError(t, svc.Release(ctx, nil, &resource, start, end))
	blocks, err = svc.ListBlocks(ctx, resourceID, day(2026, time.July, 10))
	require.NoError(t, err)
	for _, b := range blocks {
		assert.True(t, b.Available)
		assert.Empty(t, b.Reason)
	}
}

func TestGenerateBlocksIdempotent(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedServiceResource(t, conn, 90, "09:00", "18:00")
	date := day(2026, time.July, 10)

	created, err := svc.GenerateBlocks(ctx, resourceID, date, "09:00", "18:00", 90)
	require.NoError(t, err)
	assert.Equal(t, 6, created)

	// Re-running creates nothing and leaves closed slots alone.
	require.NoError(t, svc.Blackout(ctx, resourceID, date, ptrClock("09:00"), enums.BlockReasonMaintenance))

	created, err = svc.GenerateBlocks(ctx, resourceID, date, "09:00", "18:00", 90)
	require.NoError(t, err)
	assert.Zero(t, created)

	blocks, err := svc.ListBlocks(ctx, resourceID, date)
	require.NoError(t, err)
	require.Len(t, blocks, 6)
	assert.False(t, blocks[0].Available)
}

func TestBlackoutRules(t *testing.T) {
	t.Parallel()

	conn := setupAvailabilityTestDB(t)
	svc := newAvailabilityService(t, conn)
	ctx := context.Background()
	resourceID := seedLodging(t, conn)
	date := day(2026, time.July, 10)

	err := svc.Blackout(ctx, resourceID, date, nil, enums.BlockReasonReserved)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// Reserved blocks cannot be stolen by a blackout nor cleared manually.
	require.NoError(t, conn.Create(&models.AvailabilityBlock{
		ID:         uuid.New(),
		ResourceID: resourceID,
		Date:       date,
		Available:  false,
		Reason:     enums.BlockReasonReserved,
	}).Error)

	err = svc.Blackout(ctx, resourceID, date, nil, enums.BlockReasonMaintenance)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	err = svc.ClearBlackout(ctx, resourceID, date, nil)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	other := day(2026, time.July, 11)
	require.NoError(t, svc.Blackout(ctx, resourceID, other, nil, "deep clean"))
	require.NoError(t, svc.ClearBlackout(ctx, resourceID, other, nil))

	blocks, err := svc.ListBlocks(ctx, resourceID, other)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Available)
}

func ptrClock(v types.TimeOfDay) *types.TimeOfDay {
	return &v
}
