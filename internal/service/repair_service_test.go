package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/psds-microservice/repair-desk/internal/database"
	"github.com/psds-microservice/repair-desk/internal/errs"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepairService(t *testing.T) *RepairService {
	t.Helper()
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.Path = filepath.Join(t.TempDir(), "repairs.db")
	db, err := database.OpenAndMigrate(cfg, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewRepairService(db)
}

func fixedClock(ts string) func() time.Time {
	t, err := time.ParseInLocation(model.TimestampLayout, ts, time.Local)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestCreateAndListScenario(t *testing.T) {
	svc := setupRepairService(t).WithClock(fixedClock("2025-03-01 10:00:00"))
	ctx := context.Background()

	first, err := svc.Create(ctx, model.RepairFields{ClientName: "Ivanov", DeviceType: "Phone"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.ID)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	got := items[0]
	assert.EqualValues(t, 1, got.ID)
	assert.Equal(t, model.RepairStatusReceived, got.Status)
	assert.Equal(t, "2025-03-01 10:00:00", got.StatusTimestamp)
	assert.Equal(t, "Ivanov", got.ClientName)
	assert.Equal(t, "Phone", got.DeviceType)
	for _, v := range []string{got.Manufacturer, got.Model, got.SerialNumber, got.Accessories, got.ClientAddress, got.IssueDescription, got.Notes} {
		assert.Equal(t, "", v)
	}

	_, err = svc.Create(ctx, model.RepairFields{ClientName: "Petrov"})
	require.NoError(t, err)
	items, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.EqualValues(t, 1, items[0].ID)
	assert.EqualValues(t, 2, items[1].ID)
	assert.Equal(t, "Petrov", items[1].ClientName)

	require.NoError(t, svc.Delete(ctx, 1))
	items, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].ID)

	n, err := svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	items, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items, "empty list must encode as [] not null")
}

func TestEmptyTicketPersistsWithDefaults(t *testing.T) {
	svc := setupRepairService(t)
	r, err := svc.Create(context.Background(), model.RepairFields{})
	require.NoError(t, err)
	got, err := svc.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RepairStatusReceived, got.Status)
	assert.NotEmpty(t, got.StatusTimestamp)
	assert.Empty(t, got.ClientName)
}

func TestCreateKeepsSuppliedTimestampAndAliasStatus(t *testing.T) {
	svc := setupRepairService(t)
	r, err := svc.Create(context.Background(), model.RepairFields{Status: "Готов", StatusTimestamp: "2024-12-31 23:59:59"})
	require.NoError(t, err)
	assert.Equal(t, model.RepairStatusReady, r.Status)
	assert.Equal(t, "2024-12-31 23:59:59", r.StatusTimestamp)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := setupRepairService(t)
	_, err := svc.Create(context.Background(), model.RepairFields{Status: "lost"})
	require.ErrorIs(t, err, errs.ErrInvalidStatus)
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIDsAreNeverReused(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	var last uint64
	for i := 0; i < 3; i++ {
		r, err := svc.Create(ctx, model.RepairFields{ClientName: "c"})
		require.NoError(t, err)
		assert.Greater(t, r.ID, last)
		last = r.ID
	}
	require.NoError(t, svc.Delete(ctx, last))
	_, err := svc.DeleteAll(ctx)
	require.NoError(t, err)

	r, err := svc.Create(ctx, model.RepairFields{})
	require.NoError(t, err)
	assert.Greater(t, r.ID, last)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, model.RepairFields{ClientName: "Ivanov"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, 42), errs.ErrRepairNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 0), errs.ErrRepairNotFound)
	_, err = svc.GetByID(ctx, 0)
	require.ErrorIs(t, err, errs.ErrRepairNotFound)
	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDeleteAllOnEmptyTable(t *testing.T) {
	svc := setupRepairService(t)
	n, err := svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateInPlace(t *testing.T) {
	svc := setupRepairService(t).WithClock(fixedClock("2025-03-01 10:00:00"))
	ctx := context.Background()
	r, err := svc.Create(ctx, model.RepairFields{ClientName: "Ivanov", DeviceType: "Phone"})
	require.NoError(t, err)

	svc.WithClock(fixedClock("2025-03-02 12:30:00"))
	notes := "screen ordered"
	updated, err := svc.Update(ctx, r.ID, model.RepairPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "screen ordered", updated.Notes)
	assert.Equal(t, "2025-03-01 10:00:00", updated.StatusTimestamp, "timestamp moves only with status")

	status := "in-repair"
	updated, err = svc.Update(ctx, r.ID, model.RepairPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.RepairStatusInRepair, updated.Status)
	assert.Equal(t, "2025-03-02 12:30:00", updated.StatusTimestamp)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, *updated, items[0])
}

func TestUpdateMissingOrInvalidLeavesStoreUntouched(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, model.RepairFields{ClientName: "Ivanov"})
	require.NoError(t, err)

	name := "Sidorov"
	_, err = svc.Update(ctx, r.ID+10, model.RepairPatch{ClientName: &name})
	require.ErrorIs(t, err, errs.ErrRepairNotFound)

	bad := "lost"
	_, err = svc.Update(ctx, r.ID, model.RepairPatch{ClientName: &name, Status: &bad})
	require.ErrorIs(t, err, errs.ErrInvalidStatus)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, r.ID, items[0].ID)
	assert.Equal(t, "Ivanov", items[0].ClientName)
}

func TestStorageFailurePropagates(t *testing.T) {
	svc := setupRepairService(t)
	sqlDB, err := svc.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.Create(context.Background(), model.RepairFields{})
	require.Error(t, err)
	_, err = svc.List(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, svc.Delete(context.Background(), 1), errs.ErrRepairNotFound)
}
