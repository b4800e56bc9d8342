//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("opshub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(identity.Models(), model.All()...)...))
	return db
}

func TestHardDeleteArchivesSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	office := &model.Office{Base: model.Base{TenantID: tenantID}, Name: "HQ", City: "Bangkok", IsActive: true}
	require.NoError(t, db.Create(office).Error)

	var deleted model.Office
	require.NoError(t, HardDelete(ctx, db, &deleted, model.EntityOffice, tenantID, office.ID, userID))
	assert.Equal(t, "HQ", deleted.Name)

	var count int64
	require.NoError(t, db.Model(&model.Office{}).Where("id = ?", office.ID).Count(&count).Error)
	assert.Zero(t, count)

	var archive model.DataArchive
	require.NoError(t, db.Where("entity_id = ?", office.ID).First(&archive).Error)
	assert.Equal(t, model.EntityOffice, archive.EntityType)
	assert.Equal(t, model.ArchiveStatusPermanentlyDeleted, archive.Status)
	assert.Equal(t, model.HardDeleteReason, archive.ArchivalReason)
	assert.Contains(t, string(archive.EntitySnapshot), `"HQ"`)

	// other tenants cannot reach the row
	err := HardDelete(ctx, db, &model.Office{}, model.EntityOffice, uuid.New(), office.ID, userID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	office := &model.Office{Base: model.Base{TenantID: tenantID}, Name: "Annex", IsActive: true}
	require.NoError(t, db.Create(office).Error)

	require.NoError(t, SoftDelete(ctx, db, &model.Office{}, tenantID, office.ID, userID, "moved out"))

	var stored model.Office
	require.NoError(t, db.First(&stored, "id = ?", office.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, "moved out", stored.DeletionReason)

	require.NoError(t, Restore(ctx, db, &model.Office{}, tenantID, office.ID))
	require.NoError(t, db.First(&stored, "id = ?", office.ID).Error)
	assert.False(t, stored.IsDeleted)
	assert.Nil(t, stored.DeletedByUserID)

	assert.ErrorIs(t, Restore(ctx, db, &model.Office{}, tenantID, office.ID), gorm.ErrRecordNotFound)
}

func TestBookingConflictAgainstPostgres(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewBookingRepository(db)
	tenantID := uuid.New()

	office := &model.Office{Base: model.Base{TenantID: tenantID}, Name: "HQ", IsActive: true}
	require.NoError(t, db.Create(office).Error)
	space := &model.Space{Base: model.Base{TenantID: tenantID}, OfficeID: office.ID, Name: "Desk 1", Type: "Desk", Capacity: 1, IsActive: true}
	require.NoError(t, db.Create(space).Error)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	booking := &model.Booking{
		Base:          model.Base{TenantID: tenantID},
		SpaceID:       space.ID,
		UserID:        uuid.New(),
		StartDatetime: start,
		EndDatetime:   start.Add(2 * time.Hour),
		Status:        model.BookingReserved,
		Version:       1,
	}
	require.NoError(t, repo.Create(ctx, booking))

	conflict, err := repo.HasConflict(ctx, tenantID, space.ID, start.Add(time.Hour), start.Add(3*time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = repo.HasConflict(ctx, tenantID, space.ID, start.Add(time.Hour), start.Add(3*time.Hour), &booking.ID)
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = repo.HasConflict(ctx, tenantID, space.ID, start.Add(2*time.Hour), start.Add(3*time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, conflict, "back-to-back bookings do not overlap")
}
