// Package repository holds the gorm-backed data access for the opshub service.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// ErrStaleVersion is returned when an optimistic concurrency check fails
var ErrStaleVersion = errors.New("record was modified by another request")

// ErrNotPending is returned when a conditional status change finds the row already resolved
var ErrNotPending = errors.New("record is no longer pending")

// now is replaced in tests
var now = time.Now

// notDeleted scopes a query to rows that are not soft deleted
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// SoftDelete hides a row of entity's table. entity is a pointer to an empty model value.
func SoftDelete(ctx context.Context, db *gorm.DB, entity interface{}, tenantID, id, userID uuid.UUID, reason string) error {
	result := db.WithContext(ctx).Model(entity).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		Updates(model.SoftDeleteColumns(userID, reason, now()))
	if result.Error != nil {
		return errors.Wrap(result.Error, "soft delete")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore reverses a soft delete. Rows that are missing or not deleted yield gorm.ErrRecordNotFound.
func Restore(ctx context.Context, db *gorm.DB, entity interface{}, tenantID, id uuid.UUID) error {
	result := db.WithContext(ctx).Model(entity).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, true).
		Updates(model.RestoreColumns())
	if result.Error != nil {
		return errors.Wrap(result.Error, "restore")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HardDelete snapshots the row into data_archives and removes it in one transaction.
// entity is a pointer to an empty model value and is filled with the deleted row.
func HardDelete(ctx context.Context, db *gorm.DB, entity interface{}, entityType string, tenantID, id, userID uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(entity).Error; err != nil {
			return err
		}

		snapshot, err := json.Marshal(entity)
		if err != nil {
			return errors.Wrap(err, "snapshot entity")
		}

		archive := model.DataArchive{
			TenantID:         tenantID,
			EntityType:       entityType,
			EntityID:         id,
			EntitySnapshot:   snapshot,
			ArchivedAt:       now(),
			ArchivedByUserID: userID,
			ArchivalReason:   model.HardDeleteReason,
			Status:           model.ArchiveStatusPermanentlyDeleted,
		}
		if err := tx.Create(&archive).Error; err != nil {
			return errors.Wrap(err, "create archive")
		}

		if err := tx.Delete(entity).Error; err != nil {
			return errors.Wrap(err, "delete entity")
		}
		return nil
	})
}
