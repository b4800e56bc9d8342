package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

type ArchiveRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, entityType string) ([]model.DataArchive, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.DataArchive, error)
}

type archiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

func (r *archiveRepository) List(ctx context.Context, tenantID uuid.UUID, entityType string) ([]model.DataArchive, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var archives []model.DataArchive
	if err := query.Order("archived_at desc").Find(&archives).Error; err != nil {
		return nil, errors.Wrap(err, "list data archives")
	}
	return archives, nil
}

func (r *archiveRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.DataArchive, error) {
	var archive model.DataArchive
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&archive).Error; err != nil {
		return nil, errors.Wrap(err, "get data archive")
	}
	return &archive, nil
}
