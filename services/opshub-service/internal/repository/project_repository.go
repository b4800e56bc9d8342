package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, status string) ([]model.Project, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error)
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) List(ctx context.Context, tenantID uuid.UUID, status string) ([]model.Project, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var projects []model.Project
	if err := query.Order("name asc").Find(&projects).Error; err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	return projects, nil
}

func (r *projectRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&project).Error; err != nil {
		return nil, errors.Wrap(err, "get project")
	}
	return &project, nil
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(project).Error, "create project")
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(project).Error, "update project")
}
