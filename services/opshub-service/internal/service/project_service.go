package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
)

type ProjectInput struct {
	Name          *string
	ProgramCode   *string
	Description   *string
	StartDate     *time.Time
	EndDate       *time.Time
	Status        *string
	ManagerUserID *uuid.UUID
}

type ProjectService struct {
	repo repository.ProjectRepository
}

func NewProjectService(repo repository.ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) List(ctx context.Context, tenantID uuid.UUID, status string) ([]model.Project, error) {
	return s.repo.List(ctx, tenantID, status)
}

func (s *ProjectService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error) {
	project, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Project not found")
	}
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, actor Actor, in ProjectInput) (*model.Project, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperror.BadRequest("Project name is required")
	}
	if in.StartDate == nil {
		return nil, apperror.BadRequest("Start date is required")
	}

	project := &model.Project{
		Base:   model.Base{TenantID: actor.TenantID},
		Status: model.ProjectActive,
	}
	applyProject(project, in)
	if err := validateProjectDates(project); err != nil {
		return nil, err
	}

	project.Touch(actor.UserID)
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("projects", "create")
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProjectInput) (*model.Project, error) {
	project, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Project not found")
	}
	applyProject(project, in)
	if err := validateProjectDates(project); err != nil {
		return nil, err
	}

	project.Touch(actor.UserID)
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("projects", "update")
	return project, nil
}

func applyProject(p *model.Project, in ProjectInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.ProgramCode != nil {
		p.ProgramCode = *in.ProgramCode
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.StartDate != nil {
		p.StartDate = dateOnly(*in.StartDate)
	}
	if in.EndDate != nil {
		end := dateOnly(*in.EndDate)
		p.EndDate = &end
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.ManagerUserID != nil {
		p.ManagerUserID = in.ManagerUserID
	}
}

func validateProjectDates(p *model.Project) error {
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return apperror.BadRequest("End date cannot be before start date")
	}
	return nil
}
