package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/tidwall/gjson"
)

// ArchiveSummary is a list row of the data archive without its snapshot
type ArchiveSummary struct {
	ID               uuid.UUID `json:"id"`
	EntityType       string    `json:"entity_type"`
	EntityID         uuid.UUID `json:"entity_id"`
	Label            string    `json:"label"`
	ArchivedAt       time.Time `json:"archived_at"`
	ArchivedByUserID uuid.UUID `json:"archived_by_user_id"`
	ArchivalReason   string    `json:"archival_reason"`
	Status           string    `json:"status"`
}

type ArchiveService struct {
	repo repository.ArchiveRepository
}

func NewArchiveService(repo repository.ArchiveRepository) *ArchiveService {
	return &ArchiveService{repo: repo}
}

func (s *ArchiveService) List(ctx context.Context, tenantID uuid.UUID, entityType string) ([]ArchiveSummary, error) {
	archives, err := s.repo.List(ctx, tenantID, entityType)
	if err != nil {
		return nil, err
	}
	out := make([]ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		out = append(out, ArchiveSummary{
			ID:               a.ID,
			EntityType:       a.EntityType,
			EntityID:         a.EntityID,
			Label:            SnapshotLabel(a.EntityType, a.EntitySnapshot),
			ArchivedAt:       a.ArchivedAt,
			ArchivedByUserID: a.ArchivedByUserID,
			ArchivalReason:   a.ArchivalReason,
			Status:           a.Status,
		})
	}
	return out, nil
}

func (s *ArchiveService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.DataArchive, error) {
	archive, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Archive entry not found")
	}
	return archive, nil
}

// SnapshotLabel picks a human readable name out of an archived JSON snapshot
func SnapshotLabel(entityType string, snapshot []byte) string {
	switch entityType {
	case model.EntitySalesContact:
		name := strings.TrimSpace(gjson.GetBytes(snapshot, "first_name").String() + " " +
			gjson.GetBytes(snapshot, "last_name").String())
		if name != "" {
			return name
		}
	case model.EntitySalesOpportunity:
		number := gjson.GetBytes(snapshot, "opportunity_number").String()
		name := gjson.GetBytes(snapshot, "name").String()
		if number != "" {
			return strings.TrimSpace(number + " " + name)
		}
	case model.EntityProjectAssignment, model.EntityAssignment:
		user := gjson.GetBytes(snapshot, "user_id").String()
		start := gjson.GetBytes(snapshot, "start_date").String()
		if len(start) >= len(dateLayout) {
			start = start[:len(dateLayout)]
		}
		if user != "" {
			return user + " from " + start
		}
	}

	for _, path := range []string{"name", "title", "code"} {
		if v := gjson.GetBytes(snapshot, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return gjson.GetBytes(snapshot, "id").String()
}
