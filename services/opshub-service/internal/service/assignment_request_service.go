package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/notification"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

// AssignmentRequestInput describes a new staffing request
type AssignmentRequestInput struct {
	RequestedForUserID *uuid.UUID
	ProjectID          *uuid.UUID
	WbsElementID       *uuid.UUID
	StartDate          *time.Time
	EndDate            *time.Time
	AllocationPct      int
	Notes              string
	ApproverGroupID    *uuid.UUID
}

// ApproveRequestInput controls how a request is approved
type ApproveRequestInput struct {
	ApprovedByUserID *uuid.UUID
	CreateAssignment *bool
	AllocationPct    *int
	Notes            string
}

type AssignmentRequestService struct {
	repo     repository.AssignmentRequestRepository
	users    UserDirectory
	notifier notification.Dispatcher
	now      Clock
}

func NewAssignmentRequestService(repo repository.AssignmentRequestRepository, users UserDirectory, notifier notification.Dispatcher) *AssignmentRequestService {
	return &AssignmentRequestService{repo: repo, users: users, notifier: notifier, now: time.Now}
}

func (s *AssignmentRequestService) List(ctx context.Context, tenantID uuid.UUID, filter repository.AssignmentRequestFilter) ([]model.AssignmentRequest, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *AssignmentRequestService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.AssignmentRequest, error) {
	request, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment request not found")
	}
	return request, nil
}

// Create records a pending request and notifies the approver group. When the actor has no
// tenant selected the requested-for user's membership decides the tenant.
func (s *AssignmentRequestService) Create(ctx context.Context, actor Actor, in AssignmentRequestInput) (*model.AssignmentRequest, error) {
	if in.ProjectID == nil || *in.ProjectID == uuid.Nil {
		return nil, apperror.BadRequest("ProjectId is required.")
	}

	requestedFor := actor.UserID
	if in.RequestedForUserID != nil && *in.RequestedForUserID != uuid.Nil {
		requestedFor = *in.RequestedForUserID
	}

	tenantID := actor.TenantID
	if tenantID == uuid.Nil {
		membership, err := s.users.FirstActiveMembership(ctx, requestedFor)
		if err != nil {
			return nil, badRequestIfMissing(err, "Unable to determine tenant for the requested user.")
		}
		tenantID = membership.TenantID
	}

	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return nil, apperror.BadRequest("StartDate cannot be after EndDate.")
	}

	project, err := s.repo.FindProject(ctx, tenantID, *in.ProjectID)
	if err != nil {
		return nil, badRequestIfMissing(err, "Project not found for this tenant.")
	}

	if in.WbsElementID != nil {
		wbs, err := s.repo.FindWbs(ctx, tenantID, *in.WbsElementID)
		if err != nil {
			return nil, badRequestIfMissing(err, "WBS element not found for this tenant.")
		}
		if wbs.ProjectID != project.ID {
			return nil, apperror.BadRequest("WBS element does not belong to the selected project.")
		}
	}

	var group *model.Group
	if in.ApproverGroupID != nil {
		if group, err = s.repo.FindGroup(ctx, tenantID, *in.ApproverGroupID); err != nil {
			return nil, badRequestIfMissing(err, "Approver group not found for this tenant.")
		}
	} else if group, err = s.repo.EnsureDefaultGroup(ctx, tenantID); err != nil {
		return nil, err
	}

	allocation := in.AllocationPct
	if allocation <= 0 {
		allocation = defaultAllocationPct
	} else if allocation > maxAllocationPct {
		allocation = maxAllocationPct
	}

	request := &model.AssignmentRequest{
		Base:               model.Base{TenantID: tenantID},
		RequestedByUserID:  actor.UserID,
		RequestedForUserID: requestedFor,
		ProjectID:          project.ID,
		WbsElementID:       in.WbsElementID,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		AllocationPct:      allocation,
		Notes:              in.Notes,
		Status:             model.RequestPending,
		ApproverGroupID:    &group.ID,
	}
	request.Touch(actor.UserID)

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("assignment_requests", "create")

	request.Project = project
	s.notifyApprovers(ctx, request, group.ID)
	return request, nil
}

// Approve resolves a pending request and, unless disabled, creates the WBS assignment it asks for
func (s *AssignmentRequestService) Approve(ctx context.Context, actor Actor, id uuid.UUID, in ApproveRequestInput) (*model.AssignmentRequest, error) {
	request, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment request not found")
	}
	if request.Status != model.RequestPending {
		return nil, apperror.BadRequest("Request is already resolved.")
	}

	approver := actor.UserID
	if in.ApprovedByUserID != nil && *in.ApprovedByUserID != uuid.Nil {
		approver = *in.ApprovedByUserID
	}
	createAssignment := in.CreateAssignment == nil || *in.CreateAssignment

	resolved := s.now().UTC()
	request.Status = model.RequestApproved
	request.ApprovedByUserID = &approver
	request.ResolvedAt = &resolved
	if in.Notes != "" {
		request.Notes = joinNotes(request.Notes, in.Notes)
	}
	request.Touch(actor.UserID)

	var assignment *model.Assignment
	var history *model.AssignmentHistory
	switch {
	case request.AssignmentID == nil && createAssignment && request.WbsElementID != nil:
		assignment = s.assignmentFor(request, approver, in.AllocationPct)
		if history, err = s.requestHistory(request, actor.UserID, model.AssignmentActive, request.Notes); err != nil {
			return nil, err
		}
	case request.AssignmentID != nil:
		if history, err = s.requestHistory(request, actor.UserID, model.AssignmentActive, request.Notes); err != nil {
			return nil, err
		}
	case createAssignment:
		logger.FromContext(ctx).Warn("Assignment request approved without WBS element, assignment not created",
			zap.String("request_id", request.ID.String()))
	}

	if err := s.repo.Approve(ctx, request, assignment, history); err != nil {
		return nil, alreadyResolved(err)
	}
	prometheus.RecordOperation("assignment_requests", "approve")

	s.notifyParticipants(ctx, request, notification.EventRequestApproved, "")
	return request, nil
}

// Reject resolves a pending request and records the reason in its notes
func (s *AssignmentRequestService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.AssignmentRequest, error) {
	request, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment request not found")
	}
	if request.Status != model.RequestPending {
		return nil, apperror.BadRequest("Request is already resolved.")
	}

	resolved := s.now().UTC()
	request.Status = model.RequestRejected
	request.ApprovedByUserID = &actor.UserID
	request.ResolvedAt = &resolved
	if reason = strings.TrimSpace(reason); reason != "" {
		request.Notes = joinNotes(request.Notes, "Rejected: "+reason)
	}
	request.Touch(actor.UserID)

	history, err := s.requestHistory(request, actor.UserID, model.AssignmentRejected, reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, request, history); err != nil {
		return nil, alreadyResolved(err)
	}
	prometheus.RecordOperation("assignment_requests", "reject")

	s.notifyParticipants(ctx, request, notification.EventRequestRejected, reason)
	return request, nil
}

// Cancel withdraws a pending request. Only the requester or a system admin may cancel.
func (s *AssignmentRequestService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*model.AssignmentRequest, error) {
	request, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment request not found")
	}
	if request.RequestedByUserID != actor.UserID && !actor.IsSystemAdmin {
		return nil, apperror.Forbidden("Only the requester can cancel this request.")
	}
	if request.Status != model.RequestPending {
		return nil, apperror.BadRequest("Request is already resolved.")
	}

	resolved := s.now().UTC()
	request.Status = model.RequestCancelled
	request.ResolvedAt = &resolved
	request.Touch(actor.UserID)
	if err := s.repo.Cancel(ctx, request); err != nil {
		return nil, alreadyResolved(err)
	}
	prometheus.RecordOperation("assignment_requests", "cancel")
	return request, nil
}

// alreadyResolved maps a lost resolve race to 409
func alreadyResolved(err error) error {
	if errors.Is(err, repository.ErrNotPending) {
		return apperror.Conflict("Request was resolved by another user.")
	}
	return err
}

func (s *AssignmentRequestService) assignmentFor(request *model.AssignmentRequest, approver uuid.UUID, allocation *int) *model.Assignment {
	approvedAt := s.now().UTC()
	start := dateOnly(approvedAt)
	if request.StartDate != nil {
		start = *request.StartDate
	}
	pct := request.AllocationPct
	if allocation != nil && *allocation > 0 {
		pct = *allocation
	}

	a := &model.Assignment{
		Base:             model.Base{TenantID: request.TenantID},
		UserID:           request.RequestedForUserID,
		WbsElementID:     *request.WbsElementID,
		StartDate:        start,
		EndDate:          request.EndDate,
		AllocationPct:    pct,
		Status:           model.AssignmentActive,
		Notes:            request.Notes,
		ApprovedByUserID: &approver,
		ApprovedAt:       &approvedAt,
	}
	a.Touch(approver)
	return a
}

func (s *AssignmentRequestService) requestHistory(request *model.AssignmentRequest, userID uuid.UUID, status model.AssignmentStatus, notes string) (*model.AssignmentHistory, error) {
	snapshot, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	return &model.AssignmentHistory{
		TenantID:            request.TenantID,
		AssignmentID:        request.AssignmentID,
		AssignmentRequestID: &request.ID,
		ChangedByUserID:     userID,
		ChangedAt:           s.now().UTC(),
		Status:              status,
		Notes:               notes,
		Snapshot:            snapshot,
	}, nil
}

func (s *AssignmentRequestService) notifyApprovers(ctx context.Context, request *model.AssignmentRequest, groupID uuid.UUID) {
	members, err := s.repo.GroupMemberUserIDs(ctx, request.TenantID, groupID)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to load approver group members", zap.Error(err))
		return
	}
	s.dispatch(ctx, request, notification.EventRequestCreated, members, request.Notes)
}

func (s *AssignmentRequestService) notifyParticipants(ctx context.Context, request *model.AssignmentRequest, event notification.Event, notes string) {
	recipients := []uuid.UUID{request.RequestedByUserID}
	if request.RequestedForUserID != request.RequestedByUserID {
		recipients = append(recipients, request.RequestedForUserID)
	}
	s.dispatch(ctx, request, event, recipients, notes)
}

// dispatch resolves recipient emails and hands the notification off. Lookup failures are logged only.
func (s *AssignmentRequestService) dispatch(ctx context.Context, request *model.AssignmentRequest, event notification.Event, recipientIDs []uuid.UUID, notes string) {
	if s.notifier == nil {
		return
	}
	ids := append([]uuid.UUID{request.RequestedByUserID, request.RequestedForUserID}, recipientIDs...)
	users, err := s.users.UsersByID(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to resolve notification recipients", zap.Error(err))
		return
	}

	n := notification.Notification{
		Event:        event,
		TenantID:     request.TenantID,
		RequestID:    request.ID,
		RequestedFor: users[request.RequestedForUserID].DisplayName,
		RequestedBy:  users[request.RequestedByUserID].DisplayName,
		Notes:        notes,
	}
	if request.Project != nil {
		n.ProjectName = request.Project.Name
	}
	for _, id := range recipientIDs {
		if u, ok := users[id]; ok && u.IsActive && u.Email != "" {
			n.Recipients = append(n.Recipients, u.Email)
		}
	}
	s.notifier.Dispatch(ctx, n)
}

func joinNotes(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "\n" + extra
}
