package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/notification"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"gorm.io/gorm"
)

type requestFixture struct {
	repo     *MockAssignmentRequestRepository
	users    *MockUserDirectory
	notifier *MockDispatcher
	svc      *AssignmentRequestService
}

func newRequestFixture() *requestFixture {
	f := &requestFixture{
		repo:     new(MockAssignmentRequestRepository),
		users:    new(MockUserDirectory),
		notifier: new(MockDispatcher),
	}
	f.svc = NewAssignmentRequestService(f.repo, f.users, f.notifier)
	f.svc.now = fixedClock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	return f
}

func TestAssignmentRequestCreate(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	project := &model.Project{Base: model.Base{ID: uuid.New(), TenantID: actor.TenantID}, Name: "Apollo"}
	group := &model.Group{Base: model.Base{ID: uuid.New()}, Name: model.DefaultApproverGroupName}

	t.Run("project is required", func(t *testing.T) {
		f := newRequestFixture()

		_, err := f.svc.Create(context.Background(), actor, AssignmentRequestInput{})

		requireAppError(t, err, http.StatusBadRequest, "ProjectId is required.")
	})

	t.Run("start after end", func(t *testing.T) {
		f := newRequestFixture()

		_, err := f.svc.Create(context.Background(), actor, AssignmentRequestInput{
			ProjectID: &project.ID,
			StartDate: ptrTo(day(2025, 7, 1)),
			EndDate:   ptrTo(day(2025, 6, 1)),
		})

		requireAppError(t, err, http.StatusBadRequest, "StartDate cannot be after EndDate.")
	})

	t.Run("WBS element from another project", func(t *testing.T) {
		f := newRequestFixture()
		wbsID := uuid.New()
		f.repo.On("FindProject", mock.Anything, actor.TenantID, project.ID).Return(project, nil).Once()
		f.repo.On("FindWbs", mock.Anything, actor.TenantID, wbsID).Return(&model.WbsElement{ProjectID: uuid.New()}, nil).Once()

		_, err := f.svc.Create(context.Background(), actor, AssignmentRequestInput{ProjectID: &project.ID, WbsElementID: &wbsID})

		requireAppError(t, err, http.StatusBadRequest, "WBS element does not belong to the selected project.")
	})

	t.Run("defaults the approver group, clamps allocation and notifies approvers", func(t *testing.T) {
		f := newRequestFixture()
		approverID := uuid.New()

		f.repo.On("FindProject", mock.Anything, actor.TenantID, project.ID).Return(project, nil).Once()
		f.repo.On("EnsureDefaultGroup", mock.Anything, actor.TenantID).Return(group, nil).Once()
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*model.AssignmentRequest")).Return(nil).Once()
		f.repo.On("GroupMemberUserIDs", mock.Anything, actor.TenantID, group.ID).Return([]uuid.UUID{approverID}, nil).Once()
		f.users.On("UsersByID", mock.Anything, mock.Anything).Return(map[uuid.UUID]identity.User{
			actor.UserID: {ID: actor.UserID, DisplayName: "Requester", Email: "req@example.com", IsActive: true},
			approverID:   {ID: approverID, DisplayName: "Approver", Email: "boss@example.com", IsActive: true},
		}, nil).Once()
		f.notifier.On("Dispatch", mock.Anything, mock.MatchedBy(func(n notification.Notification) bool {
			return n.Event == notification.EventRequestCreated &&
				n.ProjectName == "Apollo" &&
				len(n.Recipients) == 1 && n.Recipients[0] == "boss@example.com"
		})).Once()

		request, err := f.svc.Create(context.Background(), actor, AssignmentRequestInput{ProjectID: &project.ID, AllocationPct: 500})

		require.NoError(t, err)
		assert.Equal(t, model.RequestPending, request.Status)
		assert.Equal(t, 200, request.AllocationPct)
		assert.Equal(t, actor.UserID, request.RequestedForUserID)
		assert.Equal(t, group.ID, *request.ApproverGroupID)
		f.notifier.AssertExpectations(t)
	})

	t.Run("tenant falls back to the requested user's membership", func(t *testing.T) {
		f := newRequestFixture()
		noTenant := Actor{UserID: actor.UserID}
		other := uuid.New()
		f.users.On("FirstActiveMembership", mock.Anything, other).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := f.svc.Create(context.Background(), noTenant, AssignmentRequestInput{ProjectID: &project.ID, RequestedForUserID: &other})

		requireAppError(t, err, http.StatusBadRequest, "Unable to determine tenant for the requested user.")
	})
}

func TestAssignmentRequestApprove(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}

	pending := func(wbsID *uuid.UUID) *model.AssignmentRequest {
		return &model.AssignmentRequest{
			Base:               model.Base{ID: uuid.New(), TenantID: actor.TenantID},
			RequestedByUserID:  uuid.New(),
			RequestedForUserID: uuid.New(),
			ProjectID:          uuid.New(),
			WbsElementID:       wbsID,
			AllocationPct:      60,
			Status:             model.RequestPending,
		}
	}

	t.Run("already resolved", func(t *testing.T) {
		f := newRequestFixture()
		req := pending(nil)
		req.Status = model.RequestRejected
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()

		_, err := f.svc.Approve(context.Background(), actor, req.ID, ApproveRequestInput{})

		requireAppError(t, err, http.StatusBadRequest, "Request is already resolved.")
	})

	t.Run("creates one active assignment with history", func(t *testing.T) {
		f := newRequestFixture()
		wbsID := uuid.New()
		req := pending(&wbsID)
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Approve", mock.Anything, req,
			mock.MatchedBy(func(a *model.Assignment) bool {
				return a != nil && a.Status == model.AssignmentActive && a.WbsElementID == wbsID &&
					a.UserID == req.RequestedForUserID && a.AllocationPct == 60 &&
					a.StartDate.Equal(day(2025, 6, 2))
			}),
			mock.MatchedBy(func(h *model.AssignmentHistory) bool {
				return h != nil && h.Status == model.AssignmentActive && *h.AssignmentRequestID == req.ID
			}),
		).Return(nil).Once()
		f.users.On("UsersByID", mock.Anything, mock.Anything).Return(map[uuid.UUID]identity.User{}, nil).Once()
		f.notifier.On("Dispatch", mock.Anything, mock.Anything).Once()

		got, err := f.svc.Approve(context.Background(), actor, req.ID, ApproveRequestInput{})

		require.NoError(t, err)
		assert.Equal(t, model.RequestApproved, got.Status)
		assert.Equal(t, actor.UserID, *got.ApprovedByUserID)
		assert.NotNil(t, got.ResolvedAt)
		f.repo.AssertExpectations(t)
	})

	t.Run("no assignment without a WBS element", func(t *testing.T) {
		f := newRequestFixture()
		req := pending(nil)
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Approve", mock.Anything, req, (*model.Assignment)(nil), (*model.AssignmentHistory)(nil)).Return(nil).Once()
		f.users.On("UsersByID", mock.Anything, mock.Anything).Return(map[uuid.UUID]identity.User{}, nil).Once()
		f.notifier.On("Dispatch", mock.Anything, mock.Anything).Once()

		_, err := f.svc.Approve(context.Background(), actor, req.ID, ApproveRequestInput{})

		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("assignment creation can be disabled", func(t *testing.T) {
		f := newRequestFixture()
		wbsID := uuid.New()
		req := pending(&wbsID)
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Approve", mock.Anything, req, (*model.Assignment)(nil), (*model.AssignmentHistory)(nil)).Return(nil).Once()
		f.users.On("UsersByID", mock.Anything, mock.Anything).Return(map[uuid.UUID]identity.User{}, nil).Once()
		f.notifier.On("Dispatch", mock.Anything, mock.Anything).Once()

		_, err := f.svc.Approve(context.Background(), actor, req.ID, ApproveRequestInput{CreateAssignment: ptrTo(false)})

		require.NoError(t, err)
	})
}

func TestAssignmentRequestReject(t *testing.T) {
	f := newRequestFixture()
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	req := &model.AssignmentRequest{
		Base:   model.Base{ID: uuid.New(), TenantID: actor.TenantID},
		Notes:  "Need a backend dev",
		Status: model.RequestPending,
	}
	f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
	f.repo.On("Reject", mock.Anything, req, mock.MatchedBy(func(h *model.AssignmentHistory) bool {
		return h.Status == model.AssignmentRejected && h.Notes == "No budget"
	})).Return(nil).Once()
	f.users.On("UsersByID", mock.Anything, mock.Anything).Return(map[uuid.UUID]identity.User{}, nil).Once()
	f.notifier.On("Dispatch", mock.Anything, mock.MatchedBy(func(n notification.Notification) bool {
		return n.Event == notification.EventRequestRejected
	})).Once()

	got, err := f.svc.Reject(context.Background(), actor, req.ID, "No budget")

	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, got.Status)
	assert.Equal(t, "Need a backend dev\nRejected: No budget", got.Notes)
	f.repo.AssertExpectations(t)
}

func TestAssignmentRequestCancelByRequesterOnly(t *testing.T) {
	f := newRequestFixture()
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	req := &model.AssignmentRequest{
		Base:              model.Base{ID: uuid.New()},
		RequestedByUserID: uuid.New(),
		Status:            model.RequestPending,
	}
	f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()

	_, err := f.svc.Cancel(context.Background(), actor, req.ID)

	requireAppError(t, err, http.StatusForbidden, "")
}

func TestAssignmentRequestResolveRace(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	pendingRequest := func() *model.AssignmentRequest {
		return &model.AssignmentRequest{
			Base:              model.Base{ID: uuid.New(), TenantID: actor.TenantID},
			RequestedByUserID: actor.UserID,
			Status:            model.RequestPending,
		}
	}

	t.Run("approve after another approver won", func(t *testing.T) {
		f := newRequestFixture()
		req := pendingRequest()
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Approve", mock.Anything, req, mock.Anything, mock.Anything).Return(repository.ErrNotPending).Once()

		_, err := f.svc.Approve(context.Background(), actor, req.ID, ApproveRequestInput{})

		requireAppError(t, err, http.StatusConflict, "Request was resolved by another user.")
		f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("reject after approval", func(t *testing.T) {
		f := newRequestFixture()
		req := pendingRequest()
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Reject", mock.Anything, req, mock.Anything).Return(repository.ErrNotPending).Once()

		_, err := f.svc.Reject(context.Background(), actor, req.ID, "late")

		requireAppError(t, err, http.StatusConflict, "Request was resolved by another user.")
	})

	t.Run("cancel after approval", func(t *testing.T) {
		f := newRequestFixture()
		req := pendingRequest()
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Cancel", mock.Anything, req).Return(repository.ErrNotPending).Once()

		_, err := f.svc.Cancel(context.Background(), actor, req.ID)

		requireAppError(t, err, http.StatusConflict, "Request was resolved by another user.")
	})

	t.Run("cancel while pending", func(t *testing.T) {
		f := newRequestFixture()
		req := pendingRequest()
		f.repo.On("Get", mock.Anything, actor.TenantID, req.ID).Return(req, nil).Once()
		f.repo.On("Cancel", mock.Anything, req).Return(nil).Once()

		got, err := f.svc.Cancel(context.Background(), actor, req.ID)

		require.NoError(t, err)
		assert.Equal(t, model.RequestCancelled, got.Status)
	})
}
