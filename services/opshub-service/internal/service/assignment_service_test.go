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
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

type assignmentFixture struct {
	repo     *MockAssignmentRepository
	access   *MockAccessVerifier
	svc      *AssignmentService
	userID   uuid.UUID
	tenantID uuid.UUID
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		repo:     new(MockAssignmentRepository),
		access:   new(MockAccessVerifier),
		userID:   uuid.New(),
		tenantID: uuid.New(),
	}
	f.svc = NewAssignmentService(f.repo, f.access)
	f.svc.now = fixedClock(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	return f
}

func (f *assignmentFixture) allow() {
	f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, mock.Anything).
		Return(&identity.Access{User: identity.User{ID: f.userID}}, nil)
}

func TestAssignmentCreate(t *testing.T) {
	person, wbsID := uuid.New(), uuid.New()
	start := day(2025, 3, 10)

	t.Run("requires an editor role", func(t *testing.T) {
		f := newAssignmentFixture()
		f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, assignmentEditorRoles).
			Return(nil, apperror.Forbidden("User does not have the required role for this operation")).Once()

		_, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{UserID: &person, WbsElementID: &wbsID, StartDate: &start})

		requireAppError(t, err, http.StatusForbidden, "")
	})

	t.Run("pending with history and default allocation", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		f.repo.On("FindWbs", mock.Anything, f.tenantID, wbsID).Return(&model.WbsElement{}, nil).Once()
		f.repo.On("HasActiveOverlap", mock.Anything, f.tenantID, person, wbsID, start, (*time.Time)(nil), (*uuid.UUID)(nil)).Return(false, nil).Once()
		f.repo.On("CreateWithHistory", mock.Anything, mock.AnythingOfType("*model.Assignment"), mock.MatchedBy(func(h *model.AssignmentHistory) bool {
			return h.Status == model.AssignmentPendingApproval && len(h.Snapshot) > 0
		})).Return(nil).Once()

		a, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{UserID: &person, WbsElementID: &wbsID, StartDate: &start})

		require.NoError(t, err)
		assert.Equal(t, model.AssignmentPendingApproval, a.Status)
		assert.Equal(t, 100, a.AllocationPct)
		f.repo.AssertExpectations(t)
	})

	t.Run("unknown WBS element", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		f.repo.On("FindWbs", mock.Anything, f.tenantID, wbsID).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{UserID: &person, WbsElementID: &wbsID, StartDate: &start})

		requireAppError(t, err, http.StatusBadRequest, "WBS element not found")
	})

	t.Run("must fit inside the project assignment", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		paID := uuid.New()
		f.repo.On("FindWbs", mock.Anything, f.tenantID, wbsID).Return(&model.WbsElement{}, nil).Once()
		f.repo.On("FindProjectAssignment", mock.Anything, f.tenantID, paID).Return(&model.ProjectAssignment{
			UserID:    person,
			StartDate: day(2025, 4, 1),
		}, nil).Once()

		_, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{
			UserID: &person, WbsElementID: &wbsID, ProjectAssignmentID: &paID, StartDate: &start,
		})

		requireAppError(t, err, http.StatusBadRequest, "Assignment dates must fall within the project assignment dates")
	})

	t.Run("overlap with an active assignment on the same WBS", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		f.repo.On("FindWbs", mock.Anything, f.tenantID, wbsID).Return(&model.WbsElement{}, nil).Once()
		f.repo.On("HasActiveOverlap", mock.Anything, f.tenantID, person, wbsID, start, (*time.Time)(nil), (*uuid.UUID)(nil)).Return(true, nil).Once()

		_, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{UserID: &person, WbsElementID: &wbsID, StartDate: &start})

		requireAppError(t, err, http.StatusBadRequest, "")
	})

	t.Run("allocation above the cap", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()

		_, err := f.svc.Create(context.Background(), f.userID, f.tenantID, AssignmentInput{
			UserID: &person, WbsElementID: &wbsID, StartDate: &start, AllocationPct: ptrTo(250),
		})

		requireAppError(t, err, http.StatusBadRequest, "Allocation must be between 1 and 200 percent")
	})
}

func TestAssignmentApprove(t *testing.T) {
	f := newAssignmentFixture()
	f.allow()
	a := &model.Assignment{Base: model.Base{ID: uuid.New(), TenantID: f.tenantID}, Status: model.AssignmentPendingApproval}
	f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()
	f.repo.On("UpdateWithHistory", mock.Anything, a, mock.MatchedBy(func(h *model.AssignmentHistory) bool {
		return h.Status == model.AssignmentActive && h.ChangedByUserID == f.userID
	})).Return(nil).Once()

	got, err := f.svc.Approve(context.Background(), f.userID, f.tenantID, a.ID)

	require.NoError(t, err)
	assert.Equal(t, model.AssignmentActive, got.Status)
	assert.Equal(t, f.userID, *got.ApprovedByUserID)
	f.repo.AssertExpectations(t)
}

func TestAssignmentUpdateWithoutStatusChangeWritesNoHistory(t *testing.T) {
	f := newAssignmentFixture()
	f.allow()
	a := &model.Assignment{
		Base:          model.Base{ID: uuid.New(), TenantID: f.tenantID},
		UserID:        uuid.New(),
		WbsElementID:  uuid.New(),
		StartDate:     day(2025, 3, 1),
		AllocationPct: 50,
		Status:        model.AssignmentActive,
	}
	f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()
	f.repo.On("FindWbs", mock.Anything, f.tenantID, a.WbsElementID).Return(&model.WbsElement{}, nil).Once()
	f.repo.On("HasActiveOverlap", mock.Anything, f.tenantID, a.UserID, a.WbsElementID, a.StartDate, (*time.Time)(nil), &a.ID).Return(false, nil).Once()
	f.repo.On("UpdateWithHistory", mock.Anything, a, (*model.AssignmentHistory)(nil)).Return(nil).Once()

	got, err := f.svc.Update(context.Background(), f.userID, f.tenantID, a.ID, AssignmentInput{AllocationPct: ptrTo(80)})

	require.NoError(t, err)
	assert.Equal(t, 80, got.AllocationPct)
	f.repo.AssertExpectations(t)
}

func TestAssignmentHardDeleteRequiresTenantAdmin(t *testing.T) {
	f := newAssignmentFixture()
	id := uuid.New()
	f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, []string{identity.RoleTenantAdmin}).
		Return(&identity.Access{User: identity.User{ID: f.userID}}, nil).Once()
	f.repo.On("HardDelete", mock.Anything, f.tenantID, id, f.userID).Return(nil).Once()

	require.NoError(t, f.svc.HardDelete(context.Background(), f.userID, f.tenantID, id))
	f.access.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestAssignmentUpdateStatus(t *testing.T) {
	pending := func(f *assignmentFixture) *model.Assignment {
		return &model.Assignment{
			Base:          model.Base{ID: uuid.New(), TenantID: f.tenantID},
			UserID:        uuid.New(),
			WbsElementID:  uuid.New(),
			StartDate:     day(2025, 3, 1),
			AllocationPct: 50,
			Status:        model.AssignmentPendingApproval,
		}
	}

	t.Run("cannot activate outside approval", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		a := pending(f)
		f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()

		_, err := f.svc.Update(context.Background(), f.userID, f.tenantID, a.ID, AssignmentInput{Status: ptrTo(model.AssignmentActive)})

		requireAppError(t, err, http.StatusBadRequest, "Assignments are activated through approval")
		f.repo.AssertNotCalled(t, "UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newAssignmentFixture()
		f.allow()
		a := pending(f)
		f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()

		_, err := f.svc.Update(context.Background(), f.userID, f.tenantID, a.ID, AssignmentInput{Status: ptrTo(model.AssignmentRejected)})

		requireAppError(t, err, http.StatusBadRequest, "Invalid assignment status: Rejected")
	})

	t.Run("team lead cannot complete an active assignment", func(t *testing.T) {
		f := newAssignmentFixture()
		a := pending(f)
		a.Status = model.AssignmentActive
		f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, assignmentEditorRoles).
			Return(&identity.Access{User: identity.User{ID: f.userID}}, nil).Once()
		f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, assignmentApproverRoles).
			Return(nil, apperror.Forbidden("User does not have the required role for this operation")).Once()
		f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()

		_, err := f.svc.Update(context.Background(), f.userID, f.tenantID, a.ID, AssignmentInput{Status: ptrTo(model.AssignmentCompleted)})

		requireAppError(t, err, http.StatusForbidden, "")
		f.repo.AssertNotCalled(t, "UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("editor may withdraw a pending assignment", func(t *testing.T) {
		f := newAssignmentFixture()
		a := pending(f)
		f.access.On("VerifyUserAccess", mock.Anything, f.userID, f.tenantID, assignmentEditorRoles).
			Return(&identity.Access{User: identity.User{ID: f.userID}}, nil).Once()
		f.repo.On("Get", mock.Anything, f.tenantID, a.ID).Return(a, nil).Once()
		f.repo.On("FindWbs", mock.Anything, f.tenantID, a.WbsElementID).Return(&model.WbsElement{}, nil).Once()
		f.repo.On("HasActiveOverlap", mock.Anything, f.tenantID, a.UserID, a.WbsElementID, a.StartDate, (*time.Time)(nil), &a.ID).Return(false, nil).Once()
		f.repo.On("UpdateWithHistory", mock.Anything, a, mock.MatchedBy(func(h *model.AssignmentHistory) bool {
			return h.Status == model.AssignmentCancelled
		})).Return(nil).Once()

		got, err := f.svc.Update(context.Background(), f.userID, f.tenantID, a.ID, AssignmentInput{Status: ptrTo(model.AssignmentCancelled)})

		require.NoError(t, err)
		assert.Equal(t, model.AssignmentCancelled, got.Status)
		f.access.AssertExpectations(t)
	})
}
