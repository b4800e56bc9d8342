package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type mockWbsService struct {
	mock.Mock
}

func (m *mockWbsService) element(args mock.Arguments) (*model.WbsElement, error) {
	wbs, _ := args.Get(0).(*model.WbsElement)
	return wbs, args.Error(1)
}

func (m *mockWbsService) List(ctx context.Context, tenantID uuid.UUID, filter repository.WbsFilter) ([]model.WbsElement, error) {
	args := m.Called(ctx, tenantID, filter)
	list, _ := args.Get(0).([]model.WbsElement)
	return list, args.Error(1)
}

func (m *mockWbsService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, tenantID, id))
}

func (m *mockWbsService) PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error) {
	args := m.Called(ctx, tenantID, approverID)
	list, _ := args.Get(0).([]model.WbsElement)
	return list, args.Error(1)
}

func (m *mockWbsService) History(ctx context.Context, tenantID, id uuid.UUID) ([]model.WbsChangeHistory, error) {
	args := m.Called(ctx, tenantID, id)
	list, _ := args.Get(0).([]model.WbsChangeHistory)
	return list, args.Error(1)
}

func (m *mockWbsService) Create(ctx context.Context, actor service.Actor, in service.WbsInput) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, in))
}

func (m *mockWbsService) Update(ctx context.Context, actor service.Actor, id uuid.UUID, in service.WbsInput) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, in))
}

func (m *mockWbsService) Submit(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, notes))
}

func (m *mockWbsService) Approve(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, notes))
}

func (m *mockWbsService) Reject(ctx context.Context, actor service.Actor, id uuid.UUID, reason string) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, reason))
}

func (m *mockWbsService) Suspend(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, notes))
}

func (m *mockWbsService) Close(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return m.element(m.Called(ctx, actor, id, notes))
}

func TestWbsTransitionRejectsForeignUser(t *testing.T) {
	svc := new(mockWbsService)
	h := NewWbsHandler(svc, stubAccess{roles: []string{identity.RoleProjectManager}})
	userID, tenantID, wbsID := uuid.New(), uuid.New(), uuid.New()

	c, rec := newRequest(http.MethodPost, "/api/wbs/"+wbsID.String()+"/approve",
		strings.NewReader(`{"user_id":"`+uuid.NewString()+`","notes":"ok"}`))
	c.SetParamNames("id")
	c.SetParamValues(wbsID.String())
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.transition("approve", svc.Approve)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "user_id does not match the authenticated user", errorBody(t, rec))
	svc.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWbsTransitionActsAsTokenUser(t *testing.T) {
	userID, tenantID, wbsID := uuid.New(), uuid.New(), uuid.New()

	for name, body := range map[string]string{
		"matching user": `{"user_id":"` + userID.String() + `","notes":"ready"}`,
		"no user":       `{"notes":"ready"}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := new(mockWbsService)
			h := NewWbsHandler(svc, stubAccess{roles: []string{identity.RoleEmployee}})

			svc.On("Submit", mock.Anything, mock.MatchedBy(func(a service.Actor) bool {
				return a.UserID == userID && a.TenantID == tenantID
			}), wbsID, "ready").Return(&model.WbsElement{Base: model.Base{ID: wbsID}, ApprovalStatus: model.WbsApprovalPendingApproval}, nil)

			c, rec := newRequest(http.MethodPost, "/api/wbs/"+wbsID.String()+"/submit", strings.NewReader(body))
			c.SetParamNames("id")
			c.SetParamValues(wbsID.String())
			authenticate(c, userID, tenantID, tenantID)

			require.NoError(t, h.transition("submit", svc.Submit)(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestWbsTransitionInvalidID(t *testing.T) {
	svc := new(mockWbsService)
	h := NewWbsHandler(svc, stubAccess{})
	userID, tenantID := uuid.New(), uuid.New()

	c, rec := newRequest(http.MethodPost, "/api/wbs/nope/close", strings.NewReader(`{}`))
	c.SetParamNames("id")
	c.SetParamValues("nope")
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.transition("close", svc.Close)(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", errorBody(t, rec))
}

func TestWbsCreateValidatesType(t *testing.T) {
	svc := new(mockWbsService)
	h := NewWbsHandler(svc, stubAccess{roles: []string{identity.RoleProjectManager}})
	userID, tenantID := uuid.New(), uuid.New()

	c, rec := newRequest(http.MethodPost, "/api/wbs", strings.NewReader(`{"code":"W-1","type":"Internal"}`))
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}
