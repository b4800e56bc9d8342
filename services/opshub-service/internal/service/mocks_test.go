package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/notification"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
)

type MockAccessVerifier struct {
	mock.Mock
}

func (m *MockAccessVerifier) VerifyUserAccess(ctx context.Context, userID, tenantID uuid.UUID, requiredRoles ...string) (*identity.Access, error) {
	args := m.Called(ctx, userID, tenantID, requiredRoles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Access), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindMember(ctx context.Context, tenantID, userID uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserDirectory) FindMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*identity.User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserDirectory) UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]identity.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]identity.User), args.Error(1)
}

func (m *MockUserDirectory) FirstActiveMembership(ctx context.Context, userID uuid.UUID) (*identity.TenantMembership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.TenantMembership), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, n notification.Notification) {
	m.Called(ctx, n)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.BookingFilter) ([]model.Booking, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindSpace(ctx context.Context, tenantID, spaceID uuid.UUID) (*model.Space, error) {
	args := m.Called(ctx, tenantID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Space), args.Error(1)
}

func (m *MockBookingRepository) HasConflict(ctx context.Context, tenantID, spaceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, spaceID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *MockBookingRepository) UpdateVersioned(ctx context.Context, booking *model.Booking, expectedVersion int) error {
	return m.Called(ctx, booking, expectedVersion).Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockBookingRepository) CheckIn(ctx context.Context, booking *model.Booking, event *model.CheckInEvent) error {
	return m.Called(ctx, booking, event).Error(0)
}

func (m *MockBookingRepository) MarkNoShows(ctx context.Context, startedBefore time.Time) (int64, error) {
	args := m.Called(ctx, startedBefore)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) CountActiveByTenant(ctx context.Context, at time.Time) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

type MockWbsRepository struct {
	mock.Mock
}

func (m *MockWbsRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.WbsFilter) ([]model.WbsElement, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.WbsElement), args.Error(1)
}

func (m *MockWbsRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WbsElement), args.Error(1)
}

func (m *MockWbsRepository) ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWbsRepository) CodeExists(ctx context.Context, tenantID, projectID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, projectID, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWbsRepository) CreateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error {
	return m.Called(ctx, wbs, history).Error(0)
}

func (m *MockWbsRepository) UpdateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error {
	return m.Called(ctx, wbs, history).Error(0)
}

func (m *MockWbsRepository) History(ctx context.Context, tenantID, wbsID uuid.UUID) ([]model.WbsChangeHistory, error) {
	args := m.Called(ctx, tenantID, wbsID)
	return args.Get(0).([]model.WbsChangeHistory), args.Error(1)
}

func (m *MockWbsRepository) PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error) {
	args := m.Called(ctx, tenantID, approverID)
	return args.Get(0).([]model.WbsElement), args.Error(1)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) List(ctx context.Context, tenantID uuid.UUID, status string) ([]model.Project, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *model.Project) error {
	return m.Called(ctx, project).Error(0)
}

type MockProjectAssignmentRepository struct {
	mock.Mock
}

func (m *MockProjectAssignmentRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.ProjectAssignmentFilter) ([]model.ProjectAssignment, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.ProjectAssignment), args.Error(1)
}

func (m *MockProjectAssignmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectAssignment), args.Error(1)
}

func (m *MockProjectAssignmentRepository) HasActiveOverlap(ctx context.Context, tenantID, userID, projectID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, userID, projectID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectAssignmentRepository) ChildAssignments(ctx context.Context, tenantID, projectAssignmentID uuid.UUID) ([]model.Assignment, error) {
	args := m.Called(ctx, tenantID, projectAssignmentID)
	return args.Get(0).([]model.Assignment), args.Error(1)
}

func (m *MockProjectAssignmentRepository) CountChildren(ctx context.Context, tenantID, projectAssignmentID uuid.UUID, status *model.AssignmentStatus) (int64, error) {
	args := m.Called(ctx, tenantID, projectAssignmentID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectAssignmentRepository) Create(ctx context.Context, pa *model.ProjectAssignment) error {
	return m.Called(ctx, pa).Error(0)
}

func (m *MockProjectAssignmentRepository) Update(ctx context.Context, pa *model.ProjectAssignment) error {
	return m.Called(ctx, pa).Error(0)
}

func (m *MockProjectAssignmentRepository) SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error {
	return m.Called(ctx, tenantID, id, userID, reason).Error(0)
}

func (m *MockProjectAssignmentRepository) Restore(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockProjectAssignmentRepository) HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error {
	return m.Called(ctx, tenantID, id, userID).Error(0)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.AssignmentFilter) ([]model.Assignment, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Assignment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error) {
	args := m.Called(ctx, tenantID, wbsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WbsElement), args.Error(1)
}

func (m *MockAssignmentRepository) FindProjectAssignment(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) HasActiveOverlap(ctx context.Context, tenantID, userID, wbsID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, userID, wbsID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssignmentRepository) CreateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return m.Called(ctx, assignment, history).Error(0)
}

func (m *MockAssignmentRepository) UpdateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return m.Called(ctx, assignment, history).Error(0)
}

func (m *MockAssignmentRepository) History(ctx context.Context, tenantID, assignmentID uuid.UUID) ([]model.AssignmentHistory, error) {
	args := m.Called(ctx, tenantID, assignmentID)
	return args.Get(0).([]model.AssignmentHistory), args.Error(1)
}

func (m *MockAssignmentRepository) SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error {
	return m.Called(ctx, tenantID, id, userID, reason).Error(0)
}

func (m *MockAssignmentRepository) Restore(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockAssignmentRepository) HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error {
	return m.Called(ctx, tenantID, id, userID).Error(0)
}

type MockAssignmentRequestRepository struct {
	mock.Mock
}

func (m *MockAssignmentRequestRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.AssignmentRequestFilter) ([]model.AssignmentRequest, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.AssignmentRequest), args.Error(1)
}

func (m *MockAssignmentRequestRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.AssignmentRequest, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AssignmentRequest), args.Error(1)
}

func (m *MockAssignmentRequestRepository) FindProject(ctx context.Context, tenantID, projectID uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, tenantID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockAssignmentRequestRepository) FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error) {
	args := m.Called(ctx, tenantID, wbsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WbsElement), args.Error(1)
}

func (m *MockAssignmentRequestRepository) FindGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*model.Group, error) {
	args := m.Called(ctx, tenantID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockAssignmentRequestRepository) EnsureDefaultGroup(ctx context.Context, tenantID uuid.UUID) (*model.Group, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockAssignmentRequestRepository) GroupMemberUserIDs(ctx context.Context, tenantID, groupID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, groupID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockAssignmentRequestRepository) Create(ctx context.Context, request *model.AssignmentRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockAssignmentRequestRepository) Cancel(ctx context.Context, request *model.AssignmentRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockAssignmentRequestRepository) Approve(ctx context.Context, request *model.AssignmentRequest, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return m.Called(ctx, request, assignment, history).Error(0)
}

func (m *MockAssignmentRequestRepository) Reject(ctx context.Context, request *model.AssignmentRequest, history *model.AssignmentHistory) error {
	return m.Called(ctx, request, history).Error(0)
}

type MockCostRateRepository struct {
	mock.Mock
}

func (m *MockCostRateRepository) List(ctx context.Context, tenantID uuid.UUID, filter repository.CostRateFilter) ([]model.EmployeeCostRate, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]model.EmployeeCostRate), args.Error(1)
}

func (m *MockCostRateRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.EmployeeCostRate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmployeeCostRate), args.Error(1)
}

func (m *MockCostRateRepository) Effective(ctx context.Context, tenantID, userID uuid.UUID, asOf time.Time) (*model.EmployeeCostRate, error) {
	args := m.Called(ctx, tenantID, userID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmployeeCostRate), args.Error(1)
}

func (m *MockCostRateRepository) History(ctx context.Context, tenantID, userID uuid.UUID) ([]model.EmployeeCostRate, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).([]model.EmployeeCostRate), args.Error(1)
}

func (m *MockCostRateRepository) CreateClosingPrevious(ctx context.Context, rate *model.EmployeeCostRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *MockCostRateRepository) Update(ctx context.Context, rate *model.EmployeeCostRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *MockCostRateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockCostRateRepository) CreateBatch(ctx context.Context, batch *model.CostRateImportBatch) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *MockCostRateRepository) ImportRates(ctx context.Context, batch *model.CostRateImportBatch, rates []*model.EmployeeCostRate) error {
	return m.Called(ctx, batch, rates).Error(0)
}

func (m *MockCostRateRepository) UpdateBatch(ctx context.Context, batch *model.CostRateImportBatch) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *MockCostRateRepository) ImportHistory(ctx context.Context, tenantID uuid.UUID) ([]model.CostRateImportBatch, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]model.CostRateImportBatch), args.Error(1)
}

type MockCustomFieldRepository struct {
	mock.Mock
}

func (m *MockCustomFieldRepository) ListDefinitions(ctx context.Context, tenantID uuid.UUID, entityType string, includeInactive bool) ([]model.CustomFieldDefinition, error) {
	args := m.Called(ctx, tenantID, entityType, includeInactive)
	return args.Get(0).([]model.CustomFieldDefinition), args.Error(1)
}

func (m *MockCustomFieldRepository) GetDefinition(ctx context.Context, tenantID, id uuid.UUID) (*model.CustomFieldDefinition, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CustomFieldDefinition), args.Error(1)
}

func (m *MockCustomFieldRepository) FieldNameExists(ctx context.Context, tenantID uuid.UUID, entityType, fieldName string) (bool, error) {
	args := m.Called(ctx, tenantID, entityType, fieldName)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomFieldRepository) MaxSortOrder(ctx context.Context, tenantID uuid.UUID, entityType string) (int, error) {
	args := m.Called(ctx, tenantID, entityType)
	return args.Int(0), args.Error(1)
}

func (m *MockCustomFieldRepository) CreateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error {
	return m.Called(ctx, def).Error(0)
}

func (m *MockCustomFieldRepository) UpdateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error {
	return m.Called(ctx, def).Error(0)
}

func (m *MockCustomFieldRepository) Reorder(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	return m.Called(ctx, tenantID, ids).Error(0)
}

func (m *MockCustomFieldRepository) Values(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]model.CustomFieldValue, error) {
	args := m.Called(ctx, tenantID, entityType, entityID)
	return args.Get(0).([]model.CustomFieldValue), args.Error(1)
}

func (m *MockCustomFieldRepository) UpsertValues(ctx context.Context, values []model.CustomFieldValue) error {
	return m.Called(ctx, values).Error(0)
}

func (m *MockCustomFieldRepository) DeleteValue(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) ForRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]model.RolePermission, error) {
	args := m.Called(ctx, tenantID, roles)
	return args.Get(0).([]model.RolePermission), args.Error(1)
}

func (m *MockPermissionRepository) HasGrant(ctx context.Context, tenantID uuid.UUID, roles []string, resource, action string) (bool, error) {
	args := m.Called(ctx, tenantID, roles, resource, action)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionRepository) CountGlobal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPermissionRepository) CreateAll(ctx context.Context, permissions []model.RolePermission) error {
	return m.Called(ctx, permissions).Error(0)
}

type MockCalendarRepository struct {
	mock.Mock
}

func (m *MockCalendarRepository) Holidays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.CompanyHoliday, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]model.CompanyHoliday), args.Error(1)
}

func (m *MockCalendarRepository) CreateHoliday(ctx context.Context, holiday *model.CompanyHoliday) error {
	return m.Called(ctx, holiday).Error(0)
}

func (m *MockCalendarRepository) DeleteHoliday(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockCalendarRepository) TimeOff(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, status string, from, to time.Time) ([]model.TimeOffEntry, error) {
	args := m.Called(ctx, tenantID, userID, status, from, to)
	return args.Get(0).([]model.TimeOffEntry), args.Error(1)
}

func (m *MockCalendarRepository) CreateTimeOff(ctx context.Context, entry *model.TimeOffEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockCalendarRepository) GetTimeOff(ctx context.Context, tenantID, id uuid.UUID) (*model.TimeOffEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if v := args.Get(0); v != nil {
		return v.(*model.TimeOffEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCalendarRepository) ReviewTimeOff(ctx context.Context, entry *model.TimeOffEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTo[T any](v T) *T { return &v }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
