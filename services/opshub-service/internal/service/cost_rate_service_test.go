package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/spreadsheet"
	"gorm.io/gorm"
)

func newCostRateFixture() (*CostRateService, *MockCostRateRepository, *MockUserDirectory) {
	repo := new(MockCostRateRepository)
	users := new(MockUserDirectory)
	svc := NewCostRateService(repo, users)
	svc.now = fixedClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	return svc, repo, users
}

func TestCostRateCreate(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	userID := uuid.New()

	t.Run("unknown user", func(t *testing.T) {
		svc, _, users := newCostRateFixture()
		users.On("FindMember", mock.Anything, actor.TenantID, userID).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := svc.Create(context.Background(), actor, CostRateInput{
			UserID:         &userID,
			EffectiveDate:  ptrTo(day(2025, 1, 1)),
			LoadedCostRate: ptrTo(decimal.NewFromInt(100)),
		})

		requireAppError(t, err, http.StatusBadRequest, "User not found")
	})

	t.Run("rate must be positive", func(t *testing.T) {
		svc, _, users := newCostRateFixture()
		users.On("FindMember", mock.Anything, actor.TenantID, userID).Return(&identity.User{ID: userID}, nil).Once()

		_, err := svc.Create(context.Background(), actor, CostRateInput{
			UserID:         &userID,
			EffectiveDate:  ptrTo(day(2025, 1, 1)),
			LoadedCostRate: ptrTo(decimal.Zero),
		})

		requireAppError(t, err, http.StatusBadRequest, "Loaded cost rate must be greater than zero")
	})

	t.Run("manual entry closes the previous rate in the repository", func(t *testing.T) {
		svc, repo, users := newCostRateFixture()
		users.On("FindMember", mock.Anything, actor.TenantID, userID).Return(&identity.User{ID: userID}, nil).Once()
		repo.On("CreateClosingPrevious", mock.Anything, mock.MatchedBy(func(r *model.EmployeeCostRate) bool {
			return r.Source == model.CostRateSourceManual && r.UserID == userID &&
				r.EffectiveDate.Equal(day(2025, 2, 1)) && r.TenantID == actor.TenantID
		})).Return(nil).Once()

		rate, err := svc.Create(context.Background(), actor, CostRateInput{
			UserID:         &userID,
			EffectiveDate:  ptrTo(time.Date(2025, 2, 1, 17, 30, 0, 0, time.UTC)),
			LoadedCostRate: ptrTo(decimal.RequireFromString("95.25")),
		})

		require.NoError(t, err)
		assert.Equal(t, "95.25", rate.LoadedCostRate.StringFixed(2))
		repo.AssertExpectations(t)
	})
}

func TestCostRateListDefaultsAsOfToToday(t *testing.T) {
	svc, repo, _ := newCostRateFixture()
	tenantID := uuid.New()
	repo.On("List", mock.Anything, tenantID, repository.CostRateFilter{AsOf: day(2025, 5, 1)}).
		Return([]model.EmployeeCostRate{}, nil).Once()

	_, err := svc.List(context.Background(), tenantID, repository.CostRateFilter{})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCostRateImport(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}

	t.Run("unsupported file type", func(t *testing.T) {
		svc, _, _ := newCostRateFixture()

		_, err := svc.Import(context.Background(), actor, "rates.pdf", strings.NewReader(""))

		requireAppError(t, err, http.StatusBadRequest, "Only .csv and .xlsx files are supported")
	})

	t.Run("reports bad lines and keeps the good ones", func(t *testing.T) {
		svc, repo, users := newCostRateFixture()
		ann := &identity.User{ID: uuid.New(), Email: "ann@example.com"}

		file := strings.Join([]string{
			"Email,DisplayName,EffectiveDate,EndDate,LoadedCostRate,Notes",
			"ann@example.com,Ann,2025-01-01,,120.50,Senior",
			"ghost@example.com,Ghost,2025-01-01,,100,",
			"ann@example.com,Ann,not-a-date,,100,",
			"ann@example.com,Ann,2025-03-01,,-5,",
			"short,row",
		}, "\n")

		repo.On("CreateBatch", mock.Anything, mock.AnythingOfType("*model.CostRateImportBatch")).Return(nil).Once()
		users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "ann@example.com").Return(ann, nil).Once()
		users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound).Once()
		repo.On("ImportRates", mock.Anything, mock.AnythingOfType("*model.CostRateImportBatch"), mock.MatchedBy(func(rates []*model.EmployeeCostRate) bool {
			return len(rates) == 1 && rates[0].UserID == ann.ID && rates[0].Source == model.CostRateSourceCsvImport &&
				rates[0].Notes == "Senior" && rates[0].LoadedCostRate.Equal(decimal.RequireFromString("120.50"))
		})).Return(nil).Once()

		result, err := svc.Import(context.Background(), actor, "rates.CSV", strings.NewReader(file))

		require.NoError(t, err)
		assert.Equal(t, model.ImportCompletedWithErrors, result.Batch.Status)
		assert.Equal(t, 5, result.Batch.TotalRecords)
		assert.Equal(t, 1, result.Batch.SuccessCount)
		assert.Equal(t, 4, result.Batch.ErrorCount)
		assert.Equal(t, []string{
			"Line 3: User not found - ghost@example.com",
			"Line 4: Invalid effective date",
			"Line 5: Invalid rate",
			"Line 6: Insufficient columns",
		}, result.Errors)

		var stored []string
		require.NoError(t, json.Unmarshal(result.Batch.ErrorDetails, &stored))
		assert.Equal(t, result.Errors, stored)
		users.AssertExpectations(t)
		repo.AssertExpectations(t)
	})
}

func TestCostRateExportThenImport(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	bob := identity.User{ID: uuid.New(), Email: "bob@example.com", DisplayName: "Bob, Jr."}
	ann := identity.User{ID: uuid.New(), Email: "ann@example.com", DisplayName: "Ann"}
	end := day(2024, 12, 31)

	rates := []model.EmployeeCostRate{
		{UserID: bob.ID, EffectiveDate: day(2025, 1, 1), LoadedCostRate: decimal.NewFromInt(80), Notes: `said "hi"`},
		{UserID: ann.ID, EffectiveDate: day(2024, 1, 1), EndDate: &end, LoadedCostRate: decimal.RequireFromString("99.9")},
	}

	svc, repo, users := newCostRateFixture()
	repo.On("List", mock.Anything, actor.TenantID, repository.CostRateFilter{IncludeInactive: true}).Return(rates, nil).Once()
	users.On("UsersByID", mock.Anything, mock.Anything).
		Return(map[uuid.UUID]identity.User{bob.ID: bob, ann.ID: ann}, nil).Once()

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), actor.TenantID, spreadsheet.FormatCSV, &buf))

	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil).Once()
	users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "ann@example.com").Return(&ann, nil).Once()
	users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "bob@example.com").Return(&bob, nil).Once()

	var saved []*model.EmployeeCostRate
	repo.On("ImportRates", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		saved = args.Get(2).([]*model.EmployeeCostRate)
	}).Once()

	result, err := svc.Import(context.Background(), actor, "export.csv", &buf)

	require.NoError(t, err)
	assert.Equal(t, model.ImportCompleted, result.Batch.Status)
	assert.Empty(t, result.Errors)
	require.Len(t, saved, 2)

	// export orders by email
	assert.Equal(t, ann.ID, saved[0].UserID)
	require.NotNil(t, saved[0].EndDate)
	assert.True(t, saved[0].EndDate.Equal(end))
	assert.True(t, saved[0].LoadedCostRate.Equal(decimal.RequireFromString("99.90")))
	assert.Equal(t, bob.ID, saved[1].UserID)
	assert.Equal(t, `said "hi"`, saved[1].Notes)
	assert.Nil(t, saved[1].EndDate)
}

func TestCostRateRejectsUsersOutsideTheTenant(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	outsiderID := uuid.New()

	t.Run("create", func(t *testing.T) {
		svc, repo, users := newCostRateFixture()
		users.On("FindMember", mock.Anything, actor.TenantID, outsiderID).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := svc.Create(context.Background(), actor, CostRateInput{
			UserID:         &outsiderID,
			EffectiveDate:  ptrTo(day(2025, 1, 1)),
			LoadedCostRate: ptrTo(decimal.NewFromInt(100)),
		})

		requireAppError(t, err, http.StatusBadRequest, "User not found")
		repo.AssertNotCalled(t, "CreateClosingPrevious", mock.Anything, mock.Anything)
	})

	t.Run("import", func(t *testing.T) {
		svc, repo, users := newCostRateFixture()
		file := "Email,DisplayName,EffectiveDate,EndDate,LoadedCostRate,Notes\noutsider@other.com,Out,2025-01-01,,100,\n"

		repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil).Once()
		users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "outsider@other.com").Return(nil, gorm.ErrRecordNotFound).Once()
		repo.On("ImportRates", mock.Anything, mock.Anything, mock.MatchedBy(func(rates []*model.EmployeeCostRate) bool {
			return len(rates) == 0
		})).Return(nil).Once()

		result, err := svc.Import(context.Background(), actor, "rates.csv", strings.NewReader(file))

		require.NoError(t, err)
		assert.Equal(t, 0, result.Batch.SuccessCount)
		assert.Equal(t, []string{"Line 2: User not found - outsider@other.com"}, result.Errors)
		users.AssertExpectations(t)
	})
}

func TestCostRateImportMarksBatchFailed(t *testing.T) {
	actor := Actor{UserID: uuid.New(), TenantID: uuid.New()}
	ann := &identity.User{ID: uuid.New(), Email: "ann@example.com"}
	file := strings.Join([]string{
		"Email,DisplayName,EffectiveDate,EndDate,LoadedCostRate,Notes",
		"ann@example.com,Ann,2025-01-01,,120,",
		"ann@example.com,Ann,2025-06-01,,130,",
	}, "\n")

	svc, repo, users := newCostRateFixture()
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil).Once()
	users.On("FindMemberByEmail", mock.Anything, actor.TenantID, "ann@example.com").Return(ann, nil).Once()
	repo.On("ImportRates", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	var failed model.CostRateImportBatch
	repo.On("UpdateBatch", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		failed = *args.Get(1).(*model.CostRateImportBatch)
	}).Once()

	_, err := svc.Import(context.Background(), actor, "rates.csv", strings.NewReader(file))

	require.Error(t, err)
	assert.Equal(t, model.ImportFailed, failed.Status)
	assert.Equal(t, 0, failed.SuccessCount)
	assert.Equal(t, 2, failed.TotalRecords)
	repo.AssertExpectations(t)
}
