package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

// targetRequest builds an authenticated request with the :id path parameter set
func targetRequest(method, target string, id, userID, tenantID uuid.UUID, body string) (echo.Context, *httptest.ResponseRecorder) {
	var c echo.Context
	var rec *httptest.ResponseRecorder
	if body == "" {
		c, rec = newRequest(method, target, nil)
	} else {
		c, rec = newRequest(method, target, strings.NewReader(body))
	}
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	authenticate(c, userID, tenantID, tenantID)
	return c, rec
}

func TestOfficeLifecycle(t *testing.T) {
	access := stubAccess{roles: []string{identity.RoleOfficeManager}}
	userID, tenantID, officeID := uuid.New(), uuid.New(), uuid.New()

	t.Run("soft delete", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "offices" SET .*is_deleted.* WHERE .*is_deleted = `).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/offices/"+officeID.String()+"?reason=closed", officeID, userID, tenantID, "")

		require.NoError(t, h.DeleteOffice(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("soft delete of a missing office", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "offices" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/offices/"+officeID.String(), officeID, userID, tenantID, "")

		require.NoError(t, h.DeleteOffice(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Office not found", errorBody(t, rec))
	})

	t.Run("restore", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "offices" SET .*is_deleted`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodPost, "/api/offices/"+officeID.String()+"/restore", officeID, userID, tenantID, "")

		require.NoError(t, h.RestoreOffice(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("restore of an office that is not deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "offices" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodPost, "/api/offices/"+officeID.String()+"/restore", officeID, userID, tenantID, "")

		require.NoError(t, h.RestoreOffice(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Deleted office not found", errorBody(t, rec))
	})

	t.Run("hard delete is blocked while spaces remain", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "spaces"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		c, rec := targetRequest(http.MethodDelete, "/api/offices/"+officeID.String()+"/hard", officeID, userID, tenantID, "")

		require.NoError(t, h.HardDeleteOffice(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cannot permanently delete an office that still has spaces", errorBody(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hard delete archives the office", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFacilityHandler(db, access)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "spaces"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "offices"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
				AddRow(officeID.String(), tenantID.String(), "HQ"))
		mock.ExpectExec(`INSERT INTO "data_archives"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "offices"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/offices/"+officeID.String()+"/hard", officeID, userID, tenantID, "")

		require.NoError(t, h.HardDeleteOffice(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResumeLifecycle(t *testing.T) {
	access := stubAccess{roles: []string{identity.RoleEmployee}}
	userID, tenantID, resumeID := uuid.New(), uuid.New(), uuid.New()

	t.Run("soft delete", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "resume_profiles" SET .*is_deleted`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/resumes/"+resumeID.String(), resumeID, userID, tenantID, "")

		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("restore", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "resume_profiles" SET .*is_deleted`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodPost, "/api/resumes/"+resumeID.String()+"/restore", resumeID, userID, tenantID, "")

		require.NoError(t, h.Restore(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hard delete of a missing resume", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "resume_profiles"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		c, rec := targetRequest(http.MethodDelete, "/api/resumes/"+resumeID.String()+"/hard", resumeID, userID, tenantID, "")

		require.NoError(t, h.HardDelete(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Resume not found", errorBody(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hard delete rolls back when the archive fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "resume_profiles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "title", "status"}).
				AddRow(resumeID.String(), tenantID.String(), "Engineer", model.ResumeDraft))
		mock.ExpectExec(`INSERT INTO "data_archives"`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		c, rec := targetRequest(http.MethodDelete, "/api/resumes/"+resumeID.String()+"/hard", resumeID, userID, tenantID, "")

		require.NoError(t, h.HardDelete(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("approve requires pending review", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		mock.ExpectQuery(`SELECT \* FROM "resume_profiles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "title", "status"}).
				AddRow(resumeID.String(), tenantID.String(), "Engineer", model.ResumeDraft))

		c, rec := targetRequest(http.MethodPost, "/api/resumes/"+resumeID.String()+"/approve", resumeID, userID, tenantID, "")

		require.NoError(t, h.Approve(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Resume must be in PendingReview status", errorBody(t, rec))
	})

	t.Run("submit saves the new status", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewResumeHandler(db, access)
		h.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
		mock.ExpectQuery(`SELECT \* FROM "resume_profiles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "title", "status"}).
				AddRow(resumeID.String(), tenantID.String(), "Engineer", model.ResumeDraft))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "resume_profiles" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodPost, "/api/resumes/"+resumeID.String()+"/submit", resumeID, userID, tenantID, "")

		require.NoError(t, h.Submit(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), model.ResumePendingReview)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpportunityLifecycle(t *testing.T) {
	access := stubAccess{roles: []string{identity.RoleBusinessDeveloper}}
	userID, tenantID, oppID := uuid.New(), uuid.New(), uuid.New()

	t.Run("soft delete", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewSalesHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "sales_opportunities" SET .*is_deleted`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/sales/opportunities/"+oppID.String(), oppID, userID, tenantID, "")

		require.NoError(t, h.DeleteOpportunity(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("restore of a live opportunity", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewSalesHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "sales_opportunities" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodPost, "/api/sales/opportunities/"+oppID.String()+"/restore", oppID, userID, tenantID, "")

		require.NoError(t, h.RestoreOpportunity(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Deleted opportunity not found", errorBody(t, rec))
	})

	t.Run("hard delete removes the team then archives", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewSalesHandler(db, access)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "opportunity_team_members"`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "sales_opportunities"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
				AddRow(oppID.String(), tenantID.String(), "Renewal"))
		mock.ExpectExec(`INSERT INTO "data_archives"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "sales_opportunities"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := targetRequest(http.MethodDelete, "/api/sales/opportunities/"+oppID.String()+"/hard", oppID, userID, tenantID, "")

		require.NoError(t, h.HardDeleteOpportunity(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFeedbackHandler(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()

	t.Run("submission starts as new", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFeedbackHandler(db, stubAccess{roles: []string{identity.RoleEmployee}})
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "feedbacks"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, rec := newRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"type":"Bug","title":"Broken link"}`))
		authenticate(c, userID, tenantID, tenantID)

		require.NoError(t, h.CreateFeedback(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"`+model.FeedbackNew+`"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown type is rejected before the database", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFeedbackHandler(db, stubAccess{roles: []string{identity.RoleEmployee}})

		c, rec := newRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"type":"Rant","title":"x"}`))
		authenticate(c, userID, tenantID, tenantID)

		require.NoError(t, h.CreateFeedback(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status update of missing feedback", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFeedbackHandler(db, stubAccess{roles: []string{identity.RoleTenantAdmin}})
		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "feedbacks"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		c, rec := targetRequest(http.MethodPut, "/api/feedback/"+id.String()+"/status", id, userID, tenantID, `{"status":"Resolved"}`)

		require.NoError(t, h.UpdateFeedbackStatus(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Feedback not found", errorBody(t, rec))
	})

	t.Run("global articles need a system admin", func(t *testing.T) {
		db, mock := newMockDB(t)
		h := NewFeedbackHandler(db, stubAccess{roles: []string{identity.RoleTenantAdmin}})

		c, rec := newRequest(http.MethodPost, "/api/help/articles", strings.NewReader(`{"title":"Getting started","global":true}`))
		authenticate(c, userID, tenantID, tenantID)

		require.NoError(t, h.CreateArticle(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
