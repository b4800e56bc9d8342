package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/jwtutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "email", "display_name", "password_hash", "is_system_admin", "is_active", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func newAccounts(t *testing.T) (*AccountService, sqlmock.Sqlmock, *jwtutil.JWTUtil) {
	db, mock := newMockDB(t)
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	svc := NewAccountService(db, identity.NewStore(db), tokens, nil)
	svc.cost = bcrypt.MinCost
	return svc, mock, tokens
}

func expectUser(t *testing.T, mock sqlmock.Sqlmock, userID uuid.UUID, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID.String(), "ann@example.com", "Ann", string(hash), false, true, now, now))
}

func expectMemberships(mock sqlmock.Sqlmock, userID uuid.UUID, tenants ...uuid.UUID) {
	rows := sqlmock.NewRows([]string{"id", "user_id", "tenant_id", "roles", "is_default", "is_active"})
	names := sqlmock.NewRows([]string{"id", "name"})
	for i, tenantID := range tenants {
		rows.AddRow(uuid.NewString(), userID.String(), tenantID.String(), []byte(`["Employee"]`), i == 0, true)
		names.AddRow(tenantID.String(), "Tenant "+tenantID.String()[:4])
	}
	mock.ExpectQuery(`SELECT \* FROM "tenant_memberships" WHERE user_id = \$1 AND is_active = \$2 ORDER BY is_default desc, created_at asc`).
		WillReturnRows(rows)
	if len(tenants) > 0 {
		mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE "tenants"."id"`).WillReturnRows(names)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, mock, _ := newAccounts(t)
	expectUser(t, mock, uuid.New(), "correct horse")

	_, err := svc.Login(context.Background(), "ann@example.com", "battery staple", nil)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, "invalid credentials", appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, mock, _ := newAccounts(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := svc.Login(context.Background(), "nobody@example.com", "x", nil)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLoginIssuesTokenWithTenantList(t *testing.T) {
	svc, mock, tokens := newAccounts(t)
	userID, home, other := uuid.New(), uuid.New(), uuid.New()
	expectUser(t, mock, userID, "correct horse")
	expectMemberships(mock, userID, home, other)

	session, err := svc.Login(context.Background(), "ann@example.com", "correct horse", nil)
	require.NoError(t, err)
	require.NotNil(t, session.Tenant)
	assert.Equal(t, home, session.Tenant.ID)
	assert.Equal(t, []string{identity.RoleEmployee}, session.Tenant.Roles)

	claims, err := tokens.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.ElementsMatch(t, []uuid.UUID{home, other}, claims.TenantIDs)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, home, *claims.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSelectsRequestedTenant(t *testing.T) {
	svc, mock, tokens := newAccounts(t)
	userID, home, other := uuid.New(), uuid.New(), uuid.New()
	expectUser(t, mock, userID, "pw")
	expectMemberships(mock, userID, home, other)

	session, err := svc.Login(context.Background(), "ann@example.com", "pw", &other)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, other, *claims.TenantID)
}

func TestLoginRejectsForeignTenant(t *testing.T) {
	svc, mock, _ := newAccounts(t)
	userID, home, foreign := uuid.New(), uuid.New(), uuid.New()
	expectUser(t, mock, userID, "pw")
	expectMemberships(mock, userID, home)

	_, err := svc.Login(context.Background(), "ann@example.com", "pw", &foreign)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestSelectTenant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	memberships := []identity.TenantMembership{{TenantID: a, IsDefault: true}, {TenantID: b}}

	got, err := selectTenant(memberships, nil, false)
	require.NoError(t, err)
	assert.Equal(t, a, got.TenantID)

	got, err = selectTenant(memberships, &b, false)
	require.NoError(t, err)
	assert.Equal(t, b, got.TenantID)

	got, err = selectTenant(nil, nil, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	other := uuid.New()
	got, err = selectTenant(memberships, &other, true)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = selectTenant(memberships, &other, false)
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, mock, _ := newAccounts(t)
	expectUser(t, mock, uuid.New(), "pw")

	_, err := svc.Register(context.Background(), " Ann@Example.com ", "longenough", "Ann")
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordedLogins struct {
	attempts []LoginAttempt
}

func (r *recordedLogins) Record(ctx context.Context, attempt LoginAttempt) {
	r.attempts = append(r.attempts, attempt)
}

func TestLoginIsAudited(t *testing.T) {
	newAudited := func(t *testing.T) (*AccountService, sqlmock.Sqlmock, *recordedLogins) {
		svc, mock, _ := newAccounts(t)
		audits := &recordedLogins{}
		svc.audits = audits
		return svc, mock, audits
	}

	t.Run("unknown email", func(t *testing.T) {
		svc, mock, audits := newAudited(t)
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := svc.Login(context.Background(), " Nobody@Example.com ", "x", nil)

		require.Error(t, err)
		require.Len(t, audits.attempts, 1)
		got := audits.attempts[0]
		assert.False(t, got.Success)
		assert.Equal(t, ReasonUserNotFound, got.Reason)
		assert.Equal(t, "nobody@example.com", got.Email)
		assert.Nil(t, got.UserID)
	})

	t.Run("wrong password keeps the user", func(t *testing.T) {
		svc, mock, audits := newAudited(t)
		userID := uuid.New()
		expectUser(t, mock, userID, "correct horse")

		_, err := svc.Login(context.Background(), "ann@example.com", "battery staple", nil)

		require.Error(t, err)
		require.Len(t, audits.attempts, 1)
		assert.Equal(t, ReasonInvalidPassword, audits.attempts[0].Reason)
		assert.Equal(t, userID, *audits.attempts[0].UserID)
	})

	t.Run("foreign tenant", func(t *testing.T) {
		svc, mock, audits := newAudited(t)
		userID, home, foreign := uuid.New(), uuid.New(), uuid.New()
		expectUser(t, mock, userID, "pw")
		expectMemberships(mock, userID, home)

		_, err := svc.Login(context.Background(), "ann@example.com", "pw", &foreign)

		require.Error(t, err)
		require.Len(t, audits.attempts, 1)
		assert.Equal(t, ReasonTenantDenied, audits.attempts[0].Reason)
		assert.Equal(t, foreign, *audits.attempts[0].TenantID)
	})

	t.Run("success records the selected tenant", func(t *testing.T) {
		svc, mock, audits := newAudited(t)
		userID, home := uuid.New(), uuid.New()
		expectUser(t, mock, userID, "pw")
		expectMemberships(mock, userID, home)

		_, err := svc.Login(context.Background(), "ann@example.com", "pw", nil)

		require.NoError(t, err)
		require.Len(t, audits.attempts, 1)
		got := audits.attempts[0]
		assert.True(t, got.Success)
		assert.Empty(t, got.Reason)
		assert.Equal(t, home, *got.TenantID)
	})
}
