// Package service holds the account and tenant membership logic of the authentication service.
package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/jwtutil"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/authen-service/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Caller is the authenticated user of a request
type Caller struct {
	UserID        uuid.UUID
	IsSystemAdmin bool
}

// TenantSummary is a tenant as seen by one of its members
type TenantSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Roles       []string  `json:"roles"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is an issued token with the identity it was issued for
type Session struct {
	Token  string         `json:"token"`
	User   identity.User  `json:"user"`
	Tenant *TenantSummary `json:"tenant,omitempty"`
}

type AccountService struct {
	db     *gorm.DB
	store  *identity.Store
	tokens *jwtutil.JWTUtil
	audits LoginRecorder
	cost   int
}

// NewAccountService builds the account service. audits may be nil to skip the login audit trail.
func NewAccountService(db *gorm.DB, store *identity.Store, tokens *jwtutil.JWTUtil, audits LoginRecorder) *AccountService {
	return &AccountService{db: db, store: store, tokens: tokens, audits: audits, cost: bcrypt.DefaultCost}
}

// Register creates an active user with a bcrypt password hash
func (s *AccountService) Register(ctx context.Context, email, password, displayName string) (*identity.User, error) {
	prometheus.RecordRegister()
	email = strings.TrimSpace(strings.ToLower(email))

	defer prometheus.TrackDBOperation("query")(time.Now())
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		prometheus.RecordAuthError("email_already_exists")
		return nil, apperror.Conflict("email already registered")
	} else if !database.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		prometheus.RecordAuthError("password_hash_failed")
		return nil, errors.Wrap(err, "hash password")
	}

	user := &identity.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Login checks the credentials and issues a token. A requested tenant must be one of the
// user's active memberships. Every attempt is written to the login audit trail.
func (s *AccountService) Login(ctx context.Context, email, password string, tenantID *uuid.UUID) (session *Session, err error) {
	prometheus.RecordLogin()
	log := logger.FromContext(ctx)

	email = strings.TrimSpace(email)
	attempt := LoginAttempt{Email: strings.ToLower(email), TenantID: tenantID}
	defer func() { s.recordLogin(ctx, attempt, session, err) }()

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if database.IsNotFound(err) {
			log.Warn("Login for unknown email", zap.String("email", email))
			prometheus.RecordAuthError(ReasonUserNotFound)
			attempt.Reason = ReasonUserNotFound
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	attempt.UserID = &user.ID
	if !user.IsActive {
		prometheus.RecordAuthError(ReasonUserInactive)
		attempt.Reason = ReasonUserInactive
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Invalid password", zap.String("email", email))
		prometheus.RecordAuthError(ReasonInvalidPassword)
		attempt.Reason = ReasonInvalidPassword
		return nil, apperror.Unauthorized("invalid credentials")
	}

	return s.session(ctx, user, tenantID)
}

func (s *AccountService) recordLogin(ctx context.Context, attempt LoginAttempt, session *Session, err error) {
	if s.audits == nil {
		return
	}
	switch {
	case err == nil:
		attempt.Success = true
		if session.Tenant != nil {
			attempt.TenantID = &session.Tenant.ID
		}
	case attempt.Reason != "":
	default:
		attempt.Reason = ReasonError
		if appErr, ok := apperror.As(err); ok && appErr.Status == http.StatusForbidden {
			attempt.Reason = ReasonTenantDenied
		}
	}
	s.audits.Record(ctx, attempt)
}

// SwitchTenant issues a new token whose selected tenant is tenantID
func (s *AccountService) SwitchTenant(ctx context.Context, userID, tenantID uuid.UUID) (*Session, error) {
	prometheus.RecordTenantOperation("switch")
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.Unauthorized("authentication required")
		}
		return nil, err
	}
	return s.session(ctx, user, &tenantID)
}

func (s *AccountService) session(ctx context.Context, user *identity.User, requested *uuid.UUID) (*Session, error) {
	memberships, err := s.activeMemberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	selected, err := selectTenant(memberships, requested, user.IsSystemAdmin)
	if err != nil {
		prometheus.RecordAuthError(ReasonTenantDenied)
		return nil, err
	}

	tenantIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		tenantIDs = append(tenantIDs, m.TenantID)
	}

	in := jwtutil.TokenInput{
		UserID:        user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		TenantIDs:     tenantIDs,
		IsSystemAdmin: user.IsSystemAdmin,
	}
	out := &Session{User: *user}
	if selected != nil {
		in.TenantID = &selected.TenantID
		summary := summarize(*selected)
		out.Tenant = &summary
	} else if requested != nil {
		in.TenantID = requested
	}

	out.Token, err = s.tokens.GenerateToken(in)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return nil, errors.Wrap(err, "generate token")
	}
	prometheus.RecordTokenIssued()
	return out, nil
}

// selectTenant picks the requested membership, or the default one when nothing was requested.
// System admins may select a tenant they are not a member of.
func selectTenant(memberships []identity.TenantMembership, requested *uuid.UUID, isSystemAdmin bool) (*identity.TenantMembership, error) {
	if requested == nil {
		if len(memberships) == 0 {
			return nil, nil
		}
		return &memberships[0], nil
	}
	for i := range memberships {
		if memberships[i].TenantID == *requested {
			return &memberships[i], nil
		}
	}
	if isSystemAdmin {
		return nil, nil
	}
	return nil, apperror.Forbidden("access denied to the specified tenant")
}

func (s *AccountService) activeMemberships(ctx context.Context, userID uuid.UUID) ([]identity.TenantMembership, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []identity.TenantMembership
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default desc, created_at asc").
		Find(&memberships).Error
	if err != nil {
		return nil, errors.Wrap(err, "load memberships")
	}
	return memberships, nil
}

func summarize(m identity.TenantMembership) TenantSummary {
	summary := TenantSummary{
		ID:        m.TenantID,
		Roles:     []string(m.Roles),
		IsDefault: m.IsDefault,
	}
	if m.Tenant != nil {
		summary.Name = m.Tenant.Name
		summary.Description = m.Tenant.Description
		summary.CreatedAt = m.Tenant.CreatedAt
	}
	return summary
}
