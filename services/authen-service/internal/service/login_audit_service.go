package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/authen-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// Login failure reasons kept in the audit trail
const (
	ReasonUserNotFound    = "user_not_found"
	ReasonUserInactive    = "user_inactive"
	ReasonInvalidPassword = "invalid_password"
	ReasonTenantDenied    = "tenant_access_denied"
	ReasonError           = "error"
)

// ClientInfo identifies where a request came from
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type clientKey struct{}

// WithClient attaches the caller's address and user agent to ctx
func WithClient(ctx context.Context, client ClientInfo) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// ClientFrom returns the client attached by WithClient, if any
func ClientFrom(ctx context.Context) ClientInfo {
	client, _ := ctx.Value(clientKey{}).(ClientInfo)
	return client
}

// LoginAttempt is one sign-in as seen by the account service
type LoginAttempt struct {
	Email    string
	UserID   *uuid.UUID
	TenantID *uuid.UUID
	Success  bool
	Reason   string
}

// LoginRecorder stores login attempts. Recording never fails a login.
type LoginRecorder interface {
	Record(ctx context.Context, attempt LoginAttempt)
}

// LoginAuditFilter narrows the audit listing. Nil fields match everything.
type LoginAuditFilter struct {
	Email     string
	UserID    *uuid.UUID
	IsSuccess *bool
	Start     *time.Time
	End       *time.Time
	Page      int
	PageSize  int
}

// LoginAuditPage is one page of audit rows plus totals over the whole filter
type LoginAuditPage struct {
	Total        int64                 `json:"total"`
	SuccessCount int64                 `json:"success_count"`
	FailedCount  int64                 `json:"failed_count"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	Items        []identity.LoginAudit `json:"items"`
}

type LoginAuditService struct {
	db *gorm.DB
}

func NewLoginAuditService(db *gorm.DB) *LoginAuditService {
	return &LoginAuditService{db: db}
}

func (s *LoginAuditService) Record(ctx context.Context, attempt LoginAttempt) {
	client := ClientFrom(ctx)
	audit := &identity.LoginAudit{
		UserID:        attempt.UserID,
		TenantID:      attempt.TenantID,
		Email:         truncate(attempt.Email, 255),
		IsSuccess:     attempt.Success,
		FailureReason: attempt.Reason,
		IPAddress:     truncate(client.IPAddress, 64),
		UserAgent:     truncate(client.UserAgent, 512),
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(audit).Error; err != nil {
		logger.FromContext(ctx).Error("Failed to record login attempt",
			zap.String("email", attempt.Email), zap.Error(err))
	}
}

// List returns login attempts newest first. Only system admins may read the audit trail.
func (s *LoginAuditService) List(ctx context.Context, caller Caller, filter LoginAuditFilter) (*LoginAuditPage, error) {
	if !caller.IsSystemAdmin {
		return nil, apperror.Forbidden("system administrator access required")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.PageSize < 1:
		filter.PageSize = defaultAuditPageSize
	case filter.PageSize > maxAuditPageSize:
		filter.PageSize = maxAuditPageSize
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	base := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&identity.LoginAudit{})
		if email := strings.TrimSpace(filter.Email); email != "" {
			query = query.Where("email ILIKE ?", "%"+email+"%")
		}
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.IsSuccess != nil {
			query = query.Where("is_success = ?", *filter.IsSuccess)
		}
		if filter.Start != nil {
			query = query.Where("created_at >= ?", *filter.Start)
		}
		if filter.End != nil {
			query = query.Where("created_at <= ?", *filter.End)
		}
		return query
	}

	page := &LoginAuditPage{Page: filter.Page, PageSize: filter.PageSize, Items: []identity.LoginAudit{}}
	if err := base().Count(&page.Total).Error; err != nil {
		return nil, errors.Wrap(err, "count login audits")
	}
	if err := base().Where("is_success = ?", true).Count(&page.SuccessCount).Error; err != nil {
		return nil, errors.Wrap(err, "count successful logins")
	}
	page.FailedCount = page.Total - page.SuccessCount

	err := base().
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&page.Items).Error
	if err != nil {
		return nil, errors.Wrap(err, "list login audits")
	}
	return page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
