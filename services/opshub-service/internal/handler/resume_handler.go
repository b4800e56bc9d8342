package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ResumeRequest struct {
	UserID         *uuid.UUID `json:"user_id"`
	Title          *string    `json:"title" validate:"omitempty,max=200"`
	Summary        *string    `json:"summary"`
	Skills         []string   `json:"skills"`
	Certifications []string   `json:"certifications"`
}

func (r ResumeRequest) apply(p *model.ResumeProfile) {
	setString(&p.Title, r.Title)
	setString(&p.Summary, r.Summary)
	if r.Skills != nil {
		p.Skills = r.Skills
	}
	if r.Certifications != nil {
		p.Certifications = r.Certifications
	}
}

type ResumeHandler struct {
	actorResolver
	db  *gorm.DB
	now func() time.Time
}

func NewResumeHandler(db *gorm.DB, access service.AccessVerifier) *ResumeHandler {
	return &ResumeHandler{actorResolver: actorResolver{access: access}, db: db, now: time.Now}
}

func (h *ResumeHandler) Register(r Router) {
	const res = model.ResourceResumeProfile
	r.route(http.MethodGet, "/resumes", res, model.ActionRead, h.List)
	r.route(http.MethodGet, "/resumes/:id", res, model.ActionRead, h.Get)
	r.route(http.MethodPost, "/resumes", res, model.ActionCreate, h.Create)
	r.route(http.MethodPut, "/resumes/:id", res, model.ActionUpdate, h.Update)
	r.route(http.MethodDelete, "/resumes/:id", res, model.ActionDelete, h.Delete)
	r.route(http.MethodPost, "/resumes/:id/restore", res, model.ActionRestore, h.Restore)
	r.route(http.MethodDelete, "/resumes/:id/hard", res, model.ActionHardDelete, h.HardDelete)
	r.route(http.MethodPost, "/resumes/:id/submit", res, model.ActionUpdate, h.Submit)
	r.route(http.MethodPost, "/resumes/:id/approve", res, model.ActionApprove, h.Approve)
}

func (h *ResumeHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve resumes")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false)
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	userID, err := queryUUID(c, "userId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var profiles []model.ResumeProfile
	if err := query.Order("updated_at DESC").Find(&profiles).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve resumes")
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *ResumeHandler) Get(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve resume")
	}
	profile, err := h.load(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve resume")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ResumeHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create resume")
	}
	var req ResumeRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	prometheus.RecordOperation("resumes", "create")

	profile := model.ResumeProfile{
		Base:   model.Base{TenantID: actor.TenantID},
		UserID: actor.UserID,
		Status: model.ResumeDraft,
	}
	if req.UserID != nil {
		profile.UserID = *req.UserID
	}

	db := h.db.WithContext(c.Request().Context())
	var count int64
	if err := db.Model(&model.ResumeProfile{}).
		Where("tenant_id = ? AND user_id = ? AND is_deleted = ?", actor.TenantID, profile.UserID, false).
		Count(&count).Error; err != nil {
		return apperror.Respond(c, err, "Failed to create resume")
	}
	if count > 0 {
		logger.FromEcho(c).Warn("Resume already exists for user", zap.String("resume_user_id", profile.UserID.String()))
		return apperror.Respond(c, apperror.Conflict("A resume already exists for this user"), "")
	}

	req.apply(&profile)
	profile.Touch(actor.UserID)
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&profile).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Resume not found"), "Failed to create resume")
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *ResumeHandler) Update(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update resume")
	}
	var req ResumeRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	profile, err := h.load(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update resume")
	}
	req.apply(profile)
	profile.Touch(actor.UserID)
	if err := h.db.WithContext(c.Request().Context()).Save(profile).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update resume")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ResumeHandler) Delete(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete resume")
	}
	err = repository.SoftDelete(c.Request().Context(), h.db, &model.ResumeProfile{}, actor.TenantID, id, actor.UserID, c.QueryParam("reason"))
	if err != nil {
		return apperror.Respond(c, dbError(err, "Resume not found"), "Failed to delete resume")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ResumeHandler) Restore(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to restore resume")
	}
	if err := repository.Restore(c.Request().Context(), h.db, &model.ResumeProfile{}, actor.TenantID, id); err != nil {
		return apperror.Respond(c, dbError(err, "Deleted resume not found"), "Failed to restore resume")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Resume restored"})
}

func (h *ResumeHandler) HardDelete(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete resume")
	}
	err = repository.HardDelete(c.Request().Context(), h.db, &model.ResumeProfile{}, model.EntityResumeProfile, actor.TenantID, id, actor.UserID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Resume not found"), "Failed to permanently delete resume")
	}
	logger.FromEcho(c).Warn("Resume permanently deleted", zap.String("resume_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *ResumeHandler) Submit(c echo.Context) error {
	return h.transition(c, model.ResumeDraft, model.ResumePendingReview, "submit")
}

func (h *ResumeHandler) Approve(c echo.Context) error {
	return h.transition(c, model.ResumePendingReview, model.ResumeApproved, "approve")
}

func (h *ResumeHandler) transition(c echo.Context, from, to, op string) error {
	fallback := "Failed to " + op + " resume"
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, fallback)
	}
	profile, err := h.load(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, fallback)
	}
	if err := advanceResume(profile, from, to, actor.UserID, h.now().UTC()); err != nil {
		return apperror.Respond(c, err, fallback)
	}
	if err := h.db.WithContext(c.Request().Context()).Save(profile).Error; err != nil {
		return apperror.Respond(c, err, fallback)
	}
	prometheus.RecordOperation("resumes", op)
	return c.JSON(http.StatusOK, profile)
}

// advanceResume moves a profile from one status to the next, stamping the review on approval
func advanceResume(p *model.ResumeProfile, from, to string, userID uuid.UUID, at time.Time) error {
	if p.Status != from {
		return apperror.BadRequest("Resume must be in %s status", from)
	}
	p.Status = to
	if to == model.ResumeApproved {
		p.LastReviewedAt = &at
		p.ReviewedByUserID = &userID
	}
	p.Touch(userID)
	return nil
}

func (h *ResumeHandler) load(c echo.Context, tenantID, id uuid.UUID) (*model.ResumeProfile, error) {
	var profile model.ResumeProfile
	err := h.db.WithContext(c.Request().Context()).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		First(&profile).Error
	if err != nil {
		return nil, dbError(err, "Resume not found")
	}
	return &profile, nil
}
