package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FeedbackRequest struct {
	Type        string `json:"type" validate:"required,oneof=Bug Feature Question General"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	PageURL     string `json:"page_url" validate:"omitempty,max=500"`
}

type FeedbackStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=New InReview Resolved Closed"`
	AdminNotes *string `json:"admin_notes"`
}

type HelpArticleRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	Content     *string `json:"content"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	IsPublished *bool   `json:"is_published"`
	SortOrder   *int    `json:"sort_order"`
	Global      bool    `json:"global"`
}

func (r HelpArticleRequest) apply(a *model.HelpArticle) {
	setString(&a.Title, r.Title)
	if r.Slug != nil {
		a.Slug = slugify(*r.Slug)
	}
	setString(&a.Content, r.Content)
	setString(&a.Category, r.Category)
	if r.IsPublished != nil {
		a.IsPublished = *r.IsPublished
	}
	if r.SortOrder != nil {
		a.SortOrder = *r.SortOrder
	}
}

// FeedbackHandler serves user feedback and in-app help articles
type FeedbackHandler struct {
	actorResolver
	db *gorm.DB
}

func NewFeedbackHandler(db *gorm.DB, access service.AccessVerifier) *FeedbackHandler {
	return &FeedbackHandler{actorResolver: actorResolver{access: access}, db: db}
}

func (h *FeedbackHandler) Register(r Router) {
	r.route(http.MethodPost, "/feedback", "", "", h.CreateFeedback)
	r.route(http.MethodGet, "/feedback", "", "", h.ListFeedback)
	r.route(http.MethodPut, "/feedback/:id/status", model.ResourceFeedback, model.ActionUpdate, h.UpdateFeedbackStatus)

	r.route(http.MethodGet, "/help", "", "", h.ListArticles)
	r.route(http.MethodGet, "/help/:slug", "", "", h.GetArticle)
	r.route(http.MethodPost, "/help", model.ResourceHelpArticle, model.ActionCreate, h.CreateArticle)
	r.route(http.MethodPut, "/help/:id", model.ResourceHelpArticle, model.ActionUpdate, h.UpdateArticle)
	r.route(http.MethodDelete, "/help/:id", model.ResourceHelpArticle, model.ActionDelete, h.DeleteArticle)
}

func (h *FeedbackHandler) CreateFeedback(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to submit feedback")
	}
	var req FeedbackRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	prometheus.RecordOperation("feedback", "create")

	fb := model.Feedback{
		Base:        model.Base{TenantID: actor.TenantID},
		UserID:      actor.UserID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		PageURL:     req.PageURL,
		Status:      model.FeedbackNew,
	}
	fb.Touch(actor.UserID)
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&fb).Error; err != nil {
		return apperror.Respond(c, err, "Failed to submit feedback")
	}
	logger.FromEcho(c).Info("Feedback submitted", zap.String("feedback_id", fb.ID.String()), zap.String("type", fb.Type))
	return c.JSON(http.StatusCreated, fb)
}

// ListFeedback returns the caller's own items; tenant admins see every item
func (h *FeedbackHandler) ListFeedback(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve feedback")
	}
	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ?", actor.TenantID)
	if !actor.HasAnyRole(identity.RoleTenantAdmin) {
		query = query.Where("user_id = ?", actor.UserID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var items []model.Feedback
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve feedback")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *FeedbackHandler) UpdateFeedbackStatus(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update feedback")
	}
	var req FeedbackStatusRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	db := h.db.WithContext(c.Request().Context())
	var fb model.Feedback
	if err := db.Where("id = ? AND tenant_id = ?", id, actor.TenantID).First(&fb).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Feedback not found"), "Failed to update feedback")
	}
	fb.Status = req.Status
	setString(&fb.AdminNotes, req.AdminNotes)
	fb.Touch(actor.UserID)
	if err := db.Save(&fb).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update feedback")
	}
	return c.JSON(http.StatusOK, fb)
}

// ListArticles returns published global articles plus the tenant's own
func (h *FeedbackHandler) ListArticles(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve help articles")
	}
	query := h.visibleArticles(c, actor.TenantID)
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	var articles []model.HelpArticle
	if err := query.Order("sort_order, title").Find(&articles).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve help articles")
	}
	return c.JSON(http.StatusOK, articles)
}

// GetArticle prefers the tenant's article over a global one with the same slug
func (h *FeedbackHandler) GetArticle(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve help article")
	}
	var article model.HelpArticle
	err = h.visibleArticles(c, actor.TenantID).
		Where("slug = ?", c.Param("slug")).
		Order("tenant_id NULLS LAST").
		First(&article).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Help article not found"), "Failed to retrieve help article")
	}
	return c.JSON(http.StatusOK, article)
}

func (h *FeedbackHandler) CreateArticle(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create help article")
	}
	var req HelpArticleRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return apperror.Respond(c, apperror.BadRequest("Title is required"), "")
	}
	if req.Global && !actor.IsSystemAdmin {
		return apperror.Respond(c, apperror.Forbidden("Only system administrators can publish global articles"), "")
	}

	article := model.HelpArticle{}
	if !req.Global {
		tenantID := actor.TenantID
		article.TenantID = &tenantID
	}
	req.apply(&article)
	if article.Slug == "" {
		article.Slug = slugify(article.Title)
	}
	if err := h.db.WithContext(c.Request().Context()).Create(&article).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Help article not found"), "Failed to create help article")
	}
	return c.JSON(http.StatusCreated, article)
}

func (h *FeedbackHandler) UpdateArticle(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update help article")
	}
	var req HelpArticleRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	article, err := h.ownedArticle(c, actor, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update help article")
	}
	req.apply(article)
	if err := h.db.WithContext(c.Request().Context()).Save(article).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update help article")
	}
	return c.JSON(http.StatusOK, article)
}

func (h *FeedbackHandler) DeleteArticle(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete help article")
	}
	article, err := h.ownedArticle(c, actor, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete help article")
	}
	if err := h.db.WithContext(c.Request().Context()).Delete(article).Error; err != nil {
		return apperror.Respond(c, err, "Failed to delete help article")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FeedbackHandler) visibleArticles(c echo.Context, tenantID uuid.UUID) *gorm.DB {
	return h.db.WithContext(c.Request().Context()).
		Where("is_published = ?", true).
		Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
}

// ownedArticle loads an article the actor may edit: the tenant's own, or a global one for system admins
func (h *FeedbackHandler) ownedArticle(c echo.Context, actor service.Actor, id uuid.UUID) (*model.HelpArticle, error) {
	var article model.HelpArticle
	if err := h.db.WithContext(c.Request().Context()).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, dbError(err, "Help article not found")
	}
	switch {
	case article.TenantID == nil && actor.IsSystemAdmin:
	case article.TenantID != nil && *article.TenantID == actor.TenantID:
	default:
		return nil, apperror.NotFound("Help article not found")
	}
	return &article, nil
}

func slugify(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
