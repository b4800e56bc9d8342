package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const opportunityNumberPrefix = "OPP-"

type AccountRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Industry *string `json:"industry" validate:"omitempty,max=100"`
	Website  *string `json:"website" validate:"omitempty,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Address  *string `json:"address"`
	Notes    *string `json:"notes"`
}

func (r AccountRequest) apply(a *model.SalesAccount) {
	setString(&a.Name, r.Name)
	setString(&a.Industry, r.Industry)
	setString(&a.Website, r.Website)
	setString(&a.Phone, r.Phone)
	setString(&a.Address, r.Address)
	setString(&a.Notes, r.Notes)
}

type ContactRequest struct {
	AccountID *uuid.UUID `json:"account_id"`
	FirstName *string    `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string    `json:"last_name" validate:"omitempty,max=100"`
	Email     *string    `json:"email" validate:"omitempty,email"`
	Phone     *string    `json:"phone" validate:"omitempty,max=50"`
	Title     *string    `json:"title" validate:"omitempty,max=100"`
}

func (r ContactRequest) apply(ct *model.SalesContact) {
	if r.AccountID != nil {
		ct.AccountID = r.AccountID
	}
	setString(&ct.FirstName, r.FirstName)
	setString(&ct.LastName, r.LastName)
	setString(&ct.Email, r.Email)
	setString(&ct.Phone, r.Phone)
	setString(&ct.Title, r.Title)
}

type StageRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	SortOrder   *int    `json:"sort_order"`
	Probability *int    `json:"probability" validate:"omitempty,min=0,max=100"`
	IsClosed    *bool   `json:"is_closed"`
	IsWon       *bool   `json:"is_won"`
	IsActive    *bool   `json:"is_active"`
}

func (r StageRequest) apply(s *model.SalesStage) {
	setString(&s.Name, r.Name)
	if r.SortOrder != nil {
		s.SortOrder = *r.SortOrder
	}
	if r.Probability != nil {
		s.Probability = *r.Probability
	}
	if r.IsClosed != nil {
		s.IsClosed = *r.IsClosed
	}
	if r.IsWon != nil {
		s.IsWon = *r.IsWon
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

type OpportunityRequest struct {
	Name               *string          `json:"name" validate:"omitempty,max=200"`
	AccountID          *uuid.UUID       `json:"account_id"`
	PrimaryContactID   *uuid.UUID       `json:"primary_contact_id"`
	StageID            *uuid.UUID       `json:"stage_id"`
	OwnerUserID        *uuid.UUID       `json:"owner_user_id"`
	Amount             *decimal.Decimal `json:"amount"`
	Probability        *int             `json:"probability" validate:"omitempty,min=0,max=100"`
	TotalContractValue *decimal.Decimal `json:"total_contract_value"`
	CloseDate          *Date            `json:"close_date"`
	Description        *string          `json:"description"`
	Source             *string          `json:"source" validate:"omitempty,max=50"`
}

func (r OpportunityRequest) apply(o *model.SalesOpportunity) {
	setString(&o.Name, r.Name)
	if r.AccountID != nil {
		o.AccountID = r.AccountID
	}
	if r.PrimaryContactID != nil {
		o.PrimaryContactID = r.PrimaryContactID
	}
	if r.StageID != nil {
		o.StageID = *r.StageID
	}
	if r.OwnerUserID != nil {
		o.OwnerUserID = *r.OwnerUserID
	}
	if r.Amount != nil {
		o.Amount = *r.Amount
	}
	if r.Probability != nil {
		o.Probability = *r.Probability
	}
	if r.TotalContractValue != nil {
		o.TotalContractValue = *r.TotalContractValue
	}
	if d := r.CloseDate.Ptr(); d != nil {
		o.CloseDate = d
	}
	setString(&o.Description, r.Description)
	setString(&o.Source, r.Source)
}

type TeamMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"max=50"`
}

// StageSummary is one row of the pipeline summary
type StageSummary struct {
	StageID            uuid.UUID       `json:"stage_id"`
	StageName          string          `json:"stage_name"`
	SortOrder          int             `json:"sort_order"`
	Count              int             `json:"count"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	WeightedAmount     decimal.Decimal `json:"weighted_amount"`
	TotalContractValue decimal.Decimal `json:"total_contract_value"`
}

// SalesHandler serves accounts, contacts, stages and opportunities
type SalesHandler struct {
	actorResolver
	db *gorm.DB
}

func NewSalesHandler(db *gorm.DB, access service.AccessVerifier) *SalesHandler {
	return &SalesHandler{actorResolver: actorResolver{access: access}, db: db}
}

func (h *SalesHandler) Register(r Router) {
	const (
		acc = model.ResourceSalesAccount
		con = model.ResourceSalesContact
		opp = model.ResourceSalesOpportunity
	)
	r.route(http.MethodGet, "/salesops/accounts", acc, model.ActionRead, h.ListAccounts)
	r.route(http.MethodGet, "/salesops/accounts/:id", acc, model.ActionRead, h.GetAccount)
	r.route(http.MethodPost, "/salesops/accounts", acc, model.ActionCreate, h.CreateAccount)
	r.route(http.MethodPut, "/salesops/accounts/:id", acc, model.ActionUpdate, h.UpdateAccount)
	r.route(http.MethodDelete, "/salesops/accounts/:id", acc, model.ActionDelete, h.DeleteAccount)

	r.route(http.MethodGet, "/salesops/contacts", con, model.ActionRead, h.ListContacts)
	r.route(http.MethodGet, "/salesops/contacts/:id", con, model.ActionRead, h.GetContact)
	r.route(http.MethodPost, "/salesops/contacts", con, model.ActionCreate, h.CreateContact)
	r.route(http.MethodPut, "/salesops/contacts/:id", con, model.ActionUpdate, h.UpdateContact)
	r.route(http.MethodDelete, "/salesops/contacts/:id", con, model.ActionDelete, h.DeleteContact)

	r.route(http.MethodGet, "/salesops/stages", opp, model.ActionRead, h.ListStages)
	r.route(http.MethodPost, "/salesops/stages", opp, model.ActionCreate, h.CreateStage)
	r.route(http.MethodPut, "/salesops/stages/:id", opp, model.ActionUpdate, h.UpdateStage)

	r.route(http.MethodGet, "/salesops/opportunities/pipeline-summary", opp, model.ActionRead, h.PipelineSummary)
	r.route(http.MethodGet, "/salesops/opportunities", opp, model.ActionRead, h.ListOpportunities)
	r.route(http.MethodGet, "/salesops/opportunities/:id", opp, model.ActionRead, h.GetOpportunity)
	r.route(http.MethodPost, "/salesops/opportunities", opp, model.ActionCreate, h.CreateOpportunity)
	r.route(http.MethodPut, "/salesops/opportunities/:id", opp, model.ActionUpdate, h.UpdateOpportunity)
	r.route(http.MethodDelete, "/salesops/opportunities/:id", opp, model.ActionDelete, h.DeleteOpportunity)
	r.route(http.MethodPost, "/salesops/opportunities/:id/restore", opp, model.ActionRestore, h.RestoreOpportunity)
	r.route(http.MethodDelete, "/salesops/opportunities/:id/hard", opp, model.ActionHardDelete, h.HardDeleteOpportunity)
	r.route(http.MethodGet, "/salesops/opportunities/:id/team", opp, model.ActionRead, h.Team)
	r.route(http.MethodPost, "/salesops/opportunities/:id/team", opp, model.ActionUpdate, h.AddTeamMember)
	r.route(http.MethodDelete, "/salesops/opportunities/:id/team/:userId", opp, model.ActionUpdate, h.RemoveTeamMember)

	h.registerCatalog(r)
}

// Accounts

func (h *SalesHandler) ListAccounts(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve accounts")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false)
	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	var accounts []model.SalesAccount
	if err := query.Order("name").Find(&accounts).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve accounts")
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *SalesHandler) GetAccount(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve account")
	}
	var account model.SalesAccount
	if err := h.active(c, actor.TenantID, id).First(&account).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Account not found"), "Failed to retrieve account")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *SalesHandler) CreateAccount(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create account")
	}
	var req AccountRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return apperror.Respond(c, apperror.BadRequest("Name is required"), "")
	}
	prometheus.RecordOperation("sales", "create_account")

	account := model.SalesAccount{Base: model.Base{TenantID: actor.TenantID}}
	req.apply(&account)
	account.Touch(actor.UserID)
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&account).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Account not found"), "Failed to create account")
	}
	return c.JSON(http.StatusCreated, account)
}

func (h *SalesHandler) UpdateAccount(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update account")
	}
	var req AccountRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	var account model.SalesAccount
	if err := h.active(c, actor.TenantID, id).First(&account).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Account not found"), "Failed to update account")
	}
	req.apply(&account)
	account.Touch(actor.UserID)
	if err := h.db.WithContext(c.Request().Context()).Save(&account).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update account")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *SalesHandler) DeleteAccount(c echo.Context) error {
	return h.softDelete(c, &model.SalesAccount{}, "Account not found", "Failed to delete account")
}

// Contacts

func (h *SalesHandler) ListContacts(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contacts")
	}
	accountID, err := queryUUID(c, "accountId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false)
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}
	var contacts []model.SalesContact
	if err := query.Order("last_name, first_name").Find(&contacts).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contacts")
	}
	return c.JSON(http.StatusOK, contacts)
}

func (h *SalesHandler) GetContact(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contact")
	}
	var contact model.SalesContact
	if err := h.active(c, actor.TenantID, id).First(&contact).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Contact not found"), "Failed to retrieve contact")
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *SalesHandler) CreateContact(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create contact")
	}
	var req ContactRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.FirstName == nil || req.LastName == nil {
		return apperror.Respond(c, apperror.BadRequest("FirstName and LastName are required"), "")
	}
	if req.AccountID != nil {
		if err := h.exists(c, &model.SalesAccount{}, actor.TenantID, *req.AccountID, "Account not found"); err != nil {
			return apperror.Respond(c, err, "Failed to create contact")
		}
	}
	prometheus.RecordOperation("sales", "create_contact")

	contact := model.SalesContact{Base: model.Base{TenantID: actor.TenantID}}
	req.apply(&contact)
	contact.Touch(actor.UserID)
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&contact).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Contact not found"), "Failed to create contact")
	}
	return c.JSON(http.StatusCreated, contact)
}

func (h *SalesHandler) UpdateContact(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update contact")
	}
	var req ContactRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	var contact model.SalesContact
	if err := h.active(c, actor.TenantID, id).First(&contact).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Contact not found"), "Failed to update contact")
	}
	if req.AccountID != nil {
		if err := h.exists(c, &model.SalesAccount{}, actor.TenantID, *req.AccountID, "Account not found"); err != nil {
			return apperror.Respond(c, err, "Failed to update contact")
		}
	}
	req.apply(&contact)
	contact.Touch(actor.UserID)
	if err := h.db.WithContext(c.Request().Context()).Save(&contact).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update contact")
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *SalesHandler) DeleteContact(c echo.Context) error {
	return h.softDelete(c, &model.SalesContact{}, "Contact not found", "Failed to delete contact")
}

// Stages

func (h *SalesHandler) ListStages(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve stages")
	}
	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ?", actor.TenantID)
	if !queryBool(c, "includeInactive") {
		query = query.Where("is_active = ?", true)
	}
	var stages []model.SalesStage
	if err := query.Order("sort_order").Find(&stages).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve stages")
	}
	return c.JSON(http.StatusOK, stages)
}

func (h *SalesHandler) CreateStage(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create stage")
	}
	var req StageRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return apperror.Respond(c, apperror.BadRequest("Name is required"), "")
	}

	db := h.db.WithContext(c.Request().Context())
	stage := model.SalesStage{Base: model.Base{TenantID: actor.TenantID}, IsActive: true}
	if req.SortOrder == nil {
		var max int
		if err := db.Model(&model.SalesStage{}).Where("tenant_id = ?", actor.TenantID).
			Select("COALESCE(MAX(sort_order), 0)").Scan(&max).Error; err != nil {
			return apperror.Respond(c, err, "Failed to create stage")
		}
		stage.SortOrder = max + 1
	}
	req.apply(&stage)
	stage.Touch(actor.UserID)
	if err := db.Create(&stage).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Stage not found"), "Failed to create stage")
	}
	return c.JSON(http.StatusCreated, stage)
}

func (h *SalesHandler) UpdateStage(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update stage")
	}
	var req StageRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	db := h.db.WithContext(c.Request().Context())
	var stage model.SalesStage
	if err := db.Where("id = ? AND tenant_id = ?", id, actor.TenantID).First(&stage).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Stage not found"), "Failed to update stage")
	}
	req.apply(&stage)
	stage.Touch(actor.UserID)
	if err := db.Save(&stage).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update stage")
	}
	return c.JSON(http.StatusOK, stage)
}

// Opportunities

func (h *SalesHandler) ListOpportunities(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve opportunities")
	}
	prometheus.RecordOperation("sales", "list_opportunities")
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Preload("Stage").Preload("Account").
		Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false)
	for param, column := range map[string]string{"stageId": "stage_id", "accountId": "account_id", "ownerId": "owner_user_id"} {
		id, err := queryUUID(c, param)
		if err != nil {
			return apperror.Respond(c, err, "")
		}
		if id != nil {
			query = query.Where(column+" = ?", *id)
		}
	}

	var opportunities []model.SalesOpportunity
	if err := query.Order("opportunity_number DESC").Find(&opportunities).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve opportunities")
	}
	return c.JSON(http.StatusOK, opportunities)
}

func (h *SalesHandler) GetOpportunity(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve opportunity")
	}
	var opp model.SalesOpportunity
	err = h.active(c, actor.TenantID, id).Preload("Stage").Preload("Account").Preload("TeamMembers").First(&opp).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Opportunity not found"), "Failed to retrieve opportunity")
	}
	return c.JSON(http.StatusOK, opp)
}

func (h *SalesHandler) CreateOpportunity(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create opportunity")
	}
	var req OpportunityRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name == nil || req.StageID == nil {
		return apperror.Respond(c, apperror.BadRequest("Name and StageId are required"), "")
	}
	prometheus.RecordOperation("sales", "create_opportunity")

	opp := model.SalesOpportunity{Base: model.Base{TenantID: actor.TenantID}, OwnerUserID: actor.UserID}
	err = h.db.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		var stage model.SalesStage
		if err := tx.Where("id = ? AND tenant_id = ?", *req.StageID, actor.TenantID).First(&stage).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.BadRequest("Stage not found")
			}
			return err
		}
		opp.Probability = stage.Probability
		if req.AccountID != nil {
			if err := existsIn(tx, &model.SalesAccount{}, actor.TenantID, *req.AccountID, "Account not found"); err != nil {
				return err
			}
		}

		number, err := nextOpportunityNumber(tx, actor.TenantID)
		if err != nil {
			return err
		}
		opp.OpportunityNumber = number
		req.apply(&opp)
		opp.Touch(actor.UserID)
		return tx.Create(&opp).Error
	})
	if err != nil {
		return apperror.Respond(c, dbError(err, "Opportunity not found"), "Failed to create opportunity")
	}

	log.Info("Opportunity created",
		zap.String("opportunity_id", opp.ID.String()),
		zap.String("opportunity_number", opp.OpportunityNumber))
	return c.JSON(http.StatusCreated, opp)
}

func (h *SalesHandler) UpdateOpportunity(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update opportunity")
	}
	var req OpportunityRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	var opp model.SalesOpportunity
	if err := h.active(c, actor.TenantID, id).First(&opp).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Opportunity not found"), "Failed to update opportunity")
	}
	if req.StageID != nil && *req.StageID != opp.StageID {
		var stage model.SalesStage
		err := h.db.WithContext(c.Request().Context()).
			Where("id = ? AND tenant_id = ?", *req.StageID, actor.TenantID).First(&stage).Error
		if err != nil {
			if database.IsNotFound(err) {
				return apperror.Respond(c, apperror.BadRequest("Stage not found"), "")
			}
			return apperror.Respond(c, err, "Failed to update opportunity")
		}
		if req.Probability == nil {
			opp.Probability = stage.Probability
		}
	}
	req.apply(&opp)
	opp.Touch(actor.UserID)
	prometheus.RecordOperation("sales", "update_opportunity")
	if err := h.db.WithContext(c.Request().Context()).Omit(clause.Associations).Save(&opp).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update opportunity")
	}
	return c.JSON(http.StatusOK, opp)
}

func (h *SalesHandler) DeleteOpportunity(c echo.Context) error {
	return h.softDelete(c, &model.SalesOpportunity{}, "Opportunity not found", "Failed to delete opportunity")
}

func (h *SalesHandler) RestoreOpportunity(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to restore opportunity")
	}
	if err := repository.Restore(c.Request().Context(), h.db, &model.SalesOpportunity{}, actor.TenantID, id); err != nil {
		return apperror.Respond(c, dbError(err, "Deleted opportunity not found"), "Failed to restore opportunity")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Opportunity restored"})
}

func (h *SalesHandler) HardDeleteOpportunity(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete opportunity")
	}
	prometheus.RecordOperation("sales", "hard_delete_opportunity")
	defer prometheus.TrackDBOperation("delete")(time.Now())

	ctx := c.Request().Context()
	if err := h.db.WithContext(ctx).Where("opportunity_id = ? AND tenant_id = ?", id, actor.TenantID).
		Delete(&model.OpportunityTeamMember{}).Error; err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete opportunity")
	}
	err = repository.HardDelete(ctx, h.db, &model.SalesOpportunity{}, model.EntitySalesOpportunity, actor.TenantID, id, actor.UserID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Opportunity not found"), "Failed to permanently delete opportunity")
	}
	logger.FromEcho(c).Warn("Opportunity permanently deleted", zap.String("opportunity_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *SalesHandler) Team(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve team")
	}
	var members []model.OpportunityTeamMember
	if err := h.db.WithContext(c.Request().Context()).
		Where("opportunity_id = ? AND tenant_id = ?", id, actor.TenantID).
		Order("created_at").Find(&members).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve team")
	}
	return c.JSON(http.StatusOK, members)
}

func (h *SalesHandler) AddTeamMember(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to add team member")
	}
	var req TeamMemberRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.exists(c, &model.SalesOpportunity{}, actor.TenantID, id, "Opportunity not found"); err != nil {
		return apperror.Respond(c, err, "Failed to add team member")
	}

	member := model.OpportunityTeamMember{TenantID: actor.TenantID, OpportunityID: id, UserID: req.UserID, Role: req.Role}
	if err := h.db.WithContext(c.Request().Context()).Create(&member).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Opportunity not found"), "Failed to add team member")
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *SalesHandler) RemoveTeamMember(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to remove team member")
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	result := h.db.WithContext(c.Request().Context()).
		Where("opportunity_id = ? AND user_id = ? AND tenant_id = ?", id, userID, actor.TenantID).
		Delete(&model.OpportunityTeamMember{})
	if result.Error != nil {
		return apperror.Respond(c, result.Error, "Failed to remove team member")
	}
	if result.RowsAffected == 0 {
		return apperror.Respond(c, apperror.NotFound("Team member not found"), "")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SalesHandler) PipelineSummary(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to build pipeline summary")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	db := h.db.WithContext(c.Request().Context())
	var stages []model.SalesStage
	if err := db.Where("tenant_id = ?", actor.TenantID).Order("sort_order").Find(&stages).Error; err != nil {
		return apperror.Respond(c, err, "Failed to build pipeline summary")
	}
	var opportunities []model.SalesOpportunity
	if err := db.Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false).Find(&opportunities).Error; err != nil {
		return apperror.Respond(c, err, "Failed to build pipeline summary")
	}
	return c.JSON(http.StatusOK, pipelineSummary(stages, opportunities))
}

// pipelineSummary totals opportunities per stage, ordered by the stage sort order
func pipelineSummary(stages []model.SalesStage, opportunities []model.SalesOpportunity) []StageSummary {
	sorted := make([]model.SalesStage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })

	index := make(map[uuid.UUID]int, len(sorted))
	summary := make([]StageSummary, len(sorted))
	for i, s := range sorted {
		index[s.ID] = i
		summary[i] = StageSummary{
			StageID:            s.ID,
			StageName:          s.Name,
			SortOrder:          s.SortOrder,
			TotalAmount:        decimal.Zero,
			WeightedAmount:     decimal.Zero,
			TotalContractValue: decimal.Zero,
		}
	}
	for i := range opportunities {
		o := &opportunities[i]
		pos, ok := index[o.StageID]
		if !ok {
			continue
		}
		row := &summary[pos]
		row.Count++
		row.TotalAmount = row.TotalAmount.Add(o.Amount)
		row.WeightedAmount = row.WeightedAmount.Add(o.WeightedAmount())
		row.TotalContractValue = row.TotalContractValue.Add(o.TotalContractValue)
	}
	return summary
}

func nextOpportunityNumber(tx *gorm.DB, tenantID uuid.UUID) (string, error) {
	var numbers []string
	err := tx.Model(&model.SalesOpportunity{}).
		Where("tenant_id = ? AND opportunity_number LIKE ?", tenantID, opportunityNumberPrefix+"%").
		Order("opportunity_number DESC").Limit(1).
		Pluck("opportunity_number", &numbers).Error
	if err != nil {
		return "", err
	}
	last := 0
	if len(numbers) > 0 {
		last = parseOpportunityNumber(numbers[0])
	}
	return formatOpportunityNumber(last + 1), nil
}

func formatOpportunityNumber(n int) string {
	return fmt.Sprintf("%s%06d", opportunityNumberPrefix, n)
}

// parseOpportunityNumber returns 0 for an empty or malformed number
func parseOpportunityNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(s, opportunityNumberPrefix))
	if err != nil || !strings.HasPrefix(s, opportunityNumberPrefix) {
		return 0
	}
	return n
}

func (h *SalesHandler) softDelete(c echo.Context, entity interface{}, notFoundMsg, fallback string) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, fallback)
	}
	defer prometheus.TrackDBOperation("update")(time.Now())
	err = repository.SoftDelete(c.Request().Context(), h.db, entity, actor.TenantID, id, actor.UserID, c.QueryParam("reason"))
	if err != nil {
		return apperror.Respond(c, dbError(err, notFoundMsg), fallback)
	}
	return c.NoContent(http.StatusNoContent)
}

// active scopes a lookup to one non-deleted row of the tenant
func (h *SalesHandler) active(c echo.Context, tenantID, id uuid.UUID) *gorm.DB {
	return h.db.WithContext(c.Request().Context()).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false)
}

func (h *SalesHandler) exists(c echo.Context, entity interface{}, tenantID, id uuid.UUID, notFoundMsg string) error {
	return existsIn(h.db.WithContext(c.Request().Context()), entity, tenantID, id, notFoundMsg)
}

func existsIn(db *gorm.DB, entity interface{}, tenantID, id uuid.UUID, notFoundMsg string) error {
	var count int64
	if err := db.Model(entity).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.BadRequest("%s", notFoundMsg)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
