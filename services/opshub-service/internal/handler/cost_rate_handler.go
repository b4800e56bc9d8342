package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/internal/spreadsheet"
	"go.uber.org/zap"
)

const (
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type CostRateRequest struct {
	UserID         *uuid.UUID       `json:"user_id"`
	EffectiveDate  *Date            `json:"effective_date"`
	EndDate        *Date            `json:"end_date"`
	LoadedCostRate *decimal.Decimal `json:"loaded_cost_rate"`
	Notes          *string          `json:"notes" validate:"omitempty,max=500"`
}

func (r CostRateRequest) input() service.CostRateInput {
	return service.CostRateInput{
		UserID:         r.UserID,
		EffectiveDate:  r.EffectiveDate.Ptr(),
		EndDate:        r.EndDate.Ptr(),
		LoadedCostRate: r.LoadedCostRate,
		Notes:          r.Notes,
	}
}

type CostRateHandler struct {
	actorResolver
	svc *service.CostRateService
}

func NewCostRateHandler(svc *service.CostRateService, access service.AccessVerifier) *CostRateHandler {
	return &CostRateHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *CostRateHandler) Register(r Router) {
	const res = model.ResourceEmployeeCostRate
	r.route(http.MethodGet, "/cost-rates/export", res, model.ActionExport, h.Export)
	r.route(http.MethodPost, "/cost-rates/import", res, model.ActionImport, h.Import)
	r.route(http.MethodGet, "/cost-rates/import-history", res, model.ActionImport, h.ImportHistory)
	r.route(http.MethodGet, "/cost-rates/user/:userId/effective", res, model.ActionRead, h.Effective)
	r.route(http.MethodGet, "/cost-rates/user/:userId/history", res, model.ActionRead, h.History)
	r.route(http.MethodGet, "/cost-rates", res, model.ActionRead, h.List)
	r.route(http.MethodGet, "/cost-rates/:id", res, model.ActionRead, h.Get)
	r.route(http.MethodPost, "/cost-rates", res, model.ActionCreate, h.Create)
	r.route(http.MethodPut, "/cost-rates/:id", res, model.ActionUpdate, h.Update)
	r.route(http.MethodDelete, "/cost-rates/:id", res, model.ActionDelete, h.Delete)
}

func (h *CostRateHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rates")
	}

	filter := repository.CostRateFilter{IncludeInactive: queryBool(c, "includeInactive")}
	if filter.UserID, err = queryUUID(c, "userId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	asOf, err := queryDate(c, "asOfDate")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	if asOf != nil {
		filter.AsOf = *asOf
	}

	rates, err := h.svc.List(logger.RequestContext(c), actor.TenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rates")
	}
	return c.JSON(http.StatusOK, rates)
}

func (h *CostRateHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rate")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	rate, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rate")
	}
	return c.JSON(http.StatusOK, rate)
}

func (h *CostRateHandler) Effective(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve effective cost rate")
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	asOf := time.Now().UTC()
	if d, err := queryDate(c, "asOfDate"); err != nil {
		return apperror.Respond(c, err, "")
	} else if d != nil {
		asOf = *d
	}

	rate, err := h.svc.Effective(logger.RequestContext(c), actor.TenantID, userID, asOf)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve effective cost rate")
	}
	return c.JSON(http.StatusOK, rate)
}

func (h *CostRateHandler) History(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rate history")
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	rates, err := h.svc.History(logger.RequestContext(c), actor.TenantID, userID)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve cost rate history")
	}
	return c.JSON(http.StatusOK, rates)
}

func (h *CostRateHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create cost rate")
	}
	var req CostRateRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	rate, err := h.svc.Create(logger.RequestContext(c), actor, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create cost rate")
	}
	return c.JSON(http.StatusCreated, rate)
}

func (h *CostRateHandler) Update(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update cost rate")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req CostRateRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	rate, err := h.svc.Update(logger.RequestContext(c), actor, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update cost rate")
	}
	return c.JSON(http.StatusOK, rate)
}

func (h *CostRateHandler) Delete(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete cost rate")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.svc.Delete(logger.RequestContext(c), actor.TenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to delete cost rate")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CostRateHandler) Export(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to export cost rates")
	}

	format := c.QueryParam("format")
	if format == "" {
		format = spreadsheet.FormatCSV
	}
	if format != spreadsheet.FormatCSV && format != spreadsheet.FormatXLSX {
		return apperror.Respond(c, apperror.BadRequest("format must be csv or xlsx"), "")
	}

	var buf bytes.Buffer
	if err := h.svc.Export(logger.RequestContext(c), actor.TenantID, format, &buf); err != nil {
		return apperror.Respond(c, err, "Failed to export cost rates")
	}

	contentType := mimeCSV
	if format == spreadsheet.FormatXLSX {
		contentType = mimeXLSX
	}
	fileName := fmt.Sprintf("cost-rates-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (h *CostRateHandler) Import(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to import cost rates")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.Respond(c, apperror.BadRequest("A file is required"), "")
	}
	f, err := fh.Open()
	if err != nil {
		return apperror.Respond(c, err, "Failed to read the uploaded file")
	}
	defer f.Close()

	result, err := h.svc.Import(logger.RequestContext(c), actor, fh.Filename, f)
	if err != nil {
		return apperror.Respond(c, err, "Failed to import cost rates")
	}

	log.Info("Cost rates imported",
		zap.String("file", fh.Filename),
		zap.Int("success", result.Batch.SuccessCount),
		zap.Int("errors", result.Batch.ErrorCount))
	return c.JSON(http.StatusOK, result)
}

func (h *CostRateHandler) ImportHistory(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve import history")
	}

	batches, err := h.svc.ImportHistory(logger.RequestContext(c), actor.TenantID)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve import history")
	}
	return c.JSON(http.StatusOK, batches)
}
