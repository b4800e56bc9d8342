package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/internal/spreadsheet"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OfficeRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Address  *string `json:"address"`
	City     *string `json:"city" validate:"omitempty,max=100"`
	Timezone *string `json:"timezone" validate:"omitempty,max=64"`
	IsActive *bool   `json:"is_active"`
}

func (r OfficeRequest) apply(o *model.Office) {
	if r.Name != nil {
		o.Name = *r.Name
	}
	if r.Address != nil {
		o.Address = *r.Address
	}
	if r.City != nil {
		o.City = *r.City
	}
	if r.Timezone != nil {
		o.Timezone = *r.Timezone
	}
	if r.IsActive != nil {
		o.IsActive = *r.IsActive
	}
}

type SpaceRequest struct {
	OfficeID *uuid.UUID `json:"office_id"`
	Name     *string    `json:"name" validate:"omitempty,max=200"`
	Type     *string    `json:"type" validate:"omitempty,oneof=Desk Room PhoneBooth Parking"`
	Capacity *int       `json:"capacity" validate:"omitempty,min=1"`
	IsActive *bool      `json:"is_active"`
}

func (r SpaceRequest) apply(s *model.Space) {
	if r.OfficeID != nil {
		s.OfficeID = *r.OfficeID
	}
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Type != nil {
		s.Type = *r.Type
	}
	if r.Capacity != nil {
		s.Capacity = *r.Capacity
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

// FacilityHandler serves offices and their bookable spaces
type FacilityHandler struct {
	actorResolver
	db *gorm.DB
}

func NewFacilityHandler(db *gorm.DB, access service.AccessVerifier) *FacilityHandler {
	return &FacilityHandler{actorResolver: actorResolver{access: access}, db: db}
}

func (h *FacilityHandler) Register(r Router) {
	const res = model.ResourceFacility
	r.route(http.MethodGet, "/offices", res, model.ActionRead, h.ListOffices)
	r.route(http.MethodGet, "/offices/:id", res, model.ActionRead, h.GetOffice)
	r.route(http.MethodPost, "/offices", res, model.ActionCreate, h.CreateOffice)
	r.route(http.MethodPut, "/offices/:id", res, model.ActionUpdate, h.UpdateOffice)
	r.route(http.MethodDelete, "/offices/:id", res, model.ActionDelete, h.DeleteOffice)
	r.route(http.MethodPost, "/offices/:id/restore", res, model.ActionRestore, h.RestoreOffice)
	r.route(http.MethodDelete, "/offices/:id/hard", res, model.ActionHardDelete, h.HardDeleteOffice)
	r.route(http.MethodGet, "/offices/:id/spaces", res, model.ActionRead, h.OfficeSpaces)

	r.route(http.MethodGet, "/spaces", res, model.ActionRead, h.ListSpaces)
	r.route(http.MethodGet, "/spaces/:id", res, model.ActionRead, h.GetSpace)
	r.route(http.MethodPost, "/spaces", res, model.ActionCreate, h.CreateSpace)
	r.route(http.MethodPut, "/spaces/:id", res, model.ActionUpdate, h.UpdateSpace)
	r.route(http.MethodDelete, "/spaces/:id", res, model.ActionDelete, h.DeleteSpace)

	r.route(http.MethodGet, "/facilities/export", res, model.ActionExport, h.Export)
}

func (h *FacilityHandler) ListOffices(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve offices")
	}
	prometheus.RecordOperation("facilities", "list_offices")
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ?", actor.TenantID)
	if !queryBool(c, "includeDeleted") {
		query = query.Where("is_deleted = ?", false)
	}
	if raw := c.QueryParam("isActive"); raw != "" {
		active, _ := strconv.ParseBool(raw)
		query = query.Where("is_active = ?", active)
	}

	var offices []model.Office
	if err := query.Order("name").Find(&offices).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve offices")
	}
	return c.JSON(http.StatusOK, offices)
}

func (h *FacilityHandler) GetOffice(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve office")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	var office model.Office
	err = h.db.WithContext(c.Request().Context()).
		Preload("Spaces", "is_active = ?", true).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, actor.TenantID, false).
		First(&office).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to retrieve office")
	}
	return c.JSON(http.StatusOK, office)
}

func (h *FacilityHandler) CreateOffice(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create office")
	}
	var req OfficeRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name == nil || *req.Name == "" {
		return apperror.Respond(c, apperror.BadRequest("Name is required"), "")
	}
	prometheus.RecordOperation("facilities", "create_office")

	office := model.Office{Base: model.Base{TenantID: actor.TenantID}, IsActive: true}
	req.apply(&office)
	office.Touch(actor.UserID)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&office).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to create office")
	}

	log.Info("Office created", zap.String("office_id", office.ID.String()), zap.String("name", office.Name))
	return c.JSON(http.StatusCreated, office)
}

func (h *FacilityHandler) UpdateOffice(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update office")
	}
	var req OfficeRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	prometheus.RecordOperation("facilities", "update_office")
	defer prometheus.TrackDBOperation("update")(time.Now())

	db := h.db.WithContext(c.Request().Context())
	var office model.Office
	if err := db.Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, actor.TenantID, false).First(&office).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to update office")
	}
	req.apply(&office)
	office.Touch(actor.UserID)
	if err := db.Save(&office).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to update office")
	}
	return c.JSON(http.StatusOK, office)
}

func (h *FacilityHandler) DeleteOffice(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete office")
	}
	prometheus.RecordOperation("facilities", "delete_office")
	defer prometheus.TrackDBOperation("update")(time.Now())

	err = repository.SoftDelete(c.Request().Context(), h.db, &model.Office{}, actor.TenantID, id, actor.UserID, c.QueryParam("reason"))
	if err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to delete office")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FacilityHandler) RestoreOffice(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to restore office")
	}
	prometheus.RecordOperation("facilities", "restore_office")
	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := repository.Restore(c.Request().Context(), h.db, &model.Office{}, actor.TenantID, id); err != nil {
		return apperror.Respond(c, dbError(err, "Deleted office not found"), "Failed to restore office")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Office restored"})
}

func (h *FacilityHandler) HardDeleteOffice(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete office")
	}
	prometheus.RecordOperation("facilities", "hard_delete_office")
	defer prometheus.TrackDBOperation("delete")(time.Now())

	var spaces int64
	if err := h.db.WithContext(c.Request().Context()).Model(&model.Space{}).
		Where("office_id = ? AND tenant_id = ?", id, actor.TenantID).Count(&spaces).Error; err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete office")
	}
	if spaces > 0 {
		return apperror.Respond(c, apperror.BadRequest("Cannot permanently delete an office that still has spaces"), "")
	}

	err = repository.HardDelete(c.Request().Context(), h.db, &model.Office{}, model.EntityOffice, actor.TenantID, id, actor.UserID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Office not found"), "Failed to permanently delete office")
	}
	logger.FromEcho(c).Warn("Office permanently deleted", zap.String("office_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *FacilityHandler) OfficeSpaces(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve spaces")
	}
	return h.listSpaces(c, actor.TenantID, &id)
}

func (h *FacilityHandler) ListSpaces(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve spaces")
	}
	officeID, err := queryUUID(c, "officeId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	return h.listSpaces(c, actor.TenantID, officeID)
}

func (h *FacilityHandler) listSpaces(c echo.Context, tenantID uuid.UUID, officeID *uuid.UUID) error {
	prometheus.RecordOperation("facilities", "list_spaces")
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ?", tenantID)
	if officeID != nil {
		query = query.Where("office_id = ?", *officeID)
	}
	if t := c.QueryParam("type"); t != "" {
		query = query.Where("type = ?", t)
	}

	var spaces []model.Space
	if err := query.Order("name").Find(&spaces).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve spaces")
	}
	return c.JSON(http.StatusOK, spaces)
}

func (h *FacilityHandler) GetSpace(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve space")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	var space model.Space
	err = h.db.WithContext(c.Request().Context()).Preload("Office").
		Where("id = ? AND tenant_id = ?", id, actor.TenantID).First(&space).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Space not found"), "Failed to retrieve space")
	}
	return c.JSON(http.StatusOK, space)
}

func (h *FacilityHandler) CreateSpace(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create space")
	}
	var req SpaceRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.OfficeID == nil || req.Name == nil || req.Type == nil {
		return apperror.Respond(c, apperror.BadRequest("OfficeId, Name and Type are required"), "")
	}
	prometheus.RecordOperation("facilities", "create_space")

	db := h.db.WithContext(c.Request().Context())
	if err := h.officeExists(db, actor.TenantID, *req.OfficeID); err != nil {
		return apperror.Respond(c, err, "Failed to create space")
	}

	space := model.Space{Base: model.Base{TenantID: actor.TenantID}, Capacity: 1, IsActive: true}
	req.apply(&space)
	space.Touch(actor.UserID)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&space).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Space not found"), "Failed to create space")
	}
	return c.JSON(http.StatusCreated, space)
}

func (h *FacilityHandler) UpdateSpace(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update space")
	}
	var req SpaceRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	prometheus.RecordOperation("facilities", "update_space")
	defer prometheus.TrackDBOperation("update")(time.Now())

	db := h.db.WithContext(c.Request().Context())
	var space model.Space
	if err := db.Where("id = ? AND tenant_id = ?", id, actor.TenantID).First(&space).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Space not found"), "Failed to update space")
	}
	if req.OfficeID != nil && *req.OfficeID != space.OfficeID {
		if err := h.officeExists(db, actor.TenantID, *req.OfficeID); err != nil {
			return apperror.Respond(c, err, "Failed to update space")
		}
	}
	req.apply(&space)
	space.Touch(actor.UserID)
	if err := db.Save(&space).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Space not found"), "Failed to update space")
	}
	return c.JSON(http.StatusOK, space)
}

func (h *FacilityHandler) DeleteSpace(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete space")
	}
	prometheus.RecordOperation("facilities", "delete_space")
	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := h.db.WithContext(c.Request().Context()).
		Where("id = ? AND tenant_id = ?", id, actor.TenantID).Delete(&model.Space{})
	if result.Error != nil {
		return apperror.Respond(c, dbError(result.Error, "Space not found"), "Failed to delete space")
	}
	if result.RowsAffected == 0 {
		return apperror.Respond(c, apperror.NotFound("Space not found"), "")
	}
	return c.NoContent(http.StatusNoContent)
}

// Export returns a workbook with an Offices sheet and a Spaces sheet
func (h *FacilityHandler) Export(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to export facilities")
	}
	prometheus.RecordOperation("facilities", "export")

	db := h.db.WithContext(c.Request().Context())
	var offices []model.Office
	if err := db.Where("tenant_id = ? AND is_deleted = ?", actor.TenantID, false).Order("name").Find(&offices).Error; err != nil {
		return apperror.Respond(c, err, "Failed to export facilities")
	}
	var spaces []model.Space
	if err := db.Where("tenant_id = ?", actor.TenantID).Order("name").Find(&spaces).Error; err != nil {
		return apperror.Respond(c, err, "Failed to export facilities")
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteXLSX(&buf, facilitySheets(offices, spaces)...); err != nil {
		return apperror.Respond(c, err, "Failed to export facilities")
	}

	fileName := fmt.Sprintf("facilities-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func facilitySheets(offices []model.Office, spaces []model.Space) []spreadsheet.Sheet {
	officeNames := make(map[uuid.UUID]string, len(offices))
	officeRows := make([][]string, 0, len(offices))
	for _, o := range offices {
		officeNames[o.ID] = o.Name
		officeRows = append(officeRows, []string{o.Name, o.Address, o.City, o.Timezone, strconv.FormatBool(o.IsActive)})
	}

	spaceRows := make([][]string, 0, len(spaces))
	for _, s := range spaces {
		office, ok := officeNames[s.OfficeID]
		if !ok {
			continue
		}
		spaceRows = append(spaceRows, []string{office, s.Name, s.Type, strconv.Itoa(s.Capacity), strconv.FormatBool(s.IsActive)})
	}

	return []spreadsheet.Sheet{
		{Name: "Offices", Header: []string{"Name", "Address", "City", "Timezone", "Active"}, Rows: officeRows},
		{Name: "Spaces", Header: []string{"Office", "Name", "Type", "Capacity", "Active"}, Rows: spaceRows},
	}
}

func (h *FacilityHandler) officeExists(db *gorm.DB, tenantID, officeID uuid.UUID) error {
	var count int64
	if err := db.Model(&model.Office{}).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", officeID, tenantID, false).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.BadRequest("Office not found")
	}
	return nil
}
