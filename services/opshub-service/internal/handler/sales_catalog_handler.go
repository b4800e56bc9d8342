package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContractVehicleRequest struct {
	Name             *string          `json:"name" validate:"omitempty,max=200"`
	ContractNumber   *string          `json:"contract_number" validate:"omitempty,max=100"`
	Description      *string          `json:"description"`
	VehicleType      *string          `json:"vehicle_type" validate:"omitempty,max=50"`
	IssuingAgency    *string          `json:"issuing_agency" validate:"omitempty,max=200"`
	AwardDate        *Date            `json:"award_date"`
	StartDate        *Date            `json:"start_date"`
	EndDate          *Date            `json:"end_date"`
	ExpirationDate   *Date            `json:"expiration_date"`
	CeilingValue     *decimal.Decimal `json:"ceiling_value"`
	AwardedValue     *decimal.Decimal `json:"awarded_value"`
	EligibilityNotes *string          `json:"eligibility_notes"`
	IsActive         *bool            `json:"is_active"`
}

func (r ContractVehicleRequest) apply(v *model.ContractVehicle) {
	setString(&v.Name, r.Name)
	setString(&v.ContractNumber, r.ContractNumber)
	setString(&v.Description, r.Description)
	setString(&v.VehicleType, r.VehicleType)
	setString(&v.IssuingAgency, r.IssuingAgency)
	for dst, src := range map[**time.Time]*Date{
		&v.AwardDate: r.AwardDate, &v.StartDate: r.StartDate,
		&v.EndDate: r.EndDate, &v.ExpirationDate: r.ExpirationDate,
	} {
		if d := src.Ptr(); d != nil {
			*dst = d
		}
	}
	if r.CeilingValue != nil {
		v.CeilingValue = r.CeilingValue
	}
	if r.AwardedValue != nil {
		v.AwardedValue = r.AwardedValue
	}
	setString(&v.EligibilityNotes, r.EligibilityNotes)
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
}

// ContractVehicleResponse adds the derived remaining value
type ContractVehicleResponse struct {
	model.ContractVehicle
	RemainingValue *decimal.Decimal `json:"remaining_value,omitempty"`
}

func vehicleResponse(v model.ContractVehicle) ContractVehicleResponse {
	return ContractVehicleResponse{ContractVehicle: v, RemainingValue: v.RemainingValue()}
}

type PicklistRequest struct {
	PicklistName  *string `json:"picklist_name" validate:"omitempty,max=100"`
	DisplayLabel  *string `json:"display_label" validate:"omitempty,max=200"`
	Description   *string `json:"description"`
	AllowMultiple *bool   `json:"allow_multiple"`
	EntityType    *string `json:"entity_type" validate:"omitempty,max=50"`
	FieldName     *string `json:"field_name" validate:"omitempty,max=100"`
	SortOrder     *int    `json:"sort_order"`
	IsActive      *bool   `json:"is_active"`
}

// apply leaves the name alone; it is the lookup key once created
func (r PicklistRequest) apply(p *model.SalesPicklistDefinition) {
	setString(&p.DisplayLabel, r.DisplayLabel)
	setString(&p.Description, r.Description)
	setString(&p.EntityType, r.EntityType)
	setString(&p.FieldName, r.FieldName)
	if r.AllowMultiple != nil {
		p.AllowMultiple = *r.AllowMultiple
	}
	if r.SortOrder != nil {
		p.SortOrder = *r.SortOrder
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

type PicklistValueRequest struct {
	Value       *string `json:"value" validate:"omitempty,max=100"`
	Label       *string `json:"label" validate:"omitempty,max=200"`
	SortOrder   *int    `json:"sort_order"`
	IsDefault   *bool   `json:"is_default"`
	IsActive    *bool   `json:"is_active"`
	Color       *string `json:"color" validate:"omitempty,max=20"`
	Description *string `json:"description"`
}

func (r PicklistValueRequest) apply(v *model.SalesPicklistValue) {
	setString(&v.Label, r.Label)
	setString(&v.Color, r.Color)
	setString(&v.Description, r.Description)
	if r.SortOrder != nil {
		v.SortOrder = *r.SortOrder
	}
	if r.IsDefault != nil {
		v.IsDefault = *r.IsDefault
	}
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
}

type PicklistReorderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

func (h *SalesHandler) registerCatalog(r Router) {
	const (
		cv = model.ResourceContractVehicle
		pl = model.ResourceSalesPicklist
	)
	r.route(http.MethodGet, "/salesops/contract-vehicles", cv, model.ActionRead, h.ListContractVehicles)
	r.route(http.MethodGet, "/salesops/contract-vehicles/:id", cv, model.ActionRead, h.GetContractVehicle)
	r.route(http.MethodPost, "/salesops/contract-vehicles", cv, model.ActionCreate, h.CreateContractVehicle)
	r.route(http.MethodPut, "/salesops/contract-vehicles/:id", cv, model.ActionUpdate, h.UpdateContractVehicle)
	r.route(http.MethodDelete, "/salesops/contract-vehicles/:id", cv, model.ActionDelete, h.DeactivateContractVehicle)

	r.route(http.MethodGet, "/salesops/picklists", pl, model.ActionRead, h.ListPicklists)
	r.route(http.MethodGet, "/salesops/picklists/by-name/:name/values", pl, model.ActionRead, h.PicklistValuesByName)
	r.route(http.MethodGet, "/salesops/picklists/:id", pl, model.ActionRead, h.GetPicklist)
	r.route(http.MethodPost, "/salesops/picklists", pl, model.ActionCreate, h.CreatePicklist)
	r.route(http.MethodPost, "/salesops/picklists/seed-defaults", pl, model.ActionCreate, h.SeedPicklists)
	r.route(http.MethodPut, "/salesops/picklists/:id", pl, model.ActionUpdate, h.UpdatePicklist)
	r.route(http.MethodDelete, "/salesops/picklists/:id", pl, model.ActionDelete, h.DeactivatePicklist)
	r.route(http.MethodPost, "/salesops/picklists/:id/values", pl, model.ActionUpdate, h.AddPicklistValue)
	r.route(http.MethodPut, "/salesops/picklists/:id/values/reorder", pl, model.ActionUpdate, h.ReorderPicklistValues)
	r.route(http.MethodPut, "/salesops/picklists/:id/values/:valueId", pl, model.ActionUpdate, h.UpdatePicklistValue)
	r.route(http.MethodDelete, "/salesops/picklists/:id/values/:valueId", pl, model.ActionUpdate, h.DeactivatePicklistValue)
}

// Contract vehicles

func (h *SalesHandler) ListContractVehicles(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contract vehicles")
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := h.db.WithContext(c.Request().Context()).Where("tenant_id = ?", actor.TenantID)
	if !queryBool(c, "includeInactive") {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		query = query.Where("(name ILIKE ? OR contract_number ILIKE ?)", "%"+search+"%", "%"+search+"%")
	}
	if vehicleType := c.QueryParam("vehicleType"); vehicleType != "" {
		query = query.Where("vehicle_type = ?", vehicleType)
	}
	var vehicles []model.ContractVehicle
	if err := query.Order("name").Find(&vehicles).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contract vehicles")
	}
	out := make([]ContractVehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleResponse(v))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SalesHandler) GetContractVehicle(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contract vehicle")
	}
	vehicle, err := h.findVehicle(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve contract vehicle")
	}
	return c.JSON(http.StatusOK, vehicleResponse(*vehicle))
}

func (h *SalesHandler) CreateContractVehicle(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create contract vehicle")
	}
	var req ContractVehicleRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return apperror.Respond(c, apperror.BadRequest("Name is required"), "")
	}
	prometheus.RecordOperation("sales", "create_contract_vehicle")

	vehicle := model.ContractVehicle{Base: model.Base{TenantID: actor.TenantID}, IsActive: true}
	req.apply(&vehicle)
	vehicle.Touch(actor.UserID)
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&vehicle).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Contract vehicle not found"), "Failed to create contract vehicle")
	}
	return c.JSON(http.StatusCreated, vehicleResponse(vehicle))
}

func (h *SalesHandler) UpdateContractVehicle(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update contract vehicle")
	}
	var req ContractVehicleRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return apperror.Respond(c, apperror.BadRequest("Name cannot be empty"), "")
	}
	vehicle, err := h.findVehicle(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update contract vehicle")
	}
	req.apply(vehicle)
	vehicle.Touch(actor.UserID)
	if err := h.db.WithContext(c.Request().Context()).Save(vehicle).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update contract vehicle")
	}
	return c.JSON(http.StatusOK, vehicleResponse(*vehicle))
}

// DeactivateContractVehicle hides the vehicle; opportunities bid through it keep the reference
func (h *SalesHandler) DeactivateContractVehicle(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete contract vehicle")
	}
	err = h.deactivate(c, &model.ContractVehicle{}, actor.UserID, "id = ? AND tenant_id = ?", id, actor.TenantID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Contract vehicle not found"), "Failed to delete contract vehicle")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SalesHandler) findVehicle(c echo.Context, tenantID, id uuid.UUID) (*model.ContractVehicle, error) {
	var vehicle model.ContractVehicle
	err := h.db.WithContext(c.Request().Context()).
		Where("id = ? AND tenant_id = ?", id, tenantID).First(&vehicle).Error
	if err != nil {
		return nil, dbError(err, "Contract vehicle not found")
	}
	return &vehicle, nil
}

// Picklists

func (h *SalesHandler) ListPicklists(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve picklists")
	}
	includeInactive := queryBool(c, "includeInactive")
	query := h.db.WithContext(c.Request().Context()).
		Preload("Values", picklistValues(includeInactive)).
		Where("tenant_id = ?", actor.TenantID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var picklists []model.SalesPicklistDefinition
	if err := query.Order("sort_order, display_label").Find(&picklists).Error; err != nil {
		return apperror.Respond(c, err, "Failed to retrieve picklists")
	}
	return c.JSON(http.StatusOK, picklists)
}

func (h *SalesHandler) GetPicklist(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve picklist")
	}
	var picklist model.SalesPicklistDefinition
	err = h.db.WithContext(c.Request().Context()).
		Preload("Values", picklistValues(true)).
		Where("id = ? AND tenant_id = ?", id, actor.TenantID).First(&picklist).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist not found"), "Failed to retrieve picklist")
	}
	return c.JSON(http.StatusOK, picklist)
}

// PicklistValuesByName returns the active values forms offer for a field
func (h *SalesHandler) PicklistValuesByName(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve picklist values")
	}
	db := h.db.WithContext(c.Request().Context())
	var picklist model.SalesPicklistDefinition
	err = db.Where("tenant_id = ? AND picklist_name = ? AND is_active = ?", actor.TenantID, c.Param("name"), true).
		First(&picklist).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist not found"), "Failed to retrieve picklist values")
	}
	var values []model.SalesPicklistValue
	err = db.Where("picklist_definition_id = ? AND is_active = ?", picklist.ID, true).
		Order("sort_order").Find(&values).Error
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve picklist values")
	}
	return c.JSON(http.StatusOK, values)
}

func (h *SalesHandler) CreatePicklist(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create picklist")
	}
	var req PicklistRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.PicklistName == nil || strings.TrimSpace(*req.PicklistName) == "" ||
		req.DisplayLabel == nil || strings.TrimSpace(*req.DisplayLabel) == "" {
		return apperror.Respond(c, apperror.BadRequest("PicklistName and DisplayLabel are required"), "")
	}
	name := strings.TrimSpace(*req.PicklistName)

	db := h.db.WithContext(c.Request().Context())
	var count int64
	if err := db.Model(&model.SalesPicklistDefinition{}).
		Where("tenant_id = ? AND picklist_name = ?", actor.TenantID, name).Count(&count).Error; err != nil {
		return apperror.Respond(c, err, "Failed to create picklist")
	}
	if count > 0 {
		return apperror.Respond(c, apperror.Conflict("Picklist '%s' already exists", name), "")
	}

	picklist := model.SalesPicklistDefinition{Base: model.Base{TenantID: actor.TenantID}, PicklistName: name, IsActive: true}
	req.apply(&picklist)
	picklist.Touch(actor.UserID)
	if err := db.Create(&picklist).Error; err != nil {
		return apperror.Respond(c, dbError(err, "Picklist not found"), "Failed to create picklist")
	}
	return c.JSON(http.StatusCreated, picklist)
}

func (h *SalesHandler) UpdatePicklist(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update picklist")
	}
	var req PicklistRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	picklist, err := h.findPicklist(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update picklist")
	}
	if picklist.IsSystemPicklist && req.IsActive != nil && !*req.IsActive {
		return apperror.Respond(c, apperror.BadRequest("Cannot deactivate a system picklist"), "")
	}
	req.apply(picklist)
	picklist.Touch(actor.UserID)
	if err := h.db.WithContext(c.Request().Context()).Omit("Values").Save(picklist).Error; err != nil {
		return apperror.Respond(c, err, "Failed to update picklist")
	}
	return c.JSON(http.StatusOK, picklist)
}

func (h *SalesHandler) DeactivatePicklist(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete picklist")
	}
	picklist, err := h.findPicklist(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete picklist")
	}
	if picklist.IsSystemPicklist {
		return apperror.Respond(c, apperror.BadRequest("Cannot delete a system picklist. You can only manage its values."), "")
	}
	err = h.deactivate(c, &model.SalesPicklistDefinition{}, actor.UserID, "id = ?", picklist.ID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist not found"), "Failed to delete picklist")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SalesHandler) AddPicklistValue(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to add picklist value")
	}
	var req PicklistValueRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Value == nil || strings.TrimSpace(*req.Value) == "" {
		return apperror.Respond(c, apperror.BadRequest("Value is required"), "")
	}
	picklist, err := h.findPicklist(c, actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to add picklist value")
	}

	db := h.db.WithContext(c.Request().Context())
	value := strings.TrimSpace(*req.Value)
	var count int64
	if err := db.Model(&model.SalesPicklistValue{}).
		Where("picklist_definition_id = ? AND value = ?", picklist.ID, value).Count(&count).Error; err != nil {
		return apperror.Respond(c, err, "Failed to add picklist value")
	}
	if count > 0 {
		return apperror.Respond(c, apperror.Conflict("Value '%s' already exists in this picklist", value), "")
	}

	row := model.SalesPicklistValue{
		Base:                 model.Base{TenantID: actor.TenantID},
		PicklistDefinitionID: picklist.ID,
		Value:                value,
		Label:                value,
		IsActive:             true,
	}
	if req.SortOrder == nil {
		var max int
		if err := db.Model(&model.SalesPicklistValue{}).Where("picklist_definition_id = ?", picklist.ID).
			Select("COALESCE(MAX(sort_order), 0)").Scan(&max).Error; err != nil {
			return apperror.Respond(c, err, "Failed to add picklist value")
		}
		row.SortOrder = max + 1
	}
	req.apply(&row)
	row.Touch(actor.UserID)

	err = db.Transaction(func(tx *gorm.DB) error {
		if row.IsDefault {
			if err := clearDefault(tx, picklist.ID); err != nil {
				return err
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist not found"), "Failed to add picklist value")
	}
	return c.JSON(http.StatusCreated, row)
}

func (h *SalesHandler) UpdatePicklistValue(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update picklist value")
	}
	valueID, err := pathID(c, "valueId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req PicklistValueRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	db := h.db.WithContext(c.Request().Context())
	var row model.SalesPicklistValue
	err = db.Where("id = ? AND picklist_definition_id = ? AND tenant_id = ?", valueID, id, actor.TenantID).First(&row).Error
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist value not found"), "Failed to update picklist value")
	}
	req.apply(&row)
	row.Touch(actor.UserID)

	err = db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := clearDefault(tx, id); err != nil {
				return err
			}
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return apperror.Respond(c, err, "Failed to update picklist value")
	}
	return c.JSON(http.StatusOK, row)
}

// ReorderPicklistValues numbers the listed values from zero; ids outside the picklist are ignored
func (h *SalesHandler) ReorderPicklistValues(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to reorder picklist values")
	}
	var req PicklistReorderRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	err = h.db.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		for i, valueID := range req.IDs {
			err := tx.Model(&model.SalesPicklistValue{}).
				Where("id = ? AND picklist_definition_id = ? AND tenant_id = ?", valueID, id, actor.TenantID).
				Updates(map[string]interface{}{"sort_order": i, "updated_by_user_id": actor.UserID}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperror.Respond(c, err, "Failed to reorder picklist values")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeactivatePicklistValue keeps the row so records that picked it still resolve a label
func (h *SalesHandler) DeactivatePicklistValue(c echo.Context) error {
	actor, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete picklist value")
	}
	valueID, err := pathID(c, "valueId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	err = h.deactivate(c, &model.SalesPicklistValue{}, actor.UserID,
		"id = ? AND picklist_definition_id = ? AND tenant_id = ?", valueID, id, actor.TenantID)
	if err != nil {
		return apperror.Respond(c, dbError(err, "Picklist value not found"), "Failed to delete picklist value")
	}
	return c.NoContent(http.StatusNoContent)
}

// SeedPicklists creates the system picklists for a tenant that has none
func (h *SalesHandler) SeedPicklists(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to seed picklists")
	}
	db := h.db.WithContext(c.Request().Context())
	var count int64
	if err := db.Model(&model.SalesPicklistDefinition{}).Where("tenant_id = ?", actor.TenantID).Count(&count).Error; err != nil {
		return apperror.Respond(c, err, "Failed to seed picklists")
	}
	if count > 0 {
		return apperror.Respond(c, apperror.BadRequest("Picklists already exist for this tenant"), "")
	}

	picklists := defaultPicklists(actor.TenantID, actor.UserID)
	if err := db.Create(&picklists).Error; err != nil {
		return apperror.Respond(c, err, "Failed to seed picklists")
	}
	logger.FromEcho(c).Info("Seeded sales picklists",
		zap.String("tenant_id", actor.TenantID.String()), zap.Int("count", len(picklists)))
	return c.JSON(http.StatusCreated, picklists)
}

func (h *SalesHandler) findPicklist(c echo.Context, tenantID, id uuid.UUID) (*model.SalesPicklistDefinition, error) {
	var picklist model.SalesPicklistDefinition
	err := h.db.WithContext(c.Request().Context()).
		Where("id = ? AND tenant_id = ?", id, tenantID).First(&picklist).Error
	if err != nil {
		return nil, dbError(err, "Picklist not found")
	}
	return &picklist, nil
}

// deactivate flips is_active off for the row matched by the condition
func (h *SalesHandler) deactivate(c echo.Context, entity interface{}, userID uuid.UUID, cond string, args ...interface{}) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := h.db.WithContext(c.Request().Context()).Model(entity).Where(cond, args...).
		Updates(map[string]interface{}{"is_active": false, "updated_by_user_id": userID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func picklistValues(includeInactive bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !includeInactive {
			db = db.Where("is_active = ?", true)
		}
		return db.Order("sort_order")
	}
}

func clearDefault(tx *gorm.DB, picklistID uuid.UUID) error {
	return tx.Model(&model.SalesPicklistValue{}).
		Where("picklist_definition_id = ? AND is_default = ?", picklistID, true).
		Update("is_default", false).Error
}

func defaultPicklists(tenantID, userID uuid.UUID) []model.SalesPicklistDefinition {
	build := func(name, label, description string, order int, values [][2]string) model.SalesPicklistDefinition {
		p := model.SalesPicklistDefinition{
			Base:             model.Base{TenantID: tenantID},
			PicklistName:     name,
			DisplayLabel:     label,
			Description:      description,
			IsSystemPicklist: true,
			EntityType:       model.CustomEntityOpportunity,
			FieldName:        name,
			SortOrder:        order,
			IsActive:         true,
		}
		p.Touch(userID)
		for i, v := range values {
			value := model.SalesPicklistValue{
				Base:      model.Base{TenantID: tenantID},
				Value:     v[0],
				Label:     v[1],
				SortOrder: i + 1,
				IsActive:  true,
			}
			value.Touch(userID)
			p.Values = append(p.Values, value)
		}
		return p
	}
	return []model.SalesPicklistDefinition{
		build("AcquisitionType", "Acquisition Type", "Federal acquisition type / set-aside category", 1, [][2]string{
			{"8(a)", "8(a)"}, {"SmallBusiness", "Small Business"}, {"HubZoneSB", "HubZone SB"},
			{"SDVOSB", "SDVOSB"}, {"WOSB", "WOSB"}, {"EDWOSB", "EDWOSB"},
			{"Unrestricted", "Unrestricted"}, {"TBD", "TBD"},
		}),
		build("ContractType", "Contract Type", "Type of contract pricing arrangement", 2, [][2]string{
			{"FFP", "Firm Fixed Price (FFP)"}, {"T&M", "Time & Material (T&M)"},
			{"CostReimbursable", "Cost-Reimbursable"}, {"CPFF", "Cost Plus Fixed Fee (CPFF)"},
			{"LaborHours", "Labor Hours"}, {"Hybrid", "Hybrid"}, {"TBD", "TBD"},
		}),
	}
}
