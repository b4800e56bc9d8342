package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

const customFieldEntityTypes = "Opportunity Account Contact"

type CustomFieldRequest struct {
	EntityType       string   `json:"entity_type" validate:"omitempty,oneof=Opportunity Account Contact"`
	FieldName        string   `json:"field_name" validate:"omitempty,max=100"`
	DisplayLabel     *string  `json:"display_label" validate:"omitempty,max=200"`
	FieldType        string   `json:"field_type" validate:"omitempty,oneof=Text TextArea Number Currency Percent Date DateTime Checkbox Picklist MultiPicklist Lookup Url Email Phone"`
	PicklistOptions  []string `json:"picklist_options"`
	DefaultValue     *string  `json:"default_value"`
	IsRequired       *bool    `json:"is_required"`
	IsSearchable     *bool    `json:"is_searchable"`
	IsVisibleInList  *bool    `json:"is_visible_in_list"`
	Section          *string  `json:"section"`
	HelpText         *string  `json:"help_text"`
	SortOrder        *int     `json:"sort_order"`
	IsActive         *bool    `json:"is_active"`
	LookupEntityType *string  `json:"lookup_entity_type"`
}

func (r CustomFieldRequest) input() service.CustomFieldInput {
	return service.CustomFieldInput{
		EntityType:       r.EntityType,
		FieldName:        r.FieldName,
		DisplayLabel:     r.DisplayLabel,
		FieldType:        r.FieldType,
		PicklistOptions:  r.PicklistOptions,
		DefaultValue:     r.DefaultValue,
		IsRequired:       r.IsRequired,
		IsSearchable:     r.IsSearchable,
		IsVisibleInList:  r.IsVisibleInList,
		Section:          r.Section,
		HelpText:         r.HelpText,
		SortOrder:        r.SortOrder,
		IsActive:         r.IsActive,
		LookupEntityType: r.LookupEntityType,
	}
}

type ReorderRequest struct {
	FieldIDs []uuid.UUID `json:"field_ids"`
}

type CustomFieldHandler struct {
	actorResolver
	svc *service.CustomFieldService
}

func NewCustomFieldHandler(svc *service.CustomFieldService, access service.AccessVerifier) *CustomFieldHandler {
	return &CustomFieldHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *CustomFieldHandler) Register(r Router) {
	const res = model.ResourceSalesCustomField
	const base = "/salesops/custom-fields"
	r.route(http.MethodGet, base+"/definitions", res, model.ActionRead, h.ListDefinitions)
	r.route(http.MethodGet, base+"/definitions/:id", res, model.ActionRead, h.GetDefinition)
	r.route(http.MethodPost, base+"/definitions", res, model.ActionCreate, h.CreateDefinition)
	r.route(http.MethodPut, base+"/definitions/reorder", res, model.ActionUpdate, h.Reorder)
	r.route(http.MethodPut, base+"/definitions/:id", res, model.ActionUpdate, h.UpdateDefinition)
	r.route(http.MethodDelete, base+"/definitions/:id", res, model.ActionDelete, h.DeactivateDefinition)
	r.route(http.MethodGet, base+"/values/:entityType/:entityId", res, model.ActionRead, h.Values)
	r.route(http.MethodPut, base+"/values/:entityType/:entityId", res, model.ActionUpdate, h.SetValues)
	r.route(http.MethodDelete, base+"/values/:id", res, model.ActionDelete, h.DeleteValue)
}

func (h *CustomFieldHandler) ListDefinitions(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom fields")
	}
	defs, err := h.svc.ListDefinitions(logger.RequestContext(c), actor.TenantID, c.QueryParam("entityType"), queryBool(c, "includeInactive"))
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom fields")
	}
	return c.JSON(http.StatusOK, defs)
}

func (h *CustomFieldHandler) GetDefinition(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom field")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	def, err := h.svc.GetDefinition(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom field")
	}
	return c.JSON(http.StatusOK, def)
}

func (h *CustomFieldHandler) CreateDefinition(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create custom field")
	}
	var req CustomFieldRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	def, err := h.svc.CreateDefinition(logger.RequestContext(c), actor, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create custom field")
	}
	return c.JSON(http.StatusCreated, def)
}

func (h *CustomFieldHandler) UpdateDefinition(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update custom field")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req CustomFieldRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	def, err := h.svc.UpdateDefinition(logger.RequestContext(c), actor, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update custom field")
	}
	return c.JSON(http.StatusOK, def)
}

func (h *CustomFieldHandler) DeactivateDefinition(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to deactivate custom field")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.svc.DeactivateDefinition(logger.RequestContext(c), actor, id); err != nil {
		return apperror.Respond(c, err, "Failed to deactivate custom field")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CustomFieldHandler) Reorder(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to reorder custom fields")
	}
	var req ReorderRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.svc.Reorder(logger.RequestContext(c), actor.TenantID, req.FieldIDs); err != nil {
		return apperror.Respond(c, err, "Failed to reorder custom fields")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Custom fields reordered"})
}

func (h *CustomFieldHandler) Values(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom field values")
	}
	entityType, entityID, err := customFieldEntity(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	values, err := h.svc.Values(logger.RequestContext(c), actor.TenantID, entityType, entityID)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve custom field values")
	}
	return c.JSON(http.StatusOK, values)
}

func (h *CustomFieldHandler) SetValues(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to save custom field values")
	}
	entityType, entityID, err := customFieldEntity(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var values map[string]interface{}
	if err := c.Bind(&values); err != nil {
		return apperror.Respond(c, apperror.BadRequest("Invalid request body"), "")
	}
	saved, err := h.svc.SetValues(logger.RequestContext(c), actor, entityType, entityID, values)
	if err != nil {
		return apperror.Respond(c, err, "Failed to save custom field values")
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *CustomFieldHandler) DeleteValue(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete custom field value")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.svc.DeleteValue(logger.RequestContext(c), actor.TenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to delete custom field value")
	}
	return c.NoContent(http.StatusNoContent)
}

func customFieldEntity(c echo.Context) (string, uuid.UUID, error) {
	entityType := c.Param("entityType")
	switch entityType {
	case model.CustomEntityOpportunity, model.CustomEntityAccount, model.CustomEntityContact:
	default:
		return "", uuid.Nil, apperror.BadRequest("entityType must be one of: %s", customFieldEntityTypes)
	}
	entityID, err := pathID(c, "entityId")
	if err != nil {
		return "", uuid.Nil, err
	}
	return entityType, entityID, nil
}
