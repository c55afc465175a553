package handler

import (
	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

// AvailabilityHandler doctor availability templates and open slots
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
	schedulingSvc   service.SchedulingService
	errorRenderer
}

// NewAvailabilityHandler creates an AvailabilityHandler.
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService, schedulingSvc service.SchedulingService, r errorRenderer) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc, schedulingSvc: schedulingSvc, errorRenderer: r}
}

// GetAvailableSlots open slots of one doctor on one day
// GET /api/v1/doctor-time-slots/available?doctor_id=&date=
func (h *AvailabilityHandler) GetAvailableSlots(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AvailableSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	slots, err := h.schedulingSvc.GetAvailableSlots(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, slots)
}

// ListTemplates GET /api/v1/doctor-time-slots
func (h *AvailabilityHandler) ListTemplates(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.TemplateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	list, err := h.availabilitySvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateTemplate POST /api/v1/doctor-time-slots
func (h *AvailabilityHandler) CreateTemplate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	tpl, err := h.availabilitySvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.Created(c, tpl)
}

// BulkCreateTemplates all or nothing
// POST /api/v1/doctor-time-slots/bulk
func (h *AvailabilityHandler) BulkCreateTemplates(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.BulkCreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	list, err := h.availabilitySvc.BulkCreate(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.Created(c, gin.H{"list": list})
}

// UpdateTemplate PUT /api/v1/doctor-time-slots/:id
func (h *AvailabilityHandler) UpdateTemplate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	tpl, err := h.availabilitySvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, tpl)
}

// DeactivateTemplate soft disable; booked appointments stay untouched
// DELETE /api/v1/doctor-time-slots/:id
func (h *AvailabilityHandler) DeactivateTemplate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.availabilitySvc.Deactivate(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.render(c, err)
		return
	}

	response.OKMessage(c, "Time slot deactivated", nil)
}
