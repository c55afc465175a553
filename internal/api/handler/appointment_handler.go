package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

// AppointmentHandler appointment booking and lifecycle
type AppointmentHandler struct {
	schedulingSvc service.SchedulingService
	errorRenderer
}

// NewAppointmentHandler creates an AppointmentHandler.
func NewAppointmentHandler(schedulingSvc service.SchedulingService, r errorRenderer) *AppointmentHandler {
	return &AppointmentHandler{schedulingSvc: schedulingSvc, errorRenderer: r}
}

// ListAppointments role-scoped, paginated
// GET /api/v1/appointments
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	list, total, err := h.schedulingSvc.ListAppointments(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// CreateAppointment books an appointment
// POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	appt, err := h.schedulingSvc.CreateAppointment(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.Created(c, appt)
}

// GetAppointment GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	appt, err := h.schedulingSvc.GetAppointment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, appt)
}

// Stats counts per status and per day
// GET /api/v1/appointments/stats
func (h *AppointmentHandler) Stats(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	stats, err := h.schedulingSvc.Stats(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, stats)
}

// ── transitions ──

// ConfirmAppointment PUT /api/v1/appointments/:id/confirm
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	h.transition(c, h.schedulingSvc.ConfirmAppointment)
}

// StartAppointment PUT /api/v1/appointments/:id/start
func (h *AppointmentHandler) StartAppointment(c *gin.Context) {
	h.transition(c, h.schedulingSvc.StartAppointment)
}

// NoShowAppointment PUT /api/v1/appointments/:id/no-show
func (h *AppointmentHandler) NoShowAppointment(c *gin.Context) {
	h.transition(c, h.schedulingSvc.NoShowAppointment)
}

// CompleteAppointment assigned doctor only
// PUT /api/v1/appointments/:id/complete
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CompleteAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindFailed(c, err)
			return
		}
	}

	appt, err := h.schedulingSvc.CompleteAppointment(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, appt)
}

// CancelAppointment PUT /api/v1/appointments/:id/cancel
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindFailed(c, err)
			return
		}
	}

	appt, err := h.schedulingSvc.CancelAppointment(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, appt)
}

type transitionFunc func(ctx context.Context, actor service.Actor, id string) (*dto.AppointmentResponse, error)

func (h *AppointmentHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	appt, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, appt)
}
