package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler spreadsheet and calendar downloads
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
	errorRenderer
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService, r errorRenderer) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc, errorRenderer: r}
}

// ExportAppointments xlsx download (Admin)
// GET /api/v1/appointments/export?date_from=&date_to=&doctor_id=
func (h *ExportHandler) ExportAppointments(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportAppointments(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// DoctorCalendar iCalendar feed of booked appointments
// GET /api/v1/appointments/calendar.ics?date_from=&date_to=&doctor_id=
func (h *ExportHandler) DoctorCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	feed, err := h.calendarSvc.DoctorCalendar(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="appointments.ics"`)
	c.Data(http.StatusOK, icsContentType, []byte(feed))
}
