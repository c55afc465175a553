package handler

import (
	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

// ── doctors ──

// DoctorHandler doctor directory
type DoctorHandler struct {
	doctorSvc service.DoctorService
	errorRenderer
}

// NewDoctorHandler creates a DoctorHandler.
func NewDoctorHandler(doctorSvc service.DoctorService, r errorRenderer) *DoctorHandler {
	return &DoctorHandler{doctorSvc: doctorSvc, errorRenderer: r}
}

// ListDoctors GET /api/v1/doctors
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DoctorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	doctors, total, err := h.doctorSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OKPage(c, doctors, total, req.GetPage(), req.GetPageSize())
}

// GetDoctor GET /api/v1/doctors/:id
func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	doctor, err := h.doctorSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, doctor)
}

// UpdateDoctor admin or the doctor themselves
// PUT /api/v1/doctors/:id
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	doctor, err := h.doctorSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, doctor)
}

// ── patients ──

// PatientHandler patient directory
type PatientHandler struct {
	patientSvc service.PatientService
	errorRenderer
}

// NewPatientHandler creates a PatientHandler.
func NewPatientHandler(patientSvc service.PatientService, r errorRenderer) *PatientHandler {
	return &PatientHandler{patientSvc: patientSvc, errorRenderer: r}
}

// ListPatients GET /api/v1/patients
func (h *PatientHandler) ListPatients(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PatientListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	patients, total, err := h.patientSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OKPage(c, patients, total, req.GetPage(), req.GetPageSize())
}

// GetPatient GET /api/v1/patients/:id
func (h *PatientHandler) GetPatient(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	patient, err := h.patientSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, patient)
}
