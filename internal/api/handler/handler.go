package handler

import (
	"schedulix/backend/internal/service"
)

// Handler aggregates every HTTP handler.
type Handler struct {
	Auth         *AuthHandler
	Company      *CompanyHandler
	User         *UserHandler
	Doctor       *DoctorHandler
	Patient      *PatientHandler
	Availability *AvailabilityHandler
	Appointment  *AppointmentHandler
	Export       *ExportHandler
}

// NewHandler creates the aggregate. debug exposes error details in responses
// and must only be set in development.
func NewHandler(svc *service.Service, debug bool) *Handler {
	r := errorRenderer{debug: debug}
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, r),
		Company:      NewCompanyHandler(svc.Tenant, r),
		User:         NewUserHandler(svc.User, r),
		Doctor:       NewDoctorHandler(svc.Doctor, r),
		Patient:      NewPatientHandler(svc.Patient, r),
		Availability: NewAvailabilityHandler(svc.Availability, svc.Scheduling, r),
		Appointment:  NewAppointmentHandler(svc.Scheduling, r),
		Export:       NewExportHandler(svc.Export, svc.Calendar, r),
	}
}
