package service

import (
	"context"

	"go.uber.org/zap"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── authorization errors ──

var (
	ErrForbidden       = pkgerrors.New(pkgerrors.KindForbidden, 20001, "You do not have permission to perform this action")
	ErrProfileNotFound = pkgerrors.New(pkgerrors.KindForbidden, 20002, "No doctor or patient profile is linked to this account")
)

// Actor is the authenticated caller as carried by the access token.
type Actor struct {
	UserID   string
	TenantID tenant.ID
	Role     string
}

// IsAdmin reports the Admin role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// principal is an Actor resolved against the tenant's profiles.
type principal struct {
	Actor
	DoctorID  string
	PatientID string
}

// policy holds every role rule of the scheduling domain.
type policy struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// resolve loads the doctor or patient profile behind the actor. Doctor and
// Patient accounts without a profile are refused.
func (p *policy) resolve(ctx context.Context, a Actor) (*principal, error) {
	if err := a.TenantID.Validate(); err != nil {
		return nil, err
	}

	pr := &principal{Actor: a}
	switch a.Role {
	case model.RoleAdmin:
		return pr, nil
	case model.RoleDoctor:
		doctor, err := p.repo.Doctor.GetByUserID(ctx, a.TenantID, a.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrProfileNotFound
			}
			p.logger.Error("failed to load doctor profile",
				zap.String("tenant_id", a.TenantID.String()), zap.String("user_id", a.UserID), zap.Error(err))
			return nil, err
		}
		pr.DoctorID = doctor.DoctorID
		return pr, nil
	case model.RolePatient:
		patient, err := p.repo.Patient.GetByUserID(ctx, a.TenantID, a.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrProfileNotFound
			}
			p.logger.Error("failed to load patient profile",
				zap.String("tenant_id", a.TenantID.String()), zap.String("user_id", a.UserID), zap.Error(err))
			return nil, err
		}
		pr.PatientID = patient.PatientID
		return pr, nil
	default:
		return nil, ErrForbidden
	}
}

// bookingPatient returns the patient an actor may book for. Patients book
// only for themselves; staff must name the patient.
func (p *policy) bookingPatient(pr *principal, requested string) (string, error) {
	if pr.Role == model.RolePatient {
		if requested != "" && requested != pr.PatientID {
			return "", ErrForbidden
		}
		return pr.PatientID, nil
	}
	if requested == "" {
		return "", pkgerrors.Validation("patient_id is required")
	}
	return requested, nil
}

// scopeAppointments forces the list filter to the caller's own rows.
func (p *policy) scopeAppointments(pr *principal, f *repository.AppointmentFilter) {
	switch pr.Role {
	case model.RoleDoctor:
		f.DoctorID = pr.DoctorID
	case model.RolePatient:
		f.PatientID = pr.PatientID
	}
}

func (p *policy) canView(pr *principal, a *model.Appointment) bool {
	switch pr.Role {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		return a.DoctorID == pr.DoctorID
	case model.RolePatient:
		return a.PatientID == pr.PatientID
	}
	return false
}

// canManage covers confirm, start and no-show.
func (p *policy) canManage(pr *principal, a *model.Appointment) bool {
	return pr.IsAdmin() || (pr.Role == model.RoleDoctor && a.DoctorID == pr.DoctorID)
}

// canComplete only the assigned doctor closes a visit.
func (p *policy) canComplete(pr *principal, a *model.Appointment) bool {
	return pr.Role == model.RoleDoctor && a.DoctorID == pr.DoctorID
}

func (p *policy) canCancel(pr *principal, a *model.Appointment) bool {
	return p.canView(pr, a)
}

// canEditDoctor admin, or the doctor editing their own profile or templates.
func (p *policy) canEditDoctor(pr *principal, doctorID string) bool {
	return pr.IsAdmin() || (pr.Role == model.RoleDoctor && pr.DoctorID == doctorID)
}

// canViewPatient staff see every patient of the tenant; patients see themselves.
func (p *policy) canViewPatient(pr *principal, patientID string) bool {
	return pr.Role != model.RolePatient || pr.PatientID == patientID
}
