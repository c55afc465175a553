package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── patient errors ──

var (
	ErrPatientNotFound = pkgerrors.New(pkgerrors.KindNotFound, 24002, "Patient not found")
)

// PatientService patient profiles
type PatientService interface {
	List(ctx context.Context, actor Actor, req *dto.PatientListRequest) ([]dto.PatientResponse, int64, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.PatientResponse, error)
}

type patientService struct {
	repo   *repository.Repository
	policy *policy
	logger *zap.Logger
}

// NewPatientService creates a PatientService.
func NewPatientService(repo *repository.Repository, logger *zap.Logger) PatientService {
	return &patientService{
		repo:   repo,
		policy: &policy{repo: repo, logger: logger},
		logger: logger,
	}
}

func (s *patientService) List(ctx context.Context, actor Actor, req *dto.PatientListRequest) ([]dto.PatientResponse, int64, error) {
	if actor.Role == model.RolePatient {
		return nil, 0, ErrForbidden
	}

	patients, total, err := s.repo.Patient.List(ctx, actor.TenantID, req.Search, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("failed to list patients", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PatientResponse, 0, len(patients))
	for i := range patients {
		result = append(result, *toPatientResponse(&patients[i]))
	}
	return result, total, nil
}

func (s *patientService) GetByID(ctx context.Context, actor Actor, id string) (*dto.PatientResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !s.policy.canViewPatient(pr, id) {
		return nil, ErrForbidden
	}

	patient, err := s.repo.Patient.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPatientNotFound
		}
		s.logger.Error("failed to load patient", zap.String("tenant_id", actor.TenantID.String()), zap.String("patient_id", id), zap.Error(err))
		return nil, err
	}
	return toPatientResponse(patient), nil
}

// patientCode PAT-<yymmdd>-<4 hex>
func patientCode(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("PAT-%s-%s", now.Format("060102"), strings.ToUpper(id[:4]))
}

func toPatientResponse(p *model.Patient) *dto.PatientResponse {
	resp := &dto.PatientResponse{
		ID:                    p.PatientID,
		UserID:                p.UserID,
		PatientCode:           p.PatientCode,
		FullName:              p.FullName,
		Gender:                p.Gender,
		BloodType:             p.BloodType,
		Phone:                 p.Phone,
		Email:                 p.Email,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		Status:                p.Status,
		CreatedAt:             formatTime(p.CreatedAt),
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format(scheduling.DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}
