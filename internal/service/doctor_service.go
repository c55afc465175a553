package service

import (
	"context"

	"go.uber.org/zap"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── doctor errors ──

var (
	ErrDoctorNotFound = pkgerrors.New(pkgerrors.KindNotFound, 24001, "Doctor not found")
)

// DoctorService doctor profiles
type DoctorService interface {
	List(ctx context.Context, actor Actor, req *dto.DoctorListRequest) ([]dto.DoctorResponse, int64, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.DoctorResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
}

type doctorService struct {
	repo   *repository.Repository
	policy *policy
	logger *zap.Logger
}

// NewDoctorService creates a DoctorService.
func NewDoctorService(repo *repository.Repository, logger *zap.Logger) DoctorService {
	return &doctorService{
		repo:   repo,
		policy: &policy{repo: repo, logger: logger},
		logger: logger,
	}
}

func (s *doctorService) List(ctx context.Context, actor Actor, req *dto.DoctorListRequest) ([]dto.DoctorResponse, int64, error) {
	filter := repository.DoctorFilter{
		Specialization:     req.Specialization,
		AvailabilityStatus: req.AvailabilityStatus,
	}

	doctors, total, err := s.repo.Doctor.List(ctx, actor.TenantID, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("failed to list doctors", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DoctorResponse, 0, len(doctors))
	for i := range doctors {
		result = append(result, *toDoctorResponse(&doctors[i]))
	}
	return result, total, nil
}

func (s *doctorService) GetByID(ctx context.Context, actor Actor, id string) (*dto.DoctorResponse, error) {
	doctor, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toDoctorResponse(doctor), nil
}

func (s *doctorService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !s.policy.canEditDoctor(pr, id) {
		return nil, ErrForbidden
	}
	// approval is an administrative decision
	if req.ApprovalStatus != nil && !pr.IsAdmin() {
		return nil, ErrForbidden
	}

	doctor, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.LicenseNumber != nil {
		doctor.LicenseNumber = *req.LicenseNumber
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}
	if req.AvailabilityStatus != nil {
		doctor.AvailabilityStatus = *req.AvailabilityStatus
	}
	if req.ApprovalStatus != nil {
		doctor.ApprovalStatus = *req.ApprovalStatus
	}
	doctor.UpdatedBy = &actor.UserID

	if err := s.repo.Doctor.Update(ctx, actor.TenantID, doctor); err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("failed to update doctor", zap.String("tenant_id", actor.TenantID.String()), zap.String("doctor_id", id), zap.Error(err))
		}
		return nil, err
	}

	return toDoctorResponse(doctor), nil
}

func (s *doctorService) load(ctx context.Context, actor Actor, id string) (*model.Doctor, error) {
	doctor, err := s.repo.Doctor.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("failed to load doctor", zap.String("tenant_id", actor.TenantID.String()), zap.String("doctor_id", id), zap.Error(err))
		return nil, err
	}
	return doctor, nil
}

func toDoctorResponse(d *model.Doctor) *dto.DoctorResponse {
	resp := &dto.DoctorResponse{
		ID:                 d.DoctorID,
		UserID:             d.UserID,
		Specialization:     d.Specialization,
		LicenseNumber:      d.LicenseNumber,
		ConsultationFee:    d.ConsultationFee,
		AvailabilityStatus: d.AvailabilityStatus,
		ApprovalStatus:     d.ApprovalStatus,
		Version:            d.Version,
		CreatedAt:          formatTime(d.CreatedAt),
	}
	if d.User != nil {
		resp.Name = d.User.Name
		resp.Email = d.User.Email
	}
	return resp
}
