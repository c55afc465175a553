package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── user errors ──

var (
	ErrProfileRequired = pkgerrors.New(pkgerrors.KindValidation, 23001, "Doctor accounts require a doctor profile")
)

// UserService account administration within one organization
type UserService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	List(ctx context.Context, actor Actor, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create inserts the account and its doctor or patient profile atomically.
func (s *userService) Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.Role == model.RoleDoctor && req.Doctor == nil {
		return nil, ErrProfileRequired
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsNotFound(err) {
		s.logger.Error("failed to look up email", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}
	user.Stamp(actor.UserID)

	patient, err := buildPatient(user, req.Patient)
	if err != nil {
		return nil, err
	}

	var doctorID, patientID *string
	err = s.repo.Tx.InTx(ctx, repository.TxOptions{}, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, actor.TenantID, user); err != nil {
			return err
		}

		switch req.Role {
		case model.RoleDoctor:
			doctor := &model.Doctor{
				UserID:             user.UserID,
				Specialization:     req.Doctor.Specialization,
				LicenseNumber:      req.Doctor.LicenseNumber,
				ConsultationFee:    req.Doctor.ConsultationFee,
				AvailabilityStatus: "Available",
				ApprovalStatus:     "Approved",
			}
			doctor.Stamp(actor.UserID)
			if err := tx.Doctor.Create(ctx, actor.TenantID, doctor); err != nil {
				return err
			}
			doctorID = &doctor.DoctorID
		case model.RolePatient:
			patient.UserID = &user.UserID
			patient.Stamp(actor.UserID)
			if err := tx.Patient.Create(ctx, actor.TenantID, patient); err != nil {
				return err
			}
			patientID = &patient.PatientID
		}
		return nil
	})
	if err != nil {
		if _, ok := repository.IsUniqueViolation(err); ok {
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to create user", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role))

	return toUserResponse(user, doctorID, patientID), nil
}

func buildPatient(user *model.User, req *dto.PatientProfileRequest) (*model.Patient, error) {
	email := user.Email
	p := &model.Patient{
		PatientCode: patientCode(time.Now()),
		FullName:    user.Name,
		Email:       &email,
		Status:      "Active",
	}
	if req == nil {
		return p, nil
	}

	if req.DateOfBirth != nil {
		dob, err := scheduling.ParseDate(*req.DateOfBirth, time.UTC)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		p.DateOfBirth = &dob
	}
	p.Gender = req.Gender
	p.BloodType = req.BloodType
	p.Phone = req.Phone
	p.EmergencyContactName = req.EmergencyContactName
	p.EmergencyContactPhone = req.EmergencyContactPhone
	return p, nil
}

// ────────────────────── List / Get ──────────────────────

func (s *userService) List(ctx context.Context, actor Actor, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}

	users, total, err := s.repo.User.List(ctx, actor.TenantID, req.Role, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("failed to list users", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i], nil, nil))
	}
	return result, total, nil
}

func (s *userService) GetByID(ctx context.Context, actor Actor, id string) (*dto.UserResponse, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, ErrForbidden
	}

	user, err := s.repo.User.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to load user", zap.String("tenant_id", actor.TenantID.String()), zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user, nil, nil), nil
}
