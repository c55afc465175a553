package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"schedulix/backend/config"
	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
	"schedulix/backend/pkg/jwt"
)

// ── auth errors ──

var (
	ErrInvalidCredentials  = pkgerrors.New(pkgerrors.KindUnauthorized, 21001, "Invalid email or password")
	ErrAccountDisabled     = pkgerrors.New(pkgerrors.KindForbidden, 21002, "Account is disabled")
	ErrInvalidRefreshToken = pkgerrors.New(pkgerrors.KindUnauthorized, 21003, "Refresh token is invalid or expired")
	ErrUserNotFound        = pkgerrors.New(pkgerrors.KindNotFound, 21004, "User not found")
	ErrWrongPassword       = pkgerrors.New(pkgerrors.KindValidation, 21005, "Current password is incorrect")
)

// TokenStore revokes tokens before they expire. *redis.Client implements it.
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type nopTokenStore struct{}

func (nopTokenStore) BlacklistToken(context.Context, string, time.Duration) error { return nil }
func (nopTokenStore) IsBlacklisted(context.Context, string) (bool, error)         { return false, nil }

// AuthService authentication
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes the access token and, when given, the refresh token.
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, actor Actor) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	tokens TokenStore
	logger *zap.Logger
}

// NewAuthService creates an AuthService. tokens may be nil.
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	logger *zap.Logger,
) AuthService {
	if tokens == nil {
		tokens = nopTokenStore{}
	}
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		tokens: tokens,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. account lookup; the tenant is unknown until the account is found
	user, err := s.repo.User.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to load user", zap.Error(err))
		return nil, err
	}

	// 2. password (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	tid := tenant.ID(user.TenantID)
	t, err := s.repo.Tenant.GetByID(ctx, tid)
	if err != nil {
		s.logger.Error("failed to load organization", zap.String("tenant_id", user.TenantID), zap.Error(err))
		return nil, err
	}
	if t.Status != tenant.StatusActive {
		return nil, tenant.ErrTenantInactive
	}

	if err := s.repo.User.TouchLastLogin(ctx, tid, user.UserID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.UserID), zap.Error(err))
	}

	// 3. token pair
	doctorID, patientID := s.profileIDs(ctx, user)
	return issueTokens(s.jwtMgr, user, req.RememberMe, doctorID, patientID)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check token blacklist", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.User.GetByID(ctx, tenant.ID(claims.TenantID), claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("failed to load user", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// rotation: the presented refresh token is single-use
	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}

	doctorID, patientID := s.profileIDs(ctx, user)
	return issueTokens(s.jwtMgr, user, claims.RememberMe, doctorID, patientID)
}

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if err := s.revoke(ctx, access); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		// already unusable
		return nil
	}
	if claims.UserID != access.UserID {
		return nil
	}
	return s.revoke(ctx, claims)
}

func (s *authService) Me(ctx context.Context, actor Actor) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to load user", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	doctorID, patientID := s.profileIDs(ctx, user)
	return toUserResponse(user, doctorID, patientID), nil
}

func (s *authService) ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("failed to load user", zap.String("user_id", actor.UserID), zap.Error(err))
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, actor.TenantID, actor.UserID, string(hash)); err != nil {
		s.logger.Error("failed to update password", zap.String("user_id", actor.UserID), zap.Error(err))
		return err
	}
	return nil
}

// ── internal helpers ──

// revoke blacklists the token until it would have expired anyway.
func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.tokens.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Error("failed to blacklist token", zap.Error(err))
		return err
	}
	return nil
}

// profileIDs looks up the doctor or patient profile behind an account.
func (s *authService) profileIDs(ctx context.Context, user *model.User) (*string, *string) {
	tid := tenant.ID(user.TenantID)
	switch user.Role {
	case model.RoleDoctor:
		d, err := s.repo.Doctor.GetByUserID(ctx, tid, user.UserID)
		if err == nil {
			return &d.DoctorID, nil
		}
		if !repository.IsNotFound(err) {
			s.logger.Warn("failed to load doctor profile", zap.String("user_id", user.UserID), zap.Error(err))
		}
	case model.RolePatient:
		p, err := s.repo.Patient.GetByUserID(ctx, tid, user.UserID)
		if err == nil {
			return nil, &p.PatientID
		}
		if !repository.IsNotFound(err) {
			s.logger.Warn("failed to load patient profile", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}
	return nil, nil
}

func issueTokens(jwtMgr *jwt.Manager, user *model.User, rememberMe bool, doctorID, patientID *string) (*dto.TokenResponse, error) {
	access, err := jwtMgr.GenerateAccessToken(user.UserID, user.Role, user.TenantID)
	if err != nil {
		return nil, err
	}
	refresh, err := jwtMgr.GenerateRefreshToken(user.UserID, user.Role, user.TenantID, rememberMe)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user, doctorID, patientID),
	}, nil
}

func toUserResponse(u *model.User, doctorID, patientID *string) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          u.UserID,
		TenantID:    u.TenantID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		DoctorID:    doctorID,
		PatientID:   patientID,
		LastLoginAt: formatTimePtr(u.LastLoginAt),
		CreatedAt:   formatTime(u.CreatedAt),
	}
}
