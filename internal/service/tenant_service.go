package service

import (
	"context"
	"regexp"
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

// ── organization errors ──

var (
	ErrTenantNotFound  = pkgerrors.New(pkgerrors.KindNotFound, 22001, "Organization not found")
	ErrSlugTaken       = pkgerrors.New(pkgerrors.KindConflict, 22002, "Organization slug is already taken")
	ErrEmailTaken      = pkgerrors.New(pkgerrors.KindConflict, 22003, "Email is already registered")
	ErrInvalidSettings = pkgerrors.New(pkgerrors.KindValidation, 22004, "Invalid scheduling settings")
)

const tenantStatusTTL = 60 * time.Second

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// TenantStatusCache caches tenant status between requests. *redis.Client
// implements it.
type TenantStatusCache interface {
	GetTenantStatus(ctx context.Context, tenantID string) (string, bool, error)
	SetTenantStatus(ctx context.Context, tenantID, status string, ttl time.Duration) error
	InvalidateTenantStatus(ctx context.Context, tenantID string) error
}

type nopTenantCache struct{}

func (nopTenantCache) GetTenantStatus(context.Context, string) (string, bool, error) {
	return "", false, nil
}
func (nopTenantCache) SetTenantStatus(context.Context, string, string, time.Duration) error {
	return nil
}
func (nopTenantCache) InvalidateTenantStatus(context.Context, string) error { return nil }

// TenantService organizations and their scheduling settings
type TenantService interface {
	// Register creates the organization, its settings and the first Admin in
	// one transaction and signs the admin in.
	Register(ctx context.Context, req *dto.RegisterCompanyRequest) (*dto.RegisterCompanyResponse, error)
	Get(ctx context.Context, tid tenant.ID) (*dto.TenantResponse, error)
	UpdateSettings(ctx context.Context, actor Actor, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
	UpdateStatus(ctx context.Context, tid tenant.ID, status string) error
	// EnsureActive fails with tenant.ErrTenantInactive unless the tenant
	// exists and is Active.
	EnsureActive(ctx context.Context, tid tenant.ID) error
}

type tenantService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	cache  TenantStatusCache
	logger *zap.Logger
}

// NewTenantService creates a TenantService. cache may be nil.
func NewTenantService(cfg *config.Config, repo *repository.Repository, jwtMgr *jwt.Manager, cache TenantStatusCache, logger *zap.Logger) TenantService {
	if cache == nil {
		cache = nopTenantCache{}
	}
	return &tenantService{cfg: cfg, repo: repo, jwtMgr: jwtMgr, cache: cache, logger: logger}
}

// ────────────────────── Register ──────────────────────

func (s *tenantService) Register(ctx context.Context, req *dto.RegisterCompanyRequest) (*dto.RegisterCompanyResponse, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, pkgerrors.Validation("slug may contain lowercase letters, digits and single hyphens")
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, ErrInvalidSettings.Withf("Unknown timezone %q", timezone)
	}
	email := strings.ToLower(strings.TrimSpace(req.AdminEmail))

	if _, err := s.repo.Tenant.GetBySlug(ctx, slug); err == nil {
		return nil, ErrSlugTaken
	} else if !repository.IsNotFound(err) {
		s.logger.Error("failed to look up slug", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsNotFound(err) {
		s.logger.Error("failed to look up email", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	t := &model.Tenant{
		Name:   strings.TrimSpace(req.CompanyName),
		Slug:   slug,
		Email:  req.Email,
		Phone:  req.Phone,
		Status: tenant.StatusActive,
	}
	settings := &model.SchedulingSettings{
		MinDurationMinutes: s.cfg.Scheduling.MinDurationMinutes,
		MaxDurationMinutes: s.cfg.Scheduling.MaxDurationMinutes,
		DefaultSlotMinutes: s.cfg.Scheduling.DefaultSlotMinutes,
		BookingHorizonDays: 90,
		Timezone:           timezone,
	}
	admin := &model.User{
		Name:         strings.TrimSpace(req.AdminName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}

	err = s.repo.Tx.InTx(ctx, repository.TxOptions{}, func(tx *repository.Repository) error {
		if err := tx.Tenant.Create(ctx, t); err != nil {
			return err
		}
		tid := tenant.ID(t.TenantID)
		if err := tx.Settings.Save(ctx, tid, settings); err != nil {
			return err
		}
		return tx.User.Create(ctx, tid, admin)
	})
	if err != nil {
		if constraint, ok := repository.IsUniqueViolation(err); ok {
			if strings.Contains(constraint, "slug") {
				return nil, ErrSlugTaken
			}
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to register organization", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}

	s.logger.Info("organization registered", zap.String("tenant_id", t.TenantID), zap.String("slug", slug))

	token, err := issueTokens(s.jwtMgr, admin, false, nil, nil)
	if err != nil {
		s.logger.Error("failed to issue tokens", zap.Error(err))
		return nil, err
	}

	resp := toTenantResponse(t)
	resp.Settings = toSettingsResponse(settings)
	return &dto.RegisterCompanyResponse{Tenant: *resp, Token: *token}, nil
}

// ────────────────────── Get ──────────────────────

func (s *tenantService) Get(ctx context.Context, tid tenant.ID) (*dto.TenantResponse, error) {
	t, err := s.repo.Tenant.GetByID(ctx, tid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTenantNotFound
		}
		s.logger.Error("failed to load organization", zap.String("tenant_id", tid.String()), zap.Error(err))
		return nil, err
	}

	resp := toTenantResponse(t)
	settings, err := s.repo.Settings.Get(ctx, tid)
	switch {
	case err == nil:
		resp.Settings = toSettingsResponse(settings)
	case !repository.IsNotFound(err):
		s.logger.Error("failed to load scheduling settings", zap.String("tenant_id", tid.String()), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// ────────────────────── UpdateSettings ──────────────────────

func (s *tenantService) UpdateSettings(ctx context.Context, actor Actor, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	tid := actor.TenantID

	settings, err := s.repo.Settings.Get(ctx, tid)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Error("failed to load scheduling settings", zap.String("tenant_id", tid.String()), zap.Error(err))
			return nil, err
		}
		settings = &model.SchedulingSettings{
			MinDurationMinutes: s.cfg.Scheduling.MinDurationMinutes,
			MaxDurationMinutes: s.cfg.Scheduling.MaxDurationMinutes,
			DefaultSlotMinutes: s.cfg.Scheduling.DefaultSlotMinutes,
			BookingHorizonDays: 90,
			Timezone:           "UTC",
		}
	}

	if req.MinDurationMinutes != nil {
		settings.MinDurationMinutes = *req.MinDurationMinutes
	}
	if req.MaxDurationMinutes != nil {
		settings.MaxDurationMinutes = *req.MaxDurationMinutes
	}
	if req.DefaultSlotMinutes != nil {
		settings.DefaultSlotMinutes = *req.DefaultSlotMinutes
	}
	if req.BookingHorizonDays != nil {
		settings.BookingHorizonDays = *req.BookingHorizonDays
	}
	if req.Timezone != nil {
		settings.Timezone = *req.Timezone
	}

	if settings.MinDurationMinutes > settings.MaxDurationMinutes {
		return nil, ErrInvalidSettings.Withf("Minimum duration must not exceed maximum duration")
	}
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return nil, ErrInvalidSettings.Withf("Unknown timezone %q", settings.Timezone)
	}
	settings.UpdatedBy = &actor.UserID

	if err := s.repo.Settings.Save(ctx, tid, settings); err != nil {
		s.logger.Error("failed to save scheduling settings", zap.String("tenant_id", tid.String()), zap.Error(err))
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

// ────────────────────── status ──────────────────────

func (s *tenantService) UpdateStatus(ctx context.Context, tid tenant.ID, status string) error {
	switch status {
	case tenant.StatusActive, tenant.StatusSuspended, tenant.StatusInactive:
	default:
		return pkgerrors.Validation("status must be Active, Suspended or Inactive")
	}

	if err := s.repo.Tenant.UpdateStatus(ctx, tid, status); err != nil {
		if repository.IsNotFound(err) {
			return ErrTenantNotFound
		}
		s.logger.Error("failed to update organization status", zap.String("tenant_id", tid.String()), zap.Error(err))
		return err
	}

	if err := s.cache.InvalidateTenantStatus(ctx, tid.String()); err != nil {
		s.logger.Warn("failed to invalidate tenant status cache", zap.String("tenant_id", tid.String()), zap.Error(err))
	}
	return nil
}

func (s *tenantService) EnsureActive(ctx context.Context, tid tenant.ID) error {
	if err := tid.Validate(); err != nil {
		return err
	}

	status, hit, err := s.cache.GetTenantStatus(ctx, tid.String())
	if err != nil {
		s.logger.Warn("tenant status cache unavailable", zap.Error(err))
	}
	if !hit {
		t, err := s.repo.Tenant.GetByID(ctx, tid)
		if err != nil {
			if repository.IsNotFound(err) {
				return tenant.ErrTenantInactive
			}
			s.logger.Error("failed to load organization", zap.String("tenant_id", tid.String()), zap.Error(err))
			return err
		}
		status = t.Status
		if err := s.cache.SetTenantStatus(ctx, tid.String(), status, tenantStatusTTL); err != nil {
			s.logger.Warn("failed to cache tenant status", zap.Error(err))
		}
	}

	if status != tenant.StatusActive {
		return tenant.ErrTenantInactive
	}
	return nil
}

// ── internal helpers ──

func toTenantResponse(t *model.Tenant) *dto.TenantResponse {
	return &dto.TenantResponse{
		ID:        t.TenantID,
		Name:      t.Name,
		Slug:      t.Slug,
		Email:     t.Email,
		Phone:     t.Phone,
		Status:    t.Status,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func toSettingsResponse(s *model.SchedulingSettings) *dto.SettingsResponse {
	return &dto.SettingsResponse{
		MinDurationMinutes: s.MinDurationMinutes,
		MaxDurationMinutes: s.MaxDurationMinutes,
		DefaultSlotMinutes: s.DefaultSlotMinutes,
		BookingHorizonDays: s.BookingHorizonDays,
		Timezone:           s.Timezone,
	}
}
