package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/tenant"
)

// TenantRepository organizations. This is the one repository addressed by
// tenant identity rather than scoped by it.
type TenantRepository interface {
	Create(ctx context.Context, t *model.Tenant) error
	GetByID(ctx context.Context, id tenant.ID) (*model.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	UpdateStatus(ctx context.Context, id tenant.ID, status string) error
}

type tenantRepo struct {
	db *gorm.DB
}

// NewTenantRepo creates a TenantRepository.
func NewTenantRepo(db *gorm.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tenantRepo) GetByID(ctx context.Context, id tenant.ID) (*model.Tenant, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var t model.Tenant
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", id.String()).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus returns gorm.ErrRecordNotFound when the tenant does not exist.
func (r *tenantRepo) UpdateStatus(ctx context.Context, id tenant.ID, status string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&model.Tenant{}).
		Where("tenant_id = ?", id.String()).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── scheduling settings ──

// SettingsRepository per-tenant scheduling settings
type SettingsRepository interface {
	Get(ctx context.Context, tid tenant.ID) (*model.SchedulingSettings, error)
	Save(ctx context.Context, tid tenant.ID, s *model.SchedulingSettings) error
}

type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo creates a SettingsRepository.
func NewSettingsRepo(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context, tid tenant.ID) (*model.SchedulingSettings, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var s model.SchedulingSettings
	if err := db.First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Save inserts or replaces the tenant's settings row.
func (r *settingsRepo) Save(ctx context.Context, tid tenant.ID, s *model.SchedulingSettings) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	s.TenantID = tid.String()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_duration_minutes",
				"max_duration_minutes",
				"default_slot_minutes",
				"booking_horizon_days",
				"timezone",
				"updated_by",
				"updated_at",
			}),
		}).
		Create(s).Error
}
