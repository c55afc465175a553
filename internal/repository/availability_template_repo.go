package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// TemplateFilter list filters
type TemplateFilter struct {
	DoctorID        string
	IncludeInactive bool
}

// AvailabilityTemplateRepository doctor availability templates
type AvailabilityTemplateRepository interface {
	Create(ctx context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error
	BatchCreate(ctx context.Context, tid tenant.ID, tpls []model.AvailabilityTemplate) error
	GetByID(ctx context.Context, tid tenant.ID, id string) (*model.AvailabilityTemplate, error)
	List(ctx context.Context, tid tenant.ID, filter TemplateFilter) ([]model.AvailabilityTemplate, error)
	// ListForDate returns active templates that apply to date: recurring ones
	// on its weekday and overrides for that exact date.
	ListForDate(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.AvailabilityTemplate, error)
	Update(ctx context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error
	Deactivate(ctx context.Context, tid tenant.ID, id, deactivatedBy string, version int) error
}

type availabilityTemplateRepo struct {
	db *gorm.DB
}

// NewAvailabilityTemplateRepo creates an AvailabilityTemplateRepository.
func NewAvailabilityTemplateRepo(db *gorm.DB) AvailabilityTemplateRepository {
	return &availabilityTemplateRepo{db: db}
}

func (r *availabilityTemplateRepo) Create(ctx context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	tpl.TenantID = tid.String()
	return db.Create(tpl).Error
}

func (r *availabilityTemplateRepo) BatchCreate(ctx context.Context, tid tenant.ID, tpls []model.AvailabilityTemplate) error {
	if len(tpls) == 0 {
		return nil
	}
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	for i := range tpls {
		tpls[i].TenantID = tid.String()
	}
	return db.Create(&tpls).Error
}

func (r *availabilityTemplateRepo) GetByID(ctx context.Context, tid tenant.ID, id string) (*model.AvailabilityTemplate, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var tpl model.AvailabilityTemplate
	if err := db.Where("template_id = ?", id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *availabilityTemplateRepo) List(ctx context.Context, tid tenant.ID, filter TemplateFilter) ([]model.AvailabilityTemplate, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}

	q := db.Model(&model.AvailabilityTemplate{})
	if filter.DoctorID != "" {
		q = q.Where("doctor_id = ?", filter.DoctorID)
	}
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}

	var tpls []model.AvailabilityTemplate
	err = q.Order("is_recurring DESC, day_of_week ASC, specific_date ASC, start_time ASC").
		Find(&tpls).Error
	return tpls, err
}

func (r *availabilityTemplateRepo) ListForDate(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.AvailabilityTemplate, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}

	var tpls []model.AvailabilityTemplate
	err = db.Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Where("(is_recurring AND day_of_week = ?) OR (NOT is_recurring AND specific_date = ?)",
			int(date.Weekday()), date.Format(scheduling.DateLayout)).
		Order("start_time ASC").
		Find(&tpls).Error
	return tpls, err
}

func (r *availabilityTemplateRepo) Update(ctx context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}

	oldVersion := tpl.Version
	result := db.Model(&model.AvailabilityTemplate{}).
		Where("template_id = ? AND version = ?", tpl.TemplateID, oldVersion).
		Updates(map[string]interface{}{
			"is_recurring":  tpl.IsRecurring,
			"day_of_week":   tpl.DayOfWeek,
			"specific_date": tpl.SpecificDate,
			"start_time":    tpl.StartTime,
			"end_time":      tpl.EndTime,
			"slot_duration": tpl.SlotDuration,
			"break_start":   tpl.BreakStart,
			"break_end":     tpl.BreakEnd,
			"max_bookings":  tpl.MaxBookings,
			"is_active":     tpl.IsActive,
			"updated_by":    tpl.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version = oldVersion + 1
	return nil
}

// Deactivate soft-disables a template at the version the caller read.
// Existing appointments are untouched.
func (r *availabilityTemplateRepo) Deactivate(ctx context.Context, tid tenant.ID, id, deactivatedBy string, version int) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	result := db.Model(&model.AvailabilityTemplate{}).
		Where("template_id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": deactivatedBy,
			"version":    version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
