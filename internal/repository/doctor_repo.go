package repository

import (
	"context"

	"gorm.io/gorm"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// DoctorFilter list filters
type DoctorFilter struct {
	Specialization     string
	AvailabilityStatus string
}

// DoctorRepository doctor profiles
type DoctorRepository interface {
	Create(ctx context.Context, tid tenant.ID, doctor *model.Doctor) error
	GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Doctor, error)
	GetByUserID(ctx context.Context, tid tenant.ID, userID string) (*model.Doctor, error)
	List(ctx context.Context, tid tenant.ID, filter DoctorFilter, offset, limit int) ([]model.Doctor, int64, error)
	Update(ctx context.Context, tid tenant.ID, doctor *model.Doctor) error
}

type doctorRepo struct {
	db *gorm.DB
}

// NewDoctorRepo creates a DoctorRepository.
func NewDoctorRepo(db *gorm.DB) DoctorRepository {
	return &doctorRepo{db: db}
}

func (r *doctorRepo) Create(ctx context.Context, tid tenant.ID, doctor *model.Doctor) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	doctor.TenantID = tid.String()
	return db.Omit("User").Create(doctor).Error
}

func (r *doctorRepo) GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Doctor, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var doctor model.Doctor
	err = db.Preload("User").
		Where("doctor_id = ?", id).
		First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepo) GetByUserID(ctx context.Context, tid tenant.ID, userID string) (*model.Doctor, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var doctor model.Doctor
	err = db.Preload("User").
		Where("user_id = ?", userID).
		First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepo) List(ctx context.Context, tid tenant.ID, filter DoctorFilter, offset, limit int) ([]model.Doctor, int64, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, 0, err
	}

	var doctors []model.Doctor
	var total int64

	q := db.Model(&model.Doctor{})
	if filter.Specialization != "" {
		q = q.Where("specialization ILIKE ?", "%"+filter.Specialization+"%")
	}
	if filter.AvailabilityStatus != "" {
		q = q.Where("availability_status = ?", filter.AvailabilityStatus)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = q.Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&doctors).Error
	return doctors, total, err
}

func (r *doctorRepo) Update(ctx context.Context, tid tenant.ID, doctor *model.Doctor) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}

	oldVersion := doctor.Version
	result := db.Model(&model.Doctor{}).
		Where("doctor_id = ? AND version = ?", doctor.DoctorID, oldVersion).
		Updates(map[string]interface{}{
			"specialization":      doctor.Specialization,
			"license_number":      doctor.LicenseNumber,
			"consultation_fee":    doctor.ConsultationFee,
			"availability_status": doctor.AvailabilityStatus,
			"approval_status":     doctor.ApprovalStatus,
			"updated_by":          doctor.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	doctor.Version = oldVersion + 1
	return nil
}
