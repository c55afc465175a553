package repository

import (
	"context"

	"gorm.io/gorm"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/tenant"
)

// PatientRepository patient profiles
type PatientRepository interface {
	Create(ctx context.Context, tid tenant.ID, patient *model.Patient) error
	GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Patient, error)
	GetByUserID(ctx context.Context, tid tenant.ID, userID string) (*model.Patient, error)
	List(ctx context.Context, tid tenant.ID, search string, offset, limit int) ([]model.Patient, int64, error)
}

type patientRepo struct {
	db *gorm.DB
}

// NewPatientRepo creates a PatientRepository.
func NewPatientRepo(db *gorm.DB) PatientRepository {
	return &patientRepo{db: db}
}

func (r *patientRepo) Create(ctx context.Context, tid tenant.ID, patient *model.Patient) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	patient.TenantID = tid.String()
	return db.Create(patient).Error
}

func (r *patientRepo) GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Patient, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var patient model.Patient
	if err := db.Where("patient_id = ?", id).First(&patient).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepo) GetByUserID(ctx context.Context, tid tenant.ID, userID string) (*model.Patient, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var patient model.Patient
	if err := db.Where("user_id = ?", userID).First(&patient).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepo) List(ctx context.Context, tid tenant.ID, search string, offset, limit int) ([]model.Patient, int64, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, 0, err
	}

	var patients []model.Patient
	var total int64

	q := db.Model(&model.Patient{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("full_name ILIKE ? OR patient_code ILIKE ? OR phone ILIKE ?", like, like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&patients).Error
	return patients, total, err
}
