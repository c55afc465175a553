package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// AppointmentFilter list filters; dates are inclusive.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    string
}

// StatusCount appointments per status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DayCount appointments per calendar day
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// AppointmentRepository the appointment book
type AppointmentRepository interface {
	// LockDoctorDay takes a transaction-scoped advisory lock on
	// (tenant, doctor, date). It must run inside Transactor.InTx.
	LockDoctorDay(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) error
	ListActiveByDoctorDate(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.Appointment, error)
	Create(ctx context.Context, tid tenant.ID, appt *model.Appointment) error
	GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Appointment, error)
	// GetForUpdate reads with SELECT … FOR UPDATE. It must run inside Transactor.InTx.
	GetForUpdate(ctx context.Context, tid tenant.ID, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, tid tenant.ID, appt *model.Appointment) error
	List(ctx context.Context, tid tenant.ID, filter AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error)
	ListAll(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]model.Appointment, error)
	CountByStatus(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]StatusCount, error)
	CountByDay(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]DayCount, error)
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo creates an AppointmentRepository.
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

// doctorDayLockKey is hashed to the 64-bit advisory lock id.
func doctorDayLockKey(tid tenant.ID, doctorID string, date time.Time) string {
	return fmt.Sprintf("appointment:%s:%s:%s", tid, doctorID, date.Format(scheduling.DateLayout))
}

func (r *appointmentRepo) LockDoctorDay(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", doctorDayLockKey(tid, doctorID, date)).
		Error
}

func (r *appointmentRepo) ListActiveByDoctorDate(ctx context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.Appointment, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var appts []model.Appointment
	err = db.Where("doctor_id = ? AND appointment_date = ? AND status IN ?",
		doctorID, date.Format(scheduling.DateLayout), model.ActiveStatuses).
		Order("appointment_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) Create(ctx context.Context, tid tenant.ID, appt *model.Appointment) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}
	appt.TenantID = tid.String()
	return db.Omit("Patient", "Doctor").Create(appt).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, tid tenant.ID, id string) (*model.Appointment, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var appt model.Appointment
	err = db.Preload("Patient").
		Preload("Doctor").Preload("Doctor.User").
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) GetForUpdate(ctx context.Context, tid tenant.ID, id string) (*model.Appointment, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}
	var appt model.Appointment
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateStatus persists a state transition guarded by the row version.
func (r *appointmentRepo) UpdateStatus(ctx context.Context, tid tenant.ID, appt *model.Appointment) error {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return err
	}

	oldVersion := appt.Version
	result := db.Model(&model.Appointment{}).
		Where("appointment_id = ? AND version = ?", appt.AppointmentID, oldVersion).
		Updates(map[string]interface{}{
			"status":              appt.Status,
			"notes":               appt.Notes,
			"cancellation_reason": appt.CancellationReason,
			"cancelled_by":        appt.CancelledBy,
			"cancelled_at":        appt.CancelledAt,
			"checked_in_at":       appt.CheckedInAt,
			"completed_at":        appt.CompletedAt,
			"updated_by":          appt.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	appt.Version = oldVersion + 1
	return nil
}

func applyAppointmentFilter(q *gorm.DB, f AppointmentFilter) *gorm.DB {
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DateFrom != nil {
		q = q.Where("appointment_date >= ?", f.DateFrom.Format(scheduling.DateLayout))
	}
	if f.DateTo != nil {
		q = q.Where("appointment_date <= ?", f.DateTo.Format(scheduling.DateLayout))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

func (r *appointmentRepo) List(ctx context.Context, tid tenant.ID, filter AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, 0, err
	}

	var appts []model.Appointment
	var total int64

	q := applyAppointmentFilter(db.Model(&model.Appointment{}), filter)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = q.Preload("Patient").
		Preload("Doctor").Preload("Doctor.User").
		Order("appointment_date DESC, appointment_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&appts).Error
	return appts, total, err
}

func (r *appointmentRepo) ListAll(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]model.Appointment, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}

	var appts []model.Appointment
	err = applyAppointmentFilter(db.Model(&model.Appointment{}), filter).
		Preload("Patient").
		Preload("Doctor").Preload("Doctor.User").
		Order("appointment_date ASC, appointment_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) CountByStatus(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]StatusCount, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}

	var rows []StatusCount
	err = applyAppointmentFilter(db.Model(&model.Appointment{}), filter).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

func (r *appointmentRepo) CountByDay(ctx context.Context, tid tenant.ID, filter AppointmentFilter) ([]DayCount, error) {
	db, err := scoped(ctx, r.db, tid)
	if err != nil {
		return nil, err
	}

	var rows []DayCount
	err = applyAppointmentFilter(db.Model(&model.Appointment{}), filter).
		Select("appointment_date AS day, COUNT(*) AS count").
		Group("appointment_date").
		Order("appointment_date").
		Scan(&rows).Error
	return rows, err
}
