package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"schedulix/backend/internal/tenant"
)

// Repository aggregates every repository. Inside a transaction the same
// aggregate is rebuilt on the transaction handle, so services write the
// same code with or without one.
type Repository struct {
	Tx          Transactor
	Tenant      TenantRepository
	Settings    SettingsRepository
	User        UserRepository
	Doctor      DoctorRepository
	Patient     PatientRepository
	Template    AvailabilityTemplateRepository
	Appointment AppointmentRepository
}

// NewRepository creates the aggregate on a connection pool.
func NewRepository(db *gorm.DB) *Repository {
	r := build(db)
	r.Tx = &gormTransactor{db: db}
	return r
}

func build(db *gorm.DB) *Repository {
	return &Repository{
		Tenant:      NewTenantRepo(db),
		Settings:    NewSettingsRepo(db),
		User:        NewUserRepo(db),
		Doctor:      NewDoctorRepo(db),
		Patient:     NewPatientRepo(db),
		Template:    NewAvailabilityTemplateRepo(db),
		Appointment: NewAppointmentRepo(db),
	}
}

// ── transactions ──

// TxOptions tune one transaction.
type TxOptions struct {
	// LockTimeout bounds every lock wait inside the transaction.
	LockTimeout time.Duration
	Isolation   sql.IsolationLevel
}

// Transactor runs fn atomically. Returning an error from fn, or ctx ending,
// rolls back everything fn wrote.
type Transactor interface {
	InTx(ctx context.Context, opts TxOptions, fn func(tx *Repository) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) InTx(ctx context.Context, opts TxOptions, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.LockTimeout > 0 {
			// SET LOCAL does not accept bind parameters; the value is an integer.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", opts.LockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		inner := build(tx)
		inner.Tx = joinedTransactor{repo: inner}
		return fn(inner)
	}, &sql.TxOptions{Isolation: opts.Isolation})
}

// joinedTransactor runs nested units inside the enclosing transaction.
type joinedTransactor struct {
	repo *Repository
}

func (j joinedTransactor) InTx(_ context.Context, _ TxOptions, fn func(tx *Repository) error) error {
	return fn(j.repo)
}

// ── tenant scoping ──

// scoped is the only way repositories obtain a query builder for tenant
// data. It fails when the tenant is missing or malformed.
func scoped(ctx context.Context, db *gorm.DB, tid tenant.ID) (*gorm.DB, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	return tenant.Scope(tid)(db.WithContext(ctx)).Session(&gorm.Session{}), nil
}
