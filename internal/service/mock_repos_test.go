package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// memStore backs every mock repository. Rows are keyed by primary key and
// always carry their tenant; every tenant-scoped read filters on it, the
// same way repository.scoped does.
type memStore struct {
	mu           sync.Mutex
	tenants      map[string]*model.Tenant
	settings     map[string]*model.SchedulingSettings
	users        map[string]*model.User
	doctors      map[string]*model.Doctor
	patients     map[string]*model.Patient
	templates    map[string]*model.AvailabilityTemplate
	appointments map[string]*model.Appointment

	// txMu serializes transactions, standing in for the per doctor-day
	// advisory lock.
	txMu   sync.Mutex
	locks  int
	failTx error

	// hooks run with mu held
	onTemplateRead  func()
	onTemplateWrite func(t *model.AvailabilityTemplate)
}

func newMemStore() *memStore {
	return &memStore{
		tenants:      make(map[string]*model.Tenant),
		settings:     make(map[string]*model.SchedulingSettings),
		users:        make(map[string]*model.User),
		doctors:      make(map[string]*model.Doctor),
		patients:     make(map[string]*model.Patient),
		templates:    make(map[string]*model.AvailabilityTemplate),
		appointments: make(map[string]*model.Appointment),
	}
}

// repository builds the aggregate the services receive.
func (s *memStore) repository() *repository.Repository {
	r := s.repos()
	r.Tx = &mockTransactor{store: s}
	return r
}

func (s *memStore) repos() *repository.Repository {
	return &repository.Repository{
		Tenant:      &mockTenantRepo{s},
		Settings:    &mockSettingsRepo{s},
		User:        &mockUserRepo{s},
		Doctor:      &mockDoctorRepo{s},
		Patient:     &mockPatientRepo{s},
		Template:    &mockTemplateRepo{s},
		Appointment: &mockAppointmentRepo{s},
	}
}

func newID() string { return uuid.NewString() }

// ── Transactor ──

type mockTransactor struct {
	store *memStore
}

func (m *mockTransactor) InTx(ctx context.Context, _ repository.TxOptions, fn func(tx *repository.Repository) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.store.failTx != nil {
		return m.store.failTx
	}

	inner := m.store.repos()
	inner.Tx = joinedTx{repo: inner}
	return fn(inner)
}

type joinedTx struct {
	repo *repository.Repository
}

func (j joinedTx) InTx(_ context.Context, _ repository.TxOptions, fn func(tx *repository.Repository) error) error {
	return fn(j.repo)
}

// ── Mock TenantRepository ──

type mockTenantRepo struct{ s *memStore }

func (m *mockTenantRepo) Create(_ context.Context, t *model.Tenant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t.TenantID == "" {
		t.TenantID = newID()
	}
	cp := *t
	m.s.tenants[t.TenantID] = &cp
	return nil
}

func (m *mockTenantRepo) GetByID(_ context.Context, id tenant.ID) (*model.Tenant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.tenants[id.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTenantRepo) GetBySlug(_ context.Context, slug string) (*model.Tenant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTenantRepo) UpdateStatus(_ context.Context, id tenant.ID, status string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tenants[id.String()]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Status = status
	return nil
}

// ── Mock SettingsRepository ──

type mockSettingsRepo struct{ s *memStore }

func (m *mockSettingsRepo) Get(_ context.Context, tid tenant.ID) (*model.SchedulingSettings, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.settings[tid.String()]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettingsRepo) Save(_ context.Context, tid tenant.ID, st *model.SchedulingSettings) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st.TenantID = tid.String()
	cp := *st
	m.s.settings[tid.String()] = &cp
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, tid tenant.ID, user *model.User) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if user.UserID == "" {
		user.UserID = newID()
	}
	user.TenantID = tid.String()
	if user.Version == 0 {
		user.Version = 1
	}
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, tid tenant.ID, id string) (*model.User, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok && u.TenantID == tid.String() {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, tid tenant.ID, role string, offset, limit int) ([]model.User, int64, error) {
	if err := tid.Validate(); err != nil {
		return nil, 0, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.User
	for _, u := range m.s.users {
		if u.TenantID == tid.String() && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockUserRepo) TouchLastLogin(_ context.Context, tid tenant.ID, id string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok && u.TenantID == tid.String() {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, tid tenant.ID, id, passwordHash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok || u.TenantID != tid.String() {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	u.Version++
	return nil
}

// ── Mock DoctorRepository ──

type mockDoctorRepo struct{ s *memStore }

func (m *mockDoctorRepo) Create(_ context.Context, tid tenant.ID, d *model.Doctor) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d.DoctorID == "" {
		d.DoctorID = newID()
	}
	d.TenantID = tid.String()
	if d.Version == 0 {
		d.Version = 1
	}
	cp := *d
	m.s.doctors[d.DoctorID] = &cp
	return nil
}

// withUser attaches the account the way the repository preloads it.
func (m *mockDoctorRepo) withUser(d *model.Doctor) *model.Doctor {
	cp := *d
	if u, ok := m.s.users[d.UserID]; ok {
		uc := *u
		cp.User = &uc
	}
	return &cp
}

func (m *mockDoctorRepo) GetByID(_ context.Context, tid tenant.ID, id string) (*model.Doctor, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d, ok := m.s.doctors[id]; ok && d.TenantID == tid.String() {
		return m.withUser(d), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, tid tenant.ID, userID string) (*model.Doctor, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range m.s.doctors {
		if d.TenantID == tid.String() && d.UserID == userID {
			return m.withUser(d), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDoctorRepo) List(_ context.Context, tid tenant.ID, f repository.DoctorFilter, offset, limit int) ([]model.Doctor, int64, error) {
	if err := tid.Validate(); err != nil {
		return nil, 0, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Doctor
	for _, d := range m.s.doctors {
		if d.TenantID != tid.String() {
			continue
		}
		if f.Specialization != "" && !strings.EqualFold(d.Specialization, f.Specialization) {
			continue
		}
		if f.AvailabilityStatus != "" && d.AvailabilityStatus != f.AvailabilityStatus {
			continue
		}
		out = append(out, *m.withUser(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID < out[j].DoctorID })
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockDoctorRepo) Update(_ context.Context, tid tenant.ID, d *model.Doctor) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.doctors[d.DoctorID]
	if !ok || cur.TenantID != tid.String() || cur.Version != d.Version {
		return pkgerrors.ErrOptimisticLock
	}
	d.Version++
	cp := *d
	cp.User = nil
	m.s.doctors[d.DoctorID] = &cp
	return nil
}

// ── Mock PatientRepository ──

type mockPatientRepo struct{ s *memStore }

func (m *mockPatientRepo) Create(_ context.Context, tid tenant.ID, p *model.Patient) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p.PatientID == "" {
		p.PatientID = newID()
	}
	p.TenantID = tid.String()
	cp := *p
	m.s.patients[p.PatientID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, tid tenant.ID, id string) (*model.Patient, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.patients[id]; ok && p.TenantID == tid.String() {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, tid tenant.ID, userID string) (*model.Patient, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.patients {
		if p.TenantID == tid.String() && p.UserID != nil && *p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPatientRepo) List(_ context.Context, tid tenant.ID, search string, offset, limit int) ([]model.Patient, int64, error) {
	if err := tid.Validate(); err != nil {
		return nil, 0, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Patient
	for _, p := range m.s.patients {
		if p.TenantID != tid.String() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.FullName), strings.ToLower(search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return page(out, offset, limit), int64(len(out)), nil
}

// ── Mock AvailabilityTemplateRepository ──

type mockTemplateRepo struct{ s *memStore }

func (m *mockTemplateRepo) Create(ctx context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error {
	rows := []model.AvailabilityTemplate{*tpl}
	if err := m.BatchCreate(ctx, tid, rows); err != nil {
		return err
	}
	*tpl = rows[0]
	return nil
}

func (m *mockTemplateRepo) BatchCreate(_ context.Context, tid tenant.ID, tpls []model.AvailabilityTemplate) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range tpls {
		if tpls[i].TemplateID == "" {
			tpls[i].TemplateID = newID()
		}
		tpls[i].TenantID = tid.String()
		if tpls[i].Version == 0 {
			tpls[i].Version = 1
		}
		cp := tpls[i]
		m.s.templates[cp.TemplateID] = &cp
	}
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, tid tenant.ID, id string) (*model.AvailabilityTemplate, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.templates[id]; ok && t.TenantID == tid.String() {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTemplateRepo) List(_ context.Context, tid tenant.ID, f repository.TemplateFilter) ([]model.AvailabilityTemplate, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AvailabilityTemplate
	for _, t := range m.s.templates {
		if t.TenantID != tid.String() {
			continue
		}
		if f.DoctorID != "" && t.DoctorID != f.DoctorID {
			continue
		}
		if !f.IncludeInactive && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *mockTemplateRepo) ListForDate(_ context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.AvailabilityTemplate, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.onTemplateRead != nil {
		m.s.onTemplateRead()
	}
	var out []model.AvailabilityTemplate
	for _, t := range m.s.templates {
		if t.TenantID != tid.String() || t.DoctorID != doctorID || !t.IsActive {
			continue
		}
		recurring := t.IsRecurring && t.DayOfWeek != nil && time.Weekday(*t.DayOfWeek) == date.Weekday()
		override := !t.IsRecurring && t.SpecificDate != nil && t.SpecificDate.Equal(date)
		if recurring || override {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *mockTemplateRepo) Update(_ context.Context, tid tenant.ID, tpl *model.AvailabilityTemplate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.templates[tpl.TemplateID]
	if !ok || cur.TenantID != tid.String() || cur.Version != tpl.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version++
	cp := *tpl
	m.s.templates[tpl.TemplateID] = &cp
	return nil
}

func (m *mockTemplateRepo) Deactivate(_ context.Context, tid tenant.ID, id, deactivatedBy string, version int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.templates[id]
	if ok && m.s.onTemplateWrite != nil {
		m.s.onTemplateWrite(t)
	}
	if !ok || t.TenantID != tid.String() || t.Version != version {
		return pkgerrors.ErrOptimisticLock
	}
	t.IsActive = false
	t.UpdatedBy = &deactivatedBy
	t.Version++
	return nil
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct{ s *memStore }

func (m *mockAppointmentRepo) LockDoctorDay(_ context.Context, tid tenant.ID, _ string, _ time.Time) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	m.s.locks++
	m.s.mu.Unlock()
	return nil
}

func (m *mockAppointmentRepo) ListActiveByDoctorDate(_ context.Context, tid tenant.ID, doctorID string, date time.Time) ([]model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.s.appointments {
		if a.TenantID == tid.String() && a.DoctorID == doctorID && a.AppointmentDate.Equal(date) &&
			slices.Contains(model.ActiveStatuses, a.Status) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) Create(_ context.Context, tid tenant.ID, a *model.Appointment) error {
	if err := tid.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a.AppointmentID == "" {
		a.AppointmentID = newID()
	}
	a.TenantID = tid.String()
	a.Version = 1
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.s.appointments[a.AppointmentID] = &cp
	return nil
}

// withRelations attaches patient and doctor the way the repository preloads them.
func (m *mockAppointmentRepo) withRelations(a *model.Appointment) model.Appointment {
	cp := *a
	if p, ok := m.s.patients[a.PatientID]; ok {
		pc := *p
		cp.Patient = &pc
	}
	if d, ok := m.s.doctors[a.DoctorID]; ok {
		dc := *d
		if u, ok := m.s.users[d.UserID]; ok {
			uc := *u
			dc.User = &uc
		}
		cp.Doctor = &dc
	}
	return cp
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, tid tenant.ID, id string) (*model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.appointments[id]; ok && a.TenantID == tid.String() {
		cp := m.withRelations(a)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) GetForUpdate(_ context.Context, tid tenant.ID, id string) (*model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.appointments[id]; ok && a.TenantID == tid.String() {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, tid tenant.ID, a *model.Appointment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.appointments[a.AppointmentID]
	if !ok || cur.TenantID != tid.String() || cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	m.s.appointments[a.AppointmentID] = &cp
	return nil
}

func (m *mockAppointmentRepo) filtered(tid tenant.ID, f repository.AppointmentFilter) []model.Appointment {
	var out []model.Appointment
	for _, a := range m.s.appointments {
		if a.TenantID != tid.String() {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.DateFrom != nil && a.AppointmentDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.AppointmentDate.After(*f.DateTo) {
			continue
		}
		out = append(out, m.withRelations(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		}
		return out[i].AppointmentTime < out[j].AppointmentTime
	})
	return out
}

func (m *mockAppointmentRepo) List(_ context.Context, tid tenant.ID, f repository.AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error) {
	if err := tid.Validate(); err != nil {
		return nil, 0, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.filtered(tid, f)
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockAppointmentRepo) ListAll(_ context.Context, tid tenant.ID, f repository.AppointmentFilter) ([]model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.filtered(tid, f), nil
}

func (m *mockAppointmentRepo) CountByStatus(_ context.Context, tid tenant.ID, f repository.AppointmentFilter) ([]repository.StatusCount, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64)
	for _, a := range m.filtered(tid, f) {
		counts[a.Status]++
	}
	var out []repository.StatusCount
	for _, st := range model.AllStatuses {
		if n := counts[st]; n > 0 {
			out = append(out, repository.StatusCount{Status: st, Count: n})
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) CountByDay(_ context.Context, tid tenant.ID, f repository.AppointmentFilter) ([]repository.DayCount, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []repository.DayCount
	for _, a := range m.filtered(tid, f) {
		if n := len(out); n > 0 && out[n-1].Day.Equal(a.AppointmentDate) {
			out[n-1].Count++
			continue
		}
		out = append(out, repository.DayCount{Day: a.AppointmentDate, Count: 1})
	}
	return out, nil
}

// ── helpers ──

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
