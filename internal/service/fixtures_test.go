package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"schedulix/backend/config"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	"schedulix/backend/pkg/jwt"
)

// ── test helpers ──

// fixedNow is a Tuesday; monday is the following Monday.
var (
	fixedNow = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	monday   = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
)

const testPassword = "correct-horse-battery"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "development", BaseURL: "http://localhost:8080"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2030",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Scheduling: config.SchedulingConfig{
			BookingTimeout:     5 * time.Second,
			LockTimeout:        3 * time.Second,
			DefaultSlotMinutes: 30,
			MinDurationMinutes: 15,
			MaxDurationMinutes: 180,
			MaxPageSize:        100,
		},
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	channel string
	payload []byte
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, payload: payload})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// testEnv wires every service against one in-memory store.
type testEnv struct {
	cfg    *config.Config
	store  *memStore
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	pub    *recordingPublisher
	logger *zap.Logger

	book       AppointmentBook
	scheduling SchedulingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		cfg:    testConfig(),
		store:  newMemStore(),
		pub:    &recordingPublisher{},
		logger: zap.NewNop(),
	}
	env.repo = env.store.repository()
	env.jwtMgr = jwt.NewManager(&env.cfg.Auth)

	book := NewAppointmentBook(&env.cfg.Scheduling, env.repo, env.pub, env.logger).(*appointmentBook)
	book.now = func() time.Time { return fixedNow }
	env.book = book

	sched := NewSchedulingService(&env.cfg.Scheduling, env.repo, book, env.logger).(*schedulingService)
	sched.now = func() time.Time { return fixedNow }
	env.scheduling = sched
	return env
}

// org is one seeded tenant with an admin, a doctor and a patient.
type org struct {
	tid         tenant.ID
	admin       Actor
	doctor      Actor
	doctorID    string
	patient     Actor
	patientID   string
	otherDoctor Actor
	otherDocID  string
}

func (e *testEnv) seedOrg(t *testing.T, slug string) *org {
	t.Helper()
	ctx := context.Background()

	tn := &model.Tenant{Name: slug, Slug: slug, Status: tenant.StatusActive}
	if err := e.repo.Tenant.Create(ctx, tn); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	tid := tenant.ID(tn.TenantID)
	if err := e.repo.Settings.Save(ctx, tid, &model.SchedulingSettings{
		MinDurationMinutes: 15,
		MaxDurationMinutes: 180,
		DefaultSlotMinutes: 30,
		BookingHorizonDays: 90,
		Timezone:           "UTC",
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	o := &org{tid: tid}
	o.admin = Actor{UserID: e.seedUser(t, tid, slug+"-admin@example.com", model.RoleAdmin).UserID, TenantID: tid, Role: model.RoleAdmin}

	o.doctor, o.doctorID = e.seedDoctor(t, tid, slug+"-doctor@example.com")
	o.otherDoctor, o.otherDocID = e.seedDoctor(t, tid, slug+"-doctor2@example.com")

	pu := e.seedUser(t, tid, slug+"-patient@example.com", model.RolePatient)
	p := &model.Patient{UserID: &pu.UserID, PatientCode: patientCode(fixedNow), FullName: "Pat " + slug, Status: "Active"}
	if err := e.repo.Patient.Create(ctx, tid, p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	o.patient = Actor{UserID: pu.UserID, TenantID: tid, Role: model.RolePatient}
	o.patientID = p.PatientID
	return o
}

func (e *testEnv) seedUser(t *testing.T, tid tenant.ID, email, role string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	u := &model.User{Name: "User " + email, Email: email, PasswordHash: string(hash), Role: role, IsActive: true}
	if err := e.repo.User.Create(context.Background(), tid, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedDoctor(t *testing.T, tid tenant.ID, email string) (Actor, string) {
	t.Helper()
	u := e.seedUser(t, tid, email, model.RoleDoctor)
	d := &model.Doctor{
		UserID:             u.UserID,
		Specialization:     "Cardiology",
		LicenseNumber:      "LIC-" + email,
		AvailabilityStatus: "Available",
		ApprovalStatus:     "Approved",
	}
	if err := e.repo.Doctor.Create(context.Background(), tid, d); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	return Actor{UserID: u.UserID, TenantID: tid, Role: model.RoleDoctor}, d.DoctorID
}

// seedMondayTemplate 09:00-17:00, 30 minute slots, lunch 12:00-13:00.
func (e *testEnv) seedMondayTemplate(t *testing.T, tid tenant.ID, doctorID string, maxBookings int) *model.AvailabilityTemplate {
	t.Helper()
	bs, be := "12:00", "13:00"
	row := &model.AvailabilityTemplate{
		DoctorID:     doctorID,
		StartTime:    "09:00",
		EndTime:      "17:00",
		SlotDuration: 30,
		BreakStart:   &bs,
		BreakEnd:     &be,
		MaxBookings:  maxBookings,
		IsActive:     true,
	}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})
	if err := e.repo.Template.Create(context.Background(), tid, row); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return row
}

func ptr[T any](v T) *T { return &v }
