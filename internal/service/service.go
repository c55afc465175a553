package service

import (
	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/repository"
	"schedulix/backend/pkg/jwt"
	"schedulix/backend/pkg/redis"
)

// Service aggregates every service behind the HTTP layer.
type Service struct {
	Auth         AuthService
	Tenant       TenantService
	User         UserService
	Doctor       DoctorService
	Patient      PatientService
	Availability AvailabilityService
	Book         AppointmentBook
	Scheduling   SchedulingService
	Export       ExportService
	Calendar     CalendarService
}

// NewService wires the services. rdb may be nil; token revocation, the
// tenant status cache and event publishing then degrade to no-ops.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		tokens TokenStore
		cache  TenantStatusCache
		pub    EventPublisher
	)
	// a nil *redis.Client stored in an interface is not a nil interface
	if rdb != nil {
		tokens, cache, pub = rdb, rdb, rdb
	}

	book := NewAppointmentBook(&cfg.Scheduling, repo, pub, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, tokens, logger),
		Tenant:       NewTenantService(cfg, repo, jwtMgr, cache, logger),
		User:         NewUserService(repo, logger),
		Doctor:       NewDoctorService(repo, logger),
		Patient:      NewPatientService(repo, logger),
		Availability: NewAvailabilityService(&cfg.Scheduling, repo, logger),
		Book:         book,
		Scheduling:   NewSchedulingService(&cfg.Scheduling, repo, book, logger),
		Export:       NewExportService(repo, logger),
		Calendar:     NewCalendarService(&cfg.Scheduling, repo, logger),
	}
}
