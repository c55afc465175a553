package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// SchedulingService is the authorization boundary in front of the slot
// generator and the appointment book. Every role rule about appointments is
// applied here, server-side.
type SchedulingService interface {
	GetAvailableSlots(ctx context.Context, actor Actor, req *dto.AvailableSlotsRequest) (*dto.AvailableSlotsResponse, error)
	CreateAppointment(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	ListAppointments(ctx context.Context, actor Actor, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error)
	GetAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error)
	StartAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error)
	CompleteAppointment(ctx context.Context, actor Actor, id string, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error)
	NoShowAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, actor Actor, id string, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error)
	Stats(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (*dto.AppointmentStatsResponse, error)
}

type schedulingService struct {
	cfg    *config.SchedulingConfig
	repo   *repository.Repository
	book   AppointmentBook
	policy *policy
	logger *zap.Logger
	now    func() time.Time
}

// NewSchedulingService creates a SchedulingService.
func NewSchedulingService(cfg *config.SchedulingConfig, repo *repository.Repository, book AppointmentBook, logger *zap.Logger) SchedulingService {
	return &schedulingService{
		cfg:    cfg,
		repo:   repo,
		book:   book,
		policy: &policy{repo: repo, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── GetAvailableSlots ──────────────────────

func (s *schedulingService) GetAvailableSlots(ctx context.Context, actor Actor, req *dto.AvailableSlotsRequest) (*dto.AvailableSlotsResponse, error) {
	tid := actor.TenantID
	if err := tid.Validate(); err != nil {
		return nil, err
	}

	date, err := scheduling.ParseDate(req.Date, time.UTC)
	if err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}

	rules, err := loadRules(ctx, s.repo, s.cfg, tid, s.logger)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Doctor.GetByID(ctx, tid, req.DoctorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("failed to load doctor", zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.Template.ListForDate(ctx, tid, req.DoctorID, date)
	if err != nil {
		s.logger.Error("failed to load templates", zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}

	active, err := s.repo.Appointment.ListActiveByDoctorDate(ctx, tid, req.DoctorID, date)
	if err != nil {
		s.logger.Error("failed to load appointments", zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}
	busy, err := busyIntervals(active)
	if err != nil {
		return nil, err
	}

	templates, err := convertTemplates(rows, s.logger)
	if err != nil {
		return nil, err
	}
	slots, err := scheduling.OpenSlots(templates, date, busy)
	if err != nil {
		return nil, err
	}

	local := inLocation(date, rules.loc)
	data := make([]dto.AvailableSlot, 0, len(slots))
	for _, sl := range slots {
		data = append(data, dto.AvailableSlot{
			Time:      sl.Start.String(),
			Datetime:  sl.Start.On(local).Format(time.RFC3339),
			Duration:  sl.Minutes(),
			Available: sl.Available,
		})
	}

	return &dto.AvailableSlotsResponse{
		Date:      req.Date,
		DayOfWeek: date.Weekday().String(),
		Count:     len(data),
		Data:      data,
	}, nil
}

// ────────────────────── CreateAppointment ──────────────────────

func (s *schedulingService) CreateAppointment(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	patientID, err := s.policy.bookingPatient(pr, req.PatientID)
	if err != nil {
		return nil, err
	}

	rules, err := loadRules(ctx, s.repo, s.cfg, actor.TenantID, s.logger)
	if err != nil {
		return nil, err
	}

	date, err := scheduling.ParseDate(req.AppointmentDate, time.UTC)
	if err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}
	start, err := scheduling.ParseClock(req.AppointmentTime)
	if err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}

	today := dateOf(s.now().In(rules.loc))
	if date.Before(today) {
		return nil, ErrDateInPast
	}
	if rules.horizonDays > 0 && date.After(today.AddDate(0, 0, rules.horizonDays)) {
		return nil, ErrBeyondHorizon.Withf("Appointments can be booked at most %d days ahead", rules.horizonDays)
	}
	if req.DurationMinutes < rules.minDuration || req.DurationMinutes > rules.maxDuration {
		return nil, ErrDurationRange.Withf("Duration must be between %d and %d minutes", rules.minDuration, rules.maxDuration)
	}

	consultation := req.ConsultationType
	if consultation == "" {
		consultation = model.ConsultationInPerson
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	appt, err := s.book.Book(ctx, actor.TenantID, BookingRequest{
		PatientID:        patientID,
		DoctorID:         req.DoctorID,
		Date:             date,
		Start:            start,
		DurationMinutes:  req.DurationMinutes,
		AppointmentType:  req.AppointmentType,
		ConsultationType: consultation,
		Priority:         priority,
		Reason:           req.Reason,
		Notes:            req.Notes,
		Location:         req.Location,
		MeetingLink:      req.MeetingLink,
		BookedBy:         actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, actor.TenantID, appt)
}

// ────────────────────── List / Get ──────────────────────

func (s *schedulingService) ListAppointments(ctx context.Context, actor Actor, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.AppointmentFilter{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Status:    req.Status,
	}
	if filter.DateFrom, filter.DateTo, err = parseRange(req.DateFrom, req.DateTo); err != nil {
		return nil, 0, err
	}
	s.policy.scopeAppointments(pr, &filter)

	pageSize := req.GetPageSize()
	if s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	appts, total, err := s.repo.Appointment.List(ctx, actor.TenantID, filter, (req.GetPage()-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error("failed to list appointments", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		result = append(result, *toAppointmentResponse(&appts[i]))
	}
	return result, total, nil
}

func (s *schedulingService) GetAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.Appointment.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("failed to load appointment", zap.String("tenant_id", actor.TenantID.String()), zap.String("appointment_id", id), zap.Error(err))
		return nil, err
	}
	if !s.policy.canView(pr, appt) {
		return nil, ErrForbidden
	}
	return toAppointmentResponse(appt), nil
}

// ────────────────────── transitions ──────────────────────

func (s *schedulingService) ConfirmAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, actor, id, func(pr *principal) Transition {
		return ConfirmTransition(actor.UserID, s.guard(pr, s.policy.canManage))
	})
}

func (s *schedulingService) StartAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, actor, id, func(pr *principal) Transition {
		return StartTransition(actor.UserID, s.guard(pr, s.policy.canManage))
	})
}

func (s *schedulingService) CompleteAppointment(ctx context.Context, actor Actor, id string, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, actor, id, func(pr *principal) Transition {
		return CompleteTransition(actor.UserID, req.Notes, s.guard(pr, s.policy.canComplete))
	})
}

func (s *schedulingService) NoShowAppointment(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, actor, id, func(pr *principal) Transition {
		return NoShowTransition(actor.UserID, s.guard(pr, s.policy.canManage))
	})
}

func (s *schedulingService) CancelAppointment(ctx context.Context, actor Actor, id string, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, actor, id, func(pr *principal) Transition {
		return CancelTransition(actor.UserID, req.Reason, s.guard(pr, s.policy.canCancel))
	})
}

func (s *schedulingService) transition(ctx context.Context, actor Actor, id string, build func(*principal) Transition) (*dto.AppointmentResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	appt, err := s.book.Transition(ctx, actor.TenantID, id, build(pr))
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor.TenantID, appt)
}

func (s *schedulingService) guard(pr *principal, allowed func(*principal, *model.Appointment) bool) func(*model.Appointment) error {
	return func(a *model.Appointment) error {
		if !allowed(pr, a) {
			return ErrForbidden
		}
		return nil
	}
}

// ────────────────────── Stats ──────────────────────

func (s *schedulingService) Stats(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (*dto.AppointmentStatsResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	filter := repository.AppointmentFilter{DoctorID: req.DoctorID}
	if filter.DateFrom, filter.DateTo, err = parseRange(req.DateFrom, req.DateTo); err != nil {
		return nil, err
	}
	s.policy.scopeAppointments(pr, &filter)

	byStatus, err := s.repo.Appointment.CountByStatus(ctx, actor.TenantID, filter)
	if err != nil {
		s.logger.Error("failed to count appointments by status", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, err
	}
	byDay, err := s.repo.Appointment.CountByDay(ctx, actor.TenantID, filter)
	if err != nil {
		s.logger.Error("failed to count appointments by day", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, err
	}

	resp := &dto.AppointmentStatsResponse{
		ByStatus: make([]dto.StatusCount, 0, len(byStatus)),
		ByDay:    make([]dto.DayCount, 0, len(byDay)),
	}
	for _, c := range byStatus {
		resp.Total += c.Count
		resp.ByStatus = append(resp.ByStatus, dto.StatusCount{Status: c.Status, Count: c.Count})
	}
	for _, c := range byDay {
		resp.ByDay = append(resp.ByDay, dto.DayCount{Date: c.Day.Format(scheduling.DateLayout), Count: c.Count})
	}
	return resp, nil
}

// ── internal helpers ──

// reload fetches the row with its patient and doctor for the response.
func (s *schedulingService) reload(ctx context.Context, tid tenant.ID, appt *model.Appointment) (*dto.AppointmentResponse, error) {
	full, err := s.repo.Appointment.GetByID(ctx, tid, appt.AppointmentID)
	if err != nil {
		s.logger.Warn("failed to reload appointment", zap.String("appointment_id", appt.AppointmentID), zap.Error(err))
		return toAppointmentResponse(appt), nil
	}
	return toAppointmentResponse(full), nil
}

// bookingRules tenant settings with the global defaults applied
type bookingRules struct {
	minDuration int
	maxDuration int
	slotMinutes int
	horizonDays int
	loc         *time.Location
}

func loadRules(ctx context.Context, repo *repository.Repository, cfg *config.SchedulingConfig, tid tenant.ID, logger *zap.Logger) (bookingRules, error) {
	rules := bookingRules{
		minDuration: cfg.MinDurationMinutes,
		maxDuration: cfg.MaxDurationMinutes,
		slotMinutes: cfg.DefaultSlotMinutes,
		loc:         time.UTC,
	}

	settings, err := repo.Settings.Get(ctx, tid)
	if err != nil {
		if repository.IsNotFound(err) {
			return rules, nil
		}
		logger.Error("failed to load scheduling settings", zap.String("tenant_id", tid.String()), zap.Error(err))
		return rules, err
	}

	if settings.MinDurationMinutes > 0 {
		rules.minDuration = settings.MinDurationMinutes
	}
	if settings.MaxDurationMinutes > 0 {
		rules.maxDuration = settings.MaxDurationMinutes
	}
	if settings.DefaultSlotMinutes > 0 {
		rules.slotMinutes = settings.DefaultSlotMinutes
	}
	rules.horizonDays = settings.BookingHorizonDays
	if loc, err := time.LoadLocation(settings.Timezone); err == nil {
		rules.loc = loc
	} else {
		logger.Warn("unknown tenant timezone, using UTC", zap.String("tenant_id", tid.String()), zap.String("timezone", settings.Timezone))
	}
	return rules, nil
}

// dateOf is the calendar date of t as UTC midnight, the form dates are
// stored and compared in.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inLocation moves a stored date to midnight in loc.
func inLocation(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func parseRange(from, to string) (*time.Time, *time.Time, error) {
	var f, t *time.Time
	if from != "" {
		d, err := scheduling.ParseDate(from, time.UTC)
		if err != nil {
			return nil, nil, pkgerrors.Validation(err.Error())
		}
		f = &d
	}
	if to != "" {
		d, err := scheduling.ParseDate(to, time.UTC)
		if err != nil {
			return nil, nil, pkgerrors.Validation(err.Error())
		}
		t = &d
	}
	if f != nil && t != nil && t.Before(*f) {
		return nil, nil, pkgerrors.Validation("date_to must not be before date_from")
	}
	return f, t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toAppointmentResponse(a *model.Appointment) *dto.AppointmentResponse {
	resp := &dto.AppointmentResponse{
		ID:                 a.AppointmentID,
		AppointmentNumber:  a.AppointmentNumber,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		AppointmentDate:    a.AppointmentDate.Format(scheduling.DateLayout),
		AppointmentTime:    a.AppointmentTime,
		DurationMinutes:    a.DurationMinutes,
		AppointmentType:    a.AppointmentType,
		ConsultationType:   a.ConsultationType,
		Status:             a.Status,
		Priority:           a.Priority,
		Reason:             a.Reason,
		Notes:              a.Notes,
		Location:           a.Location,
		MeetingLink:        a.MeetingLink,
		CancellationReason: a.CancellationReason,
		CancelledBy:        a.CancelledBy,
		CancelledAt:        formatTimePtr(a.CancelledAt),
		CheckedInAt:        formatTimePtr(a.CheckedInAt),
		CompletedAt:        formatTimePtr(a.CompletedAt),
		Version:            a.Version,
		CreatedAt:          formatTime(a.CreatedAt),
		UpdatedAt:          formatTime(a.UpdatedAt),
	}

	if iv, err := a.Interval(); err == nil {
		resp.AppointmentTime = iv.Start.String()
		resp.EndTime = iv.End.String()
	}

	if a.Patient != nil {
		resp.Patient = &dto.PatientBrief{
			ID:          a.Patient.PatientID,
			PatientCode: a.Patient.PatientCode,
			FullName:    a.Patient.FullName,
		}
	}
	if a.Doctor != nil {
		brief := &dto.DoctorBrief{
			ID:             a.Doctor.DoctorID,
			Specialization: a.Doctor.Specialization,
		}
		if a.Doctor.User != nil {
			brief.Name = a.Doctor.User.Name
		}
		resp.Doctor = brief
	}
	return resp
}
