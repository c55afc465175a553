package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	pkgerrors "schedulix/backend/pkg/errors"
)

// calendarDefaultDays is the feed window when no range is given.
const calendarDefaultDays = 30

// CalendarService renders a doctor's booked appointments as an iCalendar
// feed. Only concrete appointments are exported, never open slots.
type CalendarService interface {
	DoctorCalendar(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (string, error)
}

type calendarService struct {
	cfg    *config.SchedulingConfig
	repo   *repository.Repository
	policy *policy
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(cfg *config.SchedulingConfig, repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{
		cfg:    cfg,
		repo:   repo,
		policy: &policy{repo: repo, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

func (s *calendarService) DoctorCalendar(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (string, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return "", err
	}

	doctorID := req.DoctorID
	switch pr.Role {
	case model.RoleDoctor:
		doctorID = pr.DoctorID
	case model.RoleAdmin:
		if doctorID == "" {
			return "", pkgerrors.Validation("doctor_id is required")
		}
	default:
		return "", ErrForbidden
	}

	filter := repository.AppointmentFilter{DoctorID: doctorID}
	if filter.DateFrom, filter.DateTo, err = parseRange(req.DateFrom, req.DateTo); err != nil {
		return "", err
	}
	if filter.DateFrom == nil {
		today := dateOf(s.now().UTC())
		filter.DateFrom = &today
	}
	if filter.DateTo == nil {
		to := filter.DateFrom.AddDate(0, 0, calendarDefaultDays)
		filter.DateTo = &to
	}

	rules, err := loadRules(ctx, s.repo, s.cfg, actor.TenantID, s.logger)
	if err != nil {
		return "", err
	}

	appts, err := s.repo.Appointment.ListAll(ctx, actor.TenantID, filter)
	if err != nil {
		s.logger.Error("failed to load appointments for calendar",
			zap.String("tenant_id", actor.TenantID.String()), zap.String("doctor_id", doctorID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Schedulix//Appointments//EN")
	cal.SetXWRCalName("Appointments")

	stamp := s.now().UTC()
	for i := range appts {
		a := &appts[i]
		if a.Status == model.StatusCancelled {
			continue
		}
		if _, err := a.Interval(); err != nil {
			s.logger.Warn("skipping appointment with invalid time", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			continue
		}

		start := a.StartsAt(rules.loc)
		evt := cal.AddEvent(a.AppointmentID + "@schedulix")
		evt.SetDtStampTime(stamp)
		evt.SetCreatedTime(a.CreatedAt)
		evt.SetModifiedAt(a.UpdatedAt)
		evt.SetStartAt(start.UTC())
		evt.SetEndAt(start.Add(time.Duration(a.DurationMinutes) * time.Minute).UTC())
		evt.SetSummary(calendarSummary(a))
		evt.SetDescription(calendarDescription(a))
		if a.Location != nil {
			evt.SetLocation(*a.Location)
		}
		if a.MeetingLink != nil {
			evt.SetURL(*a.MeetingLink)
		}
		if a.Status == model.StatusScheduled {
			evt.SetStatus(ics.ObjectStatusTentative)
		} else {
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return cal.Serialize(), nil
}

func calendarSummary(a *model.Appointment) string {
	if a.Patient != nil {
		return fmt.Sprintf("%s: %s", a.AppointmentType, a.Patient.FullName)
	}
	return a.AppointmentType
}

func calendarDescription(a *model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment %s\n", a.AppointmentNumber)
	fmt.Fprintf(&b, "Status: %s\n", a.Status)
	fmt.Fprintf(&b, "Consultation: %s\n", a.ConsultationType)
	if a.Reason != nil {
		fmt.Fprintf(&b, "Reason: %s\n", *a.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
