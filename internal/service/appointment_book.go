package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── appointment book errors ──

var (
	ErrAppointmentNotFound = pkgerrors.New(pkgerrors.KindNotFound, 26001, "Appointment not found")
	ErrDoctorUnavailable   = pkgerrors.New(pkgerrors.KindConflict, 26002, "Doctor is not available at the selected time").WithStatus(400)
	ErrAlreadyCancelled    = pkgerrors.New(pkgerrors.KindConflict, 26003, "Appointment is already cancelled").WithStatus(400)
	ErrInvalidTransition   = pkgerrors.New(pkgerrors.KindConflict, 26004, "Appointment status does not allow this action")
	ErrBookingBusy         = pkgerrors.New(pkgerrors.KindTransient, 26005, "The doctor's schedule is busy, please retry")
	ErrDateInPast          = pkgerrors.New(pkgerrors.KindValidation, 26006, "Appointment date cannot be in the past")
	ErrDurationRange       = pkgerrors.New(pkgerrors.KindValidation, 26007, "Appointment duration is out of range")
	ErrBeyondHorizon       = pkgerrors.New(pkgerrors.KindValidation, 26008, "Appointment date is beyond the booking horizon")
)

// BookingRequest a validated booking. The patient has already been
// authorized by the caller.
type BookingRequest struct {
	PatientID        string
	DoctorID         string
	Date             time.Time
	Start            scheduling.Clock
	DurationMinutes  int
	AppointmentType  string
	ConsultationType string
	Priority         string
	Reason           *string
	Notes            *string
	Location         *string
	MeetingLink      *string
	BookedBy         string
}

// Interval is the requested [start, start+duration) range.
func (r BookingRequest) Interval() scheduling.Interval {
	return scheduling.Span(r.Start, r.DurationMinutes)
}

// Transition describes one status change.
type Transition struct {
	Event string
	To    string
	From  []string
	// Guard authorizes the change against the locked row.
	Guard func(*model.Appointment) error
	// Repeat is returned when the row is already in To. ErrInvalidTransition otherwise.
	Repeat  error
	Apply   func(a *model.Appointment, now time.Time)
	ActorID string
}

// AppointmentBook owns appointment writes: conflict-checked booking and
// status transitions.
type AppointmentBook interface {
	Book(ctx context.Context, tid tenant.ID, req BookingRequest) (*model.Appointment, error)
	Transition(ctx context.Context, tid tenant.ID, appointmentID string, t Transition) (*model.Appointment, error)
}

type appointmentBook struct {
	cfg    *config.SchedulingConfig
	repo   *repository.Repository
	events *eventSink
	logger *zap.Logger
	now    func() time.Time
}

// NewAppointmentBook creates an AppointmentBook.
func NewAppointmentBook(cfg *config.SchedulingConfig, repo *repository.Repository, pub EventPublisher, logger *zap.Logger) AppointmentBook {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &appointmentBook{
		cfg:    cfg,
		repo:   repo,
		events: &eventSink{pub: pub, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// ════════════════════════════════════════════
// Book
// ════════════════════════════════════════════
//
// The check-then-insert runs under a transaction-scoped advisory lock on
// (tenant, doctor, date), so two overlapping requests for the same doctor
// and day are serialized and at most capacity of them commit. Lock waits
// and the whole unit are bounded; a timeout surfaces as ErrBookingBusy
// with nothing written.

func (b *appointmentBook) Book(ctx context.Context, tid tenant.ID, req BookingRequest) (*model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}
	want := req.Interval()
	if req.DurationMinutes <= 0 || want.End > scheduling.EndOfDay {
		return nil, ErrDurationRange.Withf("Appointment must end on the day it starts")
	}

	// 1. doctor and patient must belong to the tenant
	if _, err := b.repo.Doctor.GetByID(ctx, tid, req.DoctorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		b.logger.Error("failed to load doctor", zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}
	if _, err := b.repo.Patient.GetByID(ctx, tid, req.PatientID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPatientNotFound
		}
		b.logger.Error("failed to load patient", zap.String("tenant_id", tid.String()), zap.String("patient_id", req.PatientID), zap.Error(err))
		return nil, err
	}

	// 2. serialized capacity check and insert
	ctx, cancel := context.WithTimeout(ctx, b.cfg.BookingTimeout)
	defer cancel()

	appt := &model.Appointment{
		AppointmentNumber: appointmentNumber(req.Date),
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		AppointmentDate:   req.Date,
		AppointmentTime:   req.Start.String(),
		DurationMinutes:   req.DurationMinutes,
		AppointmentType:   req.AppointmentType,
		ConsultationType:  req.ConsultationType,
		Status:            model.StatusScheduled,
		Priority:          req.Priority,
		Reason:            req.Reason,
		Notes:             req.Notes,
		Location:          req.Location,
		MeetingLink:       req.MeetingLink,
	}
	appt.Stamp(req.BookedBy)

	opts := repository.TxOptions{LockTimeout: b.cfg.LockTimeout, Isolation: sql.LevelReadCommitted}
	err := b.repo.Tx.InTx(ctx, opts, func(tx *repository.Repository) error {
		if err := tx.Appointment.LockDoctorDay(ctx, tid, req.DoctorID, req.Date); err != nil {
			return err
		}

		// templates are read under the lock so a concurrent edit of
		// max_bookings or is_active is seen
		capacity, err := b.capacity(ctx, tx, tid, req.DoctorID, req.Date, want)
		if err != nil {
			return err
		}

		active, err := tx.Appointment.ListActiveByDoctorDate(ctx, tid, req.DoctorID, req.Date)
		if err != nil {
			return err
		}
		busy, err := busyIntervals(active)
		if err != nil {
			return err
		}
		if scheduling.CountOverlaps(want, busy) >= capacity {
			return ErrDoctorUnavailable
		}

		return tx.Appointment.Create(ctx, tid, appt)
	})
	if err != nil {
		return nil, b.bookingError(tid, req, err)
	}

	b.logger.Info("appointment booked",
		zap.String("tenant_id", tid.String()),
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("doctor_id", appt.DoctorID),
		zap.String("date", req.Date.Format(scheduling.DateLayout)),
		zap.String("time", appt.AppointmentTime))

	b.events.appointment(ctx, EventAppointmentCreated, appt, req.BookedBy)
	return appt, nil
}

// capacity of the governing template, 1 when none covers the request.
func (b *appointmentBook) capacity(ctx context.Context, repo *repository.Repository, tid tenant.ID, doctorID string, date time.Time, want scheduling.Interval) (int, error) {
	rows, err := repo.Template.ListForDate(ctx, tid, doctorID, date)
	if err != nil {
		return 0, err
	}
	templates, err := convertTemplates(rows, b.logger)
	if err != nil {
		return 0, err
	}
	return scheduling.CapacityFor(scheduling.Resolve(templates, date), want), nil
}

func (b *appointmentBook) bookingError(tid tenant.ID, req BookingRequest, err error) error {
	switch {
	case errors.Is(err, ErrDoctorUnavailable), errors.Is(err, scheduling.ErrInvalidTemplate):
		return err
	case repository.IsTransient(err):
		b.logger.Warn("booking aborted by lock or deadline",
			zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return ErrBookingBusy.Wrap(err)
	case repository.IsForeignKeyViolation(err):
		return ErrPatientNotFound.Wrap(err)
	}
	if constraint, ok := repository.IsUniqueViolation(err); ok {
		// appointment number collision; nothing was written
		b.logger.Warn("appointment number collision", zap.String("constraint", constraint))
		return ErrBookingBusy.Wrap(err)
	}
	b.logger.Error("failed to book appointment",
		zap.String("tenant_id", tid.String()), zap.String("doctor_id", req.DoctorID), zap.Error(err))
	return err
}

// ════════════════════════════════════════════
// Transition
// ════════════════════════════════════════════

func (b *appointmentBook) Transition(ctx context.Context, tid tenant.ID, appointmentID string, t Transition) (*model.Appointment, error) {
	if err := tid.Validate(); err != nil {
		return nil, err
	}

	var appt *model.Appointment
	opts := repository.TxOptions{LockTimeout: b.cfg.LockTimeout}
	err := b.repo.Tx.InTx(ctx, opts, func(tx *repository.Repository) error {
		a, err := tx.Appointment.GetForUpdate(ctx, tid, appointmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if t.Guard != nil {
			if err := t.Guard(a); err != nil {
				return err
			}
		}

		if a.Status == t.To && t.Repeat != nil {
			return t.Repeat
		}
		if !slices.Contains(t.From, a.Status) {
			return ErrInvalidTransition.Withf("Cannot %s an appointment that is %s", verb(t.Event), strings.ToLower(a.Status))
		}

		a.Status = t.To
		if t.Apply != nil {
			t.Apply(a, b.now().UTC())
		}
		if t.ActorID != "" {
			a.UpdatedBy = &t.ActorID
		}

		if err := tx.Appointment.UpdateStatus(ctx, tid, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); ok {
			return nil, err
		}
		if repository.IsTransient(err) {
			return nil, ErrBookingBusy.Wrap(err)
		}
		b.logger.Error("failed to update appointment status",
			zap.String("tenant_id", tid.String()),
			zap.String("appointment_id", appointmentID),
			zap.String("event", t.Event),
			zap.Error(err))
		return nil, err
	}

	b.events.appointment(ctx, t.Event, appt, t.ActorID)
	return appt, nil
}

// ── canned transitions ──

var nonTerminal = []string{model.StatusScheduled, model.StatusConfirmed, model.StatusInProgress}

// ConfirmTransition Scheduled → Confirmed
func ConfirmTransition(actorID string, guard func(*model.Appointment) error) Transition {
	return Transition{
		Event:   EventAppointmentConfirmed,
		To:      model.StatusConfirmed,
		From:    []string{model.StatusScheduled},
		Guard:   guard,
		ActorID: actorID,
	}
}

// StartTransition Scheduled|Confirmed → In_Progress
func StartTransition(actorID string, guard func(*model.Appointment) error) Transition {
	return Transition{
		Event: EventAppointmentStarted,
		To:    model.StatusInProgress,
		From:  []string{model.StatusScheduled, model.StatusConfirmed},
		Guard: guard,
		Apply: func(a *model.Appointment, now time.Time) {
			a.CheckedInAt = &now
		},
		ActorID: actorID,
	}
}

// CompleteTransition any non-terminal status → Completed
func CompleteTransition(actorID string, notes *string, guard func(*model.Appointment) error) Transition {
	return Transition{
		Event: EventAppointmentCompleted,
		To:    model.StatusCompleted,
		From:  nonTerminal,
		Guard: guard,
		Apply: func(a *model.Appointment, now time.Time) {
			a.CompletedAt = &now
			if notes != nil {
				a.Notes = notes
			}
		},
		ActorID: actorID,
	}
}

// NoShowTransition Scheduled|Confirmed → No_Show
func NoShowTransition(actorID string, guard func(*model.Appointment) error) Transition {
	return Transition{
		Event:   EventAppointmentNoShow,
		To:      model.StatusNoShow,
		From:    []string{model.StatusScheduled, model.StatusConfirmed},
		Guard:   guard,
		ActorID: actorID,
	}
}

// CancelTransition any non-terminal status → Cancelled. Cancelling twice
// fails with ErrAlreadyCancelled.
func CancelTransition(actorID, reason string, guard func(*model.Appointment) error) Transition {
	return Transition{
		Event:  EventAppointmentCancelled,
		To:     model.StatusCancelled,
		From:   nonTerminal,
		Guard:  guard,
		Repeat: ErrAlreadyCancelled,
		Apply: func(a *model.Appointment, now time.Time) {
			a.CancelledAt = &now
			a.CancelledBy = &actorID
			if reason != "" {
				a.CancellationReason = &reason
			}
		},
		ActorID: actorID,
	}
}

// ── helpers ──

// appointmentNumber APT-<yyyymmdd>-<8 hex>
func appointmentNumber(date time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("APT-%s-%s", date.Format("20060102"), strings.ToUpper(id[:8]))
}

func busyIntervals(appts []model.Appointment) ([]scheduling.Interval, error) {
	busy := make([]scheduling.Interval, 0, len(appts))
	for i := range appts {
		if !model.IsActiveStatus(appts[i].Status) {
			continue
		}
		iv, err := appts[i].Interval()
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", appts[i].AppointmentID, err)
		}
		busy = append(busy, iv)
	}
	return busy, nil
}

// convertTemplates fails on the first row the generator cannot walk. The
// error is a validation error naming the template, so the doctor's hours
// get fixed instead of silently shrinking.
func convertTemplates(rows []model.AvailabilityTemplate, logger *zap.Logger) ([]scheduling.Template, error) {
	out := make([]scheduling.Template, 0, len(rows))
	for i := range rows {
		t, err := rows[i].Template()
		if err != nil {
			logger.Warn("invalid availability template",
				zap.String("tenant_id", rows[i].TenantID),
				zap.String("template_id", rows[i].TemplateID),
				zap.Error(err))
			return nil, scheduling.ErrInvalidTemplate.
				Withf("Availability template %s is invalid", rows[i].TemplateID).
				Wrap(err)
		}
		out = append(out, t)
	}
	return out, nil
}

func verb(event string) string {
	switch event {
	case EventAppointmentConfirmed:
		return "confirm"
	case EventAppointmentStarted:
		return "start"
	case EventAppointmentCompleted:
		return "complete"
	case EventAppointmentCancelled:
		return "cancel"
	case EventAppointmentNoShow:
		return "mark as no-show"
	}
	return "update"
}
