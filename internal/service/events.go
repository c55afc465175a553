package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"schedulix/backend/internal/model"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/pkg/redis"
)

// Appointment event types
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentStarted   = "appointment.started"
	EventAppointmentCompleted = "appointment.completed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentNoShow    = "appointment.no_show"
)

const publishTimeout = 2 * time.Second

// EventPublisher fans out committed changes. *redis.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }

// AppointmentEvent payload published on the tenant's event channel
type AppointmentEvent struct {
	Type              string    `json:"type"`
	TenantID          string    `json:"tenant_id"`
	AppointmentID     string    `json:"appointment_id"`
	AppointmentNumber string    `json:"appointment_number"`
	DoctorID          string    `json:"doctor_id"`
	PatientID         string    `json:"patient_id"`
	Status            string    `json:"status"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	ActorID           string    `json:"actor_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type eventSink struct {
	pub    EventPublisher
	logger *zap.Logger
}

// appointment publishes after commit. Failures are logged and swallowed:
// the change is already durable.
func (e *eventSink) appointment(ctx context.Context, typ string, a *model.Appointment, actorID string) {
	evt := AppointmentEvent{
		Type:              typ,
		TenantID:          a.TenantID,
		AppointmentID:     a.AppointmentID,
		AppointmentNumber: a.AppointmentNumber,
		DoctorID:          a.DoctorID,
		PatientID:         a.PatientID,
		Status:            a.Status,
		Date:              a.AppointmentDate.Format(scheduling.DateLayout),
		Time:              a.AppointmentTime,
		ActorID:           actorID,
		OccurredAt:        time.Now().UTC(),
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		e.logger.Error("failed to encode appointment event", zap.String("type", typ), zap.Error(err))
		return
	}

	// the request may already be finishing; the publish gets its own deadline
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.pub.Publish(pctx, redis.EventChannel(a.TenantID), payload); err != nil {
		e.logger.Warn("failed to publish appointment event",
			zap.String("type", typ),
			zap.String("tenant_id", a.TenantID),
			zap.String("appointment_id", a.AppointmentID),
			zap.Error(err))
	}
}
