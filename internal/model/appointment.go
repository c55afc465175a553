package model

import (
	"slices"
	"time"

	"schedulix/backend/internal/scheduling"
)

// Appointment statuses
const (
	StatusScheduled  = "Scheduled"
	StatusConfirmed  = "Confirmed"
	StatusInProgress = "In_Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
	StatusNoShow     = "No_Show"
)

// ActiveStatuses occupy their interval for future conflict checks.
var ActiveStatuses = []string{StatusScheduled, StatusConfirmed, StatusInProgress}

// AllStatuses every appointment status
var AllStatuses = []string{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}

// Consultation modes
const (
	ConsultationInPerson = "In-Person"
	ConsultationOnline   = "Online"
)

// Priorities
const (
	PriorityLow    = "Low"
	PriorityNormal = "Normal"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// IsTerminalStatus no transition leaves these states.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusNoShow
}

// IsActiveStatus reports whether the status blocks overlapping bookings.
func IsActiveStatus(status string) bool {
	return slices.Contains(ActiveStatuses, status)
}

// Appointment booked visit (table appointments)
type Appointment struct {
	AppointmentID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	TenantID           string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	AppointmentNumber  string     `gorm:"type:varchar(30);not null;uniqueIndex"          json:"appointment_number"`
	PatientID          string     `gorm:"type:uuid;not null"                             json:"patient_id"`
	DoctorID           string     `gorm:"type:uuid;not null"                             json:"doctor_id"`
	AppointmentDate    time.Time  `gorm:"type:date;not null"                             json:"appointment_date"`
	AppointmentTime    string     `gorm:"type:time;not null"                             json:"appointment_time"`
	DurationMinutes    int        `gorm:"not null"                                       json:"duration_minutes"`
	AppointmentType    string     `gorm:"type:varchar(50);not null"                      json:"appointment_type"`
	ConsultationType   string     `gorm:"type:varchar(20);not null"                      json:"consultation_type"`
	Status             string     `gorm:"type:varchar(20);not null"                      json:"status"`
	Priority           string     `gorm:"type:varchar(10);not null"                      json:"priority"`
	Reason             *string    `gorm:"type:text"                                      json:"reason,omitempty"`
	Notes              *string    `gorm:"type:text"                                      json:"notes,omitempty"`
	Location           *string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	MeetingLink        *string    `gorm:"type:varchar(500)"                              json:"meeting_link,omitempty"`
	CancellationReason *string    `gorm:"type:text"                                      json:"cancellation_reason,omitempty"`
	CancelledBy        *string    `gorm:"type:uuid"                                      json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `                                                      json:"cancelled_at,omitempty"`
	CheckedInAt        *time.Time `                                                      json:"checked_in_at,omitempty"`
	CompletedAt        *time.Time `                                                      json:"completed_at,omitempty"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	Patient *Patient `gorm:"foreignKey:PatientID;references:PatientID" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:DoctorID;references:DoctorID"   json:"doctor,omitempty"`
}

// TableName table name
func (Appointment) TableName() string { return "appointments" }

// Interval is the [start, start+duration) range of the appointment.
func (a *Appointment) Interval() (scheduling.Interval, error) {
	start, err := scheduling.ParseClock(a.AppointmentTime)
	if err != nil {
		return scheduling.Interval{}, err
	}
	return scheduling.Span(start, a.DurationMinutes), nil
}

// StartsAt is the appointment start instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	start, err := scheduling.ParseClock(a.AppointmentTime)
	if err != nil {
		start = 0
	}
	y, m, d := a.AppointmentDate.Date()
	return start.On(time.Date(y, m, d, 0, 0, 0, 0, loc))
}
