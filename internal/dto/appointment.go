package dto

// ── appointment DTOs ──

// CreateAppointmentRequest booking request. Patients may omit patient_id;
// it always resolves to their own profile.
type CreateAppointmentRequest struct {
	PatientID        string  `json:"patient_id"        binding:"omitempty,uuid"`
	DoctorID         string  `json:"doctor_id"         binding:"required,uuid"`
	AppointmentDate  string  `json:"appointment_date"  binding:"required,datetime=2006-01-02"`
	AppointmentTime  string  `json:"appointment_time"  binding:"required,hhmm"`
	DurationMinutes  int     `json:"duration_minutes"  binding:"required,min=1,max=1440"`
	AppointmentType  string  `json:"appointment_type"  binding:"required,max=50"`
	ConsultationType string  `json:"consultation_type" binding:"omitempty,oneof=In-Person Online"`
	Priority         string  `json:"priority"          binding:"omitempty,oneof=Low Normal High Urgent"`
	Reason           *string `json:"reason"            binding:"omitempty,max=2000"`
	Notes            *string `json:"notes"             binding:"omitempty,max=2000"`
	Location         *string `json:"location"          binding:"omitempty,max=200"`
	MeetingLink      *string `json:"meeting_link"      binding:"omitempty,url,max=500"`
}

// AppointmentListRequest list query. Doctor and patient filters are
// overridden by the caller's own identity for non-admin roles.
type AppointmentListRequest struct {
	PaginationRequest
	DoctorID  string `form:"doctor_id" binding:"omitempty,uuid"`
	PatientID string `form:"patient_id" binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to"   binding:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status"    binding:"omitempty,oneof=Scheduled Confirmed In_Progress Completed Cancelled No_Show"`
}

// CancelAppointmentRequest cancellation
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// CompleteAppointmentRequest completion
type CompleteAppointmentRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=2000"`
}

// DateRangeRequest inclusive date range used by stats, export and calendar
type DateRangeRequest struct {
	DateFrom string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   binding:"omitempty,datetime=2006-01-02"`
	DoctorID string `form:"doctor_id" binding:"omitempty,uuid"`
}

// AppointmentResponse appointment
type AppointmentResponse struct {
	ID                 string        `json:"id"`
	AppointmentNumber  string        `json:"appointment_number"`
	PatientID          string        `json:"patient_id"`
	Patient            *PatientBrief `json:"patient,omitempty"`
	DoctorID           string        `json:"doctor_id"`
	Doctor             *DoctorBrief  `json:"doctor,omitempty"`
	AppointmentDate    string        `json:"appointment_date"`
	AppointmentTime    string        `json:"appointment_time"`
	EndTime            string        `json:"end_time"`
	DurationMinutes    int           `json:"duration_minutes"`
	AppointmentType    string        `json:"appointment_type"`
	ConsultationType   string        `json:"consultation_type"`
	Status             string        `json:"status"`
	Priority           string        `json:"priority"`
	Reason             *string       `json:"reason,omitempty"`
	Notes              *string       `json:"notes,omitempty"`
	Location           *string       `json:"location,omitempty"`
	MeetingLink        *string       `json:"meeting_link,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CancelledBy        *string       `json:"cancelled_by,omitempty"`
	CancelledAt        *string       `json:"cancelled_at,omitempty"`
	CheckedInAt        *string       `json:"checked_in_at,omitempty"`
	CompletedAt        *string       `json:"completed_at,omitempty"`
	Version            int           `json:"version"`
	CreatedAt          string        `json:"created_at"`
	UpdatedAt          string        `json:"updated_at"`
}

// AppointmentStatsResponse counts per status and per day
type AppointmentStatsResponse struct {
	Total    int64         `json:"total"`
	ByStatus []StatusCount `json:"by_status"`
	ByDay    []DayCount    `json:"by_day"`
}

// StatusCount appointments in one status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DayCount appointments on one day
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
