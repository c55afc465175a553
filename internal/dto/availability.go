package dto

// ── availability template DTOs ──

// CreateTemplateRequest declares open hours. Exactly one of day_of_week
// (0=Sunday … 6=Saturday) and specific_date must be set.
type CreateTemplateRequest struct {
	DoctorID     string  `json:"doctor_id"     binding:"required,uuid"`
	DayOfWeek    *int    `json:"day_of_week"   binding:"omitempty,min=0,max=6"`
	SpecificDate *string `json:"specific_date" binding:"omitempty,datetime=2006-01-02"`
	StartTime    string  `json:"start_time"    binding:"required,hhmm"`
	EndTime      string  `json:"end_time"      binding:"required,hhmm"`
	SlotDuration int     `json:"slot_duration" binding:"omitempty,min=5,max=480"`
	BreakStart   *string `json:"break_start"   binding:"omitempty,hhmm"`
	BreakEnd     *string `json:"break_end"     binding:"omitempty,hhmm"`
	MaxBookings  int     `json:"max_bookings"  binding:"omitempty,min=1,max=50"`
}

// BulkCreateTemplateRequest creates several templates atomically
type BulkCreateTemplateRequest struct {
	Templates []CreateTemplateRequest `json:"templates" binding:"required,min=1,max=50,dive"`
}

// UpdateTemplateRequest partial update; the variant is immutable
type UpdateTemplateRequest struct {
	StartTime    *string `json:"start_time"    binding:"omitempty,hhmm"`
	EndTime      *string `json:"end_time"      binding:"omitempty,hhmm"`
	SlotDuration *int    `json:"slot_duration" binding:"omitempty,min=5,max=480"`
	BreakStart   *string `json:"break_start"   binding:"omitempty,hhmm"`
	BreakEnd     *string `json:"break_end"     binding:"omitempty,hhmm"`
	ClearBreak   bool    `json:"clear_break"`
	MaxBookings  *int    `json:"max_bookings"  binding:"omitempty,min=1,max=50"`
	IsActive     *bool   `json:"is_active"`
}

// TemplateListRequest template list query; date narrows to the templates
// governing that day
type TemplateListRequest struct {
	DoctorID        string `form:"doctor_id"        binding:"omitempty,uuid"`
	Date            string `form:"date"             binding:"omitempty,datetime=2006-01-02"`
	IncludeInactive bool   `form:"include_inactive"`
}

// TemplateResponse availability template
type TemplateResponse struct {
	ID           string  `json:"id"`
	DoctorID     string  `json:"doctor_id"`
	IsRecurring  bool    `json:"is_recurring"`
	DayOfWeek    *int    `json:"day_of_week,omitempty"`
	DayName      string  `json:"day_name,omitempty"`
	SpecificDate *string `json:"specific_date,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	SlotDuration int     `json:"slot_duration"`
	BreakStart   *string `json:"break_start,omitempty"`
	BreakEnd     *string `json:"break_end,omitempty"`
	MaxBookings  int     `json:"max_bookings"`
	IsActive     bool    `json:"is_active"`
	Version      int     `json:"version"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ── available slots ──

// AvailableSlotsRequest available slot query
type AvailableSlotsRequest struct {
	DoctorID string `form:"doctor_id" binding:"required,uuid"`
	Date     string `form:"date"      binding:"required,datetime=2006-01-02"`
}

// AvailableSlotsResponse open slots of one doctor on one day
type AvailableSlotsResponse struct {
	Date      string          `json:"date"`
	DayOfWeek string          `json:"dayOfWeek"`
	Count     int             `json:"count"`
	Data      []AvailableSlot `json:"data"`
}

// AvailableSlot one bookable slot
type AvailableSlot struct {
	Time      string `json:"time"`     // HH:MM
	Datetime  string `json:"datetime"` // RFC 3339 in the organization's timezone
	Duration  int    `json:"duration"` // minutes
	Available bool   `json:"available"`
}
