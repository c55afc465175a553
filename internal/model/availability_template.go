package model

import (
	"fmt"
	"time"

	"schedulix/backend/internal/scheduling"
)

// AvailabilityTemplate a doctor's declared open hours (table availability_templates).
//
// Storage keeps the is_recurring flag with two nullable columns guarded by a
// CHECK constraint; Template converts the row into the tagged variant the
// slot generator works with.
type AvailabilityTemplate struct {
	TemplateID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	TenantID     string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	DoctorID     string     `gorm:"type:uuid;not null"                             json:"doctor_id"`
	IsRecurring  bool       `gorm:"not null"                                       json:"is_recurring"`
	DayOfWeek    *int16     `gorm:"type:smallint"                                  json:"day_of_week,omitempty"` // 0=Sunday … 6=Saturday
	SpecificDate *time.Time `gorm:"type:date"                                      json:"specific_date,omitempty"`
	StartTime    string     `gorm:"type:time;not null"                             json:"start_time"`
	EndTime      string     `gorm:"type:time;not null"                             json:"end_time"`
	SlotDuration int        `gorm:"not null"                                       json:"slot_duration"`
	BreakStart   *string    `gorm:"type:time"                                      json:"break_start,omitempty"`
	BreakEnd     *string    `gorm:"type:time"                                      json:"break_end,omitempty"`
	MaxBookings  int        `gorm:"not null;default:1"                             json:"max_bookings"`
	IsActive     bool       `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// TableName table name
func (AvailabilityTemplate) TableName() string { return "availability_templates" }

// SetVariant writes the tagged variant back to the storage columns.
func (a *AvailabilityTemplate) SetVariant(v scheduling.Variant) {
	switch v := v.(type) {
	case scheduling.Recurring:
		dow := int16(v.Weekday)
		a.IsRecurring = true
		a.DayOfWeek = &dow
		a.SpecificDate = nil
	case scheduling.DateOverride:
		d := v.Date
		a.IsRecurring = false
		a.DayOfWeek = nil
		a.SpecificDate = &d
	}
}

// Variant reads the storage columns as a tagged variant. Rows with both or
// neither column set are rejected.
func (a *AvailabilityTemplate) Variant() (scheduling.Variant, error) {
	switch {
	case a.IsRecurring && a.DayOfWeek != nil && a.SpecificDate == nil:
		return scheduling.Recurring{Weekday: time.Weekday(*a.DayOfWeek)}, nil
	case !a.IsRecurring && a.SpecificDate != nil && a.DayOfWeek == nil:
		return scheduling.DateOverride{Date: *a.SpecificDate}, nil
	default:
		return nil, scheduling.ErrInvalidTemplate.Withf("template %s must be either recurring or date-specific", a.TemplateID)
	}
}

// Template converts the row for the slot generator.
func (a *AvailabilityTemplate) Template() (scheduling.Template, error) {
	variant, err := a.Variant()
	if err != nil {
		return scheduling.Template{}, err
	}

	start, err := scheduling.ParseClock(a.StartTime)
	if err != nil {
		return scheduling.Template{}, scheduling.ErrInvalidTemplate.Wrap(err)
	}
	end, err := scheduling.ParseClock(a.EndTime)
	if err != nil {
		return scheduling.Template{}, scheduling.ErrInvalidTemplate.Wrap(err)
	}

	t := scheduling.Template{
		ID:          a.TemplateID,
		Variant:     variant,
		Window:      scheduling.Interval{Start: start, End: end},
		SlotMinutes: a.SlotDuration,
		MaxBookings: a.MaxBookings,
	}

	if a.BreakStart != nil || a.BreakEnd != nil {
		if a.BreakStart == nil || a.BreakEnd == nil {
			return scheduling.Template{}, scheduling.ErrInvalidTemplate.Withf("break start and end must be set together")
		}
		bs, err := scheduling.ParseClock(*a.BreakStart)
		if err != nil {
			return scheduling.Template{}, scheduling.ErrInvalidTemplate.Wrap(err)
		}
		be, err := scheduling.ParseClock(*a.BreakEnd)
		if err != nil {
			return scheduling.Template{}, scheduling.ErrInvalidTemplate.Wrap(err)
		}
		t.Break = &scheduling.Interval{Start: bs, End: be}
	}

	if err := t.Validate(); err != nil {
		return scheduling.Template{}, fmt.Errorf("template %s: %w", a.TemplateID, err)
	}
	// the generator tolerates an empty window; a stored template may not
	// have one (ck_template_window)
	if t.Window.Start >= t.Window.End {
		return scheduling.Template{}, scheduling.ErrInvalidTemplate.Withf("start time must be before end time")
	}
	return t, nil
}
