package scheduling

import (
	"time"

	pkgerrors "schedulix/backend/pkg/errors"
)

// MinSlotMinutes smallest slot a template may declare
const MinSlotMinutes = 5

var (
	ErrInvalidTemplate      = pkgerrors.New(pkgerrors.KindValidation, 12001, "invalid availability template")
	ErrTemplateDateMismatch = pkgerrors.New(pkgerrors.KindValidation, 12002, "template does not apply to the requested date")
)

// Variant selects the days a template applies to. It is either Recurring
// or DateOverride, never both and never neither.
type Variant interface {
	Matches(date time.Time) bool
	isVariant()
}

// Recurring applies every week on one weekday.
type Recurring struct {
	Weekday time.Weekday
}

// Matches reports whether date falls on the weekday.
func (r Recurring) Matches(date time.Time) bool { return date.Weekday() == r.Weekday }

func (Recurring) isVariant() {}

// DateOverride applies to one calendar date and replaces the recurring
// templates of that date.
type DateOverride struct {
	Date time.Time
}

// Matches reports whether date is the override date.
func (o DateOverride) Matches(date time.Time) bool { return SameDay(o.Date, date) }

func (DateOverride) isVariant() {}

// Template is a doctor's open-hours rule for one kind of day.
type Template struct {
	ID          string
	Variant     Variant
	Window      Interval
	SlotMinutes int
	Break       *Interval
	// MaxBookings is the number of overlapping bookings a slot accepts.
	MaxBookings int
}

// Capacity is MaxBookings with the default of one applied.
func (t Template) Capacity() int {
	if t.MaxBookings < 1 {
		return 1
	}
	return t.MaxBookings
}

// Validate rejects templates the generator cannot walk. An empty window is
// valid and simply produces no slots.
func (t Template) Validate() error {
	if t.Variant == nil {
		return ErrInvalidTemplate.Withf("template must be recurring or date-specific")
	}
	if w, ok := t.Variant.(Recurring); ok && (w.Weekday < time.Sunday || w.Weekday > time.Saturday) {
		return ErrInvalidTemplate.Withf("day of week must be between 0 and 6")
	}
	if t.Window.Start < 0 || t.Window.End > EndOfDay || t.Window.End < t.Window.Start {
		return ErrInvalidTemplate.Withf("start time must not be after end time")
	}
	if t.SlotMinutes < MinSlotMinutes {
		return ErrInvalidTemplate.Withf("slot duration must be at least %d minutes", MinSlotMinutes)
	}
	if t.MaxBookings < 0 {
		return ErrInvalidTemplate.Withf("max bookings must be at least 1")
	}
	if b := t.Break; b != nil {
		if b.Start >= b.End {
			return ErrInvalidTemplate.Withf("break start must be before break end")
		}
		if !t.Window.Contains(*b) {
			return ErrInvalidTemplate.Withf("break must lie within the availability window")
		}
	}
	return nil
}
