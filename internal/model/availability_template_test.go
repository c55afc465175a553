package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulix/backend/internal/scheduling"
)

func strPtr(s string) *string { return &s }

func TestAvailabilityTemplate_RecurringRoundTrip(t *testing.T) {
	row := &AvailabilityTemplate{
		TemplateID:   "tpl-1",
		StartTime:    "09:00:00",
		EndTime:      "12:00:00",
		SlotDuration: 30,
		BreakStart:   strPtr("10:00:00"),
		BreakEnd:     strPtr("10:30:00"),
		MaxBookings:  1,
	}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})

	require.True(t, row.IsRecurring)
	require.NotNil(t, row.DayOfWeek)
	assert.Nil(t, row.SpecificDate)

	tpl, err := row.Template()
	require.NoError(t, err)
	assert.Equal(t, scheduling.Recurring{Weekday: time.Monday}, tpl.Variant)
	assert.Equal(t, "09:00", tpl.Window.Start.String())
	assert.Equal(t, "10:30", tpl.Break.End.String())
}

func TestAvailabilityTemplate_DateOverride(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	row := &AvailabilityTemplate{StartTime: "14:00", EndTime: "15:00", SlotDuration: 20}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})
	row.SetVariant(scheduling.DateOverride{Date: day})

	assert.False(t, row.IsRecurring)
	assert.Nil(t, row.DayOfWeek)

	tpl, err := row.Template()
	require.NoError(t, err)
	assert.True(t, tpl.Variant.Matches(day))
}

func TestAvailabilityTemplate_AmbiguousVariantRejected(t *testing.T) {
	dow := int16(1)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	both := &AvailabilityTemplate{IsRecurring: true, DayOfWeek: &dow, SpecificDate: &day, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30}
	_, err := both.Template()
	assert.True(t, errors.Is(err, scheduling.ErrInvalidTemplate))

	neither := &AvailabilityTemplate{IsRecurring: false, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30}
	_, err = neither.Template()
	assert.True(t, errors.Is(err, scheduling.ErrInvalidTemplate))
}

func TestAvailabilityTemplate_HalfBreakRejected(t *testing.T) {
	row := &AvailabilityTemplate{StartTime: "09:00", EndTime: "12:00", SlotDuration: 30, BreakStart: strPtr("10:00")}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})

	_, err := row.Template()
	assert.True(t, errors.Is(err, scheduling.ErrInvalidTemplate))
}

func TestAvailabilityTemplate_EmptyWindowRejected(t *testing.T) {
	row := &AvailabilityTemplate{StartTime: "09:00", EndTime: "09:00", SlotDuration: 30}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})

	_, err := row.Template()
	assert.True(t, errors.Is(err, scheduling.ErrInvalidTemplate))

	// the pure generator still accepts it
	tpl := scheduling.Template{
		Variant:     scheduling.Recurring{Weekday: time.Monday},
		Window:      scheduling.Interval{Start: 540, End: 540},
		SlotMinutes: 30,
	}
	assert.NoError(t, tpl.Validate())
}

func TestAvailabilityTemplate_SecondsRejected(t *testing.T) {
	row := &AvailabilityTemplate{StartTime: "09:00:30", EndTime: "12:00:00", SlotDuration: 30}
	row.SetVariant(scheduling.Recurring{Weekday: time.Monday})

	_, err := row.Template()
	assert.True(t, errors.Is(err, scheduling.ErrInvalidTemplate))
}

func TestAppointmentInterval(t *testing.T) {
	a := &Appointment{AppointmentTime: "09:30:00", DurationMinutes: 45, AppointmentDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}

	iv, err := a.Interval()
	require.NoError(t, err)
	assert.Equal(t, "09:30", iv.Start.String())
	assert.Equal(t, "10:15", iv.End.String())
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), a.StartsAt(time.UTC))
}

func TestStatusHelpers(t *testing.T) {
	for _, s := range []string{StatusScheduled, StatusConfirmed, StatusInProgress} {
		assert.True(t, IsActiveStatus(s), s)
		assert.False(t, IsTerminalStatus(s), s)
	}
	for _, s := range []string{StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.False(t, IsActiveStatus(s), s)
		assert.True(t, IsTerminalStatus(s), s)
	}
}
