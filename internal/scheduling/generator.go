// Package scheduling turns availability templates into bookable slots.
//
// Everything here is pure: no I/O, no clock reads, no shared state. The
// caller supplies templates and busy intervals loaded for one tenant, one
// doctor and one date.
package scheduling

import (
	"cmp"
	"iter"
	"slices"
	"time"
)

// Slot is a derived bookable window. It is never persisted.
type Slot struct {
	Date time.Time
	Interval
	Available bool
}

// StartAt is the slot start as an instant.
func (s Slot) StartAt() time.Time { return s.Start.On(s.Date) }

// EndAt is the slot end as an instant.
func (s Slot) EndAt() time.Time { return s.End.On(s.Date) }

// Generate walks the template window in slot-sized steps and yields the
// open slots for date.
//
//   - a step overlapping the break jumps to the break end
//   - a step that would run past the window end stops the walk
//   - a step overlapping busy intervals at or above capacity is skipped
//
// The returned sequence is finite and may be ranged over any number of
// times with identical results.
func Generate(t Template, date time.Time, busy []Interval) (iter.Seq[Slot], error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if !t.Variant.Matches(date) {
		return nil, ErrTemplateDateMismatch
	}

	busy = slices.Clone(busy)
	capacity := t.Capacity()
	step := t.SlotMinutes

	return func(yield func(Slot) bool) {
		cur := t.Window.Start
		for cur.Add(step) <= t.Window.End {
			candidate := Span(cur, step)

			if t.Break != nil && candidate.Overlaps(*t.Break) {
				cur = t.Break.End
				continue
			}

			if CountOverlaps(candidate, busy) < capacity {
				if !yield(Slot{Date: date, Interval: candidate, Available: true}) {
					return
				}
			}
			cur = candidate.End
		}
	}, nil
}

// Resolve returns the templates governing date. Date overrides for the date
// replace every recurring template of that weekday.
func Resolve(templates []Template, date time.Time) []Template {
	var overrides, recurring []Template
	for _, t := range templates {
		if t.Variant == nil || !t.Variant.Matches(date) {
			continue
		}
		switch t.Variant.(type) {
		case DateOverride:
			overrides = append(overrides, t)
		case Recurring:
			recurring = append(recurring, t)
		}
	}

	chosen := recurring
	if len(overrides) > 0 {
		chosen = overrides
	}
	slices.SortFunc(chosen, func(a, b Template) int { return cmp.Compare(a.Window.Start, b.Window.Start) })
	return chosen
}

// OpenSlots resolves the templates for date and merges their slots in start
// order. A slot start produced by two templates is listed once.
func OpenSlots(templates []Template, date time.Time, busy []Interval) ([]Slot, error) {
	var out []Slot
	for _, t := range Resolve(templates, date) {
		seq, err := Generate(t, date, busy)
		if err != nil {
			return nil, err
		}
		out = slices.AppendSeq(out, seq)
	}

	slices.SortStableFunc(out, func(a, b Slot) int { return cmp.Compare(a.Start, b.Start) })
	return slices.CompactFunc(out, func(a, b Slot) bool { return a.Start == b.Start }), nil
}

// CapacityFor is the booking capacity of the template whose window holds
// the interval, or 1 when no resolved template covers it.
func CapacityFor(resolved []Template, want Interval) int {
	for _, t := range resolved {
		if t.Window.Contains(want) {
			return t.Capacity()
		}
	}
	return 1
}
