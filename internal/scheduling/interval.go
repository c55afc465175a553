package scheduling

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start Clock
	End   Clock
}

// Span builds the interval starting at start lasting minutes.
func Span(start Clock, minutes int) Interval {
	return Interval{Start: start, End: start.Add(minutes)}
}

// Minutes length of the interval
func (i Interval) Minutes() int { return int(i.End - i.Start) }

// Overlaps is half-open overlap: [a,b) and [c,d) overlap iff a<d and c<b.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return i.Start <= o.Start && o.End <= i.End
}

// CountOverlaps counts the intervals in set overlapping i.
func CountOverlaps(i Interval, set []Interval) int {
	n := 0
	for _, o := range set {
		if i.Overlaps(o) {
			n++
		}
	}
	return n
}
