package protocol

import "time"

// Window is the calendar-date range in which a visit is expected to occur.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether a day falls inside the window, inclusive.
func (w Window) Contains(day time.Time) bool {
	d := TruncateToDay(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// StageWindows holds the precomputed windows for the three follow-up visits.
type StageWindows struct {
	V2 Window
	V3 Window
	V4 Window
}

// TruncateToDay drops the time-of-day component, keeping the local calendar
// date. Window arithmetic must never see hours or timezone drift.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ComputeWindows derives the V2–V4 windows from the enrollment date.
//
// V2 is offset from enrollment, with enrollment itself counting as day one:
// the nominal V2 day is enrollment + (toV2Days − 1). V3 and V4 are chained
// off the *start* of the previous window, not its end and not enrollment:
// tolerances widen each window but do not shift the chain. This is a
// protocol decision, keep it.
func (p *Protocol) ComputeWindows(enrollment time.Time) StageWindows {
	day := TruncateToDay(enrollment)
	o := p.offsets

	v2 := Window{
		Start: day.AddDate(0, 0, o.ToV2Days-1-o.ToV2Tolerance),
		End:   day.AddDate(0, 0, o.ToV2Days-1+o.ToV2Tolerance),
	}
	v3 := Window{
		Start: v2.Start.AddDate(0, 0, o.ToV3Days-o.ToV3Tolerance),
		End:   v2.Start.AddDate(0, 0, o.ToV3Days+o.ToV3Tolerance),
	}
	v4 := Window{
		Start: v3.Start.AddDate(0, 0, o.ToV4Days-o.ToV4Tolerance),
		End:   v3.Start.AddDate(0, 0, o.ToV4Days+o.ToV4Tolerance),
	}
	return StageWindows{V2: v2, V3: v3, V4: v4}
}
