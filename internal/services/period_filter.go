package services

import "time"

// PeriodFilter names a concrete date range for dashboard aggregation.
type PeriodFilter string

const (
	PeriodCurrentMonth PeriodFilter = "CURRENT_MONTH"
	PeriodLastMonth    PeriodFilter = "LAST_MONTH"
	PeriodLast3Months  PeriodFilter = "LAST_3_MONTHS"
	PeriodLast6Months  PeriodFilter = "LAST_6_MONTHS"
	PeriodCurrentYear  PeriodFilter = "CURRENT_YEAR"
	PeriodLastYear     PeriodFilter = "LAST_YEAR"
)

// AllPeriodFilters lists every known filter; used for cache invalidation.
var AllPeriodFilters = []PeriodFilter{
	PeriodCurrentMonth,
	PeriodLastMonth,
	PeriodLast3Months,
	PeriodLast6Months,
	PeriodCurrentYear,
	PeriodLastYear,
}

// ParsePeriodFilter validates a raw filter value.
func ParsePeriodFilter(raw string) (PeriodFilter, error) {
	f := PeriodFilter(raw)
	switch f {
	case PeriodCurrentMonth, PeriodLastMonth, PeriodLast3Months,
		PeriodLast6Months, PeriodCurrentYear, PeriodLastYear:
		return f, nil
	}
	return "", &ValidationError{Entity: "Dashboard", Field: "periodFilter", Reason: "is invalid"}
}

// DateRange maps the filter to [from, to] evaluated against now. Open
// ranges (current month/year, last N months) end at now's date 23:59:59;
// closed ranges (last month/year) end at their calendar boundary.
func (f PeriodFilter) DateRange(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	loc := now.Location()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	todayEnd := endOfDay(now)

	switch f {
	case PeriodCurrentMonth:
		return monthStart, todayEnd
	case PeriodLastMonth:
		start := monthStart.AddDate(0, -1, 0)
		return start, endOfDay(monthStart.AddDate(0, 0, -1))
	case PeriodLast3Months:
		return monthStart.AddDate(0, -3, 0), todayEnd
	case PeriodLast6Months:
		return monthStart.AddDate(0, -6, 0), todayEnd
	case PeriodCurrentYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), todayEnd
	case PeriodLastYear:
		start := time.Date(y-1, time.January, 1, 0, 0, 0, 0, loc)
		return start, time.Date(y-1, time.December, 31, 23, 59, 59, 0, loc)
	}
	// ParsePeriodFilter guards every caller; an unknown value here is a bug.
	return time.Time{}, time.Time{}
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
