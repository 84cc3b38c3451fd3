package storage

import "time"

// DateLayout is the calendar-date key used by every table.
const DateLayout = "2006-01-02"

// FormatDate returns the local calendar date of t.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key as local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, invalid("date", "%q is not YYYY-MM-DD", s)
	}
	return t, nil
}

// AddDays shifts a date key by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// dateRange returns every date from start to end inclusive, ascending.
// Spans longer than maxTrendDays are rejected.
func dateRange(start, end string) ([]string, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.After(from.AddDate(0, 0, maxTrendDays-1)) {
		return nil, invalid("date", "range %s..%s exceeds %d days", start, end, maxTrendDays)
	}
	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

// dateRangeDescending returns at most limit dates from end back to start.
func dateRangeDescending(start, end string, limit int) ([]string, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	var dates []string
	for d := to; !d.Before(from) && len(dates) < limit; d = d.AddDate(0, 0, -1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}
