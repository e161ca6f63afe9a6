package db

import (
	"fmt"
	"strings"
	"time"

	"hermannm.dev/enumnames"
)

type DateInterval uint8

const (
	DateIntervalDay DateInterval = iota + 1
	DateIntervalWeek
	DateIntervalMonth
	DateIntervalQuarter
	DateIntervalYear
)

var dateIntervalNames = enumnames.NewMap(map[DateInterval]string{
	DateIntervalDay:     "day",
	DateIntervalWeek:    "week",
	DateIntervalMonth:   "month",
	DateIntervalQuarter: "quarter",
	DateIntervalYear:    "year",
})

func (dateInterval DateInterval) IsValid() bool {
	return dateIntervalNames.ContainsEnumValue(dateInterval)
}

func (dateInterval DateInterval) String() string {
	return dateIntervalNames.GetNameOrFallback(dateInterval, "INVALID_DATE_INTERVAL")
}

func (dateInterval DateInterval) MarshalJSON() ([]byte, error) {
	return dateIntervalNames.MarshalToNameJSON(dateInterval)
}

func (dateInterval *DateInterval) UnmarshalJSON(bytes []byte) error {
	return dateIntervalNames.UnmarshalFromNameJSON(bytes, dateInterval)
}

// BucketStart truncates the given time to the start of its bucket: midnight
// for days, Monday for weeks (ISO 8601), the first of the month/quarter/year
// otherwise. Always in UTC.
func (dateInterval DateInterval) BucketStart(t time.Time) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	switch dateInterval {
	case DateIntervalDay:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case DateIntervalWeek:
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		weekday := int(date.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday is the last day of an ISO week
		}
		return date.AddDate(0, 0, 1-weekday)
	case DateIntervalMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case DateIntervalQuarter:
		quarterStartMonth := month - (month-1)%3
		return time.Date(year, quarterStartMonth, 1, 0, 0, 0, 0, time.UTC)
	case DateIntervalYear:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the bucket following the one containing t.
func (dateInterval DateInterval) Next(t time.Time) time.Time {
	start := dateInterval.BucketStart(t)

	switch dateInterval {
	case DateIntervalDay:
		return start.AddDate(0, 0, 1)
	case DateIntervalWeek:
		return start.AddDate(0, 0, 7)
	case DateIntervalMonth:
		return start.AddDate(0, 1, 0)
	case DateIntervalQuarter:
		return start.AddDate(0, 3, 0)
	case DateIntervalYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketLabel formats the bucket containing t as a label:
// '2025-04-14' (day), 'W16 2025' (ISO week), '2025-04' (month),
// 'Q2 2025' (quarter) or '2025' (year).
func (dateInterval DateInterval) BucketLabel(t time.Time) string {
	t = t.UTC()

	switch dateInterval {
	case DateIntervalDay:
		return t.Format(time.DateOnly)
	case DateIntervalWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("W%d %d", week, year)
	case DateIntervalMonth:
		return t.Format("2006-01")
	case DateIntervalQuarter:
		quarter := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("Q%d %d", quarter, t.Year())
	case DateIntervalYear:
		return t.Format("2006")
	default:
		return t.Format(time.DateOnly)
	}
}

// BucketRange parses a bucket label back to the date range it covers, with
// both bounds inclusive (the end is the first day's midnight of the bucket's
// last day). It is the inverse of BucketLabel, though month labels are also
// accepted in the 'January 2025' form that some record stores emit.
func (dateInterval DateInterval) BucketRange(label string) (start time.Time, end time.Time, err error) {
	switch dateInterval {
	case DateIntervalDay:
		start, err = time.ParseInLocation(time.DateOnly, label, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid day label '%s'", label)
		}
		return start, start, nil
	case DateIntervalWeek:
		start, ok := parseWeekLabel(label)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid week label '%s'", label)
		}
		return start, start.AddDate(0, 0, 6), nil
	case DateIntervalMonth:
		start, ok := parseMonthLabel(label)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid month label '%s'", label)
		}
		return start, start.AddDate(0, 1, -1), nil
	case DateIntervalQuarter:
		var quarter, year int
		if _, err := fmt.Sscanf(label, "Q%d %d", &quarter, &year); err != nil || quarter < 1 ||
			quarter > 4 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid quarter label '%s'", label)
		}
		// Quarter N covers months 3N-2 through 3N
		start = time.Date(year, time.Month(3*quarter-2), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, -1), nil
	case DateIntervalYear:
		start, err = time.ParseInLocation("2006", label, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year label '%s'", label)
		}
		return start, start.AddDate(1, 0, -1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unrecognized date interval %d", dateInterval)
	}
}

func parseWeekLabel(label string) (monday time.Time, ok bool) {
	var week, year int
	if _, err := fmt.Sscanf(label, "W%d %d", &week, &year); err != nil || week < 1 || week > 53 {
		return time.Time{}, false
	}

	// January 4th is always in ISO week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	firstMonday := DateIntervalWeek.BucketStart(jan4)
	return firstMonday.AddDate(0, 0, 7*(week-1)), true
}

func parseMonthLabel(label string) (firstDay time.Time, ok bool) {
	if parsed, err := time.ParseInLocation("2006-01", label, time.UTC); err == nil {
		return parsed, true
	}
	if parsed, err := time.ParseInLocation("January 2006", label, time.UTC); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

// ParseDateLabel parses a date string whose interval is not known up front,
// trying formats in priority order: ISO week label, month label (named or
// numeric), plain date, and finally full RFC 3339. Returns the date range the
// string covers, or ok=false if no format matched.
func ParseDateLabel(value string) (start time.Time, end time.Time, ok bool) {
	if strings.HasPrefix(value, "W") {
		if monday, ok := parseWeekLabel(value); ok {
			return monday, monday.AddDate(0, 0, 6), true
		}
	}
	if firstDay, ok := parseMonthLabel(value); ok {
		return firstDay, firstDay.AddDate(0, 1, -1), true
	}
	if date, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return date, date, true
	}
	if timestamp, err := time.Parse(time.RFC3339, value); err == nil {
		date := DateIntervalDay.BucketStart(timestamp)
		return date, date, true
	}
	return time.Time{}, time.Time{}, false
}
