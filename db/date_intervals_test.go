package db_test

import (
	"testing"
	"time"

	"hermannm.dev/dashboard/db"
)

func TestBucketLabels(t *testing.T) {
	date := time.Date(2025, time.April, 14, 13, 37, 0, 0, time.UTC)

	labels := map[db.DateInterval]string{
		db.DateIntervalDay:     "2025-04-14",
		db.DateIntervalWeek:    "W16 2025",
		db.DateIntervalMonth:   "2025-04",
		db.DateIntervalQuarter: "Q2 2025",
		db.DateIntervalYear:    "2025",
	}

	for interval, expected := range labels {
		if label := interval.BucketLabel(date); label != expected {
			t.Errorf("%v label: expected '%s', got '%s'", interval, expected, label)
		}
	}
}

func TestBucketRangeInvertsBucketLabel(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 14, 13, 37, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
	intervals := []db.DateInterval{
		db.DateIntervalDay,
		db.DateIntervalWeek,
		db.DateIntervalMonth,
		db.DateIntervalQuarter,
		db.DateIntervalYear,
	}

	for _, interval := range intervals {
		for _, date := range dates {
			label := interval.BucketLabel(date)
			start, end, err := interval.BucketRange(label)
			if err != nil {
				t.Fatalf("%v.BucketRange('%s'): %v", interval, label, err)
			}

			day := db.DateIntervalDay.BucketStart(date)
			if day.Before(start) || day.After(end) {
				t.Errorf(
					"%v bucket '%s' [%v, %v] does not contain %v",
					interval, label, start, end, date,
				)
			}
		}
	}
}

func TestWeekBucketStartsOnMonday(t *testing.T) {
	// 2025-04-14 is a Monday
	monday := time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC)

	for dayOffset := 0; dayOffset < 7; dayOffset++ {
		date := monday.AddDate(0, 0, dayOffset)
		if start := db.DateIntervalWeek.BucketStart(date); !start.Equal(monday) {
			t.Errorf("week bucket of %v: expected %v, got %v", date, monday, start)
		}
	}
}

func TestQuarterBucketRange(t *testing.T) {
	start, end, err := db.DateIntervalQuarter.BucketRange("Q2 2025")
	if err != nil {
		t.Fatal(err)
	}

	expectedStart := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	expectedEnd := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	if !start.Equal(expectedStart) || !end.Equal(expectedEnd) {
		t.Errorf("expected [%v, %v], got [%v, %v]", expectedStart, expectedEnd, start, end)
	}
}

func TestMonthBucketRangeAcceptsBothLabelFormats(t *testing.T) {
	expectedStart := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	expectedEnd := time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)

	for _, label := range []string{"2025-04", "April 2025"} {
		start, end, err := db.DateIntervalMonth.BucketRange(label)
		if err != nil {
			t.Fatalf("month label '%s': %v", label, err)
		}
		if !start.Equal(expectedStart) || !end.Equal(expectedEnd) {
			t.Errorf(
				"month label '%s': expected [%v, %v], got [%v, %v]",
				label, expectedStart, expectedEnd, start, end,
			)
		}
	}
}

func TestParseDateLabel(t *testing.T) {
	tests := []struct {
		value         string
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			"W16 2025",
			time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			"2025-04",
			time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"2025-04-14",
			time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			"2025-04-14T13:37:00Z",
			time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range tests {
		start, end, ok := db.ParseDateLabel(test.value)
		if !ok {
			t.Fatalf("failed to parse date label '%s'", test.value)
		}
		if !start.Equal(test.expectedStart) || !end.Equal(test.expectedEnd) {
			t.Errorf(
				"date label '%s': expected [%v, %v], got [%v, %v]",
				test.value, test.expectedStart, test.expectedEnd, start, end,
			)
		}
	}

	if _, _, ok := db.ParseDateLabel("not a date"); ok {
		t.Error("expected parse failure for 'not a date'")
	}
}
