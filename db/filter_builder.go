package db

import "time"

// BuildGroupDomain reconstructs the minimal filter that selects exactly the
// records behind a result group: an equality term per grouped field, except
// date-bucketed fields, which expand to an inclusive date range covering their
// bucket. Given no values, it returns the empty filter (no constraint).
func BuildGroupDomain(values []GroupValue) Filter {
	var filter Filter

	for _, groupValue := range values {
		if groupValue.Value == nil {
			continue
		}

		if groupValue.Interval.IsValid() {
			if start, end, ok := bucketRangeOfValue(groupValue); ok {
				filter = filter.
					WithTerm(groupValue.Field, OperatorGreaterOrEqual, start.Format(time.DateOnly)).
					WithTerm(groupValue.Field, OperatorLessOrEqual, end.Format(time.DateOnly))
				continue
			}
			// Value did not match the interval's label format: fall through to
			// an equality term
		}

		filter = filter.WithTerm(groupValue.Field, OperatorEquals, equalityValue(groupValue.Value))
	}

	return filter
}

func bucketRangeOfValue(groupValue GroupValue) (start time.Time, end time.Time, ok bool) {
	switch value := groupValue.Value.(type) {
	case time.Time:
		start = groupValue.Interval.BucketStart(value)
		end = groupValue.Interval.Next(value).AddDate(0, 0, -1)
		return start, end, true
	case string:
		start, end, err := groupValue.Interval.BucketRange(value)
		if err == nil {
			return start, end, true
		}
		// Record stores may emit labels in a different interval's format than
		// the requested one; fall back to generic label parsing
		if start, end, ok := ParseDateLabel(value); ok {
			return start, end, true
		}
		return time.Time{}, time.Time{}, false
	default:
		return time.Time{}, time.Time{}, false
	}
}

func equalityValue(value any) any {
	switch value := value.(type) {
	case RelationValue:
		return value.ID
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	default:
		return value
	}
}
