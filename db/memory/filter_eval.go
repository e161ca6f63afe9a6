package memory

import (
	"fmt"
	"strings"
	"time"

	"hermannm.dev/dashboard/db"
)

func recordMatchesFilter(record db.Record, filter db.Filter) (bool, error) {
	for _, condition := range filter.Conditions {
		conditionMatches := false
		for _, term := range condition.Terms {
			matches, err := termMatches(record, term)
			if err != nil {
				return false, err
			}
			if matches {
				conditionMatches = true
				break
			}
		}
		if !conditionMatches {
			return false, nil
		}
	}
	return true, nil
}

func termMatches(record db.Record, term db.Term) (bool, error) {
	fieldValue := record[term.Field]

	switch term.Operator {
	case db.OperatorEquals:
		return valuesEqual(fieldValue, term.Value), nil
	case db.OperatorNotEquals:
		return !valuesEqual(fieldValue, term.Value), nil
	case db.OperatorGreaterThan, db.OperatorGreaterOrEqual, db.OperatorLessThan,
		db.OperatorLessOrEqual:
		return orderedComparison(fieldValue, term.Operator, term.Value), nil
	case db.OperatorLike:
		return likeMatch(fieldValue, term.Value, false), nil
	case db.OperatorILike:
		return likeMatch(fieldValue, term.Value, true), nil
	case db.OperatorIn, db.OperatorNotIn:
		candidates, isList := term.Value.([]any)
		if !isList {
			return false, fmt.Errorf("'%v' filter requires a list value", term.Operator)
		}
		found := false
		for _, candidate := range candidates {
			if valuesEqual(fieldValue, candidate) {
				found = true
				break
			}
		}
		if term.Operator == db.OperatorNotIn {
			return !found, nil
		}
		return found, nil
	default:
		return false, fmt.Errorf("unrecognized filter operator '%v'", term.Operator)
	}
}

func valuesEqual(fieldValue any, filterValue any) bool {
	if fieldValue == nil || filterValue == nil {
		return fieldValue == nil && filterValue == nil
	}

	// Relation fields compare by identifier, so both a bare id and a relation
	// value on the filter side match
	if relation, isRelation := fieldValue.(db.RelationValue); isRelation {
		if filterRelation, ok := filterValue.(db.RelationValue); ok {
			return fmt.Sprint(relation.ID) == fmt.Sprint(filterRelation.ID)
		}
		return fmt.Sprint(relation.ID) == fmt.Sprint(filterValue)
	}

	if fieldTime, isTime := fieldValue.(time.Time); isTime {
		dayStart, dayEnd, ok := filterTimeBounds(filterValue)
		if !ok {
			return false
		}
		return !fieldTime.Before(dayStart) && fieldTime.Before(dayEnd)
	}

	if fieldNumber, isNumber := numericValue(fieldValue); isNumber {
		filterNumber, ok := numericValue(filterValue)
		return ok && fieldNumber == filterNumber
	}

	return fmt.Sprint(fieldValue) == fmt.Sprint(filterValue)
}

func orderedComparison(fieldValue any, operator db.Operator, filterValue any) bool {
	if fieldTime, isTime := fieldValue.(time.Time); isTime {
		dayStart, dayEnd, ok := filterTimeBounds(filterValue)
		if !ok {
			return false
		}
		// Date-only filter values bound whole days inclusively, matching how
		// drill-down domains describe bucket ranges
		switch operator {
		case db.OperatorGreaterThan:
			return !fieldTime.Before(dayEnd)
		case db.OperatorGreaterOrEqual:
			return !fieldTime.Before(dayStart)
		case db.OperatorLessThan:
			return fieldTime.Before(dayStart)
		case db.OperatorLessOrEqual:
			return fieldTime.Before(dayEnd)
		}
		return false
	}

	comparison, ok := compareFieldValues(fieldValue, filterValue)
	if !ok {
		return false
	}
	switch operator {
	case db.OperatorGreaterThan:
		return comparison > 0
	case db.OperatorGreaterOrEqual:
		return comparison >= 0
	case db.OperatorLessThan:
		return comparison < 0
	case db.OperatorLessOrEqual:
		return comparison <= 0
	default:
		return false
	}
}

// filterTimeBounds parses a filter value compared against a datetime field
// into a half-open [start, end) interval: a full day for date-only strings,
// a single instant for timestamps.
func filterTimeBounds(filterValue any) (start time.Time, end time.Time, ok bool) {
	switch value := filterValue.(type) {
	case time.Time:
		return value, value.Add(time.Nanosecond), true
	case string:
		if date, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
			return date, date.AddDate(0, 0, 1), true
		}
		if timestamp, err := time.Parse(time.RFC3339, value); err == nil {
			return timestamp, timestamp.Add(time.Nanosecond), true
		}
		if start, end, ok := db.ParseDateLabel(value); ok {
			return start, end.AddDate(0, 0, 1), true
		}
		return time.Time{}, time.Time{}, false
	default:
		return time.Time{}, time.Time{}, false
	}
}

func compareFieldValues(value1 any, value2 any) (comparison int, ok bool) {
	if time1, isTime := value1.(time.Time); isTime {
		if time2, isTime := value2.(time.Time); isTime {
			return time1.Compare(time2), true
		}
		return 0, false
	}

	if number1, isNumber := numericValue(value1); isNumber {
		number2, isNumber := numericValue(value2)
		if !isNumber {
			return 0, false
		}
		switch {
		case number1 < number2:
			return -1, true
		case number1 > number2:
			return 1, true
		default:
			return 0, true
		}
	}

	if string1, isString := value1.(string); isString {
		if string2, isString := value2.(string); isString {
			return strings.Compare(string1, string2), true
		}
	}

	return 0, false
}

func numericValue(value any) (float64, bool) {
	switch number := value.(type) {
	case int:
		return float64(number), true
	case int32:
		return float64(number), true
	case int64:
		return float64(number), true
	case float32:
		return float64(number), true
	case float64:
		return number, true
	default:
		return 0, false
	}
}

// likeMatch implements SQL LIKE semantics with '%' wildcards. Patterns without
// wildcards match as substrings, which is how dashboard search filters use it.
func likeMatch(fieldValue any, pattern any, caseInsensitive bool) bool {
	text, isString := fieldValue.(string)
	if relation, isRelation := fieldValue.(db.RelationValue); isRelation {
		text, isString = relation.DisplayName, true
	}
	patternText, patternIsString := pattern.(string)
	if !isString || !patternIsString {
		return false
	}

	if caseInsensitive {
		text = strings.ToLower(text)
		patternText = strings.ToLower(patternText)
	}

	if !strings.Contains(patternText, "%") {
		return strings.Contains(text, patternText)
	}

	segments := strings.Split(patternText, "%")
	if first := segments[0]; first != "" && !strings.HasPrefix(text, first) {
		return false
	}
	if last := segments[len(segments)-1]; last != "" && !strings.HasSuffix(text, last) {
		return false
	}

	remaining := text
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		index := strings.Index(remaining, segment)
		if index < 0 {
			return false
		}
		remaining = remaining[index+len(segment):]
	}
	return true
}
