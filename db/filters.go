package db

import (
	"encoding/json"
	"errors"
	"fmt"

	"hermannm.dev/enumnames"
)

type Operator uint8

const (
	OperatorEquals Operator = iota + 1
	OperatorNotEquals
	OperatorGreaterThan
	OperatorGreaterOrEqual
	OperatorLessThan
	OperatorLessOrEqual
	OperatorLike
	OperatorILike
	OperatorIn
	OperatorNotIn
)

var operatorNames = enumnames.NewMap(map[Operator]string{
	OperatorEquals:         "=",
	OperatorNotEquals:      "!=",
	OperatorGreaterThan:    ">",
	OperatorGreaterOrEqual: ">=",
	OperatorLessThan:       "<",
	OperatorLessOrEqual:    "<=",
	OperatorLike:           "like",
	OperatorILike:          "ilike",
	OperatorIn:             "in",
	OperatorNotIn:          "not in",
})

func (operator Operator) IsValid() bool {
	return operatorNames.ContainsEnumValue(operator)
}

func (operator Operator) String() string {
	return operatorNames.GetNameOrFallback(operator, "INVALID_OPERATOR")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorNames.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorNames.UnmarshalFromNameJSON(bytes, operator)
}

// Term is a single [field, operator, value] constraint.
type Term struct {
	Field    string
	Operator Operator
	Value    any
}

// Condition is one or more terms combined with OR. Drill-down domains built by
// this engine only ever produce single-term conditions.
type Condition struct {
	Terms []Term
}

// Filter is an ordered AND-combination of conditions, selecting the records
// for which every condition holds. The zero value is the empty filter, which
// matches all records; callers must not conflate it with "no match".
//
// The JSON form is the wire format dashboards send: an array of
// [field, operator, value] triples, optionally prefixed with "|" tokens that
// combine the two following elements into one OR condition ("&" is accepted as
// a no-op separator).
type Filter struct {
	Conditions []Condition
}

func NewFilter(terms ...Term) Filter {
	conditions := make([]Condition, 0, len(terms))
	for _, term := range terms {
		conditions = append(conditions, Condition{Terms: []Term{term}})
	}
	return Filter{Conditions: conditions}
}

func (filter Filter) IsEmpty() bool {
	return len(filter.Conditions) == 0
}

// And returns a filter matching records that satisfy both filters.
func (filter Filter) And(other Filter) Filter {
	combined := make([]Condition, 0, len(filter.Conditions)+len(other.Conditions))
	combined = append(combined, filter.Conditions...)
	combined = append(combined, other.Conditions...)
	return Filter{Conditions: combined}
}

func (filter Filter) WithTerm(field string, operator Operator, value any) Filter {
	return filter.And(NewFilter(Term{Field: field, Operator: operator, Value: value}))
}

func (term Term) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{term.Field, term.Operator, term.Value})
}

func (term *Term) UnmarshalJSON(bytes []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(bytes, &elements); err != nil {
		return err
	}
	if len(elements) != 3 {
		return fmt.Errorf("filter term must have 3 elements, got %d", len(elements))
	}

	if err := json.Unmarshal(elements[0], &term.Field); err != nil {
		return errors.New("filter term field must be a string")
	}
	if err := json.Unmarshal(elements[1], &term.Operator); err != nil {
		return fmt.Errorf("unrecognized filter operator %s", elements[1])
	}
	if err := json.Unmarshal(elements[2], &term.Value); err != nil {
		return err
	}
	return nil
}

func (filter Filter) MarshalJSON() ([]byte, error) {
	elements := make([]any, 0, len(filter.Conditions))
	for _, condition := range filter.Conditions {
		// Prefix notation: n OR-ed terms need n-1 '|' tokens
		for i := 1; i < len(condition.Terms); i++ {
			elements = append(elements, "|")
		}
		for _, term := range condition.Terms {
			elements = append(elements, term)
		}
	}
	return json.Marshal(elements)
}

func (filter *Filter) UnmarshalJSON(bytes []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(bytes, &elements); err != nil {
		return errors.New("filter must be an array of [field, operator, value] terms")
	}

	filter.Conditions = nil
	// Number of terms still owed to the OR condition currently being collected;
	// each '|' prefix token owes one more operand.
	owedOrTerms := 0

	for _, element := range elements {
		var token string
		if err := json.Unmarshal(element, &token); err == nil {
			switch token {
			case "|":
				if owedOrTerms > 0 {
					owedOrTerms++
				} else {
					filter.Conditions = append(filter.Conditions, Condition{})
					owedOrTerms = 2
				}
				continue
			case "&":
				continue
			default:
				return fmt.Errorf("unsupported logical operator '%s' in filter", token)
			}
		}

		var term Term
		if err := json.Unmarshal(element, &term); err != nil {
			return err
		}

		if owedOrTerms > 0 {
			lastIndex := len(filter.Conditions) - 1
			filter.Conditions[lastIndex].Terms = append(filter.Conditions[lastIndex].Terms, term)
			owedOrTerms--
		} else {
			filter.Conditions = append(filter.Conditions, Condition{Terms: []Term{term}})
		}
	}

	if owedOrTerms > 0 {
		return errors.New("filter ends with incomplete '|' condition")
	}
	return nil
}
