// Package db defines the query vocabulary of the dashboard engine (filters,
// date intervals, aggregations and sort orders), and the RecordStore interface
// that data source backends implement. Backend implementations live in the
// clickhouse, elasticsearch and memory subpackages.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRawQueriesUnsupported is returned by record stores that cannot execute
	// free-form query text (everything except SQL-backed stores).
	ErrRawQueriesUnsupported = errors.New("record store does not support raw queries")

	// ErrGroupedQueriesUnsupported is returned by record stores that cannot run
	// grouped aggregation queries.
	ErrGroupedQueriesUnsupported = errors.New("record store does not support grouped queries")
)

// RecordStore is the data access boundary of the engine: given a model name
// and a filter, it returns or aggregates matching records. Implementations
// must treat numeric aggregations over zero matching records as 0, not an
// error.
type RecordStore interface {
	SearchRecords(
		ctx context.Context,
		model string,
		filter Filter,
		orderBy []Order,
		limit int,
		offset int,
	) ([]Record, error)

	CountRecords(ctx context.Context, model string, filter Filter) (int, error)

	AggregateField(
		ctx context.Context,
		model string,
		filter Filter,
		aggregation Aggregation,
		fieldName string,
	) (float64, error)

	// ReadGroups groups matching records by the given fields (in order, with
	// optional date bucketing) and computes the given measures per group.
	ReadGroups(
		ctx context.Context,
		model string,
		filter Filter,
		groupBy []GroupByField,
		measures []Measure,
		orderBy []Order,
	) ([]Group, error)

	// DistinctFieldValues returns the distinct values of the given field among
	// records matching the filter, in a deterministic order.
	DistinctFieldValues(
		ctx context.Context,
		model string,
		fieldName string,
		filter Filter,
	) ([]any, error)

	// FieldDateRange returns the smallest and largest non-null value of a
	// date/datetime field across the whole model. hasData is false when no
	// record has the field set.
	FieldDateRange(
		ctx context.Context,
		model string,
		fieldName string,
	) (min time.Time, max time.Time, hasData bool, err error)

	// RunRawQuery executes free-form read-only query text, returning column
	// names in result order along with the rows. Stores without a query
	// language return ErrRawQueriesUnsupported.
	RunRawQuery(ctx context.Context, query string) (columns []string, rows []Record, err error)
}

type Record map[string]any

// RelationValue is how record stores represent a reference to a record in
// another model: a stable identifier plus a human-readable name.
type RelationValue struct {
	ID          any    `json:"id"`
	DisplayName string `json:"display_name"`
}

type GroupByField struct {
	Field string
	// Zero when the field is not date-bucketed.
	Interval DateInterval
}

// Key is the field name with the interval suffix dashboards use ('date:month').
func (groupByField GroupByField) Key() string {
	if groupByField.Interval.IsValid() {
		return groupByField.Field + ":" + groupByField.Interval.String()
	}
	return groupByField.Field
}

type Measure struct {
	Field       string
	Aggregation Aggregation
}

type Order struct {
	Field     string
	SortOrder SortOrder
}

func (order Order) Descending() bool {
	return order.SortOrder == SortOrderDescending
}

// GroupValue is one grouped field's value in a result group. For date-bucketed
// fields, Value is the bucket's start time; for relation fields, a
// RelationValue; nil when the grouped field was unset on the underlying
// records.
type GroupValue struct {
	GroupByField
	Value any
}

// Label formats the value the way it appears in responses: bucket label for
// date buckets, display name for relations.
func (groupValue GroupValue) Label() any {
	switch value := groupValue.Value.(type) {
	case time.Time:
		if groupValue.Interval.IsValid() {
			return groupValue.Interval.BucketLabel(value)
		}
		return value.UTC().Format(time.RFC3339)
	case RelationValue:
		return value.DisplayName
	default:
		return groupValue.Value
	}
}

// Normalized reduces the value to a stable comparison key: relation values by
// identifier (not display label), date buckets by label. Returns ok=false for
// nil/unset values.
func (groupValue GroupValue) Normalized() (key string, ok bool) {
	switch value := groupValue.Value.(type) {
	case nil:
		return "", false
	case time.Time:
		if groupValue.Interval.IsValid() {
			return groupValue.Interval.BucketLabel(value), true
		}
		return value.UTC().Format(time.RFC3339), true
	case RelationValue:
		return fmt.Sprint(value.ID), true
	default:
		return fmt.Sprint(value), true
	}
}

// Group is one aggregated bucket of a grouped query: the grouped field values
// (one per group-by level, in query order), the computed measures keyed by
// field name, and the number of underlying records.
type Group struct {
	Values   []GroupValue
	Measures map[string]any
	Count    int
}

// CompositeKey builds the stable lookup key for this group's value
// combination, used to match actual groups against generated ones.
func CompositeKey(values []GroupValue) string {
	key := ""
	for i, value := range values {
		if i > 0 {
			key += "\x1f"
		}
		part, _ := value.Normalized()
		key += part
	}
	return key
}
