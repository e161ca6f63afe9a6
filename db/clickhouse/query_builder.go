package clickhouse

import (
	"fmt"
	"strconv"
	"strings"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

type QueryBuilder struct {
	strings.Builder
	args []any
}

func (builder *QueryBuilder) WriteInt(i int) {
	builder.WriteString(strconv.Itoa(i))
}

// Must only be called after calling ValidateIdentifier/ValidateIdentifiers on the given identifier.
func (builder *QueryBuilder) WriteIdentifier(identifier string) {
	builder.WriteRune('`')
	builder.WriteString(identifier)
	builder.WriteRune('`')
}

func (builder *QueryBuilder) WriteArg(arg any) {
	builder.WriteRune('?')
	builder.args = append(builder.args, arg)
}

func ValidateIdentifier(identifier string) error {
	if strings.ContainsRune(identifier, '`') {
		return fmt.Errorf("'%s' contains `, which is incompatible with database", identifier)
	}

	return nil
}

func ValidateIdentifiers(identifiers ...string) error {
	for _, identifier := range identifiers {
		if err := ValidateIdentifier(identifier); err != nil {
			return err
		}
	}

	return nil
}

// See https://clickhouse.com/docs/en/sql-reference/statements/select/order-by
var clickhouseSortOrders = enumnames.NewMap(map[db.SortOrder]string{
	db.SortOrderAscending:  "ASC",
	db.SortOrderDescending: "DESC",
})

func (builder *QueryBuilder) WriteSortOrder(sortOrder db.SortOrder) bool {
	if !clickhouseSortOrders.ContainsEnumValue(sortOrder) {
		return false
	}
	builder.WriteString(clickhouseSortOrders.GetNameOrFallback(sortOrder, "ASC"))
	return true
}

// Date bucketing functions, one per interval.
// See https://clickhouse.com/docs/en/sql-reference/functions/date-time-functions
var clickhouseBucketFunctions = map[db.DateInterval]string{
	db.DateIntervalDay:     "toDate",
	db.DateIntervalWeek:    "toMonday",
	db.DateIntervalMonth:   "toStartOfMonth",
	db.DateIntervalQuarter: "toStartOfQuarter",
	db.DateIntervalYear:    "toStartOfYear",
}

// WriteGroupExpression writes the SELECT/GROUP BY expression for one grouped
// field, bucketing date fields by their interval.
func (builder *QueryBuilder) WriteGroupExpression(groupByField db.GroupByField) error {
	if err := ValidateIdentifier(groupByField.Field); err != nil {
		return err
	}

	bucketFunction, bucketed := clickhouseBucketFunctions[groupByField.Interval]
	if !bucketed {
		builder.WriteIdentifier(groupByField.Field)
		return nil
	}

	builder.WriteString(bucketFunction)
	builder.WriteRune('(')
	builder.WriteIdentifier(groupByField.Field)
	builder.WriteRune(')')
	return nil
}

// WriteAggregation writes an aggregation expression, coerced to Float64 so
// results scan uniformly regardless of the column's integer width.
func (builder *QueryBuilder) WriteAggregation(
	aggregation db.Aggregation,
	fieldName string,
) error {
	if err := ValidateIdentifier(fieldName); err != nil {
		return err
	}

	builder.WriteString("toFloat64(")
	switch aggregation {
	case db.AggregationCount:
		builder.WriteString("count()")
	case db.AggregationCountDistinct:
		builder.WriteString("count(DISTINCT ")
		builder.WriteIdentifier(fieldName)
		builder.WriteRune(')')
	case db.AggregationSum:
		builder.WriteString("sum(")
		builder.WriteIdentifier(fieldName)
		builder.WriteRune(')')
	case db.AggregationAverage:
		builder.WriteString("avg(")
		builder.WriteIdentifier(fieldName)
		builder.WriteRune(')')
	case db.AggregationMin:
		builder.WriteString("min(")
		builder.WriteIdentifier(fieldName)
		builder.WriteRune(')')
	case db.AggregationMax:
		builder.WriteString("max(")
		builder.WriteIdentifier(fieldName)
		builder.WriteRune(')')
	default:
		return fmt.Errorf("unrecognized aggregation '%v'", aggregation)
	}
	builder.WriteRune(')')
	return nil
}

// WriteFilter writes a WHERE clause for the given filter, with values bound as
// query arguments. Writes nothing for the empty filter.
func (builder *QueryBuilder) WriteFilter(filter db.Filter) error {
	if filter.IsEmpty() {
		return nil
	}

	builder.WriteString(" WHERE ")
	for i, condition := range filter.Conditions {
		if i > 0 {
			builder.WriteString(" AND ")
		}

		builder.WriteRune('(')
		for j, term := range condition.Terms {
			if j > 0 {
				builder.WriteString(" OR ")
			}
			if err := builder.writeTerm(term); err != nil {
				return wrap.Errorf(err, "invalid filter term for field '%s'", term.Field)
			}
		}
		builder.WriteRune(')')
	}
	return nil
}

func (builder *QueryBuilder) writeTerm(term db.Term) error {
	if err := ValidateIdentifier(term.Field); err != nil {
		return err
	}

	builder.WriteIdentifier(term.Field)
	switch term.Operator {
	case db.OperatorEquals:
		builder.WriteString(" = ")
		builder.WriteArg(term.Value)
	case db.OperatorNotEquals:
		builder.WriteString(" != ")
		builder.WriteArg(term.Value)
	case db.OperatorGreaterThan:
		builder.WriteString(" > ")
		builder.WriteArg(term.Value)
	case db.OperatorGreaterOrEqual:
		builder.WriteString(" >= ")
		builder.WriteArg(term.Value)
	case db.OperatorLessThan:
		builder.WriteString(" < ")
		builder.WriteArg(term.Value)
	case db.OperatorLessOrEqual:
		builder.WriteString(" <= ")
		builder.WriteArg(term.Value)
	case db.OperatorLike:
		builder.WriteString(" LIKE ")
		builder.WriteArg(likePattern(term.Value))
	case db.OperatorILike:
		builder.WriteString(" ILIKE ")
		builder.WriteArg(likePattern(term.Value))
	case db.OperatorIn:
		builder.WriteString(" IN ")
		builder.WriteArg(term.Value)
	case db.OperatorNotIn:
		builder.WriteString(" NOT IN ")
		builder.WriteArg(term.Value)
	default:
		return fmt.Errorf("unrecognized operator '%v'", term.Operator)
	}
	return nil
}

// likePattern wraps plain search text in wildcards, leaving patterns that
// already contain wildcards alone.
func likePattern(value any) string {
	pattern := fmt.Sprint(value)
	if strings.ContainsRune(pattern, '%') {
		return pattern
	}
	return "%" + pattern + "%"
}
