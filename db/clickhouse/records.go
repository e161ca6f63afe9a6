package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

func (clickhouse ClickHouseDB) SearchRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
	orderBy []db.Order,
	limit int,
	offset int,
) ([]db.Record, error) {
	if err := ValidateIdentifier(model); err != nil {
		return nil, wrap.Error(err, "invalid model name")
	}

	var query QueryBuilder
	query.WriteString("SELECT * FROM ")
	query.WriteIdentifier(model)
	if err := query.WriteFilter(filter); err != nil {
		return nil, err
	}
	if err := query.WriteOrderBy(orderBy); err != nil {
		return nil, err
	}
	query.WriteString(" LIMIT ")
	query.WriteInt(limit)
	query.WriteString(" OFFSET ")
	query.WriteInt(offset)

	rows, err := clickhouse.conn.Query(ctx, query.String(), query.args...)
	if err != nil {
		return nil, wrap.Error(err, "record search query failed")
	}
	defer rows.Close()

	_, records, err := scanRowsToRecords(rows)
	return records, err
}

func (clickhouse ClickHouseDB) CountRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
) (int, error) {
	if err := ValidateIdentifier(model); err != nil {
		return 0, wrap.Error(err, "invalid model name")
	}

	var query QueryBuilder
	query.WriteString("SELECT count() FROM ")
	query.WriteIdentifier(model)
	if err := query.WriteFilter(filter); err != nil {
		return 0, err
	}

	var count uint64
	if err := clickhouse.conn.QueryRow(ctx, query.String(), query.args...).Scan(&count); err != nil {
		return 0, wrap.Error(err, "record count query failed")
	}
	return int(count), nil
}

func (clickhouse ClickHouseDB) AggregateField(
	ctx context.Context,
	model string,
	filter db.Filter,
	aggregation db.Aggregation,
	fieldName string,
) (float64, error) {
	if err := ValidateIdentifier(model); err != nil {
		return 0, wrap.Error(err, "invalid model name")
	}

	var query QueryBuilder
	query.WriteString("SELECT ")
	if err := query.WriteAggregation(aggregation, fieldName); err != nil {
		return 0, err
	}
	query.WriteString(" FROM ")
	query.WriteIdentifier(model)
	if err := query.WriteFilter(filter); err != nil {
		return 0, err
	}

	var result float64
	if err := clickhouse.conn.QueryRow(ctx, query.String(), query.args...).Scan(&result); err != nil {
		return 0, wrap.Error(err, "aggregation query failed")
	}
	if math.IsNaN(result) {
		// avg over zero rows
		return 0, nil
	}
	return result, nil
}

func (clickhouse ClickHouseDB) ReadGroups(
	ctx context.Context,
	model string,
	filter db.Filter,
	groupBy []db.GroupByField,
	measures []db.Measure,
	orderBy []db.Order,
) ([]db.Group, error) {
	if err := ValidateIdentifier(model); err != nil {
		return nil, wrap.Error(err, "invalid model name")
	}
	if len(groupBy) == 0 {
		return nil, wrap.Error(db.ErrGroupedQueriesUnsupported, "grouped query without group fields")
	}

	var query QueryBuilder
	query.WriteString("SELECT ")
	for i, groupByField := range groupBy {
		if i > 0 {
			query.WriteString(", ")
		}
		if err := query.WriteGroupExpression(groupByField); err != nil {
			return nil, wrap.Errorf(err, "invalid group field '%s'", groupByField.Field)
		}
		fmt.Fprintf(&query, " AS g%d", i)
	}
	for i, measure := range measures {
		query.WriteString(", ")
		if err := query.WriteAggregation(measure.Aggregation, measure.Field); err != nil {
			return nil, wrap.Errorf(err, "invalid measure field '%s'", measure.Field)
		}
		fmt.Fprintf(&query, " AS m%d", i)
	}
	query.WriteString(", count() AS group_count FROM ")
	query.WriteIdentifier(model)
	if err := query.WriteFilter(filter); err != nil {
		return nil, err
	}
	query.WriteString(" GROUP BY ")
	for i := range groupBy {
		if i > 0 {
			query.WriteString(", ")
		}
		fmt.Fprintf(&query, "g%d", i)
	}
	if err := writeGroupedOrderBy(&query, groupBy, measures, orderBy); err != nil {
		return nil, err
	}

	queryString := query.String()
	log.Debug("generated clickhouse query", slog.String("query", queryString))

	rows, err := clickhouse.conn.Query(ctx, queryString, query.args...)
	if err != nil {
		return nil, wrap.Error(err, "grouped query failed")
	}
	defer rows.Close()

	_, records, err := scanRowsToRecords(rows)
	if err != nil {
		return nil, err
	}

	groups := make([]db.Group, 0, len(records))
	for _, record := range records {
		group := db.Group{
			Values:   make([]db.GroupValue, len(groupBy)),
			Measures: make(map[string]any, len(measures)),
		}
		for i, groupByField := range groupBy {
			group.Values[i] = db.GroupValue{
				GroupByField: groupByField,
				Value:        record[fmt.Sprintf("g%d", i)],
			}
		}
		for i, measure := range measures {
			value := record[fmt.Sprintf("m%d", i)]
			if number, isNumber := value.(float64); isNumber && math.IsNaN(number) {
				value = float64(0)
			}
			group.Measures[measure.Field] = value
		}
		if count, isCount := record["group_count"].(uint64); isCount {
			group.Count = int(count)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (clickhouse ClickHouseDB) DistinctFieldValues(
	ctx context.Context,
	model string,
	fieldName string,
	filter db.Filter,
) ([]any, error) {
	if err := ValidateIdentifiers(model, fieldName); err != nil {
		return nil, wrap.Error(err, "invalid model/field name")
	}

	var query QueryBuilder
	query.WriteString("SELECT DISTINCT ")
	query.WriteIdentifier(fieldName)
	query.WriteString(" FROM ")
	query.WriteIdentifier(model)
	if err := query.WriteFilter(filter); err != nil {
		return nil, err
	}
	query.WriteString(" ORDER BY ")
	query.WriteIdentifier(fieldName)

	rows, err := clickhouse.conn.Query(ctx, query.String(), query.args...)
	if err != nil {
		return nil, wrap.Error(err, "distinct values query failed")
	}
	defer rows.Close()

	columns, records, err := scanRowsToRecords(rows)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(records))
	for _, record := range records {
		values = append(values, record[columns[0]])
	}
	return values, nil
}

func (clickhouse ClickHouseDB) FieldDateRange(
	ctx context.Context,
	model string,
	fieldName string,
) (min time.Time, max time.Time, hasData bool, err error) {
	if err := ValidateIdentifiers(model, fieldName); err != nil {
		return time.Time{}, time.Time{}, false, wrap.Error(err, "invalid model/field name")
	}

	var query QueryBuilder
	query.WriteString("SELECT toDateTime(min(")
	query.WriteIdentifier(fieldName)
	query.WriteString(")), toDateTime(max(")
	query.WriteIdentifier(fieldName)
	query.WriteString(")), count(")
	query.WriteIdentifier(fieldName)
	query.WriteString(") FROM ")
	query.WriteIdentifier(model)

	var count uint64
	if err := clickhouse.conn.QueryRow(ctx, query.String()).Scan(&min, &max, &count); err != nil {
		return time.Time{}, time.Time{}, false, wrap.Error(err, "date range query failed")
	}
	return min, max, count > 0, nil
}

func (clickhouse ClickHouseDB) RunRawQuery(
	ctx context.Context,
	rawQuery string,
) ([]string, []db.Record, error) {
	rows, err := clickhouse.conn.Query(ctx, rawQuery)
	if err != nil {
		return nil, nil, wrap.Error(err, "query failed")
	}
	defer rows.Close()

	return scanRowsToRecords(rows)
}

func (builder *QueryBuilder) WriteOrderBy(orderBy []db.Order) error {
	for i, order := range orderBy {
		if err := ValidateIdentifier(order.Field); err != nil {
			return wrap.Error(err, "invalid order field")
		}

		if i == 0 {
			builder.WriteString(" ORDER BY ")
		} else {
			builder.WriteString(", ")
		}
		builder.WriteIdentifier(order.Field)
		builder.WriteRune(' ')
		if ok := builder.WriteSortOrder(order.SortOrder); !ok {
			return fmt.Errorf("invalid sort order for field '%s'", order.Field)
		}
	}
	return nil
}

// writeGroupedOrderBy maps order fields to their group/measure aliases.
// Without explicit ordering, groups come out in group value order so date
// series stay chronological.
func writeGroupedOrderBy(
	query *QueryBuilder,
	groupBy []db.GroupByField,
	measures []db.Measure,
	orderBy []db.Order,
) error {
	if len(orderBy) == 0 {
		query.WriteString(" ORDER BY ")
		for i := range groupBy {
			if i > 0 {
				query.WriteString(", ")
			}
			fmt.Fprintf(query, "g%d", i)
		}
		return nil
	}

	query.WriteString(" ORDER BY ")
	for i, order := range orderBy {
		if i > 0 {
			query.WriteString(", ")
		}

		alias := ""
		for j, groupByField := range groupBy {
			if groupByField.Field == order.Field {
				alias = fmt.Sprintf("g%d", j)
				break
			}
		}
		if alias == "" {
			for j, measure := range measures {
				if measure.Field == order.Field {
					alias = fmt.Sprintf("m%d", j)
					break
				}
			}
		}
		if alias == "" {
			return fmt.Errorf("cannot order grouped query by field '%s'", order.Field)
		}

		query.WriteString(alias)
		query.WriteRune(' ')
		if ok := query.WriteSortOrder(order.SortOrder); !ok {
			return fmt.Errorf("invalid sort order for field '%s'", order.Field)
		}
	}
	return nil
}
