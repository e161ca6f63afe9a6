package engine

import (
	"context"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
)

func (core Core) processTable(
	ctx context.Context,
	modelSchema schema.ModelSchema,
	spec VisualizationSpec,
) ItemResult {
	limit := defaultTableLimit
	offset := 0
	var columns []TableColumn
	if options := spec.TableOptions; options != nil {
		if options.Limit > 0 {
			limit = options.Limit
		}
		if options.Offset > 0 {
			offset = options.Offset
		}
		columns = options.Columns
	}

	levels := resolveGroupBy(modelSchema, spec.DataSource.GroupBy)
	if len(levels) == 0 {
		return core.recordTable(ctx, spec, columns, limit, offset)
	}
	return core.groupedTable(ctx, modelSchema, spec, levels, columns, limit, offset)
}

// recordTable lists plain records: one row per record, each with a drill-down
// domain pinning its primary key.
func (core Core) recordTable(
	ctx context.Context,
	spec VisualizationSpec,
	columns []TableColumn,
	limit int,
	offset int,
) ItemResult {
	filter := spec.DataSource.Domain

	total, err := core.store.CountRecords(ctx, spec.Model, filter)
	if err != nil {
		return errorResult(err.Error())
	}

	records, err := core.store.SearchRecords(
		ctx, spec.Model, filter, plainOrder(spec.DataSource.OrderBy), limit, offset,
	)
	if err != nil {
		return errorResult(err.Error())
	}

	rows := make([]db.Record, 0, len(records))
	for _, record := range records {
		row := projectRecord(record, columns)
		if id, exists := record[primaryKeyField]; exists {
			row[domainKey] = db.NewFilter(db.Term{
				Field:    primaryKeyField,
				Operator: db.OperatorEquals,
				Value:    id,
			})
		}
		rows = append(rows, row)
	}

	return ItemResult{Data: rows, Metadata: tableMetadata(limit, offset, total)}
}

// groupedTable aggregates records into one row per group, paginated after gap
// filling so generated empty groups count towards the total.
func (core Core) groupedTable(
	ctx context.Context,
	modelSchema schema.ModelSchema,
	spec VisualizationSpec,
	levels []groupLevel,
	columns []TableColumn,
	limit int,
	offset int,
) ItemResult {
	storeMeasures := make([]db.Measure, 0, len(columns))
	for _, column := range columns {
		if column.Field == "" || !column.Aggregation.IsValid() {
			continue
		}
		if column.Aggregation == db.AggregationCount {
			// Group.Count covers this without a store-side measure
			continue
		}
		storeMeasures = append(
			storeMeasures, db.Measure{Field: column.Field, Aggregation: column.Aggregation},
		)
	}

	groupBy := storeGroupBy(levels)
	orderBy, err := groupedOrder(spec.DataSource.OrderBy, groupBy, storeMeasures)
	if err != nil {
		return errorResult(err.Error())
	}

	groups, err := core.store.ReadGroups(
		ctx, spec.Model, spec.DataSource.Domain, groupBy, storeMeasures, orderBy,
	)
	if err != nil {
		return errorResult(err.Error())
	}

	groups, err = core.fillGroupGaps(
		ctx, modelSchema, spec.Model, spec.DataSource.Domain, levels, storeMeasures, groups,
	)
	if err != nil {
		return errorResult(err.Error())
	}

	total := len(groups)
	groups = pageOfGroups(groups, limit, offset)

	rows := make([]db.Record, 0, len(groups))
	for _, group := range groups {
		row := db.Record{}
		for i, level := range levels {
			label := group.Values[i].Label()
			row[level.Field] = label
			if level.Interval.IsValid() {
				// Dashboards address bucketed columns by 'field:interval' too
				row[level.Key()] = label
			}
		}
		for _, column := range columns {
			if column.Field == "" || !column.Aggregation.IsValid() {
				continue
			}
			if column.Aggregation == db.AggregationCount {
				row[column.Field] = group.Count
			} else if value, exists := group.Measures[column.Field]; exists && value != nil {
				row[column.Field] = value
			} else {
				row[column.Field] = 0
			}
		}
		row[domainKey] = db.BuildGroupDomain(group.Values)
		rows = append(rows, row)
	}

	return ItemResult{Data: rows, Metadata: tableMetadata(limit, offset, total)}
}

// projectRecord keeps only the requested columns, or the whole record when no
// columns were requested. Relations are shown by display name.
func projectRecord(record db.Record, columns []TableColumn) db.Record {
	row := db.Record{}
	if len(columns) == 0 {
		for field, value := range record {
			row[field] = displayValue(value)
		}
		return row
	}

	for _, column := range columns {
		if column.Field == "" {
			continue
		}
		row[column.Field] = displayValue(record[column.Field])
	}
	return row
}

func displayValue(value any) any {
	if relation, isRelation := value.(db.RelationValue); isRelation {
		return relation.DisplayName
	}
	return value
}

func pageOfGroups(groups []db.Group, limit int, offset int) []db.Group {
	if offset >= len(groups) {
		return nil
	}
	groups = groups[offset:]
	if limit < len(groups) {
		groups = groups[:limit]
	}
	return groups
}

func tableMetadata(limit int, offset int, total int) *TableMetadata {
	return &TableMetadata{Page: offset/limit + 1, Limit: limit, TotalCount: total}
}
