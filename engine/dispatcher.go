package engine

import (
	"context"
	"errors"
	"fmt"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/devlog/log"
)

func (core Core) ProcessDashboardRequest(
	ctx context.Context,
	specs []VisualizationSpec,
) DashboardResponse {
	response := make(DashboardResponse, len(specs))

	// Items run sequentially: later items may depend on side effects of raw
	// query execution, and error isolation stays simple
	for _, spec := range specs {
		if spec.ID == "" {
			// Intentionally skipped, not an error: dashboards under development
			// send partial batches
			continue
		}
		response[spec.ID] = core.processSpec(ctx, spec)
	}

	return response
}

func (core Core) processSpec(ctx context.Context, spec VisualizationSpec) (result ItemResult) {
	defer func() {
		if panicked := recover(); panicked != nil {
			log.Warnf("visualization '%s' panicked: %v", spec.ID, panicked)
			result = errorResult(fmt.Sprintf("internal error processing visualization: %v", panicked))
		}
	}()

	if spec.parseError != nil {
		return errorResult(fmt.Sprintf("invalid visualization spec: %v", spec.parseError))
	}

	if spec.Model == "" || !spec.Type.IsValid() {
		return errorResult("missing required parameters: type, model")
	}

	modelSchema, err := core.schemas.GetModelSchema(ctx, spec.Model)
	if err != nil {
		if errors.Is(err, schema.ErrModelNotFound) {
			return errorResult("model not found: " + spec.Model)
		}
		return errorResult(err.Error())
	}

	if spec.DataSource.SQLRequest != "" {
		return core.processRawQuery(ctx, spec)
	}

	switch spec.Type {
	case VisualizationTypeBlock:
		return core.processBlock(ctx, spec)
	case VisualizationTypeGraph:
		return core.processGraph(ctx, modelSchema, spec)
	case VisualizationTypeTable:
		return core.processTable(ctx, modelSchema, spec)
	default:
		return errorResult(fmt.Sprintf("unsupported visualization type: %v", spec.Type))
	}
}

// groupLevel is one resolved group-by level: the store-facing field/interval
// pair plus whether gap filling should generate missing values for it.
type groupLevel struct {
	db.GroupByField
	showEmpty bool
}

// resolveGroupBy translates the spec's groupBy list, dropping entries without
// a field and ignoring intervals on non-date fields (with a warning, not an
// error).
func resolveGroupBy(modelSchema schema.ModelSchema, groupBy []GroupBy) []groupLevel {
	levels := make([]groupLevel, 0, len(groupBy))
	for _, entry := range groupBy {
		if entry.Field == "" {
			continue
		}

		interval := entry.Interval
		if interval.IsValid() {
			if field, exists := modelSchema.Field(entry.Field); exists && !field.Type.IsDate() {
				log.Warnf(
					"ignoring '%v' interval on non-date field '%s' in model '%s'",
					interval, entry.Field, modelSchema.Model,
				)
				interval = 0
			}
		}

		levels = append(levels, groupLevel{
			GroupByField: db.GroupByField{Field: entry.Field, Interval: interval},
			showEmpty:    entry.ShowEmpty,
		})
	}
	return levels
}

func storeGroupBy(levels []groupLevel) []db.GroupByField {
	fields := make([]db.GroupByField, len(levels))
	for i, level := range levels {
		fields[i] = level.GroupByField
	}
	return fields
}

// groupedOrder validates orderBy against a grouped query: only grouped fields
// and aggregated measure fields can order grouped results.
func groupedOrder(
	orderBy OrderByList,
	groupBy []db.GroupByField,
	measures []db.Measure,
) ([]db.Order, error) {
	orders := make([]db.Order, 0, len(orderBy))

orderLoop:
	for _, entry := range orderBy {
		if entry.Field == "" {
			continue
		}
		for _, level := range groupBy {
			if level.Field == entry.Field {
				orders = append(
					orders, db.Order{Field: entry.Field, SortOrder: entry.sortOrder()},
				)
				continue orderLoop
			}
		}
		for _, measure := range measures {
			if measure.Field == entry.Field {
				orders = append(
					orders, db.Order{Field: entry.Field, SortOrder: entry.sortOrder()},
				)
				continue orderLoop
			}
		}
		return nil, fmt.Errorf(
			"cannot order grouped results by '%s': not a grouped field or measure", entry.Field,
		)
	}

	return orders, nil
}

func plainOrder(orderBy OrderByList) []db.Order {
	orders := make([]db.Order, 0, len(orderBy))
	for _, entry := range orderBy {
		if entry.Field == "" {
			continue
		}
		orders = append(orders, db.Order{Field: entry.Field, SortOrder: entry.sortOrder()})
	}
	return orders
}
