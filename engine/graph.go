package engine

import (
	"context"
	"fmt"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
)

func (core Core) processGraph(
	ctx context.Context,
	modelSchema schema.ModelSchema,
	spec VisualizationSpec,
) ItemResult {
	levels := resolveGroupBy(modelSchema, spec.DataSource.GroupBy)
	if len(levels) == 0 {
		return errorResult("graph visualization requires at least one groupBy field")
	}
	if len(levels) > 2 {
		// Charts render at most a category axis and a series split
		levels = levels[:2]
	}

	measures := graphMeasures(spec.GraphOptions)
	storeMeasures := make([]db.Measure, len(measures))
	for i, measure := range measures {
		storeMeasures[i] = db.Measure{Field: measure.Field, Aggregation: measure.Aggregation}
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

	if len(levels) == 1 {
		return ItemResult{Data: singleSeriesPoints(levels[0], measures, groups)}
	}
	return ItemResult{Data: pivotedSeriesPoints(levels[0], measures, groups)}
}

// graphMeasures resolves the measures to compute, falling back to a record
// count when the request declares none, and defaulting aggregation-less
// measures to sum.
func graphMeasures(options *GraphOptions) []GraphMeasure {
	if options == nil || len(options.Measures) == 0 {
		return []GraphMeasure{{Field: primaryKeyField, Aggregation: db.AggregationCount}}
	}

	measures := make([]GraphMeasure, 0, len(options.Measures))
	for _, measure := range options.Measures {
		if measure.Field == "" {
			continue
		}
		if !measure.Aggregation.IsValid() {
			measure.Aggregation = db.AggregationSum
		}
		measures = append(measures, measure)
	}
	if len(measures) == 0 {
		return []GraphMeasure{{Field: primaryKeyField, Aggregation: db.AggregationCount}}
	}
	return measures
}

func singleSeriesPoints(
	primary groupLevel,
	measures []GraphMeasure,
	groups []db.Group,
) []db.Record {
	points := make([]db.Record, 0, len(groups))
	for _, group := range groups {
		point := db.Record{primary.Field: group.Values[0].Label()}
		for _, measure := range measures {
			point[measure.Field] = measureValue(group, measure)
		}
		point[domainKey] = db.BuildGroupDomain(group.Values)
		points = append(points, point)
	}
	return points
}

// pivotedSeriesPoints turns two-level groups into one point per primary value,
// with each secondary value contributing '<measure>|<label>' keys. Drill-down
// domains stay at the primary level: a point spans all its secondary series.
func pivotedSeriesPoints(
	primary groupLevel,
	measures []GraphMeasure,
	groups []db.Group,
) []db.Record {
	points := make([]db.Record, 0, len(groups))
	pointsByKey := make(map[string]db.Record)

	for _, group := range groups {
		primaryValue := group.Values[0]
		key := db.CompositeKey(group.Values[:1])

		point, exists := pointsByKey[key]
		if !exists {
			point = db.Record{
				primary.Field: primaryValue.Label(),
				domainKey:     db.BuildGroupDomain(group.Values[:1]),
			}
			pointsByKey[key] = point
			points = append(points, point)
		}

		secondaryLabel := seriesLabel(group.Values[1])
		for _, measure := range measures {
			point[measure.Field+"|"+secondaryLabel] = measureValue(group, measure)
		}
	}

	return points
}

func measureValue(group db.Group, measure GraphMeasure) any {
	if measure.Aggregation == db.AggregationCount {
		return group.Count
	}
	if value, exists := group.Measures[measure.Field]; exists && value != nil {
		return value
	}
	return 0
}

func seriesLabel(value db.GroupValue) string {
	if label := value.Label(); label != nil {
		return fmt.Sprint(label)
	}
	return "none"
}
