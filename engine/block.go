package engine

import (
	"context"

	"hermannm.dev/dashboard/db"
)

func (core Core) processBlock(ctx context.Context, spec VisualizationSpec) ItemResult {
	options := spec.BlockOptions
	if options == nil || options.Field == "" {
		return errorResult("block visualization requires block_options with a field")
	}

	aggregation := options.Aggregation
	if !aggregation.IsValid() {
		aggregation = db.AggregationSum
	}

	label := options.Label
	if label == "" {
		label = options.Field
	}

	filter := spec.DataSource.Domain

	var value any
	if aggregation == db.AggregationCount {
		count, err := core.store.CountRecords(ctx, spec.Model, filter)
		if err != nil {
			return errorResult(err.Error())
		}
		value = count
	} else {
		aggregated, err := core.store.AggregateField(
			ctx, spec.Model, filter, aggregation, options.Field,
		)
		if err != nil {
			return errorResult(err.Error())
		}
		value = aggregated
	}

	return ItemResult{
		Data: BlockResult{
			Value: value,
			Label: label,
			// A block has no grouping, so drilling down means applying the
			// caller's own filter again
			Domain: filter,
		},
	}
}
