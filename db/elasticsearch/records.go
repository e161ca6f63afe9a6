package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"hermannm.dev/dashboard/db"
	"hermannm.dev/wrap"
)

func (elastic ElasticsearchDB) SearchRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
	orderBy []db.Order,
	limit int,
	offset int,
) ([]db.Record, error) {
	query, err := filterToElasticQuery(filter)
	if err != nil {
		return nil, err
	}

	search := elastic.client.Search().Index(model).From(offset).Size(limit)
	if query != nil {
		search = search.Query(query)
	}
	for _, order := range orderBy {
		elasticOrder, ok := sortOrderToElastic(order.SortOrder)
		if !ok {
			return nil, fmt.Errorf("invalid sort order for field '%s'", order.Field)
		}
		search = search.Sort(types.SortOptions{
			SortOptions: map[string]types.FieldSort{order.Field: {Order: &elasticOrder}},
		})
	}

	response, err := search.Do(ctx)
	if err != nil {
		return nil, wrapElasticError(err, "record search request failed")
	}

	records := make([]db.Record, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		record := db.Record{}
		if err := json.Unmarshal(hit.Source_, &record); err != nil {
			return nil, wrap.Error(err, "failed to parse document from search response")
		}
		record["id"] = hit.Id_
		records = append(records, record)
	}
	return records, nil
}

func (elastic ElasticsearchDB) CountRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
) (int, error) {
	query, err := filterToElasticQuery(filter)
	if err != nil {
		return 0, err
	}

	count := elastic.client.Count().Index(model)
	if query != nil {
		count = count.Query(query)
	}

	response, err := count.Do(ctx)
	if err != nil {
		return 0, wrapElasticError(err, "record count request failed")
	}
	return int(response.Count), nil
}

func (elastic ElasticsearchDB) AggregateField(
	ctx context.Context,
	model string,
	filter db.Filter,
	aggregation db.Aggregation,
	fieldName string,
) (float64, error) {
	if aggregation == db.AggregationCount {
		count, err := elastic.CountRecords(ctx, model, filter)
		return float64(count), err
	}

	elasticAggregation, err := aggregationToElastic(aggregation, fieldName)
	if err != nil {
		return 0, err
	}

	query, err := filterToElasticQuery(filter)
	if err != nil {
		return 0, err
	}

	search := elastic.client.Search().Index(model).Size(0).
		Aggregations(map[string]types.Aggregations{"result": elasticAggregation})
	if query != nil {
		search = search.Query(query)
	}

	response, err := search.Do(ctx)
	if err != nil {
		return 0, wrapElasticError(err, "aggregation request failed")
	}

	value, _ := metricAggregateValue(response.Aggregations["result"])
	return value, nil
}

func aggregationToElastic(
	aggregation db.Aggregation,
	fieldName string,
) (types.Aggregations, error) {
	switch aggregation {
	case db.AggregationCountDistinct:
		return types.Aggregations{
			Cardinality: &types.CardinalityAggregation{Field: &fieldName},
		}, nil
	case db.AggregationSum:
		return types.Aggregations{Sum: &types.SumAggregation{Field: &fieldName}}, nil
	case db.AggregationAverage:
		return types.Aggregations{Avg: &types.AverageAggregation{Field: &fieldName}}, nil
	case db.AggregationMin:
		return types.Aggregations{Min: &types.MinAggregation{Field: &fieldName}}, nil
	case db.AggregationMax:
		return types.Aggregations{Max: &types.MaxAggregation{Field: &fieldName}}, nil
	default:
		return types.Aggregations{}, fmt.Errorf("unrecognized aggregation '%v'", aggregation)
	}
}

// metricAggregateValue reads the value of a single-metric aggregate. Typed
// aggregate structs vary by metric, but all share the {"value": ...} shape on
// the wire, so we go through JSON instead of switching on every struct type.
func metricAggregateValue(aggregate types.Aggregate) (value float64, hasValue bool) {
	if aggregate == nil {
		return 0, false
	}

	serialized, err := json.Marshal(aggregate)
	if err != nil {
		return 0, false
	}

	var metric struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(serialized, &metric); err != nil || metric.Value == nil {
		return 0, false
	}
	return *metric.Value, true
}

func (elastic ElasticsearchDB) ReadGroups(
	ctx context.Context,
	model string,
	filter db.Filter,
	groupBy []db.GroupByField,
	measures []db.Measure,
	orderBy []db.Order,
) ([]db.Group, error) {
	return nil, db.ErrGroupedQueriesUnsupported
}

func (elastic ElasticsearchDB) DistinctFieldValues(
	ctx context.Context,
	model string,
	fieldName string,
	filter db.Filter,
) ([]any, error) {
	query, err := filterToElasticQuery(filter)
	if err != nil {
		return nil, err
	}

	size := 1000
	search := elastic.client.Search().Index(model).Size(0).
		Aggregations(map[string]types.Aggregations{
			"values": {Terms: &types.TermsAggregation{Field: &fieldName, Size: &size}},
		})
	if query != nil {
		search = search.Query(query)
	}

	response, err := search.Do(ctx)
	if err != nil {
		return nil, wrapElasticError(err, "distinct values request failed")
	}

	serialized, err := json.Marshal(response.Aggregations["values"])
	if err != nil {
		return nil, wrap.Error(err, "failed to serialize terms aggregate")
	}

	var termsResult struct {
		Buckets []struct {
			Key any `json:"key"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(serialized, &termsResult); err != nil {
		return nil, wrap.Error(err, "failed to parse terms aggregate")
	}

	values := make([]any, 0, len(termsResult.Buckets))
	for _, bucket := range termsResult.Buckets {
		values = append(values, bucket.Key)
	}
	return values, nil
}

func (elastic ElasticsearchDB) FieldDateRange(
	ctx context.Context,
	model string,
	fieldName string,
) (min time.Time, max time.Time, hasData bool, err error) {
	response, err := elastic.client.Search().Index(model).Size(0).
		Aggregations(map[string]types.Aggregations{
			"min":   {Min: &types.MinAggregation{Field: &fieldName}},
			"max":   {Max: &types.MaxAggregation{Field: &fieldName}},
			"count": {ValueCount: &types.ValueCountAggregation{Field: &fieldName}},
		}).
		Do(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, false, wrapElasticError(err, "date range request failed")
	}

	count, _ := metricAggregateValue(response.Aggregations["count"])
	if count == 0 {
		return time.Time{}, time.Time{}, false, nil
	}

	// Date aggregates report epoch milliseconds
	minValue, hasMin := metricAggregateValue(response.Aggregations["min"])
	maxValue, hasMax := metricAggregateValue(response.Aggregations["max"])
	if !hasMin || !hasMax {
		return time.Time{}, time.Time{}, false, nil
	}

	return time.UnixMilli(int64(minValue)).UTC(), time.UnixMilli(int64(maxValue)).UTC(), true, nil
}

func (elastic ElasticsearchDB) RunRawQuery(
	ctx context.Context,
	query string,
) ([]string, []db.Record, error) {
	return nil, nil, db.ErrRawQueriesUnsupported
}

func sortOrderToElastic(order db.SortOrder) (sortorder.SortOrder, bool) {
	switch order {
	case db.SortOrderAscending:
		return sortorder.Asc, true
	case db.SortOrderDescending:
		return sortorder.Desc, true
	default:
		return sortorder.SortOrder{}, false
	}
}
