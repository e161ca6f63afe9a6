package db

import "hermannm.dev/enumnames"

type Aggregation uint8

const (
	AggregationCount Aggregation = iota + 1
	AggregationCountDistinct
	AggregationSum
	AggregationAverage
	AggregationMin
	AggregationMax
)

var aggregationNames = enumnames.NewMap(map[Aggregation]string{
	AggregationCount:         "count",
	AggregationCountDistinct: "count_distinct",
	AggregationSum:           "sum",
	AggregationAverage:       "avg",
	AggregationMin:           "min",
	AggregationMax:           "max",
})

func (aggregation Aggregation) IsValid() bool {
	return aggregationNames.ContainsEnumValue(aggregation)
}

// Row-wise aggregations count records rather than aggregating a numeric field.
func (aggregation Aggregation) IsRowWise() bool {
	return aggregation == AggregationCount || aggregation == AggregationCountDistinct
}

func (aggregation Aggregation) String() string {
	return aggregationNames.GetNameOrFallback(aggregation, "INVALID_AGGREGATION")
}

func (aggregation Aggregation) MarshalJSON() ([]byte, error) {
	return aggregationNames.MarshalToNameJSON(aggregation)
}

func (aggregation *Aggregation) UnmarshalJSON(bytes []byte) error {
	return aggregationNames.UnmarshalFromNameJSON(bytes, aggregation)
}
