// Package memory provides an in-memory record store and schema provider.
// It is the reference implementation of the db.RecordStore contract, used by
// the engine's tests and by local development setups (DATABASE=memory).
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/wrap"
)

type MemoryDB struct {
	lock       sync.RWMutex
	models     map[string]*storedModel
	modelOrder []string
}

type storedModel struct {
	schema  schema.ModelSchema
	records []db.Record
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{models: make(map[string]*storedModel)}
}

// AddModel registers a model schema along with its records. Records without an
// 'id' field get a generated one.
func (memoryDB *MemoryDB) AddModel(modelSchema schema.ModelSchema, records []db.Record) {
	memoryDB.lock.Lock()
	defer memoryDB.lock.Unlock()

	stored := make([]db.Record, 0, len(records))
	for _, record := range records {
		if _, hasID := record["id"]; !hasID {
			record["id"] = uuid.NewString()
		}
		stored = append(stored, record)
	}

	if _, exists := memoryDB.models[modelSchema.Model]; !exists {
		memoryDB.modelOrder = append(memoryDB.modelOrder, modelSchema.Model)
	}
	memoryDB.models[modelSchema.Model] = &storedModel{schema: modelSchema, records: stored}
}

func (memoryDB *MemoryDB) ListModels(ctx context.Context) ([]schema.ModelInfo, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	models := make([]schema.ModelInfo, 0, len(memoryDB.modelOrder))
	for _, name := range memoryDB.modelOrder {
		model := memoryDB.models[name]
		if model.schema.Transient || schema.IsTechnicalModel(name) {
			continue
		}
		models = append(models, schema.ModelInfo{Name: model.schema.Name, Model: name})
	}
	return models, nil
}

func (memoryDB *MemoryDB) GetModelSchema(
	ctx context.Context,
	model string,
) (schema.ModelSchema, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	stored, exists := memoryDB.models[model]
	if !exists {
		return schema.ModelSchema{}, wrap.Errorf(schema.ErrModelNotFound, "'%s'", model)
	}
	return stored.schema, nil
}

func (memoryDB *MemoryDB) SearchRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
	orderBy []db.Order,
	limit int,
	offset int,
) ([]db.Record, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	matching, err := memoryDB.matchingRecords(model, filter)
	if err != nil {
		return nil, err
	}

	sortRecords(matching, orderBy)

	if offset >= len(matching) {
		return []db.Record{}, nil
	}
	matching = matching[offset:]
	if limit > 0 && limit < len(matching) {
		matching = matching[:limit]
	}

	// Copy, so callers can annotate rows without mutating stored records
	results := make([]db.Record, 0, len(matching))
	for _, record := range matching {
		copied := make(db.Record, len(record))
		for key, value := range record {
			copied[key] = value
		}
		results = append(results, copied)
	}
	return results, nil
}

func (memoryDB *MemoryDB) CountRecords(
	ctx context.Context,
	model string,
	filter db.Filter,
) (int, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	matching, err := memoryDB.matchingRecords(model, filter)
	if err != nil {
		return 0, err
	}
	return len(matching), nil
}

func (memoryDB *MemoryDB) AggregateField(
	ctx context.Context,
	model string,
	filter db.Filter,
	aggregation db.Aggregation,
	fieldName string,
) (float64, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	matching, err := memoryDB.matchingRecords(model, filter)
	if err != nil {
		return 0, err
	}

	return aggregateRecords(matching, aggregation, fieldName)
}

func (memoryDB *MemoryDB) ReadGroups(
	ctx context.Context,
	model string,
	filter db.Filter,
	groupBy []db.GroupByField,
	measures []db.Measure,
	orderBy []db.Order,
) ([]db.Group, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	matching, err := memoryDB.matchingRecords(model, filter)
	if err != nil {
		return nil, err
	}

	groupIndexes := make(map[string]int)
	groups := make([]db.Group, 0)
	recordsByGroup := make(map[string][]db.Record)

	for _, record := range matching {
		values := make([]db.GroupValue, 0, len(groupBy))
		for _, level := range groupBy {
			value := record[level.Field]
			if fieldTime, isTime := value.(time.Time); isTime && level.Interval.IsValid() {
				value = level.Interval.BucketStart(fieldTime)
			}
			values = append(values, db.GroupValue{GroupByField: level, Value: value})
		}

		key := db.CompositeKey(values)
		if _, exists := groupIndexes[key]; !exists {
			groupIndexes[key] = len(groups)
			groups = append(groups, db.Group{Values: values, Measures: make(map[string]any)})
		}
		recordsByGroup[key] = append(recordsByGroup[key], record)
	}

	for key, index := range groupIndexes {
		records := recordsByGroup[key]
		groups[index].Count = len(records)
		for _, measure := range measures {
			value, err := aggregateRecords(records, measure.Aggregation, measure.Field)
			if err != nil {
				return nil, err
			}
			groups[index].Measures[measure.Field] = value
		}
	}

	sortGroups(groups, groupBy, orderBy)
	return groups, nil
}

func (memoryDB *MemoryDB) DistinctFieldValues(
	ctx context.Context,
	model string,
	fieldName string,
	filter db.Filter,
) ([]any, error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	matching, err := memoryDB.matchingRecords(model, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	values := make([]any, 0)
	for _, record := range matching {
		value := record[fieldName]
		if value == nil {
			continue
		}
		key := normalizeValue(value)
		if !seen[key] {
			seen[key] = true
			values = append(values, value)
		}
	}

	slices.SortFunc(values, func(value1 any, value2 any) int {
		if comparison, ok := compareFieldValues(value1, value2); ok {
			return comparison
		}
		return strings.Compare(normalizeValue(value1), normalizeValue(value2))
	})
	return values, nil
}

func (memoryDB *MemoryDB) FieldDateRange(
	ctx context.Context,
	model string,
	fieldName string,
) (min time.Time, max time.Time, hasData bool, err error) {
	memoryDB.lock.RLock()
	defer memoryDB.lock.RUnlock()

	stored, exists := memoryDB.models[model]
	if !exists {
		return time.Time{}, time.Time{}, false, wrap.Errorf(schema.ErrModelNotFound, "'%s'", model)
	}

	for _, record := range stored.records {
		fieldTime, isTime := record[fieldName].(time.Time)
		if !isTime {
			continue
		}
		if !hasData || fieldTime.Before(min) {
			min = fieldTime
		}
		if !hasData || fieldTime.After(max) {
			max = fieldTime
		}
		hasData = true
	}
	return min, max, hasData, nil
}

func (memoryDB *MemoryDB) RunRawQuery(
	ctx context.Context,
	query string,
) ([]string, []db.Record, error) {
	return nil, nil, db.ErrRawQueriesUnsupported
}

func (memoryDB *MemoryDB) matchingRecords(model string, filter db.Filter) ([]db.Record, error) {
	stored, exists := memoryDB.models[model]
	if !exists {
		return nil, wrap.Errorf(schema.ErrModelNotFound, "'%s'", model)
	}

	matching := make([]db.Record, 0, len(stored.records))
	for _, record := range stored.records {
		matches, err := recordMatchesFilter(record, filter)
		if err != nil {
			return nil, err
		}
		if matches {
			matching = append(matching, record)
		}
	}
	return matching, nil
}

func aggregateRecords(
	records []db.Record,
	aggregation db.Aggregation,
	fieldName string,
) (float64, error) {
	// Row-wise aggregations count records and never touch numeric values
	if aggregation.IsRowWise() {
		if aggregation == db.AggregationCountDistinct {
			distinct := make(map[string]bool)
			for _, record := range records {
				if value := record[fieldName]; value != nil {
					distinct[normalizeValue(value)] = true
				}
			}
			return float64(len(distinct)), nil
		}
		return float64(len(records)), nil
	}

	var total, min, max float64
	count := 0
	for _, record := range records {
		number, isNumber := numericValue(record[fieldName])
		if !isNumber {
			continue
		}
		if count == 0 || number < min {
			min = number
		}
		if count == 0 || number > max {
			max = number
		}
		total += number
		count++
	}

	// Aggregations over zero matching records are 0, never an error
	if count == 0 {
		return 0, nil
	}

	switch aggregation {
	case db.AggregationSum:
		return total, nil
	case db.AggregationAverage:
		return total / float64(count), nil
	case db.AggregationMin:
		return min, nil
	case db.AggregationMax:
		return max, nil
	default:
		return 0, fmt.Errorf("unrecognized aggregation '%v'", aggregation)
	}
}

func sortRecords(records []db.Record, orderBy []db.Order) {
	if len(orderBy) == 0 {
		// Stable default order, so pagination is deterministic
		slices.SortStableFunc(records, func(record1 db.Record, record2 db.Record) int {
			return strings.Compare(normalizeValue(record1["id"]), normalizeValue(record2["id"]))
		})
		return
	}

	slices.SortStableFunc(records, func(record1 db.Record, record2 db.Record) int {
		for _, order := range orderBy {
			comparison, ok := compareFieldValues(record1[order.Field], record2[order.Field])
			if !ok {
				comparison = strings.Compare(
					normalizeValue(record1[order.Field]),
					normalizeValue(record2[order.Field]),
				)
			}
			if comparison != 0 {
				if order.Descending() {
					return -comparison
				}
				return comparison
			}
		}
		return 0
	})
}

func sortGroups(groups []db.Group, groupBy []db.GroupByField, orderBy []db.Order) {
	compare := func(group1 db.Group, group2 db.Group, field string, descending bool) (int, bool) {
		for i, level := range groupBy {
			if level.Field != field {
				continue
			}
			comparison, ok := compareFieldValues(group1.Values[i].Value, group2.Values[i].Value)
			if !ok {
				key1, _ := group1.Values[i].Normalized()
				key2, _ := group2.Values[i].Normalized()
				comparison = strings.Compare(key1, key2)
			}
			if descending {
				comparison = -comparison
			}
			return comparison, true
		}

		number1, _ := numericValue(group1.Measures[field])
		number2, _ := numericValue(group2.Measures[field])
		comparison := 0
		if number1 < number2 {
			comparison = -1
		} else if number1 > number2 {
			comparison = 1
		}
		if descending {
			comparison = -comparison
		}
		return comparison, true
	}

	slices.SortStableFunc(groups, func(group1 db.Group, group2 db.Group) int {
		if len(orderBy) > 0 {
			for _, order := range orderBy {
				if comparison, ok := compare(group1, group2, order.Field, order.Descending()); ok &&
					comparison != 0 {
					return comparison
				}
			}
			return 0
		}

		// Default: ascending by group values, in group-by order
		for i := range groupBy {
			comparison, ok := compareFieldValues(group1.Values[i].Value, group2.Values[i].Value)
			if !ok {
				key1, _ := group1.Values[i].Normalized()
				key2, _ := group2.Values[i].Normalized()
				comparison = strings.Compare(key1, key2)
			}
			if comparison != 0 {
				return comparison
			}
		}
		return 0
	})
}

func normalizeValue(value any) string {
	if relation, isRelation := value.(db.RelationValue); isRelation {
		return fmt.Sprint(relation.ID)
	}
	if fieldTime, isTime := value.(time.Time); isTime {
		return fieldTime.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(value)
}
