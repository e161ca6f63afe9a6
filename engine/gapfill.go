package engine

import (
	"context"
	"time"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/wrap"
)

// Caps on the number of generated date buckets per interval, so a stray
// min-date record cannot explode a chart into thousands of empty points. When
// the cap is hit, the most recent buckets win.
var maxGeneratedBuckets = map[db.DateInterval]int{
	db.DateIntervalDay:     365,
	db.DateIntervalWeek:    104,
	db.DateIntervalMonth:   24,
	db.DateIntervalQuarter: 20,
	db.DateIntervalYear:    25,
}

// Date grids on models without data still show a window of recent buckets.
const emptyDateGridLookbackMonths = 3

// fillGroupGaps inserts zero-valued groups for every value combination that
// show_empty levels imply but the store returned no group for. Levels without
// show_empty contribute their observed values, so the result is the cartesian
// product of per-level value lists, in level order, with actual groups slotted
// in where they exist. Without any show_empty level, groups pass through
// untouched.
func (core Core) fillGroupGaps(
	ctx context.Context,
	modelSchema schema.ModelSchema,
	model string,
	filter db.Filter,
	levels []groupLevel,
	measures []db.Measure,
	groups []db.Group,
) ([]db.Group, error) {
	anyShowEmpty := false
	for _, level := range levels {
		if level.showEmpty {
			anyShowEmpty = true
			break
		}
	}
	if !anyShowEmpty {
		return groups, nil
	}

	candidates := make([][]db.GroupValue, len(levels))
	for i, level := range levels {
		levelCandidates, err := core.levelCandidates(ctx, modelSchema, model, filter, level, i, groups)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to generate values for group field '%s'", level.Field)
		}
		candidates[i] = levelCandidates
	}

	existing := make(map[string]db.Group, len(groups))
	for _, group := range groups {
		existing[db.CompositeKey(group.Values)] = group
	}

	filled := make([]db.Group, 0, len(groups))
	covered := make(map[string]bool)

	combo := make([]db.GroupValue, len(levels))
	var product func(levelIndex int)
	product = func(levelIndex int) {
		if levelIndex == len(levels) {
			key := db.CompositeKey(combo)
			covered[key] = true
			if group, exists := existing[key]; exists {
				filled = append(filled, group)
			} else {
				filled = append(filled, emptyGroup(combo, measures))
			}
			return
		}
		for _, value := range candidates[levelIndex] {
			combo[levelIndex] = value
			product(levelIndex + 1)
		}
	}
	product(0)

	// Groups outside the generated grid (nil-valued levels, out-of-cap
	// buckets) keep their store order at the end
	for _, group := range groups {
		if !covered[db.CompositeKey(group.Values)] {
			filled = append(filled, group)
		}
	}

	return filled, nil
}

// levelCandidates lists the values one group level should cover. show_empty
// date fields get a generated bucket grid, show_empty selections their
// declared options, show_empty relations every distinct target in the model;
// everything else covers only values observed in the filtered results.
func (core Core) levelCandidates(
	ctx context.Context,
	modelSchema schema.ModelSchema,
	model string,
	filter db.Filter,
	level groupLevel,
	levelIndex int,
	groups []db.Group,
) ([]db.GroupValue, error) {
	if !level.showEmpty {
		return observedValues(levelIndex, groups), nil
	}

	field, fieldExists := modelSchema.Field(level.Field)

	if level.Interval.IsValid() && (!fieldExists || field.Type.IsDate()) {
		return core.dateGrid(ctx, model, level)
	}

	if fieldExists && field.Type == schema.FieldTypeSelection {
		values := make([]db.GroupValue, len(field.Selection))
		for i, option := range field.Selection {
			values[i] = db.GroupValue{GroupByField: level.GroupByField, Value: option.Value}
		}
		return values, nil
	}

	// Relations cover every distinct target in the model, regardless of the
	// request filter, so empty categories show up
	distinctFilter := filter
	if fieldExists && field.Type == schema.FieldTypeRelation {
		distinctFilter = db.Filter{}
	}

	distinct, err := core.store.DistinctFieldValues(ctx, model, level.Field, distinctFilter)
	if err != nil {
		return nil, err
	}

	values := make([]db.GroupValue, 0, len(distinct))
	for _, value := range distinct {
		if value == nil {
			continue
		}
		values = append(values, db.GroupValue{GroupByField: level.GroupByField, Value: value})
	}
	return values, nil
}

func (core Core) dateGrid(
	ctx context.Context,
	model string,
	level groupLevel,
) ([]db.GroupValue, error) {
	min, max, hasData, err := core.store.FieldDateRange(ctx, model, level.Field)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC()
	if !hasData {
		min = today.AddDate(0, -emptyDateGridLookbackMonths, 0)
		max = today
	} else if max.Before(today) {
		// The grid always reaches the present, even when data stops earlier
		max = today
	}

	interval := level.Interval
	var buckets []time.Time
	for bucket := interval.BucketStart(min); !bucket.After(max); bucket = interval.Next(bucket) {
		buckets = append(buckets, bucket)
	}

	if maxBuckets := maxGeneratedBuckets[interval]; maxBuckets > 0 && len(buckets) > maxBuckets {
		buckets = buckets[len(buckets)-maxBuckets:]
	}

	values := make([]db.GroupValue, len(buckets))
	for i, bucket := range buckets {
		values[i] = db.GroupValue{GroupByField: level.GroupByField, Value: bucket}
	}
	return values, nil
}

// observedValues returns the distinct values a level took in the actual
// groups, in first-seen order. nil values are excluded: they cannot combine
// with generated values into a meaningful drill-down domain.
func observedValues(levelIndex int, groups []db.Group) []db.GroupValue {
	var values []db.GroupValue
	seen := make(map[string]bool)
	for _, group := range groups {
		value := group.Values[levelIndex]
		key, ok := value.Normalized()
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		values = append(values, value)
	}
	return values
}

func emptyGroup(combo []db.GroupValue, measures []db.Measure) db.Group {
	values := make([]db.GroupValue, len(combo))
	copy(values, combo)

	emptyMeasures := make(map[string]any, len(measures))
	for _, measure := range measures {
		emptyMeasures[measure.Field] = 0
	}

	return db.Group{Values: values, Measures: emptyMeasures, Count: 0}
}
