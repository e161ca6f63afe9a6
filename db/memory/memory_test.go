package memory_test

import (
	"context"
	"testing"
	"time"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/db/memory"
	"hermannm.dev/dashboard/schema"
)

func newEventStore() *memory.MemoryDB {
	memoryDB := memory.NewMemoryDB()
	memoryDB.AddModel(
		schema.ModelSchema{
			Model: "events",
			Name:  "Events",
			Fields: []schema.Field{
				{Field: "id", Name: "ID", Type: schema.FieldTypeUUID, Stored: true},
				{Field: "name", Name: "Name", Type: schema.FieldTypeText, Stored: true},
				{Field: "category", Name: "Category", Type: schema.FieldTypeText, Stored: true},
				{Field: "value", Name: "Value", Type: schema.FieldTypeInt, Stored: true},
				{Field: "time", Name: "Time", Type: schema.FieldTypeDateTime, Stored: true},
			},
		},
		[]db.Record{
			{"name": "first", "category": "a", "value": 4, "time": date(2025, time.March, 10)},
			{"name": "second", "category": "a", "value": 6, "time": date(2025, time.March, 25)},
			{"name": "third", "category": "b", "value": 10, "time": date(2025, time.May, 2)},
		},
	)
	return memoryDB
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestSearchRecordsFiltersAndSorts(t *testing.T) {
	store := newEventStore()

	records, err := store.SearchRecords(
		context.Background(),
		"events",
		db.NewFilter(db.Term{Field: "category", Operator: db.OperatorEquals, Value: "a"}),
		[]db.Order{{Field: "value", SortOrder: db.SortOrderDescending}},
		0, 0,
	)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 matching records, got %d", len(records))
	}
	if records[0]["name"] != "second" || records[1]["name"] != "first" {
		t.Errorf("expected descending value order, got %v", records)
	}
}

func TestSearchRecordsCopiesRecords(t *testing.T) {
	store := newEventStore()
	ctx := context.Background()

	records, err := store.SearchRecords(ctx, "events", db.Filter{}, nil, 1, 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	records[0]["annotation"] = "mutated"

	records, err = store.SearchRecords(ctx, "events", db.Filter{}, nil, 1, 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if _, exists := records[0]["annotation"]; exists {
		t.Error("expected stored records to be isolated from caller mutation")
	}
}

func TestAggregateField(t *testing.T) {
	store := newEventStore()
	ctx := context.Background()

	average, err := store.AggregateField(
		ctx, "events", db.Filter{}, db.AggregationAverage, "value",
	)
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if average != 20.0/3.0 {
		t.Errorf("unexpected average: %v", average)
	}

	max, err := store.AggregateField(ctx, "events", db.Filter{}, db.AggregationMax, "value")
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if max != 10 {
		t.Errorf("unexpected max: %v", max)
	}

	// count/count_distinct count rows on a non-numeric field
	distinct, err := store.AggregateField(
		ctx, "events", db.Filter{}, db.AggregationCountDistinct, "category",
	)
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if distinct != 2 {
		t.Errorf("expected 2 distinct categories, got %v", distinct)
	}

	count, err := store.AggregateField(ctx, "events", db.Filter{}, db.AggregationCount, "category")
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %v", count)
	}

	// Zero matching records aggregate to 0
	empty, err := store.AggregateField(
		ctx,
		"events",
		db.NewFilter(db.Term{Field: "category", Operator: db.OperatorEquals, Value: "none"}),
		db.AggregationSum,
		"value",
	)
	if err != nil {
		t.Fatalf("aggregation failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("expected 0 for empty aggregation, got %v", empty)
	}
}

func TestReadGroupsWithDateBucketing(t *testing.T) {
	store := newEventStore()

	groups, err := store.ReadGroups(
		context.Background(),
		"events",
		db.Filter{},
		[]db.GroupByField{{Field: "time", Interval: db.DateIntervalMonth}},
		[]db.Measure{{Field: "value", Aggregation: db.AggregationSum}},
		nil,
	)
	if err != nil {
		t.Fatalf("grouped query failed: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("expected 2 month groups, got %d", len(groups))
	}

	march, may := groups[0], groups[1]
	if march.Count != 2 || march.Measures["value"] != 10.0 {
		t.Errorf("unexpected March group: %+v", march)
	}
	if may.Count != 1 || may.Measures["value"] != 10.0 {
		t.Errorf("unexpected May group: %+v", may)
	}

	bucket, isTime := march.Values[0].Value.(time.Time)
	if !isTime || !bucket.Equal(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected bucket start as group value, got %v", march.Values[0].Value)
	}
}

func TestDistinctFieldValues(t *testing.T) {
	store := newEventStore()

	values, err := store.DistinctFieldValues(context.Background(), "events", "category", db.Filter{})
	if err != nil {
		t.Fatalf("distinct query failed: %v", err)
	}
	if len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Errorf("unexpected distinct values: %v", values)
	}
}

func TestFieldDateRange(t *testing.T) {
	store := newEventStore()

	min, max, hasData, err := store.FieldDateRange(context.Background(), "events", "time")
	if err != nil {
		t.Fatalf("date range query failed: %v", err)
	}
	if !hasData {
		t.Fatal("expected date data")
	}
	if !min.Equal(date(2025, time.March, 10)) || !max.Equal(date(2025, time.May, 2)) {
		t.Errorf("unexpected date range: %v to %v", min, max)
	}
}

func TestUnknownModel(t *testing.T) {
	store := newEventStore()

	_, err := store.CountRecords(context.Background(), "nope", db.Filter{})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
}
