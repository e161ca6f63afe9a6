package engine_test

import (
	"fmt"
	"testing"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
)

func TestShowEmptyFillsDeclaredSelectionOptions(t *testing.T) {
	fixture := newOrderFixture()

	// Only paid orders match the filter, but show_empty keeps the draft
	// category visible with a zero count
	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeGraph,
		DataSource: engine.DataSource{
			Domain: db.NewFilter(
				db.Term{Field: "amount", Operator: db.OperatorGreaterThan, Value: 8.0},
			),
			GroupBy: []engine.GroupBy{{Field: "status", ShowEmpty: true}},
		},
	})

	points := resultPoints(t, result)
	if len(points) != 2 {
		t.Fatalf("expected a point per declared selection option, got %d", len(points))
	}

	draft, paid := points[0], points[1]
	if draft["status"] != "draft" || draft["id"] != 0 {
		t.Errorf("expected empty draft point, got %v", draft)
	}
	if paid["status"] != "paid" || paid["id"] != 2 {
		t.Errorf("unexpected paid point: %v", paid)
	}
}

func TestShowEmptyFillsMonthGrid(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeGraph,
		DataSource: engine.DataSource{
			GroupBy: []engine.GroupBy{
				{Field: "created_at", Interval: db.DateIntervalMonth, ShowEmpty: true},
			},
		},
	})

	points := resultPoints(t, result)
	if len(points) != 3 {
		t.Fatalf("expected a point per month from oldest order to today, got %d", len(points))
	}

	month := db.DateIntervalMonth
	expectedLabels := []any{
		month.BucketLabel(fixture.twoMonthsAgo),
		month.BucketLabel(fixture.twoMonthsAgo.AddDate(0, 1, 0)),
		month.BucketLabel(fixture.currentMonth),
	}
	expectedCounts := []any{1, 0, 2}

	for i, point := range points {
		if point["created_at"] != expectedLabels[i] {
			t.Errorf(
				"expected point %d to have month label %v, got %v",
				i, expectedLabels[i], point["created_at"],
			)
		}
		if point["id"] != expectedCounts[i] {
			t.Errorf(
				"expected point %d to have count %v, got %v", i, expectedCounts[i], point["id"],
			)
		}
	}
}

func TestGeneratedMonthPointDomain(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeGraph,
		DataSource: engine.DataSource{
			GroupBy: []engine.GroupBy{
				{Field: "created_at", Interval: db.DateIntervalMonth, ShowEmpty: true},
			},
		},
	})

	points := resultPoints(t, result)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	// The middle month has no orders, but its generated point must still
	// carry a drill-down domain covering the bucket
	month := db.DateIntervalMonth
	start := month.Next(month.BucketStart(fixture.twoMonthsAgo))
	end := month.Next(start).AddDate(0, 0, -1)
	expectDomain(t, points[1]["domain"], fmt.Sprintf(
		`[["created_at",">=","%s"],["created_at","<=","%s"]]`,
		start.Format("2006-01-02"), end.Format("2006-01-02"),
	))
}

func TestShowEmptyRelationKeepsFilteredOutCustomers(t *testing.T) {
	fixture := newOrderFixture()

	// The filter excludes every Globex order; show_empty on a relation field
	// still lists Globex, with zero values
	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeGraph,
		DataSource: engine.DataSource{
			Domain:  statusFilter("draft"),
			GroupBy: []engine.GroupBy{{Field: "customer", ShowEmpty: true}},
		},
	})

	points := resultPoints(t, result)
	if len(points) != 2 {
		t.Fatalf("expected a point per customer in the model, got %d", len(points))
	}

	byLabel := make(map[any]db.Record)
	for _, point := range points {
		byLabel[point["customer"]] = point
	}
	if byLabel["Acme"] == nil || byLabel["Acme"]["id"] != 1 {
		t.Errorf("unexpected Acme point: %v", byLabel["Acme"])
	}
	if byLabel["Globex"] == nil || byLabel["Globex"]["id"] != 0 {
		t.Errorf("expected empty Globex point, got %v", byLabel["Globex"])
	}
}

func TestWithoutShowEmptyGroupsPassThrough(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeGraph,
		DataSource: engine.DataSource{
			GroupBy: []engine.GroupBy{
				{Field: "created_at", Interval: db.DateIntervalMonth},
			},
		},
	})

	points := resultPoints(t, result)
	if len(points) != 2 {
		t.Fatalf("expected only months with orders, got %d points", len(points))
	}
}
