package engine_test

import (
	"testing"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
)

func TestRecordTable(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeTable,
		TableOptions: &engine.TableOptions{
			Columns: []engine.TableColumn{{Field: "name"}, {Field: "customer"}},
		},
	})

	rows := resultPoints(t, result)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	metadata := result.Metadata
	if metadata == nil {
		t.Fatal("expected table metadata")
	}
	if metadata.Page != 1 || metadata.Limit != 50 || metadata.TotalCount != 3 {
		t.Errorf("unexpected metadata: %+v", metadata)
	}

	for _, row := range rows {
		if _, exists := row["name"]; !exists {
			t.Errorf("expected row to contain requested 'name' column: %v", row)
		}
		// Relation columns show the display name, not the raw reference
		customer := row["customer"]
		if customer != "Acme" && customer != "Globex" {
			t.Errorf("expected customer display name, got %v", customer)
		}

		domain, ok := row["domain"].(db.Filter)
		if !ok || len(domain.Conditions) != 1 {
			t.Fatalf("expected row domain pinning the record, got %v", row["domain"])
		}
		if term := domain.Conditions[0].Terms[0]; term.Field != "id" ||
			term.Operator != db.OperatorEquals {
			t.Errorf("expected domain term on 'id', got %+v", term)
		}
	}
}

func TestRecordTablePagination(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model:        "orders",
		Type:         engine.VisualizationTypeTable,
		TableOptions: &engine.TableOptions{Limit: 2, Offset: 2},
	})

	rows := resultPoints(t, result)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row on the last page, got %d", len(rows))
	}

	metadata := result.Metadata
	if metadata.Page != 2 || metadata.Limit != 2 || metadata.TotalCount != 3 {
		t.Errorf("unexpected metadata: %+v", metadata)
	}
}

func TestRecordTableOrdering(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeTable,
		DataSource: engine.DataSource{
			OrderBy: engine.OrderByList{{Field: "name", Direction: db.SortOrderDescending}},
		},
	})

	rows := resultPoints(t, result)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "order-3" {
		t.Errorf("expected descending name order, got %v first", rows[0]["name"])
	}
}

func TestGroupedTable(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeTable,
		DataSource: engine.DataSource{
			GroupBy: []engine.GroupBy{{Field: "status"}},
		},
		TableOptions: &engine.TableOptions{
			Columns: []engine.TableColumn{
				{Field: "id", Aggregation: db.AggregationCount},
				{Field: "amount", Aggregation: db.AggregationSum},
			},
		},
	})

	rows := resultPoints(t, result)
	if len(rows) != 2 {
		t.Fatalf("expected one row per status, got %d", len(rows))
	}
	if result.Metadata.TotalCount != 2 {
		t.Errorf("expected total count 2, got %d", result.Metadata.TotalCount)
	}

	draft, paid := rows[0], rows[1]
	if draft["status"] != "draft" || draft["id"] != 1 || draft["amount"] != 7.0 {
		t.Errorf("unexpected draft row: %v", draft)
	}
	if paid["status"] != "paid" || paid["id"] != 2 || paid["amount"] != 25.0 {
		t.Errorf("unexpected paid row: %v", paid)
	}
	expectDomain(t, paid["domain"], `[["status","=","paid"]]`)
}

func TestGroupedTableBucketedColumnKeys(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeTable,
		DataSource: engine.DataSource{
			GroupBy: []engine.GroupBy{
				{Field: "created_at", Interval: db.DateIntervalMonth},
			},
		},
	})

	rows := resultPoints(t, result)
	if len(rows) != 2 {
		t.Fatalf("expected one row per month with orders, got %d", len(rows))
	}

	label := db.DateIntervalMonth.BucketLabel(fixture.twoMonthsAgo)
	if rows[0]["created_at"] != label {
		t.Errorf("expected bucket label under the field name, got %v", rows[0]["created_at"])
	}
	if rows[0]["created_at:month"] != label {
		t.Errorf(
			"expected bucket label under the 'field:interval' key, got %v",
			rows[0]["created_at:month"],
		)
	}
}

func TestGroupedTablePaginatesAfterGapFill(t *testing.T) {
	fixture := newOrderFixture()

	spec := engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeTable,
		DataSource: engine.DataSource{
			Domain:  statusFilter("paid"),
			GroupBy: []engine.GroupBy{{Field: "status", ShowEmpty: true}},
		},
		TableOptions: &engine.TableOptions{Limit: 1},
	}

	result := runSpec(t, fixture, spec)
	rows := resultPoints(t, result)
	if len(rows) != 1 || rows[0]["status"] != "draft" {
		t.Fatalf("expected the generated draft row on the first page, got %v", rows)
	}
	// Generated empty groups count towards the total
	if result.Metadata.TotalCount != 2 {
		t.Errorf("expected total count 2, got %d", result.Metadata.TotalCount)
	}

	spec.TableOptions = &engine.TableOptions{Limit: 1, Offset: 1}
	result = runSpec(t, fixture, spec)
	rows = resultPoints(t, result)
	if len(rows) != 1 || rows[0]["status"] != "paid" {
		t.Fatalf("expected the paid row on the second page, got %v", rows)
	}
}
