package engine_test

import (
	"testing"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
)

func TestBlockSum(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model:        "orders",
		Type:         engine.VisualizationTypeBlock,
		DataSource:   engine.DataSource{Domain: statusFilter("paid")},
		BlockOptions: &engine.BlockOptions{Field: "amount", Aggregation: db.AggregationSum},
	})

	block := blockResult(t, result)
	if block.Value != 25.0 {
		t.Errorf("expected sum of paid order amounts to be 25, got %v", block.Value)
	}
	if block.Label != "amount" {
		t.Errorf("expected label to default to the aggregated field, got '%s'", block.Label)
	}
	expectDomain(t, block.Domain, `[["status","=","paid"]]`)
}

func TestBlockCount(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeBlock,
		BlockOptions: &engine.BlockOptions{
			Field:       "id",
			Aggregation: db.AggregationCount,
			Label:       "Orders",
		},
	})

	block := blockResult(t, result)
	if block.Value != 3 {
		t.Errorf("expected count of all orders to be 3, got %v", block.Value)
	}
	if block.Label != "Orders" {
		t.Errorf("expected the configured label, got '%s'", block.Label)
	}
}

func TestBlockDefaultsToSum(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model:        "orders",
		Type:         engine.VisualizationTypeBlock,
		BlockOptions: &engine.BlockOptions{Field: "amount"},
	})

	block := blockResult(t, result)
	if block.Value != 32.0 {
		t.Errorf("expected unspecified aggregation to sum all amounts to 32, got %v", block.Value)
	}
}

func TestBlockAggregationOverNoRecords(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model:        "orders",
		Type:         engine.VisualizationTypeBlock,
		DataSource:   engine.DataSource{Domain: statusFilter("cancelled")},
		BlockOptions: &engine.BlockOptions{Field: "amount", Aggregation: db.AggregationAverage},
	})

	block := blockResult(t, result)
	if block.Value != 0.0 {
		t.Errorf("expected aggregation over zero records to be 0, got %v", block.Value)
	}
}

func TestBlockRequiresOptions(t *testing.T) {
	fixture := newOrderFixture()

	result := runSpec(t, fixture, engine.VisualizationSpec{
		Model: "orders",
		Type:  engine.VisualizationTypeBlock,
	})

	if result.Error == "" {
		t.Fatal("expected error for block spec without block_options")
	}
}

func blockResult(t *testing.T, result engine.ItemResult) engine.BlockResult {
	t.Helper()

	expectSuccess(t, result)
	block, ok := result.Data.(engine.BlockResult)
	if !ok {
		t.Fatalf("expected block result data, got %T", result.Data)
	}
	return block
}
