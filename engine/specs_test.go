package engine_test

import (
	"encoding/json"
	"testing"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
)

func TestNormalizeSpecsAcceptsSingleObjectAndList(t *testing.T) {
	single := []byte(`{"id": "item-1", "model": "orders", "type": "block"}`)
	specs, err := engine.NormalizeSpecs(single)
	if err != nil {
		t.Fatalf("failed to normalize single spec: %v", err)
	}
	if len(specs) != 1 || specs[0].ID != "item-1" {
		t.Fatalf("unexpected specs from single object: %v", specs)
	}

	list := []byte(`[{"id": "item-1"}, {"id": "item-2"}]`)
	specs, err = engine.NormalizeSpecs(list)
	if err != nil {
		t.Fatalf("failed to normalize spec list: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("unexpected specs from list: %v", specs)
	}

	if _, err := engine.NormalizeSpecs([]byte(`"not a spec"`)); err == nil {
		t.Fatal("expected error for non-spec body")
	}
}

func TestSpecUnmarshalingFromWireFormat(t *testing.T) {
	body := []byte(`{
		"id": "graph-1",
		"model": "orders",
		"type": "graph",
		"data_source": {
			"domain": [["status", "=", "paid"]],
			"groupBy": [{"field": "created_at", "interval": "month", "show_empty": true}],
			"orderBy": {"field": "created_at", "direction": "asc"}
		},
		"graph_options": {
			"measures": [{"field": "amount", "aggregation": "sum"}],
			"chartType": "bar"
		}
	}`)

	var spec engine.VisualizationSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		t.Fatalf("failed to unmarshal spec: %v", err)
	}

	if spec.Type != engine.VisualizationTypeGraph {
		t.Errorf("expected graph type, got %v", spec.Type)
	}
	if len(spec.DataSource.Domain.Conditions) != 1 {
		t.Errorf("unexpected domain: %+v", spec.DataSource.Domain)
	}

	groupBy := spec.DataSource.GroupBy
	if len(groupBy) != 1 || groupBy[0].Interval != db.DateIntervalMonth || !groupBy[0].ShowEmpty {
		t.Errorf("unexpected groupBy: %+v", groupBy)
	}

	// A single orderBy object is accepted as a one-element list
	orderBy := spec.DataSource.OrderBy
	if len(orderBy) != 1 || orderBy[0].Field != "created_at" {
		t.Errorf("unexpected orderBy: %+v", orderBy)
	}

	measures := spec.GraphOptions.Measures
	if len(measures) != 1 || measures[0].Aggregation != db.AggregationSum {
		t.Errorf("unexpected measures: %+v", measures)
	}
}

func TestVisualizationTypeNames(t *testing.T) {
	serialized, err := json.Marshal(engine.VisualizationTypeTable)
	if err != nil {
		t.Fatalf("failed to marshal visualization type: %v", err)
	}
	if string(serialized) != `"table"` {
		t.Errorf(`expected "table", got %s`, serialized)
	}

	var visualizationType engine.VisualizationType
	if err := json.Unmarshal([]byte(`"invalid"`), &visualizationType); err == nil {
		t.Error("expected error for unrecognized visualization type")
	}
}
