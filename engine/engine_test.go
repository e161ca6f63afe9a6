package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/db/memory"
	"hermannm.dev/dashboard/engine"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/devlog"
)

func TestMain(m *testing.M) {
	logHandler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logHandler))

	os.Exit(m.Run())
}

var (
	acme   = db.RelationValue{ID: 1, DisplayName: "Acme"}
	globex = db.RelationValue{ID: 2, DisplayName: "Globex"}
)

type orderFixture struct {
	engine engine.Core
	// 12:00 on the 15th of the current month, so month arithmetic around it
	// never crosses a month boundary regardless of the test run date.
	currentMonth time.Time
	twoMonthsAgo time.Time
}

func newOrderFixture() orderFixture {
	now := time.Now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 15, 12, 0, 0, 0, time.UTC)
	twoMonthsAgo := currentMonth.AddDate(0, -2, 0)

	memoryDB := memory.NewMemoryDB()
	memoryDB.AddModel(orderSchema(), []db.Record{
		{
			"name":       "order-1",
			"status":     "paid",
			"amount":     10.0,
			"customer":   acme,
			"created_at": twoMonthsAgo,
		},
		{
			"name":       "order-2",
			"status":     "paid",
			"amount":     15.0,
			"customer":   globex,
			"created_at": currentMonth,
		},
		{
			"name":       "order-3",
			"status":     "draft",
			"amount":     7.0,
			"customer":   acme,
			"created_at": currentMonth,
		},
	})

	return orderFixture{
		engine:       engine.NewCore(memoryDB, memoryDB, "1.0.0"),
		currentMonth: currentMonth,
		twoMonthsAgo: twoMonthsAgo,
	}
}

func orderSchema() schema.ModelSchema {
	return schema.ModelSchema{
		Model: "orders",
		Name:  "Orders",
		Fields: []schema.Field{
			{Field: "id", Name: "ID", Type: schema.FieldTypeUUID, Stored: true},
			{Field: "name", Name: "Name", Type: schema.FieldTypeText, Stored: true},
			{
				Field:  "status",
				Name:   "Status",
				Type:   schema.FieldTypeSelection,
				Stored: true,
				Selection: []schema.SelectionOption{
					{Value: "draft", Label: "Draft"},
					{Value: "paid", Label: "Paid"},
				},
			},
			{Field: "amount", Name: "Amount", Type: schema.FieldTypeFloat, Stored: true},
			{
				Field:    "customer",
				Name:     "Customer",
				Type:     schema.FieldTypeRelation,
				Relation: "customers",
				Stored:   true,
			},
			{Field: "created_at", Name: "Created at", Type: schema.FieldTypeDateTime, Stored: true},
		},
	}
}

// runSpec processes a single visualization spec and returns its result.
func runSpec(t *testing.T, fixture orderFixture, spec engine.VisualizationSpec) engine.ItemResult {
	t.Helper()

	if spec.ID == "" {
		spec.ID = "test-item"
	}
	response := fixture.engine.ProcessDashboardRequest(
		context.Background(), []engine.VisualizationSpec{spec},
	)

	result, exists := response[spec.ID]
	if !exists {
		t.Fatalf("expected response to contain item '%s', got %v", spec.ID, response)
	}
	return result
}

func expectSuccess(t *testing.T, result engine.ItemResult) {
	t.Helper()

	if result.Error != "" {
		t.Fatalf("expected successful result, got error: %s", result.Error)
	}
}

func resultPoints(t *testing.T, result engine.ItemResult) []db.Record {
	t.Helper()

	expectSuccess(t, result)
	points, ok := result.Data.([]db.Record)
	if !ok {
		t.Fatalf("expected result data to be a record list, got %T", result.Data)
	}
	return points
}

func expectDomain(t *testing.T, value any, expected string) {
	t.Helper()

	serialized, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("failed to marshal domain: %v", err)
	}

	// json.Marshal escapes '>' and '<' to >/<; round-trip without
	// HTML escaping so the comparison sees the literal operators
	var decoded any
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		t.Fatalf("failed to parse domain %s: %v", serialized, err)
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(decoded); err != nil {
		t.Fatalf("failed to marshal domain: %v", err)
	}

	if normalized := strings.TrimSuffix(buffer.String(), "\n"); normalized != expected {
		t.Errorf("expected domain %s, got %s", expected, normalized)
	}
}

func statusFilter(status string) db.Filter {
	return db.NewFilter(db.Term{Field: "status", Operator: db.OperatorEquals, Value: status})
}
