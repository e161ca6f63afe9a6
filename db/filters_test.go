package db_test

import (
	"encoding/json"
	"testing"
	"time"

	"hermannm.dev/dashboard/db"
)

func TestFilterUnmarshalPlainTerms(t *testing.T) {
	filter := parseFilter(t, `[["status","=","paid"],["amount",">",100]]`)

	if len(filter.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(filter.Conditions))
	}
	for _, condition := range filter.Conditions {
		if len(condition.Terms) != 1 {
			t.Fatalf("expected 1 term per condition, got %d", len(condition.Terms))
		}
	}

	first := filter.Conditions[0].Terms[0]
	if first.Field != "status" || first.Operator != db.OperatorEquals || first.Value != "paid" {
		t.Errorf("unexpected first term: %+v", first)
	}
}

func TestFilterUnmarshalOrPrefix(t *testing.T) {
	filter := parseFilter(
		t,
		`["|",["status","=","paid"],["status","=","draft"],["amount",">",100]]`,
	)

	if len(filter.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(filter.Conditions))
	}
	if len(filter.Conditions[0].Terms) != 2 {
		t.Fatalf("expected 2 terms in OR condition, got %d", len(filter.Conditions[0].Terms))
	}
	if len(filter.Conditions[1].Terms) != 1 {
		t.Fatalf("expected 1 term in AND condition, got %d", len(filter.Conditions[1].Terms))
	}
}

func TestFilterUnmarshalConsecutiveOrPrefixes(t *testing.T) {
	filter := parseFilter(
		t,
		`["|","|",["status","=","paid"],["status","=","draft"],["status","=","sent"]]`,
	)

	if len(filter.Conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(filter.Conditions))
	}
	if len(filter.Conditions[0].Terms) != 3 {
		t.Fatalf("expected 3 OR terms, got %d", len(filter.Conditions[0].Terms))
	}
}

func TestFilterUnmarshalErrors(t *testing.T) {
	invalidFilters := []string{
		`["|",["status","=","paid"]]`,
		`["invalid",["status","=","paid"]]`,
		`[["status","=","paid","extra"]]`,
	}
	for _, invalid := range invalidFilters {
		var filter db.Filter
		if err := json.Unmarshal([]byte(invalid), &filter); err == nil {
			t.Errorf("expected error for filter %s", invalid)
		}
	}
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	serializedFilters := []string{
		`[["status","=","paid"]]`,
		`["|",["status","=","paid"],["status","=","draft"]]`,
		`["|","|",["a","=",1],["b","=",2],["c","=",3],["d","!=",4]]`,
	}

	for _, serialized := range serializedFilters {
		filter := parseFilter(t, serialized)

		remarshaled, err := json.Marshal(filter)
		if err != nil {
			t.Fatalf("failed to marshal filter parsed from %s: %v", serialized, err)
		}

		reparsed := parseFilter(t, string(remarshaled))
		if len(reparsed.Conditions) != len(filter.Conditions) {
			t.Errorf("round trip of %s changed condition count", serialized)
		}
	}
}

func TestBuildGroupDomainEquality(t *testing.T) {
	domain := db.BuildGroupDomain([]db.GroupValue{
		{GroupByField: db.GroupByField{Field: "status"}, Value: "paid"},
		{
			GroupByField: db.GroupByField{Field: "customer"},
			Value:        db.RelationValue{ID: 42, DisplayName: "Acme"},
		},
	})

	if len(domain.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(domain.Conditions))
	}

	customerTerm := domain.Conditions[1].Terms[0]
	if customerTerm.Value != 42 {
		t.Errorf("expected relation domain to use the id, got %v", customerTerm.Value)
	}
}

func TestBuildGroupDomainDateBucket(t *testing.T) {
	bucket := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	domain := db.BuildGroupDomain([]db.GroupValue{
		{
			GroupByField: db.GroupByField{Field: "date", Interval: db.DateIntervalMonth},
			Value:        bucket,
		},
	})

	if len(domain.Conditions) != 2 {
		t.Fatalf("expected 2 range conditions, got %d", len(domain.Conditions))
	}

	lower := domain.Conditions[0].Terms[0]
	upper := domain.Conditions[1].Terms[0]
	if lower.Operator != db.OperatorGreaterOrEqual || lower.Value != "2025-04-01" {
		t.Errorf("unexpected lower bound: %+v", lower)
	}
	if upper.Operator != db.OperatorLessOrEqual || upper.Value != "2025-04-30" {
		t.Errorf("unexpected upper bound: %+v", upper)
	}
}

func TestBuildGroupDomainSkipsNilValues(t *testing.T) {
	domain := db.BuildGroupDomain([]db.GroupValue{
		{GroupByField: db.GroupByField{Field: "status"}, Value: nil},
	})
	if !domain.IsEmpty() {
		t.Errorf("expected empty domain, got %+v", domain)
	}
}

func parseFilter(t *testing.T, serialized string) db.Filter {
	t.Helper()

	var filter db.Filter
	if err := json.Unmarshal([]byte(serialized), &filter); err != nil {
		t.Fatalf("failed to parse filter %s: %v", serialized, err)
	}
	return filter
}
