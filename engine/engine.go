// Package engine implements the declarative visualization query engine: it
// takes visualization specs (block/graph/table), translates them to grouped
// aggregation queries against a record store, fills gaps in sparse series, and
// annotates every output row with the drill-down domain that reproduces it.
package engine

import (
	"context"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/schema"
)

// Engine is the closed set of operations a loaded engine implementation
// provides. The loader package resolves operation names from the wire to these
// typed methods, and hot-swaps implementations without callers noticing.
type Engine interface {
	Version() string

	GetModels(ctx context.Context) ([]schema.ModelInfo, error)

	GetModelFields(ctx context.Context, model string) ([]schema.Field, error)

	GetModelRecords(ctx context.Context, model string, request RecordRequest) (RecordPage, error)

	SearchModelRecords(
		ctx context.Context,
		model string,
		searchTerm string,
		limit int,
	) ([]db.RelationValue, error)

	// ProcessDashboardRequest runs a batch of visualization specs. Items are
	// processed sequentially, and a failure in one item never aborts its
	// siblings: it becomes that item's error entry instead.
	ProcessDashboardRequest(ctx context.Context, specs []VisualizationSpec) DashboardResponse
}

type RecordRequest struct {
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	OrderBy string `json:"order,omitempty"`
	Search  string `json:"search,omitempty"`
}

type RecordPage struct {
	Records  []db.Record   `json:"records"`
	Metadata TableMetadata `json:"metadata"`
}

// Core is the built-in Engine implementation.
type Core struct {
	store   db.RecordStore
	schemas schema.Provider
	version string
}

func NewCore(store db.RecordStore, schemas schema.Provider, version string) Core {
	return Core{store: store, schemas: schemas, version: version}
}

func (core Core) Version() string {
	return core.version
}

const (
	defaultTableLimit  = 50
	defaultRecordLimit = 80
	primaryKeyField    = "id"
	domainKey          = "domain"
)
