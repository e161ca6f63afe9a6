package engine

import (
	"context"
	"fmt"
	"strings"

	"hermannm.dev/dashboard/db"
)

// Raw queries are read-only: any statement keyword that could mutate the
// store rejects the whole query.
var forbiddenQueryKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE",
}

const rawQueryRowCap = 1000

func (core Core) processRawQuery(ctx context.Context, spec VisualizationSpec) ItemResult {
	query := spec.DataSource.SQLRequest

	if err := validateRawQuery(query); err != nil {
		return errorResult(err.Error())
	}
	query = ensureRowCap(query)

	columns, rows, err := core.store.RunRawQuery(ctx, query)
	if err != nil {
		return errorResult(err.Error())
	}

	switch spec.Type {
	case VisualizationTypeBlock:
		return rawBlockResult(spec, columns, rows)
	default:
		// Graphs key their axis by the first selected column, which the rows
		// already carry by name, so graph and table share the row shape
		return ItemResult{Data: rows}
	}
}

func validateRawQuery(query string) error {
	uppercased := strings.ToUpper(query)
	for _, keyword := range forbiddenQueryKeywords {
		if strings.Contains(uppercased, keyword) {
			return fmt.Errorf("query contains forbidden keyword: %s", keyword)
		}
	}
	return nil
}

// ensureRowCap appends a row limit unless the query already declares one.
func ensureRowCap(query string) string {
	if strings.Contains(strings.ToUpper(query), "LIMIT") {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d", query, rawQueryRowCap)
}

func rawBlockResult(spec VisualizationSpec, columns []string, rows []db.Record) ItemResult {
	if len(rows) == 0 || len(columns) == 0 {
		return ItemResult{Data: BlockResult{Value: 0, Label: rawBlockLabel(spec)}}
	}

	return ItemResult{
		Data: BlockResult{Value: rows[0][columns[0]], Label: rawBlockLabel(spec)},
	}
}

func rawBlockLabel(spec VisualizationSpec) string {
	if options := spec.BlockOptions; options != nil {
		if options.Label != "" {
			return options.Label
		}
		if options.Field != "" {
			return options.Field
		}
	}
	return "value"
}
