package engine

import (
	"context"
	"fmt"
	"strings"

	"hermannm.dev/dashboard/db"
)

// The field free-text search matches against.
const searchField = "name"

func (core Core) GetModelRecords(
	ctx context.Context,
	model string,
	request RecordRequest,
) (RecordPage, error) {
	limit := request.Limit
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	offset := request.Offset
	if offset < 0 {
		offset = 0
	}

	var filter db.Filter
	if request.Search != "" {
		filter = db.NewFilter(db.Term{
			Field:    searchField,
			Operator: db.OperatorILike,
			Value:    request.Search,
		})
	}

	total, err := core.store.CountRecords(ctx, model, filter)
	if err != nil {
		return RecordPage{}, err
	}

	records, err := core.store.SearchRecords(
		ctx, model, filter, parseOrderString(request.OrderBy), limit, offset,
	)
	if err != nil {
		return RecordPage{}, err
	}

	for _, record := range records {
		if id, exists := record[primaryKeyField]; exists {
			record[domainKey] = db.NewFilter(db.Term{
				Field:    primaryKeyField,
				Operator: db.OperatorEquals,
				Value:    id,
			})
		}
	}

	return RecordPage{Records: records, Metadata: *tableMetadata(limit, offset, total)}, nil
}

// SearchModelRecords resolves free text to relation values, for dashboard
// editors picking filter targets.
func (core Core) SearchModelRecords(
	ctx context.Context,
	model string,
	searchTerm string,
	limit int,
) ([]db.RelationValue, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	var filter db.Filter
	if searchTerm != "" {
		filter = db.NewFilter(db.Term{
			Field:    searchField,
			Operator: db.OperatorILike,
			Value:    searchTerm,
		})
	}

	records, err := core.store.SearchRecords(ctx, model, filter, nil, limit, 0)
	if err != nil {
		return nil, err
	}

	results := make([]db.RelationValue, 0, len(records))
	for _, record := range records {
		id, exists := record[primaryKeyField]
		if !exists {
			continue
		}
		results = append(results, db.RelationValue{ID: id, DisplayName: recordDisplayName(record, id)})
	}
	return results, nil
}

func recordDisplayName(record db.Record, id any) string {
	if name, isString := record[searchField].(string); isString && name != "" {
		return name
	}
	return fmt.Sprint(id)
}

// parseOrderString parses 'field desc, other asc' order clauses, the order
// format record list requests use. Unparseable parts are skipped.
func parseOrderString(orderString string) []db.Order {
	if orderString == "" {
		return nil
	}

	var orders []db.Order
	for _, clause := range strings.Split(orderString, ",") {
		parts := strings.Fields(clause)
		if len(parts) == 0 {
			continue
		}

		order := db.Order{Field: parts[0], SortOrder: db.SortOrderAscending}
		if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
			order.SortOrder = db.SortOrderDescending
		}
		orders = append(orders, order)
	}
	return orders
}
