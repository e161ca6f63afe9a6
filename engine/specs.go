package engine

import (
	"encoding/json"
	"errors"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/enumnames"
)

type VisualizationType uint8

const (
	VisualizationTypeBlock VisualizationType = iota + 1
	VisualizationTypeGraph
	VisualizationTypeTable
)

var visualizationTypeNames = enumnames.NewMap(map[VisualizationType]string{
	VisualizationTypeBlock: "block",
	VisualizationTypeGraph: "graph",
	VisualizationTypeTable: "table",
})

func (visualizationType VisualizationType) IsValid() bool {
	return visualizationTypeNames.ContainsEnumValue(visualizationType)
}

func (visualizationType VisualizationType) String() string {
	return visualizationTypeNames.GetNameOrFallback(visualizationType, "INVALID_VISUALIZATION_TYPE")
}

func (visualizationType VisualizationType) MarshalJSON() ([]byte, error) {
	return visualizationTypeNames.MarshalToNameJSON(visualizationType)
}

func (visualizationType *VisualizationType) UnmarshalJSON(bytes []byte) error {
	return visualizationTypeNames.UnmarshalFromNameJSON(bytes, visualizationType)
}

// VisualizationSpec is one requested chart/table/block in a dashboard request.
type VisualizationSpec struct {
	ID    string            `json:"id"`
	Model string            `json:"model"`
	Type  VisualizationType `json:"type"`

	DataSource DataSource `json:"data_source"`

	BlockOptions *BlockOptions `json:"block_options,omitempty"`
	GraphOptions *GraphOptions `json:"graph_options,omitempty"`
	TableOptions *TableOptions `json:"table_options,omitempty"`

	// Set when the item's JSON could not be decoded (unrecognized type,
	// aggregation, operator or interval), so the failure becomes this item's
	// error entry instead of rejecting its sibling items.
	parseError error
}

type DataSource struct {
	Domain  db.Filter   `json:"domain"`
	GroupBy []GroupBy   `json:"groupBy"`
	OrderBy OrderByList `json:"orderBy"`
	// Raw query text; takes precedence over declarative processing when set.
	SQLRequest string `json:"sqlRequest,omitempty"`
}

type GroupBy struct {
	Field     string          `json:"field"`
	Interval  db.DateInterval `json:"interval,omitempty"`
	ShowEmpty bool            `json:"show_empty,omitempty"`
}

type OrderBy struct {
	Field     string       `json:"field"`
	Direction db.SortOrder `json:"direction,omitempty"`
}

func (orderBy OrderBy) sortOrder() db.SortOrder {
	if orderBy.Direction.IsValid() {
		return orderBy.Direction
	}
	return db.SortOrderAscending
}

// OrderByList accepts both a single orderBy object and a list of them, since
// dashboards have sent both shapes over time.
type OrderByList []OrderBy

func (list *OrderByList) UnmarshalJSON(bytes []byte) error {
	var multiple []OrderBy
	if err := json.Unmarshal(bytes, &multiple); err == nil {
		*list = multiple
		return nil
	}

	var single OrderBy
	if err := json.Unmarshal(bytes, &single); err != nil {
		return errors.New("orderBy must be an object or a list of objects")
	}
	if single.Field == "" {
		*list = nil
		return nil
	}
	*list = OrderByList{single}
	return nil
}

type BlockOptions struct {
	Field       string         `json:"field"`
	Aggregation db.Aggregation `json:"aggregation,omitempty"`
	Label       string         `json:"label,omitempty"`
}

type GraphOptions struct {
	Measures  []GraphMeasure `json:"measures"`
	ChartType string         `json:"chartType,omitempty"`
}

type GraphMeasure struct {
	Field       string         `json:"field"`
	Aggregation db.Aggregation `json:"aggregation,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
}

type TableOptions struct {
	Columns []TableColumn `json:"columns"`
	Limit   int           `json:"limit,omitempty"`
	Offset  int           `json:"offset,omitempty"`
}

type TableColumn struct {
	Field       string         `json:"field"`
	Aggregation db.Aggregation `json:"aggregation,omitempty"`
}

// NormalizeSpecs parses a dashboard request body, accepting either a single
// spec object or an array of them. Items are decoded one by one: an item that
// fails to decode is kept with the failure attached under its id, so one bad
// item cannot reject its siblings. Only a body that is not an object or array
// at all is an error.
func NormalizeSpecs(body []byte) ([]VisualizationSpec, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(body, &rawItems); err != nil {
		var object map[string]json.RawMessage
		if err := json.Unmarshal(body, &object); err != nil {
			return nil, errors.New("request body must be a visualization spec or a list of specs")
		}
		rawItems = []json.RawMessage{body}
	}

	specs := make([]VisualizationSpec, len(rawItems))
	for i, rawItem := range rawItems {
		specs[i] = parseSpecItem(rawItem)
	}
	return specs, nil
}

func parseSpecItem(rawItem json.RawMessage) VisualizationSpec {
	var spec VisualizationSpec
	if err := json.Unmarshal(rawItem, &spec); err != nil {
		// Re-extract just the id, so the error lands on the right response key
		var identity struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(rawItem, &identity)
		return VisualizationSpec{ID: identity.ID, parseError: err}
	}
	return spec
}

// DashboardResponse maps each valid spec's id to its result. Invalid items
// (missing id) produce no key.
type DashboardResponse map[string]ItemResult

// ItemResult is one item's outcome: either data (with optional metadata), or
// an error scoped to this item alone.
type ItemResult struct {
	Data     any            `json:"data,omitempty"`
	Metadata *TableMetadata `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type TableMetadata struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
}

// BlockResult is the single scalar a block visualization produces. Domain is
// the caller-supplied filter verbatim: a block has no grouping, so there is
// nothing to narrow.
type BlockResult struct {
	Value  any       `json:"value"`
	Label  string    `json:"label"`
	Domain db.Filter `json:"domain"`
}

func errorResult(message string) ItemResult {
	return ItemResult{Error: message}
}
