package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"hermannm.dev/dashboard/engine"
	"hermannm.dev/enumnames"
)

// Operation is the closed set of engine operations callers can invoke by
// name. Names off this list fail before reaching any engine.
type Operation uint8

const (
	OperationGetModels Operation = iota + 1
	OperationGetModelFields
	OperationGetModelRecords
	OperationGetModelSearch
	OperationProcessDashboardRequest
)

var operationNames = enumnames.NewMap(map[Operation]string{
	OperationGetModels:               "get_models",
	OperationGetModelFields:          "get_model_fields",
	OperationGetModelRecords:         "get_model_records",
	OperationGetModelSearch:          "get_model_search",
	OperationProcessDashboardRequest: "process_dashboard_request",
})

var ErrOperationNotFound = errors.New("unknown operation")

func ParseOperation(name string) (Operation, error) {
	var operation Operation
	if err := operationNames.UnmarshalFromNameJSON([]byte(strconv.Quote(name)), &operation); err != nil {
		return 0, fmt.Errorf("%w: '%s'", ErrOperationNotFound, name)
	}
	return operation, nil
}

func (operation Operation) String() string {
	return operationNames.GetNameOrFallback(operation, "INVALID_OPERATION")
}

func (operation Operation) MarshalJSON() ([]byte, error) {
	return operationNames.MarshalToNameJSON(operation)
}

func (operation *Operation) UnmarshalJSON(bytes []byte) error {
	return operationNames.UnmarshalFromNameJSON(bytes, operation)
}

// Parameters carries the operation arguments from the wire. Which fields
// matter depends on the operation; unused ones are ignored.
type Parameters struct {
	ModelName string `json:"model_name,omitempty"`
	// Visualization specs for process_dashboard_request, kept raw since their
	// shape is the engine's concern.
	RequestData json.RawMessage `json:"request_data,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Offset      int             `json:"offset,omitempty"`
	Search      string          `json:"search,omitempty"`
	OrderBy     string          `json:"order,omitempty"`
}

func runOperation(
	ctx context.Context,
	currentEngine engine.Engine,
	operation Operation,
	params Parameters,
) (any, error) {
	switch operation {
	case OperationGetModels:
		return currentEngine.GetModels(ctx)

	case OperationGetModelFields:
		if params.ModelName == "" {
			return nil, errors.New("missing required parameter 'model_name'")
		}
		return currentEngine.GetModelFields(ctx, params.ModelName)

	case OperationGetModelRecords:
		if params.ModelName == "" {
			return nil, errors.New("missing required parameter 'model_name'")
		}
		return currentEngine.GetModelRecords(ctx, params.ModelName, engine.RecordRequest{
			Limit:   params.Limit,
			Offset:  params.Offset,
			OrderBy: params.OrderBy,
			Search:  params.Search,
		})

	case OperationGetModelSearch:
		if params.ModelName == "" {
			return nil, errors.New("missing required parameter 'model_name'")
		}
		return currentEngine.SearchModelRecords(ctx, params.ModelName, params.Search, params.Limit)

	case OperationProcessDashboardRequest:
		specs, err := engine.NormalizeSpecs(params.RequestData)
		if err != nil {
			return nil, err
		}
		return currentEngine.ProcessDashboardRequest(ctx, specs), nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrOperationNotFound, operation)
	}
}
