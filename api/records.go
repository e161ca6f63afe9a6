package api

import (
	"net/http"
	"strconv"

	"hermannm.dev/dashboard/engine/loader"
)

// Expects:
//   - path parameter 'model': name of the model to list records for
//   - optional query parameters 'limit', 'offset', 'order' and 'search'
//
// Returns:
//   - JSON-encoded engine.RecordPage
func (api DashboardAPI) GetModelRecords(res http.ResponseWriter, req *http.Request) {
	model := req.PathValue("model")
	if model == "" {
		sendClientError(res, nil, "missing 'model' path parameter in request")
		return
	}

	queryParams := req.URL.Query()
	records, err := api.loader.Execute(req.Context(), "get_model_records", loader.Parameters{
		ModelName: model,
		Limit:     intQueryParam(queryParams.Get("limit")),
		Offset:    intQueryParam(queryParams.Get("offset")),
		OrderBy:   queryParams.Get("order"),
		Search:    queryParams.Get("search"),
	})
	if err != nil {
		sendServerError(res, err, "failed to get model records")
		return
	}

	sendJSON(res, records)
}

// Expects:
//   - path parameter 'model': name of the model to search in
//   - optional query parameters 'search' and 'limit'
//
// Returns:
//   - JSON-encoded list of db.RelationValue
func (api DashboardAPI) SearchModelRecords(res http.ResponseWriter, req *http.Request) {
	model := req.PathValue("model")
	if model == "" {
		sendClientError(res, nil, "missing 'model' path parameter in request")
		return
	}

	queryParams := req.URL.Query()
	results, err := api.loader.Execute(req.Context(), "get_model_search", loader.Parameters{
		ModelName: model,
		Search:    queryParams.Get("search"),
		Limit:     intQueryParam(queryParams.Get("limit")),
	})
	if err != nil {
		sendServerError(res, err, "failed to search model records")
		return
	}

	sendJSON(res, results)
}

// intQueryParam parses an integer query parameter, with 0 (the engine's
// "use the default" value) for blank or invalid input.
func intQueryParam(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
