package api

import (
	"net/http"

	"hermannm.dev/dashboard/engine/loader"
)

// Returns:
//   - JSON-encoded list of schema.ModelInfo, excluding technical models
func (api DashboardAPI) GetModels(res http.ResponseWriter, req *http.Request) {
	models, err := api.loader.Execute(req.Context(), "get_models", loader.Parameters{})
	if err != nil {
		sendServerError(res, err, "failed to list models")
		return
	}

	sendJSON(res, models)
}

// Expects:
//   - path parameter 'model': name of the model to get fields for
//
// Returns:
//   - JSON-encoded list of schema.Field, excluding fields unsuitable for
//     visualization
func (api DashboardAPI) GetModelFields(res http.ResponseWriter, req *http.Request) {
	model := req.PathValue("model")
	if model == "" {
		sendClientError(res, nil, "missing 'model' path parameter in request")
		return
	}

	fields, err := api.loader.Execute(
		req.Context(),
		"get_model_fields",
		loader.Parameters{ModelName: model},
	)
	if err != nil {
		sendServerError(res, err, "failed to get model fields")
		return
	}

	sendJSON(res, fields)
}
