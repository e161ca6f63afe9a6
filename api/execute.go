package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hermannm.dev/dashboard/engine/loader"
)

type ExecuteRequest struct {
	Action     string            `json:"action"`
	Parameters loader.Parameters `json:"parameters"`
}

type ExecuteResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Generic operation endpoint: runs any named engine operation with the given
// parameters.
//
// Expects:
//   - body: JSON-encoded ExecuteRequest
//
// Returns:
//   - JSON-encoded ExecuteResponse. Operation failures set success=false with
//     an error message, while unknown actions and malformed bodies are HTTP
//     errors.
func (api DashboardAPI) Execute(res http.ResponseWriter, req *http.Request) {
	var body ExecuteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		sendClientError(res, err, "invalid request body")
		return
	}
	if body.Action == "" {
		sendClientError(res, nil, "missing 'action' in request body")
		return
	}

	result, err := api.loader.Execute(req.Context(), body.Action, body.Parameters)
	if err != nil {
		if errors.Is(err, loader.ErrOperationNotFound) {
			sendClientError(res, err, "")
			return
		}
		sendJSON(res, ExecuteResponse{Success: false, Error: err.Error()})
		return
	}

	sendJSON(res, ExecuteResponse{Success: true, Data: result})
}
