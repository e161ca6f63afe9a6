package api

import (
	"io"
	"net/http"

	"hermannm.dev/dashboard/engine"
	"hermannm.dev/dashboard/engine/loader"
)

// Expects:
//   - body: JSON-encoded engine.VisualizationSpec, or a list of them
//
// Returns:
//   - JSON-encoded engine.DashboardResponse, keyed by spec id. Failures of
//     individual visualizations are reported inside the response, not as an
//     HTTP error.
func (api DashboardAPI) ProcessDashboard(res http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		sendClientError(res, err, "failed to read request body")
		return
	}

	// Malformed bodies are the caller's bug and rejected up front, unlike
	// per-visualization failures below
	if _, err := engine.NormalizeSpecs(body); err != nil {
		sendClientError(res, err, "invalid dashboard request")
		return
	}

	response, err := api.loader.Execute(
		req.Context(),
		"process_dashboard_request",
		loader.Parameters{RequestData: body},
	)
	if err != nil {
		sendServerError(res, err, "failed to process dashboard request")
		return
	}

	sendJSON(res, response)
}
