package api

import (
	"net/http"
)

type EngineVersionResponse struct {
	Version string `json:"version"`
}

// Returns:
//   - JSON-encoded EngineVersionResponse with the currently active engine
//     version
func (api DashboardAPI) GetEngineVersion(res http.ResponseWriter, req *http.Request) {
	sendJSON(res, EngineVersionResponse{Version: api.loader.CurrentVersion()})
}

// Triggers an immediate engine update check against the configured manifest.
//
// Returns:
//   - JSON-encoded loader.UpdateStatus
func (api DashboardAPI) CheckEngineUpdates(res http.ResponseWriter, req *http.Request) {
	manifestURL := api.config.Engine.UpdateManifestURL
	if manifestURL == "" {
		sendClientError(res, nil, "engine updates are not configured")
		return
	}

	status, err := api.loader.CheckForUpdates(req.Context(), manifestURL)
	if err != nil {
		sendServerError(res, err, "engine update check failed")
		return
	}

	sendJSON(res, status)
}
