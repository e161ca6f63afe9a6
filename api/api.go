// Package api exposes the dashboard engine over HTTP. All engine access goes
// through the loader, so requests keep working across engine updates.
package api

import (
	"fmt"
	"net/http"

	"hermannm.dev/dashboard/config"
	"hermannm.dev/dashboard/engine/loader"
)

type DashboardAPI struct {
	loader *loader.Loader
	router *http.ServeMux
	config config.BaseConfig
}

func NewDashboardAPI(
	engineLoader *loader.Loader,
	router *http.ServeMux,
	config config.BaseConfig,
) DashboardAPI {
	api := DashboardAPI{loader: engineLoader, router: router, config: config}

	api.router.HandleFunc("POST /dashboard", api.ProcessDashboard)
	api.router.HandleFunc("POST /execute", api.Execute)
	api.router.HandleFunc("GET /models", api.GetModels)
	api.router.HandleFunc("GET /model_fields/{model}", api.GetModelFields)
	api.router.HandleFunc("GET /model_records/{model}", api.GetModelRecords)
	api.router.HandleFunc("GET /model_search/{model}", api.SearchModelRecords)
	api.router.HandleFunc("GET /engine/version", api.GetEngineVersion)
	api.router.HandleFunc("POST /engine/check-updates", api.CheckEngineUpdates)

	return api
}

func (api DashboardAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.API.Port), api.router)
}
