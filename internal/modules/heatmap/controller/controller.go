package controller

import (
	"context"
	"net/http"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/view"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/views"
)

type HeatmapController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Sessions is the view registry used by the controller.
type Sessions interface {
	Create(ctx context.Context) (*view.View, error)
	Get(id string) (*view.View, error)
	Delete(id string) error
}

type heatmapControllerImpl struct {
	sessions Sessions
	palette  *palette.Palette
	mapCfg   views.MapConfig
}

func NewHeatmapController(sessions Sessions, p *palette.Palette, mapCfg views.MapConfig) HeatmapController {
	if p == nil {
		p = palette.Default()
	}
	return &heatmapControllerImpl{sessions: sessions, palette: p, mapCfg: mapCfg}
}

func (c *heatmapControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("POST /api/v1/sessions", c.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", c.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/filters", c.handleGetFilters)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/filters/{field}", c.handleSetFilter)
	mux.HandleFunc("POST /api/v1/sessions/{id}/apply", c.handleApply)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reload", c.handleReload)
	mux.HandleFunc("GET /api/v1/sessions/{id}/data", c.handleData)
	mux.HandleFunc("GET /api/v1/sessions/{id}/chart", c.handleChart)
	mux.HandleFunc("GET /api/v1/sessions/{id}/layers", c.handleLayers)
}
