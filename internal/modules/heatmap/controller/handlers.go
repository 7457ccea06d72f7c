package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/filter"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/view"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/views"
	"github.com/Ushasricpu/paper/internal/utils"
)

// handleDashboard serves the page for the session in the cookie, creating a
// new session when the cookie is missing or the session has expired.
func (c *heatmapControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	v, err := c.sessions.Get(readSessionCookie(r))
	if err != nil {
		v, err = c.sessions.Create(r.Context())
		if err != nil {
			slog.Error("dashboard: create session failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		writeSessionCookie(w, v.ID())
	}

	buses := c.palette.Buses()
	legend := make([]views.BusLegend, 0, len(buses))
	for _, bus := range buses {
		legend = append(legend, views.BusLegend{BusNo: bus, Color: c.palette.LineColor(bus)})
	}
	mode := v.Mode()
	data := &views.DashboardData{
		SessionID:  v.ID(),
		FilterMode: string(mode.Filter),
		ChartMode:  string(mode.Chart),
		Map:        c.mapCfg,
		Filters:    filterInputs(v.Filters()),
		Buses:      legend,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderDashboard(w, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
}

func (c *heatmapControllerImpl) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	v, err := c.sessions.Create(r.Context())
	if err != nil {
		slog.Error("create session failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeSessionCookie(w, v.ID())
	utils.WriteJSON(w, http.StatusCreated, v.Summary())
}

// session resolves the {id} path value, writing a 404 when it is unknown.
func (c *heatmapControllerImpl) session(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}
	v, err := c.sessions.Get(id)
	if errors.Is(err, view.ErrSessionNotFound) {
		utils.WriteError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return v, true
}

func (c *heatmapControllerImpl) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Summary())
}

func (c *heatmapControllerImpl) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := c.sessions.Delete(r.PathValue("id"))
	if errors.Is(err, view.ErrSessionNotFound) {
		utils.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *heatmapControllerImpl) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Filters())
}

// handleSetFilter stores one filter field. A reload failure in server mode is
// logged by the view and the previous data is kept, so it is not an error here.
func (c *heatmapControllerImpl) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	value, err := decodeFilterValue(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := v.SetFilter(r.Context(), filter.Field(r.PathValue("field")), value)
	switch {
	case errors.Is(err, filter.ErrUnknownField):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, view.ErrUnmounted):
		utils.WriteError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		slog.Warn("set filter: reload failed", "session", v.ID(), "error", err)
	}
	utils.WriteJSON(w, http.StatusOK, state)
}

func (c *heatmapControllerImpl) handleApply(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	if err := v.Apply(); err != nil {
		utils.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Summary())
}

func (c *heatmapControllerImpl) handleReload(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	err := v.Reload(r.Context())
	if errors.Is(err, view.ErrUnmounted) {
		utils.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusBadGateway, "failed to load temperature data")
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Summary())
}

func (c *heatmapControllerImpl) handleData(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Current())
}

func (c *heatmapControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Chart())
}

func (c *heatmapControllerImpl) handleLayers(w http.ResponseWriter, r *http.Request) {
	v, ok := c.session(w, r)
	if !ok {
		return
	}
	since, err := parseSince(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, v.Layers(since))
}
