package heatmap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Ushasricpu/paper/internal/config"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/chart"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/controller"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/loader"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/view"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/views"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// RegisterFeature mounts the dashboard and its session API on mux. The
// returned registry must be closed on shutdown.
func RegisterFeature(mux *http.ServeMux, cfg config.Config) (*view.Registry, error) {
	filterMode, err := view.ParseFilterMode(cfg.FilterMode)
	if err != nil {
		return nil, err
	}
	chartMode, err := chart.ParseMode(cfg.ChartMode)
	if err != nil {
		return nil, err
	}
	presence, err := telemetry.ParsePresenceMode(cfg.PresenceMode)
	if err != nil {
		return nil, err
	}
	pal, err := palette.Load(cfg.PaletteFile)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}

	logger := slog.Default().With("module", "heatmap")
	fetcher := loader.NewClient(loader.Options{
		URL:      cfg.DataSourceURL,
		Timeout:  cfg.LoaderTimeout,
		Presence: presence,
		Logger:   logger,
	})
	registry := view.NewRegistry(view.RegistryOptions{
		Mode:        view.Mode{Filter: filterMode, Chart: chartMode},
		Fetcher:     fetcher,
		Palette:     pal,
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})

	heatmapController := controller.NewHeatmapController(registry, pal, views.MapConfig{
		TileURL:   cfg.TileURL,
		CenterLat: cfg.MapCenterLat,
		CenterLng: cfg.MapCenterLng,
		Zoom:      cfg.MapZoom,
	})
	heatmapController.RegisterRoutes(mux)
	return registry, nil
}
