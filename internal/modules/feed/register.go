package feed

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Ushasricpu/paper/internal/db"
	"github.com/Ushasricpu/paper/internal/modules/feed/controller"
	"github.com/Ushasricpu/paper/internal/modules/feed/repository"
	"github.com/Ushasricpu/paper/internal/modules/feed/service"
	"github.com/Ushasricpu/paper/internal/mqtt"
)

// RegisterFeature serves /temperature-data from conn and, when subscriber is
// non-nil, stores incoming bus telemetry.
func RegisterFeature(mux *http.ServeMux, conn *sql.DB, dialect db.Dialect, subscriber mqtt.MQTTSubscriber) {
	feedRepository := repository.NewRepository(conn, dialect)
	feedController := controller.NewFeedController(feedRepository)
	feedController.RegisterRoutes(mux)

	if subscriber != nil {
		service.NewService(feedRepository, slog.Default().With("module", "feed")).Register(subscriber)
	}
}
