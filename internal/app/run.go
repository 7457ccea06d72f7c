package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ushasricpu/paper/internal/config"
	"github.com/Ushasricpu/paper/internal/db"
	"github.com/Ushasricpu/paper/internal/httpapi"
	"github.com/Ushasricpu/paper/internal/migrate"
	"github.com/Ushasricpu/paper/internal/modules/feed"
	"github.com/Ushasricpu/paper/internal/modules/heatmap"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/views"
	"github.com/Ushasricpu/paper/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataSourceURL", cfg.DataSourceURL,
		"filterMode", cfg.FilterMode,
		"chartMode", cfg.ChartMode,
		"presenceMode", cfg.PresenceMode,
		"sessionTTL", cfg.SessionTTL,
		"maxSessions", cfg.MaxSessions,
		"feedEnabled", cfg.FeedEnabled,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	var dbConn *sql.DB
	var subscriber *mqtt.Subscriber
	if cfg.FeedEnabled {
		var err error
		dbConn, err = openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(dbConn); closeErr != nil {
				slog.Error("db close", "error", closeErr)
			}
		}()

		if cfg.MQTTEnabled {
			subscriber, err = mqtt.NewSubscriber(cfg, slog.Default().With("component", "mqtt"))
			if err != nil {
				return err
			}
		}
	}

	mux := httpapi.NewMux(dbConn)
	registry, err := heatmap.RegisterFeature(mux, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go registry.RunSweeper(sweepCtx, 0)

	if cfg.FeedEnabled {
		// Set the MQTT handler before Connect so no message arrives unhandled.
		var sub mqtt.MQTTSubscriber
		if subscriber != nil {
			sub = subscriber
		}
		feed.RegisterFeature(mux, dbConn, db.Dialect(cfg.Driver), sub)
	}

	if subscriber != nil {
		// Short timeout so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openDatabase opens the feed database and applies pending migrations.
func openDatabase(cfg config.Config) (*sql.DB, error) {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(dbConn, db.Dialect(cfg.Driver)); err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}

	var ok int
	if err := dbConn.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}
	if ok != 1 {
		_ = db.Close(dbConn)
		return nil, errors.New("database connection failed")
	}
	slog.Info("database connection successful")
	return dbConn, nil
}
