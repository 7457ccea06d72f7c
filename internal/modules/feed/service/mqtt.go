package service

import (
	"errors"
	"log/slog"

	"github.com/Ushasricpu/paper/internal/modules/feed/repository"
	"github.com/Ushasricpu/paper/internal/mqtt"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// registerMQTTHandler stores each bus reading; redeliveries of a stored
// reading are dropped.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, repo repository.ReadingRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(t telemetry.Telemetry) error {
		logger.Debug("processing telemetry message",
			"bus_no", t.BusNo,
			"timestamp", t.Timestamp,
		)

		err := repo.InsertReading(t)
		if errors.Is(err, repository.ErrDuplicate) {
			logger.Debug("duplicate telemetry ignored", "bus_no", t.BusNo, "timestamp", t.Timestamp)
			return nil
		}
		if err != nil {
			logger.Error("failed to insert reading",
				"bus_no", t.BusNo,
				"error", err,
			)
			return err
		}

		logger.Debug("successfully stored telemetry", "bus_no", t.BusNo)
		return nil
	})
}
