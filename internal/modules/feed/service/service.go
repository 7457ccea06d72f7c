package service

import (
	"log/slog"

	"github.com/Ushasricpu/paper/internal/modules/feed/repository"
	"github.com/Ushasricpu/paper/internal/mqtt"
)

type Service struct {
	repository repository.ReadingRepository
	logger     *slog.Logger
}

func NewService(repository repository.ReadingRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

// Register attaches the ingestion handler to subscriber.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s.repository, s.logger)
}
