package controller

import (
	"net/http"

	"github.com/Ushasricpu/paper/internal/modules/feed/repository"
)

type FeedController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type feedControllerImpl struct {
	repository repository.ReadingRepository
}

func NewFeedController(repository repository.ReadingRepository) FeedController {
	return &feedControllerImpl{repository: repository}
}

func (c *feedControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /temperature-data", c.handleTemperatureData)
}
