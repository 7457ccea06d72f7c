package httpapi

import (
	"net/http"
	"time"

	"github.com/Ushasricpu/paper/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(withCORS(mux, cfg.CORSAllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
