package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with /healthz. db may be nil when no database is
// configured, in which case the healthcheck is static.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}
