package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/filter"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/views"
	"github.com/Ushasricpu/paper/internal/utils"
)

const (
	sessionCookieName   = "heatmap_session"
	sessionCookieMaxAge = 24 * 60 * 60
	maxFilterBodyBytes  = 4 << 10
)

var filterLabels = map[filter.Field]struct {
	label string
	typ   string
}{
	filter.FieldBusNo:     {"Bus", "text"},
	filter.FieldStartDate: {"From date", "date"},
	filter.FieldEndDate:   {"To date", "date"},
	filter.FieldStartTime: {"From time", "time"},
	filter.FieldEndTime:   {"To time", "time"},
}

type setFilterRequest struct {
	Value *string `json:"value"`
}

// parseSince returns the "since" query parameter (default 0).
func parseSince(r *http.Request) (uint64, error) {
	s := r.URL.Query().Get("since")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid 'since' (expected non-negative integer)")
	}
	return n, nil
}

// decodeFilterValue reads {"value": "..."} from the request body.
func decodeFilterValue(r *http.Request) (string, error) {
	var req setFilterRequest
	if err := utils.DecodeJSON(r, &req, maxFilterBodyBytes); err != nil {
		return "", errors.New("invalid body (expected {\"value\": string})")
	}
	if req.Value == nil {
		return "", errors.New("missing 'value'")
	}
	return *req.Value, nil
}

// filterInputs builds the filter bar controls from s in display order.
func filterInputs(s filter.State) []views.FilterInput {
	out := make([]views.FilterInput, 0, len(filter.Fields))
	for _, f := range filter.Fields {
		v, _ := s.Get(f)
		meta := filterLabels[f]
		out = append(out, views.FilterInput{Field: string(f), Label: meta.label, Type: meta.typ, Value: v})
	}
	return out
}

func readSessionCookie(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func writeSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
