package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ushasricpu/paper/internal/modules/feed/types"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

func parseTemperatureQuery(r *http.Request) (types.Query, error) {
	q := r.URL.Query()
	out := types.Query{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
		StartTime: strings.TrimSpace(q.Get("start_time")),
		EndTime:   strings.TrimSpace(q.Get("end_time")),
		BusNo:     strings.TrimSpace(q.Get("bus_no")),
	}

	for _, p := range []struct{ name, value, layout, hint string }{
		{"start_date", out.StartDate, telemetry.DateLayout, "YYYY-MM-DD"},
		{"end_date", out.EndDate, telemetry.DateLayout, "YYYY-MM-DD"},
		{"start_time", out.StartTime, telemetry.TimeLayout, "HH:MM:SS"},
		{"end_time", out.EndTime, telemetry.TimeLayout, "HH:MM:SS"},
	} {
		if p.value == "" {
			continue
		}
		if _, err := time.Parse(p.layout, p.value); err != nil {
			return types.Query{}, fmt.Errorf("invalid '%s' (expected %s)", p.name, p.hint)
		}
	}
	if out.StartDate != "" && out.EndDate != "" && out.StartDate > out.EndDate {
		return types.Query{}, fmt.Errorf("'start_date' must be <= 'end_date'")
	}
	return out, nil
}
