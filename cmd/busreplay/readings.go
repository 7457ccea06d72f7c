package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ushasricpu/paper/internal/telemetry"
)

// decodeReadings turns a readings body into telemetry messages. Readings
// whose date or time cannot be parsed are skipped and counted.
func decodeReadings(r io.Reader, loc *time.Location) ([]telemetry.Telemetry, int, error) {
	var body telemetry.Response
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode readings: %w", err)
	}

	out := make([]telemetry.Telemetry, 0, len(body.Data))
	skipped := 0
	for _, rd := range body.Data {
		day, ok := telemetry.ParseDate(rd.Datestamp)
		if !ok || rd.BusNo == "" {
			skipped++
			continue
		}
		tod, ok := telemetry.ParseTimeOfDay(rd.Timestamp)
		if !ok {
			skipped++
			continue
		}
		ts := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).Add(tod)
		out = append(out, telemetry.Telemetry{
			BusNo:       rd.BusNo,
			Timestamp:   ts,
			Latitude:    rd.Latitude,
			Longitude:   rd.Longitude,
			Temperature: rd.Temp(),
		})
	}
	return out, skipped, nil
}

// parseOffset parses "+05:30" or "-0700" into a fixed zone.
func parseOffset(s string) (*time.Location, error) {
	for _, layout := range []string{"-07:00", "-0700"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			_, off := t.Zone()
			return time.FixedZone(s, off), nil
		}
	}
	return nil, fmt.Errorf("invalid utc offset %q (expected like +05:30)", s)
}
