package telemetry

import "time"

// Telemetry represents a telemetry message published by a bus
type Telemetry struct {
	BusNo       string    `json:"bus_no"`
	Timestamp   time.Time `json:"timestamp"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

// Reading is one row of the /temperature-data response.
// Pointers distinguish an absent value from a zero value.
type Reading struct {
	BusNo        string   `json:"bus_no"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Temperature  *float64 `json:"temperature"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	Datestamp    string   `json:"datestamp"`
	Timestamp    string   `json:"timestamp"`
}

// Temp returns the temperature field, falling back to temperature_c.
func (r Reading) Temp() *float64 {
	if r.Temperature != nil {
		return r.Temperature
	}
	return r.TemperatureC
}

// Response is the body of GET /temperature-data.
type Response struct {
	Data []Reading `json:"data"`
}
