package types

// Query selects stored readings. Empty fields are not applied. Dates are
// YYYY-MM-DD and times HH:MM:SS; bounds are inclusive.
type Query struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	BusNo     string
}
