package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ushasricpu/paper/internal/telemetry"
)

var ErrUnknownField = errors.New("unknown filter field")

type Field string

const (
	FieldBusNo     Field = "bus_no"
	FieldStartDate Field = "startDate"
	FieldEndDate   Field = "endDate"
	FieldStartTime Field = "startTime"
	FieldEndTime   Field = "endTime"
)

// Fields lists the settable fields in display order.
var Fields = []Field{FieldBusNo, FieldStartDate, FieldEndDate, FieldStartTime, FieldEndTime}

// State is the user's filter selection. An empty string means unset.
type State struct {
	BusNo     string `json:"bus_no"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Set returns a copy of s with field replaced by value. Values are not validated.
func (s State) Set(field Field, value string) (State, error) {
	switch field {
	case FieldBusNo:
		s.BusNo = value
	case FieldStartDate:
		s.StartDate = value
	case FieldEndDate:
		s.EndDate = value
	case FieldStartTime:
		s.StartTime = value
	case FieldEndTime:
		s.EndTime = value
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return s, nil
}

// Get returns the value of field.
func (s State) Get(field Field) (string, error) {
	switch field {
	case FieldBusNo:
		return s.BusNo, nil
	case FieldStartDate:
		return s.StartDate, nil
	case FieldEndDate:
		return s.EndDate, nil
	case FieldStartTime:
		return s.StartTime, nil
	case FieldEndTime:
		return s.EndTime, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// IsZero reports whether no field is set.
func (s State) IsZero() bool {
	return s == State{}
}

func (s State) hasDateRange() bool { return s.StartDate != "" || s.EndDate != "" }
func (s State) hasTimeRange() bool { return s.StartTime != "" || s.EndTime != "" }

// Apply derives the filtered view of g: bus, then date range, then time of day.
// Each stage runs only when one of its fields is set. Unset bounds are open.
// A bound or record value that cannot be parsed excludes the record.
func Apply(g telemetry.Grouped, s State) telemetry.Grouped {
	out := g
	if s.BusNo != "" {
		out = byBus(out, s.BusNo)
	}
	if s.hasDateRange() {
		out = byDate(out, s.StartDate, s.EndDate)
	}
	if s.hasTimeRange() {
		out = byTime(out, s.StartTime, s.EndTime)
	}
	return out
}

func byBus(g telemetry.Grouped, bus string) telemetry.Grouped {
	b := telemetry.NewBuilder()
	if g.Has(bus) {
		b.Put(bus, g.Records(bus))
	}
	return b.Grouped()
}

func byDate(g telemetry.Grouped, start, end string) telemetry.Grouped {
	var lo, hi time.Time
	var loOK, hiOK bool
	if start != "" {
		lo, loOK = telemetry.ParseDate(start)
	}
	if end != "" {
		hi, hiOK = telemetry.ParseDate(end)
	}
	return keep(g, func(rec telemetry.Record) bool {
		if (start != "" && !loOK) || (end != "" && !hiOK) {
			return false
		}
		day, ok := telemetry.ParseDate(rec.Datestamp)
		if !ok {
			return false
		}
		if start != "" && day.Before(lo) {
			return false
		}
		if end != "" && day.After(hi) {
			return false
		}
		return true
	})
}

func byTime(g telemetry.Grouped, start, end string) telemetry.Grouped {
	var lo, hi time.Duration
	var loOK, hiOK bool
	if start != "" {
		lo, loOK = telemetry.ParseTimeOfDay(start)
	}
	if end != "" {
		hi, hiOK = telemetry.ParseTimeOfDay(end)
	}
	return keep(g, func(rec telemetry.Record) bool {
		if (start != "" && !loOK) || (end != "" && !hiOK) {
			return false
		}
		tod, ok := telemetry.ParseTimeOfDay(rec.Timestamp)
		if !ok {
			return false
		}
		if start != "" && tod < lo {
			return false
		}
		if end != "" && tod > hi {
			return false
		}
		return true
	})
}

// keep retains the records matching pred, keeping every bus entry even when
// it ends up empty.
func keep(g telemetry.Grouped, pred func(telemetry.Record) bool) telemetry.Grouped {
	b := telemetry.NewBuilder()
	g.Each(func(bus string, recs []telemetry.Record) {
		kept := make([]telemetry.Record, 0, len(recs))
		for _, rec := range recs {
			if pred(rec) {
				kept = append(kept, rec)
			}
		}
		b.Put(bus, kept)
	})
	return b.Grouped()
}
