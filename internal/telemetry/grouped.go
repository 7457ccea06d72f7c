package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a reading that passed the presence check.
type Record struct {
	BusNo       string  `json:"bus_no"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	Datestamp   string  `json:"datestamp"`
	Timestamp   string  `json:"timestamp"`
}

// PresenceMode decides which readings count as having a position and a temperature.
type PresenceMode string

const (
	// PresenceStrict requires the fields to be present; zero is a valid value.
	PresenceStrict PresenceMode = "strict"
	// PresenceTruthy also rejects zero values. A temperature of exactly 0 is dropped.
	PresenceTruthy PresenceMode = "truthy"
)

func ParsePresenceMode(s string) (PresenceMode, error) {
	switch PresenceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PresenceStrict:
		return PresenceStrict, nil
	case PresenceTruthy:
		return PresenceTruthy, nil
	default:
		return PresenceStrict, fmt.Errorf("invalid presence mode %q (allowed: strict, truthy)", s)
	}
}

// Normalize converts a wire reading into a Record, reporting false when the
// reading lacks latitude, longitude or temperature under mode.
func Normalize(r Reading, mode PresenceMode) (Record, bool) {
	temp := r.Temp()
	if r.Latitude == nil || r.Longitude == nil || temp == nil {
		return Record{}, false
	}
	if mode == PresenceTruthy && (*r.Latitude == 0 || *r.Longitude == 0 || *temp == 0) {
		return Record{}, false
	}
	return Record{
		BusNo:       r.BusNo,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		Temperature: *temp,
		Datestamp:   r.Datestamp,
		Timestamp:   r.Timestamp,
	}, true
}

// Grouped maps bus numbers to their records. Buses keep first-seen order and
// records keep arrival order. A Grouped is never modified after it is built.
type Grouped struct {
	order []string
	byBus map[string][]Record
}

// Buses returns the bus numbers in first-seen order.
func (g Grouped) Buses() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Records returns the records of bus. The slice must not be modified.
func (g Grouped) Records(bus string) []Record {
	return g.byBus[bus]
}

// Has reports whether bus has an entry, even an empty one.
func (g Grouped) Has(bus string) bool {
	_, ok := g.byBus[bus]
	return ok
}

// Len returns the number of bus entries.
func (g Grouped) Len() int { return len(g.order) }

// Count returns the total number of records across all buses.
func (g Grouped) Count() int {
	n := 0
	for _, recs := range g.byBus {
		n += len(recs)
	}
	return n
}

// Each calls fn for every bus in order.
func (g Grouped) Each(fn func(bus string, recs []Record)) {
	for _, bus := range g.order {
		fn(bus, g.byBus[bus])
	}
}

// Flatten concatenates all groups in order.
func (g Grouped) Flatten() []Record {
	out := make([]Record, 0, g.Count())
	g.Each(func(_ string, recs []Record) {
		out = append(out, recs...)
	})
	return out
}

type groupJSON struct {
	BusNo   string   `json:"bus_no"`
	Records []Record `json:"records"`
}

// MarshalJSON encodes the groups as an ordered array of {bus_no, records}.
func (g Grouped) MarshalJSON() ([]byte, error) {
	out := make([]groupJSON, 0, len(g.order))
	g.Each(func(bus string, recs []Record) {
		if recs == nil {
			recs = []Record{}
		}
		out = append(out, groupJSON{BusNo: bus, Records: recs})
	})
	return json.Marshal(out)
}

// Builder accumulates records into a Grouped.
type Builder struct {
	order []string
	byBus map[string][]Record
}

func NewBuilder() *Builder {
	return &Builder{byBus: make(map[string][]Record)}
}

// Add appends rec to its bus, creating the bus entry on first sight.
func (b *Builder) Add(rec Record) {
	if _, ok := b.byBus[rec.BusNo]; !ok {
		b.order = append(b.order, rec.BusNo)
	}
	b.byBus[rec.BusNo] = append(b.byBus[rec.BusNo], rec)
}

// Put sets the records of bus, keeping the bus's original position if it was
// already present. An empty recs still creates the entry.
func (b *Builder) Put(bus string, recs []Record) {
	if _, ok := b.byBus[bus]; !ok {
		b.order = append(b.order, bus)
	}
	cp := make([]Record, len(recs))
	copy(cp, recs)
	b.byBus[bus] = cp
}

// Grouped returns the built value. The builder must not be used afterwards.
func (b *Builder) Grouped() Grouped {
	g := Grouped{order: b.order, byBus: b.byBus}
	b.order, b.byBus = nil, nil
	return g
}

// Group builds a Grouped from readings, dropping those that fail the presence check.
func Group(readings []Reading, mode PresenceMode) Grouped {
	b := NewBuilder()
	for _, r := range readings {
		rec, ok := Normalize(r, mode)
		if !ok {
			continue
		}
		b.Add(rec)
	}
	return b.Grouped()
}
