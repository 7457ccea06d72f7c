package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// Mode selects how the x axis is built.
type Mode string

const (
	// ModeIndex emits one label per record, not deduplicated across buses.
	ModeIndex Mode = "index"
	// ModeDateBucketed emits the sorted distinct datestamps and {x, y} points.
	ModeDateBucketed Mode = "date-bucketed"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDateBucketed:
		return ModeDateBucketed, nil
	case ModeIndex:
		return ModeIndex, nil
	default:
		return ModeDateBucketed, fmt.Errorf("invalid chart mode %q (allowed: index, date-bucketed)", s)
	}
}

// Point is one date-bucketed sample.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is one bus line. Data holds []float64 in index mode and []Point in
// date-bucketed mode.
type Dataset struct {
	Label       string `json:"label"`
	Data        any    `json:"data"`
	BorderColor string `json:"borderColor"`
	PointRadius int    `json:"pointRadius,omitempty"`
	Fill        bool   `json:"fill"`
}

// Series is the chart.js data object.
type Series struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Projector struct {
	mode    Mode
	palette *palette.Palette
}

func NewProjector(mode Mode, p *palette.Palette) *Projector {
	if p == nil {
		p = palette.Default()
	}
	return &Projector{mode: mode, palette: p}
}

func (p *Projector) Mode() Mode { return p.mode }

// Project builds a fresh Series from g.
func (p *Projector) Project(g telemetry.Grouped) Series {
	if p.mode == ModeIndex {
		return p.indexed(g)
	}
	return p.dateBucketed(g)
}

func (p *Projector) indexed(g telemetry.Grouped) Series {
	s := Series{Labels: []string{}, Datasets: make([]Dataset, 0, g.Len())}
	g.Each(func(bus string, recs []telemetry.Record) {
		values := make([]float64, 0, len(recs))
		for _, r := range recs {
			s.Labels = append(s.Labels, r.Datestamp)
			values = append(values, r.Temperature)
		}
		s.Datasets = append(s.Datasets, Dataset{
			Label:       bus,
			Data:        values,
			BorderColor: p.palette.LineColor(bus),
		})
	})
	return s
}

func (p *Projector) dateBucketed(g telemetry.Grouped) Series {
	labels := SortDates(distinctDates(g))
	rank := make(map[string]int, len(labels))
	for i, d := range labels {
		rank[d] = i
	}

	s := Series{Labels: labels, Datasets: make([]Dataset, 0, g.Len())}
	g.Each(func(bus string, recs []telemetry.Record) {
		ordered := make([]telemetry.Record, len(recs))
		copy(ordered, recs)
		sort.SliceStable(ordered, func(i, j int) bool {
			return rank[ordered[i].Datestamp] < rank[ordered[j].Datestamp]
		})
		points := make([]Point, 0, len(ordered))
		for _, r := range ordered {
			points = append(points, Point{X: r.Datestamp, Y: r.Temperature})
		}
		s.Datasets = append(s.Datasets, Dataset{
			Label:       bus,
			Data:        points,
			BorderColor: p.palette.LineColor(bus),
			PointRadius: 5,
		})
	})
	return s
}

func distinctDates(g telemetry.Grouped) []string {
	seen := make(map[string]bool)
	var out []string
	g.Each(func(_ string, recs []telemetry.Record) {
		for _, r := range recs {
			if !seen[r.Datestamp] {
				seen[r.Datestamp] = true
				out = append(out, r.Datestamp)
			}
		}
	})
	return out
}

// SortDates orders datestamps chronologically. Unparseable values go last,
// in lexical order.
func SortDates(dates []string) []string {
	out := make([]string, len(dates))
	copy(out, dates)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := telemetry.ParseDate(out[i])
		b, bok := telemetry.ParseDate(out[j])
		switch {
		case aok && bok:
			if a.Equal(b) {
				return out[i] < out[j]
			}
			return a.Before(b)
		case aok:
			return true
		case bok:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
