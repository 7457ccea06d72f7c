package heatlayer

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// Point is a [latitude, longitude, intensity] triple.
type Point [3]float64

// Layer is one mounted heat overlay. Layers are immutable; a change in points
// or options produces a new Layer.
type Layer struct {
	ID      string        `json:"id"`
	BusNo   string        `json:"bus_no"`
	Points  []Point       `json:"points"`
	Options palette.Style `json:"options"`
}

// Map receives overlay mounts and unmounts.
type Map interface {
	AddLayer(l *Layer)
	RemoveLayer(l *Layer)
}

// Points projects records to heat triples with temperature as intensity.
func Points(recs []telemetry.Record) []Point {
	out := make([]Point, 0, len(recs))
	for _, r := range recs {
		out = append(out, Point{r.Latitude, r.Longitude, r.Temperature})
	}
	return out
}

// Adapter keeps one overlay per bus on a Map. It is not safe for concurrent use.
type Adapter struct {
	m       Map
	palette *palette.Palette
	mounted map[string]*Layer
}

func NewAdapter(m Map, p *palette.Palette) *Adapter {
	if p == nil {
		p = palette.Default()
	}
	return &Adapter{m: m, palette: p, mounted: make(map[string]*Layer)}
}

// Render reconciles the mounted overlays with g. A bus whose points or options
// changed has its old overlay removed before the new one is added. Buses with
// no points, or missing from g, end up with no overlay.
func (a *Adapter) Render(g telemetry.Grouped) {
	present := make(map[string]bool, g.Len())
	g.Each(func(bus string, recs []telemetry.Record) {
		present[bus] = true
		points := Points(recs)
		opts := a.palette.Style(bus)

		prev := a.mounted[bus]
		if prev != nil && samePoints(prev.Points, points) && prev.Options.Equal(opts) {
			return
		}
		if prev != nil {
			a.m.RemoveLayer(prev)
			delete(a.mounted, bus)
		}
		if len(points) == 0 {
			return
		}
		l := &Layer{ID: uuid.NewString(), BusNo: bus, Points: points, Options: opts}
		a.m.AddLayer(l)
		a.mounted[bus] = l
	})

	var gone []string
	for bus := range a.mounted {
		if !present[bus] {
			gone = append(gone, bus)
		}
	}
	sort.Strings(gone)
	for _, bus := range gone {
		a.m.RemoveLayer(a.mounted[bus])
		delete(a.mounted, bus)
	}
}

// Unmount removes every overlay.
func (a *Adapter) Unmount() {
	buses := make([]string, 0, len(a.mounted))
	for bus := range a.mounted {
		buses = append(buses, bus)
	}
	sort.Strings(buses)
	for _, bus := range buses {
		a.m.RemoveLayer(a.mounted[bus])
		delete(a.mounted, bus)
	}
}

// Mounted returns the number of overlays currently on the map.
func (a *Adapter) Mounted() int { return len(a.mounted) }

func samePoints(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
