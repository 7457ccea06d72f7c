package palette

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultLineColor is used for buses without a palette entry.
const DefaultLineColor = "blue"

// Stop is one color stop of a heat gradient, 0 < Offset <= 1.
type Stop struct {
	Offset float64
	Color  string
}

// Style holds the heat overlay options and line color for one bus.
type Style struct {
	Radius    int
	Blur      int
	Gradient  []Stop
	LineColor string
}

// Equal reports whether two styles render identically.
func (s Style) Equal(o Style) bool {
	if s.Radius != o.Radius || s.Blur != o.Blur || s.LineColor != o.LineColor || len(s.Gradient) != len(o.Gradient) {
		return false
	}
	for i := range s.Gradient {
		if s.Gradient[i] != o.Gradient[i] {
			return false
		}
	}
	return true
}

type heatOptionsJSON struct {
	Radius   int               `json:"radius"`
	Blur     int               `json:"blur"`
	Gradient map[string]string `json:"gradient,omitempty"`
}

// MarshalJSON encodes the style as leaflet.heat options.
func (s Style) MarshalJSON() ([]byte, error) {
	out := heatOptionsJSON{Radius: s.Radius, Blur: s.Blur}
	if len(s.Gradient) > 0 {
		out.Gradient = make(map[string]string, len(s.Gradient))
		for _, st := range s.Gradient {
			out.Gradient[strconv.FormatFloat(st.Offset, 'f', -1, 64)] = st.Color
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes leaflet.heat options. The line color is not part of
// the encoding and is left empty.
func (s *Style) UnmarshalJSON(data []byte) error {
	var in heatOptionsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Style{Radius: in.Radius, Blur: in.Blur}
	for k, color := range in.Gradient {
		offset, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("gradient offset %q: %w", k, err)
		}
		out.Gradient = append(out.Gradient, Stop{Offset: offset, Color: color})
	}
	sort.Slice(out.Gradient, func(i, j int) bool { return out.Gradient[i].Offset < out.Gradient[j].Offset })
	*s = out
	return nil
}

// Palette maps bus numbers to styles.
type Palette struct {
	buses    map[string]Style
	fallback Style
}

// Default returns the built-in palette for bus1..bus4.
func Default() *Palette {
	gradient := func(a, b, c string) []Stop {
		return []Stop{{Offset: 0.4, Color: a}, {Offset: 0.65, Color: b}, {Offset: 1, Color: c}}
	}
	return &Palette{
		buses: map[string]Style{
			"bus1": {Radius: 5, Blur: 2, Gradient: gradient("blue", "lime", "green"), LineColor: "blue"},
			"bus2": {Radius: 5, Blur: 2, Gradient: gradient("yellow", "orange", "purple"), LineColor: "yellow"},
			"bus3": {Radius: 5, Blur: 2, Gradient: gradient("pink", "brown", "gold"), LineColor: "pink"},
			"bus4": {Radius: 5, Blur: 2, Gradient: gradient("grey", "lightblue", "silver"), LineColor: "grey"},
		},
		fallback: Style{Radius: 5, Blur: 5, LineColor: DefaultLineColor},
	}
}

// Style returns the style for bus, or the fallback.
func (p *Palette) Style(bus string) Style {
	if s, ok := p.buses[bus]; ok {
		return s
	}
	return p.fallback
}

// LineColor returns the chart line color for bus.
func (p *Palette) LineColor(bus string) string {
	c := p.Style(bus).LineColor
	if c == "" {
		return DefaultLineColor
	}
	return c
}

// Buses returns the configured bus numbers, sorted.
func (p *Palette) Buses() []string {
	out := make([]string, 0, len(p.buses))
	for bus := range p.buses {
		out = append(out, bus)
	}
	sort.Strings(out)
	return out
}

type styleFile struct {
	Radius    *int               `yaml:"radius"`
	Blur      *int               `yaml:"blur"`
	LineColor string             `yaml:"line_color"`
	Gradient  map[float64]string `yaml:"gradient"`
}

type paletteFile struct {
	Fallback *styleFile           `yaml:"fallback"`
	Buses    map[string]styleFile `yaml:"buses"`
}

// Load reads a YAML palette from path and merges it over Default. An empty
// path returns Default.
//
//	fallback: {radius: 5, blur: 5}
//	buses:
//	  bus5: {radius: 6, blur: 3, line_color: teal, gradient: {0.4: teal, 1: navy}}
func Load(path string) (*Palette, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette %s: %w", path, err)
	}
	var f paletteFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse palette %s: %w", path, err)
	}
	if f.Fallback != nil {
		p.fallback = merge(p.fallback, *f.Fallback)
	}
	for bus, sf := range f.Buses {
		base, ok := p.buses[bus]
		if !ok {
			base = p.fallback
		}
		p.buses[bus] = merge(base, sf)
	}
	return p, nil
}

func merge(base Style, f styleFile) Style {
	if f.Radius != nil {
		base.Radius = *f.Radius
	}
	if f.Blur != nil {
		base.Blur = *f.Blur
	}
	if f.LineColor != "" {
		base.LineColor = f.LineColor
	}
	if len(f.Gradient) > 0 {
		stops := make([]Stop, 0, len(f.Gradient))
		for off, color := range f.Gradient {
			stops = append(stops, Stop{Offset: off, Color: color})
		}
		sort.Slice(stops, func(i, j int) bool { return stops[i].Offset < stops[j].Offset })
		base.Gradient = stops
	}
	return base
}
