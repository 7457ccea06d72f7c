package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
)

var dashboardTmpl *template.Template

// LoadTemplatesFS loads dashboard templates from dir in fsys. On failure no
// templates stay loaded and rendering fails until a later load succeeds.
func LoadTemplatesFS(fsys fs.FS, dir string) error {
	dashboardTmpl = nil
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return LoadTemplatesFS(viewsFS, "templates")
}

// MapConfig positions the base map.
type MapConfig struct {
	TileURL   string
	CenterLat float64
	CenterLng float64
	Zoom      int
}

// FilterInput is one control in the filter bar.
type FilterInput struct {
	Field string
	Label string
	Type  string // text, date or time
	Value string
}

// BusLegend is a bus with its chart line color.
type BusLegend struct {
	BusNo string
	Color string
}

type DashboardData struct {
	SessionID  string
	FilterMode string
	ChartMode  string
	Map        MapConfig
	Filters    []FilterInput
	Buses      []BusLegend
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderFiltersPartial executes only the filter bar into w.
func RenderFiltersPartial(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "filters", data)
}
