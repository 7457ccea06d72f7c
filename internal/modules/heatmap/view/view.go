package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bluele/gcache"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/chart"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/filter"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/heatlayer"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/loader"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

var ErrUnmounted = errors.New("view is unmounted")

// FilterMode selects where filtering happens.
type FilterMode string

const (
	// FilterClient loads everything once and filters locally on Apply.
	FilterClient FilterMode = "client"
	// FilterServer reloads with query parameters on every filter change.
	FilterServer FilterMode = "server"
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterClient:
		return FilterClient, nil
	case FilterServer:
		return FilterServer, nil
	default:
		return FilterClient, fmt.Errorf("invalid filter mode %q (allowed: client, server)", s)
	}
}

type Mode struct {
	Filter FilterMode `json:"filterMode"`
	Chart  chart.Mode `json:"chartMode"`
}

// Summary describes a view for API responses.
type Summary struct {
	ID         string       `json:"id"`
	FilterMode FilterMode   `json:"filterMode"`
	ChartMode  chart.Mode   `json:"chartMode"`
	Filters    filter.State `json:"filters"`
	Revision   uint64       `json:"revision"`
	Buses      int          `json:"buses"`
	Records    int          `json:"records"`
}

// LayerUpdate is the heat overlay delta since a journal sequence. Layers is
// the full live set and is only filled when Reset is true.
type LayerUpdate struct {
	Seq    uint64             `json:"seq"`
	Reset  bool               `json:"reset"`
	Ops    []heatlayer.Op     `json:"ops"`
	Layers []*heatlayer.Layer `json:"layers,omitempty"`
}

// View is one dashboard instance: filter selection, loaded and filtered data,
// heat overlays and chart projection.
type View struct {
	id      string
	mode    Mode
	fetcher loader.Fetcher
	store   *loader.Store
	logger  *slog.Logger

	mu        sync.Mutex
	filters   filter.State
	raw       telemetry.Grouped
	current   telemetry.Grouped
	revision  uint64
	unmounted bool

	journal   *heatlayer.Journal
	adapter   *heatlayer.Adapter
	projector *chart.Projector
	charts    gcache.Cache
}

type Options struct {
	ID      string
	Mode    Mode
	Fetcher loader.Fetcher
	Palette *palette.Palette
	// Charts memoizes projections; a private cache is created when nil.
	Charts       gcache.Cache
	JournalLimit int
	Logger       *slog.Logger
}

func New(opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	charts := opts.Charts
	if charts == nil {
		charts = gcache.New(16).LRU().Build()
	}
	if opts.Mode.Filter == "" {
		opts.Mode.Filter = FilterClient
	}
	if opts.Mode.Chart == "" {
		opts.Mode.Chart = chart.ModeDateBucketed
	}
	journal := heatlayer.NewJournal(opts.JournalLimit)
	return &View{
		id:        opts.ID,
		mode:      opts.Mode,
		fetcher:   opts.Fetcher,
		store:     loader.NewStore(),
		logger:    logger.With("view", opts.ID),
		journal:   journal,
		adapter:   heatlayer.NewAdapter(journal, opts.Palette),
		projector: chart.NewProjector(opts.Mode.Chart, opts.Palette),
		charts:    charts,
	}
}

func (v *View) ID() string { return v.id }

func (v *View) Mode() Mode { return v.mode }

// Mount performs the initial unfiltered load.
func (v *View) Mount(ctx context.Context) error {
	return v.load(ctx)
}

// Reload re-runs the loader, with the current filters in server mode.
func (v *View) Reload(ctx context.Context) error {
	return v.load(ctx)
}

// SetFilter replaces one filter field. In server mode it triggers a reload;
// in client mode the data is unchanged until Apply.
func (v *View) SetFilter(ctx context.Context, field filter.Field, value string) (filter.State, error) {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return filter.State{}, ErrUnmounted
	}
	next, err := v.filters.Set(field, value)
	if err != nil {
		v.mu.Unlock()
		return v.filters, err
	}
	v.filters = next
	v.mu.Unlock()

	if v.mode.Filter == FilterServer {
		if err := v.load(ctx); err != nil {
			return next, err
		}
	}
	return next, nil
}

func (v *View) Filters() filter.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// Apply recomputes the filtered data from the raw data in client mode. It is a
// no-op in server mode.
func (v *View) Apply() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return ErrUnmounted
	}
	if v.mode.Filter != FilterClient {
		return nil
	}
	v.replace(filter.Apply(v.raw, v.filters))
	return nil
}

// Current returns the data the chart and heat overlays are derived from.
func (v *View) Current() telemetry.Grouped {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Chart returns the projection of the current data, memoized per revision.
func (v *View) Chart() chart.Series {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := fmt.Sprintf("%s:%d:%s", v.id, v.revision, v.mode.Chart)
	if cached, err := v.charts.Get(key); err == nil {
		return cached.(chart.Series)
	}
	series := v.projector.Project(v.current)
	if err := v.charts.Set(key, series); err != nil {
		v.logger.Warn("chart cache set failed", "error", err)
	}
	return series
}

// Layers returns the overlay operations recorded after since.
func (v *View) Layers(since uint64) LayerUpdate {
	v.mu.Lock()
	defer v.mu.Unlock()
	ops, reset := v.journal.Since(since)
	u := LayerUpdate{Seq: v.journal.Seq(), Reset: reset, Ops: ops}
	if reset {
		u.Ops = []heatlayer.Op{}
		u.Layers = v.journal.Live()
	}
	return u
}

func (v *View) Summary() Summary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Summary{
		ID:         v.id,
		FilterMode: v.mode.Filter,
		ChartMode:  v.mode.Chart,
		Filters:    v.filters,
		Revision:   v.revision,
		Buses:      v.current.Len(),
		Records:    v.current.Count(),
	}
}

// Unmounted reports whether Unmount has run.
func (v *View) Unmounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unmounted
}

// Unmount removes every heat overlay. Later mutations return ErrUnmounted.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return
	}
	v.unmounted = true
	v.adapter.Unmount()
	v.logger.Debug("view unmounted")
}

// load fetches outside the lock and commits only if no newer load has begun.
func (v *View) load(ctx context.Context) error {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return ErrUnmounted
	}
	var query *filter.State
	if v.mode.Filter == FilterServer && !v.filters.IsZero() {
		f := v.filters
		query = &f
	}
	ticket := v.store.Begin()
	v.mu.Unlock()

	g, err := v.fetcher.Fetch(ctx, query)
	if err != nil {
		v.logger.Error("failed to load temperature data", "error", err)
		return fmt.Errorf("load temperature data: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return ErrUnmounted
	}
	rev, err := v.store.Commit(ticket, g)
	if errors.Is(err, loader.ErrStale) {
		v.logger.Debug("discarding stale load", "ticket", ticket)
		return nil
	}
	v.raw = g
	v.replace(g)
	v.logger.Info("temperature data loaded",
		"load_revision", rev,
		"buses", g.Len(),
		"records", g.Count(),
	)
	return nil
}

// replace swaps the current data and re-renders the overlays. Callers hold mu.
func (v *View) replace(g telemetry.Grouped) {
	v.current = g
	v.revision++
	v.adapter.Render(g)
}
