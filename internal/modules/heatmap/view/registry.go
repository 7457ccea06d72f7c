package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/loader"
	"github.com/Ushasricpu/paper/internal/modules/heatmap/palette"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 256
)

type RegistryOptions struct {
	Mode        Mode
	Fetcher     loader.Fetcher
	Palette     *palette.Palette
	TTL         time.Duration
	MaxSessions int
	Logger      *slog.Logger
	// Clock overrides the expiry clock, for tests.
	Clock gcache.Clock
}

// Registry holds one View per browser session. Sessions expire TTL after
// their last use; expired and evicted views are unmounted.
type Registry struct {
	sessions gcache.Cache
	charts   gcache.Cache
	opts     RegistryOptions
	logger   *slog.Logger
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{opts: opts, logger: logger}

	sb := gcache.New(opts.MaxSessions).
		LRU().
		Expiration(opts.TTL).
		EvictedFunc(func(key, value interface{}) {
			v := value.(*View)
			v.Unmount()
			logger.Info("session closed", "session", key)
		})
	cb := gcache.New(opts.MaxSessions * 4).LRU()
	if opts.Clock != nil {
		sb = sb.Clock(opts.Clock)
		cb = cb.Clock(opts.Clock)
	}
	r.sessions = sb.Build()
	r.charts = cb.Build()
	return r
}

// Create builds a view and performs its initial load. A load failure is
// logged and the view is kept with no data.
func (r *Registry) Create(ctx context.Context) (*View, error) {
	v := New(Options{
		ID:      uuid.NewString(),
		Mode:    r.opts.Mode,
		Fetcher: r.opts.Fetcher,
		Palette: r.opts.Palette,
		Charts:  r.charts,
		Logger:  r.logger,
	})
	if err := v.Mount(ctx); err != nil {
		r.logger.Warn("session created without data", "session", v.ID(), "error", err)
	}
	if err := r.sessions.Set(v.ID(), v); err != nil {
		v.Unmount()
		return nil, err
	}
	r.logger.Info("session created", "session", v.ID(), "filter_mode", v.mode.Filter, "chart_mode", v.mode.Chart)
	return v, nil
}

// Get returns the view for id and extends its lifetime. A view deleted while
// its lifetime is being extended is reported as not found.
func (r *Registry) Get(id string) (*View, error) {
	value, err := r.sessions.Get(id)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	v := value.(*View)
	if err := r.sessions.Set(id, v); err != nil {
		return nil, fmt.Errorf("extend session %s: %w", id, err)
	}
	if v.Unmounted() {
		r.sessions.Remove(id)
		return nil, ErrSessionNotFound
	}
	return v, nil
}

// Delete unmounts and forgets the view for id.
func (r *Registry) Delete(id string) error {
	if !r.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Len returns the number of sessions, counting ones that have expired but
// not yet been collected by Get or Sweep.
func (r *Registry) Len() int {
	return r.sessions.Len(false)
}

// Sweep unmounts and forgets every expired session and returns how many it
// collected. Live sessions keep their LRU position. Expiry is judged by the
// wall clock, not RegistryOptions.Clock.
func (r *Registry) Sweep() int {
	n := 0
	for _, key := range r.sessions.Keys(false) {
		if r.sessions.Has(key) {
			continue
		}
		// Get drops the expired entry and runs the eviction callback.
		if _, err := r.sessions.Get(key); errors.Is(err, gcache.KeyNotFoundError) {
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done. A non-positive
// interval defaults to half the session TTL.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.opts.TTL / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("expired sessions swept", "count", n)
			}
		}
	}
}

// Close unmounts every view.
func (r *Registry) Close() {
	for _, key := range r.sessions.Keys(false) {
		r.sessions.Remove(key)
	}
}
