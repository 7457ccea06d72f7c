package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ushasricpu/paper/internal/modules/heatmap/filter"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

// Query parameter names understood by /temperature-data.
const (
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamStartTime = "start_time"
	ParamEndTime   = "end_time"
	ParamBusNo     = "bus_no"
)

// Fetcher loads and groups temperature records.
type Fetcher interface {
	Fetch(ctx context.Context, f *filter.State) (telemetry.Grouped, error)
}

type Options struct {
	URL      string
	Timeout  time.Duration
	Presence telemetry.PresenceMode
	Logger   *slog.Logger
}

// Client fetches /temperature-data over HTTP.
type Client struct {
	http     *resty.Client
	url      string
	presence telemetry.PresenceMode
	logger   *slog.Logger
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presence := opts.Presence
	if presence == "" {
		presence = telemetry.PresenceStrict
	}
	hc := resty.New().
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		hc.SetTimeout(opts.Timeout)
	}
	return &Client{http: hc, url: opts.URL, presence: presence, logger: logger}
}

// QueryParams returns the query string for f. A nil or empty state yields no
// parameters; otherwise all five are sent, unset ones empty. Dates are
// formatted YYYY-MM-DD and times HH:mm:ss; unparseable input becomes
// telemetry.InvalidDate.
func QueryParams(f *filter.State) map[string]string {
	if f == nil || f.IsZero() {
		return nil
	}
	format := func(v string, fn func(string) string) string {
		if v == "" {
			return ""
		}
		return fn(v)
	}
	return map[string]string{
		ParamStartDate: format(f.StartDate, telemetry.FormatDate),
		ParamEndDate:   format(f.EndDate, telemetry.FormatDate),
		ParamStartTime: format(f.StartTime, telemetry.FormatTime),
		ParamEndTime:   format(f.EndTime, telemetry.FormatTime),
		ParamBusNo:     f.BusNo,
	}
}

// Fetch issues one GET, with filter parameters when f is non-nil, and groups
// the response by bus.
func (c *Client) Fetch(ctx context.Context, f *filter.State) (telemetry.Grouped, error) {
	var body telemetry.Response
	req := c.http.R().
		SetContext(ctx).
		SetResult(&body)
	if params := QueryParams(f); params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(c.url)
	if err != nil {
		return telemetry.Grouped{}, fmt.Errorf("get %s: %w", c.url, err)
	}
	if resp.IsError() {
		return telemetry.Grouped{}, fmt.Errorf("get %s: unexpected status %d: %s", c.url, resp.StatusCode(), truncate(resp.String(), 200))
	}

	c.logger.Debug("temperature data fetched",
		"url", resp.Request.URL,
		"records", len(body.Data),
		"duration_ms", resp.Time().Milliseconds(),
	)
	return telemetry.Group(body.Data, c.presence), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
