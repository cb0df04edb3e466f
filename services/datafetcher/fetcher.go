package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockpulse/models"
)

// DefaultBaseURL is the Alpha Vantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co"

// Kind classifies a provider response. Classification happens once, here at
// the client boundary; downstream code never re-inspects raw JSON shape.
type Kind int

const (
	// KindSeries means the body carries an intraday time series.
	KindSeries Kind = iota
	// KindRateLimited means the provider reported an account-wide quota
	// condition instead of data.
	KindRateLimited
	// KindMalformed covers transport errors, timeouts and unrecognized bodies.
	KindMalformed
)

// Response is the tagged outcome of one fetch.
type Response struct {
	Kind    Kind
	Payload map[string]json.RawMessage // decoded body, set for KindSeries
	Notice  string                     // provider quota message, set for KindRateLimited
	Err     error                      // cause, set for KindMalformed
}

// Client fetches raw intraday series from the market-data provider.
type Client struct {
	http     *resty.Client
	apiKey   string
	interval string
	log      zerolog.Logger
}

// Config carries the provider settings the client needs.
type Config struct {
	BaseURL  string
	APIKey   string
	Interval string // e.g. "5min"
	Timeout  time.Duration
}

// NewClient builds a provider client with a bounded request timeout.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		apiKey:   cfg.APIKey,
		interval: cfg.Interval,
		log:      log,
	}
}

// SeriesKey returns the provider's series label for the configured interval.
func (c *Client) SeriesKey() string {
	return SeriesKey(c.interval)
}

// SeriesKey derives the expected time-series key from the requested interval.
func SeriesKey(interval string) string {
	return fmt.Sprintf("Time Series (%s)", interval)
}

// Fetch issues one request for the symbol's intraday series and classifies
// the result. It never fails outright: transport errors and unparseable
// bodies come back as KindMalformed, quota notices as KindRateLimited. No
// retries are attempted; a failed symbol waits for the next cycle.
func (c *Client) Fetch(ctx context.Context, symbol string) *Response {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "TIME_SERIES_INTRADAY",
			"symbol":   symbol,
			"interval": c.interval,
			"apikey":   c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return &Response{Kind: KindMalformed, Err: fmt.Errorf("fetch %s: %w", symbol, err)}
	}
	if resp.StatusCode() != 200 {
		return &Response{Kind: KindMalformed, Err: fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode())}
	}

	return c.classify(symbol, resp.Body())
}

func (c *Client) classify(symbol string, body []byte) *Response {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return &Response{Kind: KindMalformed, Err: fmt.Errorf("fetch %s: decode body: %w", symbol, err)}
	}

	// The quota notice is account-wide, not specific to this symbol.
	if raw, ok := payload["Information"]; ok {
		var notice string
		_ = json.Unmarshal(raw, &notice)
		return &Response{Kind: KindRateLimited, Notice: notice}
	}

	if _, ok := payload[c.SeriesKey()]; ok {
		return &Response{Kind: KindSeries, Payload: payload}
	}

	// Some provider responses skip the wrapper and return the bare
	// timestamp-keyed series.
	if len(payload) > 0 && looksLikeBareSeries(payload) {
		return &Response{Kind: KindSeries, Payload: payload}
	}

	c.log.Debug().Str("symbol", symbol).Int("keys", len(payload)).Msg("unrecognized provider response shape")
	return &Response{Kind: KindMalformed, Err: fmt.Errorf("fetch %s: no %q key in response", symbol, c.SeriesKey())}
}

func looksLikeBareSeries(payload map[string]json.RawMessage) bool {
	for key := range payload {
		if _, err := time.Parse(models.TimestampLayout, key); err != nil {
			return false
		}
	}
	return true
}
