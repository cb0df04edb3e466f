package datafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Interval: "5min",
		Timeout:  2 * time.Second,
	}, zerolog.Nop())
	return client, srv
}

func TestFetchSeries(t *testing.T) {
	var gotQuery map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"function": r.URL.Query().Get("function"),
			"symbol":   r.URL.Query().Get("symbol"),
			"interval": r.URL.Query().Get("interval"),
			"apikey":   r.URL.Query().Get("apikey"),
		}
		w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "AAPL"},
			"Time Series (5min)": {
				"2024-01-01 09:30:00": {"1. open": "100.0", "2. high": "101.0", "3. low": "99.5", "4. close": "100.5", "5. volume": "1000"}
			}
		}`))
	})

	resp := client.Fetch(context.Background(), "AAPL")

	require.Equal(t, KindSeries, resp.Kind)
	assert.Contains(t, resp.Payload, "Time Series (5min)")
	assert.Equal(t, map[string]string{
		"function": "TIME_SERIES_INTRADAY",
		"symbol":   "AAPL",
		"interval": "5min",
		"apikey":   "test-key",
	}, gotQuery)
}

func TestFetchRateLimitNotice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Information": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})

	resp := client.Fetch(context.Background(), "AAPL")

	require.Equal(t, KindRateLimited, resp.Kind)
	assert.Contains(t, resp.Notice, "rate limit")
}

func TestFetchBareSeries(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"2024-01-01 09:30:00": {"1. open": "100.0", "2. high": "101.0", "3. low": "99.5", "4. close": "100.5", "5. volume": "1000"}
		}`))
	})

	resp := client.Fetch(context.Background(), "AAPL")
	assert.Equal(t, KindSeries, resp.Kind)
}

func TestFetchMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown object", `{"Error Message": "Invalid API call."}`},
		{"not json", `<html>maintenance</html>`},
		{"wrong interval wrapper", `{"Time Series (1min)": {}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			resp := client.Fetch(context.Background(), "AAPL")
			assert.Equal(t, KindMalformed, resp.Kind)
			assert.Error(t, resp.Err)
		})
	}
}

func TestFetchServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	resp := client.Fetch(context.Background(), "AAPL")
	assert.Equal(t, KindMalformed, resp.Kind)
}

func TestFetchTimeoutIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Interval: "5min",
		Timeout:  50 * time.Millisecond,
	}, zerolog.Nop())

	resp := client.Fetch(context.Background(), "AAPL")
	require.Equal(t, KindMalformed, resp.Kind)
	assert.Error(t, resp.Err)
}

func TestSeriesKeyDerivedFromInterval(t *testing.T) {
	assert.Equal(t, "Time Series (5min)", SeriesKey("5min"))
	assert.Equal(t, "Time Series (1min)", SeriesKey("1min"))
	assert.Equal(t, "Time Series (15min)", SeriesKey("15min"))
}
