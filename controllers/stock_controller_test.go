package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/models"
)

type fakeReader struct {
	rows []models.StockData
	err  error
}

func (f *fakeReader) PricesSince(_ context.Context, _ string, _ int) ([]models.StockData, error) {
	return f.rows, f.err
}

func newTestRouter(reader *fakeReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sc := NewStockController(reader, []string{"AAPL", "MSFT"}, zerolog.Nop())
	router.GET("/api/symbols", sc.GetSymbols)
	router.GET("/api/stocks/:symbol/prices", sc.GetStockPrices)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func bars(n int) []models.StockData {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	rows := make([]models.StockData, n)
	for i := range rows {
		rows[i] = models.StockData{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:    "AAPL",
			Open:      100,
			High:      101 + float64(i),
			Low:       99 - float64(i),
			Close:     100 + float64(i),
			Volume:    1000,
		}
	}
	return rows
}

func TestGetSymbols(t *testing.T) {
	w, body := get(t, newTestRouter(&fakeReader{}), "/api/symbols")

	assert.Equal(t, http.StatusOK, w.Code)
	var symbols []string
	require.NoError(t, json.Unmarshal(body["symbols"], &symbols))
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestGetStockPricesWithData(t *testing.T) {
	w, body := get(t, newTestRouter(&fakeReader{rows: bars(3)}), "/api/stocks/AAPL/prices?days=7")

	assert.Equal(t, http.StatusOK, w.Code)

	var hasData bool
	require.NoError(t, json.Unmarshal(body["has_data"], &hasData))
	assert.True(t, hasData)

	var metrics Metrics
	require.NoError(t, json.Unmarshal(body["metrics"], &metrics))
	assert.Equal(t, 102.0, metrics.LatestClose)
	assert.Equal(t, 103.0, metrics.DailyHigh)
	assert.Equal(t, 97.0, metrics.DailyLow)
	// (102 - 101) / 101 * 100, rounded to two decimals.
	assert.Equal(t, "0.99", metrics.ChangePercent)
}

func TestGetStockPricesEmpty(t *testing.T) {
	w, body := get(t, newTestRouter(&fakeReader{}), "/api/stocks/AAPL/prices")

	assert.Equal(t, http.StatusOK, w.Code)
	var hasData bool
	require.NoError(t, json.Unmarshal(body["has_data"], &hasData))
	assert.False(t, hasData)
}

func TestGetStockPricesStoreErrorDegrades(t *testing.T) {
	// Store failures look identical to an empty range: same indicator, no 5xx.
	reader := &fakeReader{err: errors.New("connection refused")}
	w, body := get(t, newTestRouter(reader), "/api/stocks/AAPL/prices")

	assert.Equal(t, http.StatusOK, w.Code)
	var hasData bool
	require.NoError(t, json.Unmarshal(body["has_data"], &hasData))
	assert.False(t, hasData)
}

func TestGetStockPricesBadDays(t *testing.T) {
	w, _ := get(t, newTestRouter(&fakeReader{}), "/api/stocks/AAPL/prices?days=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, newTestRouter(&fakeReader{}), "/api/stocks/AAPL/prices?days=-3")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildMetricsSingleBar(t *testing.T) {
	m := buildMetrics(bars(1))
	assert.Equal(t, 100.0, m.LatestClose)
	assert.Empty(t, m.ChangePercent, "no previous close to compare against")
}
