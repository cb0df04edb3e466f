package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockpulse/models"
)

// PriceReader serves persisted bars for chart consumers.
type PriceReader interface {
	PricesSince(ctx context.Context, symbol string, days int) ([]models.StockData, error)
}

// StockController handles the read API for the dashboard.
type StockController struct {
	prices  PriceReader
	symbols []string
	log     zerolog.Logger
}

// NewStockController creates a stock controller.
func NewStockController(prices PriceReader, symbols []string, log zerolog.Logger) *StockController {
	return &StockController{prices: prices, symbols: symbols, log: log}
}

// GetSymbols returns the configured symbol list.
// GET /api/symbols
func (sc *StockController) GetSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": sc.symbols})
}

// GetStockPrices returns a symbol's bars over a lookback window plus derived
// display metrics. Consumers get the same empty-result shape whether the
// range holds no rows or the store is unreachable; they only need to know
// there is nothing to draw.
// GET /api/stocks/:symbol/prices?days=7
func (sc *StockController) GetStockPrices(c *gin.Context) {
	symbol := c.Param("symbol")

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	rows, err := sc.prices.PricesSince(c.Request.Context(), symbol, days)
	if err != nil {
		sc.log.Error().Err(err).Str("symbol", symbol).Msg("price query failed")
		rows = nil
	}

	if len(rows) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"symbol":   symbol,
			"has_data": false,
			"prices":   []models.StockData{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"has_data": true,
		"prices":   rows,
		"metrics":  buildMetrics(rows),
	})
}

// Metrics are the headline numbers the dashboard shows next to the chart.
type Metrics struct {
	LatestClose   float64 `json:"latest_close"`
	ChangePercent string  `json:"change_percent"`
	DailyHigh     float64 `json:"daily_high"`
	DailyLow      float64 `json:"daily_low"`
}

// buildMetrics computes latest/previous close movement and the latest bar's
// high/low. rows must be non-empty and ascending by timestamp.
func buildMetrics(rows []models.StockData) Metrics {
	latest := rows[len(rows)-1]
	m := Metrics{
		LatestClose: latest.Close,
		DailyHigh:   latest.High,
		DailyLow:    latest.Low,
	}

	if len(rows) >= 2 {
		prev := decimal.NewFromFloat(rows[len(rows)-2].Close)
		if !prev.IsZero() {
			change := decimal.NewFromFloat(latest.Close).
				Sub(prev).
				Div(prev).
				Mul(decimal.NewFromInt(100)).
				Round(2)
			m.ChangePercent = change.String()
		}
	}
	return m
}
