package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockpulse/models"
)

// Gateway persists OHLCV batches and serves lookback queries. Connections
// come from the gorm pool and are released on every exit path.
type Gateway struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewGateway creates a gateway over an established database handle.
func NewGateway(db *gorm.DB, log zerolog.Logger) *Gateway {
	return &Gateway{db: db, log: log}
}

// Upsert writes one symbol's batch in a single all-or-nothing transaction.
// Rows keyed on (timestamp, symbol) are inserted when absent, otherwise their
// open/high/low/close/volume columns are overwritten. If any row fails the
// whole batch rolls back and nothing persists for this symbol. Returns the
// number of rows written.
func (g *Gateway) Upsert(ctx context.Context, symbol string, records []models.StockData) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var written int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "timestamp"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume",
			}),
		}).Create(&records)
		if res.Error != nil {
			return res.Error
		}
		written = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", symbol, err)
	}

	g.log.Debug().Str("symbol", symbol).Int64("rows", written).Msg("batch upserted")
	return written, nil
}

// PricesSince returns the symbol's bars within the last `days` days,
// ascending by timestamp, for chart consumers.
func (g *Gateway) PricesSince(ctx context.Context, symbol string, days int) ([]models.StockData, error) {
	since := time.Now().AddDate(0, 0, -days)

	var rows []models.StockData
	err := g.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ?", symbol, since).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", symbol, err)
	}
	return rows, nil
}
