package models

import (
	"time"

	"gorm.io/gorm"
)

// TimestampLayout is the provider's bar timestamp format. Alpha Vantage
// reports intraday bars as naive local-exchange timestamps in this shape.
const TimestampLayout = "2006-01-02 15:04:05"

// StockData is one persisted OHLCV bar, uniquely identified by
// (timestamp, symbol). Upserts overwrite the price fields and never touch
// the identity columns.
type StockData struct {
	Timestamp time.Time `gorm:"primaryKey" json:"timestamp"`
	Symbol    string    `gorm:"primaryKey;size:16" json:"symbol"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// TableName keeps the legacy table name used by downstream dashboards.
func (StockData) TableName() string {
	return "stock_data"
}

// MigrateStockModels runs database migrations for the ingestion schema.
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(&StockData{})
}
