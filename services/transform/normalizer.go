package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockpulse/models"
)

// Normalization failure reasons, matchable with errors.Is.
var (
	ErrNoSeries     = errors.New("response contains no time series")
	ErrMissingField = errors.New("missing required field")
	ErrBadValue     = errors.New("unparseable field value")
	ErrEmptySeries  = errors.New("time series is empty")
)

var requiredFields = [...]string{"open", "high", "low", "close", "volume"}

// Normalize converts a classified provider payload into OHLCV records sorted
// ascending by timestamp. The payload may be a wrapper object holding the
// series under seriesKey, or a bare timestamp-keyed series; both resolve to
// the same inner mapping. Field keys carry ordinal prefixes ("1. open") that
// are stripped before lookup.
//
// Normalize is pure: it performs no I/O and reports every failure as a typed
// error rather than panicking.
func Normalize(symbol, seriesKey string, payload map[string]json.RawMessage) ([]models.StockData, error) {
	series, err := resolveSeries(seriesKey, payload)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	records := make([]models.StockData, 0, len(series))
	for ts, fields := range series {
		rec, err := buildRecord(symbol, ts, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// resolveSeries locates the timestamp→fields mapping inside the payload.
func resolveSeries(seriesKey string, payload map[string]json.RawMessage) (map[string]map[string]string, error) {
	if len(payload) == 0 {
		return nil, ErrNoSeries
	}

	if raw, ok := payload[seriesKey]; ok {
		var series map[string]map[string]string
		if err := json.Unmarshal(raw, &series); err != nil {
			return nil, fmt.Errorf("%w: series value is not a timestamp mapping", ErrNoSeries)
		}
		return series, nil
	}

	// Bare presentation: the payload itself is the series. Only accept it when
	// every top-level key parses as a bar timestamp.
	series := make(map[string]map[string]string, len(payload))
	for ts, raw := range payload {
		if _, err := time.Parse(models.TimestampLayout, ts); err != nil {
			return nil, fmt.Errorf("%w: expected key %q", ErrNoSeries, seriesKey)
		}
		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: entry %s is not a field mapping", ErrNoSeries, ts)
		}
		series[ts] = fields
	}
	return series, nil
}

// buildRecord parses one timestamp entry into a StockData row.
func buildRecord(symbol, ts string, fields map[string]string) (models.StockData, error) {
	when, err := time.Parse(models.TimestampLayout, ts)
	if err != nil {
		return models.StockData{}, fmt.Errorf("%w: timestamp %q", ErrBadValue, ts)
	}

	canon := make(map[string]string, len(fields))
	for key, value := range fields {
		canon[canonicalField(key)] = value
	}

	values := make(map[string]float64, len(requiredFields))
	for _, name := range requiredFields {
		raw, ok := canon[name]
		if !ok {
			return models.StockData{}, fmt.Errorf("%w: %s at %s", ErrMissingField, name, ts)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.StockData{}, fmt.Errorf("%w: %s=%q at %s", ErrBadValue, name, raw, ts)
		}
		values[name] = v
	}

	volume, err := strconv.ParseInt(canon["volume"], 10, 64)
	if err != nil || volume < 0 {
		return models.StockData{}, fmt.Errorf("%w: volume=%q at %s", ErrBadValue, canon["volume"], ts)
	}

	return models.StockData{
		Timestamp: when,
		Symbol:    symbol,
		Open:      values["open"],
		High:      values["high"],
		Low:       values["low"],
		Close:     values["close"],
		Volume:    volume,
	}, nil
}

// canonicalField strips the provider's ordinal prefix: "1. open" → "open".
func canonicalField(key string) string {
	if idx := strings.Index(key, ". "); idx >= 0 {
		return key[idx+2:]
	}
	return key
}
