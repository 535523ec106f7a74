package historical

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"ctabacktest/pkg/types"
)

// CSVProvider reads bars from a flat OHLCV CSV file. Headers are
// case-insensitive; the time column accepts RFC3339 or UNIX seconds.
// Grounded on the generic candle loader pattern (time|timestamp, open,
// high, low, close, volume) used elsewhere in this codebase's reference
// corpus for backtest data ingestion.
type CSVProvider struct {
	Path     string
	Symbol   string
	Exchange string
	Interval types.Interval
}

// NewCSVProvider creates a provider reading from path.
func NewCSVProvider(path, symbol, exchange string, interval types.Interval) *CSVProvider {
	return &CSVProvider{Path: path, Symbol: symbol, Exchange: exchange, Interval: interval}
}

// LoadBars reads the whole file and returns the rows within [start, end].
func (c *CSVProvider) LoadBars(ctx context.Context, symbol, exchange string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	all, err := c.loadAll()
	if err != nil {
		return nil, err
	}

	var out []types.Bar
	for _, bar := range all {
		if bar.Datetime.Before(start) || bar.Datetime.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// LoadTicks is not supported by the CSV provider; bar-only data sources
// return an empty slice rather than erroring, matching "may be empty".
func (c *CSVProvider) LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time) ([]types.Tick, error) {
	return nil, nil
}

func (c *CSVProvider) loadAll() ([]types.Bar, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []types.Bar
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}

		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}

		ts := first(row, "time", "timestamp", "datetime")
		op := first(row, "open")
		cp := first(row, "close")
		if ts == "" || op == "" || cp == "" {
			continue
		}

		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}

		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(first(row, "high"), 64)
		l, _ := strconv.ParseFloat(first(row, "low"), 64)
		cl, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(first(row, "volume", "vol"), 64)
		oi, _ := strconv.ParseFloat(first(row, "open_interest", "oi"), 64)

		out = append(out, types.Bar{
			Symbol:       c.Symbol,
			Exchange:     c.Exchange,
			Datetime:     tt,
			Interval:     c.Interval,
			Open:         o,
			High:         h,
			Low:          l,
			Close:        cl,
			Volume:       v,
			OpenInterest: oi,
		})
		rowIdx++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return out, nil
}

// parseTimeFlexible supports RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
