package historical

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"ctabacktest/pkg/types"
)

// RestProvider fetches bar/tick windows from an HTTP market-data service.
// Built the way the reference corpus's REST clients are built: a resty
// client with a fixed base URL, bounded timeout, and automatic retry on
// server errors.
type RestProvider struct {
	http *resty.Client
}

// NewRestProvider creates a REST-backed historical data provider.
func NewRestProvider(baseURL, apiKey string) *RestProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &RestProvider{http: client}
}

type barsResponse struct {
	Bars []restBar `json:"bars"`
}

type restBar struct {
	Datetime     time.Time `json:"datetime"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	OpenInterest float64   `json:"open_interest"`
}

// LoadBars fetches one window of bars from GET /bars.
func (p *RestProvider) LoadBars(ctx context.Context, symbol, exchange string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	var result barsResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"exchange": exchange,
			"interval": string(interval),
			"start":    start.Format(time.RFC3339),
			"end":      end.Format(time.RFC3339),
		}).
		SetResult(&result).
		Get("/bars")
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("load bars: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]types.Bar, len(result.Bars))
	for i, b := range result.Bars {
		out[i] = types.Bar{
			Symbol:       symbol,
			Exchange:     exchange,
			Datetime:     b.Datetime,
			Interval:     interval,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			OpenInterest: b.OpenInterest,
		}
	}
	return out, nil
}

type ticksResponse struct {
	Ticks []restTick `json:"ticks"`
}

type restTick struct {
	Datetime  time.Time `json:"datetime"`
	LastPrice float64   `json:"last_price"`
	BidPrice1 float64   `json:"bid_price_1"`
	AskPrice1 float64   `json:"ask_price_1"`
}

// LoadTicks fetches one window of ticks from GET /ticks.
func (p *RestProvider) LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time) ([]types.Tick, error) {
	var result ticksResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"exchange": exchange,
			"start":    start.Format(time.RFC3339),
			"end":      end.Format(time.RFC3339),
		}).
		SetResult(&result).
		Get("/ticks")
	if err != nil {
		return nil, fmt.Errorf("load ticks: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("load ticks: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]types.Tick, len(result.Ticks))
	for i, tk := range result.Ticks {
		out[i] = types.Tick{
			Symbol:    symbol,
			Exchange:  exchange,
			Datetime:  tk.Datetime,
			LastPrice: tk.LastPrice,
			BidPrice1: tk.BidPrice1,
			AskPrice1: tk.AskPrice1,
		}
	}
	return out, nil
}
