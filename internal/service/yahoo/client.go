package yahoo

import (
	"context"
	"fmt"
	"math"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	xhttp "CrossRisk/pkg/http"
)

// Client implements a MarketDataSource backed by the Yahoo Finance v8 chart
// API. The API answers one symbol per request, so a batched fetch issues one
// request per symbol inside a single call; only the closing-price field of
// the OHLC payload is kept.
type Client struct {
	baseURL   string
	userAgent string
	http      *xhttp.Client
}

// New creates a new Yahoo Finance MarketDataSource.
func New(baseURL, userAgent string, timeout time.Duration) drepo.MarketDataSource {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; crossrisk/1.0)"
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyCloses fetches closing prices for every symbol over the window's
// lookback. Source errors propagate uncaught; a symbol the source knows but
// has no bars for contributes an empty series.
func (c *Client) FetchDailyCloses(ctx context.Context, symbols []string, window models.RiskWindow) (map[string]models.Series, error) {
	out := make(map[string]models.Series, len(symbols))
	for _, symbol := range symbols {
		s, err := c.fetchOne(ctx, symbol, window)
		if err != nil {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
		}
		out[symbol] = s
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, symbol string, window models.RiskWindow) (models.Series, error) {
	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol),
		Headers: map[string]string{
			"User-Agent": c.userAgent,
		},
		QueryParams: map[string][]string{
			"range":    {rangeParam(window)},
			"interval": {window.Interval},
			"events":   {"history"},
		},
	}, &resp)
	if err != nil {
		return models.Series{}, err
	}

	if resp.Chart.Error != nil {
		return models.Series{}, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return models.Series{Label: symbol}, nil
	}

	res := resp.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	s := models.Series{Label: symbol}
	for i, ts := range res.Timestamp {
		if i >= len(closes) {
			break
		}
		// The chart API encodes missing bars as null, which decodes to 0
		// in a []float64; skip those along with explicit NaN.
		if closes[i] == 0 || math.IsNaN(closes[i]) {
			continue
		}
		s.Dates = append(s.Dates, time.Unix(ts, 0).UTC())
		s.Values = append(s.Values, closes[i])
	}
	return s, nil
}

func rangeParam(w models.RiskWindow) string {
	switch {
	case w.LookbackDays <= 180:
		return "6mo"
	case w.LookbackDays <= 366:
		return "1y"
	default:
		return "2y"
	}
}
