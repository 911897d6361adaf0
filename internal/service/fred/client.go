package fred

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	"CrossRisk/internal/service/ratelimit"
	xhttp "CrossRisk/pkg/http"
)

// Client implements a MacroSeriesSource backed by the FRED fredgraph CSV
// endpoint. The source answers one series per request. An API key is
// optional: when configured it is forwarded, when absent the endpoint's
// unauthenticated behavior applies.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	rps     float64
}

// New creates a new FRED MacroSeriesSource. rps bounds the request rate for
// the per-series fetch loop; zero disables pacing.
func New(baseURL, apiKey string, timeout time.Duration, rps float64) drepo.MacroSeriesSource {
	if baseURL == "" {
		baseURL = "https://fred.stlouisfed.org"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		rps:     rps,
	}
}

// FetchSeries fetches one daily series bounded by [from, to]. Missing
// observations (FRED encodes them as ".") are skipped; gap handling is the
// merge pipeline's job.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (models.Series, error) {
	if err := c.wait(ctx); err != nil {
		return models.Series{}, err
	}

	params := map[string][]string{
		"id":   {seriesID},
		"cosd": {from.UTC().Format("2006-01-02")},
		"coed": {to.UTC().Format("2006-01-02")},
	}
	if c.apiKey != "" {
		params["api_key"] = []string{c.apiKey}
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/graph/fredgraph.csv", c.baseURL),
		QueryParams: params,
	}, &body)
	if err != nil {
		return models.Series{}, fmt.Errorf("fred %s: %w", seriesID, err)
	}

	return parseCSV(seriesID, body)
}

// parseCSV decodes a fredgraph CSV response. The header must be exactly
// DATE plus the one requested series; anything else is rejected rather than
// silently taking the first column.
func parseCSV(seriesID string, body []byte) (models.Series, error) {
	r := csv.NewReader(strings.NewReader(string(body)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return models.Series{}, fmt.Errorf("fred %s: read header: %w", seriesID, err)
	}
	if len(header) != 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return models.Series{}, fmt.Errorf("fred %s: unexpected columns %v", seriesID, header)
	}
	if !strings.EqualFold(strings.TrimSpace(header[1]), seriesID) {
		return models.Series{}, fmt.Errorf("fred %s: response is for series %q", seriesID, header[1])
	}

	s := models.Series{Label: seriesID}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Series{}, fmt.Errorf("fred %s: read row: %w", seriesID, err)
		}
		if len(rec) != 2 {
			continue
		}
		raw := strings.TrimSpace(rec[1])
		if raw == "" || raw == "." {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return models.Series{}, fmt.Errorf("fred %s: bad date %q: %w", seriesID, rec[0], err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Series{}, fmt.Errorf("fred %s: bad value %q: %w", seriesID, raw, err)
		}
		s.Dates = append(s.Dates, d)
		s.Values = append(s.Values, v)
	}
	return s, nil
}

// wait blocks until the limiter grants a token for the fred key, or the
// context is done.
func (c *Client) wait(ctx context.Context) error {
	if c.rps <= 0 {
		return nil
	}
	for !c.limiter.Allow("fred", c.rps, c.rps) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}
