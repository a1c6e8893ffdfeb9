// Package noaa fetches tide predictions from the NOAA CO-OPS API. Scoring
// only needs the high/low extremes around "now", so the client requests
// the hilo interval rather than full hourly curves.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// stations maps port slugs to NOAA tide station IDs.
var stations = map[string]string{
	"woods-hole":     "8447930",
	"hyannis":        "8447605",
	"vineyard-haven": "8448558",
	"oak-bluffs":     "8448725",
	"nantucket":      "8449130",
}

// StationForPort returns the tide station serving a port slug.
func StationForPort(slug string) (string, bool) {
	id, ok := stations[slug]
	return id, ok
}

// Client fetches tide predictions for one station and day.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a NOAA CO-OPS client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// TideExtremes fetches the predicted highs and lows for a station on one
// local day. Timestamps in the response are station-local; loc must match.
func (c *Client) TideExtremes(ctx context.Context, stationID string, day time.Time, loc *time.Location) ([]domain.TideExtreme, error) {
	params := url.Values{
		"product":    {"predictions"},
		"interval":   {"hilo"},
		"datum":      {"MLLW"},
		"station":    {stationID},
		"begin_date": {day.In(loc).Format("20060102")},
		"end_date":   {day.In(loc).Add(24 * time.Hour).Format("20060102")},
		"time_zone":  {"lst_ldt"},
		"units":      {"english"},
		"format":     {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tide predictions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("noaa API error: status %d: %s", resp.StatusCode, body)
	}

	var noaaResp response
	if err := json.NewDecoder(resp.Body).Decode(&noaaResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if noaaResp.Error.Message != "" {
		return nil, fmt.Errorf("noaa API error: %s", noaaResp.Error.Message)
	}

	extremes := make([]domain.TideExtreme, 0, len(noaaResp.Predictions))
	for _, p := range noaaResp.Predictions {
		at, err := time.ParseInLocation("2006-01-02 15:04", p.Time, loc)
		if err != nil {
			return nil, fmt.Errorf("parse prediction time %q: %w", p.Time, err)
		}
		height, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse prediction height %q: %w", p.Value, err)
		}
		extremes = append(extremes, domain.TideExtreme{
			Time:   at,
			Height: height,
			High:   p.Type == "H",
		})
	}
	return extremes, nil
}

// NOAA CO-OPS response types.

type response struct {
	Predictions []prediction `json:"predictions"`
	Error       apiError     `json:"error"`
}

type prediction struct {
	Time  string `json:"t"`
	Value string `json:"v"`
	Type  string `json:"type"` // "H" or "L"
}

type apiError struct {
	Message string `json:"message"`
}
