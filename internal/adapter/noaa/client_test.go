package noaa

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func loadEastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestTideExtremes_Success(t *testing.T) {
	loc := loadEastern(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "predictions", r.URL.Query().Get("product"))
		assert.Equal(t, "hilo", r.URL.Query().Get("interval"))
		assert.Equal(t, "8447930", r.URL.Query().Get("station"))
		assert.Equal(t, "20260314", r.URL.Query().Get("begin_date"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":[
			{"t":"2026-03-14 04:12","v":"3.41","type":"H"},
			{"t":"2026-03-14 10:33","v":"0.52","type":"L"},
			{"t":"2026-03-14 16:48","v":"3.18","type":"H"}
		]}`))
	}))
	defer srv.Close()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
	extremes, err := testClient(srv.URL).TideExtremes(context.Background(), "8447930", day, loc)
	require.NoError(t, err)

	require.Len(t, extremes, 3)
	assert.Equal(t, time.Date(2026, 3, 14, 4, 12, 0, 0, loc), extremes[0].Time)
	assert.Equal(t, 3.41, extremes[0].Height)
	assert.True(t, extremes[0].High)
	assert.False(t, extremes[1].High)
	assert.Equal(t, 0.52, extremes[1].Height)
}

func TestTideExtremes_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"message":"No Predictions data was found."}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TideExtremes(context.Background(), "0000000", time.Now(), loadEastern(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No Predictions data")
}

func TestTideExtremes_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TideExtremes(context.Background(), "8447930", time.Now(), loadEastern(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTideExtremes_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TideExtremes(context.Background(), "8447930", time.Now(), loadEastern(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestStationForPort(t *testing.T) {
	id, ok := StationForPort("woods-hole")
	assert.True(t, ok)
	assert.Equal(t, "8447930", id)

	_, ok = StationForPort("narnia-landing")
	assert.False(t, ok)
}
