package market

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestClient(url, key string) *Client {
	return NewClient(url, func(context.Context) string { return key }, 2*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListAssetsCachesListing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v1/cryptocurrency/listings/latest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"status":{"error_code":0,"error_message":null},"data":[
			{"id":1,"name":"Bitcoin","symbol":"BTC","cmc_rank":1,"quote":{"USD":{"price":64123.456789,"percent_change_24h":-1.25,"market_cap":1262000000000}}},
			{"id":1027,"name":"Ethereum","symbol":"ETH","cmc_rank":2,"quote":{"USD":{"price":3012.1,"percent_change_24h":0.5,"market_cap":362000000000}}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	ctx := context.Background()

	assets, err := c.ListAssets(ctx, 2)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.True(t, assets[0].Price.Equal(decimal.RequireFromString("64123.456789")), "price %s", assets[0].Price)
	assert.True(t, assets[0].PercentChange24h.IsNegative())

	_, err = c.ListAssets(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestListAssetsLimit(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", "k").ListAssets(context.Background(), MaxLimit+1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestHistory(t *testing.T) {
	bodies := map[string]string{
		"flat": `{"data":{"id":1,"name":"Bitcoin","quotes":[
			{"timestamp":"2025-03-01T00:00:00Z","quote":{"USD":{"price":61000.5}}},
			{"timestamp":"2025-03-02T00:00:00Z","quote":{"USD":{"price":62000}}}]}}`,
		"keyed": `{"data":{"1":{"id":1,"quotes":[
			{"timestamp":"2025-03-01T00:00:00Z","quote":{"USD":{"price":61000.5}}},
			{"timestamp":"2025-03-02T00:00:00Z","quote":{"USD":{"price":62000}}}]}}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/cryptocurrency/quotes/historical", r.URL.Path)
				assert.Equal(t, "1", r.URL.Query().Get("id"))
				assert.Equal(t, "daily", r.URL.Query().Get("interval"))
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
			points, err := newTestClient(srv.URL, "k").History(context.Background(), 1, start, start.AddDate(0, 0, 2), "")
			require.NoError(t, err)
			require.Len(t, points, 2)
			assert.True(t, points[0].Price.Equal(decimal.RequireFromString("61000.5")))
			assert.True(t, points[1].Time.Equal(start.AddDate(0, 0, 1)))
		})
	}
}

func TestHistoryValidation(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "k")
	start := time.Now()

	tests := []struct {
		name     string
		id       int64
		end      time.Time
		interval string
	}{
		{"bad id", 0, start.Add(time.Hour), "daily"},
		{"end before start", 1, start.Add(-time.Hour), "daily"},
		{"bad interval", 1, start.Add(time.Hour), "fortnightly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.History(context.Background(), tt.id, start, tt.end, tt.interval)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":{"error_code":1002,"error_message":"API key missing."}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "k").ListAssets(context.Background(), 10)
	se, ok := core.AsServiceError(err)
	require.True(t, ok, "error %v is not a ServiceError", err)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "API key missing.", se.Message)
}
