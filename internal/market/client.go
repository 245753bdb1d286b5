// Package market reads cryptocurrency listings and price history from a
// CoinMarketCap compatible API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	serviceName     = "market data"
	apiKeyHeader    = "X-CMC_PRO_API_KEY"
	quoteCurrency   = "USD"
	listingCacheTTL = 60 * time.Second
	maxBodyBytes    = 8 << 20

	DefaultLimit = 50
	MaxLimit     = 500
)

var intervals = map[string]bool{
	"5m": true, "10m": true, "15m": true, "30m": true, "45m": true,
	"1h": true, "2h": true, "3h": true, "4h": true, "6h": true, "12h": true,
	"daily": true, "weekly": true, "monthly": true,
}

type Asset struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Rank             int             `json:"rank"`
	Price            decimal.Decimal `json:"price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
}

type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Client has no retry; failed calls surface as core.ServiceError.
type Client struct {
	baseURL    string
	apiKey     func(context.Context) string
	httpClient *http.Client
	listings   *cache.LRUCache[[]Asset]
	logger     *slog.Logger
}

func NewClient(baseURL string, apiKey func(context.Context) string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		listings:   cache.NewLRUCache[[]Asset](8, listingCacheTTL),
		logger:     logger.With(log.FieldComponent, log.ComponentMarket),
	}
}

// Listings exposes the listing cache so it can be registered for cleanup.
func (c *Client) Listings() *cache.LRUCache[[]Asset] {
	return c.listings
}

type quote struct {
	Price            decimal.Decimal `json:"price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	Timestamp        time.Time       `json:"timestamp"`
}

type status struct {
	ErrorCode    int     `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type listingsResponse struct {
	Status status `json:"status"`
	Data   []struct {
		ID      int64            `json:"id"`
		Name    string           `json:"name"`
		Symbol  string           `json:"symbol"`
		CMCRank int              `json:"cmc_rank"`
		Quote   map[string]quote `json:"quote"`
	} `json:"data"`
}

type historicalAsset struct {
	ID     int64 `json:"id"`
	Quotes []struct {
		Timestamp time.Time        `json:"timestamp"`
		Quote     map[string]quote `json:"quote"`
	} `json:"quotes"`
}

type historicalResponse struct {
	Status status          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ListAssets returns the top assets by market cap, cached per limit.
func (c *Client) ListAssets(ctx context.Context, limit int) ([]Asset, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", core.ErrValidation, MaxLimit)
	}
	cacheKey := strconv.Itoa(limit)
	if assets, ok := c.listings.Get(cacheKey); ok {
		return assets, nil
	}

	q := url.Values{}
	q.Set("start", "1")
	q.Set("limit", cacheKey)
	q.Set("convert", quoteCurrency)

	var resp listingsResponse
	if err := c.get(ctx, "/v1/cryptocurrency/listings/latest", q, &resp); err != nil {
		return nil, err
	}

	assets := make([]Asset, 0, len(resp.Data))
	for _, d := range resp.Data {
		usd := d.Quote[quoteCurrency]
		assets = append(assets, Asset{
			ID:               d.ID,
			Name:             d.Name,
			Symbol:           d.Symbol,
			Rank:             d.CMCRank,
			Price:            usd.Price,
			PercentChange24h: usd.PercentChange24h,
			MarketCap:        usd.MarketCap,
		})
	}
	c.listings.Set(cacheKey, assets)
	return assets, nil
}

// History returns price points for asset id between start and end.
func (c *Client) History(ctx context.Context, id int64, start, end time.Time, interval string) ([]PricePoint, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid asset id", core.ErrValidation)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", core.ErrValidation)
	}
	if interval == "" {
		interval = "daily"
	}
	if !intervals[interval] {
		return nil, fmt.Errorf("%w: unsupported interval %q", core.ErrValidation, interval)
	}

	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("time_start", start.UTC().Format(time.RFC3339))
	q.Set("time_end", end.UTC().Format(time.RFC3339))
	q.Set("interval", interval)
	q.Set("convert", quoteCurrency)

	var resp historicalResponse
	if err := c.get(ctx, "/v2/cryptocurrency/quotes/historical", q, &resp); err != nil {
		return nil, err
	}

	asset, err := decodeHistorical(resp.Data, id)
	if err != nil {
		return nil, core.NewServiceError(serviceName, http.StatusOK, "invalid price history", err)
	}
	points := make([]PricePoint, 0, len(asset.Quotes))
	for _, hq := range asset.Quotes {
		usd, ok := hq.Quote[quoteCurrency]
		if !ok {
			continue
		}
		points = append(points, PricePoint{Time: hq.Timestamp, Price: usd.Price})
	}
	return points, nil
}

// decodeHistorical accepts both the flat shape and the shape keyed by asset id.
func decodeHistorical(raw json.RawMessage, id int64) (historicalAsset, error) {
	var flat historicalAsset
	if err := json.Unmarshal(raw, &flat); err == nil && (flat.ID != 0 || len(flat.Quotes) > 0) {
		return flat, nil
	}
	var keyed map[string]historicalAsset
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return historicalAsset{}, err
	}
	if a, ok := keyed[strconv.FormatInt(id, 10)]; ok {
		return a, nil
	}
	return historicalAsset{}, fmt.Errorf("asset %d missing from response", id)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	key := c.apiKey(ctx)
	if key == "" {
		return core.NewServiceError(serviceName, 0, "market API key is not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewServiceError(serviceName, 0, "could not reach the market data service", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return core.NewServiceError(serviceName, resp.StatusCode, "could not read the response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var s struct {
			Status status `json:"status"`
		}
		msg := "market data service returned an error"
		if json.Unmarshal(body, &s) == nil && s.Status.ErrorMessage != nil {
			msg = *s.Status.ErrorMessage
		}
		return core.NewServiceError(serviceName, resp.StatusCode, msg, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return core.NewServiceError(serviceName, resp.StatusCode, "invalid response", err)
	}
	c.logger.DebugContext(ctx, "Market data fetched",
		log.FieldPath, path,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
