// Package remoteconfig serves API keys from a remote JSON document and falls
// back to embedded defaults whenever the document cannot be used.
package remoteconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	KeyOCRAPIKey    = "ocr_api_key"
	KeyMarketAPIKey = "market_api_key"

	serviceName    = "remote config"
	documentKey    = "document"
	failureBackoff = time.Minute
	maxBodyBytes   = 1 << 20
)

// Build-time defaults, set with
// -ldflags "-X fintrack/internal/remoteconfig.BuildOCRAPIKey=..."
var (
	BuildOCRAPIKey    string
	BuildMarketAPIKey string
)

// Defaults merges environment values over the build-time keys.
func Defaults(ocrKey, marketKey string) map[string]string {
	d := map[string]string{
		KeyOCRAPIKey:    BuildOCRAPIKey,
		KeyMarketAPIKey: BuildMarketAPIKey,
	}
	if ocrKey != "" {
		d[KeyOCRAPIKey] = ocrKey
	}
	if marketKey != "" {
		d[KeyMarketAPIKey] = marketKey
	}
	return d
}

type Provider struct {
	url      string
	client   *http.Client
	defaults map[string]string
	document *cache.LRUCache[map[string]string]
	logger   *slog.Logger
}

// New returns a provider. An empty url serves the defaults only.
func New(url string, ttl, timeout time.Duration, defaults map[string]string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		defaults: defaults,
		document: cache.NewLRUCache[map[string]string](1, ttl),
		logger:   logger.With(log.FieldComponent, log.ComponentConfig),
	}
}

// Get returns the remote value for key, or the default when the remote
// document is unavailable or lacks the key.
func (p *Provider) Get(ctx context.Context, key string) string {
	if p.url == "" {
		return p.defaults[key]
	}
	doc, ok := p.document.Get(documentKey)
	if !ok {
		var err error
		doc, err = p.Fetch(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "Remote config unavailable, using defaults", "error", err)
			p.document.SetWithTTL(documentKey, map[string]string{}, failureBackoff)
			return p.defaults[key]
		}
		p.document.Set(documentKey, doc)
	}
	if v := doc[key]; v != "" {
		return v
	}
	return p.defaults[key]
}

// Key binds Get to a single key.
func (p *Provider) Key(key string) func(context.Context) string {
	return func(ctx context.Context) string { return p.Get(ctx, key) }
}

// Fetch downloads the remote document. Non-string values are ignored.
func (p *Provider) Fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, core.NewServiceError(serviceName, 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "unexpected status", nil)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "invalid JSON document", err)
	}
	doc := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			doc[k] = s
		}
	}
	return doc, nil
}
