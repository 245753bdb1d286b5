// Package ocr recognizes receipt text through an OCR.space compatible endpoint.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	serviceName  = "ocr"
	maxBodyBytes = 4 << 20
	engine       = "2"
)

// Client calls the recognition endpoint once per image; it never retries.
type Client struct {
	url        string
	language   string
	apiKey     func(context.Context) string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(url, language string, apiKey func(context.Context) string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        url,
		language:   language,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(log.FieldComponent, log.ComponentOCR),
	}
}

type response struct {
	ParsedResults []struct {
		TextOverlay struct {
			Lines []struct {
				LineText string `json:"LineText"`
			} `json:"Lines"`
		} `json:"TextOverlay"`
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	// ErrorMessage is a string or a list of strings depending on the failure.
	ErrorMessage json.RawMessage `json:"ErrorMessage"`
}

// Recognize uploads the image and returns the recognized text lines in order.
func (c *Client) Recognize(ctx context.Context, image []byte) ([]string, error) {
	key := c.apiKey(ctx)
	if key == "" {
		return nil, core.NewServiceError(serviceName, 0, "OCR API key is not configured", nil)
	}

	body, contentType, err := c.form(key, image)
	if err != nil {
		return nil, fmt.Errorf("build OCR request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewServiceError(serviceName, 0, "could not reach the OCR service", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "could not read the OCR response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "OCR service returned an error", nil)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, core.NewServiceError(serviceName, resp.StatusCode, "invalid OCR response", err)
	}
	if parsed.IsErroredOnProcessing {
		msg := errorMessage(parsed.ErrorMessage)
		if msg == "" {
			msg = "OCR processing failed"
		}
		return nil, core.NewServiceError(serviceName, resp.StatusCode, msg, nil)
	}

	lines := extractLines(parsed)
	c.logger.DebugContext(ctx, "Image recognized",
		"lines", len(lines),
		"bytes", len(image),
		log.FieldDuration, time.Since(start).Milliseconds())
	return lines, nil
}

func (c *Client) form(key string, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"apikey", key},
		{"language", c.language},
		{"isOverlayRequired", "true"},
		{"OCREngine", engine},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", "receipt.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// extractLines prefers overlay lines and falls back to splitting the plain text.
func extractLines(r response) []string {
	var lines []string
	for _, res := range r.ParsedResults {
		if len(res.TextOverlay.Lines) > 0 {
			for _, l := range res.TextOverlay.Lines {
				if s := strings.TrimSpace(l.LineText); s != "" {
					lines = append(lines, s)
				}
			}
			continue
		}
		for _, l := range strings.Split(strings.ReplaceAll(res.ParsedText, "\r\n", "\n"), "\n") {
			if s := strings.TrimSpace(l); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return lines
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
