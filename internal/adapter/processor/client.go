package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"stablecoin-checkout/config"
	"stablecoin-checkout/pkg/apperror"

	"github.com/rs/zerolog"
)

const apiKeyHeader = "X-API-KEY"

// Client is the HTTP client for the payment processor. Every request carries
// the server-held API key; the key never reaches the browser boundary.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a processor client from configuration.
func NewClient(cfg config.ProcessorConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// do performs one processor request and decodes the JSON response into out.
// Non-2xx responses become PROC_001 errors carrying the processor's message
// and raw payload; there are no retries at this layer.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.ErrProcessor("", fmt.Errorf("processor request: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.ErrProcessor("", fmt.Errorf("read processor response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("processor request failed")
		return apperror.ErrProcessor(
			extractMessage(raw),
			fmt.Errorf("processor status %d: %s", resp.StatusCode, string(raw)),
		)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperror.ErrProcessor("", fmt.Errorf("decode processor response: %w", err))
		}
	}
	return nil
}

// extractMessage pulls the processor's human-readable message out of an error
// payload, falling back to empty (generic message) on unparseable bodies.
func extractMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
