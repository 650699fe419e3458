package processor

import (
	"context"
	"fmt"
	"net/http"
)

// HealthCheck implements ports.HealthChecker for the payment processor. It
// verifies reachability only; a 4xx still counts as "up".
type HealthCheck struct {
	client *Client
}

// NewHealthCheck creates a processor health checker.
func NewHealthCheck(client *Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping checks processor connectivity.
func (h *HealthCheck) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.client.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("processor returned status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "processor"
}
