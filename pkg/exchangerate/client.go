package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LatestResponse is the payload of the public "latest rates" endpoint.
type LatestResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Client fetches exchange rates from a public API.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient constructs a client for the given "latest" URL (base USD).
func NewClient(url string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		url:        url,
	}
}

// Rate returns how many units of currency one base unit buys.
func (c *Client) Rate(ctx context.Context, currency string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchange rate api: status %d", resp.StatusCode)
	}

	var out LatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Result != "" && out.Result != "success" {
		return 0, fmt.Errorf("exchange rate api: result %q", out.Result)
	}
	rate, ok := out.Rates[currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("exchange rate api: no rate for %s", currency)
	}
	return rate, nil
}
