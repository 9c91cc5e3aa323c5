package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the ERP has no record for the requested item.
var ErrNotFound = errors.New("erp: not found")

// Config holds the ERP connection parameters.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client is a minimal HTTP client for the ERP REST API. Every request carries
// the bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	debug      bool
}

// NewClient constructs a new ERP client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		debug:      os.Getenv("ENV") == "development",
	}
}

// ListProducts returns one page of products. Pages start at 1.
func (c *Client) ListProducts(ctx context.Context, page, pageSize int) (*ProductPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("pageSize", fmt.Sprint(pageSize))
	var out ProductPage
	if err := c.doRequest(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct returns a product by ERP id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.doRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProductByCode returns a product by item code.
func (c *Client) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	var out Product
	if err := c.doRequest(ctx, http.MethodGet, "/products/by-code/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct creates a product and returns it with its ERP id.
func (c *Client) CreateProduct(ctx context.Context, in *ProductInput) (*Product, error) {
	var out Product
	if err := c.doRequest(ctx, http.MethodPost, "/products", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct replaces the writable fields of a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in *ProductInput) (*Product, error) {
	var out Product
	if err := c.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

// AdjustInventory applies a relative stock change (negative to decrement).
func (c *Client) AdjustInventory(ctx context.Context, adj *InventoryAdjustment) (*InventoryAdjustmentResult, error) {
	var out InventoryAdjustmentResult
	if err := c.doRequest(ctx, http.MethodPost, "/inventory/adjustments", adj, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks reachability with the smallest listing request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListProducts(ctx, 1, 1)
	return err
}

// doRequest performs the HTTP call with JSON payloads and decodes the JSON
// response into result when result is non-nil.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		if c.debug {
			log.Debug().Str("method", method).Str("endpoint", endpoint).RawJSON("request", payload).Msg("[ERP] Outgoing request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().Str("endpoint", endpoint).Int("status_code", resp.StatusCode).Msg("[ERP] Incoming response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
