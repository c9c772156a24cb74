package sideshift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://sideshift.ai/api/v2"

// Client talks to the SideShift v2 REST API. It never retries.
type Client struct {
	baseURL     string
	secret      string
	affiliateID string
	client      *http.Client
}

func NewClient(baseURL, secret, affiliateID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		secret:      secret,
		affiliateID: affiliateID,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) AffiliateID() string {
	return c.affiliateID
}

// ListCoins returns every coin the exchange supports.
func (c *Client) ListCoins(ctx context.Context) ([]Coin, error) {
	var coins []Coin
	if err := c.do(ctx, http.MethodGet, "/coins", nil, nil, &coins); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCoins, err)
	}
	return coins, nil
}

// CheckPermissions asks whether shifts may be created for userIP. An empty
// userIP lets the exchange use the caller's address.
func (c *Client) CheckPermissions(ctx context.Context, userIP string) (Permissions, error) {
	headers := map[string]string{}
	if userIP != "" {
		headers["x-user-ip"] = userIP
	}
	var perm Permissions
	if err := c.do(ctx, http.MethodGet, "/permissions", nil, headers, &perm); err != nil {
		return Permissions{}, fmt.Errorf("%w: %w", ErrPermissions, err)
	}
	return perm, nil
}

// RequestFixedQuote locks a rate for the requested pair and amount.
func (c *Client) RequestFixedQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.AffiliateID == "" {
		req.AffiliateID = c.affiliateID
	}
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/quotes", req, c.secretHeader(), &q); err != nil {
		return Quote{}, fmt.Errorf("%w: %w", ErrQuote, err)
	}
	if q.ID == "" {
		return Quote{}, fmt.Errorf("%w: %w: quote without id", ErrQuote, ErrInternalParse)
	}
	return q, nil
}

// CreateFixedShift turns a quote into an order with a deposit address.
func (c *Client) CreateFixedShift(ctx context.Context, req FixedShiftRequest) (Shift, error) {
	if req.AffiliateID == "" {
		req.AffiliateID = c.affiliateID
	}
	var s Shift
	if err := c.do(ctx, http.MethodPost, "/shifts/fixed", req, c.secretHeader(), &s); err != nil {
		return Shift{}, fmt.Errorf("%w: %w", ErrShiftCreation, err)
	}
	if s.ID == "" || s.DepositAddress == "" {
		return Shift{}, fmt.Errorf("%w: %w: shift without deposit address", ErrShiftCreation, ErrInternalParse)
	}
	return s, nil
}

func (c *Client) GetShift(ctx context.Context, id string) (Shift, error) {
	var s Shift
	if err := c.do(ctx, http.MethodGet, "/shifts/"+url.PathEscape(id), nil, c.secretHeader(), &s); err != nil {
		return Shift{}, fmt.Errorf("%w: %w", ErrShiftStatus, err)
	}
	return s, nil
}

func (c *Client) secretHeader() map[string]string {
	if c.secret == "" {
		return nil
	}
	return map[string]string{"x-sideshift-secret": c.secret}
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInternalParse, err)
	}
	return nil
}
