package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/config"
)

const (
	apiVersion  = "2024-01"
	maxAttempts = 3
)

// Client reads catalog data from the Shopify Admin GraphQL API.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger

	// backoff is the wait used when Shopify throttles without a Retry-After.
	backoff time.Duration
}

func NewClient(cfg config.ShopifyConfig, logger *zap.Logger) *Client {
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.ShopDomain, "https://"), "http://"), "/")
	return &Client{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, apiVersion),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger.With(zap.String("shop", domain)),
		backoff:     2 * time.Second,
	}
}

// WithEndpoint points the client at a different GraphQL URL.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data       json.RawMessage `json:"data"`
	Errors     []QueryError    `json:"errors,omitempty"`
	Extensions struct {
		Cost struct {
			RequestedQueryCost int `json:"requestedQueryCost"`
			ThrottleStatus     struct {
				CurrentlyAvailable float64 `json:"currentlyAvailable"`
			} `json:"throttleStatus"`
		} `json:"cost"`
	} `json:"extensions"`
}

// QueryError is a single entry of a GraphQL "errors" array.
type QueryError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// QueryErrors is returned when Shopify answers 200 with a non-empty errors array.
type QueryErrors []QueryError

func (e QueryErrors) Error() string {
	msgs := make([]string, len(e))
	for i, qe := range e {
		msgs[i] = qe.Message
	}
	return "shopify graphql: " + strings.Join(msgs, "; ")
}

func (e QueryErrors) throttled() bool {
	for _, qe := range e {
		if qe.Extensions.Code == "THROTTLED" {
			return true
		}
	}
	return false
}

// query runs a GraphQL query and returns its data payload. Throttled calls
// are retried up to maxAttempts times.
func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	for attempt := 1; ; attempt++ {
		data, wait, err := c.post(ctx, payload)
		if err == nil {
			return data, nil
		}
		if wait < 0 || attempt == maxAttempts {
			return nil, err
		}
		c.logger.Warn("Shopify throttled the request, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// post sends one request. A non-negative wait means the call may be retried
// after that long.
func (c *Client) post(ctx context.Context, payload []byte) (json.RawMessage, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, c.retryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("shopify API error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, -1, fmt.Errorf("shopify API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out graphqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, -1, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(out.Errors) > 0 {
		errs := QueryErrors(out.Errors)
		if errs.throttled() {
			return nil, c.backoff, errs
		}
		return nil, -1, errs
	}

	c.logger.Debug("Shopify query cost",
		zap.Int("requested", out.Extensions.Cost.RequestedQueryCost),
		zap.Float64("available", out.Extensions.Cost.ThrottleStatus.CurrentlyAvailable))
	return out.Data, 0, nil
}

func (c *Client) retryAfter(header string) time.Duration {
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return c.backoff
}
