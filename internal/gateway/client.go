package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4096

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// HTTPClient is a throttled JSON client for one provider.
type HTTPClient struct {
	service    string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a client for service rooted at baseURL.
func NewHTTPClient(service, baseURL string, opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, int(opts.RatePerSecond))
	}
	return &HTTPClient{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// PostJSON sends body to path and decodes the response into out. idempotencyKey is
// forwarded so the provider can de-duplicate.
func (c *HTTPClient) PostJSON(ctx context.Context, operation, path, idempotencyKey string, body, out any) (err error) {
	ctx, span := observability.StartClientCall(ctx, c.service, operation)
	start := time.Now()
	defer func() {
		observability.ObserveGateway(c.service, operation, start, err)
		observability.EndSpan(span, err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if cid := observability.ExtractCorrelationID(ctx); cid != "" {
		req.Header.Set("X-Correlation-ID", cid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Service: c.service, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// PaymentClient implements PaymentGateway over HTTP.
type PaymentClient struct {
	http *HTTPClient
}

func NewPaymentClient(c *HTTPClient) *PaymentClient {
	return &PaymentClient{http: c}
}

func (p *PaymentClient) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	var out IntentResponse
	if err := p.http.PostJSON(ctx, "create_intent", "/v1/payment-intents", req.IdempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PaymentClient) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	var out RefundResponse
	if err := p.http.PostJSON(ctx, "refund", "/v1/refunds", req.IdempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScreeningClient implements ScreeningProvider over HTTP.
type ScreeningClient struct {
	http *HTTPClient
}

func NewScreeningClient(c *HTTPClient) *ScreeningClient {
	return &ScreeningClient{http: c}
}

func (s *ScreeningClient) RequestCheck(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	var out CheckResponse
	if err := s.http.PostJSON(ctx, "request_check", "/v1/checks", req.IdempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
