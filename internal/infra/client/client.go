// Package client is the Go client of the finml HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

const serviceName = "finml"

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("finml API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("finml API returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls a finml server with retry and a circuit breaker.
// 4xx replies are not retried and do not count against the breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent to /retrain.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithResilience overrides the retry parameters.
func WithResilience(cfg resilience.Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         resilience.NewCircuitBreaker(serviceName, logger),
		cfg:        resilience.Config{MaxRetries: 2, InitialBackoff: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*domain.HealthCheck, error) {
	ctx, span := tracer.Start(ctx, "Client.Health")
	defer span.End()

	var out domain.HealthCheck
	if err := c.do(ctx, http.MethodGet, "/health", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categorize calls POST /categorize.
func (c *Client) Categorize(ctx context.Context, description string) (*domain.ClassificationResult, error) {
	ctx, span := tracer.Start(ctx, "Client.Categorize")
	defer span.End()

	var out domain.ClassificationResult
	req := domain.CategorizeRequest{Description: description}
	if err := c.do(ctx, http.MethodPost, "/categorize", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategorizeBatch calls POST /categorize/batch.
func (c *Client) CategorizeBatch(ctx context.Context, descriptions []string) ([]domain.ClassificationResult, error) {
	ctx, span := tracer.Start(ctx, "Client.CategorizeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(descriptions)))

	var out domain.BatchCategorizeResponse
	req := domain.BatchCategorizeRequest{Descriptions: descriptions}
	if err := c.do(ctx, http.MethodPost, "/categorize/batch", req, false, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Forecast calls POST /forecast. A non-positive monthsAhead leaves the
// horizon to the server default.
func (c *Client) Forecast(ctx context.Context, history []domain.HistoricalExpense, monthsAhead int) (*domain.ForecastResult, error) {
	ctx, span := tracer.Start(ctx, "Client.Forecast")
	defer span.End()
	span.SetAttributes(attribute.Int("history.records", len(history)))

	req := domain.ForecastRequest{HistoricalData: history}
	if monthsAhead > 0 {
		req.MonthsAhead = &monthsAhead
	}
	var out domain.ForecastResult
	if err := c.do(ctx, http.MethodPost, "/forecast", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Retrain calls POST /retrain. Retraining is not idempotent, so it is never retried.
func (c *Client) Retrain(ctx context.Context, examples []domain.RetrainExample) (*domain.SuccessResponse, error) {
	ctx, span := tracer.Start(ctx, "Client.Retrain")
	defer span.End()
	span.SetAttributes(attribute.Int("examples", len(examples)))

	var out domain.SuccessResponse
	req := domain.RetrainRequest{TrainingData: examples}
	if err := c.do(ctx, http.MethodPost, "/retrain", req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, once bool, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	cfg := c.cfg
	if once {
		cfg.MaxRetries = 0
	}

	_, err := c.cb.Execute(func() (any, error) {
		err := resilience.RetryWithBackoff(ctx, cfg, func() error {
			return c.roundTrip(ctx, method, path, body, out)
		})
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	})
	if err == nil {
		return nil
	}

	var perm *resilience.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		if resp.StatusCode < http.StatusInternalServerError {
			return resilience.Permanent(apiErr)
		}
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
