// Package client provides the catalog HTTP client with retry, error
// classification and request metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
)

// Prometheus metrics for catalog client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_audit_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_audit_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_audit_errors_total",
		Help: "Total catalog request errors by class",
	}, []string{"class"})
)

// Catalog API paths.
const (
	ListingPath = "/api/catalog_system/pvt/sku/stockkeepingunitids"
	DetailPath  = "/api/catalog_system/pvt/sku/stockkeepingunitbyid"
)

// Credential headers expected by the catalog API.
const (
	HeaderAppKey   = "X-VTEX-API-AppKey"
	HeaderAppToken = "X-VTEX-API-AppToken"
)

// Endpoint labels used in metrics and logs.
const (
	endpointListing = "listing"
	endpointDetail  = "detail"
)

// Config holds the client configuration.
type Config struct {
	// Account is the tenant name used to build the API host.
	Account string

	// AppKey and AppToken are sent as credential headers on every request.
	AppKey   string
	AppToken string

	// BaseURL overrides https://{Account}.vtexcommercestable.com.br.
	BaseURL string

	// UserAgent header.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry policy shared by listing and detail requests.
	Retry RetryConfig
}

// DefaultConfig returns a configuration with default timeout and retry policy.
func DefaultConfig(account, appKey, appToken string) Config {
	return Config{
		Account:   account,
		AppKey:    appKey,
		AppToken:  appToken,
		UserAgent: "catalog-audit/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client talks to the catalog API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Account == "" || cfg.AppKey == "" || cfg.AppToken == "" {
		return nil, errors.WithHint(ErrMissingCredentials, "account, app key and app token are all required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.vtexcommercestable.com.br", cfg.Account)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", baseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "catalog-audit/0.1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		config:  cfg,
	}, nil
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// ListSKUIDs fetches one page of SKU identifiers from the listing endpoint.
// An empty slice means the listing is exhausted.
func (c *Client) ListSKUIDs(ctx context.Context, page, pageSize int) ([]catalog.SKUID, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	target := c.baseURL + ListingPath + "?" + q.Encode()

	var ids []catalog.SKUID
	_, err := c.getJSON(ctx, endpointListing, target, func(body []byte) error {
		ids = nil
		return json.Unmarshal(body, &ids)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list sku ids page %d", page)
	}
	return ids, nil
}

// FetchSKU fetches the detail record of one SKU.
//
// Only a 200 response with a decodable record is a success. When every
// attempt fails the error is a *FetchExhaustedError. Client errors (4xx)
// fail fast with a *CatalogError unless RetryClientErrors is set.
func (c *Client) FetchSKU(ctx context.Context, id catalog.SKUID) (*catalog.SKUDetail, error) {
	target := c.baseURL + DetailPath + "/" + url.PathEscape(string(id))

	var detail catalog.SKUDetail
	attempts, err := c.getJSON(ctx, endpointDetail, target, func(body []byte) error {
		detail = catalog.SKUDetail{}
		if err := json.Unmarshal(body, &detail); err != nil {
			return err
		}
		if detail.ProductID == "" {
			return errors.New("detail record has no ProductId")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRetryExhausted) {
			return nil, &FetchExhaustedError{SKU: id, Attempts: attempts, Err: err}
		}
		return nil, errors.Wrapf(err, "fetch sku %s", id)
	}
	if detail.ID == "" {
		detail.ID = id
	}
	return &detail, nil
}

// getJSON performs a GET with the configured retry policy and hands the
// body of the first 200 response to decode. A decode failure is retried
// like a transport failure.
func (c *Client) getJSON(ctx context.Context, endpoint, target string, decode func([]byte) error) (int, error) {
	logger := logging.FromContext(ctx, "catalog-client").With().
		Str("account", c.config.Account).
		Str("endpoint", endpoint).
		Logger()

	return retryWithBackoff(ctx, c.config.Retry, logger, func(attempt int) (ErrorClass, error) {
		return c.attempt(ctx, logger, endpoint, target, attempt, decode)
	})
}

func (c *Client) attempt(ctx context.Context, logger zerolog.Logger, endpoint, target string, attempt int, decode func([]byte) error) (ErrorClass, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		// not retryable: the request itself is malformed
		return "", errors.Wrap(err, "create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("Catalog request failed")
		return ErrorClassNetwork, errors.Wrapf(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return ErrorClassNetwork, errors.Wrapf(err, "read %s response body", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		logger.Debug().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Msg("Catalog request returned non-success status")
		return errClass, &CatalogError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Endpoint:   endpoint,
			Message:    resp.Status,
		}
	}

	if err := decode(body); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return ErrorClassNetwork, errors.Wrapf(err, "malformed %s response", endpoint)
	}

	return "", nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderAppKey, c.config.AppKey)
	req.Header.Set(HeaderAppToken, c.config.AppToken)
}
