// Package usageapi is the HTTP client for the metering service's carbon
// emission query endpoint. It implements emissions.QueryClient.
package usageapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/ociauth"
)

const (
	emissionsPath = "/20200107/usageCarbonEmissions"

	// endpointTemplate builds the regional endpoint when no override is
	// configured.
	endpointTemplate = "https://usageapi.%s.oci.customer-oci.com"
)

// Config controls the HTTP client behavior. Durations are strings so the
// values can come straight from the config file.
type Config struct {
	Endpoint      string
	Timeout       string
	RetryAttempts int
	RetryDelay    string
}

// RetryConfig holds the parsed retry policy
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// Client calls the carbon emission query endpoint
type Client struct {
	httpClient  *http.Client
	endpoint    string
	signer      *ociauth.Signer
	retryConfig RetryConfig
}

// NewClient creates a query client for the region's endpoint. A non-empty
// Config.Endpoint overrides the regional template.
func NewClient(signer *ociauth.Signer, region string, cfg *Config) (*Client, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration: %w", err)
	}

	retryDelay, err := time.ParseDuration(cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid retry delay duration: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if region == "" {
			return nil, fmt.Errorf("region is required when no endpoint is configured")
		}
		endpoint = fmt.Sprintf(endpointTemplate, region)
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimRight(endpoint, "/"),
		signer:   signer,
		retryConfig: RetryConfig{
			MaxAttempts: attempts,
			Delay:       retryDelay,
		},
	}, nil
}

// FetchPage executes one query call, retrying transport failures and
// retryable service errors with a fixed delay.
func (c *Client) FetchPage(ctx context.Context, query *emissions.QueryRequest) (*emissions.ResultPage, error) {
	log := logger.WithScope("usageapi")

	payload, err := json.Marshal(newRequestDetails(query))
	if err != nil {
		return nil, fmt.Errorf("failed to encode query request: %w", err)
	}

	requestURL := c.endpoint + emissionsPath
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.PageToken != "" {
		params.Set("page", query.PageToken)
	}
	if encoded := params.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.doRequest(ctx, requestURL, payload)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var apiErr *emissions.APIRequestError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		if attempt < c.retryConfig.MaxAttempts {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("retry_delay", c.retryConfig.Delay).
				Msg("Query request failed, retrying")
			time.Sleep(c.retryConfig.Delay)
		}
	}

	return nil, lastErr
}

// doRequest performs a single signed call and decodes the result page
func (c *Client) doRequest(ctx context.Context, requestURL string, payload []byte) (*emissions.ResultPage, error) {
	log := logger.WithScope("usageapi")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("opc-request-id", uuid.NewString())
	if err := c.signer.SignRequest(req, payload); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &emissions.APIRequestError{Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &emissions.APIRequestError{
			StatusCode:   resp.StatusCode,
			OpcRequestID: resp.Header.Get("opc-request-id"),
			Message:      "failed to read response body",
			Err:          err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newServiceError(resp, body)
	}

	var decoded queryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &emissions.APIRequestError{
			StatusCode:   resp.StatusCode,
			OpcRequestID: resp.Header.Get("opc-request-id"),
			Message:      "failed to decode response body",
			Err:          err,
		}
	}

	items := make([]emissions.EmissionRecord, 0, len(decoded.Items))
	for i := range decoded.Items {
		items = append(items, toRecord(&decoded.Items[i]))
	}

	log.Debug().
		Int("items", len(items)).
		Str("opc_request_id", resp.Header.Get("opc-request-id")).
		Bool("has_next_page", resp.Header.Get("opc-next-page") != "").
		Msg("Query page retrieved")

	return &emissions.ResultPage{
		Items:     items,
		RequestID: resp.Header.Get("opc-request-id"),
		NextPage:  resp.Header.Get("opc-next-page"),
	}, nil
}

// serviceErrorDoc is the provider's JSON error body
type serviceErrorDoc struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newServiceError decodes the service's error document, falling back to
// the raw body when it is not JSON.
func newServiceError(resp *http.Response, body []byte) *emissions.APIRequestError {
	apiErr := &emissions.APIRequestError{
		StatusCode:   resp.StatusCode,
		OpcRequestID: resp.Header.Get("opc-request-id"),
	}
	var doc serviceErrorDoc
	if err := json.Unmarshal(body, &doc); err == nil && doc.Message != "" {
		apiErr.ServiceCode = doc.Code
		apiErr.Message = doc.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
