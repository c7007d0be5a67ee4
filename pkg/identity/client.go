// Package identity is a read-only client for the tenancy's compartment
// tree. Responses are cached with a TTL'd LRU so repeated lookups within
// one run stay off the wire.
package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/ociauth"
)

const (
	compartmentsPath = "/20160918/compartments"
	tenanciesPath    = "/20160918/tenancies/"

	endpointTemplate = "https://identity.%s.oci.oraclecloud.com"
)

// Config controls the identity client. Durations are strings so the
// values can come straight from the config file.
type Config struct {
	Endpoint  string
	Timeout   string
	CacheSize int
	CacheTTL  string
}

// Compartment is one node of the tenancy's compartment tree
type Compartment struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	LifecycleState string    `json:"lifecycleState"`
	TimeCreated    time.Time `json:"timeCreated"`
}

// Tenancy is the root of the compartment tree
type Tenancy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// cacheEntry wraps cached data with expiration time
type cacheEntry[T any] struct {
	Data      T
	ExpiresAt time.Time
}

// isExpired checks if cache entry is expired
func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Client lists compartments and resolves the tenancy
type Client struct {
	httpClient *http.Client
	endpoint   string
	signer     *ociauth.Signer
	tenantID   string

	compartmentsCache *lru.Cache[string, *cacheEntry[[]Compartment]]
	tenancyCache      *lru.Cache[string, *cacheEntry[*Tenancy]]
	cacheTTL          time.Duration
}

// NewClient creates an identity client scoped to one tenancy. A non-empty
// Config.Endpoint overrides the regional template.
func NewClient(signer *ociauth.Signer, region, tenantID string, cfg *Config) (*Client, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration: %w", err)
	}

	cacheTTL, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid cache ttl duration: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if region == "" {
			return nil, fmt.Errorf("region is required when no endpoint is configured")
		}
		endpoint = fmt.Sprintf(endpointTemplate, region)
	}

	compartmentsCache, err := lru.New[string, *cacheEntry[[]Compartment]](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create compartments cache: %w", err)
	}
	tenancyCache, err := lru.New[string, *cacheEntry[*Tenancy]](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenancy cache: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint:          strings.TrimRight(endpoint, "/"),
		signer:            signer,
		tenantID:          tenantID,
		compartmentsCache: compartmentsCache,
		tenancyCache:      tenancyCache,
		cacheTTL:          cacheTTL,
	}, nil
}

// ListCompartments returns every compartment under the tenancy root,
// following continuation pages. Results are cached per tenancy.
func (c *Client) ListCompartments(ctx context.Context) ([]Compartment, error) {
	log := logger.WithScope("identity")

	if cached, found := c.compartmentsCache.Get(c.tenantID); found && !cached.isExpired() {
		return cached.Data, nil
	}

	var compartments []Compartment
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("compartmentId", c.tenantID)
		params.Set("compartmentIdInSubtree", "true")
		params.Set("accessLevel", "ANY")
		if pageToken != "" {
			params.Set("page", pageToken)
		}

		body, header, err := c.doGET(ctx, c.endpoint+compartmentsPath+"?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var page []Compartment
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode compartment list: %w", err)
		}
		compartments = append(compartments, page...)

		pageToken = header.Get("opc-next-page")
		if pageToken == "" {
			break
		}
	}

	c.compartmentsCache.Add(c.tenantID, &cacheEntry[[]Compartment]{
		Data:      compartments,
		ExpiresAt: time.Now().Add(c.cacheTTL),
	})

	log.Debug().
		Int("compartments", len(compartments)).
		Str("tenant_id", c.tenantID).
		Msg("Compartment list retrieved")

	return compartments, nil
}

// GetTenancy resolves the tenancy root, cached per id
func (c *Client) GetTenancy(ctx context.Context) (*Tenancy, error) {
	if cached, found := c.tenancyCache.Get(c.tenantID); found && !cached.isExpired() {
		return cached.Data, nil
	}

	body, _, err := c.doGET(ctx, c.endpoint+tenanciesPath+url.PathEscape(c.tenantID))
	if err != nil {
		return nil, err
	}

	tenancy := &Tenancy{}
	if err := json.Unmarshal(body, tenancy); err != nil {
		return nil, fmt.Errorf("failed to decode tenancy: %w", err)
	}

	c.tenancyCache.Add(c.tenantID, &cacheEntry[*Tenancy]{
		Data:      tenancy,
		ExpiresAt: time.Now().Add(c.cacheTTL),
	})

	return tenancy, nil
}

// ListCompartmentTree returns every compartment with the root tenancy
// prepended as "Root (<name>)".
func (c *Client) ListCompartmentTree(ctx context.Context) ([]Compartment, error) {
	compartments, err := c.ListCompartments(ctx)
	if err != nil {
		return nil, err
	}
	tenancy, err := c.GetTenancy(ctx)
	if err != nil {
		return nil, err
	}

	tree := make([]Compartment, 0, len(compartments)+1)
	tree = append(tree, Compartment{
		ID:             tenancy.ID,
		Name:           fmt.Sprintf("Root (%s)", tenancy.Name),
		Description:    tenancy.Description,
		LifecycleState: "ACTIVE",
	})
	tree = append(tree, compartments...)
	return tree, nil
}

// doGET performs one signed call and returns the raw body and headers
func (c *Client) doGET(ctx context.Context, requestURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity request: %w", err)
	}
	req.Header.Set("opc-request-id", uuid.NewString())
	if err := c.signer.SignRequest(req, nil); err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &emissions.APIRequestError{Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &emissions.APIRequestError{
			StatusCode:   resp.StatusCode,
			OpcRequestID: resp.Header.Get("opc-request-id"),
			Message:      "failed to read response body",
			Err:          err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &emissions.APIRequestError{
			StatusCode:   resp.StatusCode,
			OpcRequestID: resp.Header.Get("opc-request-id"),
		}
		var doc struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &doc); err == nil && doc.Message != "" {
			apiErr.ServiceCode = doc.Code
			apiErr.Message = doc.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, nil, apiErr
	}

	return body, resp.Header, nil
}
