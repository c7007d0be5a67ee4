package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/pkg/ociauth"
)

const testTenancy = "ocid1.tenancy.oc1..acme"

func newTestSigner(t *testing.T) *ociauth.Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(keyPath, data, 0o600))

	signer, err := ociauth.NewSigner(&ociauth.Profile{
		Name:        "DEFAULT",
		User:        "ocid1.user.oc1..alice",
		Fingerprint: "aa:bb:cc:dd",
		KeyFile:     keyPath,
		Tenancy:     testTenancy,
		Region:      "us-ashburn-1",
	})
	require.NoError(t, err)
	return signer
}

func newTestClient(t *testing.T, endpoint, cacheTTL string) *Client {
	t.Helper()
	client, err := NewClient(newTestSigner(t), "", testTenancy, &Config{
		Endpoint:  endpoint,
		Timeout:   "5s",
		CacheSize: 128,
		CacheTTL:  cacheTTL,
	})
	require.NoError(t, err)
	return client
}

func TestListCompartmentsFetchesAndCaches(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		query = r.URL.RawQuery
		mu.Unlock()
		require.Equal(t, "/20160918/compartments", r.URL.Path)
		io.WriteString(w, `[
			{"id":"ocid1.compartment.oc1..dev","name":"dev","lifecycleState":"ACTIVE"},
			{"id":"ocid1.compartment.oc1..prod","name":"prod","lifecycleState":"ACTIVE"}
		]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "10m")

	compartments, err := client.ListCompartments(context.Background())
	require.NoError(t, err)
	require.Len(t, compartments, 2)
	require.Equal(t, "dev", compartments[0].Name)
	require.Contains(t, query, "compartmentIdInSubtree=true")
	require.Contains(t, query, "accessLevel=ANY")
	require.Contains(t, query, "compartmentId=ocid1.tenancy.oc1..acme")

	again, err := client.ListCompartments(context.Background())
	require.NoError(t, err)
	require.Equal(t, compartments, again)
	require.Equal(t, 1, calls, "second lookup is served from cache")
}

func TestListCompartmentsFollowsPages(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			require.NotContains(t, r.URL.RawQuery, "page=")
			w.Header().Set("opc-next-page", "page-2")
			io.WriteString(w, `[{"id":"c1","name":"one"},{"id":"c2","name":"two"}]`)
			return
		}
		require.Contains(t, r.URL.RawQuery, "page=page-2")
		io.WriteString(w, `[{"id":"c3","name":"three"}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "10m")

	compartments, err := client.ListCompartments(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, compartments, 3)
	require.Equal(t, "three", compartments[2].Name)
}

func TestListCompartmentsCacheExpiry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		io.WriteString(w, `[{"id":"c1","name":"one"}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "1ms")

	_, err := client.ListCompartments(context.Background())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = client.ListCompartments(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls, "expired entries are refetched")
}

func TestGetTenancyCaches(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		require.Equal(t, "/20160918/tenancies/"+testTenancy, r.URL.Path)
		io.WriteString(w, `{"id":"`+testTenancy+`","name":"acme","description":"Acme Corp"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "10m")

	tenancy, err := client.GetTenancy(context.Background())
	require.NoError(t, err)
	require.Equal(t, "acme", tenancy.Name)

	_, err = client.GetTenancy(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestListCompartmentTreePrependsRoot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/20160918/compartments" {
			io.WriteString(w, `[{"id":"ocid1.compartment.oc1..dev","name":"dev","lifecycleState":"ACTIVE"}]`)
			return
		}
		io.WriteString(w, `{"id":"`+testTenancy+`","name":"acme","description":"Acme Corp"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "10m")

	tree, err := client.ListCompartmentTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Equal(t, "Root (acme)", tree[0].Name)
	require.Equal(t, testTenancy, tree[0].ID)
	require.Equal(t, "ACTIVE", tree[0].LifecycleState)
	require.True(t, tree[0].TimeCreated.IsZero())
	require.Equal(t, "dev", tree[1].Name)
}

func TestIdentityErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("opc-request-id", "req-denied")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"code":"NotAuthorizedOrNotFound","message":"resource does not exist"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "10m")

	_, err := client.ListCompartments(context.Background())
	require.Error(t, err)

	var apiErr *emissions.APIRequestError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "NotAuthorizedOrNotFound", apiErr.ServiceCode)
	require.Equal(t, "req-denied", apiErr.OpcRequestID)
}

func TestNewClientValidation(t *testing.T) {
	signer := newTestSigner(t)

	t.Run("regional endpoint from template", func(t *testing.T) {
		client, err := NewClient(signer, "ap-sydney-1", testTenancy,
			&Config{Timeout: "30s", CacheSize: 128, CacheTTL: "10m"})
		require.NoError(t, err)
		require.Equal(t, "https://identity.ap-sydney-1.oci.oraclecloud.com", client.endpoint)
	})

	t.Run("missing region and endpoint", func(t *testing.T) {
		_, err := NewClient(signer, "", testTenancy,
			&Config{Timeout: "30s", CacheSize: 128, CacheTTL: "10m"})
		require.Error(t, err)
	})

	t.Run("invalid cache ttl", func(t *testing.T) {
		_, err := NewClient(signer, "ap-sydney-1", testTenancy,
			&Config{Timeout: "30s", CacheSize: 128, CacheTTL: "soon"})
		require.Error(t, err)
	})

	t.Run("invalid cache size", func(t *testing.T) {
		_, err := NewClient(signer, "ap-sydney-1", testTenancy,
			&Config{Timeout: "30s", CacheSize: 0, CacheTTL: "10m"})
		require.Error(t, err)
	})
}
