package ociauth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfileDefault(t *testing.T) {
	path := writeCredentials(t, `[DEFAULT]
user=ocid1.user.oc1..alice
fingerprint=aa:bb:cc:dd
key_file=/keys/alice.pem
tenancy=ocid1.tenancy.oc1..acme
region=us-ashburn-1
`)

	p, err := LoadProfile(path, "")
	require.NoError(t, err)
	require.Equal(t, "DEFAULT", p.Name)
	require.Equal(t, "ocid1.user.oc1..alice", p.User)
	require.Equal(t, "aa:bb:cc:dd", p.Fingerprint)
	require.Equal(t, "/keys/alice.pem", p.KeyFile)
	require.Equal(t, "ocid1.tenancy.oc1..acme", p.Tenancy)
	require.Equal(t, "us-ashburn-1", p.Region)
	require.False(t, p.UsesSessionAuth())
	require.Equal(t, "ocid1.tenancy.oc1..acme/ocid1.user.oc1..alice/aa:bb:cc:dd", p.APIKeyID())
}

func TestLoadProfileNamedFallsBackToDefault(t *testing.T) {
	path := writeCredentials(t, `[DEFAULT]
region=us-ashburn-1
key_file=/keys/shared.pem
tenancy=ocid1.tenancy.oc1..acme

[PROD]
user=ocid1.user.oc1..bob
fingerprint=11:22:33:44
region=eu-frankfurt-1
`)

	p, err := LoadProfile(path, "PROD")
	require.NoError(t, err)
	require.Equal(t, "PROD", p.Name)
	require.Equal(t, "ocid1.user.oc1..bob", p.User)
	require.Equal(t, "eu-frankfurt-1", p.Region, "profile value wins over DEFAULT")
	require.Equal(t, "/keys/shared.pem", p.KeyFile, "missing keys fall back to DEFAULT")
	require.Equal(t, "ocid1.tenancy.oc1..acme", p.Tenancy)
}

func TestLoadProfileUnknownSection(t *testing.T) {
	path := writeCredentials(t, `[DEFAULT]
user=ocid1.user.oc1..alice
fingerprint=aa:bb:cc:dd
key_file=/keys/alice.pem
tenancy=ocid1.tenancy.oc1..acme
region=us-ashburn-1
`)

	_, err := LoadProfile(path, "STAGING")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope"), "DEFAULT")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read credentials file")
}

func TestLoadProfileMissingFields(t *testing.T) {
	path := writeCredentials(t, `[DEFAULT]
user=ocid1.user.oc1..alice
region=us-ashburn-1
`)

	_, err := LoadProfile(path, "DEFAULT")
	require.Error(t, err)
	require.Contains(t, err.Error(), "key_file")
	require.Contains(t, err.Error(), "fingerprint")
	require.Contains(t, err.Error(), "tenancy")
	require.NotContains(t, err.Error(), "region")
}

func TestLoadProfileSessionAuth(t *testing.T) {
	path := writeCredentials(t, `[SESSION]
key_file=/keys/session.pem
security_token_file=/keys/token
region=us-phoenix-1
`)

	p, err := LoadProfile(path, "SESSION")
	require.NoError(t, err)
	require.True(t, p.UsesSessionAuth())
	require.Empty(t, p.User, "session profiles do not need user or fingerprint")
	require.Equal(t, "/keys/token", p.SecurityTokenFile)
}

func TestResolveTenancy(t *testing.T) {
	t.Run("from profile", func(t *testing.T) {
		p := &Profile{Name: "DEFAULT", Tenancy: "ocid1.tenancy.oc1..acme"}
		tenancy, err := p.ResolveTenancy()
		require.NoError(t, err)
		require.Equal(t, "ocid1.tenancy.oc1..acme", tenancy)
	})

	t.Run("from session token claim", func(t *testing.T) {
		tokenPath := writeSessionToken(t, "ocid1.tenancy.oc1..fromtoken", futureExpiry())
		p := &Profile{Name: "SESSION", SecurityTokenFile: tokenPath}
		tenancy, err := p.ResolveTenancy()
		require.NoError(t, err)
		require.Equal(t, "ocid1.tenancy.oc1..fromtoken", tenancy)
	})

	t.Run("api key profile without tenancy", func(t *testing.T) {
		p := &Profile{Name: "DEFAULT"}
		_, err := p.ResolveTenancy()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no tenancy")
	})

	t.Run("token without tenant claim", func(t *testing.T) {
		tokenPath := writeSessionToken(t, "", futureExpiry())
		p := &Profile{Name: "SESSION", SecurityTokenFile: tokenPath}
		_, err := p.ResolveTenancy()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no tenant claim")
	})
}
