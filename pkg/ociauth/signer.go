package ociauth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/utils"
)

var (
	baseSigningHeaders = []string{"date", "(request-target)", "host"}
	bodySigningHeaders = []string{"content-length", "content-type", "x-content-sha256"}
)

// Signer signs outgoing API requests: RSA-SHA256 over the canonical header
// string, key id taken from the profile (API key) or the session token.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewSigner builds a Signer from a loaded profile. Session profiles use the
// security token as key id and warn when the token has already expired.
func NewSigner(p *Profile) (*Signer, error) {
	log := logger.WithScope("ociauth")

	key, err := LoadPrivateKey(p.KeyFile)
	if err != nil {
		return nil, err
	}

	keyID := p.APIKeyID()
	if p.UsesSessionAuth() {
		token, err := LoadSecurityToken(p.SecurityTokenFile)
		if err != nil {
			return nil, err
		}
		if token.Expired(utils.Now()) {
			log.Warn().
				Str("profile", p.Name).
				Time("expired_at", token.ExpiresAt).
				Msg("Security token is expired, re-authenticate the session")
		}
		keyID = token.KeyID()
	}

	return &Signer{keyID: keyID, key: key}, nil
}

// LoadPrivateKey reads an RSA private key in PKCS#1 or PKCS#8 PEM form.
// Encrypted keys are not supported.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %v", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	if _, encrypted := block.Headers["DEK-Info"]; encrypted || block.Type == "ENCRYPTED PRIVATE KEY" {
		return nil, fmt.Errorf("private key %s is encrypted, decrypt it before use", path)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %v", path, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %v", path, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key %s is not an RSA key", path)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q in %s", block.Type, path)
	}
}

// KeyID exposes the signing key id, mostly for diagnostics.
func (s *Signer) KeyID() string {
	return s.keyID
}

// SignRequest sets the date header, hashes the body on write methods, and
// attaches the Authorization signature header. The body must be the exact
// bytes the request will send.
func (s *Signer) SignRequest(req *http.Request, body []byte) error {
	req.Header.Set("date", utils.Now().UTC().Format(http.TimeFormat))

	headers := make([]string, 0, len(baseSigningHeaders)+len(bodySigningHeaders))
	headers = append(headers, baseSigningHeaders...)
	if requiresBodyHeaders(req.Method) {
		if req.Header.Get("content-type") == "" {
			req.Header.Set("content-type", "application/json")
		}
		sum := sha256.Sum256(body)
		req.Header.Set("x-content-sha256", base64.StdEncoding.EncodeToString(sum[:]))
		req.Header.Set("content-length", strconv.Itoa(len(body)))
		headers = append(headers, bodySigningHeaders...)
	}

	hashed := sha256.Sum256([]byte(buildSigningString(req, headers)))
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hashed[:])
	if err != nil {
		return fmt.Errorf("failed to sign request: %v", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf(
		"Signature version=%q,keyId=%q,algorithm=%q,headers=%q,signature=%q",
		"1", s.keyID, "rsa-sha256", strings.Join(headers, " "),
		base64.StdEncoding.EncodeToString(signature),
	))
	return nil
}

// buildSigningString assembles the canonical header lines in signing order.
func buildSigningString(req *http.Request, headers []string) string {
	parts := make([]string, 0, len(headers))
	for _, name := range headers {
		switch name {
		case "(request-target)":
			parts = append(parts, fmt.Sprintf("(request-target): %s %s",
				strings.ToLower(req.Method), req.URL.RequestURI()))
		case "host":
			host := req.Host
			if host == "" {
				host = req.URL.Host
			}
			parts = append(parts, "host: "+host)
		default:
			parts = append(parts, name+": "+req.Header.Get(name))
		}
	}
	return strings.Join(parts, "\n")
}

func requiresBodyHeaders(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
