// Package ociauth loads SDK-style credentials profiles and signs outgoing
// API requests with the draft-cavage HTTP signature scheme the provider
// endpoints expect. Both API-key profiles and session (security token)
// profiles are supported.
package ociauth

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/utils"
)

const (
	// DefaultConfigPath is the conventional credentials file location.
	DefaultConfigPath = "~/.oci/config"

	// DefaultProfileName selects the unnamed top section of the file.
	DefaultProfileName = "DEFAULT"
)

// ErrProfileNotFound is returned when the requested profile section does
// not exist in the credentials file.
var ErrProfileNotFound = errors.New("profile not found")

// Profile holds one credentials profile from an ~/.oci/config style INI
// file. Paths are home-expanded at load time.
type Profile struct {
	Name              string
	User              string
	Fingerprint       string
	KeyFile           string
	Tenancy           string
	Region            string
	SecurityTokenFile string
}

// LoadProfile reads one profile from the INI file at path. Keys missing
// from a named profile fall back to the DEFAULT section, matching the
// provider SDK's config loader. Empty path and name select the defaults.
func LoadProfile(path, name string) (*Profile, error) {
	log := logger.WithScope("ociauth")

	if path == "" {
		path = DefaultConfigPath
	}
	if name == "" {
		name = DefaultProfileName
	}
	path = utils.ExpandHome(path)

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %v", path, err)
	}

	section := file.Section(ini.DefaultSection)
	if name != DefaultProfileName {
		section, err = file.GetSection(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, path)
		}
	}

	p := &Profile{
		Name:              name,
		User:              profileValue(file, section, "user"),
		Fingerprint:       profileValue(file, section, "fingerprint"),
		KeyFile:           utils.ExpandHome(profileValue(file, section, "key_file")),
		Tenancy:           profileValue(file, section, "tenancy"),
		Region:            profileValue(file, section, "region"),
		SecurityTokenFile: utils.ExpandHome(profileValue(file, section, "security_token_file")),
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("profile", p.Name).
		Str("region", p.Region).
		Bool("session_auth", p.UsesSessionAuth()).
		Msg("Credentials profile loaded")

	return p, nil
}

// profileValue reads a key from the profile section, falling back to the
// DEFAULT section the way configparser-based loaders do.
func profileValue(file *ini.File, section *ini.Section, key string) string {
	if section.HasKey(key) {
		return strings.TrimSpace(section.Key(key).String())
	}
	def := file.Section(ini.DefaultSection)
	if def.HasKey(key) {
		return strings.TrimSpace(def.Key(key).String())
	}
	return ""
}

func (p *Profile) validate() error {
	var missing []string
	if p.Region == "" {
		missing = append(missing, "region")
	}
	if p.KeyFile == "" {
		missing = append(missing, "key_file")
	}
	if !p.UsesSessionAuth() {
		if p.User == "" {
			missing = append(missing, "user")
		}
		if p.Fingerprint == "" {
			missing = append(missing, "fingerprint")
		}
		if p.Tenancy == "" {
			missing = append(missing, "tenancy")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("profile %q is missing required fields: %s", p.Name, strings.Join(missing, ", "))
	}
	return nil
}

// UsesSessionAuth reports whether the profile authenticates with a
// security token instead of an API key.
func (p *Profile) UsesSessionAuth() bool {
	return p.SecurityTokenFile != ""
}

// APIKeyID builds the API-key signing key id.
func (p *Profile) APIKeyID() string {
	return p.Tenancy + "/" + p.User + "/" + p.Fingerprint
}

// ResolveTenancy returns the tenancy OCID, reading it from the security
// token claim when a session profile omits it.
func (p *Profile) ResolveTenancy() (string, error) {
	if p.Tenancy != "" {
		return p.Tenancy, nil
	}
	if !p.UsesSessionAuth() {
		return "", fmt.Errorf("profile %q has no tenancy", p.Name)
	}
	token, err := LoadSecurityToken(p.SecurityTokenFile)
	if err != nil {
		return "", err
	}
	if token.Tenant == "" {
		return "", fmt.Errorf("security token for profile %q carries no tenant claim", p.Name)
	}
	return token.Tenant, nil
}
