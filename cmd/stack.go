package cmd

import (
	"github.com/benedict-erwin/carbon-collector/config"
	"github.com/benedict-erwin/carbon-collector/internal/constants"
	"github.com/benedict-erwin/carbon-collector/pkg/ociauth"
)

// credentialStack bundles everything derived from one credentials profile
type credentialStack struct {
	profile  *ociauth.Profile
	signer   *ociauth.Signer
	tenantID string
}

// buildCredentialStack loads the selected profile and prepares the
// request signer. On failure the second return value is the error code
// of the step that failed.
func buildCredentialStack() (*credentialStack, int, error) {
	cfg := config.Get()

	file := flagConfigFile
	if file == "" {
		file = cfg.Auth.File
	}
	name := flagProfile
	if name == "" {
		name = cfg.Auth.Profile
	}

	profile, err := ociauth.LoadProfile(file, name)
	if err != nil {
		return nil, constants.CodeInvalidProfile, err
	}

	signer, err := ociauth.NewSigner(profile)
	if err != nil {
		return nil, constants.CodeInvalidKeyFile, err
	}

	tenantID, err := profile.ResolveTenancy()
	if err != nil {
		return nil, constants.CodeInvalidProfile, err
	}

	return &credentialStack{
		profile:  profile,
		signer:   signer,
		tenantID: tenantID,
	}, constants.CodeSuccess, nil
}
