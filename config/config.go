package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type (
	app struct {
		Name     string `json:"name" mapstructure:"name"`
		Env      string `json:"env" mapstructure:"env"`
		Timezone string `json:"timezone" mapstructure:"timezone"`
		Version  string `json:"version" mapstructure:"version"`
	}

	auth struct {
		File    string `json:"file" mapstructure:"file"`       // credentials file, INI with profile sections
		Profile string `json:"profile" mapstructure:"profile"` // profile section name
	}

	usageAPI struct {
		Endpoint      string `json:"endpoint,omitempty" mapstructure:"endpoint"` // overrides the regional endpoint
		Timeout       string `json:"timeout" mapstructure:"timeout"`
		RetryAttempts int    `json:"retry_attempts" mapstructure:"retry_attempts"`
		RetryDelay    string `json:"retry_delay" mapstructure:"retry_delay"`
	}

	identity struct {
		Endpoint  string `json:"endpoint,omitempty" mapstructure:"endpoint"`
		Timeout   string `json:"timeout" mapstructure:"timeout"`
		CacheSize int    `json:"cache_size" mapstructure:"cache_size"`
		CacheTTL  string `json:"cache_ttl" mapstructure:"cache_ttl"`
	}

	Config struct {
		App      app      `json:"app" mapstructure:"app"`
		Auth     auth     `json:"auth" mapstructure:"auth"`
		UsageAPI usageAPI `json:"usageapi" mapstructure:"usageapi"`
		Identity identity `json:"identity" mapstructure:"identity"`
	}
)

var cfg *Config

// setDefaults registers fallback values so the tool runs without a config file
func setDefaults() {
	viper.SetDefault("app.name", "carbon-collector")
	viper.SetDefault("app.env", "prod")
	viper.SetDefault("app.timezone", "UTC")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("auth.file", "~/.oci/config")
	viper.SetDefault("auth.profile", "DEFAULT")
	viper.SetDefault("usageapi.timeout", "60s")
	viper.SetDefault("usageapi.retry_attempts", 3)
	viper.SetDefault("usageapi.retry_delay", "2s")
	viper.SetDefault("identity.timeout", "30s")
	viper.SetDefault("identity.cache_size", 128)
	viper.SetDefault("identity.cache_ttl", "10m")
}

// Init loads configuration from the optional .config file
func Init() error {
	viper.SetConfigName(".config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./")
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// Get returns the current configuration instance
func Get() *Config {
	return cfg
}
