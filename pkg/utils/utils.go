package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benedict-erwin/carbon-collector/config"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

var appLocation *time.Location

// init initializes timezone with UTC as default
func init() {
	// Initialize with UTC as default
	appLocation = time.UTC
}

// InitTimezone initializes the application timezone from config
func InitTimezone() error {
	cfg := config.Get()
	timezone := cfg.App.Timezone

	if timezone == "" {
		appLocation = time.UTC
		return nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Error().Err(err).Str("timezone", timezone).Msg("Failed to load timezone, using UTC")
		appLocation = time.UTC
		return err
	}

	appLocation = loc
	return nil
}

// Now returns current time in application timezone
func Now() time.Time {
	return time.Now().In(appLocation)
}

// NowFormatted returns current time formatted in RFC3339 with app timezone
func NowFormatted() string {
	return Now().Format(time.RFC3339)
}

// FormatTime formats given time to application timezone
func FormatTime(t time.Time) string {
	return t.In(appLocation).Format(time.RFC3339)
}

// GetLocation returns the current application location
func GetLocation() *time.Location {
	return appLocation
}

// Truncate shortens a string to a maximum number of runes, appending
// "..." when anything was cut. Safe for multi-byte characters.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// ExpandHome resolves a leading "~" or "~/" in a path against the
// current user's home directory. Paths without a tilde pass through.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
