package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
)

// Format selects a report artifact serialization
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DetectFormat resolves the output format from an explicit flag value,
// falling back to the file extension, then to CSV.
func DetectFormat(path, explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Save writes the dataset to a file in the given format
func Save(filename string, ds *emissions.Dataset, format Format) error {
	switch format {
	case FormatJSON:
		return SaveJSON(filename, ds)
	case FormatCSV:
		return SaveCSV(filename, ds)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// CombinationPath derives the per-combination artifact name by slotting
// the suffix between the base name and the extension. A missing
// extension defaults to CSV.
func CombinationPath(path, suffix string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".csv"
	}
	return base + "_" + suffix + ext
}
