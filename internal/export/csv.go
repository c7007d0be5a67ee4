package export

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

// ErrNoData is returned when a dataset holds nothing worth writing
var ErrNoData = errors.New("no records to export")

// WriteCSV streams the dataset as CSV. Column selection follows
// Columns, values render per stringValue.
func WriteCSV(w io.Writer, ds *emissions.Dataset) error {
	if ds.IsEmpty() {
		return ErrNoData
	}

	columns := Columns(ds)
	header := make([]string, len(columns))
	for i, f := range columns {
		header[i] = string(f)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for i := range ds.Items {
		for j, f := range columns {
			row[j] = stringValue(&ds.Items[i], f)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the dataset to a CSV file. Nothing is created for an
// empty dataset.
func SaveCSV(filename string, ds *emissions.Dataset) error {
	log := logger.WithScope("export")
	if ds.IsEmpty() {
		return ErrNoData
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, ds); err != nil {
		return err
	}
	log.Info().
		Str("file", filename).
		Int("records", ds.Len()).
		Msg("Data saved to CSV")
	return nil
}
