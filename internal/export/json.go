package export

import (
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

// RecordDocument is the JSON rendering of one emission record. Absent
// values serialize as null, never as empty strings.
type RecordDocument struct {
	TenantID                  *string         `json:"tenant_id"`
	TenantName                *string         `json:"tenant_name"`
	CompartmentID             *string         `json:"compartment_id"`
	CompartmentPath           *string         `json:"compartment_path"`
	CompartmentName           *string         `json:"compartment_name"`
	Service                   *string         `json:"service"`
	ResourceName              *string         `json:"resource_name"`
	ResourceID                *string         `json:"resource_id"`
	Region                    *string         `json:"region"`
	AD                        *string         `json:"ad"`
	SkuPartNumber             *string         `json:"sku_part_number"`
	SkuName                   *string         `json:"sku_name"`
	Platform                  *string         `json:"platform"`
	TimeUsageStarted          *string         `json:"time_usage_started"`
	TimeUsageEnded            *string         `json:"time_usage_ended"`
	ComputedCarbonEmission    decimal.Decimal `json:"computed_carbon_emission"`
	EmissionCalculationMethod *string         `json:"emission_calculation_method"`
	EmissionType              *string         `json:"emission_type"`
	SubscriptionID            *string         `json:"subscription_id"`
	Tags                      []emissions.Tag `json:"tags"`
}

// Metadata carries dataset-level information in the JSON artifact
type Metadata struct {
	RequestID  *string `json:"request_id"`
	NextPage   *string `json:"next_page"`
	TotalItems int     `json:"total_items"`
}

// Document is the top-level JSON artifact
type Document struct {
	Items    []RecordDocument `json:"items"`
	Metadata Metadata         `json:"metadata"`
}

// optString returns nil for absent values so they render as null
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optTime renders a usage timestamp, nil for the zero value
func optTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(TimestampLayout)
	return &s
}

// recordDocument maps one record to its JSON form field by field
func recordDocument(rec *emissions.EmissionRecord) RecordDocument {
	return RecordDocument{
		TenantID:                  optString(rec.TenantID),
		TenantName:                optString(rec.TenantName),
		CompartmentID:             optString(rec.CompartmentID),
		CompartmentPath:           optString(rec.CompartmentPath),
		CompartmentName:           optString(rec.CompartmentName),
		Service:                   optString(rec.Service),
		ResourceName:              optString(rec.ResourceName),
		ResourceID:                optString(rec.ResourceID),
		Region:                    optString(rec.Region),
		AD:                        optString(rec.AvailabilityDomain),
		SkuPartNumber:             optString(rec.SkuPartNumber),
		SkuName:                   optString(rec.SkuName),
		Platform:                  optString(rec.Platform),
		TimeUsageStarted:          optTime(rec.TimeUsageStarted),
		TimeUsageEnded:            optTime(rec.TimeUsageEnded),
		ComputedCarbonEmission:    rec.ComputedCarbonEmission,
		EmissionCalculationMethod: optString(rec.EmissionCalculationMethod),
		EmissionType:              optString(rec.EmissionType),
		SubscriptionID:            optString(rec.SubscriptionID),
		Tags:                      rec.Tags,
	}
}

// BuildDocument assembles the full JSON artifact for a dataset
func BuildDocument(ds *emissions.Dataset) *Document {
	doc := &Document{
		Items: make([]RecordDocument, 0, ds.Len()),
		Metadata: Metadata{
			RequestID:  optString(ds.RequestID),
			NextPage:   optString(ds.NextPage),
			TotalItems: ds.Len(),
		},
	}
	for i := range ds.Items {
		doc.Items = append(doc.Items, recordDocument(&ds.Items[i]))
	}
	return doc
}

// WriteJSON streams the dataset as an indented JSON document
func WriteJSON(w io.Writer, ds *emissions.Dataset) error {
	payload, err := json.MarshalIndent(BuildDocument(ds), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// SaveJSON writes the dataset to a JSON file. Unlike CSV an empty
// dataset still produces an artifact, the metadata documents the zero
// count.
func SaveJSON(filename string, ds *emissions.Dataset) error {
	log := logger.WithScope("export")

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, ds); err != nil {
		return err
	}
	log.Info().
		Str("file", filename).
		Int("records", ds.Len()).
		Msg("Data saved to JSON")
	return nil
}
