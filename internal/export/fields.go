// Package export serializes emission datasets to the CSV and JSON
// report artifacts. Both writers are pure over a Dataset, file handling
// sits in thin Save wrappers.
package export

import (
	"strings"
	"time"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
)

// TimestampLayout is how usage timestamps render in report artifacts
const TimestampLayout = "2006-01-02 15:04:05"

// Field names one exportable column of an emission record
type Field string

const (
	FieldTenantID                  Field = "tenant_id"
	FieldTenantName                Field = "tenant_name"
	FieldCompartmentID             Field = "compartment_id"
	FieldCompartmentPath           Field = "compartment_path"
	FieldCompartmentName           Field = "compartment_name"
	FieldService                   Field = "service"
	FieldResourceName              Field = "resource_name"
	FieldResourceID                Field = "resource_id"
	FieldRegion                    Field = "region"
	FieldAD                        Field = "ad"
	FieldSkuPartNumber             Field = "sku_part_number"
	FieldSkuName                   Field = "sku_name"
	FieldPlatform                  Field = "platform"
	FieldTimeUsageStarted          Field = "time_usage_started"
	FieldTimeUsageEnded            Field = "time_usage_ended"
	FieldComputedCarbonEmission    Field = "computed_carbon_emission"
	FieldEmissionCalculationMethod Field = "emission_calculation_method"
	FieldEmissionType              Field = "emission_type"
	FieldSubscriptionID            Field = "subscription_id"
	FieldTags                      Field = "tags"
)

// leadColumns are only emitted when the first record carries a value,
// so single-tenancy reports stay free of redundant columns.
var leadColumns = []Field{
	FieldTenantID,
	FieldTenantName,
	FieldCompartmentID,
	FieldCompartmentPath,
}

// baseColumns are always emitted, in this order
var baseColumns = []Field{
	FieldCompartmentName,
	FieldService,
	FieldResourceName,
	FieldResourceID,
	FieldRegion,
	FieldAD,
	FieldSkuPartNumber,
	FieldSkuName,
	FieldPlatform,
	FieldTimeUsageStarted,
	FieldTimeUsageEnded,
	FieldComputedCarbonEmission,
	FieldEmissionCalculationMethod,
	FieldEmissionType,
	FieldSubscriptionID,
	FieldTags,
}

// Columns resolves the CSV column list for a dataset, prefixing the
// conditional tenant/compartment columns present on the first record.
func Columns(ds *emissions.Dataset) []Field {
	columns := make([]Field, 0, len(leadColumns)+len(baseColumns))
	if !ds.IsEmpty() {
		first := &ds.Items[0]
		for _, f := range leadColumns {
			if stringValue(first, f) != "" {
				columns = append(columns, f)
			}
		}
	}
	return append(columns, baseColumns...)
}

// formatTime renders a usage timestamp, empty for the zero value
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// renderTags flattens defined tags to "ns:key=value" pairs joined by
// "; ". Partially-populated tags are skipped.
func renderTags(tags []emissions.Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Namespace == "" || tag.Key == "" || tag.Value == "" {
			continue
		}
		parts = append(parts, tag.Namespace+":"+tag.Key+"="+tag.Value)
	}
	return strings.Join(parts, "; ")
}

// stringValue renders one field of a record for CSV output. Absent
// values render as the empty string.
func stringValue(rec *emissions.EmissionRecord, f Field) string {
	switch f {
	case FieldTenantID:
		return rec.TenantID
	case FieldTenantName:
		return rec.TenantName
	case FieldCompartmentID:
		return rec.CompartmentID
	case FieldCompartmentPath:
		return rec.CompartmentPath
	case FieldCompartmentName:
		return rec.CompartmentName
	case FieldService:
		return rec.Service
	case FieldResourceName:
		return rec.ResourceName
	case FieldResourceID:
		return rec.ResourceID
	case FieldRegion:
		return rec.Region
	case FieldAD:
		return rec.AvailabilityDomain
	case FieldSkuPartNumber:
		return rec.SkuPartNumber
	case FieldSkuName:
		return rec.SkuName
	case FieldPlatform:
		return rec.Platform
	case FieldTimeUsageStarted:
		return formatTime(rec.TimeUsageStarted)
	case FieldTimeUsageEnded:
		return formatTime(rec.TimeUsageEnded)
	case FieldComputedCarbonEmission:
		return rec.ComputedCarbonEmission.String()
	case FieldEmissionCalculationMethod:
		return rec.EmissionCalculationMethod
	case FieldEmissionType:
		return rec.EmissionType
	case FieldSubscriptionID:
		return rec.SubscriptionID
	case FieldTags:
		return renderTags(rec.Tags)
	default:
		return ""
	}
}
