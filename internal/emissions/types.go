// Package emissions implements the query orchestration for tenancy-wide
// carbon emission reports: date normalization, group-by validation,
// pagination, calculation-method fallback and multi-query aggregation.
package emissions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity controls the time bucketing of returned usage rows
type Granularity string

const (
	GranularityDaily   Granularity = "DAILY"
	GranularityMonthly Granularity = "MONTHLY"
)

// CalculationMethod selects how emissions are derived
type CalculationMethod string

const (
	MethodPowerBased CalculationMethod = "POWER_BASED"
	MethodSpendBased CalculationMethod = "SPEND_BASED"
)

// EmissionType selects the accounting standard within a calculation method
type EmissionType string

const (
	TypeLocationBased EmissionType = "LOCATION_BASED"
	TypeMarketBased   EmissionType = "MARKET_BASED"
)

// Query limits enforced by the metering service
const (
	MaxPageSize             = 500  // records per page accepted by the API
	MaxPageCeiling          = 1000 // hard stop against runaway pagination
	MaxGroupByDimensions    = 4    // dimensions accepted per query
	MaxCompartmentDepth     = 7
	DefaultCompartmentDepth = 6 // applied when grouping by compartment dims
)

// Tag is a defined-tag triple attached to an emission record
type Tag struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// EmissionRecord is one aggregated usage row returned by the metering API.
// String fields are empty when the grouping did not include that dimension.
type EmissionRecord struct {
	TenantID                  string
	TenantName                string
	CompartmentID             string
	CompartmentName           string
	CompartmentPath           string
	Service                   string
	ResourceName              string
	ResourceID                string
	Region                    string
	AvailabilityDomain        string
	SkuPartNumber             string
	SkuName                   string
	Platform                  string
	TimeUsageStarted          time.Time
	TimeUsageEnded            time.Time
	ComputedCarbonEmission    decimal.Decimal
	EmissionCalculationMethod string
	EmissionType              string
	SubscriptionID            string
	Tags                      []Tag
}

// ResultPage is one page of records as returned by a single API call
type ResultPage struct {
	Items     []EmissionRecord
	RequestID string
	NextPage  string
}

// QueryClient executes one query request against the metering service.
// Implementations must honor req.Limit and req.PageToken and surface
// transport or service failures as errors.
type QueryClient interface {
	FetchPage(ctx context.Context, req *QueryRequest) (*ResultPage, error)
}

// TimeRange is a half-open [Start, End) query window
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Dataset is the accumulated result of one logical query, possibly
// spanning many pages or several group-by combinations.
type Dataset struct {
	Items []EmissionRecord

	// RequestID identifies the last page fetched, for support tickets
	RequestID string

	// NextPage is non-empty when the dataset was truncated before the
	// service ran out of records
	NextPage string
}

// NewDataset returns an empty dataset
func NewDataset() *Dataset {
	return &Dataset{Items: []EmissionRecord{}}
}

// DatasetFromPage wraps a single page as a complete dataset
func DatasetFromPage(page *ResultPage) *Dataset {
	ds := NewDataset()
	ds.AddPage(page)
	return ds
}

// AddPage appends a page's records and adopts its metadata
func (d *Dataset) AddPage(page *ResultPage) {
	if page == nil {
		return
	}
	d.Items = append(d.Items, page.Items...)
	d.RequestID = page.RequestID
	d.NextPage = page.NextPage
}

// Merge appends another dataset's records. The receiver keeps its own
// metadata unless it had none yet.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	d.Items = append(d.Items, other.Items...)
	if d.RequestID == "" {
		d.RequestID = other.RequestID
	}
}

// Len returns the number of records held
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Items)
}

// IsEmpty reports whether the dataset holds no records
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// TotalEmissions sums the emission values across all records
func (d *Dataset) TotalEmissions() decimal.Decimal {
	total := decimal.Zero
	if d == nil {
		return total
	}
	for i := range d.Items {
		total = total.Add(d.Items[i].ComputedCarbonEmission)
	}
	return total
}

// HasNonZeroEmission reports whether any record carries a non-zero value.
// A dataset of all-zero rows is indistinguishable from missing data for
// the requested accounting standard and triggers the fallback strategy.
func (d *Dataset) HasNonZeroEmission() bool {
	if d == nil {
		return false
	}
	for i := range d.Items {
		if !d.Items[i].ComputedCarbonEmission.IsZero() {
			return true
		}
	}
	return false
}
