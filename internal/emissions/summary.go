package emissions

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RootCompartmentLabel stands in for records carrying no compartment
// information at all, which the service emits for tenancy-root usage.
const RootCompartmentLabel = "Root/Tenancy"

// UnknownServiceLabel stands in for records with no service dimension
const UnknownServiceLabel = "Unknown"

// GroupTotal is one aggregated line of a summary report
type GroupTotal struct {
	Key       string
	Emissions decimal.Decimal
	Percent   float64
}

// SummaryReport holds grouped totals over a final dataset
type SummaryReport struct {
	TotalEmissions decimal.Decimal
	RecordCount    int
	Services       []GroupTotal
	Compartments   []GroupTotal
}

// serviceKey resolves the grouping key for per-service totals
func serviceKey(rec *EmissionRecord) string {
	if rec.Service == "" {
		return UnknownServiceLabel
	}
	return rec.Service
}

// compartmentKey resolves the grouping key for per-compartment totals,
// preferring the name, then the OCID, then the root label.
func compartmentKey(rec *EmissionRecord) string {
	if rec.CompartmentName != "" {
		return rec.CompartmentName
	}
	if rec.CompartmentID != "" {
		return rec.CompartmentID
	}
	return RootCompartmentLabel
}

// accumulate sums records per key in encounter order
func accumulate(items []EmissionRecord, key func(*EmissionRecord) string) []GroupTotal {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for i := range items {
		k := key(&items[i])
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		totals[k] = totals[k].Add(items[i].ComputedCarbonEmission)
	}

	out := make([]GroupTotal, 0, len(order))
	for _, k := range order {
		out = append(out, GroupTotal{Key: k, Emissions: totals[k]})
	}
	return out
}

// Summarize computes the grand total plus per-service totals, and per-
// compartment totals when requested. Group lines are sorted by emission
// value descending, ties keep first-encounter order. Percentages are
// display values derived from the decimal totals.
func Summarize(ds *Dataset, byCompartments bool) *SummaryReport {
	report := &SummaryReport{
		TotalEmissions: decimal.Zero,
	}
	if ds == nil {
		return report
	}
	report.RecordCount = ds.Len()

	for i := range ds.Items {
		report.TotalEmissions = report.TotalEmissions.Add(ds.Items[i].ComputedCarbonEmission)
	}

	report.Services = finalize(accumulate(ds.Items, serviceKey), report.TotalEmissions)
	if byCompartments {
		report.Compartments = finalize(accumulate(ds.Items, compartmentKey), report.TotalEmissions)
	}
	return report
}

// finalize sorts group lines and fills in percentages of the grand total
func finalize(totals []GroupTotal, grand decimal.Decimal) []GroupTotal {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Emissions.GreaterThan(totals[j].Emissions)
	})
	if grand.IsZero() {
		return totals
	}
	hundred := decimal.NewFromInt(100)
	for i := range totals {
		totals[i].Percent = totals[i].Emissions.Div(grand).Mul(hundred).InexactFloat64()
	}
	return totals
}
