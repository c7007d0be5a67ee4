package emissions

// Group-by dimension capability per calculation method. The power-based
// model only aggregates by tenancy topology, the spend-based model also
// exposes resource, SKU and platform dimensions.

// powerBasedDimensions are valid for POWER_BASED queries
var powerBasedDimensions = map[string]bool{
	"service":         true,
	"compartmentName": true,
	"compartmentId":   true,
	"region":          true,
	"tenantId":        true,
	"tenantName":      true,
	"subscriptionId":  true,
}

// spendBasedDimensions are valid for SPEND_BASED queries
var spendBasedDimensions = map[string]bool{
	"service":         true,
	"compartmentName": true,
	"compartmentId":   true,
	"region":          true,
	"tenantId":        true,
	"tenantName":      true,
	"subscriptionId":  true,
	"platform":        true,
	"resourceId":      true,
	"resourceName":    true,
	"skuName":         true,
	"skuPartNumber":   true,
}

// dimensionOrder keeps help text and diagnostics deterministic
var dimensionOrder = []string{
	"service",
	"compartmentName",
	"compartmentId",
	"region",
	"tenantId",
	"tenantName",
	"subscriptionId",
	"platform",
	"resourceId",
	"resourceName",
	"skuName",
	"skuPartNumber",
}

// DefaultGroupBy is used when validation leaves nothing usable
func DefaultGroupBy() []string {
	return []string{"service"}
}

// dimensionsFor returns the capability table for a calculation method.
// An unset method behaves as power-based, matching the service default.
func dimensionsFor(method CalculationMethod) map[string]bool {
	if method == MethodSpendBased {
		return spendBasedDimensions
	}
	return powerBasedDimensions
}

// SupportedDimensions lists the valid group-by keys for a method in a
// stable order.
func SupportedDimensions(method CalculationMethod) []string {
	table := dimensionsFor(method)
	out := make([]string, 0, len(table))
	for _, dim := range dimensionOrder {
		if table[dim] {
			out = append(out, dim)
		}
	}
	return out
}

// ValidateGroupBy filters requested dimensions down to the ones the
// calculation method supports, preserving request order. At most
// MaxGroupByDimensions survive. When nothing survives the default
// grouping applies so a report is still produced. The second return
// lists everything that was discarded.
func ValidateGroupBy(fields []string, method CalculationMethod) ([]string, []string) {
	table := dimensionsFor(method)

	valid := make([]string, 0, len(fields))
	dropped := make([]string, 0)
	for _, field := range fields {
		if table[field] {
			valid = append(valid, field)
		} else {
			dropped = append(dropped, field)
		}
	}

	if len(valid) > MaxGroupByDimensions {
		dropped = append(dropped, valid[MaxGroupByDimensions:]...)
		valid = valid[:MaxGroupByDimensions]
	}

	if len(valid) == 0 {
		valid = DefaultGroupBy()
	}
	return valid, dropped
}

// GroupsByCompartment reports whether any requested dimension aggregates
// by compartment, which is what makes compartment depth meaningful.
func GroupsByCompartment(fields []string) bool {
	for _, field := range fields {
		if field == "compartmentName" || field == "compartmentId" {
			return true
		}
	}
	return false
}
