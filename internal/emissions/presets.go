package emissions

import (
	"fmt"
	"time"
)

// ModePreset is a canned query shape selected by one of the dataset mode
// flags. A zero-valued method or emission type keeps the caller's choice.
type ModePreset struct {
	GroupBy           []string
	Granularity       Granularity
	CompartmentDepth  int
	CalculationMethod CalculationMethod
	EmissionType      EmissionType
	OutputPrefix      string
}

var (
	// PresetFullDataset resembles a provider-side export: monthly buckets
	// over every power-based dimension worth keeping, at maximum depth.
	// The platform dimension is absent, power-based queries reject it.
	PresetFullDataset = ModePreset{
		GroupBy:          []string{"service", "compartmentName", "region"},
		Granularity:      GranularityMonthly,
		CompartmentDepth: MaxCompartmentDepth,
		OutputPrefix:     "carbon_emissions_full",
	}

	// PresetFullDatasetSpendBased switches to the spend-based model for
	// the resource and SKU dimensions only that model exposes. Spend-based
	// queries require market-based emission accounting.
	PresetFullDatasetSpendBased = ModePreset{
		GroupBy:           []string{"service", "compartmentName", "resourceId", "skuName"},
		Granularity:       GranularityMonthly,
		CompartmentDepth:  MaxCompartmentDepth,
		CalculationMethod: MethodSpendBased,
		EmissionType:      TypeMarketBased,
		OutputPrefix:      "carbon_emissions_full_spend_based",
	}

	// PresetNoGrouping is the most detailed view the service returns,
	// daily buckets without time aggregation.
	PresetNoGrouping = ModePreset{
		GroupBy:          []string{"service", "compartmentName", "region"},
		Granularity:      GranularityDaily,
		CompartmentDepth: MaxCompartmentDepth,
		OutputPrefix:     "carbon_emissions_raw",
	}
)

// DefaultOutputName derives the artifact filename for a run started at
// the given time.
func (p ModePreset) DefaultOutputName(now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", p.OutputPrefix, now.Format("20060102_150405"))
}
