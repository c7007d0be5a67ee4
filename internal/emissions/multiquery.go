package emissions

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

// GroupByCombination is one predefined grouping of a comprehensive run,
// with the artifact suffix appended to per-combination output files.
type GroupByCombination struct {
	Fields []string
	Suffix string
}

// PowerBasedCombinations cover the dimensions the power-based model
// supports. Tests and callers rely on this exact order.
var PowerBasedCombinations = []GroupByCombination{
	{Fields: []string{"service", "compartmentName", "region"}, Suffix: "power_based_service_compartment_region"},
	{Fields: []string{"service", "compartmentName", "tenantId"}, Suffix: "power_based_service_compartment_tenant"},
	{Fields: []string{"service", "region", "subscriptionId"}, Suffix: "power_based_service_region_subscription"},
	{Fields: []string{"service", "compartmentName"}, Suffix: "power_based_service_compartment"},
}

// SpendBasedCombinations add the resource, SKU and platform dimensions
// only the spend-based model exposes.
var SpendBasedCombinations = []GroupByCombination{
	{Fields: []string{"service", "compartmentName", "resourceId", "skuName"}, Suffix: "spend_based_service_compartment_resource_sku"},
	{Fields: []string{"service", "compartmentName", "platform", "region"}, Suffix: "spend_based_service_compartment_platform_region"},
	{Fields: []string{"compartmentName", "resourceId", "skuName", "region"}, Suffix: "spend_based_compartment_resource_sku_region"},
	{Fields: []string{"service", "skuName", "platform"}, Suffix: "spend_based_service_sku_platform"},
}

// PersistFunc writes one combination's sub-result to its own artifact
type PersistFunc func(combo GroupByCombination, ds *Dataset) error

// MultiQueryConfig tunes a comprehensive run
type MultiQueryConfig struct {
	// Persist, when set, is called once per combination that returned
	// records, before the records join the combined dataset
	Persist PersistFunc

	// Workers above 1 fetches combinations in parallel. Results are
	// still merged in combination order.
	Workers int
}

// MultiQuery runs the fallback strategy across every predefined
// combination and merges the sub-results into one dataset.
type MultiQuery struct {
	strategy *FallbackStrategy
	persist  PersistFunc
	workers  int
}

// NewMultiQuery creates a comprehensive-run aggregator
func NewMultiQuery(strategy *FallbackStrategy, cfg MultiQueryConfig) *MultiQuery {
	return &MultiQuery{
		strategy: strategy,
		persist:  cfg.Persist,
		workers:  cfg.Workers,
	}
}

// FetchComprehensive fetches every combination for the window and merges
// the results in combination order, then page order. One combination
// failing is logged and skipped, the others still run. An error comes
// back only when nothing at all was retrieved and at least one
// combination failed. A persist failure drops that combination's records
// from the combined dataset, the artifact and the merge stay consistent.
func (m *MultiQuery) FetchComprehensive(ctx context.Context, tr TimeRange, spendBased bool) (*Dataset, error) {
	log := logger.WithScope("multiquery")

	combos := PowerBasedCombinations
	if spendBased {
		combos = SpendBasedCombinations
	}

	results := make([]*Dataset, len(combos))
	errs := make([]error, len(combos))

	if m.workers > 1 {
		// Combinations are independent, each worker owns its own slot.
		// No errgroup context here: one failure must not cancel the rest.
		var g errgroup.Group
		g.SetLimit(m.workers)
		for i, combo := range combos {
			g.Go(func() error {
				results[i], errs[i] = m.strategy.FetchWithFallback(ctx, combo.Fields, tr, MaxCompartmentDepth)
				return nil
			})
		}
		g.Wait()
	} else {
		for i, combo := range combos {
			log.Info().
				Int("query", i+1).
				Int("total", len(combos)).
				Strs("group_by", combo.Fields).
				Msg("Running group-by combination")
			results[i], errs[i] = m.strategy.FetchWithFallback(ctx, combo.Fields, tr, MaxCompartmentDepth)
		}
	}

	combined := NewDataset()
	var failures []error
	for i, combo := range combos {
		if errs[i] != nil {
			log.Error().
				Err(errs[i]).
				Str("suffix", combo.Suffix).
				Strs("group_by", combo.Fields).
				Msg("Group-by combination failed")
			failures = append(failures, fmt.Errorf("%s: %w", combo.Suffix, errs[i]))
			continue
		}
		ds := results[i]
		if ds.IsEmpty() {
			log.Info().
				Str("suffix", combo.Suffix).
				Msg("No data returned for this combination")
			continue
		}
		if m.persist != nil {
			if err := m.persist(combo, ds); err != nil {
				log.Error().
					Err(err).
					Str("suffix", combo.Suffix).
					Msg("Failed to persist combination result")
				failures = append(failures, fmt.Errorf("persist %s: %w", combo.Suffix, err))
				continue
			}
		}
		log.Info().
			Str("suffix", combo.Suffix).
			Int("records", ds.Len()).
			Msg("Retrieved combination records")
		combined.Merge(ds)
	}

	if combined.IsEmpty() && len(failures) > 0 {
		return nil, fmt.Errorf("all group-by combinations failed: %w", errors.Join(failures...))
	}

	log.Info().
		Int("records", combined.Len()).
		Int("combinations", len(combos)).
		Msg("Combined dataset assembled")
	return combined, nil
}
