package emissions

import (
	"context"
	"fmt"

	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

// FallbackStrategy issues a query against the preferred accounting
// configuration and falls back to the spend-based one when the first
// yields nothing usable. Some tenancies only report emissions under one
// of the two models, so a single fixed configuration would show empty
// reports for half of them.
type FallbackStrategy struct {
	client      QueryClient
	tenantID    string
	granularity Granularity
}

// NewFallbackStrategy creates a strategy bound to a tenancy and granularity
func NewFallbackStrategy(client QueryClient, tenantID string, granularity Granularity) *FallbackStrategy {
	return &FallbackStrategy{
		client:      client,
		tenantID:    tenantID,
		granularity: granularity,
	}
}

// buildRequest assembles the single-call request for one attempt
func (f *FallbackStrategy) buildRequest(tr TimeRange, groupBy []string, depth int, method CalculationMethod, etype EmissionType) *QueryRequest {
	req := NewQueryRequest(f.tenantID, tr)
	req.Granularity = f.granularity
	req.CalculationMethod = method
	req.EmissionType = etype
	req.GroupBy = append([]string(nil), groupBy...)
	req.CompartmentDepth = depth
	return req
}

// FetchWithFallback tries LOCATION_BASED/POWER_BASED first and retries
// once with MARKET_BASED/SPEND_BASED when the primary attempt errors,
// returns nothing, or returns only zero-valued records. A zero-valued
// result is treated the same as an empty one because the service reports
// both identically for tenancies without data under that model.
//
// The group-by fields are passed through as requested. A combination the
// power-based model rejects simply errors on the primary attempt and is
// then satisfied by the spend-based one.
//
// Both attempts empty means no emissions exist for this slice, which is
// a valid empty dataset, not an error. Only when an attempt fails and no
// alternate data could be produced is an error returned, preferring the
// primary's error when both failed.
func (f *FallbackStrategy) FetchWithFallback(ctx context.Context, groupBy []string, tr TimeRange, compartmentDepth int) (*Dataset, error) {
	log := logger.WithScope("fallback")

	var primaryErr error
	primary := f.buildRequest(tr, groupBy, compartmentDepth, MethodPowerBased, TypeLocationBased)
	page, err := f.client.FetchPage(ctx, primary)
	if err != nil {
		primaryErr = err
		log.Warn().
			Err(err).
			Strs("group_by", groupBy).
			Msg("Power-based query failed, trying spend-based")
	} else {
		ds := DatasetFromPage(page)
		if ds.HasNonZeroEmission() {
			log.Debug().
				Strs("group_by", groupBy).
				Int("records", ds.Len()).
				Msg("Power-based query returned data")
			return ds, nil
		}
		log.Info().
			Strs("group_by", groupBy).
			Int("records", ds.Len()).
			Msg("Power-based query returned no meaningful data, trying spend-based")
	}

	alternate := f.buildRequest(tr, groupBy, compartmentDepth, MethodSpendBased, TypeMarketBased)
	page, err = f.client.FetchPage(ctx, alternate)
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("both calculation methods failed: %w", primaryErr)
		}
		return nil, fmt.Errorf("spend-based query failed: %w", err)
	}

	ds := DatasetFromPage(page)
	if ds.IsEmpty() {
		log.Info().
			Strs("group_by", groupBy).
			Msg("No data under either calculation method")
	} else {
		log.Debug().
			Strs("group_by", groupBy).
			Int("records", ds.Len()).
			Msg("Spend-based query returned data")
	}
	return ds, nil
}
