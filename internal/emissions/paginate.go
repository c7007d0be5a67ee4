package emissions

import (
	"context"
	"fmt"

	"github.com/benedict-erwin/carbon-collector/pkg/logger"
)

// StopReason records why a pagination run ended
type StopReason string

const (
	StopExhausted    StopReason = "exhausted"     // service returned no continuation token
	StopRecordLimit  StopReason = "record_limit"  // caller's record cap reached
	StopPageLimit    StopReason = "page_limit"    // runaway guard tripped
	StopErrorPartial StopReason = "error_partial" // mid-stream failure, partial data kept
	StopInterrupted  StopReason = "interrupted"   // context cancelled, partial data kept
)

// FetchStats summarizes one pagination run
type FetchStats struct {
	Pages   int
	Records int
	Reason  StopReason
}

// Paginator drives a query through the service's page tokens until the
// result set is exhausted or a stop condition fires.
type Paginator struct {
	client QueryClient
}

// NewPaginator creates a paginator over the given query client
func NewPaginator(client QueryClient) *Paginator {
	return &Paginator{client: client}
}

// FetchAll accumulates every page of the base query. maxRecords caps the
// dataset when positive, zero means unbounded. The base request is never
// mutated, each page call works on a copy. The returned dataset is
// terminal, it carries no continuation token.
//
// Failures after the first successful page degrade to a partial dataset
// instead of an error so long-running exports keep what they already
// paid for. Only a failure on the very first page is returned as an
// error. Cancellation behaves the same way.
func (p *Paginator) FetchAll(ctx context.Context, base *QueryRequest, maxRecords int) (*Dataset, FetchStats, error) {
	log := logger.WithScope("paginator")

	pageSize := base.Limit
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	req := base.WithLimit(pageSize)

	ds := NewDataset()
	stats := FetchStats{}
	token := base.PageToken

loop:
	for {
		select {
		case <-ctx.Done():
			if ds.IsEmpty() {
				return nil, stats, fmt.Errorf("pagination cancelled: %w", ctx.Err())
			}
			stats.Reason = StopInterrupted
			log.Warn().
				Int("pages", stats.Pages).
				Int("records", ds.Len()).
				Msg("Pagination interrupted, returning partial dataset")
			break loop
		default:
		}

		if stats.Pages >= MaxPageCeiling {
			stats.Reason = StopPageLimit
			log.Warn().
				Int("pages", stats.Pages).
				Int("records", ds.Len()).
				Msg("Page ceiling reached, stopping pagination")
			break loop
		}

		page, err := p.client.FetchPage(ctx, req.WithPageToken(token))
		if err != nil {
			if ds.IsEmpty() {
				return nil, stats, fmt.Errorf("failed to fetch first page: %w", err)
			}
			stats.Reason = StopErrorPartial
			log.Warn().
				Err(err).
				Int("pages", stats.Pages).
				Int("records", ds.Len()).
				Msg("Pagination aborted, returning partial dataset")
			break loop
		}

		stats.Pages++
		ds.AddPage(page)
		log.Debug().
			Int("page", stats.Pages).
			Int("page_records", len(page.Items)).
			Int("total_records", ds.Len()).
			Str("opc_request_id", page.RequestID).
			Msg("Fetched page")

		if maxRecords > 0 && ds.Len() >= maxRecords {
			ds.Items = ds.Items[:maxRecords]
			stats.Reason = StopRecordLimit
			log.Info().
				Int("pages", stats.Pages).
				Int("records", ds.Len()).
				Msg("Record limit reached, stopping pagination")
			break loop
		}

		if page.NextPage == "" {
			stats.Reason = StopExhausted
			log.Debug().
				Int("pages", stats.Pages).
				Int("records", ds.Len()).
				Msg("Pagination complete")
			break loop
		}
		token = page.NextPage
	}

	// The accumulated dataset is complete as far as this run goes, a
	// leftover token would suggest it can be resumed.
	ds.NextPage = ""
	stats.Records = ds.Len()
	return ds, stats, nil
}
