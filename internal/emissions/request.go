package emissions

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"
)

var validate = validator.New()

// QueryRequest carries every parameter of one metering API call. Values
// are fixed before the first page is fetched, pagination only swaps the
// page token on a copy.
type QueryRequest struct {
	TenantID          string            `validate:"required"`
	TimeUsageStarted  time.Time         `validate:"required"`
	TimeUsageEnded    time.Time         `validate:"required"`
	Granularity       Granularity       `validate:"required,oneof=DAILY MONTHLY"`
	CalculationMethod CalculationMethod `validate:"omitempty,oneof=POWER_BASED SPEND_BASED"`
	EmissionType      EmissionType      `validate:"omitempty,oneof=LOCATION_BASED MARKET_BASED"`
	GroupBy           []string          `validate:"max=4"`
	CompartmentDepth  int               `validate:"gte=0,lte=7"`
	CompartmentIDs    []string
	Limit             int `validate:"gte=0,lte=500"`
	PageToken         string
	IsAggregateByTime bool
}

// NewQueryRequest builds a request with the service defaults applied
func NewQueryRequest(tenantID string, tr TimeRange) *QueryRequest {
	return &QueryRequest{
		TenantID:         tenantID,
		TimeUsageStarted: tr.Start,
		TimeUsageEnded:   tr.End,
		Granularity:      GranularityMonthly,
		GroupBy:          DefaultGroupBy(),
	}
}

// Validate checks structural constraints plus the invariants the service
// rejects silently: ordered month-boundary timestamps.
func (r *QueryRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid query request: %w", err)
	}
	if !r.TimeUsageStarted.Before(r.TimeUsageEnded) {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidDateRange,
			r.TimeUsageStarted.Format(DateLayout), r.TimeUsageEnded.Format(DateLayout))
	}
	if !r.TimeUsageStarted.Equal(monthStart(r.TimeUsageStarted)) {
		return fmt.Errorf("time usage start %s is not a month boundary", r.TimeUsageStarted.Format(time.RFC3339))
	}
	if !r.TimeUsageEnded.Equal(monthStart(r.TimeUsageEnded)) {
		return fmt.Errorf("time usage end %s is not a month boundary", r.TimeUsageEnded.Format(time.RFC3339))
	}
	return nil
}

// Clone returns a deep copy safe to mutate independently
func (r *QueryRequest) Clone() *QueryRequest {
	clone := *r
	if r.GroupBy != nil {
		clone.GroupBy = append([]string(nil), r.GroupBy...)
	}
	if r.CompartmentIDs != nil {
		clone.CompartmentIDs = append([]string(nil), r.CompartmentIDs...)
	}
	return &clone
}

// WithPageToken returns a copy positioned at the given page
func (r *QueryRequest) WithPageToken(token string) *QueryRequest {
	clone := r.Clone()
	clone.PageToken = token
	return clone
}

// WithLimit returns a copy requesting the given page size
func (r *QueryRequest) WithLimit(limit int) *QueryRequest {
	clone := r.Clone()
	clone.Limit = limit
	return clone
}
