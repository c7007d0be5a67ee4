package usageapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
)

// requestDetails is the POST body of a carbon emission query. Field names
// follow the provider's camelCase wire format.
type requestDetails struct {
	TenantID                  string         `json:"tenantId"`
	TimeUsageStarted          string         `json:"timeUsageStarted"`
	TimeUsageEnded            string         `json:"timeUsageEnded"`
	Granularity               string         `json:"granularity"`
	EmissionCalculationMethod string         `json:"emissionCalculationMethod,omitempty"`
	EmissionType              string         `json:"emissionType,omitempty"`
	GroupBy                   []string       `json:"groupBy,omitempty"`
	CompartmentDepth          *int           `json:"compartmentDepth,omitempty"`
	IsAggregateByTime         bool           `json:"isAggregateByTime"`
	Filter                    *requestFilter `json:"filter,omitempty"`
}

type requestFilter struct {
	Operator   string            `json:"operator"`
	Dimensions []filterDimension `json:"dimensions"`
}

type filterDimension struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// newRequestDetails maps a query request onto the wire format. Timestamps
// are normalized to UTC RFC3339, optional fields are omitted when unset.
func newRequestDetails(query *emissions.QueryRequest) requestDetails {
	details := requestDetails{
		TenantID:                  query.TenantID,
		TimeUsageStarted:          query.TimeUsageStarted.UTC().Format(time.RFC3339),
		TimeUsageEnded:            query.TimeUsageEnded.UTC().Format(time.RFC3339),
		Granularity:               string(query.Granularity),
		EmissionCalculationMethod: string(query.CalculationMethod),
		EmissionType:              string(query.EmissionType),
		GroupBy:                   query.GroupBy,
		IsAggregateByTime:         query.IsAggregateByTime,
	}
	if query.CompartmentDepth > 0 {
		depth := query.CompartmentDepth
		details.CompartmentDepth = &depth
	}
	if len(query.CompartmentIDs) > 0 {
		filter := &requestFilter{Operator: "OR"}
		for _, id := range query.CompartmentIDs {
			filter.Dimensions = append(filter.Dimensions, filterDimension{Key: "compartmentId", Value: id})
		}
		details.Filter = filter
	}
	return details
}

// queryResponse is the body of a successful query call.
type queryResponse struct {
	Items []wireEmission `json:"items"`
}

// wireEmission is one usage row as the service returns it. The
// availability domain travels as "ad" on the wire.
type wireEmission struct {
	TenantID                  string    `json:"tenantId"`
	TenantName                string    `json:"tenantName"`
	CompartmentID             string    `json:"compartmentId"`
	CompartmentName           string    `json:"compartmentName"`
	CompartmentPath           string    `json:"compartmentPath"`
	Service                   string    `json:"service"`
	ResourceName              string    `json:"resourceName"`
	ResourceID                string    `json:"resourceId"`
	Region                    string    `json:"region"`
	AvailabilityDomain        string    `json:"ad"`
	SkuPartNumber             string    `json:"skuPartNumber"`
	SkuName                   string    `json:"skuName"`
	Platform                  string    `json:"platform"`
	TimeUsageStarted          time.Time `json:"timeUsageStarted"`
	TimeUsageEnded            time.Time `json:"timeUsageEnded"`
	ComputedCarbonEmission    float64   `json:"computedCarbonEmission"`
	EmissionCalculationMethod string    `json:"emissionCalculationMethod"`
	EmissionType              string    `json:"emissionType"`
	SubscriptionID            string    `json:"subscriptionId"`
	Tags                      []wireTag `json:"tags"`
}

type wireTag struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// toRecord converts a wire row to the domain record, field by field.
func toRecord(w *wireEmission) emissions.EmissionRecord {
	rec := emissions.EmissionRecord{
		TenantID:                  w.TenantID,
		TenantName:                w.TenantName,
		CompartmentID:             w.CompartmentID,
		CompartmentName:           w.CompartmentName,
		CompartmentPath:           w.CompartmentPath,
		Service:                   w.Service,
		ResourceName:              w.ResourceName,
		ResourceID:                w.ResourceID,
		Region:                    w.Region,
		AvailabilityDomain:        w.AvailabilityDomain,
		SkuPartNumber:             w.SkuPartNumber,
		SkuName:                   w.SkuName,
		Platform:                  w.Platform,
		TimeUsageStarted:          w.TimeUsageStarted,
		TimeUsageEnded:            w.TimeUsageEnded,
		ComputedCarbonEmission:    decimal.NewFromFloat(w.ComputedCarbonEmission),
		EmissionCalculationMethod: w.EmissionCalculationMethod,
		EmissionType:              w.EmissionType,
		SubscriptionID:            w.SubscriptionID,
	}
	for _, tag := range w.Tags {
		rec.Tags = append(rec.Tags, emissions.Tag{Namespace: tag.Namespace, Key: tag.Key, Value: tag.Value})
	}
	return rec
}
