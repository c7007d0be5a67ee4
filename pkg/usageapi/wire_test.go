package usageapi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/benedict-erwin/carbon-collector/internal/emissions"
)

func TestNewRequestDetails(t *testing.T) {
	query := queryFixture()
	query.CompartmentIDs = []string{"ocid1.compartment.oc1..dev"}
	query.IsAggregateByTime = true

	details := newRequestDetails(query)

	require.Equal(t, "ocid1.tenancy.oc1..acme", details.TenantID)
	require.Equal(t, "2024-01-01T00:00:00Z", details.TimeUsageStarted)
	require.Equal(t, "2024-02-01T00:00:00Z", details.TimeUsageEnded)
	require.Equal(t, "MONTHLY", details.Granularity)
	require.Equal(t, "POWER_BASED", details.EmissionCalculationMethod)
	require.Equal(t, "LOCATION_BASED", details.EmissionType)
	require.Equal(t, []string{"service", "region"}, details.GroupBy)
	require.NotNil(t, details.CompartmentDepth)
	require.Equal(t, 6, *details.CompartmentDepth)
	require.True(t, details.IsAggregateByTime)
	require.NotNil(t, details.Filter)
	require.Equal(t, "OR", details.Filter.Operator)
	require.Equal(t, []filterDimension{{Key: "compartmentId", Value: "ocid1.compartment.oc1..dev"}}, details.Filter.Dimensions)
}

func TestNewRequestDetailsNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	query := &emissions.QueryRequest{
		TenantID:         "ocid1.tenancy.oc1..acme",
		TimeUsageStarted: time.Date(2024, 1, 1, 7, 0, 0, 0, loc),
		TimeUsageEnded:   time.Date(2024, 2, 1, 7, 0, 0, 0, loc),
		Granularity:      emissions.GranularityDaily,
	}

	details := newRequestDetails(query)
	require.Equal(t, "2024-01-01T00:00:00Z", details.TimeUsageStarted)
	require.Equal(t, "2024-02-01T00:00:00Z", details.TimeUsageEnded)
}

func TestToRecord(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ended := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	wire := &wireEmission{
		TenantID:                  "ocid1.tenancy.oc1..acme",
		TenantName:                "acme",
		CompartmentID:             "ocid1.compartment.oc1..dev",
		CompartmentName:           "dev",
		CompartmentPath:           "acme/dev",
		Service:                   "Object Storage",
		ResourceName:              "bucket-a",
		ResourceID:                "ocid1.bucket.oc1..a",
		Region:                    "us-ashburn-1",
		AvailabilityDomain:        "AD-2",
		SkuPartNumber:             "B91234",
		SkuName:                   "Standard Storage",
		Platform:                  "X9",
		TimeUsageStarted:          started,
		TimeUsageEnded:            ended,
		ComputedCarbonEmission:    0.004217,
		EmissionCalculationMethod: "POWER_BASED",
		EmissionType:              "LOCATION_BASED",
		SubscriptionID:            "sub-42",
		Tags: []wireTag{
			{Namespace: "ops", Key: "team", Value: "core"},
		},
	}

	rec := toRecord(wire)

	require.Equal(t, "ocid1.tenancy.oc1..acme", rec.TenantID)
	require.Equal(t, "acme", rec.TenantName)
	require.Equal(t, "ocid1.compartment.oc1..dev", rec.CompartmentID)
	require.Equal(t, "dev", rec.CompartmentName)
	require.Equal(t, "acme/dev", rec.CompartmentPath)
	require.Equal(t, "Object Storage", rec.Service)
	require.Equal(t, "bucket-a", rec.ResourceName)
	require.Equal(t, "ocid1.bucket.oc1..a", rec.ResourceID)
	require.Equal(t, "us-ashburn-1", rec.Region)
	require.Equal(t, "AD-2", rec.AvailabilityDomain)
	require.Equal(t, "B91234", rec.SkuPartNumber)
	require.Equal(t, "Standard Storage", rec.SkuName)
	require.Equal(t, "X9", rec.Platform)
	require.True(t, rec.TimeUsageStarted.Equal(started))
	require.True(t, rec.TimeUsageEnded.Equal(ended))
	require.True(t, rec.ComputedCarbonEmission.Equal(decimal.RequireFromString("0.004217")))
	require.Equal(t, "POWER_BASED", rec.EmissionCalculationMethod)
	require.Equal(t, "LOCATION_BASED", rec.EmissionType)
	require.Equal(t, "sub-42", rec.SubscriptionID)
	require.Equal(t, []emissions.Tag{{Namespace: "ops", Key: "team", Value: "core"}}, rec.Tags)
}

func TestToRecordEmptyRow(t *testing.T) {
	rec := toRecord(&wireEmission{})
	require.True(t, rec.ComputedCarbonEmission.IsZero())
	require.True(t, rec.TimeUsageStarted.IsZero())
	require.Nil(t, rec.Tags)
}
