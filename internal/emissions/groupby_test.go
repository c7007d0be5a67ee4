package emissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateGroupBy(t *testing.T) {
	tests := []struct {
		name        string
		fields      []string
		method      CalculationMethod
		wantValid   []string
		wantDropped []string
	}{
		{
			name:        "unsupported fields dropped for power based",
			fields:      []string{"platform", "service", "foo"},
			method:      MethodPowerBased,
			wantValid:   []string{"service"},
			wantDropped: []string{"platform", "foo"},
		},
		{
			name:        "platform valid for spend based",
			fields:      []string{"platform", "service"},
			method:      MethodSpendBased,
			wantValid:   []string{"platform", "service"},
			wantDropped: []string{},
		},
		{
			name:        "truncated to four preserving order",
			fields:      []string{"service", "compartmentName", "region", "tenantId", "tenantName"},
			method:      MethodSpendBased,
			wantValid:   []string{"service", "compartmentName", "region", "tenantId"},
			wantDropped: []string{"tenantName"},
		},
		{
			name:        "empty input defaults to service",
			fields:      []string{},
			method:      MethodPowerBased,
			wantValid:   []string{"service"},
			wantDropped: []string{},
		},
		{
			name:        "all invalid defaults to service",
			fields:      []string{"foo", "bar"},
			method:      MethodPowerBased,
			wantValid:   []string{"service"},
			wantDropped: []string{"foo", "bar"},
		},
		{
			name:        "request order preserved",
			fields:      []string{"region", "service"},
			method:      MethodPowerBased,
			wantValid:   []string{"region", "service"},
			wantDropped: []string{},
		},
		{
			name:        "resource dimensions rejected for power based",
			fields:      []string{"resourceId", "skuName", "service"},
			method:      MethodPowerBased,
			wantValid:   []string{"service"},
			wantDropped: []string{"resourceId", "skuName"},
		},
		{
			name:        "unset method behaves as power based",
			fields:      []string{"platform", "service"},
			method:      CalculationMethod(""),
			wantValid:   []string{"service"},
			wantDropped: []string{"platform"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid, dropped := ValidateGroupBy(tc.fields, tc.method)
			require.Equal(t, tc.wantValid, valid)
			require.Equal(t, tc.wantDropped, dropped)
		})
	}
}

func TestValidateGroupByDeterministic(t *testing.T) {
	fields := []string{"region", "foo", "service", "skuName"}
	first, firstDropped := ValidateGroupBy(fields, MethodPowerBased)
	second, secondDropped := ValidateGroupBy(fields, MethodPowerBased)
	require.Equal(t, first, second)
	require.Equal(t, firstDropped, secondDropped)
}

func TestSupportedDimensions(t *testing.T) {
	power := SupportedDimensions(MethodPowerBased)
	require.Equal(t, []string{
		"service", "compartmentName", "compartmentId", "region",
		"tenantId", "tenantName", "subscriptionId",
	}, power)

	spend := SupportedDimensions(MethodSpendBased)
	require.Len(t, spend, 12)
	require.Subset(t, spend, power)
	require.Contains(t, spend, "platform")
	require.Contains(t, spend, "skuPartNumber")
}

func TestGroupsByCompartment(t *testing.T) {
	require.True(t, GroupsByCompartment([]string{"service", "compartmentName"}))
	require.True(t, GroupsByCompartment([]string{"compartmentId"}))
	require.False(t, GroupsByCompartment([]string{"service", "region"}))
	require.False(t, GroupsByCompartment(nil))
}
