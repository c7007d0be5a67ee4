package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/benedict-erwin/carbon-collector/config"
	"github.com/benedict-erwin/carbon-collector/internal/constants"
	"github.com/benedict-erwin/carbon-collector/internal/emissions"
	"github.com/benedict-erwin/carbon-collector/internal/export"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/usageapi"
	"github.com/benedict-erwin/carbon-collector/pkg/utils"
)

var (
	flagStartDate         string
	flagEndDate           string
	flagLastMonth         bool
	flagLast3Months       bool
	flagEmissionType      string
	flagCalculationMethod string
	flagGranularity       string
	flagGroupBy           []string
	flagCompartments      []string
	flagCompartmentDepth  int
	flagLimit             int
	flagAggregateByTime   bool
	flagMaxRecords        int
	flagFullDataset       bool
	flagFullDatasetSpend  bool
	flagNoGrouping        bool
	flagMultiQuery        bool
	flagListCompartments  bool
	flagByCompartments    bool
	flagOutput            string
	flagFormat            string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch carbon emissions data",
	Long: `Fetch carbon emissions data from the metering service for a month-aligned
time window, with optional pagination, comprehensive multi-query retrieval
and CSV/JSON export`,
	RunE:          runFetch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Date range
	fetchCmd.Flags().StringVar(&flagStartDate, "start-date", "", "Start date (YYYY-MM-DD or ISO format), requires --end-date")
	fetchCmd.Flags().StringVar(&flagEndDate, "end-date", "", "End date (YYYY-MM-DD or ISO format), requires --start-date")
	fetchCmd.Flags().BoolVar(&flagLastMonth, "last-month", false, "Query the previous calendar month")
	fetchCmd.Flags().BoolVar(&flagLast3Months, "last-3-months", false, "Query the previous three calendar months")

	// API parameters
	fetchCmd.Flags().StringVar(&flagEmissionType, "emission-type", string(emissions.TypeLocationBased), "Emission accounting standard (LOCATION_BASED or MARKET_BASED)")
	fetchCmd.Flags().StringVar(&flagCalculationMethod, "calculation-method", string(emissions.MethodPowerBased), "Calculation method (POWER_BASED or SPEND_BASED)")
	fetchCmd.Flags().StringVar(&flagGranularity, "granularity", string(emissions.GranularityMonthly), "Time bucketing (DAILY or MONTHLY)")
	fetchCmd.Flags().StringSliceVar(&flagGroupBy, "group-by", emissions.DefaultGroupBy(), "Dimensions to group by")
	fetchCmd.Flags().StringSliceVar(&flagCompartments, "compartments", nil, "Compartment IDs to filter by")
	fetchCmd.Flags().IntVar(&flagCompartmentDepth, "compartment-depth", 0, "Compartment depth level to include (max 7)")
	fetchCmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum number of records per call (max 500)")
	fetchCmd.Flags().BoolVar(&flagAggregateByTime, "aggregate-by-time", false, "Aggregate all emissions over the time period")
	fetchCmd.Flags().IntVar(&flagMaxRecords, "max-records", 0, "Stop paginated retrieval after this many records (0 means unbounded)")

	// Dataset modes
	fetchCmd.Flags().BoolVar(&flagFullDataset, "full-dataset", false, "Download the full dataset with all available details")
	fetchCmd.Flags().BoolVar(&flagFullDatasetSpend, "full-dataset-spend-based", false, "Download the full dataset using spend-based calculations")
	fetchCmd.Flags().BoolVar(&flagNoGrouping, "no-grouping", false, "Retrieve raw daily data, the most detailed view")
	fetchCmd.Flags().BoolVar(&flagMultiQuery, "multi-query-dataset", false, "Run multiple group-by combinations for a comprehensive dataset")
	fetchCmd.Flags().BoolVar(&flagListCompartments, "list-compartments", false, "List all available compartments and exit")
	fetchCmd.Flags().BoolVar(&flagByCompartments, "by-compartments", false, "Group results by compartment and show the compartment breakdown")

	// Output
	fetchCmd.Flags().StringVar(&flagOutput, "output", "", "Output file (CSV or JSON based on extension)")
	fetchCmd.Flags().StringVar(&flagFormat, "format", "", "Output format, csv or json (auto-detected from --output extension)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logger.WithScope("fetch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, code, err := buildCredentialStack()
	if err != nil {
		return failWith(code, err)
	}

	if flagListCompartments {
		return renderCompartments(ctx, stack, false)
	}

	method := emissions.CalculationMethod(flagCalculationMethod)
	if method != emissions.MethodPowerBased && method != emissions.MethodSpendBased {
		return failWith(constants.CodeInvalidParameter, fmt.Errorf("invalid --calculation-method %q", flagCalculationMethod))
	}
	etype := emissions.EmissionType(flagEmissionType)
	if etype != emissions.TypeLocationBased && etype != emissions.TypeMarketBased {
		return failWith(constants.CodeInvalidParameter, fmt.Errorf("invalid --emission-type %q", flagEmissionType))
	}
	granularity := emissions.Granularity(flagGranularity)
	if granularity != emissions.GranularityDaily && granularity != emissions.GranularityMonthly {
		return failWith(constants.CodeInvalidParameter, fmt.Errorf("invalid --granularity %q", flagGranularity))
	}
	if flagFormat != "" && !strings.EqualFold(flagFormat, "csv") && !strings.EqualFold(flagFormat, "json") {
		return failWith(constants.CodeInvalidParameter, fmt.Errorf("invalid --format %q", flagFormat))
	}

	groupBy, dropped := emissions.ValidateGroupBy(flagGroupBy, method)
	if len(dropped) > 0 {
		log.Warn().
			Strs("dropped", dropped).
			Str("calculation_method", string(method)).
			Strs("using", groupBy).
			Msg("Unsupported group-by fields removed")
	}

	if flagByCompartments && !containsField(groupBy, "compartmentName") {
		groupBy = append([]string{"compartmentName"}, groupBy...)
		if len(groupBy) > emissions.MaxGroupByDimensions {
			groupBy = groupBy[:emissions.MaxGroupByDimensions]
			log.Warn().
				Strs("using", groupBy).
				Msg("Group-by trimmed to the service's dimension limit")
		}
	}

	depth := flagCompartmentDepth
	if depth < 0 {
		log.Warn().Int("requested", depth).Msg("Negative compartment depth ignored")
		depth = 0
	}
	if depth == 0 && emissions.GroupsByCompartment(groupBy) {
		depth = emissions.DefaultCompartmentDepth
	}
	if depth > emissions.MaxCompartmentDepth {
		log.Warn().
			Int("requested", depth).
			Int("max", emissions.MaxCompartmentDepth).
			Msg("Compartment depth exceeds the service maximum, clamping")
		depth = emissions.MaxCompartmentDepth
	}

	// Dataset mode presets override the individual parameters
	output := flagOutput
	applyPreset := func(preset emissions.ModePreset, mode string) {
		groupBy = append([]string(nil), preset.GroupBy...)
		granularity = preset.Granularity
		depth = preset.CompartmentDepth
		if preset.CalculationMethod != "" {
			method = preset.CalculationMethod
			etype = preset.EmissionType
		}
		if output == "" {
			output = preset.DefaultOutputName(utils.Now())
			log.Info().Str("output", output).Msg("Auto-setting output file")
		}
		log.Info().Str("mode", mode).Strs("group_by", groupBy).Msg("Dataset mode enabled")
	}
	if flagFullDataset {
		applyPreset(emissions.PresetFullDataset, "full-dataset")
	}
	if flagFullDatasetSpend {
		applyPreset(emissions.PresetFullDatasetSpendBased, "full-dataset-spend-based")
	}
	if flagNoGrouping {
		applyPreset(emissions.PresetNoGrouping, "no-grouping")
	}

	limit := flagLimit
	if cmd.Flags().Changed("limit") {
		switch {
		case limit > emissions.MaxPageSize:
			log.Warn().
				Int("requested", limit).
				Int("max", emissions.MaxPageSize).
				Msg("Limit exceeds the service maximum, clamping")
			limit = emissions.MaxPageSize
		case limit <= 0:
			log.Warn().Int("requested", limit).Msg("Non-positive limit ignored")
			limit = 0
		}
	}

	tr, err := resolveTimeRange(log)
	if err != nil {
		return err
	}
	log.Info().
		Str("start", tr.Start.Format(emissions.DateLayout)).
		Str("end", tr.End.Format(emissions.DateLayout)).
		Msg("Query window resolved")

	cfg := config.Get()
	client, err := usageapi.NewClient(stack.signer, stack.profile.Region, &usageapi.Config{
		Endpoint:      cfg.UsageAPI.Endpoint,
		Timeout:       cfg.UsageAPI.Timeout,
		RetryAttempts: cfg.UsageAPI.RetryAttempts,
		RetryDelay:    cfg.UsageAPI.RetryDelay,
	})
	if err != nil {
		return failWith(constants.CodeConfigurationError, err)
	}

	var ds *emissions.Dataset
	switch {
	case flagMultiQuery:
		ds, err = fetchComprehensive(ctx, log, client, stack.tenantID, tr, granularity, output)
		if err != nil {
			return failWith(constants.CodeUsageAPIError, err)
		}
		if ds.IsEmpty() {
			log.Warn().Msg("No data retrieved from any query combination")
			return nil
		}
	case flagFullDataset || flagNoGrouping:
		req := buildRequest(stack.tenantID, tr, granularity, method, etype, groupBy, depth, 0)
		if err := req.Validate(); err != nil {
			return failWith(constants.CodeValidationFailed, err)
		}
		ds, _, err = emissions.NewPaginator(client).FetchAll(ctx, req, flagMaxRecords)
		if err != nil {
			return failWith(fetchFailureCode(err), err)
		}
	default:
		req := buildRequest(stack.tenantID, tr, granularity, method, etype, groupBy, depth, limit)
		if err := req.Validate(); err != nil {
			return failWith(constants.CodeValidationFailed, err)
		}
		page, err := client.FetchPage(ctx, req)
		if err != nil {
			return failWith(fetchFailureCode(err), err)
		}
		ds = emissions.DatasetFromPage(page)
	}

	printSummary(ds, flagByCompartments)

	if output != "" {
		if err := saveResults(log, ds, output); err != nil {
			return err
		}
	}

	// A signal mid-run still fails the invocation, even when partial
	// results were kept and saved above.
	if ctx.Err() != nil {
		return failWith(constants.CodeInterrupted, errors.New("operation cancelled by signal"))
	}
	return nil
}

// resolveTimeRange turns the date flags into a validated month-aligned
// window. Without any date flag the previous calendar month is used.
func resolveTimeRange(log *logger.ScopedLogger) (emissions.TimeRange, error) {
	now := utils.Now()

	modes := 0
	for _, set := range []bool{flagLastMonth, flagLast3Months, flagStartDate != "" || flagEndDate != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return emissions.TimeRange{}, failWith(constants.CodeInvalidParameter,
			errors.New("--start-date/--end-date, --last-month and --last-3-months are mutually exclusive"))
	}

	var start, end time.Time
	var err error
	switch {
	case flagLastMonth:
		start, end, err = emissions.ResolvePeriod(emissions.PeriodLastMonth, now)
	case flagLast3Months:
		start, end, err = emissions.ResolvePeriod(emissions.PeriodLast3Months, now)
	case flagStartDate != "" || flagEndDate != "":
		if flagStartDate == "" || flagEndDate == "" {
			return emissions.TimeRange{}, failWith(constants.CodeMissingParameter,
				errors.New("--start-date and --end-date must be given together"))
		}
		start, err = normalizeDateFlag(log, "start-date", flagStartDate)
		if err == nil {
			end, err = normalizeDateFlag(log, "end-date", flagEndDate)
		}
	default:
		start, end = emissions.DefaultRange(now)
		log.Info().Msg("No date range given, defaulting to the previous calendar month")
	}
	if err != nil {
		return emissions.TimeRange{}, failWith(constants.CodeInvalidFormat, err)
	}

	tr, err := emissions.NewTimeRange(start, end)
	if err != nil {
		return emissions.TimeRange{}, failWith(constants.CodeInvalidDateRange, err)
	}
	return tr, nil
}

// normalizeDateFlag parses one date flag and reports month-boundary coercion
func normalizeDateFlag(log *logger.ScopedLogger, name, value string) (time.Time, error) {
	parsed, coerced, err := emissions.NormalizeDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	if coerced {
		log.Warn().
			Str("flag", name).
			Str("given", value).
			Str("using", parsed.Format(emissions.DateLayout)).
			Msg("Date moved to the first day of the month")
	}
	return parsed, nil
}

// buildRequest assembles the query from the resolved parameters
func buildRequest(tenantID string, tr emissions.TimeRange, granularity emissions.Granularity,
	method emissions.CalculationMethod, etype emissions.EmissionType,
	groupBy []string, depth, limit int) *emissions.QueryRequest {

	req := emissions.NewQueryRequest(tenantID, tr)
	req.Granularity = granularity
	req.CalculationMethod = method
	req.EmissionType = etype
	req.GroupBy = groupBy
	req.CompartmentDepth = depth
	req.CompartmentIDs = flagCompartments
	req.Limit = limit
	req.IsAggregateByTime = flagAggregateByTime
	return req
}

// fetchComprehensive runs every predefined group-by combination through
// the fallback strategy and merges the sub-results. With an output file
// set, each combination is additionally saved to its own artifact.
func fetchComprehensive(ctx context.Context, log *logger.ScopedLogger, client emissions.QueryClient,
	tenantID string, tr emissions.TimeRange, granularity emissions.Granularity, output string) (*emissions.Dataset, error) {

	strategy := emissions.NewFallbackStrategy(client, tenantID, granularity)

	cfg := emissions.MultiQueryConfig{}
	if output != "" {
		format := export.DetectFormat(output, flagFormat)
		cfg.Persist = func(combo emissions.GroupByCombination, ds *emissions.Dataset) error {
			path := export.CombinationPath(output, combo.Suffix)
			if err := export.Save(path, ds, format); err != nil {
				return err
			}
			log.Info().Str("file", path).Int("records", ds.Len()).Msg("Saved combination results")
			return nil
		}
	}

	return emissions.NewMultiQuery(strategy, cfg).FetchComprehensive(ctx, tr, flagFullDatasetSpend)
}

// fetchFailureCode distinguishes a signal-driven abort from a service failure
func fetchFailureCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return constants.CodeInterrupted
	}
	return constants.CodeUsageAPIError
}

// saveResults writes the dataset to the output file. An empty CSV export
// is reported but does not fail the run.
func saveResults(log *logger.ScopedLogger, ds *emissions.Dataset, output string) error {
	format := export.DetectFormat(output, flagFormat)
	if flagFormat == "" {
		ext := strings.ToLower(filepath.Ext(output))
		if ext != ".csv" && ext != ".json" {
			log.Warn().Str("file", output).Msg("Unknown output extension, defaulting to CSV")
		}
	}

	if err := export.Save(output, ds, format); err != nil {
		if errors.Is(err, export.ErrNoData) {
			log.Warn().Str("file", output).Msg("No records to export, file not written")
			return nil
		}
		return failWith(constants.CodeFileSystemError, err)
	}

	log.Info().
		Str("file", output).
		Str("format", string(format)).
		Int("records", ds.Len()).
		Msg("Results saved")
	return nil
}

// printSummary renders the console report for a completed run
func printSummary(ds *emissions.Dataset, byCompartments bool) {
	if ds.IsEmpty() {
		fmt.Println("No carbon emissions data found for the specified criteria.")
		return
	}

	report := emissions.Summarize(ds, byCompartments)

	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("CARBON EMISSIONS SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total Carbon Emissions: %s MTCO2e\n", report.TotalEmissions.StringFixed(6))
	fmt.Printf("Number of Records: %d\n", report.RecordCount)

	if byCompartments && len(report.Compartments) > 0 {
		fmt.Println()
		fmt.Println("Emissions by Compartment:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Compartment", "MTCO2e", "Share"})
		for _, row := range report.Compartments {
			table.Append([]string{
				utils.Truncate(row.Key, 35),
				row.Emissions.StringFixed(6),
				fmt.Sprintf("%5.1f%%", row.Percent),
			})
		}
		table.Render()
	}

	if len(report.Services) > 0 {
		fmt.Println()
		fmt.Println("Emissions by Service:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Service", "MTCO2e", "Share"})
		for _, row := range report.Services {
			table.Append([]string{
				utils.Truncate(row.Key, 25),
				row.Emissions.StringFixed(6),
				fmt.Sprintf("%5.1f%%", row.Percent),
			})
		}
		table.Render()
	}
}

// containsField reports whether a group-by list already carries a dimension
func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
