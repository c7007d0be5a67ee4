package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/benedict-erwin/carbon-collector/config"
	"github.com/benedict-erwin/carbon-collector/internal/constants"
	"github.com/benedict-erwin/carbon-collector/pkg/logger"
	"github.com/benedict-erwin/carbon-collector/pkg/utils"
)

var (
	flagConfigFile string
	flagProfile    string
	flagDebug      bool
)

// exitCode carries the taxonomy code of the failure that ended the run.
// Commands set it through failWith, Execute maps it to the process status.
var exitCode = constants.CodeSuccess

var rootCmd = &cobra.Command{
	Use:   "carbon-collector",
	Short: "Carbon emissions reporting CLI",
	Long:  `Carbon emissions reporting CLI for querying, paginating and exporting tenancy-wide emission data from the cloud metering service`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			logger.SetLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Failed to execute command")
		status := constants.GetExitCodeFromCode(exitCode)
		if status == 0 {
			// Errors that never passed through failWith still fail the run
			status = 1
		}
		os.Exit(status)
	}
}

// failWith records the taxonomy code for the exit status and logs the
// failure under its standard message.
func failWith(code int, err error) error {
	exitCode = code
	logger.Error().Err(err).Int("code", code).Msg(constants.GetErrorMessage(code))
	return err
}

// init initializes application dependencies and registers commands
func init() {
	// Initialize config
	if err := config.Init(); err != nil {
		panic(err)
	}

	// Initialize logger
	logger.Init(config.Get().App.Timezone, config.Get().App.Env)

	// Initialize utils
	if err := utils.InitTimezone(); err != nil {
		logger.Warn().Err(err).Msg("Timezone initialization failed, continuing with UTC")
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config-file", "", "Path to the credentials file (default ~/.oci/config)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Credentials profile to use (default DEFAULT)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(compartmentsCmd)
}
