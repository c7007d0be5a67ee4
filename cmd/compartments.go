package cmd

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/benedict-erwin/carbon-collector/config"
	"github.com/benedict-erwin/carbon-collector/internal/constants"
	"github.com/benedict-erwin/carbon-collector/pkg/identity"
	"github.com/benedict-erwin/carbon-collector/pkg/utils"
)

var compartmentsCmd = &cobra.Command{
	Use:   "compartments",
	Short: "List compartments in the tenancy",
	Long:  `List every compartment in the tenancy, including the root, with identifiers and lifecycle states`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, code, err := buildCredentialStack()
		if err != nil {
			return failWith(code, err)
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return renderCompartments(cmd.Context(), stack, asJSON)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	compartmentsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
}

// renderCompartments prints the tenancy's compartment tree. Also serves
// the fetch command's --list-compartments flag.
func renderCompartments(ctx context.Context, stack *credentialStack, asJSON bool) error {
	cfg := config.Get()
	client, err := identity.NewClient(stack.signer, stack.profile.Region, stack.tenantID, &identity.Config{
		Endpoint:  cfg.Identity.Endpoint,
		Timeout:   cfg.Identity.Timeout,
		CacheSize: cfg.Identity.CacheSize,
		CacheTTL:  cfg.Identity.CacheTTL,
	})
	if err != nil {
		return failWith(constants.CodeConfigurationError, err)
	}

	compartments, err := client.ListCompartmentTree(ctx)
	if err != nil {
		return failWith(constants.CodeIdentityError, err)
	}

	if len(compartments) == 0 {
		fmt.Println("No compartments found or unable to retrieve compartments.")
		return nil
	}

	if asJSON {
		output, _ := json.MarshalIndent(compartments, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("AVAILABLE COMPARTMENTS")
	fmt.Println("================================================================================")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Name", "ID", "State"})
	for _, compartment := range compartments {
		table.Append([]string{
			utils.Truncate(compartment.Name, 29),
			compartment.ID,
			compartment.LifecycleState,
		})
	}
	table.Render()
	fmt.Printf("\nTotal compartments: %d\n", len(compartments))
	return nil
}
