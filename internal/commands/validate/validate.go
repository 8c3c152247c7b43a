package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/commands/ui"
	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/datadog"
)

// NewValidateCmd checks the API key and then the application key.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that DD_API_KEY and DD_APP_KEY are valid",
		Long: `Checks the API key against /validate, then lists one monitor with both keys.
A 403 on the second call lists the application key scopes apply and export need.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			client := datadog.NewClient(settings)
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			fmt.Fprintf(out, "Validating API keys against %s...\n", client.BaseURL())
			if err := client.ValidateAPIKey(ctx); err != nil {
				fmt.Fprintln(out, ui.Fail("API key"))
				return err
			}
			fmt.Fprintln(out, ui.OK("API key is valid"))

			if err := client.ValidateAppKey(ctx); err != nil {
				fmt.Fprintln(out, ui.Fail("Application key"))
				return err
			}
			fmt.Fprintln(out, ui.OK("Application key can read monitors"))
			return nil
		},
	}
}
