package assets

import (
	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/datadog/assets"
)

// kindFlags are the --dashboards-only, --monitors-only and --slos-only
// switches. Several may be combined.
type kindFlags struct {
	dashboards bool
	monitors   bool
	slos       bool
}

func (k *kindFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&k.dashboards, "dashboards-only", false, "Only process dashboards")
	cmd.Flags().BoolVar(&k.monitors, "monitors-only", false, "Only process monitors")
	cmd.Flags().BoolVar(&k.slos, "slos-only", false, "Only process SLOs")
}

func (k *kindFlags) kinds() []assets.Kind {
	return assets.SelectKinds(k.dashboards, k.monitors, k.slos)
}

// selector returns the kinds a command works on: fixed for the per-kind
// subcommands, from the flags otherwise.
func selector(cmd *cobra.Command, fixed *assets.Kind) func() []assets.Kind {
	if fixed != nil {
		return func() []assets.Kind { return []assets.Kind{*fixed} }
	}
	flags := &kindFlags{}
	flags.register(cmd)
	return flags.kinds
}
