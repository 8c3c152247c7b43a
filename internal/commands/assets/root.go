package assets

import (
	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/datadog/assets"
)

// NewKindCmd returns the "dashboards", "monitors" or "slos" command group,
// whose apply and export work on that kind only.
func NewKindCmd(kind assets.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.Dir,
		Short: "Manage Datadog " + kind.Dir,
	}
	cmd.AddCommand(newApplyCmd(&kind))
	cmd.AddCommand(newExportCmd(&kind))
	return cmd
}

// NewKindCmds returns one NewKindCmd per kind.
func NewKindCmds() []*cobra.Command {
	var cmds []*cobra.Command
	for _, kind := range assets.AllKinds() {
		cmds = append(cmds, NewKindCmd(kind))
	}
	return cmds
}
