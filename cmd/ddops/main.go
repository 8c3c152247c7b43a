package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/commands/assets"
	"github.com/policyinsight/ddops/internal/commands/config"
	"github.com/policyinsight/ddops/internal/commands/eval"
	"github.com/policyinsight/ddops/internal/commands/traffic"
	"github.com/policyinsight/ddops/internal/commands/validate"
	"github.com/policyinsight/ddops/internal/commands/version"
	"github.com/policyinsight/ddops/internal/logging"
)

func main() {
	var logLevel string
	root := &cobra.Command{
		Use:           "ddops",
		Short:         "Datadog assets, traffic and extraction health CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitLogger(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default: LOG_LEVEL or info)")

	root.AddCommand(assets.NewApplyCmd())
	root.AddCommand(assets.NewExportCmd())
	root.AddCommand(assets.NewKindCmds()...)
	root.AddCommand(validate.NewValidateCmd())
	root.AddCommand(traffic.NewTrafficCmd())
	root.AddCommand(eval.NewEvalCmd())
	root.AddCommand(config.NewConfigCmd())
	root.AddCommand(version.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	cobra.CheckErr(err)
}
