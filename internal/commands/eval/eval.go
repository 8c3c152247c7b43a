package eval

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/commands/ui"
	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/docapi"
	"github.com/policyinsight/ddops/internal/eval"
	"github.com/policyinsight/ddops/internal/logging"
)

type options struct {
	fixturesDir     string
	outDir          string
	baseURL         string
	fallbackFixture string
}

// NewEvalCmd returns the extraction health evaluation command.
func NewEvalCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure extraction health over the PDF fixtures",
		Long: fmt.Sprintf(`Processes every PDF fixture %d times against the document service and scores the
reports: schema pass rate, null rate per field, run-to-run consistency and the most
often missing fields. Writes %s and %s to the out directory.`,
			eval.Runs, eval.MetricsJSONFile, eval.MetricsMarkdownFile),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.fixturesDir, "fixtures-dir", "", "Directory of PDF fixtures (default: EVAL_FIXTURES_DIR or eval/fixtures)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Output directory (default: EVAL_OUT_DIR or eval/out)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Document service URL (default: BASE_URL or http://localhost:8080)")
	cmd.Flags().StringVar(&opts.fallbackFixture, "fallback-fixture", "", "PDF copied into the fixtures directory when it has none")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	settings, err := config.LoadHarnessSettings()
	if err != nil {
		return err
	}
	baseURL := firstNonEmpty(opts.baseURL, settings.BaseURL)

	client := docapi.NewClient(baseURL,
		docapi.WithExecutor(ddhttp.NewExecutor(
			ddhttp.WithMaxBodySize(settings.HTTPMaxBodySize),
			ddhttp.WithLogger(logging.Logger),
		)),
		docapi.WithTimeout(settings.HTTPTimeout),
	)
	harness := eval.NewHarness(client, eval.Options{
		FixturesDir:     firstNonEmpty(opts.fixturesDir, settings.FixturesDir),
		OutDir:          firstNonEmpty(opts.outDir, settings.OutDir),
		FallbackFixture: opts.fallbackFixture,
		PollInterval:    settings.PollInterval,
		PollTimeout:     settings.PollTimeout,
	}, cmd.ErrOrStderr())

	res, err := harness.Run(cmd.Context())
	if err != nil {
		return err
	}

	m := res.Metrics
	var missing []string
	for _, fr := range m.TopMissingFields {
		missing = append(missing, fmt.Sprintf("%s (%.1f%%)", fr.Field, fr.Rate*100))
	}
	if len(missing) == 0 {
		missing = []string{"none"}
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Panel(
		ui.Title("Extraction health"),
		fmt.Sprintf("Documents:         %d", m.DocsCount),
		fmt.Sprintf("Schema pass rate:  %.1f%%", m.SchemaPassRate*100),
		fmt.Sprintf("Self-consistency:  %.1f%%", m.SelfConsistencyRate*100),
		"Top missing:       "+strings.Join(missing, ", "),
		fmt.Sprintf("Failed runs:       %d", res.Failures),
	))
	fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", res.JSONPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", res.MarkdownPath)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
