package assets

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/commands/ui"
	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/datadog"
	"github.com/policyinsight/ddops/internal/datadog/assets"
	"github.com/policyinsight/ddops/internal/utils"
)

// metricsPreview is how many referenced metrics the sanity check lists.
const metricsPreview = 10

type applyOptions struct {
	templatesDir     string
	skipValidate     bool
	skipMetricsCheck bool
}

// NewApplyCmd returns the apply command for every kind.
func NewApplyCmd() *cobra.Command {
	return newApplyCmd(nil)
}

func newApplyCmd(fixed *assets.Kind) *cobra.Command {
	opts := &applyOptions{}
	short := "Create or update dashboards, monitors and SLOs from templates"
	if fixed != nil {
		short = "Create or update " + strings.ToLower(fixed.Label) + " from templates"
	}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: short,
		Long: `Applies every JSON template under <templates-dir>/dashboards, /monitors and /slos.
An asset carrying an id is updated in place; otherwise the first live asset with the same
name is updated; otherwise a new asset is created. Re-running converges.`,
		Args: cobra.NoArgs,
	}
	kinds := selector(cmd, fixed)
	cmd.Flags().StringVar(&opts.templatesDir, "templates-dir", "", "Templates directory (default: TEMPLATES_DIR or datadog/templates)")
	cmd.Flags().BoolVar(&opts.skipValidate, "skip-validate", false, "Skip the API and application key preflight check")
	cmd.Flags().BoolVar(&opts.skipMetricsCheck, "skip-metrics-check", false, "Skip the metrics sanity check")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, opts, kinds())
	}
	return cmd
}

func runApply(cmd *cobra.Command, opts *applyOptions, kinds []assets.Kind) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	templatesDir := opts.templatesDir
	if templatesDir == "" {
		templatesDir = settings.TemplatesDir
	}
	if abs, err := filepath.Abs(templatesDir); err == nil {
		templatesDir = abs
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Templates directory: %s\n", templatesDir)
	fmt.Fprintf(out, "DD_API_KEY: %s\n", utils.MaskSecret(settings.APIKey))
	fmt.Fprintf(out, "DD_APP_KEY: %s\n\n", utils.MaskSecret(settings.AppKey))

	client := datadog.NewClient(settings)
	ctx := cmd.Context()

	if !opts.skipValidate {
		if err := validateKeys(cmd, client); err != nil {
			return err
		}
	}

	upserter := assets.NewUpserter(client, assets.WithPageSize(settings.PageSize))
	summary, err := assets.NewApplier(upserter, templatesDir, out).Apply(ctx, kinds)
	if err != nil {
		return err
	}
	printApplySummary(out, summary)

	if !opts.skipMetricsCheck {
		printMetricsReport(out, assets.CheckMetrics(ctx, client, templatesDir, kinds, time.Now()))
	}

	if n := summary.Failed(); n > 0 {
		return fmt.Errorf("%d asset(s) failed to apply", n)
	}
	return nil
}

func validateKeys(cmd *cobra.Command, client *datadog.Client) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validating API keys...")
	if err := client.ValidateKeys(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.OK("API keys validated"))
	fmt.Fprintln(out)
	return nil
}

// kindLine renders one kind's counts, e.g. "2 created, 1 updated".
func kindLine(ks *assets.KindSummary, outcomes ...assets.Outcome) string {
	if ks.Err != nil {
		return "failed: " + firstLine(ks.Err.Error())
	}
	var parts []string
	for _, o := range outcomes {
		if n := ks.Count(o); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		return "(none found)"
	}
	return strings.Join(parts, ", ")
}

func printApplySummary(out io.Writer, s *assets.Summary) {
	fmt.Fprintln(out, ui.Title("Summary:"))
	for _, ks := range s.Kinds {
		fmt.Fprintf(out, "  %s: %s\n", ks.Kind.Label, kindLine(ks, assets.OutcomeCreated, assets.OutcomeUpdated, assets.OutcomeFailed))
	}
	for _, r := range s.Warnings() {
		fmt.Fprintf(out, "  %s\n", ui.Warn(fmt.Sprintf("%s %q: %s", r.Kind.Name, r.Name, r.Warning)))
	}
	fmt.Fprintln(out)

	if n := s.Failed(); n > 0 {
		fmt.Fprintln(out, ui.Fail(fmt.Sprintf("%d asset(s) failed to apply", n)))
		return
	}
	fmt.Fprintln(out, ui.OK("All assets applied successfully!"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Muted("Next step: run `ddops export` to export the created assets with real IDs"))
}

func printMetricsReport(out io.Writer, r assets.MetricsReport) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Metrics sanity check (best-effort)...")
	switch r.Status {
	case assets.MetricsNoneReferenced:
		fmt.Fprintf(out, "  %s\n\n", ui.Warn("No metrics detected in templates (skipping check)"))
		return
	case assets.MetricsVerified:
		if len(r.Missing) == 0 {
			fmt.Fprintf(out, "  %s\n", ui.OK("All referenced metrics reported in the last hour"))
		} else {
			shown, more := assets.Preview(r.Missing, metricsPreview)
			fmt.Fprintf(out, "  %s\n", ui.Warn("Not reporting in the last hour: "+strings.Join(shown, ", ")))
			if more > 0 {
				fmt.Fprintf(out, "     ... and %d more\n", more)
			}
		}
	case assets.MetricsSkipped:
		fmt.Fprintf(out, "  %s\n", ui.Warn("SKIPPED: Insufficient permissions to verify metrics"))
		fmt.Fprintln(out, "     (Requires 'metrics_read' scope)")
	default:
		fmt.Fprintf(out, "  %s\n", ui.Warn("Could not verify metrics: "+firstLine(r.Err.Error())))
	}

	shown, more := assets.Preview(r.Referenced, metricsPreview)
	fmt.Fprintf(out, "  %s\n", ui.Info("Referenced metrics in templates: "+strings.Join(shown, ", ")))
	if more > 0 {
		fmt.Fprintf(out, "     ... and %d more\n", more)
	}
	fmt.Fprintln(out)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
