package assets

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policyinsight/ddops/internal/commands/ui"
	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/datadog"
	"github.com/policyinsight/ddops/internal/datadog/assets"
	"github.com/policyinsight/ddops/internal/utils"
)

type exportOptions struct {
	outputDir    string
	outputPath   string
	tags         string
	skipValidate bool
}

// NewExportCmd returns the export command for every kind.
func NewExportCmd() *cobra.Command {
	return newExportCmd(nil)
}

func newExportCmd(fixed *assets.Kind) *cobra.Command {
	opts := &exportOptions{}
	short := "Export live dashboards, monitors and SLOs to JSON files"
	if fixed != nil {
		short = "Export live " + strings.ToLower(fixed.Label) + " to JSON files"
	}
	cmd := &cobra.Command{
		Use:   "export",
		Short: short,
		Long: `Writes every live asset, with its real id, to a JSON file that apply can re-apply.
The output path template supports {DATA_DIR}, {kind}, {id}, {name}, {title},
any tag key such as {team}, and environment variables.`,
		Args: cobra.NoArgs,
	}
	kinds := selector(cmd, fixed)
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Output directory, substituted for {DATA_DIR} (default: DATA_DIR or datadog)")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "Output path template (default: EXPORT_PATH_TEMPLATE or {DATA_DIR}/{kind}/{name}.json)")
	cmd.Flags().StringVar(&opts.tags, "tags", "", "Comma-separated tags; only assets carrying all of them are exported")
	cmd.Flags().BoolVar(&opts.skipValidate, "skip-validate", false, "Skip the API and application key preflight check")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, opts, kinds())
	}
	return cmd
}

func runExport(cmd *cobra.Command, opts *exportOptions, kinds []assets.Kind) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	dataDir := opts.outputDir
	if dataDir == "" {
		dataDir = settings.DataDir
	}
	pathTemplate := opts.outputPath
	if pathTemplate == "" {
		pathTemplate = settings.ExportPathTemplate
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exporting Datadog assets to: %s\n", dataDir)
	fmt.Fprintf(out, "DD_SITE: %s\n", settings.Site)
	fmt.Fprintf(out, "DD_API_KEY: %s\n", utils.MaskSecret(settings.APIKey))
	fmt.Fprintf(out, "DD_APP_KEY: %s\n\n", utils.MaskSecret(settings.AppKey))

	client := datadog.NewClient(settings)
	if !opts.skipValidate {
		if err := validateKeys(cmd, client); err != nil {
			return err
		}
	}

	exporter := assets.NewExporter(client, assets.ExportOptions{
		DataDir:      dataDir,
		PathTemplate: pathTemplate,
		Tags:         utils.ParseCommaSeparated(opts.tags),
		PageSize:     settings.PageSize,
		BaseURL:      client.BaseURL(),
	}, out)
	summary := exporter.Export(cmd.Context(), kinds)
	printExportSummary(out, summary)

	if n := summary.Failed(); n > 0 {
		return fmt.Errorf("%d export(s) failed", n)
	}
	return nil
}

func printExportSummary(out io.Writer, s *assets.Summary) {
	fmt.Fprintln(out, ui.Title("Summary:"))
	for _, ks := range s.Kinds {
		fmt.Fprintf(out, "  %s: %s\n", ks.Kind.Label, kindLine(ks, assets.OutcomeExported, assets.OutcomeFailed))
	}
	fmt.Fprintln(out)
	for _, ks := range s.Kinds {
		if datadog.IsPermission(ks.Err) {
			fmt.Fprintln(out, ui.Fail("Permission Error: "+ks.Err.Error()))
			fmt.Fprintln(out)
		}
	}
	if n := s.Failed(); n > 0 {
		fmt.Fprintln(out, ui.Fail(fmt.Sprintf("%d export(s) failed", n)))
		return
	}
	fmt.Fprintln(out, ui.OK("Export completed successfully!"))
}
