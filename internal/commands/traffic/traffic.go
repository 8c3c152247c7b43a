package traffic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/policyinsight/ddops/internal/commands/ui"
	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/logging"
	"github.com/policyinsight/ddops/internal/traffic"
)

type options struct {
	scenario    string
	duration    int
	baseURL     string
	metricsAddr string
}

// headlines and completions per scenario, printed around the run.
var (
	headlines = map[string][2]string{
		traffic.Latency: {"latency spike", "Sending concurrent requests to %s/api/documents/upload"},
		traffic.Backlog: {"job backlog", "Uploading documents to create backlog at %s/api/documents/upload"},
		traffic.LLMCost: {"LLM cost spike", "Sending Q&A requests to %s/api/documents/{id}/qa"},
	}
	completions = map[string]string{
		traffic.Latency: "Completed: %d requests sent",
		traffic.Backlog: "Completed: %d documents uploaded (should create backlog)",
		traffic.LLMCost: "Completed: %d Q&A requests sent (should trigger LLM calls)",
	}
)

// NewTrafficCmd returns the traffic generator command.
func NewTrafficCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Generate traffic to trigger Datadog monitors",
		Long: `Drives the document service with one of three load shapes:
  latency   10 concurrent upload loops
  backlog   one steady upload loop, counting only accepted uploads
  llm-cost  one upload, then one Q&A request per second against it
Ctrl-C stops early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Scenario: latency, backlog or llm-cost")
	cmd.Flags().IntVar(&opts.duration, "duration", 60, "Duration in seconds")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Document service URL (default: BASE_URL or http://localhost:8080)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running, e.g. :9090")
	cobra.CheckErr(cmd.MarkFlagRequired("scenario"))
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := traffic.ParseScenario(opts.scenario)
	if err != nil {
		return err
	}
	if opts.duration <= 0 {
		return fmt.Errorf("--duration must be positive, got %d", opts.duration)
	}
	settings, err := config.LoadHarnessSettings()
	if err != nil {
		return err
	}
	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = settings.BaseURL
	}
	duration := time.Duration(opts.duration) * time.Second

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Title("Traffic Generator - PolicyInsight"))
	fmt.Fprintf(out, "Scenario: %s\n", cfg.Name)
	fmt.Fprintf(out, "Duration: %d seconds\n", opts.duration)
	fmt.Fprintf(out, "Base URL: %s\n", baseURL)
	if opts.metricsAddr != "" {
		fmt.Fprintf(out, "Metrics:  http://%s/metrics\n", opts.metricsAddr)
	}
	fmt.Fprintln(out)

	head := headlines[cfg.Name]
	fmt.Fprintf(out, "🚀 Generating %s scenario for %d seconds...\n", head[0], opts.duration)
	fmt.Fprintf(out, "   "+head[1]+"\n", baseURL)

	gen := traffic.NewGenerator(baseURL, out, traffic.WithLogger(logging.Logger))
	res, err := runWithMetrics(cmd.Context(), gen, cfg, duration, opts.metricsAddr)
	if err != nil {
		fmt.Fprintln(out, ui.Fail("Error: "+err.Error()))
		if cfg.Name == traffic.LLMCost {
			fmt.Fprintln(out, "   Note: LLM cost spike requires a working job. Try uploading a document first.")
		}
		return err
	}

	fmt.Fprintln(out, ui.OK(fmt.Sprintf(completions[cfg.Name], res.Count)))
	if res.Failed > 0 {
		fmt.Fprintf(out, "   %d request(s) failed\n", res.Failed)
	}
	fmt.Fprintln(out)
	if res.Interrupted {
		fmt.Fprintln(out, ui.Warn("Interrupted by user"))
		return nil
	}
	printDone(out)
	return nil
}

// runWithMetrics runs the generator, serving its metrics on addr for the
// duration of the run when addr is set.
func runWithMetrics(ctx context.Context, gen *traffic.Generator, cfg traffic.ScenarioConfig, d time.Duration, addr string) (*traffic.Result, error) {
	if addr == "" {
		return gen.Run(ctx, cfg, d)
	}

	serveCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error {
		return gen.Metrics().Serve(gctx, addr)
	})

	var res *traffic.Result
	g.Go(func() error {
		defer stop()
		var err error
		res, err = gen.Run(gctx, cfg, d)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.Interrupted = errors.Is(ctx.Err(), context.Canceled)
	return res, nil
}

func printDone(out io.Writer) {
	fmt.Fprintln(out, ui.OK("Traffic generation completed!"))
	fmt.Fprintln(out, "   Check Datadog monitors for alerts.")
}
