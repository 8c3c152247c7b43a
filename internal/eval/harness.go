package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/policyinsight/ddops/internal/docapi"
	"github.com/policyinsight/ddops/internal/logging"
	"github.com/policyinsight/ddops/internal/storage"
)

// Runs is how many times each fixture is processed.
const Runs = 2

// MinFixtures is the fixture count below which metrics are not meaningful.
const MinFixtures = 5

// ErrNoReports means not a single run produced a report.
var ErrNoReports = errors.New("no reports were successfully processed")

// Options configures a Harness.
type Options struct {
	FixturesDir     string
	OutDir          string
	FallbackFixture string // copied into FixturesDir when it has no PDFs
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// Harness drives the document service and scores its reports.
type Harness struct {
	client *docapi.Client
	opts   Options
	out    io.Writer
	logger *slog.Logger
}

// NewHarness writes progress lines to out (nil discards them).
func NewHarness(client *docapi.Client, opts Options, out io.Writer) *Harness {
	if out == nil {
		out = io.Discard
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Minute
	}
	return &Harness{client: client, opts: opts, out: out, logger: logging.Logger}
}

// Outcome is what a harness run produced.
type Outcome struct {
	Metrics      HealthMetrics
	Fixtures     []string
	Failures     int // runs without a report
	JSONPath     string
	MarkdownPath string
}

// Run processes every fixture Runs times, saves each report and writes the
// health metrics.
func (h *Harness) Run(ctx context.Context) (*Outcome, error) {
	if err := os.MkdirAll(h.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating out dir: %w", err)
	}

	fixtures, err := h.fixtures()
	if err != nil {
		return nil, err
	}
	if len(fixtures) < MinFixtures {
		h.logger.Warn("too few PDF fixtures for meaningful metrics", "found", len(fixtures), "want", MinFixtures)
		fmt.Fprintf(h.out, "Warning: Only %d PDF fixtures found. Need at least %d for meaningful metrics.\n", len(fixtures), MinFixtures)
	}

	res := &Outcome{Fixtures: fixtures}
	runs := make([]map[string]map[string]any, Runs)
	var all []map[string]any
	for _, path := range fixtures {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for n := 1; n <= Runs; n++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if runs[n-1] == nil {
				runs[n-1] = map[string]map[string]any{}
			}

			fmt.Fprintf(h.out, "Processing %s (run %d)...\n", name, n)
			report, err := h.Process(ctx, path)
			if err != nil {
				res.Failures++
				h.logger.Error("run failed", "fixture", name, "run", n, "error", err)
				fmt.Fprintf(h.out, "Error: %s run %d: %v\n", name, n, err)
				continue
			}
			runs[n-1][name] = report
			all = append(all, report)

			out := filepath.Join(h.opts.OutDir, fmt.Sprintf("%s_run%d.json", name, n))
			if err := storage.WriteJSONFile(out, report); err != nil {
				return nil, err
			}
			fmt.Fprintf(h.out, "Saved: %s\n", out)
		}
	}

	if len(all) == 0 {
		return res, ErrNoReports
	}

	res.Metrics = Compute(len(fixtures), all, runs[0], runs[1])
	res.JSONPath, res.MarkdownPath, err = WriteOutputs(h.opts.OutDir, res.Metrics)
	if err != nil {
		return res, err
	}
	fmt.Fprintf(h.out, "Generated: %s\n", res.JSONPath)
	fmt.Fprintf(h.out, "Generated: %s\n", res.MarkdownPath)
	return res, nil
}

// Process uploads one PDF, waits for the job and fetches its report.
func (h *Harness) Process(ctx context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job, err := h.client.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if err := h.client.Wait(ctx, job, h.opts.PollInterval, h.opts.PollTimeout); err != nil {
		return nil, err
	}
	report, err := h.client.Report(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	return report, nil
}

// fixtures lists the PDFs to process, seeding the fixtures directory from
// the fallback fixture when it has none.
func (h *Harness) fixtures() ([]string, error) {
	paths, err := storage.ListFiles(h.opts.FixturesDir, ".pdf")
	if err != nil && !storage.IsNotExist(err) {
		return nil, err
	}
	if len(paths) > 0 || h.opts.FallbackFixture == "" {
		return paths, nil
	}

	data, err := os.ReadFile(h.opts.FallbackFixture)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := os.MkdirAll(h.opts.FixturesDir, 0o755); err != nil {
		return nil, err
	}
	dst := filepath.Join(h.opts.FixturesDir, filepath.Base(h.opts.FallbackFixture))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, err
	}
	h.logger.Info("seeded fixtures from fallback", "from", h.opts.FallbackFixture, "to", dst)
	return []string{dst}, nil
}
