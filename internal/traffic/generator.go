package traffic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/docapi"
	"github.com/policyinsight/ddops/internal/logging"
)

// Result summarises one run.
type Result struct {
	Scenario    string
	Count       int64 // requests counted under the scenario's rule
	Failed      int64
	JobID       string // llm-cost only
	Interrupted bool
}

// Generator runs scenarios against one document service.
type Generator struct {
	baseURL string
	out     io.Writer
	metrics *Metrics
	logger  *slog.Logger
	exec    *ddhttp.Executor
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMetrics records every request in m.
func WithMetrics(m *Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator writes progress lines to out (nil discards them).
func NewGenerator(baseURL string, out io.Writer, opts ...GeneratorOption) *Generator {
	if out == nil {
		out = io.Discard
	}
	g := &Generator{baseURL: baseURL, out: out, logger: logging.Logger}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = NewMetrics()
	}
	g.exec = ddhttp.NewExecutor(ddhttp.WithLogger(g.logger))
	return g
}

// Metrics returns the counters the generator records into.
func (g *Generator) Metrics() *Metrics { return g.metrics }

// Run drives cfg for duration. Cancelling ctx stops the run early and is
// not an error.
func (g *Generator) Run(ctx context.Context, cfg ScenarioConfig, duration time.Duration) (*Result, error) {
	client := docapi.NewClient(g.baseURL,
		docapi.WithExecutor(g.exec),
		docapi.WithTimeout(cfg.RequestTimeout),
		docapi.WithLogger(g.logger),
	)
	res := &Result{Scenario: cfg.Name}

	var step func(ctx context.Context) error
	switch cfg.Name {
	case LLMCost:
		fmt.Fprintln(g.out, "   This requires an existing job. Uploading a document...")
		job, err := client.Upload(ctx, "test.pdf", docapi.SamplePDF)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				return res, nil
			}
			return res, fmt.Errorf("uploading document for %s: %w", cfg.Name, err)
		}
		res.JobID = job.ID
		fmt.Fprintf(g.out, "   Created job: %s\n", job.ID)
		if err := ddhttp.SleepContext(ctx, cfg.Settle); err != nil {
			res.Interrupted = true
			return res, nil
		}
		step = func(ctx context.Context) error {
			_, err := client.Ask(ctx, job, cfg.Question)
			return err
		}
	default:
		step = func(ctx context.Context) error {
			_, err := client.Upload(ctx, "test.pdf", docapi.SamplePDF)
			return err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var count, failed atomic.Int64
	eg, egCtx := errgroup.WithContext(runCtx)
	for range max(cfg.Workers, 1) {
		eg.Go(func() error {
			for egCtx.Err() == nil {
				start := time.Now()
				err := step(egCtx)
				if egCtx.Err() != nil && err != nil {
					return nil
				}
				g.metrics.observe(cfg.Name, outcome(err), time.Since(start))

				if counts(cfg, err) {
					if n := count.Add(1); cfg.ProgressEvery > 0 && n%int64(cfg.ProgressEvery) == 0 {
						fmt.Fprintf(g.out, cfg.ProgressFormat+"\n", n)
					}
				}
				if err != nil {
					failed.Add(1)
					fmt.Fprintf(g.out, "   Request failed: %v\n", firstLine(err))
				}
				if ddhttp.SleepContext(egCtx, cfg.Pause) != nil {
					return nil
				}
			}
			return nil
		})
	}
	err := eg.Wait()

	res.Count = count.Load()
	res.Failed = failed.Load()
	res.Interrupted = errors.Is(ctx.Err(), context.Canceled)
	return res, err
}

// counts applies the scenario's counting rule: every answered request, or
// only accepted uploads.
func counts(cfg ScenarioConfig, err error) bool {
	if cfg.AcceptedOnly {
		return err == nil
	}
	return err == nil || ddhttp.StatusCode(err) != 0
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case ddhttp.StatusCode(err) != 0:
		return OutcomeHTTPError
	default:
		return OutcomeError
	}
}

func firstLine(err error) string {
	msg := err.Error()
	for i, r := range msg {
		if r == '\n' {
			return msg[:i]
		}
	}
	return msg
}
