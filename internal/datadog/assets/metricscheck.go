package assets

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/storage"
)

// metricPatterns find metric names in dashboard queries, widget "q" fields
// and monitor/SLO query strings.
var metricPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:avg|sum|p95|p99|max|min):([a-zA-Z0-9._-]+)`),
	regexp.MustCompile(`"q"\s*:\s*"[^"]*:([a-zA-Z0-9._-]+)`),
	regexp.MustCompile(`query["']?\s*:\s*["'][^"']*:([a-zA-Z0-9._-]+)`),
}

// MetricsStatus is the outcome of the best-effort metrics check.
type MetricsStatus int

const (
	MetricsNoneReferenced MetricsStatus = iota
	MetricsVerified
	MetricsSkipped    // the key lacks metrics_read
	MetricsUnverified // any other failure
)

// MetricsReport is what CheckMetrics found. It is never an error.
type MetricsReport struct {
	Status     MetricsStatus
	Referenced []string
	Missing    []string // referenced but not reporting in the window
	Err        error
}

// MetricsQuerier lists active metric names. *datadog.Client satisfies it.
type MetricsQuerier interface {
	QueryMetrics(ctx context.Context, from, to time.Time) ([]string, error)
}

// ExtractMetricNames returns the sorted, de-duplicated metric names found
// in a template's text.
func ExtractMetricNames(text string) []string {
	set := map[string]struct{}{}
	for _, re := range metricPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			set[m[1]] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// ReferencedMetrics scans every template of kinds under templatesDir.
// Unreadable files are skipped.
func ReferencedMetrics(templatesDir string, kinds []Kind) []string {
	set := map[string]struct{}{}
	for _, kind := range kinds {
		paths, err := storage.ListJSONFiles(filepath.Join(templatesDir, kind.Dir))
		if err != nil {
			continue
		}
		for _, path := range paths {
			raw, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			for _, name := range ExtractMetricNames(string(raw)) {
				set[name] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// CheckMetrics compares the metrics the templates reference with those that
// reported during the hour before now.
func CheckMetrics(ctx context.Context, q MetricsQuerier, templatesDir string, kinds []Kind, now time.Time) MetricsReport {
	report := MetricsReport{Referenced: ReferencedMetrics(templatesDir, kinds)}
	if len(report.Referenced) == 0 {
		return report
	}

	active, err := q.QueryMetrics(ctx, now.Add(-time.Hour), now)
	if err != nil {
		report.Err = err
		report.Status = MetricsUnverified
		if ddhttp.IsStatus(err, http.StatusForbidden) {
			report.Status = MetricsSkipped
		}
		return report
	}

	report.Status = MetricsVerified
	seen := make(map[string]struct{}, len(active))
	for _, name := range active {
		seen[name] = struct{}{}
	}
	for _, name := range report.Referenced {
		if _, ok := seen[name]; !ok {
			report.Missing = append(report.Missing, name)
		}
	}
	return report
}

// Preview returns at most n names and how many were left out.
func Preview(names []string, n int) ([]string, int) {
	if len(names) <= n {
		return names, 0
	}
	return names[:n], len(names) - n
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
