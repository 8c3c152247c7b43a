package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/policyinsight/ddops/internal/storage"
)

// Output file names inside the out directory.
const (
	MetricsJSONFile     = "health_metrics.json"
	MetricsMarkdownFile = "health_metrics.md"
)

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// RenderMarkdown renders m as the health_metrics.md summary.
func RenderMarkdown(m HealthMetrics) string {
	var b strings.Builder
	b.WriteString("# Extraction Health Metrics\n\n")
	fmt.Fprintf(&b, "**Documents processed:** %d\n\n", m.DocsCount)
	fmt.Fprintf(&b, "**Schema pass rate:** %s\n\n", percent(m.SchemaPassRate))

	b.WriteString("## Null Rates by Field\n\n")
	b.WriteString("| Field | Null Rate |\n")
	b.WriteString("|-------|----------|\n")
	for _, fr := range SortedRates(m.NullRates) {
		fmt.Fprintf(&b, "| %s | %s |\n", fr.Field, percent(fr.Rate))
	}

	fmt.Fprintf(&b, "\n**Self-consistency rate:** %s\n\n", percent(m.SelfConsistencyRate))
	b.WriteString("## Top Missing Fields\n\n")
	for _, fr := range m.TopMissingFields {
		fmt.Fprintf(&b, "- %s: %s\n", fr.Field, percent(fr.Rate))
	}
	return b.String()
}

// WriteOutputs writes the JSON and Markdown summaries into dir and returns
// their paths.
func WriteOutputs(dir string, m HealthMetrics) (jsonPath, mdPath string, err error) {
	jsonPath = filepath.Join(dir, MetricsJSONFile)
	if err := storage.WriteJSONFile(jsonPath, m); err != nil {
		return "", "", err
	}
	mdPath = filepath.Join(dir, MetricsMarkdownFile)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(m)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", mdPath, err)
	}
	return jsonPath, mdPath, nil
}
