package eval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldRate is a field with its null rate. It marshals as [field, rate].
type FieldRate struct {
	Field string
	Rate  float64
}

func (f FieldRate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Field, f.Rate})
}

func (f *FieldRate) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("field rate: want [field, rate], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &f.Field); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &f.Rate)
}

// HealthMetrics is written to health_metrics.json.
type HealthMetrics struct {
	DocsCount           int                `json:"docs_count"`
	SchemaPassRate      float64            `json:"schema_pass_rate"`
	NullRates           map[string]float64 `json:"null_rates"`
	SelfConsistencyRate float64            `json:"self_consistency_rate"`
	TopMissingFields    []FieldRate        `json:"top_missing_fields"`
}

// Compute scores every successful report. docs is the number of fixtures,
// run1 and run2 map fixture names to their reports.
func Compute(docs int, all []map[string]any, run1, run2 map[string]map[string]any) HealthMetrics {
	rates := NullRates(all)
	return HealthMetrics{
		DocsCount:           docs,
		SchemaPassRate:      SchemaPassRate(all),
		NullRates:           rates,
		SelfConsistencyRate: SelfConsistency(run1, run2),
		TopMissingFields:    TopMissing(rates, 3),
	}
}

// SchemaPassRate is the share of reports that pass ValidateSchema.
func SchemaPassRate(reports []map[string]any) float64 {
	if len(reports) == 0 {
		return 0
	}
	pass := 0
	for _, r := range reports {
		if ValidateSchema(r) == nil {
			pass++
		}
	}
	return float64(pass) / float64(len(reports))
}

// IsNullOrEmpty treats null, blank strings, empty lists and empty objects
// as missing.
func IsNullOrEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// NullRates returns, per report field, the share of reports where it is
// null or empty. A missing report object counts as all fields missing.
func NullRates(reports []map[string]any) map[string]float64 {
	rates := make(map[string]float64, len(ReportFields))
	for _, field := range ReportFields {
		rates[field] = 0
	}
	if len(reports) == 0 {
		return rates
	}
	for _, r := range reports {
		report := reportOf(r)
		for _, field := range ReportFields {
			if IsNullOrEmpty(report[field]) {
				rates[field]++
			}
		}
	}
	for field := range rates {
		rates[field] /= float64(len(reports))
	}
	return rates
}

// Normalize renders a field value for comparison: objects and lists as
// key-sorted JSON, strings trimmed.
func Normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strings.TrimSpace(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// SelfConsistency is the share of (fixture, field) pairs whose normalized
// values agree between the two runs. Fixtures missing from either run are
// ignored.
func SelfConsistency(run1, run2 map[string]map[string]any) float64 {
	matches, comparisons := 0, 0
	for name, r1 := range run1 {
		r2, ok := run2[name]
		if !ok {
			continue
		}
		a, b := reportOf(r1), reportOf(r2)
		for _, field := range ReportFields {
			comparisons++
			if Normalize(a[field]) == Normalize(b[field]) {
				matches++
			}
		}
	}
	if comparisons == 0 {
		return 0
	}
	return float64(matches) / float64(comparisons)
}

// TopMissing returns the n fields with the highest null rate. Ties keep
// ReportFields order.
func TopMissing(rates map[string]float64, n int) []FieldRate {
	out := SortedRates(rates)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SortedRates orders rates highest first, ties in ReportFields order.
func SortedRates(rates map[string]float64) []FieldRate {
	out := make([]FieldRate, 0, len(rates))
	for _, field := range ReportFields {
		if rate, ok := rates[field]; ok {
			out = append(out, FieldRate{Field: field, Rate: rate})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	return out
}

func reportOf(data map[string]any) map[string]any {
	report, _ := data["report"].(map[string]any)
	return report
}
