package eval

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

const testJobID = "3f2b8f9e-6a3c-4d1e-9b7a-0c5d2e1f4a6b"

func validReport() map[string]any {
	return map[string]any{
		"jobId": testJobID,
		"report": map[string]any{
			"documentOverview":    "A lease",
			"summaryBullets":      []any{"a", "b"},
			"obligations":         []any{},
			"restrictions":        nil,
			"terminationTriggers": "  ",
			"riskTaxonomy":        map[string]any{},
		},
		"chunksMeta":  map[string]any{"chunkCount": json.Number("4")},
		"generatedAt": "2026-01-01T00:00:00Z",
	}
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r map[string]any)
		wantErr string
	}{
		{"valid", func(r map[string]any) {}, ""},
		{"generatedAt optional", func(r map[string]any) { delete(r, "generatedAt") }, ""},
		{"generatedAt null", func(r map[string]any) { r["generatedAt"] = nil }, ""},
		{"zero chunks", func(r map[string]any) { r["chunksMeta"] = map[string]any{"chunkCount": 0} }, ""},
		{"missing jobId", func(r map[string]any) { delete(r, "jobId") }, "jobId missing"},
		{"jobId not uuid", func(r map[string]any) { r["jobId"] = "job-1" }, "not a UUID"},
		{"report not object", func(r map[string]any) { r["report"] = []any{} }, "report is not an object"},
		{"field absent", func(r map[string]any) { delete(r["report"].(map[string]any), "obligations") }, "report.obligations missing"},
		{"chunksMeta absent", func(r map[string]any) { delete(r, "chunksMeta") }, "chunksMeta"},
		{"negative chunks", func(r map[string]any) { r["chunksMeta"] = map[string]any{"chunkCount": json.Number("-1")} }, "chunkCount"},
		{"float chunks", func(r map[string]any) { r["chunksMeta"] = map[string]any{"chunkCount": json.Number("2.5")} }, "chunkCount"},
		{"string chunks", func(r map[string]any) { r["chunksMeta"] = map[string]any{"chunkCount": "3"} }, "chunkCount"},
		{"generatedAt number", func(r map[string]any) { r["generatedAt"] = json.Number("1") }, "generatedAt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(r)
			err := ValidateSchema(r)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateSchema() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateSchema() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsNullOrEmpty(t *testing.T) {
	empty := []any{nil, "", "   ", []any{}, map[string]any{}}
	for _, v := range empty {
		if !IsNullOrEmpty(v) {
			t.Errorf("IsNullOrEmpty(%#v) = false", v)
		}
	}
	present := []any{"x", []any{nil}, map[string]any{"a": 1}, json.Number("0"), false}
	for _, v := range present {
		if IsNullOrEmpty(v) {
			t.Errorf("IsNullOrEmpty(%#v) = true", v)
		}
	}
}

func TestNullRates(t *testing.T) {
	full := validReport()
	full["report"] = map[string]any{
		"documentOverview": "x", "summaryBullets": []any{"a"}, "obligations": []any{"b"},
		"restrictions": []any{"c"}, "terminationTriggers": []any{"d"}, "riskTaxonomy": map[string]any{"k": "v"},
	}
	rates := NullRates([]map[string]any{validReport(), full})

	want := map[string]float64{
		"documentOverview":    0,
		"summaryBullets":      0,
		"obligations":         0.5,
		"restrictions":        0.5,
		"terminationTriggers": 0.5,
		"riskTaxonomy":        0.5,
	}
	for field, w := range want {
		if rates[field] != w {
			t.Errorf("rate[%s] = %v, want %v", field, rates[field], w)
		}
	}

	if got := NullRates(nil); len(got) != len(ReportFields) || got["obligations"] != 0 {
		t.Errorf("NullRates(nil) = %v", got)
	}
	if got := NullRates([]map[string]any{{"jobId": testJobID}}); got["riskTaxonomy"] != 1 {
		t.Errorf("missing report should count every field as null, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		a, b  any
		equal bool
	}{
		{nil, nil, true},
		{" text ", "text", true},
		{map[string]any{"b": 1, "a": 2}, map[string]any{"a": 2, "b": 1}, true},
		{[]any{"a", "b"}, []any{"b", "a"}, false},
		{json.Number("3"), json.Number("3"), true},
		{nil, "", false},
	}
	for _, tt := range tests {
		if got := Normalize(tt.a) == Normalize(tt.b); got != tt.equal {
			t.Errorf("Normalize(%#v) == Normalize(%#v) is %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestSelfConsistency(t *testing.T) {
	changed := validReport()
	changed["report"].(map[string]any)["documentOverview"] = "A different lease"
	changed["report"].(map[string]any)["riskTaxonomy"] = map[string]any{"legal": "high"}

	run1 := map[string]map[string]any{"a": validReport(), "b": validReport(), "only1": validReport()}
	run2 := map[string]map[string]any{"a": validReport(), "b": changed}

	got := SelfConsistency(run1, run2)
	if want := 10.0 / 12.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("SelfConsistency() = %v, want %v", got, want)
	}
	if got := SelfConsistency(run1, map[string]map[string]any{}); got != 0 {
		t.Errorf("SelfConsistency() without pairs = %v, want 0", got)
	}
}

func TestTopMissing(t *testing.T) {
	rates := map[string]float64{
		"documentOverview":    0.1,
		"summaryBullets":      0.5,
		"obligations":         0.5,
		"restrictions":        0,
		"terminationTriggers": 0.9,
		"riskTaxonomy":        0.5,
	}
	got := TopMissing(rates, 3)
	want := []FieldRate{{"terminationTriggers", 0.9}, {"summaryBullets", 0.5}, {"obligations", 0.5}}
	if len(got) != len(want) {
		t.Fatalf("TopMissing() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TopMissing()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHealthMetricsJSON(t *testing.T) {
	m := HealthMetrics{
		DocsCount:        2,
		SchemaPassRate:   1,
		NullRates:        map[string]float64{"obligations": 0.5},
		TopMissingFields: []FieldRate{{"obligations", 0.5}},
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"top_missing_fields":[["obligations",0.5]]`) {
		t.Errorf("top_missing_fields not encoded as pairs: %s", b)
	}

	var back HealthMetrics
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if len(back.TopMissingFields) != 1 || back.TopMissingFields[0] != (FieldRate{"obligations", 0.5}) {
		t.Errorf("round trip = %+v", back.TopMissingFields)
	}
}

func TestRenderMarkdown(t *testing.T) {
	rates := map[string]float64{
		"documentOverview": 0, "summaryBullets": 0.25, "obligations": 0.5,
		"restrictions": 0, "terminationTriggers": 1, "riskTaxonomy": 0,
	}
	md := RenderMarkdown(HealthMetrics{
		DocsCount:           5,
		SchemaPassRate:      0.9,
		NullRates:           rates,
		SelfConsistencyRate: 0.8333333,
		TopMissingFields:    TopMissing(rates, 3),
	})

	for _, want := range []string{
		"# Extraction Health Metrics\n\n",
		"**Documents processed:** 5\n",
		"**Schema pass rate:** 90.0%\n",
		"| Field | Null Rate |\n|-------|----------|\n| terminationTriggers | 100.0% |\n| obligations | 50.0% |\n| summaryBullets | 25.0% |\n| documentOverview | 0.0% |\n",
		"**Self-consistency rate:** 83.3%\n",
		"## Top Missing Fields\n\n- terminationTriggers: 100.0%\n- obligations: 50.0%\n- summaryBullets: 25.0%\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
