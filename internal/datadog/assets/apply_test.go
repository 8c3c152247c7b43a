package assets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/policyinsight/ddops/internal/datadog/fake"
)

func writeTemplate(t *testing.T, dir, kind, name, content string) {
	t.Helper()
	path := filepath.Join(dir, kind, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApply_CreatesThenUpdates(t *testing.T) {
	api, client := newFakeDatadog(t)
	dir := t.TempDir()
	writeTemplate(t, dir, "dashboards", "cost.json", `{"title": "Cost Overview", "layout_type": "ordered", "widgets": []}`)
	writeTemplate(t, dir, "monitors", "latency.json", `{"name": "API latency p95", "type": "metric alert", "query": "avg(last_5m):p95:trace.http.request{*} > 2"}`)
	writeTemplate(t, dir, "slos", "success.json", `{"name": "Document processing success", "type": "metric"}`)

	applier := NewApplier(newTestUpserter(client), dir, nil)

	first, err := applier.Apply(context.Background(), AllKinds())
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if first.Count(OutcomeCreated) != 3 || first.Failed() != 0 {
		t.Fatalf("first apply: created=%d failed=%d", first.Count(OutcomeCreated), first.Failed())
	}

	second, err := applier.Apply(context.Background(), AllKinds())
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if second.Count(OutcomeUpdated) != 3 || second.Count(OutcomeCreated) != 0 {
		t.Errorf("second apply: updated=%d created=%d", second.Count(OutcomeUpdated), second.Count(OutcomeCreated))
	}
	for i, ks := range second.Kinds {
		if ks.Kind.Dir != AllKinds()[i].Dir {
			t.Errorf("kind %d = %s, want processing order dashboards, monitors, slos", i, ks.Kind.Dir)
		}
		for j, r := range ks.Results {
			if r.ID != first.Kinds[i].Results[j].ID {
				t.Errorf("%s id changed: %s -> %s", r.Name, first.Kinds[i].Results[j].ID, r.ID)
			}
		}
	}
	if api.Count(fake.Dashboards)+api.Count(fake.Monitors)+api.Count(fake.SLOs) != 3 {
		t.Error("apply is not idempotent")
	}
}

func TestApply_FileOrderAndFailuresIsolated(t *testing.T) {
	_, client := newFakeDatadog(t)
	dir := t.TempDir()
	writeTemplate(t, dir, "monitors", "b.json", `{"name": "B"}`)
	writeTemplate(t, dir, "monitors", "a.json", `{"name": "A"}`)
	writeTemplate(t, dir, "monitors", "c.json", `{"name": `)
	writeTemplate(t, dir, "monitors", "readme.md", `not a template`)
	writeTemplate(t, dir, "monitors", "d.json", "\ufeff"+`{"name": "D with BOM"}`)

	var out bytes.Buffer
	summary, err := NewApplier(newTestUpserter(client), dir, &out).Apply(context.Background(), []Kind{Monitors})
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	results := summary.Kind(Monitors).Results
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "A,B,c.json,D with BOM" {
		t.Errorf("processing order = %s", got)
	}
	if summary.Failed() != 1 || summary.Count(OutcomeCreated) != 3 {
		t.Errorf("failed=%d created=%d, want 1/3", summary.Failed(), summary.Count(OutcomeCreated))
	}
	if !strings.Contains(out.String(), "Monitors:") || !strings.Contains(out.String(), "❌") {
		t.Errorf("progress output missing header or failure:\n%s", out.String())
	}
}

func TestApply_MissingDirectories(t *testing.T) {
	_, client := newFakeDatadog(t)

	_, err := NewApplier(newTestUpserter(client), filepath.Join(t.TempDir(), "nope"), nil).Apply(context.Background(), AllKinds())
	if err == nil || !strings.Contains(err.Error(), "templates directory does not exist") {
		t.Errorf("Apply() error = %v, want missing templates directory", err)
	}

	dir := t.TempDir()
	writeTemplate(t, dir, "dashboards", "cost.json", `{"title": "Cost Overview"}`)
	summary, err := NewApplier(newTestUpserter(client), dir, nil).Apply(context.Background(), AllKinds())
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if len(summary.Kinds) != 3 {
		t.Fatalf("kinds = %d, want 3", len(summary.Kinds))
	}
	if !summary.Kind(Dashboards).Found || summary.Kind(Monitors).Found || summary.Kind(SLOs).Found {
		t.Error("only dashboards should be found")
	}
	if summary.Failed() != 0 {
		t.Errorf("Failed() = %d, want 0 for missing kind directories", summary.Failed())
	}
}

func TestApply_UnwrapsExportedSLOEnvelope(t *testing.T) {
	api, client := newFakeDatadog(t)
	id := api.Seed(fake.SLOs, map[string]any{"name": "Availability"})
	dir := t.TempDir()
	writeTemplate(t, dir, "slos", "availability.json", `{"data": {"id": "`+id+`", "name": "Availability", "target_threshold": 99.5}}`)

	summary, err := NewApplier(newTestUpserter(client), dir, nil).Apply(context.Background(), []Kind{SLOs})
	if err != nil {
		t.Fatal(err)
	}
	r := summary.Kind(SLOs).Results[0]
	if r.Outcome != OutcomeUpdated || r.ID != id {
		t.Errorf("result = %+v, want updated %s", r, id)
	}
}
