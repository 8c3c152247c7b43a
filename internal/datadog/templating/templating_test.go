package templating

import (
	"testing"
)

func TestTranslatePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		builtins map[string]string
		envVars  map[string]string // environment variables to set for the test
		want     string
	}{
		{
			name:     "no placeholders",
			pattern:  "static/path/file.json",
			builtins: map[string]string{},
			want:     "static/path/file.json",
		},
		{
			name:    "builtin placeholder",
			pattern: "data/dashboards/{id}.json",
			builtins: map[string]string{
				"{id}": "{{.ID}}",
			},
			want: "data/dashboards/{{.ID}}.json",
		},
		{
			name:    "tag placeholder",
			pattern: "data/dashboards/{team}/{id}.json",
			builtins: map[string]string{
				"{id}": "{{.ID}}",
			},
			want: `data/dashboards/{{.Tag "team"}}/{{.ID}}.json`,
		},
		{
			name:    "environment variable placeholder",
			pattern: "{MY_CUSTOM_PATH}/dashboards/{id}.json",
			builtins: map[string]string{
				"{id}": "{{.ID}}",
			},
			envVars: map[string]string{
				"MY_CUSTOM_PATH": "/var/data",
			},
			want: "/var/data/dashboards/{{.ID}}.json",
		},
		{
			name:    "environment variable not set falls back to tag",
			pattern: "{MISSING_VAR}/dashboards/{id}.json",
			builtins: map[string]string{
				"{id}": "{{.ID}}",
			},
			want: `{{.Tag "MISSING_VAR"}}/dashboards/{{.ID}}.json`,
		},
		{
			name:     "builtin wins over environment variable",
			pattern:  "{DATA_DIR}/{kind}/{name}.json",
			builtins: AssetBuiltins(),
			envVars: map[string]string{
				"DATA_DIR": "/from/env",
			},
			want: "{{.DataDir}}/{{.Kind}}/{{.Name}}.json",
		},
		{
			name:    "lowercase not treated as env var",
			pattern: "{my_var}/{id}.json",
			builtins: map[string]string{
				"{id}": "{{.ID}}",
			},
			envVars: map[string]string{
				"my_var": "/should/not/be/used",
			},
			want: `{{.Tag "my_var"}}/{{.ID}}.json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			got := TranslatePlaceholders(tt.pattern, tt.builtins)
			if got != tt.want {
				t.Errorf("TranslatePlaceholders(%q, %v) = %q, want %q", tt.pattern, tt.builtins, got, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	data := PathData{
		DataDir: "datadog",
		Kind:    "dashboards",
		ID:      "abc-def-123",
		Name:    "cost-overview",
		Tags:    map[string]string{"team": "platform"},
	}

	tests := []struct {
		name    string
		pattern string
		envVars map[string]string
		want    string
	}{
		{
			name:    "default layout",
			pattern: "{DATA_DIR}/{kind}/{name}.json",
			want:    "datadog/dashboards/cost-overview.json",
		},
		{
			name:    "title alias and id",
			pattern: "{DATA_DIR}/{title}-{id}.json",
			want:    "datadog/cost-overview-abc-def-123.json",
		},
		{
			name:    "tag placeholder",
			pattern: "out/{team}/{name}.json",
			want:    "out/platform/cost-overview.json",
		},
		{
			name:    "missing tag renders none",
			pattern: "out/{env}/{name}.json",
			want:    "out/none/cost-overview.json",
		},
		{
			name:    "env var prefix",
			pattern: "{EXPORT_ROOT}/{kind}/{id}.json",
			envVars: map[string]string{"EXPORT_ROOT": "/srv/assets"},
			want:    "/srv/assets/dashboards/abc-def-123.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if got := ExpandPath(tt.pattern, data, "fallback.json"); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestComputePathFromTemplate(t *testing.T) {
	t.Run("parse error uses fallback", func(t *testing.T) {
		got := ComputePathFromTemplate("{{.Broken", PathData{}, "fallback.json")
		if got != "fallback.json" {
			t.Errorf("got %q, want fallback.json", got)
		}
	})

	t.Run("missing map key renders none", func(t *testing.T) {
		got := ComputePathFromTemplate("{{.missing}}/x.json", map[string]string{}, "fallback.json")
		if got != "none/x.json" {
			t.Errorf("got %q, want none/x.json", got)
		}
	})

	t.Run("unknown field uses fallback", func(t *testing.T) {
		got := ComputePathFromTemplate("{{.Unknown}}/x.json", PathData{}, "fallback.json")
		if got != "fallback.json" {
			t.Errorf("got %q, want fallback.json", got)
		}
	})
}
