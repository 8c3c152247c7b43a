package config

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DD_API_KEY", "abcdef123456")
	t.Setenv("DD_APP_KEY", "xyz")
	t.Setenv("DD_SITE", "datadoghq.eu")
	t.Setenv("DD_API_URL", "")
	t.Setenv("DATA_DIR", "out")
	t.Setenv("TEMPLATES_DIR", "")
	t.Setenv("HTTP_TIMEOUT", "15")
	t.Setenv("BASE_URL", "http://docs.internal:9000/")
	t.Setenv("POLL_INTERVAL_MS", "500")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_Env(t *testing.T) {
	setEnv(t)
	out, err := run(t)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{
		"DD_API_KEY: ****3456\n",
		"DD_APP_KEY: ****\n",
		"DD_SITE: datadoghq.eu\n",
		"DD_API_URL: https://api.datadoghq.eu/api/v1\n",
		"DATA_DIR: out\n",
		"TEMPLATES_DIR: out/templates\n",
		"HTTP_TIMEOUT: 15\n",
		"BASE_URL: http://docs.internal:9000\n",
		"POLL_INTERVAL_MS: 500\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "abcdef") {
		t.Errorf("secret leaked:\n%s", out)
	}
	if !strings.HasPrefix(out, "DD_API_KEY:") {
		t.Errorf("keys out of order:\n%s", out)
	}
}

func TestConfigCmd_YAML(t *testing.T) {
	setEnv(t)
	out, err := run(t, "--format", "yaml")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var got map[string]string
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if got["DD_API_KEY"] != "****3456" || got["HTTP_TIMEOUT"] != "15" || got["DATA_DIR"] != "out" {
		t.Errorf("unexpected values: %v", got)
	}
	if !strings.HasPrefix(out, "DD_API_KEY:") {
		t.Errorf("keys out of order:\n%s", out)
	}
}

func TestConfigCmd_UnknownFormat(t *testing.T) {
	setEnv(t)
	if _, err := run(t, "--format", "toml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConfigCmd_MissingKey(t *testing.T) {
	setEnv(t)
	t.Setenv("DD_API_KEY", "")
	if _, err := run(t); err == nil {
		t.Fatal("expected error when DD_API_KEY is unset")
	}
}
