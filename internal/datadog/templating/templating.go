package templating

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/policyinsight/ddops/internal/logging"
)

var (
	// PlaceholderRegex matches placeholder patterns like {word}
	PlaceholderRegex = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

	// EnvVarRegex matches environment variable naming pattern (uppercase letters, numbers, underscores)
	EnvVarRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// PathData is what an export path template can refer to.
type PathData struct {
	DataDir string
	Kind    string // directory name of the asset kind, e.g. "slos"
	ID      string
	Name    string // sanitized title or name
	Tags    map[string]string
}

// Tag returns the value of tag key, or "none" when the asset lacks it.
func (d PathData) Tag(key string) string {
	if v, ok := d.Tags[key]; ok && v != "" {
		return v
	}
	return "none"
}

// replaceEnvVars replaces environment variable placeholders in a string.
// Placeholders matching the pattern {VAR_NAME} where VAR_NAME is all uppercase
// with underscores are replaced with the value of the environment variable.
// If the environment variable is not set or empty, the placeholder is left as-is.
func replaceEnvVars(pattern string, builtins map[string]string) string {
	return PlaceholderRegex.ReplaceAllStringFunc(pattern, func(m string) string {
		if _, ok := builtins[m]; ok {
			return m
		}
		name := PlaceholderRegex.FindStringSubmatch(m)[1]
		if EnvVarRegex.MatchString(name) {
			if val := os.Getenv(name); val != "" {
				return val
			}
		}
		return m
	})
}

// TranslatePlaceholders converts placeholders like {id} into Go template expressions.
// Builtins should map placeholders (e.g. "{id}") to template expressions (e.g. "{{.ID}}").
// Environment variable placeholders (e.g. {MY_VAR}) are replaced with their env var values first;
// builtins always win over an environment variable of the same name.
// Any remaining {word} will be mapped to a tag lookup, {{.Tag "word"}}.
func TranslatePlaceholders(pattern string, builtins map[string]string) string {
	p := replaceEnvVars(pattern, builtins)

	for k, v := range builtins {
		p = strings.ReplaceAll(p, k, v)
	}

	return PlaceholderRegex.ReplaceAllStringFunc(p, func(m string) string {
		name := PlaceholderRegex.FindStringSubmatch(m)[1]
		return fmt.Sprintf(`{{.Tag %q}}`, name)
	})
}

// AssetBuiltins returns the builtins map for export path templates.
func AssetBuiltins() map[string]string {
	return map[string]string{
		"{DATA_DIR}": "{{.DataDir}}",
		"{kind}":     "{{.Kind}}",
		"{id}":       "{{.ID}}",
		"{name}":     "{{.Name}}",
		"{title}":    "{{.Name}}", // Alias: dashboards have titles, monitors and SLOs names
	}
}

// ComputePathFromTemplate executes a Go template to compute a file path.
// It handles template parsing, execution, and error fallback.
// The pattern should already be translated (using TranslatePlaceholders).
// Returns the computed path, replacing "<no value>" with "none".
func ComputePathFromTemplate(pattern string, data any, fallbackPath string) string {
	tmpl, err := template.New("path").Parse(pattern)
	if err != nil {
		logging.Logger.Warn("failed to parse path template", "template", pattern, "error", err)
		return fallbackPath
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logging.Logger.Warn("failed to execute path template", "template", pattern, "error", err)
		return fallbackPath
	}

	return strings.ReplaceAll(buf.String(), "<no value>", "none")
}

// ExpandPath translates pattern and renders it for one asset.
func ExpandPath(pattern string, data PathData, fallbackPath string) string {
	return ComputePathFromTemplate(TranslatePlaceholders(pattern, AssetBuiltins()), data, fallbackPath)
}
