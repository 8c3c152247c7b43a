package config

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalconfig "github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/utils"
)

// setting is one ENV_VAR/value pair, kept in display order.
type setting struct {
	key   string
	value string
}

// NewConfigCmd returns a cobra command that displays current configuration.
func NewConfigCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long:  "Shows the current configuration values as ENV_VAR: value pairs, or as YAML with --format yaml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := internalconfig.LoadSettings()
			if err != nil {
				return err
			}
			harness, err := internalconfig.LoadHarnessSettings()
			if err != nil {
				return err
			}

			pairs := collect(settings, harness)
			switch format {
			case "env":
				displaySettings(cmd.OutOrStdout(), pairs)
				return nil
			case "yaml":
				return displayYAML(cmd.OutOrStdout(), pairs)
			default:
				return fmt.Errorf("unknown format %q (want env or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "env", "Output format: env or yaml")
	return cmd
}

// collect lists each setting under the environment variable that sets it.
// Durations are shown in the unit the variable takes.
func collect(s *internalconfig.Settings, h *internalconfig.HarnessSettings) []setting {
	return []setting{
		// Required
		{"DD_API_KEY", utils.MaskSecret(s.APIKey)},
		{"DD_APP_KEY", utils.MaskSecret(s.AppKey)},

		// Optional
		{"DD_SITE", s.Site},
		{"DD_API_URL", s.BaseURL()},
		{"TEMPLATES_DIR", s.TemplatesDir},
		{"DATA_DIR", s.DataDir},
		{"EXPORT_PATH_TEMPLATE", s.ExportPathTemplate},
		{"HTTP_TIMEOUT", strconv.Itoa(int(s.HTTPTimeout.Seconds()))},
		{"HTTP_RETRIES", strconv.Itoa(s.HTTPRetries)},
		{"HTTP_MAX_BODY_SIZE", strconv.FormatInt(s.HTTPMaxBodySize, 10)},
		{"PAGE_SIZE", strconv.Itoa(s.PageSize)},

		// Document service
		{"BASE_URL", h.BaseURL},
		{"POLL_INTERVAL_MS", strconv.FormatInt(h.PollInterval.Milliseconds(), 10)},
		{"POLL_TIMEOUT_MS", strconv.FormatInt(h.PollTimeout.Milliseconds(), 10)},
		{"EVAL_FIXTURES_DIR", h.FixturesDir},
		{"EVAL_OUT_DIR", h.OutDir},
	}
}

// displaySettings prints each config as "ENV_VAR: value".
func displaySettings(w io.Writer, pairs []setting) {
	for _, p := range pairs {
		fmt.Fprintf(w, "%s: %s\n", p.key, p.value)
	}
}

// displayYAML keeps the display order by building the mapping node directly.
func displayYAML(w io.Writer, pairs []setting) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.value, Style: yaml.DoubleQuotedStyle},
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
