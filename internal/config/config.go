package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings contains configuration for the Datadog API client and asset management.
type Settings struct {
	APIKey             string        // Required, Datadog API key
	AppKey             string        // Required, Datadog application key
	Site               string        // Datadog site (e.g., datadoghq.com). Used to build https://api.{Site}
	APIURL             string        // Optional override for the API base URL (e.g. a proxy or a fake server)
	TemplatesDir       string        // Directory holding dashboards/, monitors/ and slos/ templates (default: datadog/templates)
	DataDir            string        // Base directory for exported assets (default: datadog)
	ExportPathTemplate string        // Path template for exported files, defaults to "{DATA_DIR}/{kind}/{name}.json"
	HTTPTimeout        time.Duration // Per-request timeout, defaults to 20 seconds
	HTTPRetries        int           // Retries for 429/5xx/timeouts, defaults to 3
	HTTPMaxBodySize    int64         // Maximum allowed API response body size in bytes, defaults to 10MB
	PageSize           int           // Number of results per page for list endpoints, defaults to 1000
}

// HarnessSettings configures the commands that talk to the document-processing
// service (traffic generator and evaluation harness). No Datadog credentials
// are needed for these.
type HarnessSettings struct {
	BaseURL         string
	PollInterval    time.Duration
	PollTimeout     time.Duration
	FixturesDir     string
	OutDir          string
	HTTPTimeout     time.Duration
	HTTPMaxBodySize int64
}

const (
	defaultSite        = "datadoghq.com"
	defaultMaxBodySize = 10 * 1024 * 1024
)

// BaseURL returns the v1 API root, honouring the DD_API_URL override.
func (s *Settings) BaseURL() string {
	if s.APIURL != "" {
		return strings.TrimRight(s.APIURL, "/") + "/api/v1"
	}
	return fmt.Sprintf("https://api.%s/api/v1", s.Site)
}

// LoadSettings loads configuration from an optional ddops.yaml, environment
// variables and an optional .env file.
// Required variables: DD_API_KEY, DD_APP_KEY.
// Optional variables: DD_SITE, DD_API_URL, TEMPLATES_DIR, DATA_DIR, EXPORT_PATH_TEMPLATE,
// HTTP_TIMEOUT, HTTP_RETRIES, HTTP_MAX_BODY_SIZE, PAGE_SIZE.
func LoadSettings() (*Settings, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	apiKey, err := getRequired(v, "DD_API_KEY")
	if err != nil {
		return nil, err
	}
	appKey, err := getRequired(v, "DD_APP_KEY")
	if err != nil {
		return nil, err
	}

	site := normalizeSite(getString(v, "DD_SITE", defaultSite))
	dataDir := getString(v, "DATA_DIR", "datadog")

	return &Settings{
		APIKey:             apiKey,
		AppKey:             appKey,
		Site:               site,
		APIURL:             getString(v, "DD_API_URL", ""),
		TemplatesDir:       getString(v, "TEMPLATES_DIR", filepath.Join(dataDir, "templates")),
		DataDir:            dataDir,
		ExportPathTemplate: getString(v, "EXPORT_PATH_TEMPLATE", filepath.Join("{DATA_DIR}", "{kind}", "{name}.json")),
		HTTPTimeout:        time.Duration(getInt(v, "HTTP_TIMEOUT", 20)) * time.Second,
		HTTPRetries:        getInt(v, "HTTP_RETRIES", 3),
		HTTPMaxBodySize:    int64(getInt(v, "HTTP_MAX_BODY_SIZE", defaultMaxBodySize)),
		PageSize:           getInt(v, "PAGE_SIZE", 1000),
	}, nil
}

// LoadHarnessSettings loads the settings for the traffic generator and the
// evaluation harness.
// Optional variables: BASE_URL, POLL_INTERVAL_MS, POLL_TIMEOUT_MS,
// EVAL_FIXTURES_DIR, EVAL_OUT_DIR, HTTP_TIMEOUT, HTTP_MAX_BODY_SIZE.
func LoadHarnessSettings() (*HarnessSettings, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	return &HarnessSettings{
		BaseURL:         strings.TrimRight(getString(v, "BASE_URL", "http://localhost:8080"), "/"),
		PollInterval:    time.Duration(getInt(v, "POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		PollTimeout:     time.Duration(getInt(v, "POLL_TIMEOUT_MS", 180000)) * time.Millisecond,
		FixturesDir:     getString(v, "EVAL_FIXTURES_DIR", filepath.Join("eval", "fixtures")),
		OutDir:          getString(v, "EVAL_OUT_DIR", filepath.Join("eval", "out")),
		HTTPTimeout:     time.Duration(getInt(v, "HTTP_TIMEOUT", 20)) * time.Second,
		HTTPMaxBodySize: int64(getInt(v, "HTTP_MAX_BODY_SIZE", defaultMaxBodySize)),
	}, nil
}

// newViper layers the optional ddops.yaml (or $DDOPS_CONFIG) under the
// environment. Keys are the environment variable names in lower case.
func newViper() (*viper.Viper, error) {
	// If .env exists, try to load it
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := os.Getenv("DDOPS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("ddops")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading ddops.yaml: %w", err)
		}
	}
	return v, nil
}

// normalizeSite lower-cases the site and removes a mistaken "api." prefix.
func normalizeSite(site string) string {
	site = strings.TrimSpace(strings.ToLower(site))
	if strings.HasPrefix(site, "api.") {
		fmt.Fprintf(os.Stderr, "Warning: DD_SITE value \"%s\" should not have prefix 'api.', removing\n", site)
		site = strings.TrimPrefix(site, "api.")
	}
	return site
}

// get the value with a default
func getString(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(strings.ToLower(key))); s != "" {
		return s
	}
	return def
}

// get the value or raise an error
func getRequired(v *viper.Viper, key string) (string, error) {
	if s := v.GetString(strings.ToLower(key)); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%s environment variable must be set", key)
}

// getInt returns an integer value, defaulting when unset/empty or invalid.
func getInt(v *viper.Viper, key string, def int) int {
	s := strings.TrimSpace(v.GetString(strings.ToLower(key)))
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
