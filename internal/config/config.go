// =============================================================================
// Vetspire Import - Configuration Module
// =============================================================================
//
// This module loads the two configuration sources of a run.
//
// CONFIGURATION SOURCES:
//   1. Main Config (config.yaml): run settings such as the output directory,
//      rate limit, page size and the legacy deceased status codes. The file
//      is optional; every setting has a default.
//   2. Environment (.env + process environment): API endpoint and key, and
//      the location and provider ids records are attached to.
//
// Secrets never live in config.yaml.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// PDF extraction backends.
const (
	BackendContentStream = "content-stream"
	BackendLayout        = "layout"
)

// MainConfig holds the run settings loaded from config.yaml.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// OutputDir receives CSV exports, proposals, result artifacts and
	// summaries.
	// Default: "./outputs"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" for human readable output or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// API SETTINGS
	// =========================================================================

	// RateLimitInterval is the minimum spacing between two API calls.
	// Default: 200ms
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`

	// RequestTimeout bounds a single API call.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PageSize is the number of records requested per snapshot page.
	// Default: 100
	PageSize int `yaml:"page_size"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// ProgressEvery reports reconciliation progress after this many records.
	// Default: 10
	ProgressEvery int `yaml:"progress_every"`

	// PDFBackend selects the text extraction backend: "content-stream" or
	// "layout".
	// Default: "content-stream"
	PDFBackend string `yaml:"pdf_backend"`

	// RowTolerance is the vertical distance under which positioned text runs
	// share a row.
	// Default: 0.6
	RowTolerance float64 `yaml:"row_tolerance"`

	// DeceasedStatusCodes lists the legacy patient status codes that mean
	// the patient has died. Older exports used "D" and "ND".
	// Default: ["Deceased", "N/A - D"]
	DeceasedStatusCodes []string `yaml:"deceased_status_codes"`

	// ImportedNote is written to the notes of every created client and is
	// how imported clients are recognized later.
	// Default: "Imported from legacy system"
	ImportedNote string `yaml:"imported_note"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns a configuration with every default applied.
func DefaultMainConfig() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; the defaults are returned instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMainConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./outputs"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.RateLimitInterval == 0 {
		config.RateLimitInterval = 200 * time.Millisecond
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.PageSize == 0 {
		config.PageSize = 100
	}
	if config.ProgressEvery == 0 {
		config.ProgressEvery = 10
	}
	if config.PDFBackend == "" {
		config.PDFBackend = BackendContentStream
	}
	if config.RowTolerance == 0 {
		config.RowTolerance = 0.6
	}
	if config.DeceasedStatusCodes == nil {
		config.DeceasedStatusCodes = []string{"Deceased", "N/A - D"}
	}
	if config.ImportedNote == "" {
		config.ImportedNote = "Imported from legacy system"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}
	switch config.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}
	switch config.PDFBackend {
	case BackendContentStream, BackendLayout:
	default:
		return fmt.Errorf("unknown pdf_backend %q", config.PDFBackend)
	}
	if config.RateLimitInterval < 0 {
		return fmt.Errorf("rate_limit_interval must not be negative")
	}
	if config.PageSize < 0 || config.ProgressEvery < 0 {
		return fmt.Errorf("page_size and progress_every must be positive")
	}
	if config.RowTolerance < 0 {
		return fmt.Errorf("row_tolerance must not be negative")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// DefaultAPIURL is the Vetspire GraphQL endpoint.
const DefaultAPIURL = "https://api.vetspire.com/graphql"

// Precondition failures. A run that needs one of these values stops before
// touching any record.
var (
	ErrMissingAPIKey     = errors.New("VETSPIRE_API_KEY is required")
	ErrMissingLocationID = errors.New("location id is required")
	ErrMissingProviderID = errors.New("PROVIDER_ID is required")
)

// Env holds the settings read from the environment.
type Env struct {
	APIURL         string `mapstructure:"VETSPIRE_API_URL"`
	APIKey         string `mapstructure:"VETSPIRE_API_KEY"`
	TestLocationID string `mapstructure:"TEST_LOCATION_ID"`
	RealLocationID string `mapstructure:"REAL_LOCATION_ID"`
	ProviderID     string `mapstructure:"PROVIDER_ID"`
}

var envKeys = []string{
	"VETSPIRE_API_URL",
	"VETSPIRE_API_KEY",
	"TEST_LOCATION_ID",
	"REAL_LOCATION_ID",
	"PROVIDER_ID",
}

// LoadEnv loads envFile (if present) into the process environment and reads
// the settings through viper. Variables already set in the environment win
// over the file.
func LoadEnv(envFile string) (*Env, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("VETSPIRE_API_URL", DefaultAPIURL)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	env := &Env{}
	if err := v.Unmarshal(env); err != nil {
		return nil, fmt.Errorf("unmarshal environment: %w", err)
	}
	return env, nil
}

// LocationID returns the real clinic location when useReal is set and the
// test location otherwise.
func (e *Env) LocationID(useReal bool) string {
	if useReal {
		return e.RealLocationID
	}
	return e.TestLocationID
}

// RequireAPI checks the settings needed to talk to the API.
func (e *Env) RequireAPI() error {
	if e.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// RequireImmunizationIDs checks the ids every created immunization is
// attached to.
func (e *Env) RequireImmunizationIDs() error {
	if e.RealLocationID == "" {
		return fmt.Errorf("REAL_LOCATION_ID: %w", ErrMissingLocationID)
	}
	if e.ProviderID == "" {
		return ErrMissingProviderID
	}
	return nil
}
