// Package config provides environment-driven configuration for the server
// plus optional YAML overrides for the cleaning pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variables (CSVPROF_SERVER_PORT, ...).
const EnvPrefix = "CSVPROF"

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `envconfig:"SERVER"`
	Storage    StorageConfig    `envconfig:"STORAGE"`
	Processing ProcessingConfig `envconfig:"PROCESSING"`
	Pipeline   PipelineConfig   `ignored:"true"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                 int           `envconfig:"PORT" default:"8090"`
	BindAddress          string        `envconfig:"BIND_ADDRESS" default:"0.0.0.0"`
	ReadTimeout          time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout         time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout          time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	EnableCORS           bool          `envconfig:"ENABLE_CORS" default:"true"`
	AllowOrigins         []string      `envconfig:"ALLOW_ORIGINS" default:"*"`
	EnableRequestLogging bool          `envconfig:"ENABLE_REQUEST_LOGGING" default:"true"`
	SecretKey            string        `envconfig:"SECRET_KEY" default:""`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	UploadsDir    string `envconfig:"UPLOADS_DIR" default:"./data/uploads"`
	OutputsDir    string `envconfig:"OUTPUTS_DIR" default:"./data/outputs"`
	TempDir       string `envconfig:"TEMP_DIR" default:"./data/temp"`
	MaxUploadSize string `envconfig:"MAX_UPLOAD_SIZE" default:"16M"`
}

// ProcessingConfig contains analysis lifecycle settings.
type ProcessingConfig struct {
	MaxConcurrentAnalyses int           `envconfig:"MAX_CONCURRENT_ANALYSES" default:"4"`
	AnalysisMaxAge        time.Duration `envconfig:"ANALYSIS_MAX_AGE" default:"30m"`
	CleanupInterval       time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
	PipelineConfigPath    string        `envconfig:"PIPELINE_CONFIG" default:""`
}

// PipelineConfig tunes the cleaning and profiling pipeline. Values default to
// the fixed pipeline behaviour and may be overridden from a YAML file.
type PipelineConfig struct {
	NumericThreshold  float64  `yaml:"numeric_threshold"`  // fraction of parseable values required for numeric coercion
	DateLayouts       []string `yaml:"date_layouts"`       // layouts tried for datetime coercion, in order
	OutlierIQRFactor  float64  `yaml:"outlier_iqr_factor"` // IQR fence multiplier for outlier flagging
	HistogramMaxBins  int      `yaml:"histogram_max_bins"`
	DiscreteCutoff    int      `yaml:"discrete_cutoff"` // unique values at or below this get a count plot
	MissingMarkers    []string `yaml:"missing_markers"`
	PreviewPageSize   int      `yaml:"preview_page_size"`
	CorrelationMinCol int      `yaml:"correlation_min_columns"` // minimum numeric columns for a correlation matrix
}

// DefaultPipeline returns the fixed pipeline defaults.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		NumericThreshold: 0.8,
		DateLayouts: []string{
			"2006-01-02",
			"02/01/2006",
			"01-02-2006",
			"2006/01/02",
			"02-01-2006",
			"20060102",
			"02.01.2006",
			"2006/01/02 15:04:05",
			"2006-01-02 15:04:05",
			"02/01/2006 15:04:05",
			"01/02/2006 15:04:05",
		},
		OutlierIQRFactor:  1.5,
		HistogramMaxBins:  30,
		DiscreteCutoff:    10,
		MissingMarkers:    []string{"", "NA", "N/A", "null", "NULL", "NaN", "nan"},
		PreviewPageSize:   100,
		CorrelationMinCol: 2,
	}
}

// Load builds the configuration from environment variables and, when
// configured, merges pipeline overrides from a YAML file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}
	cfg.Pipeline = DefaultPipeline()

	if path := cfg.Processing.PipelineConfigPath; path != "" {
		if err := cfg.loadPipelineFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadPipelineFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading pipeline config %s: %w", path, err)
	}

	// Unmarshal over the defaults so absent keys keep their default values.
	if err := yaml.Unmarshal(data, &c.Pipeline); err != nil {
		return fmt.Errorf("parsing pipeline config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pipeline.NumericThreshold <= 0 || c.Pipeline.NumericThreshold > 1 {
		return fmt.Errorf("numeric_threshold must be in (0, 1], got %v", c.Pipeline.NumericThreshold)
	}
	if c.Pipeline.OutlierIQRFactor <= 0 {
		return fmt.Errorf("outlier_iqr_factor must be positive, got %v", c.Pipeline.OutlierIQRFactor)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	return nil
}

// EnsureDirectories creates all configured data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.UploadsDir, c.Storage.OutputsDir, c.Storage.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetServerAddr returns the host:port address to listen on.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// MaxUploadBytes parses the configured upload size limit ("16M", "512K", "1G").
func (c *Config) MaxUploadBytes() (int64, error) {
	return ParseSize(c.Storage.MaxUploadSize)
}

// ParseSize parses a human-readable size string into bytes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1)
	last := s[len(s)-1]
	switch last {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	}

	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive: %q", s)
	}
	return n * mult, nil
}
