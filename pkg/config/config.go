// Package config loads the run configuration from defaults, an optional
// YAML file and CONTRACTFUZZ_* environment variables, in increasing
// priority. Command line flags bound to the same viper instance win over
// all of them.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/duration"
	"github.com/waftester/contractfuzz/pkg/respcode"
)

// EnvPrefix prefixes every environment override, e.g.
// CONTRACTFUZZ_TARGET_SERVER_URL.
const EnvPrefix = "CONTRACTFUZZ"

// Report formats.
const (
	FormatJSONL = "jsonl"
	FormatXLSX  = "xlsx"
	FormatText  = "text"
)

var (
	reportFormats = []string{FormatJSONL, FormatXLSX, FormatText}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"console", "json"}
)

// Config is the full run configuration.
type Config struct {
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Contract ContractConfig `mapstructure:"contract" yaml:"contract"`
	Custom   CustomConfig   `mapstructure:"custom" yaml:"custom"`
	Oracle   OracleConfig   `mapstructure:"oracle" yaml:"oracle"`
	Ignore   IgnoreConfig   `mapstructure:"ignore" yaml:"ignore"`
	Run      RunConfig      `mapstructure:"run" yaml:"run"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// TargetConfig describes the API under test.
type TargetConfig struct {
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	// Headers are sent on every call. Viper lowercases their names.
	Headers            map[string]string `mapstructure:"headers" yaml:"headers"`
	Proxy              string            `mapstructure:"proxy" yaml:"proxy"`
	Timeout            time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	RateLimit          float64           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Retries            int               `mapstructure:"retries" yaml:"retries"`
	InsecureSkipVerify bool              `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	UserAgent          string            `mapstructure:"user_agent" yaml:"user_agent"`
}

// ContractConfig points at the OpenAPI document.
type ContractConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// CustomConfig names the custom test files.
type CustomConfig struct {
	File         string `mapstructure:"file" yaml:"file"`
	SecurityFile string `mapstructure:"security_file" yaml:"security_file"`
	RefDataFile  string `mapstructure:"ref_data_file" yaml:"ref_data_file"`
}

// OracleConfig waives individual oracle checks.
type OracleConfig struct {
	IgnoreResponseBodyCheck bool `mapstructure:"ignore_response_body_check" yaml:"ignore_response_body_check"`
	IgnoreUndocumentedCheck bool `mapstructure:"ignore_undocumented_check" yaml:"ignore_undocumented_check"`
}

// IgnoreConfig lists response codes that never count as failures.
type IgnoreConfig struct {
	// Codes are exact codes ("409") or ranges ("5XX").
	Codes         []string `mapstructure:"codes" yaml:"codes"`
	SkipReporting bool     `mapstructure:"skip_reporting" yaml:"skip_reporting"`
}

// RunConfig controls scheduling.
type RunConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// Paths restricts the run to these contract paths; empty runs all.
	Paths []string `mapstructure:"paths" yaml:"paths"`
}

// ReportConfig controls exporters.
type ReportConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	Formats []string `mapstructure:"formats" yaml:"formats"`
}

// LoggerConfig configures zap and file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	// -- Target --
	v.SetDefault("target.server_url", "")
	v.SetDefault("target.headers", map[string]string{})
	v.SetDefault("target.proxy", "")
	v.SetDefault("target.timeout", duration.HTTPRequest)
	v.SetDefault("target.rate_limit", 0.0)
	v.SetDefault("target.retries", 0)
	v.SetDefault("target.insecure_skip_verify", false)
	v.SetDefault("target.user_agent", defaults.UserAgent)

	// -- Inputs --
	v.SetDefault("contract.file", "")
	v.SetDefault("custom.file", "")
	v.SetDefault("custom.security_file", "")
	v.SetDefault("custom.ref_data_file", defaults.RefDataFile)

	// -- Oracle --
	v.SetDefault("oracle.ignore_response_body_check", false)
	v.SetDefault("oracle.ignore_undocumented_check", false)
	v.SetDefault("ignore.codes", []string{})
	v.SetDefault("ignore.skip_reporting", false)

	// -- Run --
	v.SetDefault("run.concurrency", defaults.Concurrency)
	v.SetDefault("run.paths", []string{})

	// -- Report --
	v.SetDefault("report.dir", defaults.ReportDir)
	v.SetDefault("report.formats", []string{FormatJSONL, FormatText})

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Observability --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", defaults.MetricsAddr)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", defaults.OTLPEndpoint)
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", defaults.ToolName)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Load applies defaults, reads file when given, enables environment
// overrides and returns the validated configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, file, err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Target.ServerURL == "" {
		return fmt.Errorf("%w: target.server_url", ErrMissingRequired)
	}
	u, err := url.Parse(c.Target.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: target.server_url %q must be an http(s) URL", ErrInvalidConfig, c.Target.ServerURL)
	}
	if c.Contract.File == "" {
		return fmt.Errorf("%w: contract.file", ErrMissingRequired)
	}
	if c.Custom.File == "" && c.Custom.SecurityFile == "" {
		return fmt.Errorf("%w: custom.file or custom.security_file", ErrMissingRequired)
	}
	if c.Target.Timeout <= 0 {
		return fmt.Errorf("%w: target.timeout must be positive", ErrInvalidConfig)
	}
	if c.Target.RateLimit < 0 || c.Target.Retries < 0 {
		return fmt.Errorf("%w: target.rate_limit and target.retries must not be negative", ErrInvalidConfig)
	}
	if c.Run.Concurrency <= 0 {
		return fmt.Errorf("%w: run.concurrency must be a positive integer", ErrInvalidConfig)
	}
	for _, code := range c.Ignore.Codes {
		if !respcode.IsValid(code) {
			return fmt.Errorf("%w: ignore.codes contains %q", ErrInvalidConfig, code)
		}
	}
	for _, f := range c.Report.Formats {
		if !slices.Contains(reportFormats, strings.ToLower(f)) {
			return fmt.Errorf("%w: report.formats: unknown format %q", ErrInvalidConfig, f)
		}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("%w: logger.level %q", ErrInvalidConfig, c.Logger.Level)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Logger.Format)) {
		return fmt.Errorf("%w: logger.format %q", ErrInvalidConfig, c.Logger.Format)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("%w: tracing.endpoint", ErrMissingRequired)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be between 0 and 1", ErrInvalidConfig)
	}
	return nil
}
