package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
target:
  server_url: https://api.example.com
  headers:
    Authorization: Bearer x
  timeout: 5s
  rate_limit: 20
contract:
  file: openapi.yml
custom:
  file: custom.yml
ignore:
  codes: [400, 5XX]
  skip_reporting: true
run:
  concurrency: 4
report:
  formats: [jsonl, xlsx]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contractfuzz.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New(), writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Target.ServerURL)
	assert.Equal(t, "Bearer x", cfg.Target.Headers["authorization"])
	assert.Equal(t, 5*time.Second, cfg.Target.Timeout)
	assert.InDelta(t, 20.0, cfg.Target.RateLimit, 0)
	assert.Equal(t, []string{"400", "5XX"}, cfg.Ignore.Codes)
	assert.True(t, cfg.Ignore.SkipReporting)
	assert.Equal(t, 4, cfg.Run.Concurrency)
	assert.Equal(t, []string{"jsonl", "xlsx"}, cfg.Report.Formats)

	// Defaults fill what the file leaves out.
	assert.Equal(t, "refData_custom.yml", cfg.Custom.RefDataFile)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "contractfuzz", cfg.Tracing.ServiceName)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CONTRACTFUZZ_TARGET_SERVER_URL", "http://localhost:8080")
	t.Setenv("CONTRACTFUZZ_RUN_CONCURRENCY", "7")

	cfg, err := Load(viper.New(), writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Target.ServerURL)
	assert.Equal(t, 7, cfg.Run.Concurrency)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(viper.New(), "")
	require.ErrorIs(t, err, ErrMissingRequired)
}

func validConfig() Config {
	return Config{
		Target:   TargetConfig{ServerURL: "https://api.example.com", Timeout: time.Second},
		Contract: ContractConfig{File: "openapi.yml"},
		Custom:   CustomConfig{File: "custom.yml"},
		Run:      RunConfig{Concurrency: 1},
		Report:   ReportConfig{Formats: []string{"text"}},
		Logger:   LoggerConfig{Level: "debug", Format: "json"},
		Tracing:  TracingConfig{SampleRatio: 1},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "security file alone is enough", mutate: func(c *Config) { c.Custom = CustomConfig{SecurityFile: "sec.yml"} }},
		{name: "missing server", mutate: func(c *Config) { c.Target.ServerURL = "" }, want: ErrMissingRequired},
		{name: "non http server", mutate: func(c *Config) { c.Target.ServerURL = "ftp://x" }, want: ErrInvalidConfig},
		{name: "missing contract", mutate: func(c *Config) { c.Contract.File = "" }, want: ErrMissingRequired},
		{name: "no test files", mutate: func(c *Config) { c.Custom = CustomConfig{} }, want: ErrMissingRequired},
		{name: "zero timeout", mutate: func(c *Config) { c.Target.Timeout = 0 }, want: ErrInvalidConfig},
		{name: "negative rate", mutate: func(c *Config) { c.Target.RateLimit = -1 }, want: ErrInvalidConfig},
		{name: "zero concurrency", mutate: func(c *Config) { c.Run.Concurrency = 0 }, want: ErrInvalidConfig},
		{name: "bad ignored code", mutate: func(c *Config) { c.Ignore.Codes = []string{"42"} }, want: ErrInvalidConfig},
		{name: "unknown format", mutate: func(c *Config) { c.Report.Formats = []string{"pdf"} }, want: ErrInvalidConfig},
		{name: "bad level", mutate: func(c *Config) { c.Logger.Level = "loud" }, want: ErrInvalidConfig},
		{name: "bad log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, want: ErrInvalidConfig},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.Tracing.Enabled = true }, want: ErrMissingRequired},
		{name: "sample ratio out of range", mutate: func(c *Config) { c.Tracing.SampleRatio = 2 }, want: ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
