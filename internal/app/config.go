package app

import (
	"net/url"
	"slices"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
)

// DefaultOutDir is where result collections are written when no directory is
// configured.
const DefaultOutDir = "data"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath    string // hcl file or directory
	StationPath string // yaml inventory, empty for the built-in dummy station

	Location string // location format or literal, overrides the plan's run block
	Label    string // overrides the plan's run label
	OutDir   string

	MonitorURL       string
	MonitorNamespace string
	MonitorInsecure  bool
	UploadURL        string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Enqueue         bool
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PlanPath == "" {
		return nil, errdefs.Configurationf("PlanPath is a required configuration field and cannot be empty")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains([]string{"text", "json"}, cfg.LogFormat) {
		return nil, errdefs.Configurationf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return nil, errdefs.Configurationf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errdefs.Configurationf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if err := checkURL("monitor URL", cfg.MonitorURL, "http", "https", "ws", "wss"); err != nil {
		return nil, err
	}
	if err := checkURL("upload URL", cfg.UploadURL, "http", "https"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func checkURL(what, raw string, schemes ...string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errdefs.WrapConfiguration(err, "invalid "+what)
	}
	if !slices.Contains(schemes, u.Scheme) || u.Host == "" {
		return errdefs.Configurationf("invalid %s %q: expected an absolute %v URL", what, raw, schemes)
	}
	return nil
}
