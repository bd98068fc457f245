// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds all application configuration.
type Settings struct {
	// Application metadata
	Version  string `envconfig:"VERSION" default:"0.1.0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// API server settings
	APIHost string `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort int    `envconfig:"API_PORT" default:"9135"`

	// Filesystem roots, overridable for tests and containerized deployments
	// where the host tree is mounted under a prefix.
	SysBlockPath string `envconfig:"SYS_BLOCK_PATH" default:"/sys/block"`
	DevPath      string `envconfig:"DEV_PATH" default:"/dev"`
	ByIDPath     string `envconfig:"BY_ID_PATH" default:"/dev/disk/by-id"`

	// External tools
	SmartctlBinary string `envconfig:"SMARTCTL_BINARY" default:"smartctl"`
	ZpoolBinary    string `envconfig:"ZPOOL_BINARY" default:"zpool"`

	// Probe behavior
	ProbeTimeout     time.Duration `envconfig:"PROBE_TIMEOUT" default:"10s"`
	ProbeAttempts    int           `envconfig:"PROBE_ATTEMPTS" default:"3"`
	SampleDelay      time.Duration `envconfig:"SAMPLE_DELAY" default:"1s"`
	ScanConcurrency  int           `envconfig:"SCAN_CONCURRENCY" default:"4"`
	CooldownDuration time.Duration `envconfig:"COOLDOWN_DURATION" default:"5m"`
	ZpoolTimeout     time.Duration `envconfig:"ZPOOL_TIMEOUT" default:"5s"`

	// ScanSchedule is an optional cron expression. When set, scans run on
	// the schedule and /metrics serves the latest snapshot; when empty,
	// every scrape triggers a synchronous scan.
	ScanSchedule string `envconfig:"SCAN_SCHEDULE" default:""`
}

// ListenAddr returns the address string for the HTTP server to bind to.
func (s *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.APIHost, s.APIPort)
}

// Load creates a new Settings instance from environment variables.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := envconfig.Process("DISKSTATUS", s); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return s, nil
}
