// Package config loads engine settings and the declared default-job list,
// and can watch the declaration file for live reload.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
)

// Config is the engine's top-level settings (spec.md §6).
type Config struct {
	APIOn      bool   `yaml:"api_on"`
	APIHost    string `yaml:"api_host"`
	APIPort    int    `yaml:"api_port"`
	APIAuth    bool   `yaml:"api_auth"`
	Debug      bool   `yaml:"debug"`
	LogPath    string `yaml:"log_path"`
	DBURI      string `yaml:"db_uri"`
	LogMaxAge  int    `yaml:"log_max_age_days"`

	Jobs []JobDecl `yaml:"jobs"`
}

// JobDecl is the YAML shape of one declared default job.
type JobDecl struct {
	Task       string         `yaml:"task"`
	Params     map[string]any `yaml:"params"`
	Interval   int            `yaml:"interval"`
	Unit       string         `yaml:"unit"`
	At         string         `yaml:"at"`
	Cron       string         `yaml:"cron"`
	Timeout    *int           `yaml:"timeout"`
	MaxRetries *int           `yaml:"max_retries"`
}

// Default returns the zero-config baseline (spec.md §6).
func Default() *Config {
	return &Config{
		APIOn:     true,
		APIHost:   "127.0.0.1",
		APIPort:   8080,
		APIAuth:   false,
		DBURI:     "sqlite://homeworq.db",
		LogMaxAge: 30,
	}
}

// Load reads a YAML config file at path. A missing file is not an error;
// Default() is returned instead, matching the teacher's "zero-config works"
// posture.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DefaultJobs converts the declared YAML jobs into engine.DefaultJob,
// validating each schedule shape eagerly so a bad declaration is caught
// at load time rather than deep inside the Reconciler.
func (c *Config) DefaultJobs() ([]engine.DefaultJob, error) {
	out := make([]engine.DefaultJob, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		s := schedule.Schedule{
			Interval: j.Interval,
			Unit:     schedule.Unit(j.Unit),
			At:       j.At,
			Cron:     j.Cron,
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Task, err)
		}
		if err := store.ValidateJobFields(j.MaxRetries, nil, nil); err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Task, err)
		}
		out = append(out, engine.DefaultJob{
			TaskName:   j.Task,
			Params:     j.Params,
			Schedule:   s,
			Timeout:    j.Timeout,
			MaxRetries: j.MaxRetries,
		})
	}
	return out, nil
}

// AdminCredentials returns the HTTP Basic auth credentials for the
// control-plane, from environment with the spec's documented defaults.
func AdminCredentials() (username, password string) {
	username = os.Getenv("HQ_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password = os.Getenv("HQ_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}
	return username, password
}
