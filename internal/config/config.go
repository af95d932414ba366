/*
 * Config - run configuration for the DNS snippet generator.
 *
 * Copyright 2026 Marco Confalonieri.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v8"
	"gopkg.in/yaml.v3"
)

// Config contains the configuration for a generation run. Values are read
// from a YAML file and can be overridden from the environment.
type Config struct {
	// NetBox API base URL, e.g. https://netbox.example.org
	NetboxURL string `yaml:"netbox_url" env:"NETBOX_URL"`
	// NetBox read-only API token
	NetboxToken string `yaml:"netbox_token" env:"NETBOX_TOKEN_RO"`
	// NetBox API timeout in seconds
	NetboxTimeout int `yaml:"netbox_timeout" env:"NETBOX_TIMEOUT"`
	// Path of the local snippet repository to clone from and push to
	RepoPath string `yaml:"repo_path" env:"SNIPPETS_REPO_PATH"`
	// Author identity used for the generated commits
	GitUserName  string `yaml:"git_user_name" env:"SNIPPETS_GIT_USER"`
	GitUserEmail string `yaml:"git_user_email" env:"SNIPPETS_GIT_EMAIL"`
	// Minimum number of forward records expected from a healthy run
	MinRecords int `yaml:"min_records" env:"SNIPPETS_MIN_RECORDS"`
	// Warning and error thresholds for the changed-lines percentage
	WarningLinesPct float64 `yaml:"warning_lines_pct" env:"SNIPPETS_WARNING_LINES_PCT"`
	ErrorLinesPct   float64 `yaml:"error_lines_pct" env:"SNIPPETS_ERROR_LINES_PCT"`
	// Warning and error thresholds for the changed-files percentage
	WarningFilesPct float64 `yaml:"warning_files_pct" env:"SNIPPETS_WARNING_FILES_PCT"`
	ErrorFilesPct   float64 `yaml:"error_files_pct" env:"SNIPPETS_ERROR_FILES_PCT"`
	// Zone suffix for internal zones that never get a site suffix
	InternalSuffix string `yaml:"internal_suffix" env:"SNIPPETS_INTERNAL_SUFFIX"`
	// Labels that extend the hostname/zone split point when present in a FQDN
	SplitLabels []string `yaml:"split_labels" env:"SNIPPETS_SPLIT_LABELS"`
	// State file used by the periodic check mode
	StateFile string `yaml:"state_file" env:"SNIPPETS_STATE_FILE"`
	// Check mode scheduling, in minutes
	RunEveryMinutes       int `yaml:"run_every_minutes" env:"SNIPPETS_RUN_EVERY_MINUTES"`
	RetryOnFailureMinutes int `yaml:"retry_on_failure_minutes" env:"SNIPPETS_RETRY_ON_FAILURE_MINUTES"`
	// Window within which uncommitted NetBox edits are considered recent
	AllowedChangesMinutes int `yaml:"allowed_changes_minutes" env:"SNIPPETS_ALLOWED_CHANGES_MINUTES"`
	// Optional node_exporter textfile collector destination for run metrics
	MetricsTextfile string `yaml:"metrics_textfile" env:"SNIPPETS_METRICS_TEXTFILE"`
}

// defaultConfig returns the base configuration. Defaults are applied before
// the file and environment layers so that precedence is defaults, then
// file, then environment.
func defaultConfig() *Config {
	return &Config{
		NetboxTimeout:         900,
		GitUserName:           "generate-dns-snippets",
		GitUserEmail:          "noc@wikimedia.org",
		WarningLinesPct:       3,
		ErrorLinesPct:         5,
		WarningFilesPct:       8,
		ErrorFilesPct:         15,
		InternalSuffix:        "wmnet",
		SplitLabels:           []string{"frack", "mgmt", "svc"},
		StateFile:             "/var/run/netbox-dns-snippets.state",
		RunEveryMinutes:       60,
		RetryOnFailureMinutes: 15,
		AllowedChangesMinutes: 30,
	}
}

// Load reads the configuration from the given YAML file and applies the
// environment overrides. A missing file is not an error so that pure
// environment configurations keep working.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse configuration file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot read configuration file %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("cannot parse environment configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for the values that have no usable
// default.
func (c *Config) Validate() error {
	if c.NetboxURL == "" {
		return errors.New("netbox_url is not set")
	}
	if c.NetboxToken == "" {
		return errors.New("netbox_token is not set")
	}
	if c.RepoPath == "" {
		return errors.New("repo_path is not set")
	}
	if c.NetboxTimeout <= 0 {
		return fmt.Errorf("netbox_timeout must be positive, got %d", c.NetboxTimeout)
	}
	return nil
}

// GetNetboxTimeout returns the NetBox API timeout as a duration.
func (c Config) GetNetboxTimeout() time.Duration {
	return time.Duration(c.NetboxTimeout) * time.Second
}

// GetRunEvery returns the check mode run interval as a duration.
func (c Config) GetRunEvery() time.Duration {
	return time.Duration(c.RunEveryMinutes) * time.Minute
}

// GetRetryOnFailure returns the check mode retry interval as a duration.
func (c Config) GetRetryOnFailure() time.Duration {
	return time.Duration(c.RetryOnFailureMinutes) * time.Minute
}

// GetAllowedChangesWindow returns the recent-edit window as a duration.
func (c Config) GetAllowedChangesWindow() time.Duration {
	return time.Duration(c.AllowedChangesMinutes) * time.Minute
}
