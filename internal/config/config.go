// Package config resolves the effective convergectl configuration.
// Each value is taken from, in order: command-line flags, the
// CONVERGECTL_* environment, the convergectl config file, the agent's
// own configuration (live --configprint query first, TOML file as
// fallback), and compiled defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Compiled defaults, the end of every resolution chain.
const (
	DefaultConfigPath      = "/etc/convergectl/config.yaml"
	DefaultAgentBin        = "converge"
	DefaultAgentConfigPath = "/etc/converge/converge.toml"
	DefaultLockFile        = "/var/lib/converge/state/converge.lock"
	DefaultPIDFile         = "/run/converge/agent.pid"
	DefaultOutputFormat    = "text"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// LockFileName is joined to the agent's statedir when its config
// names a statedir but no explicit lock file.
const LockFileName = "converge.lock"

// Config is the fully resolved configuration every operation
// receives. The yaml tags describe the config-file shape; after
// Resolve no path field is empty.
type Config struct {
	// AgentBin is the converge agent executable, name or path.
	AgentBin string `yaml:"agent_bin"`
	// AgentConfigPath is the agent's own TOML configuration.
	AgentConfigPath string `yaml:"agent_config"`

	// LockFile disables scheduled runs while it exists.
	LockFile string `yaml:"lock_file"`
	// LockOwnerFile records who issued the disable (default: LockFile + ".owner").
	LockOwnerFile string `yaml:"lock_owner_file"`
	// PIDFile is written by the agent while a run is in progress.
	PIDFile string `yaml:"pid_file"`

	// Schedule is the agent's cron expression, used for display only.
	Schedule string `yaml:"schedule"`

	// AdminEmail is the default recipient for report. Empty means
	// report requires an explicit recipient.
	AdminEmail string     `yaml:"admin_email"`
	Mail       MailConfig `yaml:"mail"`

	// MetricsTextfileDir enables node-exporter textfile output when set.
	MetricsTextfileDir string `yaml:"metrics_textfile_dir"`

	// OutputFormat is text or json.
	OutputFormat string    `yaml:"output_format"`
	Log          LogConfig `yaml:"log"`
}

// MailConfig selects and configures the report transport.
type MailConfig struct {
	// Transport is command (default) or smtp.
	Transport string `yaml:"transport"`
	// Command is the mail utility for the command transport (default: mail).
	Command string `yaml:"command"`
	// From is the sender address for the smtp transport.
	From       string `yaml:"from"`
	SMTPHost   string `yaml:"smtp_host"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"smtp_username"`
	Password   string `yaml:"smtp_password"`
	UseTLS     bool   `yaml:"smtp_use_tls"`
	SkipVerify bool   `yaml:"smtp_skip_verify"`
	// Timeout is env-only (CONVERGECTL_SMTP_TIMEOUT), default 30s.
	Timeout time.Duration `yaml:"-"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is trace, debug, info, warn or error (default: info).
	Level string `yaml:"level"`
	// Format is console or json (default: console).
	Format string `yaml:"format"`
}

// LoadFile reads a convergectl config file. Callers decide whether a
// missing file is tolerable.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the resolved configuration, collecting every
// problem rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.AgentBin == "" {
		errs = append(errs, errors.New("agent_bin must not be empty"))
	}
	if !filepath.IsAbs(c.LockFile) {
		errs = append(errs, fmt.Errorf("lock_file must be an absolute path, got %q", c.LockFile))
	}
	if !filepath.IsAbs(c.LockOwnerFile) {
		errs = append(errs, fmt.Errorf("lock_owner_file must be an absolute path, got %q", c.LockOwnerFile))
	}
	if !filepath.IsAbs(c.PIDFile) {
		errs = append(errs, fmt.Errorf("pid_file must be an absolute path, got %q", c.PIDFile))
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q is not a valid cron expression: %w", c.Schedule, err))
		}
	}

	switch c.OutputFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output_format must be text or json, got %q", c.OutputFormat))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log level must be one of trace, debug, info, warn, error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format must be json or console, got %q", c.Log.Format))
	}

	switch c.Mail.Transport {
	case "", "command":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("mail.smtp_host must be set when the smtp transport is selected"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.transport must be command or smtp, got %q", c.Mail.Transport))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidationError aggregates every validation failure.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the underlying errors for errors.Is/As compatibility.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// Environment helpers. Unset or unparsable values yield the default.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// firstNonEmpty returns the first non-empty value, flag over env over
// file over default.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
