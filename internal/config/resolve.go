package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/convergeops/convergectl/internal/agent"
)

// Agent configuration keys consulted during resolution.
const (
	KeyDisableLockFile = "disable_lockfile"
	KeyPIDFile         = "pidfile"
	KeySchedule        = "schedule"
)

// Querier asks the agent binary for one of its effective settings.
// *agent.Invoker satisfies it.
type Querier interface {
	ConfigPrint(ctx context.Context, key string) (string, error)
}

// Options carries command-line overrides into resolution. Zero values
// mean "not set on the command line".
type Options struct {
	ConfigFile   string
	OutputFormat string
	LogLevel     string
}

// Resolve assembles the effective configuration. The config file is
// optional unless named explicitly via flag or environment. The agent
// binary itself is a resolved setting, so the live querier is built
// through newQuerier once the binary is known; nil skips agent
// queries. Query and agent-config failures fall through to the next
// source rather than aborting.
func Resolve(ctx context.Context, opts Options, newQuerier func(bin string) Querier, logger zerolog.Logger) (*Config, error) {
	path := firstNonEmpty(opts.ConfigFile, os.Getenv("CONVERGECTL_CONFIG"), DefaultConfigPath)
	explicit := opts.ConfigFile != "" || os.Getenv("CONVERGECTL_CONFIG") != ""

	cfg, err := LoadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
	}

	cfg.AgentBin = firstNonEmpty(os.Getenv("CONVERGECTL_AGENT_BIN"), cfg.AgentBin, DefaultAgentBin)
	cfg.AgentConfigPath = firstNonEmpty(os.Getenv("CONVERGECTL_AGENT_CONFIG"), cfg.AgentConfigPath, DefaultAgentConfigPath)

	cfg.LockFile = firstNonEmpty(os.Getenv("CONVERGECTL_LOCK_FILE"), cfg.LockFile)
	cfg.LockOwnerFile = firstNonEmpty(os.Getenv("CONVERGECTL_LOCK_OWNER_FILE"), cfg.LockOwnerFile)
	cfg.PIDFile = firstNonEmpty(os.Getenv("CONVERGECTL_PID_FILE"), cfg.PIDFile)
	cfg.Schedule = firstNonEmpty(os.Getenv("CONVERGECTL_SCHEDULE"), cfg.Schedule)

	cfg.AdminEmail = getEnv("CONVERGECTL_ADMIN_EMAIL", cfg.AdminEmail)
	cfg.OutputFormat = firstNonEmpty(opts.OutputFormat, os.Getenv("CONVERGECTL_OUTPUT"), cfg.OutputFormat, DefaultOutputFormat)

	cfg.Mail.Transport = getEnv("CONVERGECTL_MAIL_TRANSPORT", cfg.Mail.Transport)
	cfg.Mail.Command = getEnv("CONVERGECTL_MAIL_COMMAND", cfg.Mail.Command)
	cfg.Mail.From = getEnv("CONVERGECTL_SMTP_FROM", cfg.Mail.From)
	cfg.Mail.SMTPHost = getEnv("CONVERGECTL_SMTP_HOST", cfg.Mail.SMTPHost)
	cfg.Mail.SMTPPort = getEnvInt("CONVERGECTL_SMTP_PORT", cfg.Mail.SMTPPort)
	cfg.Mail.Username = getEnv("CONVERGECTL_SMTP_USERNAME", cfg.Mail.Username)
	cfg.Mail.Password = getEnv("CONVERGECTL_SMTP_PASSWORD", cfg.Mail.Password)
	cfg.Mail.UseTLS = getEnvBool("CONVERGECTL_SMTP_USE_TLS", cfg.Mail.UseTLS)
	cfg.Mail.SkipVerify = getEnvBool("CONVERGECTL_SMTP_SKIP_VERIFY", cfg.Mail.SkipVerify)
	cfg.Mail.Timeout = getEnvDuration("CONVERGECTL_SMTP_TIMEOUT", 30*time.Second)

	cfg.MetricsTextfileDir = getEnv("CONVERGECTL_METRICS_TEXTFILE_DIR", cfg.MetricsTextfileDir)

	cfg.Log.Level = firstNonEmpty(opts.LogLevel, os.Getenv("CONVERGECTL_LOG_LEVEL"), cfg.Log.Level, DefaultLogLevel)
	cfg.Log.Format = firstNonEmpty(os.Getenv("CONVERGECTL_LOG_FORMAT"), cfg.Log.Format, DefaultLogFormat)

	// The agent knows its own paths best; ask it only for what is
	// still unset.
	if newQuerier != nil {
		if querier := newQuerier(cfg.AgentBin); querier != nil {
			resolveFromAgent(ctx, cfg, querier, logger)
		}
	}
	if cfg.LockFile == "" || cfg.PIDFile == "" || cfg.Schedule == "" {
		resolveFromAgentConfig(cfg, logger)
	}

	if cfg.LockFile == "" {
		cfg.LockFile = DefaultLockFile
	}
	if cfg.LockOwnerFile == "" {
		cfg.LockOwnerFile = cfg.LockFile + ".owner"
	}
	if cfg.PIDFile == "" {
		cfg.PIDFile = DefaultPIDFile
	}
	// Schedule may legitimately stay empty; status then omits the
	// next-run line.

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromAgent(ctx context.Context, cfg *Config, querier Querier, logger zerolog.Logger) {
	query := func(key string, dst *string) {
		if *dst != "" {
			return
		}
		value, err := querier.ConfigPrint(ctx, key)
		if err != nil {
			logger.Debug().Err(err).Str("key", key).Msg("agent config query failed")
			return
		}
		*dst = value
	}

	query(KeyDisableLockFile, &cfg.LockFile)
	query(KeyPIDFile, &cfg.PIDFile)
	query(KeySchedule, &cfg.Schedule)
}

func resolveFromAgentConfig(cfg *Config, logger zerolog.Logger) {
	cf, err := agent.LoadConfigFile(cfg.AgentConfigPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", cfg.AgentConfigPath).Msg("agent config unreadable, using defaults")
		}
		return
	}

	if cfg.LockFile == "" {
		cfg.LockFile = cf.Agent.DisableLockFile
		if cfg.LockFile == "" && cf.Main.StateDir != "" {
			cfg.LockFile = filepath.Join(cf.Main.StateDir, LockFileName)
		}
	}
	if cfg.PIDFile == "" {
		cfg.PIDFile = cf.Agent.PIDFile
	}
	if cfg.Schedule == "" {
		cfg.Schedule = cf.Agent.Schedule
	}
}
