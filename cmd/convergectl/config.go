package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/convergeops/convergectl/internal/config"
)

// configCmd is the parent command for configuration inspection
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect convergectl configuration",
	Long: `Inspect the configuration convergectl resolves for this host.

Settings layer flags over CONVERGECTL_* environment variables, the
config file, the agent's own configuration, and compiled defaults.
These commands show the final result of that layering and work without
root.`,
}

// configShowCmd displays the resolved configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Example: `  convergectl config show

  # Machine-readable form
  convergectl config show -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := resolveConfig(cmd.Context())
		if err != nil {
			return err
		}

		if resolved.OutputFormat == "json" {
			return printJSON(configForOutput(resolved))
		}

		printConfigText(resolved)
		return nil
	},
}

// configPathCmd prints the config file path in effect
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(stdout, effectiveConfigPath())
		return nil
	},
}

// effectiveConfigPath mirrors resolution's choice of config file.
func effectiveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	if env := os.Getenv("CONVERGECTL_CONFIG"); env != "" {
		return env
	}
	return config.DefaultConfigPath
}

func printConfigText(cfg *config.Config) {
	path := effectiveConfigPath()
	if _, err := os.Stat(path); err != nil {
		path += " " + Dim("(not found)")
	}

	fmt.Fprintln(stdout, Bold("Configuration"))
	fmt.Fprintf(stdout, "  File:         %s\n", path)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, Bold("Agent"))
	fmt.Fprintf(stdout, "  Binary:       %s\n", cfg.AgentBin)
	fmt.Fprintf(stdout, "  Config:       %s\n", cfg.AgentConfigPath)
	fmt.Fprintf(stdout, "  Lock file:    %s\n", cfg.LockFile)
	fmt.Fprintf(stdout, "  Owner file:   %s\n", cfg.LockOwnerFile)
	fmt.Fprintf(stdout, "  PID file:     %s\n", cfg.PIDFile)
	fmt.Fprintf(stdout, "  Schedule:     %s\n", orUnset(cfg.Schedule))
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, Bold("Mail"))
	transport := cfg.Mail.Transport
	if transport == "" {
		transport = "command"
	}
	fmt.Fprintf(stdout, "  Transport:    %s\n", transport)
	if transport == "smtp" {
		fmt.Fprintf(stdout, "  SMTP host:    %s:%d\n", cfg.Mail.SMTPHost, cfg.Mail.SMTPPort)
		fmt.Fprintf(stdout, "  SMTP from:    %s\n", orUnset(cfg.Mail.From))
		fmt.Fprintf(stdout, "  SMTP user:    %s\n", orUnset(cfg.Mail.Username))
		if cfg.Mail.Password != "" {
			fmt.Fprintf(stdout, "  Password:     %s\n", Dim("(set)"))
		} else {
			fmt.Fprintf(stdout, "  Password:     %s\n", orUnset(""))
		}
	} else {
		fmt.Fprintf(stdout, "  Command:      %s\n", orUnset(cfg.Mail.Command))
	}
	fmt.Fprintf(stdout, "  Admin email:  %s\n", orUnset(cfg.AdminEmail))
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, Bold("Output"))
	fmt.Fprintf(stdout, "  Format:       %s\n", cfg.OutputFormat)
	fmt.Fprintf(stdout, "  Log level:    %s\n", cfg.Log.Level)
	fmt.Fprintf(stdout, "  Log format:   %s\n", cfg.Log.Format)
	fmt.Fprintf(stdout, "  Metrics dir:  %s\n", orUnset(cfg.MetricsTextfileDir))
}

// configForOutput flattens the config for JSON without leaking the
// SMTP password.
func configForOutput(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"config_file":          effectiveConfigPath(),
		"agent_bin":            cfg.AgentBin,
		"agent_config":         cfg.AgentConfigPath,
		"lock_file":            cfg.LockFile,
		"lock_owner_file":      cfg.LockOwnerFile,
		"pid_file":             cfg.PIDFile,
		"schedule":             cfg.Schedule,
		"admin_email":          cfg.AdminEmail,
		"mail_transport":       cfg.Mail.Transport,
		"mail_command":         cfg.Mail.Command,
		"smtp_host":            cfg.Mail.SMTPHost,
		"smtp_port":            cfg.Mail.SMTPPort,
		"smtp_from":            cfg.Mail.From,
		"smtp_username":        cfg.Mail.Username,
		"smtp_password_set":    cfg.Mail.Password != "",
		"metrics_textfile_dir": cfg.MetricsTextfileDir,
		"output_format":        cfg.OutputFormat,
		"log_level":            cfg.Log.Level,
		"log_format":           cfg.Log.Format,
	}
}

func orUnset(s string) string {
	if s == "" {
		return Dim("(not set)")
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
