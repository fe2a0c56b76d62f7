package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/convergeops/convergectl/internal/agent"
	"github.com/convergeops/convergectl/internal/config"
	"github.com/convergeops/convergectl/internal/control"
	"github.com/convergeops/convergectl/internal/lockfile"
	"github.com/convergeops/convergectl/internal/mail"
	"github.com/convergeops/convergectl/pkg/log"
	"github.com/convergeops/convergectl/pkg/metrics"
)

// Version information, injected at build time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags
var (
	configFile   string
	outputFormat string
	noColor      bool
	verbose      bool
)

// Shared state built once in PersistentPreRunE.
var (
	cfg    *config.Config
	ctl    *control.Controller
	logger zerolog.Logger
)

// stdout is where operator-facing output goes. Tests swap it for a
// buffer; logs always go to stderr regardless.
var stdout io.Writer = os.Stdout

// geteuid is overridable so tests can exercise the root guard.
var geteuid = os.Geteuid

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "convergectl",
	Short: "Operator control for the converge agent",
	Long: `convergectl gives operators manual control over the converge agent's
scheduled runs on this host.

The agent normally runs from cron. convergectl disables and re-enables
that schedule through the agent's disable lock file, reports on the
current state, and triggers one-off runs. Commands that touch agent
state must run as root.

Settings are resolved from flags, CONVERGECTL_* environment variables,
the config file (default /etc/convergectl/config.yaml), the agent's own
configuration, and compiled defaults, in that order.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		InitColor(!noColor)

		// Introspection commands work without configuration.
		if !needsSetup(cmd) {
			return nil
		}

		if geteuid() != 0 {
			return errors.New("must be run as root")
		}

		resolved, err := resolveConfig(cmd.Context())
		if err != nil {
			return err
		}

		cfg = resolved
		logger = log.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

		mailer, err := mail.New(mailConfig(cfg), logger)
		if err != nil {
			return err
		}

		rec := metrics.NewRecorder()
		if cfg.MetricsTextfileDir != "" {
			// Seed gauges from the last snapshot so one operation does
			// not zero out what another one recorded.
			if err := rec.LoadTextfile(cfg.MetricsTextfileDir); err != nil {
				logger.Warn().Err(err).Str("dir", cfg.MetricsTextfileDir).Msg("could not load metrics snapshot")
			}
		}

		lock := lockfile.NewStore(cfg.LockFile, cfg.LockOwnerFile)
		invoker := agent.New(cfg.AgentBin, stdout, os.Stderr, logger)
		ctl = control.New(cfg, lock, invoker, mailer, rec, stdout, logger)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			return printJSON(map[string]string{
				"version":    Version,
				"commit":     Commit,
				"build_time": BuildTime,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			})
		}

		fmt.Fprintf(stdout, "convergectl %s\n", Version)
		fmt.Fprintf(stdout, "  commit:     %s\n", Commit)
		fmt.Fprintf(stdout, "  built:      %s\n", BuildTime)
		fmt.Fprintf(stdout, "  go version: %s\n", runtime.Version())
		fmt.Fprintf(stdout, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

// exitCodeError carries a specific process exit code through cobra's
// error return. run and lockedrun use it to mirror the agent's code.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// needsSetup reports whether cmd needs collaborators and the root
// guard. Version, completion, and the config group never touch agent
// state; config show resolves settings on its own.
func needsSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "completion", "config", "help",
			cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// resolveConfig runs full settings resolution. It happens before the
// configured logger exists, so it logs through a bootstrap logger at
// the flag-derived level.
func resolveConfig(ctx context.Context) (*config.Config, error) {
	opts := config.Options{
		ConfigFile:   configFile,
		OutputFormat: outputFormat,
	}
	bootLevel := config.DefaultLogLevel
	if verbose {
		opts.LogLevel = "debug"
		bootLevel = "debug"
	}
	bootLog := log.New(bootLevel, config.DefaultLogFormat, os.Stderr)

	return config.Resolve(ctx, opts, func(bin string) config.Querier {
		return agent.New(bin, io.Discard, io.Discard, bootLog)
	}, bootLog)
}

// mailConfig maps resolved settings onto the mail package's config.
func mailConfig(cfg *config.Config) mail.Config {
	return mail.Config{
		Transport: cfg.Mail.Transport,
		Command:   cfg.Mail.Command,
		SMTP: mail.SMTPConfig{
			Host:       cfg.Mail.SMTPHost,
			Port:       cfg.Mail.SMTPPort,
			Username:   cfg.Mail.Username,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			UseTLS:     cfg.Mail.UseTLS,
			SkipVerify: cfg.Mail.SkipVerify,
			Timeout:    cfg.Mail.Timeout,
		},
	}
}

// Execute runs the root command and returns the process exit code.
// Precondition failures print a one-line diagnostic on stdout and
// yield 1; run and lockedrun pass the agent's own exit code through.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}

	diagnostic(err.Error())
	return 1
}

func init() {
	// run and lockedrun disable their own flag parsing so agent
	// arguments pass through untouched; the root must therefore claim
	// its flags during traversal.
	rootCmd.TraverseChildren = true

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default /etc/convergectl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lockedrunCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
