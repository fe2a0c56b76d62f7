package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/convergeops/convergectl/internal/control"
)

// statusCmd reports whether scheduled runs are enabled
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether scheduled agent runs are enabled",
	Long: `Show whether scheduled agent runs are enabled.

The first word of the output is always "enabled" or "locked", so
scripts can branch on it. The rest describes the lock: who disabled
runs and why, or which agent run holds the lock. The state is read
fresh from the lock file on every call.`,
	Example: `  convergectl status

  # Machine-readable form
  convergectl status -o json

  # Branch on the state in a script
  [ "$(convergectl status | head -1)" = "enabled" ] && echo runs on`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := ctl.Status(cmd.Context())
		if err != nil {
			return err
		}

		if cfg.OutputFormat == "json" {
			return printJSON(info)
		}

		printStatusText(info)
		return nil
	},
}

// printStatusText renders the status in the fixed text layout. The
// first token stays the bare state word even when color is on, because
// color is only enabled on terminals.
func printStatusText(info *control.StatusInfo) {
	const timeLayout = "2006-01-02 15:04:05"

	if !info.Disabled {
		fmt.Fprintln(stdout, Green(info.State))
		if info.NextRun != nil {
			fmt.Fprintf(stdout, "  next scheduled run: %s\n", info.NextRun.Format(timeLayout))
		}
	} else {
		fmt.Fprintln(stdout, Yellow(info.State))
		switch {
		case info.LockPID != 0 && info.LockPIDAlive:
			line := fmt.Sprintf("  run in progress: pid %d", info.LockPID)
			if info.Process != "" {
				line += " (" + info.Process + ")"
			}
			fmt.Fprintln(stdout, line)
		case info.LockPID != 0:
			fmt.Fprintf(stdout, "  stale lock: pid %d is gone, enable will clear it\n", info.LockPID)
		default:
			reason := info.Message
			if reason == "" {
				reason = Dim("(no reason given)")
			}
			fmt.Fprintf(stdout, "  reason: %s\n", reason)
			if info.Owner != "" {
				fmt.Fprintf(stdout, "  owner: %s\n", info.Owner)
			}
		}
		if info.Since != nil {
			fmt.Fprintf(stdout, "  since: %s\n", info.Since.Format(timeLayout))
		}
	}

	if info.AgentPID != 0 {
		fmt.Fprintf(stdout, "  agent: running (pid %d)\n", info.AgentPID)
	}
	fmt.Fprintf(stdout, "  lock file: %s\n", info.LockFile)
}
