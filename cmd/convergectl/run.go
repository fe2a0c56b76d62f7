package main

import (
	"github.com/spf13/cobra"
)

// runCmd triggers a one-off agent run
var runCmd = &cobra.Command{
	Use:   "run [agent arguments...]",
	Short: "Trigger a one-off agent run",
	Long: `Trigger a one-off agent run in the foreground.

Everything after "run" is handed to the agent unchanged, including
flags, so the agent's own options work without escaping. The agent's
output streams through and convergectl exits with the agent's exit
code.

A disable lock does not stop an explicit run; use lockedrun to also
hold the lock across the run.`,
	Example: `  # Plain one-off run
  convergectl run

  # Pass agent flags through
  convergectl run --noop --verbose`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := ctl.Run(cmd.Context(), args)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}

// lockedrunCmd runs the agent while holding the disable lock
var lockedrunCmd = &cobra.Command{
	Use:   "lockedrun [agent arguments...]",
	Short: "Run the agent once while keeping runs disabled",
	Long: `Run the agent once and put the disable lock back afterwards.

The existing disable message and owner are restored when the run ends,
so a maintenance window survives a manual run inside it. With no lock
in place the run simply executes. If the lock belongs to an agent run
that is still alive, lockedrun refuses to interfere.

Arguments pass through to the agent exactly like "run".`,
	Example: `  # Test a change without reopening the schedule
  convergectl lockedrun --noop`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := ctl.LockedRun(cmd.Context(), args)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}
