package main

import (
	"github.com/spf13/cobra"
)

// enableCmd removes the disable lock
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-enable scheduled agent runs",
	Long: `Re-enable scheduled agent runs by removing the disable lock file.

If the lock belongs to an agent run that is still in progress, the lock
is left alone so the run can clean up after itself. A lock left behind
by a run that died is removed like any other.`,
	Example: `  # Allow cron to start agent runs again
  convergectl enable`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ctl.Enable(cmd.Context())
	},
}
