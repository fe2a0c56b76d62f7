package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var disableMessage string

// disableCmd creates the disable lock
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable scheduled agent runs",
	Long: `Disable scheduled agent runs by creating the disable lock file.

The message is stored in the lock file so that other operators can see
why runs are off. Without -m a default message naming you and the time
is recorded. An existing lock is never overwritten; disabling twice
reports who holds the lock instead.`,
	Example: `  # Disable with a reason
  convergectl disable -m "migrating database, back by 18:00"

  # Disable with the default "Disabled at <time> by <user>" message
  convergectl disable`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// An explicitly empty -m would create a lock nobody can
		// explain. Distinguish it from the flag being absent.
		if cmd.Flags().Changed("message") && disableMessage == "" {
			return errors.New("refusing an empty message; omit -m to record the default")
		}
		return ctl.Disable(cmd.Context(), disableMessage)
	},
}

func init() {
	disableCmd.Flags().StringVarP(&disableMessage, "message", "m", "", "reason for disabling, stored in the lock file")
}
