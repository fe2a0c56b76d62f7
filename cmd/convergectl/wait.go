package main

import (
	"time"

	"github.com/spf13/cobra"
)

var waitTimeout time.Duration

// waitCmd blocks until no agent run is in progress
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for an in-progress agent run to finish",
	Long: `Block until no agent run is in progress, then exit.

Useful before maintenance that must not race a run, typically right
after disable. With no run in progress it returns immediately. A
timeout of 0 waits forever.`,
	Example: `  # Fence off a maintenance window
  convergectl disable -m "kernel upgrade"
  convergectl wait --timeout 30m

  # Wait as long as it takes
  convergectl wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ctl.Wait(cmd.Context(), waitTimeout)
	},
}

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "give up after this long (0 waits forever)")
}
