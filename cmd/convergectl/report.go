package main

import (
	"github.com/spf13/cobra"
)

var reportTo string

// reportCmd mails the current disable state
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Mail a report about the current disable state",
	Long: `Mail a report describing why scheduled agent runs are disabled.

The report names the lock holder, the recorded reason, and how long the
lock has been in place. When runs are enabled there is nothing to
report and no mail is sent.

The recipient comes from -t, CONVERGECTL_ADMIN_EMAIL, or the
admin_email config setting, in that order.`,
	Example: `  # Mail the configured admin address
  convergectl report

  # Mail a specific recipient
  convergectl report -t oncall@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ctl.Report(cmd.Context(), reportTo)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportTo, "to", "t", "", "report recipient (overrides admin_email)")
}
