// Package cli implements gatewayctl, the operator tool for the notification
// gateway.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Timeout string
}

// NewRootCommand creates the root command for gatewayctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Operate the real-time notification gateway",
		Long: `gatewayctl publishes test events, checks how the jurisdiction policy
classifies an address and provisions users for the notification gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Timeout, "timeout", "10s", "timeout for network operations")

	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewGeoCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}
