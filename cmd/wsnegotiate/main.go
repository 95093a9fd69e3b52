// wsnegotiate serves WebSocket opening handshakes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luciancaetano/wsnegotiate/internal/config"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wsnegotiate",
		Short: "WebSocket opening handshake server",
		Long: `wsnegotiate answers WebSocket opening handshakes (RFC 6455 §4).

It negotiates Sec-WebSocket-Protocol and Origin against prioritized option
lists, computes Sec-WebSocket-Accept and replies 101 Switching Protocols, or
rejects the request with a precise status code.

Configuration is read from application.yaml, WSNEGOTIATE_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(config.New()), newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wsnegotiate %s (%s)\n", Version, Commit)
		},
	}
}
