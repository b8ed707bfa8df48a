package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shiori/internal/events"
)

var (
	listenTCP    string
	listenWS     string
	listenPretty bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Catalog change feed",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print catalog events as they happen",
	Long: `Subscribes to the API server's event feed over TCP (--tcp) or WebSocket (--ws)
and prints each event. Reconnects automatically until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		switch {
		case listenWS != "":
			return events.FollowWS(ctx, listenWS, cmd.OutOrStdout(), listenPretty)
		case listenTCP != "":
			return events.FollowTCP(ctx, listenTCP, cmd.OutOrStdout(), listenPretty)
		default:
			return errors.New("one of --tcp or --ws is required")
		}
	},
}

func init() {
	eventsListenCmd.Flags().StringVar(&listenTCP, "tcp", "", "TCP event feed address, e.g. 127.0.0.1:7070")
	eventsListenCmd.Flags().StringVar(&listenWS, "ws", "", "WebSocket URL, e.g. ws://localhost:8080/ws")
	eventsListenCmd.Flags().BoolVar(&listenPretty, "pretty", true, "indent JSON events")
	eventsListenCmd.MarkFlagsMutuallyExclusive("tcp", "ws")

	eventsCmd.AddCommand(eventsListenCmd)
	rootCmd.AddCommand(eventsCmd)
}
