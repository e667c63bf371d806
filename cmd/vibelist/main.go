// Command vibelist builds, inspects and serves vibe-to-track snapshots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	snapshot   string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "vibelist",
		Short:         "Turn a free-text vibe into a list of tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: $VIBELIST_CONFIG or ./vibelist.yaml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override logging.format (json or console)")
	cmd.PersistentFlags().StringVar(&flags.snapshot, "snapshot", "", "override snapshot.uri")

	cmd.AddCommand(
		newRecommendCommand(flags),
		newBuildCommand(flags),
		newInspectCommand(flags),
		newServeCommand(flags),
	)
	return cmd
}
