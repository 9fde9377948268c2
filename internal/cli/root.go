// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

// SyncOptions holds the flags shared by the sync and schedule commands.
type SyncOptions struct {
	ConfigFile  string
	StateFile   string
	CatalogFile string
	LogLevel    string
	Discover    bool
	DryRun      bool
}

func NewRootCmd() *cobra.Command {
	opts := &SyncOptions{}

	rootCmd := &cobra.Command{
		Use:   "tap-netsuite",
		Short: "tap-netsuite - sync NetSuite records as a Singer message stream",
		Long: `tap-netsuite pulls Customer and SalesOrder records from the NetSuite
SuiteTalk REST API, normalizes them and writes SCHEMA and RECORD messages to
stdout, one JSON document per line. Bookmarks are kept in a state file so the
next run resumes where this one stopped.

Streams are synced only when listed in selected_streams of the state file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Discover {
				return runDiscover(cmd, opts)
			}
			_, err := runSync(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to the config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&opts.StateFile, "state", "s", "", "Path to the state file")
	rootCmd.PersistentFlags().StringVar(&opts.CatalogFile, "catalog", "", "Path to a catalog file overriding discovery")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "Emit messages but skip the configured loaders")
	rootCmd.Flags().BoolVarP(&opts.Discover, "discover", "d", false, "Print the catalog and exit")

	_ = rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(NewScheduleCmd(opts))

	return rootCmd
}
