package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/BartekS5/tap-netsuite/pkg/logger"
)

func NewScheduleCmd(opts *SyncOptions) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the sync repeatedly on a cron schedule",
		Long: `Run the sync on a cron schedule until interrupted.

A run that is still going when the next one is due is skipped, so two runs
never write the same state file at once.

Example:
  tap-netsuite schedule --config config.yaml --state state.json --cron "*/15 * * * *"
  tap-netsuite schedule --config config.yaml --state state.json --cron @hourly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, opts, spec)
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (5 fields or a descriptor such as @hourly)")
	_ = cmd.MarkFlagRequired("cron")

	return cmd
}

func runSchedule(cmd *cobra.Command, opts *SyncOptions, spec string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(cmd.ErrOrStderr())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))))

	_, err := c.AddFunc(spec, func() {
		result, err := runSync(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			log.Errorf("Scheduled sync failed: %v", err)
			return
		}
		log.Infof("Scheduled sync finished. Records: %d", result.Records())
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	c.Start()
	log.Infof("Scheduler started. Cron: %s", spec)

	<-ctx.Done()
	log.Info("Received shutdown signal, waiting for the running sync to finish")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
	return nil
}
