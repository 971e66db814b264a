package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/ingest"
)

var daemonDir string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled imports until interrupted",
	Long: `Watch a directory of record files and import it on a cron schedule.
The schedule comes from HINDSIGHT_DAEMON_CRON (default every 15 minutes).

Example:
  hindsight daemon --dir ~/.hindsight/records/`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVarP(&daemonDir, "dir", "d", "", "directory of record files (required)")
	_ = daemonCmd.MarkFlagRequired("dir")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	importer := newImporter()
	runOnce := func() {
		paths, err := expandRecordPaths([]string{daemonDir})
		if err != nil {
			logger.Error("daemon scan failed", "dir", daemonDir, "error", err)
			return
		}
		var imported, skipped int
		for _, path := range paths {
			records, err := ingest.ReadRecordFile(path)
			if err != nil {
				logger.Error("daemon read failed", "file", path, "error", err)
				continue
			}
			stats, err := importer.Import(ctx, records)
			if err != nil {
				logger.Error("daemon import failed", "file", path, "error", err)
				continue
			}
			imported += stats.Conversations
			skipped += stats.Skipped
		}
		logger.Info("daemon sync pass finished", "imported", imported, "skipped", skipped)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.DaemonCron, runOnce); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.DaemonCron, err)
	}

	logger.Info("daemon starting", "dir", daemonDir, "schedule", cfg.DaemonCron)
	runOnce()
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("daemon stopped")
	return nil
}
