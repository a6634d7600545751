package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/wirebird/crm/internal/maintenance"
	"github.com/wirebird/crm/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Run scheduled maintenance jobs: the nightly duplicate lead sweep.`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

func startWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	_, db, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := maintenance.NewService(db, lg, cfg.Security.BCryptCost)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Maintenance.DedupeSchedule, func() {
		removed, err := svc.DedupeLeads(context.Background(), cfg.Maintenance.DedupeApply)
		if err != nil {
			lg.Error("scheduled dedupe failed", "error", err)
			return
		}
		lg.Info("scheduled dedupe finished", "removed", removed, "applied", cfg.Maintenance.DedupeApply)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid dedupe schedule %q: %v\n", cfg.Maintenance.DedupeSchedule, err)
		os.Exit(1)
	}

	scheduler.Start()
	lg.Info("worker started", "dedupe_schedule", cfg.Maintenance.DedupeSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	lg.Info("received signal, stopping worker", "signal", sig.String())
	ctx := scheduler.Stop()
	<-ctx.Done()
	lg.Info("worker stopped")
}
