package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"rental-ledger-backend/internal/config"
	"rental-ledger-backend/internal/jobs"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository/postgres"
	"rental-ledger-backend/internal/scheduler"
	"rental-ledger-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'daily-ledger-summary', 'stale-rental-report', 'all-daily')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ledger cronjob runner...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db, postgres.TxTimeouts{
		Lock:      cfg.LockTimeout(),
		Statement: cfg.StatementTimeout(),
	})
	opts := service.Options{
		Location:      cfg.Location(),
		RetryAttempts: cfg.Ledger.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff(),
	}

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Account: service.NewAccountService(store.Accounts()),
		Rental:  service.NewRentalService(store, opts),
		Ledger:  service.NewLedgerService(store, opts),
	}, cfg)

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner, cfg.Location())
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.JobCount())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped")
}

func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "daily-ledger-summary":
		jobRunner.DailyLedgerSummary()
	case "stale-rental-report":
		jobRunner.StaleRentalReport()
	case "all-daily":
		jobRunner.RunAllDailyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - daily-ledger-summary\n")
		fmt.Printf("  - stale-rental-report\n")
		fmt.Printf("  - all-daily\n")
		os.Exit(1)
	}
}
