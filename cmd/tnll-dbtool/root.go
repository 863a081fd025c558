package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/config"
	"tnll-dbtool/internal/database"
	"tnll-dbtool/internal/journal"
	"tnll-dbtool/internal/logging"
)

const defaultConfigFile = "tnll-dbtool.yml"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tnll-dbtool",
		Short: "Back up, restore and merge the TNLL database from SQL dumps",
		Long: `tnll-dbtool writes SQL backups of the TNLL database and replays dumps into it.
A full import recreates every table in the dump and reruns migrations; a data
import merges historical rows into the current schema, dropping columns that
no longer exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default "+defaultConfigFile+" if present)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file with DB_* variables")
	rootCmd.PersistentFlags().String("database-url", "", "Database URL, overrides config and environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// app carries what every command needs once flags are parsed
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	closers    []io.Closer
	journal    *journal.Journal
	journalErr error
}

func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Root().PersistentFlags()
	configPath, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")
	databaseURL, _ := flags.GetString("database-url")
	verbose, _ := flags.GetBool("verbose")

	if configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configPath = defaultConfigFile
		}
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level:      level,
		AddSource:  verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{closer}}
	if configPath != "" {
		logger.Debug("Loaded config", "path", configPath)
	}
	return a, nil
}

// openDB connects to the configured database
func (a *app) openDB(ctx context.Context) (*database.DB, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	connStr := a.cfg.ConnectionString()
	a.logger.Debug("Connecting to database", "target", database.Redact(connStr))

	db, err := database.Open(ctx, connStr, database.Options{
		MaxAttempts:    a.cfg.Database.MaxAttempts,
		InitialBackoff: a.cfg.Database.InitialBackoff,
		Logger:         a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)
	return db, nil
}

// openJournal connects to Redis when a URL is configured. An unreachable
// journal is logged once and otherwise ignored for the life of the app.
func (a *app) openJournal() *journal.Journal {
	if a.journal != nil || a.journalErr != nil || a.cfg.Journal.RedisURL == "" {
		return a.journal
	}

	j, err := journal.Open(a.cfg.Journal.RedisURL)
	if err != nil {
		a.journalErr = err
		a.logger.Warn("Operation journal unavailable", "error", err)
		return nil
	}
	a.journal = j
	a.closers = append(a.closers, j)
	return j
}

// record writes the outcome of an operation to the journal, if one is open
func (a *app) record(ctx context.Context, operation, target, summary string, opErr error) {
	entry := journal.Entry{
		Operation: operation,
		Target:    target,
		Success:   opErr == nil,
		Summary:   summary,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.openJournal().Record(ctx, entry); err != nil {
		a.logger.Warn("Failed to record operation", "operation", operation, "error", err)
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runWithApp adapts a command body that needs config, logging and a
// signal-cancelled context
func runWithApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext(a.logger)
		defer cancel()

		return fn(ctx, a, cmd, args)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			logger.Warn("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
