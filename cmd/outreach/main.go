// Command outreach runs the LinkedIn outreach automation service.
//
//	outreach serve     start the HTTP API, the pending-run poller and the scheduler
//	outreach migrate   create or update the server database schema
//	outreach version   print the build version
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/config"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/sysutil"
)

// version is set at link time: -ldflags "-X main.version=v1.2.3".
var version string

func main() {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "outreach",
		Short:         "LinkedIn outreach automation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "outreach %s\n", sysutil.Version(version))
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the server database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := setupLogging(cfg)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			log.Info().Str("db_path", cfg.DBPath).Msg("schema up to date")
			return nil
		},
	}
}

// setupLogging applies the configured level and installs the process
// logger as the zerolog global, which request loggers fall back to.
func setupLogging(cfg config.Config) zerolog.Logger {
	sysutil.SetLogLevel(cfg.LogLevel)
	log := sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	zlog.Logger = log
	return log
}

// openDB opens and migrates the server database, creating the storage
// directories on first start.
func openDB(cfg config.Config) (*gorm.DB, error) {
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.DataDir, cfg.AssetsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage dir %s: %w", dir, err)
		}
	}
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
