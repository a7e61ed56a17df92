package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-outreach-backend/internal/browser"
	"github.com/tbourn/go-outreach-backend/internal/config"
	httpapi "github.com/tbourn/go-outreach-backend/internal/http"
	"github.com/tbourn/go-outreach-backend/internal/linkedin"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/quota"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/services"
	"github.com/tbourn/go-outreach-backend/internal/sysutil"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.Version(version))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	profiles := repo.NewProfileDBs(cfg.DataDir)
	defer profiles.Close()

	sessions := browser.NewSessionManager(&browser.ChromeLauncher{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		ProfileDir:    cfg.Browser.ProfileDir,
		ActionTimeout: cfg.Browser.ActionTimeout,
		Log:           log,
	}, log)
	defer sessions.CloseAll()

	runs := services.NewRunService(db,
		quota.New(db, log),
		sessions,
		profiles,
		&observability.Artifacts{AssetsDir: cfg.AssetsDir, Log: log},
		linkedin.Pacer{Min: cfg.Browser.MinDelay, Max: cfg.Browser.MaxDelay},
		log,
	)
	runs.MaxTransitions = cfg.Workers.MaxTransitions
	schedules := services.NewScheduleService(db, cfg.Workers.SchedulerInterval, log)
	poller := services.NewPoller(db, runs, cfg.Workers, log)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Runs:      runs,
		Schedules: schedules,
		Accounts:  &services.AccountService{DB: db, ProfileDBs: profiles, Log: log},
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		poller.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		schedules.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", sysutil.Version(version)).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-serveErr:
		log.Error().Err(err).Msg("http server failed")
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	workers.Wait()
	// In-flight runs finish and persist before browsers are closed.
	runs.Wait()
	if err := shutdownOTel(sctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	return err
}
