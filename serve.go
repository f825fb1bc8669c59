package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/ideaforge-api/internal/api"
	"github.com/Conceptual-Machines/ideaforge-api/internal/database"
	"github.com/Conceptual-Machines/ideaforge-api/internal/metrics"
	"github.com/Conceptual-Machines/ideaforge-api/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and web pages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		flush := initSentry(cfg)
		defer flush()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			sentry.CaptureException(err)
			return err
		}
		if err := database.Migrate(db); err != nil {
			sentry.CaptureException(err)
			return err
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
		if err != nil {
			log.Printf("CloudWatch metrics disabled: %v", err)
		}
		defer cloudwatch.Flush()

		recorder := metrics.NewRecorder(metrics.NewSentryMetrics(), cloudwatch)
		tracer := observability.NewTracer(ctx, cfg)
		defer tracer.Flush(context.Background())

		generator := newGenerationClient(cfg, recorder, tracer)
		if err := generator.CheckPrompts(); err != nil {
			sentry.CaptureException(err)
			return err
		}

		router, err := api.SetupRouter(api.Deps{
			DB:        db,
			Config:    cfg,
			Version:   GetVersion(),
			Generator: generator,
			Recorder:  recorder,
		})
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("🚀 Starting server on port %s", cfg.Port)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				sentry.CaptureException(err)
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
