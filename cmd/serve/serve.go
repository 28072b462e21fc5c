// Package serve implements the HTTP API server command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astralabs/astra-go/internal/analysis"
	"github.com/astralabs/astra-go/internal/api"
	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
	"github.com/astralabs/astra-go/internal/exchange"
	"github.com/astralabs/astra-go/internal/ingest"
	"github.com/astralabs/astra-go/internal/logging"
	"github.com/astralabs/astra-go/internal/observability"
)

// shutdownTimeout bounds the drain of in-flight requests on exit.
const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ASTRA HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}

	return cmd
}

// RunServer wires the pipeline together and serves the API until interrupted.
func RunServer(settings *conf.Settings) error {
	log := logging.ForService("server")
	if log == nil {
		log = slog.Default().With("service", "server")
	}
	if settings.Main.Log.Enabled {
		fileLogger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, "server", slog.LevelInfo)
		if err != nil {
			log.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			log = fileLogger
			defer func() { _ = closeLogger() }()
		}
	}

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Error("failed to close datastore", "error", err)
		}
	}()

	var metrics *observability.Metrics
	if settings.Metrics.Enabled {
		var err error
		metrics, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
		go serveMetrics(settings.Metrics.Listen, metrics, log)
	}

	detectors := detector.NewManagerFromSettings(settings)
	orchestrator := analysis.NewOrchestrator(ds, detectors, settings, metrics)
	exchangeService := exchange.NewService(ds, settings, metrics)
	publisher := ingest.NewPublisher(ds, metrics)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.New(e, ds, settings, orchestrator, detectors, exchangeService, publisher)

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting API server",
			"port", settings.WebServer.Port,
			"instance_id", settings.Main.InstanceID)
		if err := e.Start(":" + settings.WebServer.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}

// serveMetrics exposes the Prometheus endpoint on its own listener.
func serveMetrics(listen string, metrics *observability.Metrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Error("metrics endpoint failed", "listen", listen, "error", err)
	}
}
