// Command vendora-edge runs the offline-capable caching gateway for the
// Vendora marketplace application.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vendora/vendora-edge/internal/api"
	"github.com/vendora/vendora-edge/internal/cachestore"
	"github.com/vendora/vendora-edge/internal/conf"
	"github.com/vendora/vendora-edge/internal/controller"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/notification"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
	"github.com/vendora/vendora-edge/internal/worker"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:     "vendora-edge",
		Short:   "Offline-capable caching gateway for Vendora",
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), settings)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	return cmd
}

func logLevel(name string) logger.LogLevel {
	switch name {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}

func run(ctx context.Context, settings *conf.Settings) error {
	log := logger.NewSlogLogger(os.Stdout, logLevel(settings.LogLevel), nil)

	if err := errors.InitSentry(settings.Sentry.DSN, "vendora-edge@"+version); err != nil {
		log.Warn("error telemetry disabled", logger.Error(err))
	}
	defer errors.FlushSentry(2 * time.Second)

	store, err := cachestore.Open(settings.CachePath, settings.Timeouts.HotTTL.Std(), log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	notifs := notification.NewService(&notification.ServiceConfig{
		DefaultBody: settings.Notify.DefaultBody,
		Icon:        settings.Notify.Icon,
		Badge:       settings.Notify.Badge,
		Vibration:   settings.Notify.Vibration,
	}, log)
	notification.InitializeService(notifs)
	sender, err := notification.NewShoutrrrSender(settings.Notify.ShoutrrrURLs)
	if err != nil {
		log.Warn("outbound notification delivery disabled", logger.Error(err))
	} else if sender != nil {
		notifs.SetSender(sender)
	}

	workerCfg, err := worker.ConfigFromSettings(settings)
	if err != nil {
		return err
	}

	caps := controller.DetectCapabilities(settings)

	// The worker reports transport outcomes to the controller, and the
	// controller drives the worker lifecycle; wire the reporter through a
	// late-bound indirection to avoid a construction cycle.
	var ctrl *controller.Controller
	w := worker.New(workerCfg, store, log, m,
		worker.WithClient(&http.Client{Timeout: settings.Timeouts.Upstream.Std()}),
		worker.WithConnectivityReporter(reporterFunc(func(online bool) {
			if ctrl != nil {
				ctrl.ReportOutcome(online)
			}
		})),
	)

	opts := []controller.Option{controller.WithMetrics(m)}
	if caps.PushSupported {
		opts = append(opts, controller.WithPushStarter(
			notification.NewPushReceiver(settings.Push, notifs, log)))
	}
	ctrl = controller.New(caps, settings.Generation, w, w, store, notifs, log, opts...)
	controller.InstallGlobal(ctrl)
	ctrl.Initialize(ctx)
	defer ctrl.Close()

	// The API layer is assembled last and resolves the installed instances
	// rather than capturing the locals above.
	server := api.New(controller.GetController(), w, notification.GetService(), registry, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening",
			logger.String("addr", settings.Listen),
			logger.String("upstream", settings.Upstream),
			logger.String("generation", settings.Generation))
		errCh <- server.Start(settings.Listen)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-sigCh:
		log.Info("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Timeouts.Shutdown.Std())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// reporterFunc adapts a func to worker.ConnectivityReporter.
type reporterFunc func(online bool)

func (f reporterFunc) ReportOutcome(online bool) { f(online) }
