package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omrishi123/tractortrack/internal/advisor"
	"github.com/omrishi123/tractortrack/internal/amqp"
	"github.com/omrishi123/tractortrack/internal/backend"
	"github.com/omrishi123/tractortrack/internal/cli"
	"github.com/omrishi123/tractortrack/internal/config"
	"github.com/omrishi123/tractortrack/internal/export/sheets"
	apphttp "github.com/omrishi123/tractortrack/internal/http"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/metrics"
	"github.com/omrishi123/tractortrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

// observedNotifier counts outgoing change notifications.
type observedNotifier struct {
	next    services.ChangeNotifier
	metrics *metrics.Metrics
}

func (n observedNotifier) PublishDocumentChanged(ctx context.Context, userID, hash string) error {
	err := n.next.PublishDocumentChanged(ctx, userID, hash)
	n.metrics.ObserveNotification("published", err)
	return err
}

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Exit(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Exit(logger, "Server stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}
	if store.Cleanup != nil {
		defer func() {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Failed to close document store", log.FieldError, err)
			}
		}()
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	mcfg := services.ManagerConfig{
		WriteDelay: cfg.WriteDebounce,
		CacheSize:  cfg.SessionCacheSize,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	if m != nil {
		mcfg.OnWrite = m.ObserveWrite
	}

	var notifier *amqp.Client
	if cfg.AMQPURL != "" {
		notifier, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.InstanceID,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change notifications", log.FieldError, err)
			notifier = nil
		} else {
			defer notifier.Close()
			mcfg.Notifier = notifier
			if m != nil {
				mcfg.Notifier = observedNotifier{next: notifier, metrics: m}
			}
		}
	}

	mgr := services.NewManager(store.Store, mcfg)
	if m != nil {
		m.RegisterSessions(mgr.Size)
	}

	deps := apphttp.Deps{
		Sessions:        mgr,
		Advisor:         newAdvisor(cfg, logger),
		Metrics:         m,
		Logger:          logger,
		Ready:           store.Ready,
		WritesPerMinute: cfg.RateLimitPerMinute,
		Production:      cfg.IsProduction(),
	}
	if cfg.SheetsEnabled() {
		exporter, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, sheets.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		}, cfg.GoogleSheetsRequestTimeout, logger.WithComponent(log.ComponentSheets).Slog())
		if err != nil {
			logger.Warn("Failed to initialize Google Sheets export, continuing without it", log.FieldError, err)
		} else {
			deps.Sheets = exporter
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tractortrack server",
			"port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", notifier != nil, "sheets_enabled", deps.Sheets != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if notifier != nil {
		g.Go(func() error {
			err := notifier.ConsumeDocumentChanges(gctx, func(ctx context.Context, msg *amqp.DocumentChangedMessage) error {
				err := mgr.HandleDocumentChanged(ctx, msg)
				if m != nil {
					m.ObserveNotification("received", err)
				}
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := mgr.Close(shutdownCtx); err != nil {
			logger.Error("Failed to flush sessions on shutdown", log.FieldError, err)
			return err
		}
		return nil
	})

	return g.Wait()
}

// newAdvisor prefers the remote service when configured and falls back to
// the local interval rules.
func newAdvisor(cfg *config.Config, logger *log.Logger) advisor.Advisor {
	local := advisor.NewIntervalAdvisor()
	if cfg.AdvisorURL == "" {
		return local
	}
	l := logger.WithComponent(log.ComponentAdvisor).Slog()
	return advisor.Fallback{
		Primary:   advisor.NewHTTPAdvisor(cfg.AdvisorURL, cfg.AdvisorAPIKey, cfg.AdvisorTimeout, advisor.WithLogger(l)),
		Secondary: local,
		Logger:    l,
	}
}
