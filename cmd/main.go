package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/aivodrive/internal/alerts"
	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/config"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/db/memdb"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/handlers"
	"github.com/ukydev/aivodrive/internal/logger"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/seed"
	"github.com/ukydev/aivodrive/internal/service"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = 5 * time.Minute
)

var (
	inMemory bool

	rootCmd = &cobra.Command{
		Use:           "aivodrive",
		Short:         "AivoDrive fleet management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE:  runServe,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Replace the database contents with the demo data set",
		RunE:  runSeed,
	}

	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Alert maintenance jobs",
	}
	alertsGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Clear generated alerts and derive them again from the current fleet state",
		RunE:  runAlertsGenerate,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&inMemory, "in-memory", false, "serve from an in-memory store seeded with demo data")
	alertsCmd.AddCommand(alertsGenerateCmd)
	rootCmd.AddCommand(serveCmd, seedCmd, alertsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aivodrive: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg    *config.Config
	log    *log.Logger
	store  *db.Store
	auth   *auth.Service
	events events.Publisher
}

func newApp(ctx context.Context, memory bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	lg := logger.New(cfg.Environment, cfg.LogLevel)

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	var store *db.Store
	if memory {
		store = memdb.NewStore()
		lg.Warn("Using the in-memory store, data is lost on exit")
	} else {
		store, err = db.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("mongodb: %w", err)
		}
	}

	var pub events.Publisher = events.Noop{}
	if cfg.MQTT.BrokerURL != "" {
		p, err := events.NewMQTTPublisher(cfg.MQTT.BrokerURL, cfg.MQTT.TopicPrefix, lg)
		if err != nil {
			lg.WithError(err).Warn("MQTT broker unavailable, domain events disabled")
		} else {
			pub = p
		}
	}

	return &app{cfg: cfg, log: lg, store: store, auth: authService, events: pub}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := events.Flush(ctx); err != nil {
		a.log.WithError(err).Warn("Pending domain events were not published")
	}
	a.events.Close()
	if err := a.store.Close(ctx); err != nil {
		a.log.WithError(err).Warn("Failed to close the store")
	}
}

func (a *app) generator() *alerts.Generator {
	return alerts.NewGenerator(a.store, a.events, a.log)
}

func (a *app) seed(ctx context.Context) (*seed.Summary, error) {
	return seed.Run(ctx, a.store, a.auth, a.generator(), a.log)
}

func (a *app) router(limiter *middleware.RateLimiter) http.Handler {
	return handlers.NewRouter(handlers.RouterConfig{
		Store:        a.store,
		Services:     service.New(a.store, a.auth, a.events, a.log),
		Auth:         a.auth,
		LoginLimiter: limiter,
		Logger:       a.log,
		Development:  a.cfg.IsDevelopment(),
		CORSOrigin:   a.cfg.HTTP.CORSOrigin,
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, inMemory)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.SeedDatabase || inMemory {
		if _, err := a.seed(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	limiter := middleware.NewRateLimiter(a.cfg.Auth.LoginRatePerMinute, a.cfg.Auth.LoginRateBurst)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:           a.router(limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.log.WithFields(log.Fields{
		"addr":        srv.Addr,
		"environment": a.cfg.Environment,
	}).Info("Starting AivoDrive API")
	return serve(ctx, srv, limiter, a.log)
}

// serve runs srv until ctx is cancelled, then drains it. Idle login
// limiters are swept while the server runs.
func serve(ctx context.Context, srv *http.Server, limiter *middleware.RateLimiter, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterSweep)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		})
	}

	return g.Wait()
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.seed(cmd.Context()); err != nil {
		return err
	}
	a.log.Infof("Demo accounts use the password %q", seed.DefaultPassword)
	return nil
}

func runAlertsGenerate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.generator().Regenerate(cmd.Context()); err != nil {
		return fmt.Errorf("generate alerts: %w", err)
	}
	return nil
}
