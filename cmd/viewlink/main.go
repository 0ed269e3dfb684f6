package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/viewtl/viewlink/internal/auth"
	"github.com/viewtl/viewlink/internal/config"
	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/database"
	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/message"
	"github.com/viewtl/viewlink/internal/poller"
	"github.com/viewtl/viewlink/internal/router"
	"github.com/viewtl/viewlink/internal/storage"
	"github.com/viewtl/viewlink/internal/version"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (built-in defaults when empty)")
	logLevel := pflag.String("log-level", "", "override log.level from the config file")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("viewlink " + version.String())
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting viewlink",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"storage", cfg.Storage.Driver,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	controller := newController(cfg, store, logger)

	rt := router.NewRouter(router.DefaultRouterConfig(), controller.Messages(), logger)
	registerHandlers(rt, logger)

	refresher := poller.New(poller.Config{
		Interval: cfg.Controller.RefreshInterval,
		Keys:     cfg.Controller.RefreshQueries,
	}, controller, logger)

	credentials, _ := store.(storage.CredentialWriter)
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           newHealthHandler(controller, rt, refresher, credentials, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := rt.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	if err := refresher.Start(ctx); err != nil {
		logger.Error("failed to start status poller", "error", err)
		os.Exit(1)
	}

	logger.Info("viewlink running",
		"access_point", cfg.Device.AccessPointURL,
		"remote", cfg.Device.RemoteURL,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Run blocks until the context is cancelled.
	if err := controller.Run(ctx); err != nil {
		logger.Error("controller stopped", "error", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	refresher.Stop(shutdownCtx)
	rt.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("viewlink stopped")
}

// openStore builds the configured storage provider.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Provider, func(), error) {
	creds := storage.Credentials{
		Email:    cfg.Credentials.Email,
		Password: cfg.Credentials.Password,
	}

	switch cfg.Storage.Driver {
	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Storage.Database.Host,
			"port", cfg.Storage.Database.Port,
			"database", cfg.Storage.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool, cfg.Storage.Profile, creds, cfg.Storage.MaxAddresses, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected")
		return store, pool.Close, nil

	default:
		store, err := storage.NewMemoryStore(creds, cfg.Storage.MaxAddresses)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// newController wires discovery, login and the session channel together.
func newController(cfg *config.Config, store storage.Provider, logger *slog.Logger) *connection.Controller {
	// Per-probe deadlines come from the resolver's context.
	prober := discovery.NewHTTPProber(&http.Client{}, storage.SessionTokenSource(store), logger)

	resolver := discovery.NewResolver(discovery.ResolverConfig{
		ProbeTimeout:   cfg.Discovery.ProbeTimeout,
		Concurrency:    cfg.Discovery.Concurrency,
		OverallTimeout: cfg.Discovery.OverallTimeout,
	}, prober, logger)

	source := discovery.NewCandidateSource(discovery.SourceConfig{
		AccessPointURL: cfg.Device.AccessPointURL,
		RemoteURL:      cfg.Device.RemoteURL,
		WiFiURL:        cfg.Device.WiFiURL,
		SubnetBase:     cfg.Device.SubnetBase,
		SkipSubnetScan: cfg.Device.SkipSubnetScan,
	}, store, logger)

	gate := auth.NewGate(store, nil, logger)

	return connection.NewController(connection.ControllerConfig{
		Backoff: cfg.Controller.Backoff,
		Channel: connection.ChannelConfig{
			HeartbeatInterval: cfg.Channel.HeartbeatInterval,
			WriteTimeout:      cfg.Channel.WriteTimeout,
			HandshakeTimeout:  cfg.Channel.HandshakeTimeout,
			BufferSize:        cfg.Channel.BufferSize,
		},
	}, connection.Deps{
		Source:               source,
		Resolver:             resolver,
		Gate:                 gate,
		Store:                store,
		OnSessionEstablished: sessionHook(store, cfg.Controller.InitialQueries, logger),
	}, logger)
}

// sessionHook announces the stored session and requests the initial status
// buckets on every new session.
func sessionHook(store storage.Provider, queries []string, logger *slog.Logger) connection.SessionHook {
	return func(ctx context.Context, s connection.Sender, c connection.Connected) error {
		token, err := store.Session(ctx)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if token != "" {
			if err := s.Send(ctx, message.Session{Session: token}); err != nil {
				return err
			}
		}
		for _, key := range queries {
			if err := s.Send(ctx, message.Get{Key: key}); err != nil {
				return err
			}
		}
		logger.Debug("session announced", "address", c.Address, "queries", len(queries))
		return nil
	}
}

// registerHandlers logs the status messages the client cares about.
func registerHandlers(rt *router.Router, logger *slog.Logger) {
	rt.Handle(message.TypeBattery, func(_ context.Context, msg message.Inbound) {
		b := msg.(*message.Battery)
		logger.Info("battery", "percentage", b.Percentage, "charging", b.Charging)
	})
	rt.Handle(message.TypeNoDevice, func(context.Context, message.Inbound) {
		logger.Warn("no camera attached")
	})
	rt.Handle(message.TypeCamera, func(_ context.Context, msg message.Inbound) {
		c := msg.(*message.Camera)
		logger.Info("camera", "model", c.Model, "connected", c.Connected)
	})
	rt.Handle(message.TypeIntervalometerStatus, func(_ context.Context, msg message.Inbound) {
		logger.Debug("intervalometer status", "type", msg.MessageType())
	})
	rt.Handle(message.TypePong, func(context.Context, message.Inbound) {})
	rt.HandleUnknown(func(_ context.Context, msg message.Inbound) {
		u := msg.(*message.Unknown)
		logger.Debug("unhandled message type", "type", u.Type, "bytes", len(u.Raw))
	})
}
