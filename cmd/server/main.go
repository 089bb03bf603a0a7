// Package main is the entry point for the commutewatch server.
//
// It loads configuration, builds the upstream provider clients, the delivery
// channels, the commute agent, and the two auto-trigger pipelines (morning
// bus, afternoon rail), then runs the poll schedulers and the HTTP API under
// a single errgroup. Graceful shutdown is handled via OS signal interception
// (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"commutewatch/internal/agent"
	"commutewatch/internal/api/handlers"
	"commutewatch/internal/config"
	"commutewatch/internal/core"
	"commutewatch/internal/db"
	"commutewatch/internal/external"
	"commutewatch/internal/notifications"
	"commutewatch/internal/scheduler"
	"commutewatch/internal/subway"
	"commutewatch/internal/telemetry"
	"commutewatch/internal/transit"
	"commutewatch/internal/trigger"
	"commutewatch/internal/types"
	"commutewatch/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	tlog := types.NewSlogLogger(logger)
	logger.Info("commutewatch starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	loc, err := time.LoadLocation(cfg.Trigger.Timezone)
	if err != nil {
		return fmt.Errorf("loading trigger timezone %q: %w", cfg.Trigger.Timezone, err)
	}
	clock := zoneClock{loc: loc}

	metrics := telemetry.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, process memory otherwise. Trigger
	// window state is memory-only either way.
	var (
		pool        *pgxpool.Pool
		locations   types.LocationStore
		deliveryLog types.DeliveryLog
		probes      []core.HealthProbe
	)
	if cfg.Database.Enabled() {
		pool, err = db.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		locations = db.NewLocationRepository(pool)
		deliveryLog = db.NewDeliveryRepository(pool)
		probes = append(probes, core.HealthProbe{
			Name:  "database",
			Check: pool.Ping,
		})
		logger.Info("database connected")
	} else {
		locations = db.NewMemoryLocationStore()
		deliveryLog = db.NewMemoryDeliveryLog(0)
		logger.Info("no database configured, using in-memory stores")
	}

	userAgent := cfg.Service + "/" + cfg.Environment

	// Upstream provider clients, each behind its own circuit breaker.
	transitHTTP := external.NewBaseClient(
		&http.Client{Timeout: cfg.Transit.Timeout},
		"njtransit",
		types.ErrCodeUpstreamTransit,
		external.DefaultRetryPolicy(),
		userAgent,
	)
	weatherHTTP := external.NewBaseClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		"openweather",
		types.ErrCodeUpstreamWeather,
		external.DefaultRetryPolicy(),
		userAgent,
	)
	subwayHTTP := external.NewBaseClient(
		&http.Client{Timeout: cfg.Subway.Timeout},
		"mta-gtfs",
		types.ErrCodeUpstreamSubway,
		external.DefaultRetryPolicy(),
		userAgent,
	)

	busTokens := transit.NewTokenSource(transit.TokenSourceConfig{
		Doer:      transitHTTP,
		AuthURL:   strings.TrimRight(cfg.Transit.BusBaseURL, "/") + "/api/BUSDV2/authenticateUser",
		Username:  cfg.Transit.Username,
		Password:  cfg.Transit.Password,
		CacheDir:  cfg.Transit.TokenCacheDir,
		CacheFile: "bus_token.json",
		Clock:     clock,
		Logger:    tlog,
	})
	railTokens := transit.NewTokenSource(transit.TokenSourceConfig{
		Doer:      transitHTTP,
		AuthURL:   strings.TrimRight(cfg.Transit.RailBaseURL, "/") + "/api/TrainData/getToken",
		Username:  cfg.Transit.Username,
		Password:  cfg.Transit.Password,
		CacheDir:  cfg.Transit.TokenCacheDir,
		CacheFile: "rail_token.json",
		Clock:     clock,
		Logger:    tlog,
	})

	busClient := transit.NewBusClient(transit.BusClientConfig{
		Doer:      transitHTTP,
		Tokens:    busTokens,
		BaseURL:   cfg.Transit.BusBaseURL,
		Route:     cfg.Transit.BusRoute,
		Direction: cfg.Transit.BusDirection,
		Stop:      cfg.Transit.BusStop,
		Logger:    tlog,
	})
	railClient := transit.NewRailClient(transit.RailClientConfig{
		Doer:    transitHTTP,
		Tokens:  railTokens,
		BaseURL: cfg.Transit.RailBaseURL,
		Logger:  tlog,
	})
	weatherClient := weather.NewClient(weather.ClientConfig{
		Doer:    weatherHTTP,
		BaseURL: cfg.Weather.BaseURL,
		APIKey:  cfg.Weather.APIKey,
		Logger:  tlog,
	})
	subwayClient := subway.NewClient(subway.ClientConfig{
		Doer:    subwayHTTP,
		FeedURL: cfg.Subway.FeedURL,
		APIKey:  cfg.Subway.APIKey,
		StopIDs: cfg.Subway.StopIDs,
		Clock:   clock,
		Logger:  tlog,
	})

	probes = append(probes, core.HealthProbe{
		Name: "transit",
		Check: func(ctx context.Context) error {
			_, err := railTokens.Token(ctx)
			return err
		},
	})

	// Outbound delivery channels and the fan-out dispatcher.
	notifyHTTP := &http.Client{Timeout: cfg.Notify.Timeout}
	var channels []types.Channel
	if cfg.Notify.ChannelEnabled(types.ChannelTelegram) {
		channels = append(channels, notifications.NewTelegramChannel(notifications.TelegramChannelConfig{
			Doer:     notifyHTTP,
			BotToken: cfg.Notify.TelegramBotToken,
			ChatID:   cfg.Notify.TelegramChatID,
		}))
	}
	if cfg.Notify.ChannelEnabled(types.ChannelWhatsApp) {
		channels = append(channels, notifications.NewTwilioChannel(notifications.TwilioChannelConfig{
			Doer:       notifyHTTP,
			AccountSID: cfg.Notify.TwilioAccountSID,
			AuthToken:  cfg.Notify.TwilioAuthToken,
			From:       cfg.Notify.TwilioFrom,
			To:         cfg.Notify.TwilioTo,
		}))
	}
	dispatcher := notifications.NewDispatcher(notifications.DispatcherConfig{
		Channels: channels,
		Log:      deliveryLog,
		Metrics:  metrics,
		Logger:   tlog,
	})

	commuteAgent := agent.NewCommuteAgent(agent.CommuteAgentConfig{
		Bus:       busClient,
		Rail:      railClient,
		Weather:   weatherClient,
		Subway:    subwayClient,
		Locations: locations,
		Sender:    dispatcher,
		Logger:    tlog,
	})

	// Auto-trigger pipelines: morning bus and afternoon rail.
	morningGate := scheduler.NewGate(true)
	morningOrch := trigger.NewOrchestrator(trigger.OrchestratorConfig{
		Kind:    types.TriggerMorningBus,
		Zone:    types.ZoneHome,
		Windows: trigger.DefaultMorningWindows(),
		Clock:   clock,
		Eval: trigger.NewBusEvaluator(trigger.BusEvaluatorConfig{
			Data:      busClient,
			LookAhead: cfg.Trigger.LookAhead,
			Logger:    tlog,
		}),
		Notifier: commuteAgent,
		Gate:     morningGate,
		Metrics:  metrics,
		Logger:   tlog,
	})

	afternoonGate := scheduler.NewGate(true)
	afternoonOrch := trigger.NewOrchestrator(trigger.OrchestratorConfig{
		Kind:    types.TriggerAfternoonRail,
		Zone:    types.ZoneNewark,
		Windows: trigger.DefaultAfternoonWindows(),
		Clock:   clock,
		Eval: trigger.NewRailEvaluator(trigger.RailEvaluatorConfig{
			Data:    railClient,
			Station: cfg.Transit.RailStation,
			Logger:  tlog,
		}),
		Notifier: commuteAgent,
		Gate:     afternoonGate,
		Metrics:  metrics,
		Logger:   tlog,
	})

	morningRunner := scheduler.NewRunner(scheduler.RunnerConfig{
		Name:        string(types.TriggerMorningBus),
		Job:         morningOrch,
		Interval:    cfg.Trigger.PollInterval,
		TickTimeout: cfg.Trigger.TickTimeout,
		Logger:      tlog,
	})
	afternoonRunner := scheduler.NewRunner(scheduler.RunnerConfig{
		Name:        string(types.TriggerAfternoonRail),
		Job:         afternoonOrch,
		Interval:    cfg.Trigger.PollInterval,
		TickTimeout: cfg.Trigger.TickTimeout,
		Logger:      tlog,
	})

	// HTTP surface.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.MetricsHandler = metrics.Handler()
	srv.Probes = probes

	validator := core.NewValidator(logger)
	commuteHandler := handlers.NewCommuteHandler(commuteAgent, locations, afternoonGate, validator, logger)
	triggerHandler := handlers.NewTriggerAdminHandler(map[types.TriggerKind]handlers.TriggerControl{
		types.TriggerMorningBus:    {Toggle: morningGate, State: morningOrch},
		types.TriggerAfternoonRail: {Toggle: afternoonGate, State: afternoonOrch},
	}, logger)
	srv.V1Registrars = append(srv.V1Registrars,
		commuteHandler.RegisterRoutes,
		triggerHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return morningRunner.Run(gctx) })
	g.Go(func() error { return afternoonRunner.Run(gctx) })
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// zoneClock reports the current time in the deployment timezone so the
// window tables compare against local wall-clock time.
type zoneClock struct {
	loc *time.Location
}

func (c zoneClock) Now() time.Time { return time.Now().In(c.loc) }

// newLogger creates a structured slog.Logger configured for the given log
// level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
