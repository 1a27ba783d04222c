package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/YusovID/onetalk-router/internal/app"
	"github.com/YusovID/onetalk-router/internal/config"
	"github.com/YusovID/onetalk-router/internal/notify"
	"github.com/YusovID/onetalk-router/internal/report"
	myhttp "github.com/YusovID/onetalk-router/internal/transport/http"
	"github.com/YusovID/onetalk-router/internal/transport/ws"
	"github.com/YusovID/onetalk-router/pkg/logger/sl"
	"github.com/YusovID/onetalk-router/pkg/logger/slogpretty"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting onetalk-router", slog.String("env", cfg.Env))

	store, err := app.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	loc, err := cfg.Routing.Location()
	if err != nil {
		return fmt.Errorf("invalid routing time zone: %w", err)
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	sinks := notify.NewMulti(log).
		Add("markdown", notify.NewMarkdownLog(cfg.Notify.InsightsDir, loc)).
		Add("live", hub)

	if cfg.Notify.WebhookURL != "" {
		sinks.Add("webhook", notify.NewWebhook(notify.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Timeout: cfg.Notify.WebhookTimeout,
			RPS:     cfg.Notify.WebhookRPS,
		}, log))
	}

	if cfg.Redis.Addr != "" {
		client, err := notify.OpenRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		sinks.Add("redis", notify.NewRedis(client, cfg.Redis.Channel))
	}

	a, err := app.New(cfg, store, log, sinks)
	if err != nil {
		return err
	}

	if cfg.Report.Enabled {
		reporter := report.New(a.Stats, a.Directory, cfg.Notify.InsightsDir, a.Location, log)
		if err := reporter.Schedule(ctx, cfg.Report.Schedule); err != nil {
			return fmt.Errorf("failed to schedule daily report: %w", err)
		}
	}

	srv := myhttp.NewServer(log, myhttp.Services{
		Phones:     a.Phones,
		Directory:  a.Directory,
		Rules:      a.Rules,
		Dispatcher: a.Dispatcher,
		Stats:      a.Stats,
	}, myhttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Live:           ws.NewHandler(hub, log),
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	errChan := make(chan error, 1)

	go startServer(log, httpServer, errChan)

	select {
	case err, ok := <-errChan:
		if ok {
			return fmt.Errorf("http server error: %w", err)
		}

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %w", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errChan <- fmt.Errorf("error listening and serving: %w", err)
	}
}
