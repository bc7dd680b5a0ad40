package main

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

	"github.com/lysyi3m/skills-monitor/app/alerts"
	"github.com/lysyi3m/skills-monitor/app/api"
	"github.com/lysyi3m/skills-monitor/app/cache"
	"github.com/lysyi3m/skills-monitor/app/cfg"
	"github.com/lysyi3m/skills-monitor/app/collector"
	"github.com/lysyi3m/skills-monitor/app/sources"
	"github.com/lysyi3m/skills-monitor/app/storage"
	"github.com/lysyi3m/skills-monitor/app/tasks"
)

func main() {
	appConfig, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appConfig.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(appConfig); err != nil {
		slog.Error("Exiting", "command", appConfig.Command, "error", err)
		os.Exit(1)
	}
}

func run(appConfig *cfg.Cfg) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, appConfig.Store, appConfig.OutputCSV, appConfig.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcherOpts := []sources.FetcherOption{}
	if appConfig.CacheEnabled() {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			slog.Warn("Response cache unavailable, fetching uncached", "addr", appConfig.RedisAddr, "error", err)
		} else {
			defer redisCache.Close()
			fetcherOpts = append(fetcherOpts, sources.WithCache(redisCache, appConfig.ResponseCacheTTL()))
		}
	}
	fetcher := sources.NewFetcher(&http.Client{}, appConfig.UserAgent, appConfig.FetchTimeout, fetcherOpts...)

	srcs, err := buildSources(fetcher, appConfig)
	if err != nil {
		return err
	}

	var notifier collector.Notifier
	if appConfig.AlertsEnabled() {
		notifier = alerts.NewNotifier(alerts.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			From:     appConfig.EmailFrom,
			To:       appConfig.EmailTo,
			Password: appConfig.EmailAppPassword,
			Timeout:  appConfig.FetchTimeout,
		})
	}

	coll := collector.New(srcs, store, notifier, collector.Options{
		Whitelist:        appConfig.Skills,
		AlertTargetSkill: appConfig.AlertTargetSkill,
		AlertMinMentions: appConfig.AlertMinMentions,
		Workers:          appConfig.FetchWorkers,
	})

	slog.Info("Configuration loaded",
		"command", appConfig.Command,
		"version", appConfig.Version,
		"store", appConfig.Store,
		"sources", len(srcs),
		"skills", appConfig.Skills,
		"alerts", appConfig.AlertsEnabled(),
		"cache", appConfig.CacheEnabled(),
		"cache_ttl", appConfig.ResponseCacheTTL())

	if appConfig.Command == cfg.CommandServe {
		return serve(ctx, appConfig, store, coll)
	}

	report, err := coll.Execute(ctx)
	if err != nil {
		return err
	}
	for _, result := range report.Sources {
		if result.Err != nil {
			slog.Warn("Source reported errors", "source", result.Name, "error", result.Err)
		}
	}
	return nil
}

func buildSources(fetcher *sources.Fetcher, appConfig *cfg.Cfg) ([]sources.Source, error) {
	var srcs []sources.Source

	if len(appConfig.LeverCompanies) > 0 {
		srcs = append(srcs, sources.NewLever(fetcher, appConfig.LeverCompanies))
	}
	if len(appConfig.GreenhouseBoards) > 0 {
		srcs = append(srcs, sources.NewGreenhouse(fetcher, appConfig.GreenhouseBoards, appConfig.GreenhouseContent))
	}

	configCache := sources.NewConfigCache(appConfig.FeedsDir)
	if err := configCache.Run(); err != nil {
		return nil, fmt.Errorf("failed to load feed configurations: %w", err)
	}
	if configCache.GetConfigCount() > 0 {
		slog.Info("Feed configurations loaded", "dir", appConfig.FeedsDir, "feeds", configCache.GetConfigCount())
		srcs = append(srcs, sources.NewRSS(fetcher, configCache))
	}

	return srcs, nil
}

func serve(ctx context.Context, appConfig *cfg.Cfg, store storage.Store, coll *collector.Collector) error {
	scheduler := tasks.NewScheduler(coll, appConfig.CollectInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(store, scheduler, coll, appConfig.Version)
	server := api.NewServer(apiHandler)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appConfig.Port, "collect_interval", appConfig.CollectInterval)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return serveErr
}
