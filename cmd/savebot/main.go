package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MaximPuga/savebot/internal/api"
	"github.com/MaximPuga/savebot/internal/bot"
	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/pipeline"
	"github.com/MaximPuga/savebot/internal/queue"
	"github.com/MaximPuga/savebot/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("savebot %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting savebot",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
		logger.Error("failed to create download directory", "error", err)
		os.Exit(1)
	}

	for _, proxy := range cfg.Download.Proxies {
		logger.Info("proxy configured", "proxy", config.MaskProxy(proxy))
	}

	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to initialize telegram client", "error", err)
		os.Exit(1)
	}
	tg.Debug = cfg.Telegram.Debug
	logger.Info("authorized on telegram", "username", tg.Self.UserName)

	jobQueue := queue.New()
	dl := pipeline.New(cfg, logger)
	tgBot := bot.New(tg, jobQueue, cfg.Download, logger)

	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobQueue,
		dl,
		tgBot.DeliverResult,
		logger,
	)
	pool.Start()

	router := api.NewRouter(api.NewHealthHandler(jobQueue))
	srv := &http.Server{
		Addr:         cfg.Ops.Address(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info("starting ops server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := tg.GetUpdatesChan(updateConfig)

	botCtx, cancelBot := context.WithCancel(context.Background())
	go tgBot.Run(botCtx, updates)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	tg.StopReceivingUpdates()
	cancelBot()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if err := pool.Stop(15 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("savebot stopped")
}
