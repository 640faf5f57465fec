package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/callgrade/callgrade/internal/config"
	"github.com/callgrade/callgrade/internal/sla"
	"github.com/callgrade/callgrade/internal/slackbot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("callgrade-bot starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	src, err := cfg.BuildSource()
	if err != nil {
		slog.Error("failed to build source", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"source", src.Ref(),
		"goal", cfg.Report.Goal,
		"channel", cfg.Slack.Channel,
	)

	analyzer := sla.New(sla.Options{
		Source: src,
		Goal:   cfg.Goal(),
		Strict: cfg.Report.Strict,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bot := slackbot.New(cfg.Slack, analyzer)
	if err := bot.Run(ctx); err != nil {
		slog.Error("bot stopped", "err", err)
		os.Exit(1)
	}

	slog.Info("callgrade-bot shutting down")
}
