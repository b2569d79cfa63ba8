package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vuongmanhnghia/tacobot/internal/bot"
	"github.com/vuongmanhnghia/tacobot/internal/config"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.WithField("token", cfg.SafeToken()).Info("Starting " + cfg.BotName)

	b, err := bot.New(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build bot")
	}
	if err := b.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start bot")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	b.Stop()
}
