package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/drew/servbot/internal/bot"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := bot.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	b, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal, stopping bot")
		cancel()
	}()

	logger.Info("bot initialized")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot error", zap.Error(err))
	}
	logger.Info("bot stopped gracefully")
}
