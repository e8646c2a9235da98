package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"amx-support-bot/internal/config"
	"amx-support-bot/internal/prober"
)

func main() {
	// .env is optional; environment variables win either way
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Setup logger
	logger := setupLogger()

	// Load configuration; the prober needs no Telegram credentials
	cfg, err := config.LoadProber()
	if err != nil {
		logger.Fatal("Failed to load configuration:", err)
	}

	p := prober.New(cfg, logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Optional operator status endpoint
	if cfg.Prober.StatusAddr != "" {
		statusServer := prober.NewStatusServer(p, logger)
		go func() {
			if err := statusServer.Run(ctx, cfg.Prober.StatusAddr); err != nil {
				logger.Errorf("Status server failed: %v", err)
			}
		}()
	}

	logger.Info("Starting proxy health prober")
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Prober failed:", err)
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}
