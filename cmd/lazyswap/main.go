package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/lazyswap/internal/cli"
	"github.com/MikeSquared-Agency/lazyswap/internal/config"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
