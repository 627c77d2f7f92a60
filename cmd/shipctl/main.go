package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/freight/internal/cli"
	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/core"
	"github.com/JonMunkholm/freight/internal/correction"
	"github.com/JonMunkholm/freight/internal/logging"
	"github.com/JonMunkholm/freight/internal/store"
)

func main() {
	_ = godotenv.Overload()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(openService)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openService wires the configured store and correction client. Logs go
// to stderr so command output stays pipeable.
func openService(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	st, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	svc := core.NewService(st, correction.NewClient(cfg.Correction), core.ServiceConfigFrom(cfg))
	return svc, closeStore, nil
}
